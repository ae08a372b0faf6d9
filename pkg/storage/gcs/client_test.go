package gcs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPublicURL(t *testing.T) {
	t.Parallel()

	client := &Client{defaultBucket: "store-assets"}
	got := client.PublicURL("stores/abc/logo.png")
	want := "https://storage.googleapis.com/store-assets/stores/abc/logo.png"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPublicURLCustomBase(t *testing.T) {
	t.Parallel()

	client := &Client{defaultBucket: "store-assets", publicBaseURL: "https://cdn.example.com"}
	got := client.PublicURL("stores/abc/logo.png")
	if got != "https://cdn.example.com/store-assets/stores/abc/logo.png" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestTokenSourceCachesUntilExpiry(t *testing.T) {
	t.Parallel()

	calls := 0
	ts := &tokenSource{
		fetch: func(ctx context.Context) (string, time.Time, error) {
			calls++
			return "token-1", time.Now().Add(time.Hour), nil
		},
	}

	for i := 0; i < 3; i++ {
		token, err := ts.Token(context.Background())
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		if token != "token-1" {
			t.Fatalf("unexpected token %q", token)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", calls)
	}
}

func TestTokenSourceRefreshesNearExpiry(t *testing.T) {
	t.Parallel()

	calls := 0
	ts := &tokenSource{
		fetch: func(ctx context.Context) (string, time.Time, error) {
			calls++
			return "token", time.Now().Add(30 * time.Second), nil
		},
	}

	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("token: %v", err)
	}
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("token: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected refresh near expiry, got %d fetches", calls)
	}
}

func TestTokenSourcePropagatesError(t *testing.T) {
	t.Parallel()

	ts := &tokenSource{
		fetch: func(ctx context.Context) (string, time.Time, error) {
			return "", time.Time{}, errors.New("token endpoint down")
		},
	}

	if _, err := ts.Token(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestUploadObjectRequiresKey(t *testing.T) {
	t.Parallel()

	client := &Client{defaultBucket: "bucket", tokenSource: &tokenSource{
		fetch: func(ctx context.Context) (string, time.Time, error) {
			return "token", time.Now().Add(time.Hour), nil
		},
	}}

	if _, err := client.UploadObject(context.Background(), "  ", "image/png", nil); err == nil {
		t.Fatal("expected error for blank object key")
	}
}
