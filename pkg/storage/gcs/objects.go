package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ObjectStore is the surface the media service depends on.
type ObjectStore interface {
	UploadObject(ctx context.Context, objectKey, contentType string, body io.Reader) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
	PublicURL(objectKey string) string
}

// UploadObject streams body into the default bucket under objectKey and
// returns the public URL of the stored object.
func (c *Client) UploadObject(ctx context.Context, objectKey, contentType string, body io.Reader) (string, error) {
	if c == nil || c.tokenSource == nil {
		return "", errors.New("gcs client not initialized")
	}
	if strings.TrimSpace(objectKey) == "" {
		return "", errors.New("object key is required")
	}

	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf(
		"https://storage.googleapis.com/upload/storage/v1/b/%s/o?uploadType=media&name=%s",
		url.PathEscape(c.defaultBucket),
		url.QueryEscape(objectKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(b) > 0 {
			return "", fmt.Errorf("gcs upload failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
		}
		return "", fmt.Errorf("gcs upload failed: %s", resp.Status)
	}

	return c.PublicURL(objectKey), nil
}

// DeleteObject removes objectKey from the default bucket. A missing object is
// not an error so deletes stay idempotent.
func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	if strings.TrimSpace(objectKey) == "" {
		return errors.New("object key is required")
	}

	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf(
		"https://storage.googleapis.com/storage/v1/b/%s/o/%s",
		url.PathEscape(c.defaultBucket),
		url.PathEscape(objectKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(b) > 0 {
			return fmt.Errorf("gcs delete failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
		}
		return fmt.Errorf("gcs delete failed: %s", resp.Status)
	}

	return nil
}

// PublicURL builds the public address for an object in the default bucket.
func (c *Client) PublicURL(objectKey string) string {
	base := c.publicBaseURL
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	return fmt.Sprintf("%s/%s/%s", base, c.defaultBucket, objectKey)
}
