package pagination

import "testing"

func TestNormalizeDefaults(t *testing.T) {
	n := Params{}.Normalize()
	if n.Page != 1 {
		t.Fatalf("expected page 1, got %d", n.Page)
	}
	if n.Limit != DefaultLimit {
		t.Fatalf("expected limit %d, got %d", DefaultLimit, n.Limit)
	}
}

func TestNormalizeCapsLimit(t *testing.T) {
	n := Params{Page: 2, Limit: 500}.Normalize()
	if n.Limit != MaxLimit {
		t.Fatalf("expected limit %d, got %d", MaxLimit, n.Limit)
	}
}

func TestOffset(t *testing.T) {
	cases := []struct {
		name   string
		params Params
		want   int
	}{
		{"first page", Params{Page: 1, Limit: 10}, 0},
		{"third page", Params{Page: 3, Limit: 10}, 20},
		{"defaults", Params{}, 0},
		{"negative page", Params{Page: -4, Limit: 20}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.params.Offset(); got != tc.want {
				t.Fatalf("expected offset %d, got %d", tc.want, got)
			}
		})
	}
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(Params{Page: 2, Limit: 10}, 25)
	if meta.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", meta.TotalPages)
	}
	if meta.TotalCount != 25 {
		t.Fatalf("expected total 25, got %d", meta.TotalCount)
	}
	if meta.Page != 2 || meta.Limit != 10 {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestNewMetaEmpty(t *testing.T) {
	meta := NewMeta(Params{}, 0)
	if meta.TotalPages != 0 {
		t.Fatalf("expected 0 pages, got %d", meta.TotalPages)
	}
}
