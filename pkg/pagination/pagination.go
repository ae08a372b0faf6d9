package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any paginated query can request.
	MaxLimit = 100
)

// Params holds page-based pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Normalize enforces the default page and the configured limit bounds.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Meta describes a page of results alongside collection totals.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
}

// NewMeta derives page metadata from normalized params and a total row count.
func NewMeta(p Params, totalCount int64) Meta {
	n := p.Normalize()
	pages := int((totalCount + int64(n.Limit) - 1) / int64(n.Limit))
	return Meta{
		Page:       n.Page,
		Limit:      n.Limit,
		TotalCount: totalCount,
		TotalPages: pages,
	}
}
