package db

// Pagination carries list query bounds. Zero values fall back to the
// defaults below.
type Pagination struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return defaultPageSize
	}
	if p.PageSize > maxPageSize {
		return maxPageSize
	}
	return p.PageSize
}

func (p Pagination) Offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.Limit()
}
