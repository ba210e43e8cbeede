package shared

import (
	"math"
	"net/url"
	"strconv"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// PageParams carries list paging input.
type PageParams struct {
	Page    int
	PerPage int
}

// Offset returns the SQL offset for the page.
func (p PageParams) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the clamped page size.
func (p PageParams) Limit() int {
	switch {
	case p.PerPage <= 0:
		return 20
	case p.PerPage > 200:
		return 200
	default:
		return p.PerPage
	}
}

// PageParamsFromQuery reads page and per_page query values.
func PageParamsFromQuery(q url.Values) PageParams {
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if page < 1 {
		page = 1
	}
	return PageParams{Page: page, PerPage: perPage}
}
