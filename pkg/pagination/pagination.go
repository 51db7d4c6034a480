package pagination

import (
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 20
	// MaxPageSize caps how many rows any listing can request.
	MaxPageSize = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Meta describes the page returned by the commerce API.
type Meta struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// Normalize enforces a first page of 1 and the configured page size bounds.
func (p Params) Normalize() Params {
	return Params{
		Page:     NormalizePage(p.Page),
		PageSize: NormalizePageSize(p.PageSize),
	}
}

// NormalizePage clamps page numbers to 1-based values.
func NormalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// NormalizePageSize enforces the configured default and maximum sizes.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// FromQuery reads page and page_size query values, ignoring unparseable input.
func FromQuery(page, pageSize string) Params {
	return Params{
		Page:     atoi(page),
		PageSize: atoi(pageSize),
	}.Normalize()
}

// NewMeta fills in derived page counts.
func NewMeta(params Params, total int) Meta {
	params = params.Normalize()
	pages := 0
	if total > 0 {
		pages = (total + params.PageSize - 1) / params.PageSize
	}
	return Meta{
		Page:       params.Page,
		PageSize:   params.PageSize,
		Total:      total,
		TotalPages: pages,
		HasNext:    params.Page < pages,
	}
}

func atoi(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}
