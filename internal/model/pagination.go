package model

import (
	"errors"
	"slices"
)

// Pagination defaults and bounds.
const (
	DefaultPage      = 1
	MaxPage          = 1_000_000
	DefaultLimit     = 10
	MaxLimit         = 100
	DefaultSortBy    = "created_at"
	SortOrderAsc     = "asc"
	SortOrderDesc    = "desc"
	DefaultSortOrder = SortOrderDesc
)

// ErrInvalidSort is returned when sort_by is not in a resource's whitelist.
var ErrInvalidSort = errors.New("invalid sort field")

// ListParams holds page-based list options shared by every collection route.
type ListParams struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// DefaultListParams returns the defaults used when no query params are sent.
func DefaultListParams() ListParams {
	return ListParams{
		Page:      DefaultPage,
		Limit:     DefaultLimit,
		SortBy:    DefaultSortBy,
		SortOrder: DefaultSortOrder,
	}
}

// Offset returns the number of rows to skip.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Descending reports whether results are ordered descending.
func (p ListParams) Descending() bool {
	return p.SortOrder != SortOrderAsc
}

// CheckSort validates SortBy against the allowed fields.
func (p ListParams) CheckSort(allowed []string) error {
	if !slices.Contains(allowed, p.SortBy) {
		return ErrInvalidSort
	}
	return nil
}

// Pagination describes the page returned with a list response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes page metadata. TotalPages is ceil(total/limit).
func NewPagination(params ListParams, total int) Pagination {
	totalPages := 0
	if params.Limit > 0 {
		totalPages = (total + params.Limit - 1) / params.Limit
	}
	return Pagination{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
