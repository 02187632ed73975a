package kitsune

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// Pagination bounds. Size is capped so a single listing cannot sweep the
// whole table.
const (
	DefaultPage     = 1
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// PageParams are the request-side pagination inputs.
type PageParams struct {
	Page int `json:"page" query:"page"`
	Size int `json:"size" query:"size"`
}

// Normalize applies defaults for unset fields.
func (p PageParams) Normalize() PageParams {
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Size == 0 {
		p.Size = DefaultPageSize
	}
	return p
}

// Validate will run validation rules
func (p PageParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Page, validation.Required, validation.Min(1)),
		validation.Field(&p.Size, validation.Required, validation.Min(1), validation.Max(MaxPageSize)),
	)
}

// Offset is the number of records skipped before this page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Size
}

// Page is one bounded slice of an ordered listing plus pagination metadata.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

// NewPage wraps already-paginated items with their metadata. The page count
// is ceil(total/size).
func NewPage[T any](items []T, total int, params PageParams) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items: items,
		Total: total,
		Page:  params.Page,
		Size:  params.Size,
		Pages: (total + params.Size - 1) / params.Size,
	}
}
