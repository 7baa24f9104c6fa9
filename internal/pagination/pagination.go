// Package pagination holds the page/limit parameters of list endpoints and
// the metadata returned alongside a page.
package pagination

import (
	"math"
	"strconv"
)

const (
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
	// DefaultLimit is the number of items per page if not specified.
	DefaultLimit = 10
	// MaxLimit bounds the page size.
	MaxLimit = 100
)

// Params holds a normalized page and limit.
type Params struct {
	Page  int
	Limit int
}

// New normalizes page and limit: non-positive values fall back to the
// defaults, limit is capped at MaxLimit and page is capped so Offset never
// overflows.
func New(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return Params{Page: page, Limit: limit}
}

// Parse builds Params from raw query string values.  Unparseable values
// are treated as absent.
func Parse(page, limit string) Params {
	p, _ := strconv.Atoi(page)
	l, _ := strconv.Atoi(limit)
	return New(p, l)
}

// Offset returns the SQL OFFSET for the page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Meta is the pagination metadata included in list responses.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// NewMeta computes TotalPages as ceil(total/limit).
func NewMeta(p Params, total int) Meta {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return Meta{Page: p.Page, Limit: p.Limit, TotalItems: total, TotalPages: totalPages}
}
