package pagination

import (
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Page  int
	Limit int
}

type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// Parse reads page/limit query values. Missing, unparsable or
// non-positive values fall back to the defaults.
func Parse(page, limit string) Params {
	p := Params{Page: DefaultPage, Limit: DefaultLimit}
	if n, err := strconv.Atoi(page); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(limit); err == nil && n > 0 {
		p.Limit = n
	}
	return p.normalize()
}

func (p Params) normalize() Params {
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Params) Offset() int {
	p = p.normalize()
	return (p.Page - 1) * p.Limit
}

func (p Params) Size() int {
	return p.normalize().Limit
}

func NewMeta(total int64, p Params) Meta {
	p = p.normalize()
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Meta{Total: total, Page: p.Page, Limit: p.Limit, TotalPages: pages}
}
