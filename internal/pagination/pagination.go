// Package pagination splits ordered result sets into numbered pages. A
// short final page can be folded into the previous one through Orphans.
package pagination

import (
	"strconv"
	"strings"
)

// Default page sizes for forum listings.
const (
	ThreadsPerPage = 50
	PostsPerPage   = 20
	PostOrphans    = 5
)

// Paginator describes a result set of Count rows.
type Paginator struct {
	Count   int
	PerPage int
	Orphans int
}

// Page is a resolved window into the result set.
type Page struct {
	Number      int  `json:"number"`
	NumPages    int  `json:"num_pages"`
	Count       int  `json:"count"`
	Offset      int  `json:"-"`
	Limit       int  `json:"-"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
	IsLast      bool `json:"is_last"`
}

// NumPages is never less than one, so an empty set still has a first page.
func (p Paginator) NumPages() int {
	if p.Count == 0 || p.PerPage <= 0 {
		return 1
	}
	hits := p.Count - p.Orphans
	if hits < 1 {
		hits = 1
	}
	return (hits + p.PerPage - 1) / p.PerPage
}

// Page returns page n, clamped into [1, NumPages].
func (p Paginator) Page(n int) Page {
	pages := p.NumPages()
	if n < 1 {
		n = 1
	}
	if n > pages {
		n = pages
	}
	perPage := p.PerPage
	if perPage <= 0 {
		perPage = p.Count
	}
	bottom := (n - 1) * perPage
	top := bottom + perPage
	if top+p.Orphans >= p.Count {
		top = p.Count
	}
	if top < bottom {
		top = bottom
	}
	return Page{
		Number:      n,
		NumPages:    pages,
		Count:       p.Count,
		Offset:      bottom,
		Limit:       top - bottom,
		HasNext:     n < pages,
		HasPrevious: n > 1,
		IsLast:      n == pages,
	}
}

// GetPage resolves a raw page query value. "last" and any number out of
// range select the final page; anything unparsable selects the first.
func (p Paginator) GetPage(raw string) Page {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "last") {
		return p.Page(p.NumPages())
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return p.Page(1)
	}
	if n < 1 {
		n = p.NumPages()
	}
	return p.Page(n)
}

// PageOf reports which page holds the zero-based index.
func (p Paginator) PageOf(index int) int {
	if p.PerPage <= 0 || index < 0 {
		return 1
	}
	n := index/p.PerPage + 1
	if pages := p.NumPages(); n > pages {
		n = pages
	}
	return n
}
