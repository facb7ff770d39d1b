// Package pagination parses offset paging parameters from query strings.
package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is used when the caller omits pageSize.
	DefaultPageSize = 12
	// DefaultMaxPageSize caps pageSize.
	DefaultMaxPageSize = 100
)

// Params is a 1-based page and its size.
type Params struct {
	Page     int
	PageSize int
}

// Offset is the number of items before the page.
func (p Params) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Options control Parse for one handler.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	// FixedPageSize ignores the pageSize parameter when positive.
	FixedPageSize int
}

var (
	ErrInvalidPage     = errors.New("pagination: invalid page")
	ErrInvalidPageSize = errors.New("pagination: invalid pageSize")
)

// FromRequest parses the request query.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse reads page and pageSize. A page below 1 is treated as 1; non-numeric values fail.
func Parse(values url.Values, opts Options) (Params, error) {
	page := 1
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: %q", ErrInvalidPage, raw)
		}
		if n > 1 {
			page = n
		}
	}

	if opts.FixedPageSize > 0 {
		return Params{Page: page, PageSize: opts.FixedPageSize}, nil
	}

	size := opts.DefaultPageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	limit := opts.MaxPageSize
	if limit <= 0 {
		limit = DefaultMaxPageSize
	}
	if raw := strings.TrimSpace(values.Get("pageSize")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Params{}, fmt.Errorf("%w: %q", ErrInvalidPageSize, raw)
		}
		size = n
	}
	if size > limit {
		size = limit
	}
	return Params{Page: page, PageSize: size}, nil
}
