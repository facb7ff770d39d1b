package pagination

import (
	"errors"
	"net/url"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	params, err := Parse(url.Values{}, Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.Page != 1 || params.PageSize != DefaultPageSize {
		t.Fatalf("unexpected defaults %#v", params)
	}
	if params.Offset() != 0 {
		t.Fatalf("expected offset 0, got %d", params.Offset())
	}
}

func TestParsePageBelowOneIsFirstPage(t *testing.T) {
	for _, raw := range []string{"0", "-3", "1"} {
		params, err := Parse(url.Values{"page": {raw}}, Options{})
		if err != nil {
			t.Fatalf("page %s: %v", raw, err)
		}
		if params.Page != 1 {
			t.Fatalf("page %s: expected 1, got %d", raw, params.Page)
		}
	}
}

func TestParsePageSize(t *testing.T) {
	opts := Options{DefaultPageSize: 25, MaxPageSize: 40}

	params, err := Parse(url.Values{"pageSize": {"30"}, "page": {"3"}}, opts)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != 30 || params.Offset() != 60 {
		t.Fatalf("unexpected params %#v offset %d", params, params.Offset())
	}

	params, err = Parse(url.Values{"pageSize": {"400"}}, opts)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != opts.MaxPageSize {
		t.Fatalf("expected page size clamped to %d got %d", opts.MaxPageSize, params.PageSize)
	}
}

func TestParseFixedPageSizeIgnoresQuery(t *testing.T) {
	params, err := Parse(url.Values{"pageSize": {"50"}, "page": {"2"}}, Options{FixedPageSize: 10})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != 10 || params.Page != 2 {
		t.Fatalf("unexpected params %#v", params)
	}
}

func TestParseInvalidValues(t *testing.T) {
	if _, err := Parse(url.Values{"page": {"two"}}, Options{}); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
	if _, err := Parse(url.Values{"pageSize": {"abc"}}, Options{}); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}
	if _, err := Parse(url.Values{"pageSize": {"0"}}, Options{}); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize for zero, got %v", err)
	}
}
