package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/services"
)

func productRouter(h *ProductHandlers) chi.Router {
	router := chi.NewRouter()
	router.Route("/products", h.Routes)
	return router
}

func TestProductHandlersListPassesFilters(t *testing.T) {
	sale := int64(800)
	var captured services.ProductListQuery
	catalog := &stubCatalogService{
		listFn: func(_ context.Context, query services.ProductListQuery) (domain.OffsetPage[domain.Product], error) {
			captured = query
			return domain.OffsetPage[domain.Product]{
				Items: []domain.Product{{
					ID: "prd_1", Name: "Wooden Puzzle", OriginalPrice: 1000, SalePrice: &sale, OnSale: true,
					StockQuantity: 3, Slug: "wooden-puzzle", Published: true,
				}},
				Page:  2,
				Pages: 3,
				Total: 25,
			}, nil
		},
	}
	router := productRouter(NewProductHandlers(nil, catalog))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products?category=puzzles&page=2", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Category != "puzzles" || captured.Page != 2 || captured.PageSize != 12 {
		t.Fatalf("unexpected query %#v", captured)
	}

	body := decodeBodyMap(t, rr)
	if body["total"] != float64(25) || body["pages"] != float64(3) {
		t.Fatalf("unexpected paging %#v", body)
	}
	product := body["products"].([]any)[0].(map[string]any)
	if product["price"] != float64(800) || product["status"] != domain.ProductStatusLowStock {
		t.Fatalf("unexpected product payload %#v", product)
	}
}

func TestProductHandlersCategoryPath(t *testing.T) {
	var captured services.ProductListQuery
	catalog := &stubCatalogService{
		listFn: func(_ context.Context, query services.ProductListQuery) (domain.OffsetPage[domain.Product], error) {
			captured = query
			return domain.OffsetPage[domain.Product]{}, nil
		},
	}
	router := productRouter(NewProductHandlers(nil, catalog))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/category/educational", nil))
	if rr.Code != http.StatusOK || captured.Category != "educational" {
		t.Fatalf("expected category educational, got %d %#v", rr.Code, captured)
	}
}

func TestProductHandlersRejectsBadPage(t *testing.T) {
	router := productRouter(NewProductHandlers(nil, &stubCatalogService{}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products?page=two", nil))
	assertErrorCode(t, rr, http.StatusBadRequest, "invalid_request")
}

func TestProductHandlersGetNotFound(t *testing.T) {
	catalog := &stubCatalogService{
		getFn: func(context.Context, string) (domain.Product, error) {
			return domain.Product{}, services.ErrCatalogNotFound
		},
	}
	router := productRouter(NewProductHandlers(nil, catalog))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/prd_missing", nil))
	assertErrorCode(t, rr, http.StatusNotFound, "product_not_found")
}

func TestProductHandlersCreateRequiresAdmin(t *testing.T) {
	var created services.ProductInput
	catalog := &stubCatalogService{
		createFn: func(_ context.Context, input services.ProductInput) (domain.Product, error) {
			created = input
			return domain.Product{ID: "prd_new", Name: input.Name, OriginalPrice: input.OriginalPrice, Published: input.Published}, nil
		},
	}
	router := productRouter(NewProductHandlers(testAuthenticator(), catalog))
	payload := `{"name":" Story Book ","originalPrice":1500,"stockQuantity":4,"images":["a.jpg"," "]}`

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(payload)))
	assertErrorCode(t, rr, http.StatusUnauthorized, "unauthenticated")

	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer customer-token")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assertErrorCode(t, rr, http.StatusForbidden, "insufficient_role")

	req = httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer admin-token")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if created.Name != "Story Book" || !created.Published || len(created.Images) != 1 {
		t.Fatalf("unexpected input %#v", created)
	}
	if loc := rr.Header().Get("Location"); loc != "/api/products/prd_new" {
		t.Fatalf("unexpected location %q", loc)
	}

	// Public reads stay open.
	catalog.getFn = func(context.Context, string) (domain.Product, error) {
		return domain.Product{ID: "prd_new"}, nil
	}
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/prd_new", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected public read, got %d", rr.Code)
	}
}

func TestProductHandlersUpdateMapsErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: name is required", services.ErrCatalogInvalidInput), http.StatusBadRequest, "invalid_request"},
		{services.ErrCatalogNotFound, http.StatusNotFound, "product_not_found"},
		{fmt.Errorf("%w: boom", services.ErrCatalogPersistence), http.StatusInternalServerError, "catalog_error"},
	}
	for _, tc := range cases {
		catalog := &stubCatalogService{
			updateFn: func(context.Context, string, services.ProductInput) (domain.Product, error) {
				return domain.Product{}, tc.err
			},
		}
		router := productRouter(NewProductHandlers(nil, catalog))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/products/prd_1", strings.NewReader(`{"name":"x"}`)))
		assertErrorCode(t, rr, tc.status, tc.code)
	}
}

func TestProductHandlersRejectsUnknownFields(t *testing.T) {
	router := productRouter(NewProductHandlers(nil, &stubCatalogService{}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"x","colour":"red"}`)))
	assertErrorCode(t, rr, http.StatusBadRequest, "invalid_request")
}
