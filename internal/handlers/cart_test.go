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

func cartRouter(h *CartHandlers) chi.Router {
	router := chi.NewRouter()
	router.Route("/cart", h.Routes)
	return router
}

func TestCartHandlersGetCart(t *testing.T) {
	carts := &stubCartService{
		getFn: func(_ context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{
				UserID:     userID,
				Items:      []domain.CartItem{{ProductID: "p1", Name: "Puzzle", Price: 1000, Quantity: 2}},
				TotalPrice: 2000,
			}, nil
		},
	}
	router := cartRouter(NewCartHandlers(nil, carts))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/cart", nil), "user-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if cc := rr.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("expected no-store cache header, got %q", cc)
	}
	body := decodeBodyMap(t, rr)
	if body["userId"] != "user-1" || body["totalPrice"] != float64(2000) || body["itemsCount"] != float64(1) {
		t.Fatalf("unexpected cart body %#v", body)
	}
}

func TestCartHandlersRequireIdentity(t *testing.T) {
	router := cartRouter(NewCartHandlers(nil, &stubCartService{}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assertErrorCode(t, rr, http.StatusUnauthorized, "unauthenticated")
}

func TestCartHandlersAddItem(t *testing.T) {
	var captured services.AddCartItemCommand
	carts := &stubCartService{
		addFn: func(_ context.Context, cmd services.AddCartItemCommand) (domain.Cart, error) {
			captured = cmd
			return domain.Cart{UserID: cmd.UserID}, nil
		},
	}
	router := cartRouter(NewCartHandlers(nil, carts))

	req := httptest.NewRequest(http.MethodPost, "/cart", strings.NewReader(`{"productId":" p1 ","quantity":3}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(req, "user-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured != (services.AddCartItemCommand{UserID: "user-1", ProductID: "p1", Quantity: 3}) {
		t.Fatalf("unexpected command %#v", captured)
	}
}

func TestCartHandlersMapErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"stock", fmt.Errorf("%w: only 2 left", services.ErrCartInsufficientStock), http.StatusBadRequest, "insufficient_stock"},
		{"product", services.ErrCartProductNotFound, http.StatusNotFound, "product_not_found"},
		{"invalid", fmt.Errorf("%w: quantity", services.ErrCartInvalidInput), http.StatusBadRequest, "invalid_request"},
		{"store", fmt.Errorf("%w: down", services.ErrCartPersistence), http.StatusInternalServerError, "cart_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			carts := &stubCartService{
				addFn: func(context.Context, services.AddCartItemCommand) (domain.Cart, error) {
					return domain.Cart{}, tc.err
				},
			}
			router := cartRouter(NewCartHandlers(nil, carts))
			req := httptest.NewRequest(http.MethodPost, "/cart", strings.NewReader(`{"productId":"p1","quantity":1}`))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, asUser(req, "user-1"))
			assertErrorCode(t, rr, tc.status, tc.code)
		})
	}
}

func TestCartHandlersRemoveItem(t *testing.T) {
	var removed string
	carts := &stubCartService{
		removeFn: func(_ context.Context, userID, productID string) (domain.Cart, error) {
			if productID == "missing" {
				return domain.Cart{}, services.ErrCartItemNotFound
			}
			removed = productID
			return domain.Cart{UserID: userID}, nil
		},
	}
	router := cartRouter(NewCartHandlers(nil, carts))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodDelete, "/cart/p1", nil), "user-1"))
	if rr.Code != http.StatusOK || removed != "p1" {
		t.Fatalf("expected removal of p1, got %d %q", rr.Code, removed)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodDelete, "/cart/missing", nil), "user-1"))
	assertErrorCode(t, rr, http.StatusNotFound, "cart_item_not_found")
}

func TestCartHandlersBearerToken(t *testing.T) {
	var seen string
	carts := &stubCartService{
		getFn: func(_ context.Context, userID string) (domain.Cart, error) {
			seen = userID
			return domain.Cart{UserID: userID}, nil
		},
	}
	router := cartRouter(NewCartHandlers(testAuthenticator(), carts))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer customer-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || seen != "user-1" {
		t.Fatalf("expected cart for user-1, got %d %q", rr.Code, seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", rr.Code)
	}
}
