package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/platform/auth"
	"github.com/techmall/storefront-api/internal/services"
)

type stubCatalogService struct {
	listFn   func(context.Context, services.ProductListQuery) (domain.OffsetPage[domain.Product], error)
	getFn    func(context.Context, string) (domain.Product, error)
	createFn func(context.Context, services.ProductInput) (domain.Product, error)
	updateFn func(context.Context, string, services.ProductInput) (domain.Product, error)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, query services.ProductListQuery) (domain.OffsetPage[domain.Product], error) {
	if s.listFn != nil {
		return s.listFn(ctx, query)
	}
	return domain.OffsetPage[domain.Product]{}, nil
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return domain.Product{}, errors.New("not implemented")
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, input services.ProductInput) (domain.Product, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return domain.Product{}, errors.New("not implemented")
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, id string, input services.ProductInput) (domain.Product, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, input)
	}
	return domain.Product{}, errors.New("not implemented")
}

type stubCartService struct {
	getFn    func(context.Context, string) (domain.Cart, error)
	addFn    func(context.Context, services.AddCartItemCommand) (domain.Cart, error)
	removeFn func(context.Context, string, string) (domain.Cart, error)
}

func (s *stubCartService) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID)
	}
	return domain.Cart{UserID: userID}, nil
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.AddCartItemCommand) (domain.Cart, error) {
	if s.addFn != nil {
		return s.addFn(ctx, cmd)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID string) (domain.Cart, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, userID, productID)
	}
	return domain.Cart{}, errors.New("not implemented")
}

type stubCheckoutService struct {
	placeFn func(context.Context, services.PlaceOrderCommand) (domain.Order, error)
}

func (s *stubCheckoutService) PlaceOrder(ctx context.Context, cmd services.PlaceOrderCommand) (domain.Order, error) {
	if s.placeFn != nil {
		return s.placeFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

type stubOrderService struct {
	getFn     func(context.Context, string, services.Requester) (domain.Order, error)
	listOwnFn func(context.Context, string) ([]domain.Order, error)
	listAllFn func(context.Context, services.AdminOrderFilter) (services.OrderPage, error)
	updateFn  func(context.Context, services.UpdateOrderStatusCommand) (domain.Order, error)
}

func (s *stubOrderService) GetOrder(ctx context.Context, id string, requester services.Requester) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id, requester)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ListOwnOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if s.listOwnFn != nil {
		return s.listOwnFn(ctx, userID)
	}
	return nil, nil
}

func (s *stubOrderService) ListAllOrders(ctx context.Context, filter services.AdminOrderFilter) (services.OrderPage, error) {
	if s.listAllFn != nil {
		return s.listAllFn(ctx, filter)
	}
	return services.OrderPage{}, nil
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, cmd services.UpdateOrderStatusCommand) (domain.Order, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

type stubStatsService struct {
	stats domain.OrderStats
	err   error
}

func (s *stubStatsService) ComputeStats(context.Context) (domain.OrderStats, error) {
	return s.stats, s.err
}

type stubWishlistService struct {
	getFn      func(context.Context, string) (services.WishlistView, error)
	addFn      func(context.Context, string, string) (services.WishlistView, error)
	removeFn   func(context.Context, string, string) (services.WishlistView, error)
	containsFn func(context.Context, string, string) (bool, error)
}

func (s *stubWishlistService) GetWishlist(ctx context.Context, userID string) (services.WishlistView, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID)
	}
	return services.WishlistView{UserID: userID}, nil
}

func (s *stubWishlistService) AddItem(ctx context.Context, userID, productID string) (services.WishlistView, error) {
	if s.addFn != nil {
		return s.addFn(ctx, userID, productID)
	}
	return services.WishlistView{}, errors.New("not implemented")
}

func (s *stubWishlistService) RemoveItem(ctx context.Context, userID, productID string) (services.WishlistView, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, userID, productID)
	}
	return services.WishlistView{}, errors.New("not implemented")
}

func (s *stubWishlistService) Contains(ctx context.Context, userID, productID string) (bool, error) {
	if s.containsFn != nil {
		return s.containsFn(ctx, userID, productID)
	}
	return false, nil
}

// tokenVerifier maps bearer tokens to decoded tokens.
type tokenVerifier map[string]*firebaseauth.Token

func (v tokenVerifier) VerifyIDToken(_ context.Context, raw string) (*firebaseauth.Token, error) {
	if token, ok := v[raw]; ok {
		return token, nil
	}
	return nil, auth.ErrTokenInvalid
}

func testAuthenticator() *auth.Authenticator {
	return auth.NewAuthenticator(tokenVerifier{
		"customer-token": {UID: "user-1", Claims: map[string]any{"email": "ali@example.com", "name": "Ali"}},
		"admin-token":    {UID: "admin-1", Claims: map[string]any{"role": "admin"}},
	})
}

func asUser(req *http.Request, uid string, roles ...string) *http.Request {
	identity := &auth.Identity{UID: uid, Name: "Ali Raza", Email: uid + "@example.com", Roles: roles}
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

func decodeBodyMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response %q: %v", rr.Body.String(), err)
	}
	return body
}

func assertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	if got := decodeBodyMap(t, rr)["error"]; got != code {
		t.Fatalf("expected error %q, got %v", code, got)
	}
}
