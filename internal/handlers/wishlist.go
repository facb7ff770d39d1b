package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/techmall/storefront-api/internal/platform/auth"
	"github.com/techmall/storefront-api/internal/platform/httpx"
	"github.com/techmall/storefront-api/internal/services"
)

// WishlistHandlers exposes the saved-products list of the current user.
type WishlistHandlers struct {
	authn     *auth.Authenticator
	wishlists services.WishlistService
}

func NewWishlistHandlers(authn *auth.Authenticator, wishlists services.WishlistService) *WishlistHandlers {
	return &WishlistHandlers{authn: authn, wishlists: wishlists}
}

// Routes wires the /wishlist endpoints onto the provided router.
func (h *WishlistHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.getWishlist)
	r.Post("/", h.addItem)
	r.Delete("/{productID}", h.removeItem)
	r.Get("/check/{productID}", h.checkItem)
}

type wishlistItemPayload struct {
	Product productPayload `json:"product"`
	AddedAt string         `json:"addedAt,omitempty"`
}

type wishlistResponse struct {
	Success bool                  `json:"success"`
	Count   int                   `json:"count"`
	Data    []wishlistItemPayload `json:"data"`
}

type wishlistCheckResponse struct {
	Success      bool `json:"success"`
	IsInWishlist bool `json:"isInWishlist"`
}

type addWishlistItemRequest struct {
	ProductID string `json:"productId"`
}

func (h *WishlistHandlers) getWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlists == nil {
		unavailable(ctx, w, "wishlist")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	view, err := h.wishlists.GetWishlist(ctx, identity.UID)
	if err != nil {
		writeWishlistError(ctx, w, err)
		return
	}
	writeWishlist(w, view)
}

func (h *WishlistHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlists == nil {
		unavailable(ctx, w, "wishlist")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req addWishlistItemRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}
	view, err := h.wishlists.AddItem(ctx, identity.UID, strings.TrimSpace(req.ProductID))
	if err != nil {
		writeWishlistError(ctx, w, err)
		return
	}
	writeWishlist(w, view)
}

func (h *WishlistHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlists == nil {
		unavailable(ctx, w, "wishlist")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	view, err := h.wishlists.RemoveItem(ctx, identity.UID, strings.TrimSpace(chi.URLParam(r, "productID")))
	if err != nil {
		writeWishlistError(ctx, w, err)
		return
	}
	writeWishlist(w, view)
}

func (h *WishlistHandlers) checkItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlists == nil {
		unavailable(ctx, w, "wishlist")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	saved, err := h.wishlists.Contains(ctx, identity.UID, strings.TrimSpace(chi.URLParam(r, "productID")))
	if err != nil {
		writeWishlistError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wishlistCheckResponse{Success: true, IsInWishlist: saved})
}

func writeWishlist(w http.ResponseWriter, view services.WishlistView) {
	items := make([]wishlistItemPayload, 0, len(view.Items))
	for _, entry := range view.Items {
		items = append(items, wishlistItemPayload{
			Product: buildProductPayload(entry.Product),
			AddedAt: formatTime(entry.AddedAt),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, wishlistResponse{Success: true, Count: len(items), Data: items})
}

func writeWishlistError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrWishlistInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrWishlistProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_error", "failed to process wishlist request", http.StatusInternalServerError))
	}
}
