package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/techmall/storefront-api/internal/platform/auth"
	"github.com/techmall/storefront-api/internal/platform/httpx"
	"github.com/techmall/storefront-api/internal/platform/pagination"
	"github.com/techmall/storefront-api/internal/services"
)

// ProductHandlers serves the public catalog and the admin product editor.
type ProductHandlers struct {
	authn   *auth.Authenticator
	catalog services.CatalogService
}

// NewProductHandlers constructs catalog handlers. Writes require the admin role.
func NewProductHandlers(authn *auth.Authenticator, catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{authn: authn, catalog: catalog}
}

// Routes wires the /products endpoints onto the provided router.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/category/{category}", h.listProducts)
	r.Get("/{productID}", h.getProduct)

	r.Group(func(admin chi.Router) {
		if h.authn != nil {
			admin.Use(h.authn.RequireAuth(auth.RoleAdmin))
		}
		admin.Post("/", h.createProduct)
		admin.Put("/{productID}", h.updateProduct)
	})
}

type productListResponse struct {
	Products []productPayload `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	Total    int              `json:"total"`
}

type productRequest struct {
	Name          string   `json:"name"`
	SKU           string   `json:"sku"`
	Brand         string   `json:"brand"`
	Description   string   `json:"description"`
	Images        []string `json:"images"`
	OriginalPrice int64    `json:"originalPrice"`
	SalePrice     *int64   `json:"salePrice"`
	OnSale        bool     `json:"onSale"`
	StockQuantity int      `json:"stockQuantity"`
	Category      string   `json:"category"`
	Badge         string   `json:"badge"`
	Slug          string   `json:"slug"`
	Published     *bool    `json:"published"`
}

func (req productRequest) input() services.ProductInput {
	published := true
	if req.Published != nil {
		published = *req.Published
	}
	images := make([]string, 0, len(req.Images))
	for _, image := range req.Images {
		if image = strings.TrimSpace(image); image != "" {
			images = append(images, image)
		}
	}
	return services.ProductInput{
		Name:          strings.TrimSpace(req.Name),
		SKU:           req.SKU,
		Brand:         strings.TrimSpace(req.Brand),
		Description:   req.Description,
		Images:        images,
		OriginalPrice: req.OriginalPrice,
		SalePrice:     req.SalePrice,
		OnSale:        req.OnSale,
		StockQuantity: req.StockQuantity,
		Category:      strings.TrimSpace(req.Category),
		Badge:         strings.TrimSpace(req.Badge),
		Slug:          strings.TrimSpace(req.Slug),
		Published:     published,
	}
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		unavailable(ctx, w, "catalog")
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	category := strings.TrimSpace(chi.URLParam(r, "category"))
	if category == "" {
		category = strings.TrimSpace(r.URL.Query().Get("category"))
	}

	page, err := h.catalog.ListProducts(ctx, services.ProductListQuery{
		Category: category,
		Page:     params.Page,
		PageSize: params.PageSize,
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	products := make([]productPayload, 0, len(page.Items))
	for _, product := range page.Items {
		products = append(products, buildProductPayload(product))
	}
	httpx.WriteJSON(w, http.StatusOK, productListResponse{
		Products: products,
		Page:     page.Page,
		Pages:    page.Pages,
		Total:    page.Total,
	})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		unavailable(ctx, w, "catalog")
		return
	}
	product, err := h.catalog.GetProduct(ctx, strings.TrimSpace(chi.URLParam(r, "productID")))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildProductPayload(product))
}

func (h *ProductHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		unavailable(ctx, w, "catalog")
		return
	}
	var req productRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}
	product, err := h.catalog.CreateProduct(ctx, req.input())
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.Header().Set("Location", "/api/products/"+product.ID)
	httpx.WriteJSON(w, http.StatusCreated, buildProductPayload(product))
}

func (h *ProductHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		unavailable(ctx, w, "catalog")
		return
	}
	var req productRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}
	product, err := h.catalog.UpdateProduct(ctx, strings.TrimSpace(chi.URLParam(r, "productID")), req.input())
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildProductPayload(product))
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to process catalog request", http.StatusInternalServerError))
	}
}
