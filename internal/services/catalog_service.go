package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/repositories"
)

const defaultCatalogPageSize = 12

var (
	// ErrCatalogInvalidInput indicates a malformed product payload.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the product does not exist or is unpublished.
	ErrCatalogNotFound = errors.New("catalog: product not found")
	// ErrCatalogPersistence wraps store failures.
	ErrCatalogPersistence = errors.New("catalog: persistence failure")
)

// CatalogServiceDeps wires the catalog service.
type CatalogServiceDeps struct {
	Products    repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      Logger
}

type catalogService struct {
	products repositories.ProductRepository
	now      func() time.Time
	newID    func() string
	logger   Logger
}

// NewCatalogService validates deps.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return "prd_" + strings.ToLower(ulid.Make().String()) }
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	return &catalogService{
		products: deps.Products,
		now:      func() time.Time { return clock().UTC() },
		newID:    newID,
		logger:   logger,
	}, nil
}

// ListProducts returns published products, newest first.
func (s *catalogService) ListProducts(ctx context.Context, query ProductListQuery) (domain.OffsetPage[domain.Product], error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = defaultCatalogPageSize
	}
	result, err := s.products.List(ctx, repositories.ProductListFilter{
		Category:      strings.TrimSpace(query.Category),
		PublishedOnly: true,
		Page:          page,
		PageSize:      size,
	})
	if err != nil {
		return domain.OffsetPage[domain.Product]{}, fmt.Errorf("%w: %v", ErrCatalogPersistence, err)
	}
	return result, nil
}

// GetProduct hides unpublished products.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, ErrCatalogInvalidInput
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Product{}, ErrCatalogNotFound
		}
		return domain.Product{}, fmt.Errorf("%w: %v", ErrCatalogPersistence, err)
	}
	if !product.Published {
		return domain.Product{}, ErrCatalogNotFound
	}
	return product, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return domain.Product{}, err
	}
	now := s.now()
	product := applyProductInput(domain.Product{ID: s.newID(), CreatedAt: now}, input)
	product.UpdatedAt = now
	product.Normalize()

	if err := s.products.Save(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("%w: %v", ErrCatalogPersistence, err)
	}
	s.logger(ctx, "catalog.product.created", map[string]any{"productId": product.ID, "sku": product.SKU})
	return product, nil
}

// UpdateProduct replaces the writable fields. Stock written here is the admin's count;
// checkout only ever decrements it.
func (s *catalogService) UpdateProduct(ctx context.Context, productID string, input ProductInput) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, ErrCatalogInvalidInput
	}
	if err := validateProductInput(input); err != nil {
		return domain.Product{}, err
	}
	existing, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Product{}, ErrCatalogNotFound
		}
		return domain.Product{}, fmt.Errorf("%w: %v", ErrCatalogPersistence, err)
	}

	product := applyProductInput(existing, input)
	if strings.TrimSpace(input.Slug) == "" && product.Name != existing.Name {
		product.Slug = ""
	}
	product.UpdatedAt = s.now()
	product.Normalize()

	if err := s.products.Save(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("%w: %v", ErrCatalogPersistence, err)
	}
	s.logger(ctx, "catalog.product.updated", map[string]any{"productId": product.ID})
	return product, nil
}

func validateProductInput(input ProductInput) error {
	switch {
	case strings.TrimSpace(input.Name) == "":
		return fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	case input.OriginalPrice <= 0:
		return fmt.Errorf("%w: original price must be positive", ErrCatalogInvalidInput)
	case input.StockQuantity < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrCatalogInvalidInput)
	case input.SalePrice != nil && (*input.SalePrice < 0 || *input.SalePrice > input.OriginalPrice):
		return fmt.Errorf("%w: sale price must be between 0 and the original price", ErrCatalogInvalidInput)
	}
	return nil
}

func applyProductInput(p domain.Product, input ProductInput) domain.Product {
	p.Name = input.Name
	p.SKU = input.SKU
	p.Brand = strings.TrimSpace(input.Brand)
	p.Description = strings.TrimSpace(input.Description)
	p.Images = append([]string(nil), input.Images...)
	p.OriginalPrice = input.OriginalPrice
	p.SalePrice = nil
	if input.SalePrice != nil {
		sale := *input.SalePrice
		p.SalePrice = &sale
	}
	p.OnSale = input.OnSale
	p.StockQuantity = input.StockQuantity
	p.Category = strings.TrimSpace(input.Category)
	p.Badge = strings.TrimSpace(input.Badge)
	if slug := strings.TrimSpace(input.Slug); slug != "" {
		p.Slug = domain.Slugify(slug)
	}
	p.Published = input.Published
	return p
}
