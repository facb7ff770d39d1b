package domain

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowStockThreshold is the stock level at or below which a product is flagged low-stock.
const LowStockThreshold = 5

// Product status values derived from stock and sale state.
const (
	ProductStatusOutOfStock = "out-of-stock"
	ProductStatusLowStock   = "low-stock"
	ProductStatusInSale     = "in-sale"
	ProductStatusInStock    = "in-stock"
)

// EffectivePrice is the unit price charged when the product is added to a cart.
func (p Product) EffectivePrice() int64 {
	if p.SalePrice != nil && *p.SalePrice > 0 {
		return *p.SalePrice
	}
	return p.OriginalPrice
}

// Status derives the merchandising status shown on listings.
func (p Product) Status() string {
	switch {
	case p.StockQuantity <= 0:
		return ProductStatusOutOfStock
	case p.StockQuantity <= LowStockThreshold:
		return ProductStatusLowStock
	case p.OnSale:
		return ProductStatusInSale
	default:
		return ProductStatusInStock
	}
}

// PrimaryImage returns the first image URL or an empty string.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Normalize fills derived fields: slug from name, upper-case SKU, and the discount percentage.
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.ToUpper(strings.TrimSpace(p.SKU))
	if strings.TrimSpace(p.Slug) == "" && p.Name != "" {
		p.Slug = Slugify(p.Name)
	}
	p.DiscountPercentage = 0
	if p.OnSale && p.SalePrice != nil && *p.SalePrice > 0 && p.OriginalPrice > 0 {
		ratio := float64(p.OriginalPrice-*p.SalePrice) / float64(p.OriginalPrice)
		p.DiscountPercentage = int(math.Round(ratio * 100))
	}
}

// Slugify lower-cases the input, strips accents, and joins alphanumeric runs with hyphens.
func Slugify(value string) string {
	folding := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folding, value)
	if err != nil {
		folded = value
	}
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
