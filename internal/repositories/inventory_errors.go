package repositories

import (
	"errors"
	"fmt"

	domain "github.com/techmall/storefront-api/internal/domain"
)

// InventoryErrorCode enumerates repository error causes for stock operations.
type InventoryErrorCode string

const (
	// InventoryErrorUnknown represents an unspecified failure.
	InventoryErrorUnknown InventoryErrorCode = "inventory_unknown"
	// InventoryErrorInsufficientStock indicates requested quantity exceeds availability.
	InventoryErrorInsufficientStock InventoryErrorCode = "inventory_insufficient_stock"
	// InventoryErrorProductNotFound indicates the product document does not exist.
	InventoryErrorProductNotFound InventoryErrorCode = "inventory_product_not_found"
	// InventoryErrorInvalidQuantity indicates a line asked for fewer than one unit.
	InventoryErrorInvalidQuantity InventoryErrorCode = "inventory_invalid_quantity"
)

// InventoryError wraps stock failures with machine readable codes and the product involved.
type InventoryError struct {
	Op        string
	Code      InventoryErrorCode
	ProductID string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *InventoryError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *InventoryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewInventoryError constructs a typed inventory error.
func NewInventoryError(code InventoryErrorCode, productID string, message string, err error) *InventoryError {
	if message == "" {
		message = string(code)
	}
	return &InventoryError{
		Code:      code,
		ProductID: productID,
		Message:   message,
		Err:       err,
	}
}

// NewInsufficientStockError reports that productID cannot cover the requested quantity.
func NewInsufficientStockError(productID string, available, requested int) *InventoryError {
	return NewInventoryError(
		InventoryErrorInsufficientStock,
		productID,
		fmt.Sprintf("product %s has %d in stock, %d requested", productID, available, requested),
		nil,
	)
}

// CheckStockLines rejects any line whose quantity is below one before stock is touched.
func CheckStockLines(lines []domain.StockLine) error {
	for _, line := range lines {
		if line.Quantity < 1 {
			return NewInventoryError(
				InventoryErrorInvalidQuantity,
				line.ProductID,
				fmt.Sprintf("product %s: invalid quantity %d", line.ProductID, line.Quantity),
				nil,
			)
		}
	}
	return nil
}

// AsInventoryError extracts an InventoryError from the chain.
func AsInventoryError(err error) (*InventoryError, bool) {
	var invErr *InventoryError
	if errors.As(err, &invErr) && invErr != nil {
		return invErr, true
	}
	return nil, false
}
