package domain

// ComputeCartTotal sums price times quantity over the supplied lines.
func ComputeCartTotal(items []CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// AddItem merges the line into the cart. An existing line for the same product keeps its
// captured price and gains the quantity.
func (c *Cart) AddItem(item CartItem) {
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			c.TotalPrice = ComputeCartTotal(c.Items)
			return
		}
	}
	c.Items = append(c.Items, item)
	c.TotalPrice = ComputeCartTotal(c.Items)
}

// RemoveItem drops every line for the product and reports whether anything changed.
func (c *Cart) RemoveItem(productID string) bool {
	kept := make([]CartItem, 0, len(c.Items))
	removed := false
	for _, item := range c.Items {
		if item.ProductID == productID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	c.Items = kept
	c.TotalPrice = ComputeCartTotal(c.Items)
	return removed
}

// QuantityOf returns the quantity already held for the product.
func (c Cart) QuantityOf(productID string) int {
	qty := 0
	for _, item := range c.Items {
		if item.ProductID == productID {
			qty += item.Quantity
		}
	}
	return qty
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool {
	return len(c.Items) == 0
}
