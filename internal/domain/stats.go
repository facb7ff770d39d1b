package domain

// OrderStats summarises the order collection for the admin dashboard.
type OrderStats struct {
	TotalRevenue  int64
	TotalOrders   int
	PendingOrders int
	PaidOrders    int
}

// SummarizeOrders aggregates gross revenue and status counts. Revenue includes unpaid orders.
func SummarizeOrders(orders []Order) OrderStats {
	var stats OrderStats
	for _, order := range orders {
		stats.Add(order)
	}
	return stats
}

// Add folds a single order into the running totals.
func (s *OrderStats) Add(order Order) {
	s.TotalRevenue += order.TotalPrice
	s.TotalOrders++
	if order.Status == OrderStatusPending {
		s.PendingOrders++
	}
	if order.IsPaid {
		s.PaidOrders++
	}
}
