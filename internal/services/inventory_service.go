package services

import (
	"database/sql"
	"errors"

	"homeessence/internal/domain"
	"homeessence/internal/metrics"
	"homeessence/internal/repos"
)

const (
	StatusInStock    = "IN_STOCK"
	StatusLowStock   = "LOW_STOCK"
	StatusOutOfStock = "OUT_OF_STOCK"
)

type InventoryService struct {
	Inv       *repos.InventoryRepo
	Threshold int
}

func NewInventoryService(inv *repos.InventoryRepo, threshold int) *InventoryService {
	return &InventoryService{Inv: inv, Threshold: threshold}
}

// Status converts stock to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *InventoryService) Status(stock int) string {
	switch {
	case stock <= 0:
		return StatusOutOfStock
	case stock <= s.Threshold:
		return StatusLowStock
	}
	return StatusInStock
}

// Adjust applies a signed delta and returns the new stock. A delta that
// would take stock below zero fails with a StockError.
func (s *InventoryService) Adjust(code string, delta int) (int, error) {
	if delta == 0 {
		return 0, invalid("delta", "adjustment must not be zero")
	}
	stock, err := s.Inv.Adjust(code, delta)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, ErrNotFound
	case errors.Is(err, repos.ErrInsufficientStock):
		return 0, &StockError{Code: code, Requested: -delta, Available: stock}
	case err != nil:
		return 0, err
	}
	dir := "in"
	if delta < 0 {
		dir = "out"
	}
	metrics.StockAdjustments.WithLabelValues(dir).Inc()
	return stock, nil
}

func (s *InventoryService) LowStock() ([]domain.Product, error) {
	return s.Inv.LowStock(s.Threshold)
}

func (s *InventoryService) Summary() (domain.InventorySummary, error) {
	sum, err := s.Inv.Summary()
	sum.CostValue = sum.CostValue.Round(2)
	sum.RetailValue = sum.RetailValue.Round(2)
	return sum, err
}
