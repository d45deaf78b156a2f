package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

type Product struct {
	Code      string          `db:"code" json:"code"`
	Name      string          `db:"name" json:"name"`
	Category  string          `db:"category" json:"category"`
	Cost      decimal.Decimal `db:"cost" json:"cost"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Stock     int             `db:"stock" json:"stock"`
	UpdatedAt string          `db:"updated_at" json:"updated_at,omitempty"`
}

// MarginPct is the markup over cost, (price-cost)/cost*100, rounded to two places.
func (p Product) MarginPct() decimal.Decimal {
	if !p.Cost.IsPositive() {
		return decimal.Zero
	}
	return p.Price.Sub(p.Cost).Div(p.Cost).Mul(hundred).Round(2)
}

func (p Product) CostValue() decimal.Decimal   { return p.Cost.Mul(decimal.NewFromInt(int64(p.Stock))) }
func (p Product) RetailValue() decimal.Decimal { return p.Price.Mul(decimal.NewFromInt(int64(p.Stock))) }

// InventorySummary aggregates stock across the whole catalog.
type InventorySummary struct {
	Products    int             `db:"products" json:"products"`
	Units       int             `db:"units" json:"units"`
	CostValue   decimal.Decimal `db:"cost_value" json:"cost_value"`
	RetailValue decimal.Decimal `db:"retail_value" json:"retail_value"`
}

func (s InventorySummary) PotentialProfit() decimal.Decimal { return s.RetailValue.Sub(s.CostValue) }
