package domain

import "github.com/shopspring/decimal"

// PaymentMethods are stored verbatim in sales.payment_method.
var PaymentMethods = []string{
	"pix",
	"cartão",
	"cartão de crédito",
	"cartão de débito",
	"dinheiro",
	"transferência",
	"boleto",
}

type Sale struct {
	ID            string          `db:"id" json:"id"`
	ClientID      string          `db:"client_id" json:"client_id"`
	ClientName    string          `db:"client_name" json:"client_name"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	Date          string          `db:"sale_date" json:"date"` // YYYY-MM-DD
	Total         decimal.Decimal `db:"total" json:"total"`
	Items         []SaleItem      `db:"-" json:"items,omitempty"`
}

type SaleItem struct {
	SaleID      string          `db:"sale_id" json:"sale_id"`
	ProductCode string          `db:"product_code" json:"product_code"`
	ProductName string          `db:"product_name" json:"product_name"`
	Category    string          `db:"category" json:"category"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal   decimal.Decimal `db:"line_total" json:"line_total"`
}

// ItemsTotal sums line totals; a stored sale always has Total == ItemsTotal().
func (s Sale) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range s.Items {
		sum = sum.Add(it.LineTotal)
	}
	return sum
}

func (s Sale) Units() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}
