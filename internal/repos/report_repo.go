package repos

import (
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ReportRepo holds the read-only aggregations behind the dashboard,
// analytics and P&L pages.
type ReportRepo struct{ db *sqlx.DB }

func NewReportRepo(db *sqlx.DB) *ReportRepo { return &ReportRepo{db: db} }

// Period bounds sale_date inclusively; empty ends are open.
type Period struct {
	From string
	To   string
}

func (p Period) where(col string) (string, []any) {
	w := `1=1`
	args := []any{}
	if p.From != "" {
		w += ` AND ` + col + ` >= ?`
		args = append(args, p.From)
	}
	if p.To != "" {
		w += ` AND ` + col + ` <= ?`
		args = append(args, p.To)
	}
	return w, args
}

type Totals struct {
	Sales   int             `db:"sales"`
	Revenue decimal.Decimal `db:"revenue"`
	Items   int             `db:"items"`
}

func (r *ReportRepo) Totals(p Period) (Totals, error) {
	var t Totals
	w, args := p.where("sale_date")
	if err := get(r.db, &t, `SELECT COUNT(*) AS sales, COALESCE(SUM(total),0) AS revenue FROM sales WHERE `+w, args...); err != nil {
		return t, err
	}
	w, args = p.where("s.sale_date")
	err := get(r.db, &t.Items, `
		SELECT COALESCE(SUM(i.quantity),0) FROM sale_items i JOIN sales s ON s.id = i.sale_id WHERE `+w, args...)
	return t, err
}

// GroupTotal is one bucket of a breakdown.
type GroupTotal struct {
	Label    string          `db:"label" json:"label"`
	N        int             `db:"n" json:"count"`
	Quantity int             `db:"quantity" json:"quantity"`
	Revenue  decimal.Decimal `db:"revenue" json:"revenue"`
}

func (r *ReportRepo) ByPayment(p Period) ([]GroupTotal, error) {
	w, args := p.where("sale_date")
	out := []GroupTotal{}
	err := sel(r.db, &out, `
		SELECT payment_method AS label, COUNT(*) AS n, COALESCE(SUM(total),0) AS revenue
		FROM sales WHERE `+w+`
		GROUP BY payment_method ORDER BY revenue DESC`, args...)
	return out, err
}

func (r *ReportRepo) ByCategory(p Period) ([]GroupTotal, error) {
	w, args := p.where("s.sale_date")
	out := []GroupTotal{}
	err := sel(r.db, &out, `
		SELECT i.category AS label, COUNT(DISTINCT i.sale_id) AS n,
		       COALESCE(SUM(i.quantity),0) AS quantity, COALESCE(SUM(i.line_total),0) AS revenue
		FROM sale_items i JOIN sales s ON s.id = i.sale_id
		WHERE `+w+`
		GROUP BY i.category ORDER BY revenue DESC`, args...)
	return out, err
}

type ProductSales struct {
	Code     string          `db:"code" json:"code"`
	Name     string          `db:"name" json:"name"`
	Category string          `db:"category" json:"category"`
	Quantity int             `db:"quantity" json:"quantity"`
	Revenue  decimal.Decimal `db:"revenue" json:"revenue"`
	COGS     decimal.Decimal `db:"cogs" json:"cogs"`
}

func (ps ProductSales) Profit() decimal.Decimal { return ps.Revenue.Sub(ps.COGS) }

// ProductSales ranks products by revenue. COGS uses the current product
// cost; lines of deleted products count at zero cost.
func (r *ReportRepo) ProductSales(p Period, limit int) ([]ProductSales, error) {
	w, args := p.where("s.sale_date")
	q := `
		SELECT i.product_code AS code, MAX(i.product_name) AS name, MAX(i.category) AS category,
		       COALESCE(SUM(i.quantity),0) AS quantity, COALESCE(SUM(i.line_total),0) AS revenue,
		       COALESCE(SUM(i.quantity * COALESCE(p.cost,0)),0) AS cogs
		FROM sale_items i
		JOIN sales s ON s.id = i.sale_id
		LEFT JOIN products p ON p.code = i.product_code
		WHERE ` + w + `
		GROUP BY i.product_code
		ORDER BY revenue DESC, code`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	out := []ProductSales{}
	err := sel(r.db, &out, q, args...)
	return out, err
}

type ClientStats struct {
	ClientID   string          `db:"client_id" json:"client_id"`
	ClientName string          `db:"client_name" json:"client_name"`
	Purchases  int             `db:"purchases" json:"purchases"`
	Spent      decimal.Decimal `db:"spent" json:"spent"`
	LastDate   string          `db:"last_date" json:"last_date"`
}

func (r *ReportRepo) ClientStats(p Period, limit int) ([]ClientStats, error) {
	w, args := p.where("sale_date")
	q := `
		SELECT client_id, MAX(client_name) AS client_name, COUNT(*) AS purchases,
		       COALESCE(SUM(total),0) AS spent, MAX(sale_date) AS last_date
		FROM sales WHERE ` + w + `
		GROUP BY client_id
		ORDER BY spent DESC, client_id`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	out := []ClientStats{}
	err := sel(r.db, &out, q, args...)
	return out, err
}

type MonthTotal struct {
	Month   string          `db:"month" json:"month"` // YYYY-MM
	Sales   int             `db:"sales" json:"sales"`
	Revenue decimal.Decimal `db:"revenue" json:"revenue"`
}

func (r *ReportRepo) Monthly(p Period) ([]MonthTotal, error) {
	w, args := p.where("sale_date")
	out := []MonthTotal{}
	err := sel(r.db, &out, `
		SELECT substr(sale_date,1,7) AS month, COUNT(*) AS sales, COALESCE(SUM(total),0) AS revenue
		FROM sales WHERE `+w+`
		GROUP BY substr(sale_date,1,7) ORDER BY month`, args...)
	return out, err
}

// SaleEconomics is one sale reduced to what the P&L needs.
type SaleEconomics struct {
	ID            string          `db:"id"`
	PaymentMethod string          `db:"payment_method"`
	Total         decimal.Decimal `db:"total"`
	Units         int             `db:"units"`
	COGS          decimal.Decimal `db:"cogs"`
}

func (r *ReportRepo) SaleEconomics(p Period) ([]SaleEconomics, error) {
	w, args := p.where("s.sale_date")
	out := []SaleEconomics{}
	err := sel(r.db, &out, `
		SELECT s.id, s.payment_method, s.total,
		       COALESCE(SUM(i.quantity),0) AS units,
		       COALESCE(SUM(i.quantity * COALESCE(p.cost,0)),0) AS cogs
		FROM sales s
		LEFT JOIN sale_items i ON i.sale_id = s.id
		LEFT JOIN products p ON p.code = i.product_code
		WHERE `+w+`
		GROUP BY s.id, s.payment_method, s.total
		ORDER BY s.id`, args...)
	return out, err
}

func (r *ReportRepo) Genders() ([]GroupTotal, error) {
	out := []GroupTotal{}
	err := sel(r.db, &out, `
		SELECT gender AS label, COUNT(*) AS n FROM clients
		WHERE type = 'pessoa' AND gender <> ''
		GROUP BY gender ORDER BY n DESC`)
	return out, err
}

func (r *ReportRepo) Salespeople(p Period) ([]GroupTotal, error) {
	w, args := p.where("s.sale_date")
	out := []GroupTotal{}
	err := sel(r.db, &out, `
		SELECT c.salesperson AS label, COUNT(s.id) AS n, COALESCE(SUM(s.total),0) AS revenue
		FROM sales s JOIN clients c ON c.id = s.client_id
		WHERE c.salesperson <> '' AND `+w+`
		GROUP BY c.salesperson ORDER BY revenue DESC`, args...)
	return out, err
}

// LastPurchase is the most recent purchase of one product line by one client.
type LastPurchase struct {
	ClientID    string `db:"client_id"`
	ClientName  string `db:"client_name"`
	ClientType  string `db:"client_type"`
	ProductName string `db:"product_name"`
	Category    string `db:"category"`
	LastDate    string `db:"last_date"`
}

func (r *ReportRepo) LastPurchases() ([]LastPurchase, error) {
	out := []LastPurchase{}
	err := sel(r.db, &out, `
		SELECT s.client_id, c.name AS client_name, c.type AS client_type,
		       i.product_name, i.category, MAX(s.sale_date) AS last_date
		FROM sale_items i
		JOIN sales s ON s.id = i.sale_id
		JOIN clients c ON c.id = s.client_id
		GROUP BY s.client_id, c.name, c.type, i.product_name, i.category
		ORDER BY last_date`)
	return out, err
}
