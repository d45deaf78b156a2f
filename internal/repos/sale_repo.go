package repos

import (
	"homeessence/internal/domain"

	"github.com/jmoiron/sqlx"
)

type SaleRepo struct{ db *sqlx.DB }

func NewSaleRepo(db *sqlx.DB) *SaleRepo { return &SaleRepo{db: db} }

const saleCols = `id, client_id, client_name, payment_method, sale_date, total`

// NextID returns the next VND### id; call it inside the sale transaction.
func (r *SaleRepo) NextID(tx *sqlx.Tx) (string, error) {
	return nextID(tx, "sales", "VND")
}

// Insert writes the sale header.
func (r *SaleRepo) Insert(q sqlx.Ext, s *domain.Sale) error {
	_, err := exec(q, `
		INSERT INTO sales(id, client_id, client_name, payment_method, sale_date, total)
		VALUES(?,?,?,?,?,?)
	`, s.ID, s.ClientID, s.ClientName, s.PaymentMethod, s.Date, s.Total)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// InsertItem writes a single sale line.
func (r *SaleRepo) InsertItem(q sqlx.Ext, it domain.SaleItem) error {
	_, err := exec(q, `
		INSERT INTO sale_items(sale_id, product_code, product_name, category, quantity, unit_price, line_total)
		VALUES(?,?,?,?,?,?,?)
	`, it.SaleID, it.ProductCode, it.ProductName, it.Category, it.Quantity, it.UnitPrice, it.LineTotal)
	return err
}

func (r *SaleRepo) Get(id string) (*domain.Sale, error) {
	return r.getWith(r.db, id)
}

func (r *SaleRepo) GetTx(tx *sqlx.Tx, id string) (*domain.Sale, error) {
	return r.getWith(tx, id)
}

func (r *SaleRepo) getWith(q sqlx.Ext, id string) (*domain.Sale, error) {
	var s domain.Sale
	if err := get(q, &s, `SELECT `+saleCols+` FROM sales WHERE id = ?`, id); err != nil {
		return nil, err
	}
	items := []domain.SaleItem{}
	if err := sel(q, &items, `
		SELECT sale_id, product_code, product_name, category, quantity, unit_price, line_total
		FROM sale_items WHERE sale_id = ?
		ORDER BY product_name
	`, id); err != nil {
		return nil, err
	}
	s.Items = items
	return &s, nil
}

type SaleFilter struct {
	ClientID string
	Payment  string
	From     string // inclusive ISO date
	To       string // inclusive ISO date
	Limit    int
}

// List returns headers only, newest first.
func (r *SaleRepo) List(f SaleFilter) ([]domain.Sale, error) {
	where := `1=1`
	args := []any{}
	if f.ClientID != "" {
		where += ` AND client_id = ?`
		args = append(args, f.ClientID)
	}
	if f.Payment != "" {
		where += ` AND payment_method = ?`
		args = append(args, f.Payment)
	}
	if f.From != "" {
		where += ` AND sale_date >= ?`
		args = append(args, f.From)
	}
	if f.To != "" {
		where += ` AND sale_date <= ?`
		args = append(args, f.To)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}
	args = append(args, limit)
	out := []domain.Sale{}
	err := sel(r.db, &out, `SELECT `+saleCols+` FROM sales WHERE `+where+` ORDER BY sale_date DESC, id DESC LIMIT ?`, args...)
	return out, err
}

// Delete removes the header; lines cascade.
func (r *SaleRepo) Delete(q sqlx.Ext, id string) error {
	_, err := exec(q, `DELETE FROM sales WHERE id = ?`, id)
	return err
}

// Lines returns every sale line joined with its header, for CSV export.
type SaleLine struct {
	domain.SaleItem
	ClientID      string `db:"client_id"`
	ClientName    string `db:"client_name"`
	PaymentMethod string `db:"payment_method"`
	Date          string `db:"sale_date"`
}

func (r *SaleRepo) Lines(from, to string) ([]SaleLine, error) {
	where := `1=1`
	args := []any{}
	if from != "" {
		where += ` AND s.sale_date >= ?`
		args = append(args, from)
	}
	if to != "" {
		where += ` AND s.sale_date <= ?`
		args = append(args, to)
	}
	out := []SaleLine{}
	err := sel(r.db, &out, `
		SELECT i.sale_id, i.product_code, i.product_name, i.category, i.quantity, i.unit_price, i.line_total,
		       s.client_id, s.client_name, s.payment_method, s.sale_date
		FROM sale_items i
		JOIN sales s ON s.id = i.sale_id
		WHERE `+where+`
		ORDER BY s.sale_date, i.sale_id, i.product_code
	`, args...)
	return out, err
}
