package repos

import (
	"homeessence/internal/domain"

	"github.com/jmoiron/sqlx"
)

// ArchiveRepo backs the legacy CSV import and the CSV backup. Inserts keep
// the ids found in the files and silently skip rows that already exist.
type ArchiveRepo struct{ DB *sqlx.DB }

func NewArchiveRepo(db *sqlx.DB) *ArchiveRepo { return &ArchiveRepo{DB: db} }

func (r *ArchiveRepo) Applied(q sqlx.Ext, name string) (bool, error) {
	var n int
	err := get(q, &n, `SELECT COUNT(*) FROM migrations WHERE name = ?`, name)
	return n > 0, err
}

func (r *ArchiveRepo) MarkApplied(q sqlx.Ext, name string) error {
	_, err := exec(q, `
		INSERT INTO migrations(name, applied_at) VALUES(?,?)
		ON CONFLICT(name) DO UPDATE SET applied_at = excluded.applied_at
	`, name, now())
	return err
}

// UpsertProduct overwrites an existing product with the same code.
func (r *ArchiveRepo) UpsertProduct(q sqlx.Ext, p *domain.Product) error {
	_, err := exec(q, `
		INSERT INTO products(code, name, category, cost, price, stock, updated_at)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(code) DO UPDATE SET name = excluded.name, category = excluded.category,
		  cost = excluded.cost, price = excluded.price, stock = excluded.stock, updated_at = excluded.updated_at
	`, p.Code, p.Name, p.Category, p.Cost, p.Price, p.Stock, now())
	return err
}

// InsertClient keeps an empty CreatedAt as NULL; FillClientSince dates
// those rows after the sales are in.
func (r *ArchiveRepo) InsertClient(q sqlx.Ext, c *domain.Client) (bool, error) {
	res, err := exec(q, `
		INSERT INTO clients(id, name, salesperson, type, age_range, gender, profession, tax_id, phone, address, created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,NULLIF(?,''))
		ON CONFLICT(id) DO NOTHING
	`, c.ID, c.Name, c.Salesperson, c.Type, c.AgeRange, c.Gender, c.Profession, c.TaxID, c.Phone, c.Address, c.CreatedAt)
	return inserted(res, err)
}

func (r *ArchiveRepo) InsertSale(q sqlx.Ext, s *domain.Sale) (bool, error) {
	res, err := exec(q, `
		INSERT INTO sales(id, client_id, client_name, payment_method, sale_date, total)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(id) DO NOTHING
	`, s.ID, s.ClientID, s.ClientName, s.PaymentMethod, s.Date, s.Total)
	return inserted(res, err)
}

func (r *ArchiveRepo) InsertItem(q sqlx.Ext, it *domain.SaleItem) (bool, error) {
	res, err := exec(q, `
		INSERT INTO sale_items(sale_id, product_code, product_name, category, quantity, unit_price, line_total)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(sale_id, product_code) DO NOTHING
	`, it.SaleID, it.ProductCode, it.ProductName, it.Category, it.Quantity, it.UnitPrice, it.LineTotal)
	return inserted(res, err)
}

// FillTotals sets the total of sales imported without one to the sum of
// their lines.
func (r *ArchiveRepo) FillTotals(q sqlx.Ext) error {
	_, err := exec(q, `
		UPDATE sales SET total = (SELECT COALESCE(SUM(line_total),0) FROM sale_items WHERE sale_id = sales.id)
		WHERE total = 0`)
	return err
}

// FillClientSince dates undated clients by their first sale. Clients
// without sales stay undated and never count as new.
func (r *ArchiveRepo) FillClientSince(q sqlx.Ext) error {
	_, err := exec(q, `
		UPDATE clients SET created_at = (SELECT MIN(sale_date) FROM sales WHERE sales.client_id = clients.id)
		WHERE created_at IS NULL OR created_at = ''`)
	return err
}

// IDs returns the primary keys of clients or sales as a set.
func (r *ArchiveRepo) IDs(q sqlx.Ext, table string) (map[string]bool, error) {
	if table != "clients" && table != "sales" {
		return nil, ErrNotFound
	}
	var ids []string
	if err := sel(q, &ids, `SELECT id FROM `+table); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *ArchiveRepo) Products() ([]domain.Product, error) {
	out := []domain.Product{}
	err := sel(r.DB, &out, `SELECT `+productCols+` FROM products ORDER BY code`)
	return out, err
}

func (r *ArchiveRepo) Clients() ([]domain.Client, error) {
	out := []domain.Client{}
	err := sel(r.DB, &out, `SELECT `+clientCols+` FROM clients ORDER BY id`)
	return out, err
}

func (r *ArchiveRepo) Sales() ([]domain.Sale, error) {
	out := []domain.Sale{}
	err := sel(r.DB, &out, `SELECT `+saleCols+` FROM sales ORDER BY id`)
	return out, err
}

func (r *ArchiveRepo) Items() ([]domain.SaleItem, error) {
	out := []domain.SaleItem{}
	err := sel(r.DB, &out, `
		SELECT sale_id, product_code, product_name, category, quantity, unit_price, line_total
		FROM sale_items ORDER BY sale_id, product_code`)
	return out, err
}

func inserted(res interface{ RowsAffected() (int64, error) }, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
