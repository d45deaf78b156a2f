package repos

import (
	"database/sql"
	"time"

	"homeessence/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `code, name, category, cost, price, stock, COALESCE(updated_at,'') AS updated_at`

type ProductFilter struct {
	Q        string
	Category string
}

func (r *ProductRepo) List(f ProductFilter) ([]domain.Product, error) {
	where := `1=1`
	args := []any{}
	if f.Q != "" {
		where += ` AND (LOWER(name) LIKE LOWER(?) OR LOWER(code) LIKE LOWER(?))`
		args = append(args, "%"+f.Q+"%", "%"+f.Q+"%")
	}
	if f.Category != "" {
		where += ` AND category = ?`
		args = append(args, f.Category)
	}
	out := []domain.Product{}
	err := sel(r.db, &out, `SELECT `+productCols+` FROM products WHERE `+where+` ORDER BY category, name`, args...)
	return out, err
}

func (r *ProductRepo) Get(code string) (*domain.Product, error) {
	return r.getWith(r.db, code)
}

// GetTx reads a product inside a sale transaction.
func (r *ProductRepo) GetTx(tx *sqlx.Tx, code string) (*domain.Product, error) {
	return r.getWith(tx, code)
}

func (r *ProductRepo) getWith(q sqlx.Ext, code string) (*domain.Product, error) {
	var p domain.Product
	if err := get(q, &p, `SELECT `+productCols+` FROM products WHERE LOWER(code) = LOWER(?)`, code); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) Exists(code string) (bool, error) {
	var n int
	err := get(r.db, &n, `SELECT COUNT(*) FROM products WHERE LOWER(code) = LOWER(?)`, code)
	return n > 0, err
}

func (r *ProductRepo) Create(p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	_, err := exec(r.db, `
		INSERT INTO products(code, name, category, cost, price, stock, updated_at)
		VALUES(?,?,?,?,?,?,?)
	`, p.Code, p.Name, p.Category, p.Cost, p.Price, p.Stock, p.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Update changes descriptive and price fields; stock only moves through
// the inventory operations.
func (r *ProductRepo) Update(p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	res, err := exec(r.db, `
		UPDATE products SET name = ?, category = ?, cost = ?, price = ?, updated_at = ?
		WHERE code = ?
	`, p.Name, p.Category, p.Cost, p.Price, p.UpdatedAt, p.Code)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ProductRepo) Delete(code string) error {
	res, err := exec(r.db, `DELETE FROM products WHERE code = ?`, code)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ProductRepo) Categories() ([]string, error) {
	out := []string{}
	err := sel(r.db, &out, `SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`)
	return out, err
}
