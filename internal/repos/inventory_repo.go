package repos

import (
	"database/sql"
	"time"

	"homeessence/internal/domain"

	"github.com/jmoiron/sqlx"
)

// InventoryRepo moves stock. Every update is conditional so stock never
// goes below zero; the CHECK constraint backs this up.
type InventoryRepo struct{ db *sqlx.DB }

func NewInventoryRepo(db *sqlx.DB) *InventoryRepo { return &InventoryRepo{db: db} }

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// Adjust adds delta (may be negative) and returns the new stock. When
// stock is insufficient it returns the current stock with ErrInsufficientStock.
func (r *InventoryRepo) Adjust(code string, delta int) (int, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := exec(tx, `
		UPDATE products SET stock = stock + ?, updated_at = ?
		WHERE code = ? AND stock + ? >= 0
	`, delta, now(), code, delta)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := get(tx, &exists, `SELECT COUNT(*) FROM products WHERE code = ?`, code); err != nil {
			return 0, err
		}
		if exists == 0 {
			return 0, sql.ErrNoRows
		}
		var stock int
		if err := get(tx, &stock, `SELECT stock FROM products WHERE code = ?`, code); err != nil {
			return 0, err
		}
		return stock, ErrInsufficientStock
	}
	var stock int
	if err := get(tx, &stock, `SELECT stock FROM products WHERE code = ?`, code); err != nil {
		return 0, err
	}
	return stock, tx.Commit()
}

// Decrement subtracts qty inside tx only if enough stock exists.
func (r *InventoryRepo) Decrement(tx *sqlx.Tx, code string, qty int) error {
	res, err := exec(tx, `
		UPDATE products SET stock = stock - ?, updated_at = ?
		WHERE code = ? AND stock >= ?
	`, qty, now(), code, qty)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// Restore puts qty back; it reports false when the product no longer exists.
func (r *InventoryRepo) Restore(tx *sqlx.Tx, code string, qty int) (bool, error) {
	res, err := exec(tx, `UPDATE products SET stock = stock + ?, updated_at = ? WHERE code = ?`, qty, now(), code)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *InventoryRepo) LowStock(threshold int) ([]domain.Product, error) {
	out := []domain.Product{}
	err := sel(r.db, &out, `SELECT `+productCols+` FROM products WHERE stock <= ? ORDER BY stock, name`, threshold)
	return out, err
}

func (r *InventoryRepo) Summary() (domain.InventorySummary, error) {
	var s domain.InventorySummary
	err := get(r.db, &s, `
		SELECT COUNT(*) AS products,
		       COALESCE(SUM(stock),0) AS units,
		       COALESCE(SUM(cost * stock),0) AS cost_value,
		       COALESCE(SUM(price * stock),0) AS retail_value
		FROM products
	`)
	return s, err
}
