package repos

import (
	"database/sql"

	"homeessence/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ClientRepo struct{ db *sqlx.DB }

func NewClientRepo(db *sqlx.DB) *ClientRepo { return &ClientRepo{db: db} }

const clientCols = `id, name, salesperson, type, age_range, gender, profession, tax_id, phone, address,
	COALESCE(created_at,'') AS created_at`

type ClientFilter struct {
	Q           string // matches name or tax id
	Type        domain.ClientType
	Salesperson string
}

func (r *ClientRepo) List(f ClientFilter) ([]domain.Client, error) {
	where := `1=1`
	args := []any{}
	if f.Q != "" {
		where += ` AND (LOWER(name) LIKE LOWER(?) OR tax_id LIKE ?)`
		args = append(args, "%"+f.Q+"%", "%"+f.Q+"%")
	}
	if f.Type != "" {
		where += ` AND type = ?`
		args = append(args, f.Type)
	}
	if f.Salesperson != "" {
		where += ` AND salesperson = ?`
		args = append(args, f.Salesperson)
	}
	out := []domain.Client{}
	err := sel(r.db, &out, `SELECT `+clientCols+` FROM clients WHERE `+where+` ORDER BY name`, args...)
	return out, err
}

func (r *ClientRepo) Get(id string) (*domain.Client, error) {
	return r.getWith(r.db, id)
}

func (r *ClientRepo) GetTx(tx *sqlx.Tx, id string) (*domain.Client, error) {
	return r.getWith(tx, id)
}

func (r *ClientRepo) getWith(q sqlx.Ext, id string) (*domain.Client, error) {
	var c domain.Client
	if err := get(q, &c, `SELECT `+clientCols+` FROM clients WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// ByTaxID finds a client by formatted tax id; sql.ErrNoRows when absent.
func (r *ClientRepo) ByTaxID(taxID string) (*domain.Client, error) {
	var c domain.Client
	if err := get(r.db, &c, `SELECT `+clientCols+` FROM clients WHERE tax_id = ?`, taxID); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create assigns the next CLI### id and inserts the row in one transaction.
func (r *ClientRepo) Create(c *domain.Client) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	id, err := nextID(tx, "clients", "CLI")
	if err != nil {
		return err
	}
	c.ID = id
	c.CreatedAt = now()
	if _, err := exec(tx, `
		INSERT INTO clients(id, name, salesperson, type, age_range, gender, profession, tax_id, phone, address, created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)
	`, c.ID, c.Name, c.Salesperson, c.Type, c.AgeRange, c.Gender, c.Profession, c.TaxID, c.Phone, c.Address, c.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return tx.Commit()
}

// Update rewrites the client and the name copied onto its past sales in
// one transaction.
func (r *ClientRepo) Update(c *domain.Client) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := exec(tx, `
		UPDATE clients SET name = ?, salesperson = ?, type = ?, age_range = ?, gender = ?,
		       profession = ?, tax_id = ?, phone = ?, address = ?
		WHERE id = ?
	`, c.Name, c.Salesperson, c.Type, c.AgeRange, c.Gender, c.Profession, c.TaxID, c.Phone, c.Address, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	if _, err := exec(tx, `UPDATE sales SET client_name = ? WHERE client_id = ?`, c.Name, c.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the client; its sales and their lines go with it through
// ON DELETE CASCADE.
func (r *ClientRepo) Delete(id string) error {
	res, err := exec(r.db, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ClientRepo) Salespeople() ([]string, error) {
	out := []string{}
	err := sel(r.db, &out, `SELECT DISTINCT salesperson FROM clients WHERE salesperson <> '' ORDER BY salesperson`)
	return out, err
}

func (r *ClientRepo) Count() (int, error) {
	var n int
	err := get(r.db, &n, `SELECT COUNT(*) FROM clients`)
	return n, err
}

// CreatedSince counts clients registered on or after the given ISO date.
func (r *ClientRepo) CreatedSince(date string) (int, error) {
	var n int
	err := get(r.db, &n, `SELECT COUNT(*) FROM clients WHERE created_at >= ?`, date)
	return n, err
}
