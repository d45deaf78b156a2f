package repos

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrNotFound          = sql.ErrNoRows
	ErrDuplicate         = errors.New("duplicate key")
	ErrInsufficientStock = errors.New("insufficient stock")
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// OpenDB connects to sqlite (modernc) or postgres (pgx), ensures the schema
// and seeds the login users.
func OpenDB(driver, dsn string) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case "", DriverSQLite:
		db, err = sqlx.Open("sqlite", dsn)
		if err == nil {
			// One connection: keeps :memory: databases alive and serialises writers.
			db.SetMaxOpenConns(1)
		}
	case DriverPostgres, "postgresql", "pgx":
		driver = DriverPostgres
		db, err = sqlx.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db, driver); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	// Ensure users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}
	return db, nil
}

// Column names follow the legacy CSV headers one to one:
// products  CODIGO,PRODUTO,CATEGORIA,CUSTO,VALOR,ESTOQUE
// clients   ID_CLIENTE,CLIENTE,VENDEDOR,TIPO,IDADE,GENERO,PROFISSAO,CPF_CNPJ,TELEFONE,ENDERECO
// sales     ID_VENDA,ID_CLIENTE,CLIENTE,MEIO,DATA,VALOR_TOTAL_VENDA
// sale_items ID_VENDA,CODIGO,PRODUTO,CATEGORIA,QUANTIDADE,PRECO_UNIT,PRECO_TOTAL
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products(
  code TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  cost NUMERIC(12,2) NOT NULL CHECK (cost > 0),
  price NUMERIC(12,2) NOT NULL CHECK (price > 0),
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  updated_at TEXT
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_code_nocase ON products(LOWER(code))`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)`,

	`CREATE TABLE IF NOT EXISTS clients(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  salesperson TEXT NOT NULL DEFAULT '',
  type TEXT NOT NULL CHECK (type IN ('pessoa','empresa')),
  age_range TEXT NOT NULL DEFAULT '',
  gender TEXT NOT NULL DEFAULT '',
  profession TEXT NOT NULL DEFAULT '',
  tax_id TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  created_at TEXT,
  CHECK (type <> 'empresa' OR (tax_id <> '' AND address <> '')),
  CHECK (type <> 'pessoa' OR (age_range <> '' AND gender <> ''))
)`,
	`CREATE INDEX IF NOT EXISTS idx_clients_name ON clients(LOWER(name))`,
	`CREATE INDEX IF NOT EXISTS idx_clients_tax_id ON clients(tax_id)`,

	`CREATE TABLE IF NOT EXISTS sales(
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
  client_name TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  sale_date TEXT NOT NULL,
  total NUMERIC(12,2) NOT NULL CHECK (total >= 0)
)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_client ON sales(client_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(sale_date)`,

	// No FK to products: lines keep a snapshot so history survives product deletion.
	`CREATE TABLE IF NOT EXISTS sale_items(
  sale_id TEXT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
  product_code TEXT NOT NULL,
  product_name TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  unit_price NUMERIC(12,2) NOT NULL CHECK (unit_price >= 0),
  line_total NUMERIC(12,2) NOT NULL,
  PRIMARY KEY (sale_id, product_code)
)`,
	`CREATE INDEX IF NOT EXISTS idx_sale_items_product ON sale_items(product_code)`,

	`CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('ADMIN','SELLER'))
)`,
	`CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  last_seen TEXT
)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,

	`CREATE TABLE IF NOT EXISTS dismissed_notifications(
  kind TEXT NOT NULL,
  ref TEXT NOT NULL,
  dismissed_at TEXT,
  PRIMARY KEY (kind, ref)
)`,
	`CREATE TABLE IF NOT EXISTS migrations(
  name TEXT PRIMARY KEY,
  applied_at TEXT NOT NULL
)`,
}

func ensureSchema(db *sqlx.DB, driver string) error {
	if driver == DriverSQLite {
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			return err
		}
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", strings.SplitN(stmt, "(", 2)[0], err)
		}
	}
	return nil
}

// seedUsers ensures one ADMIN and one SELLER exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Username, Name, Role, Hash string
	}
	mk := func(id, username, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Username: username, Name: name, Role: role, Hash: string(h)}
	}

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	users := []u{
		mk("u-admin", "admin", "Administrador", "ADMIN", "Admin@123"),
		mk("u-seller", "vendedor", "Vendedor", "SELLER", "Vend@1234"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := exec(tx, `
			INSERT INTO users(id,username,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(username) DO NOTHING
		`, x.ID, x.Username, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}
	log.Println("[seed] login users created")
	return tx.Commit()
}

// get, sel and exec rebind ? placeholders for the connection's dialect so
// the same SQL runs on sqlite and postgres, inside or outside a transaction.
func get(q sqlx.Ext, dest any, query string, args ...any) error {
	return sqlx.Get(q, dest, q.Rebind(query), args...)
}

func sel(q sqlx.Ext, dest any, query string, args ...any) error {
	return sqlx.Select(q, dest, q.Rebind(query), args...)
}

func exec(q sqlx.Ext, query string, args ...any) (sql.Result, error) {
	return q.Exec(q.Rebind(query), args...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// nextID returns prefix + (highest numeric suffix + 1), zero padded to 3.
// q must be a transaction. On postgres the table is locked against other
// writers until it ends, so concurrent callers cannot read the same maximum;
// sqlite runs on a single connection and needs no lock.
func nextID(q sqlx.Ext, table, prefix string) (string, error) {
	if q.DriverName() == "pgx" {
		if _, err := q.Exec(`LOCK TABLE ` + table + ` IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return "", err
		}
	}
	var ids []string
	if err := sel(q, &ids, `SELECT id FROM `+table+` WHERE id LIKE ?`, prefix+"%"); err != nil {
		return "", err
	}
	hi := 0
	for _, id := range ids {
		var n int
		if _, err := fmt.Sscanf(strings.TrimPrefix(id, prefix), "%d", &n); err == nil && n > hi {
			hi = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, hi+1), nil
}
