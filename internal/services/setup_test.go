package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeessence/internal/domain"
	"homeessence/internal/repos"
	"homeessence/internal/services"
)

type env struct {
	db       *sqlx.DB
	prods    *services.ProductService
	inv      *services.InventoryService
	clients  *services.ClientService
	sales    *services.SaleService
	expenses *services.ExpenseService
	reports  *services.ReportService
	notes    *services.NotificationService
}

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB(repos.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return newEnvOn(t, db)
}

func newEnvOn(t *testing.T, db *sqlx.DB) *env {
	t.Helper()
	prodRepo := repos.NewProductRepo(db)
	invRepo := repos.NewInventoryRepo(db)
	clientRepo := repos.NewClientRepo(db)
	saleRepo := repos.NewSaleRepo(db)
	reportRepo := repos.NewReportRepo(db)

	e := &env{db: db}
	e.prods = services.NewProductService(prodRepo)
	e.inv = services.NewInventoryService(invRepo, 1)
	e.clients = services.NewClientService(clientRepo)
	e.sales = services.NewSaleService(db, clientRepo, prodRepo, invRepo, saleRepo)
	e.sales.Now = func() time.Time { return fixedNow }
	e.expenses = services.NewExpenseService(nil, services.SourceDefault, "")
	e.reports = services.NewReportService(reportRepo, saleRepo, clientRepo, e.inv, e.expenses)
	e.reports.Now = func() time.Time { return fixedNow }
	e.notes = services.NewNotificationService(e.inv, reportRepo, clientRepo, repos.NewNotificationRepo(db))
	e.notes.Now = func() time.Time { return fixedNow }
	return e
}

func (e *env) product(t *testing.T, code, name, category, cost, price string, stock int) *domain.Product {
	t.Helper()
	p, err := e.prods.Register(services.ProductInput{
		Code: code, Name: name, Category: category, Cost: cost, Price: price, Stock: itoa(stock),
	})
	require.NoError(t, err)
	return p
}

func (e *env) person(t *testing.T, name string) *domain.Client {
	t.Helper()
	c, err := e.clients.Register(services.ClientInput{Name: name, Type: "pessoa", AgeRange: "25-34", Gender: "Feminino"})
	require.NoError(t, err)
	return c
}

// catalog registers two products: HS-HAV (cost 20, price 50, stock 5) and
// DIF-LAV (cost 30, price 80, stock 2).
func (e *env) catalog(t *testing.T) {
	e.product(t, "HS-HAV", "Home Spray 300ml", "Havana", "20", "50", 5)
	e.product(t, "DIF-LAV", "Difusor de Varetas", "Lavanda", "30", "80", 2)
}

func (e *env) stock(t *testing.T, code string) int {
	t.Helper()
	p, err := e.prods.Get(code)
	require.NoError(t, err)
	return p.Stock
}

func itoa(n int) string { return decimal.NewFromInt(int64(n)).String() }

func decEq(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var ve *services.ValidationError
	require.True(t, errors.As(err, &ve), "expected validation error, got %v", err)
	assert.Equal(t, field, ve.Field)
}
