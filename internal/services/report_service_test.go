package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeessence/internal/repos"
	"homeessence/internal/services"
)

// history records three sales: two in May 2024 for Ana (180 total) and
// one in April for Bruno (50).
func history(t *testing.T, e *env) {
	t.Helper()
	e.catalog(t)
	ana := e.person(t, "Ana")
	bruno := e.person(t, "Bruno")
	ctx := context.Background()
	for _, in := range []services.SaleInput{
		{ClientID: ana.ID, PaymentMethod: "pix", Date: "2024-05-02", Lines: []services.SaleLineInput{{Code: "HS-HAV", Quantity: 2}}},
		{ClientID: ana.ID, PaymentMethod: "pix", Date: "2024-05-03", Lines: []services.SaleLineInput{{Code: "DIF-LAV", Quantity: 1}}},
		{ClientID: bruno.ID, PaymentMethod: "dinheiro", Date: "2024-04-20", Lines: []services.SaleLineInput{{Code: "HS-HAV", Quantity: 1}}},
	} {
		_, err := e.sales.Register(ctx, in)
		require.NoError(t, err)
	}
}

func TestReport_Dashboard(t *testing.T) {
	e := newEnv(t)
	history(t, e)

	d, err := e.reports.Dashboard()
	require.NoError(t, err)
	assert.Equal(t, 3, d.AllTime.Sales)
	decEq(t, "230", d.AllTime.Revenue)
	assert.Equal(t, 2, d.ThisMonth.Sales)
	decEq(t, "90", d.ThisMonth.AvgTicket)
	assert.Len(t, d.Recent, 3)
	require.NotEmpty(t, d.TopProducts)
	assert.Equal(t, "HS-HAV", d.TopProducts[0].Code)
	decEq(t, "150", d.TopProducts[0].Revenue)
	require.Len(t, d.LowStock, 1)
	assert.Equal(t, "DIF-LAV", d.LowStock[0].Code)
	require.NotEmpty(t, d.TopClients)
	assert.Equal(t, "Ana", d.TopClients[0].ClientName)
}

func TestReport_Analytics(t *testing.T) {
	e := newEnv(t)
	history(t, e)

	a, err := e.reports.Analytics(repos.Period{})
	require.NoError(t, err)

	require.Len(t, a.Monthly, 12)
	assert.Equal(t, "2023-06", a.Monthly[0].Month)
	assert.Equal(t, "2024-05", a.Monthly[11].Month)
	decEq(t, "180", a.Monthly[11].Revenue)
	decEq(t, "50", a.Monthly[10].Revenue)
	decEq(t, "0", a.Monthly[0].Revenue)

	require.Len(t, a.ByPayment, 2)
	assert.Equal(t, "pix", a.ByPayment[0].Label)
	assert.Equal(t, "Havana", a.TopCategory)

	require.Len(t, a.ABC, 2)
	assert.Equal(t, "A", a.ABC[0].Class)
	assert.Equal(t, "C", a.ABC[1].Class)

	decEq(t, "50", a.ReturnRatePct)
	assert.Equal(t, 2, a.NewClients)
	require.Len(t, a.Genders, 1)
	assert.Equal(t, 2, a.Genders[0].N)

	may, err := e.reports.Analytics(services.MonthPeriod("2024-05"))
	require.NoError(t, err)
	assert.Equal(t, 2, may.Summary.Sales)
	assert.Equal(t, 3, may.Summary.Items)
}

func TestABC_Classes(t *testing.T) {
	got := services.ABC([]repos.ProductSales{
		{Code: "C1", Revenue: decimal.NewFromInt(100)},
		{Code: "A1", Revenue: decimal.NewFromInt(700)},
		{Code: "B1", Revenue: decimal.NewFromInt(200)},
	})
	require.Len(t, got, 3)
	assert.Equal(t, "A1", got[0].Code)
	assert.Equal(t, "A", got[0].Class)
	assert.Equal(t, "B", got[1].Class)
	assert.Equal(t, "C", got[2].Class)
	decEq(t, "90", got[1].CumulativePct)
	decEq(t, "20", got[1].SharePct)

	assert.Empty(t, services.ABC(nil))
}

func TestSegmentClients(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	segs := services.SegmentClients([]repos.ClientStats{
		{ClientID: "CLI001", Purchases: 6, Spent: decimal.NewFromInt(600), LastDate: "2023-01-01"},
		{ClientID: "CLI002", Purchases: 1, Spent: decimal.NewFromInt(100), LastDate: "2024-01-01"},
		{ClientID: "CLI003", Purchases: 3, Spent: decimal.NewFromInt(90), LastDate: "2024-05-20"},
		{ClientID: "CLI004", Purchases: 1, Spent: decimal.NewFromInt(40), LastDate: "2024-05-30"},
	}, now)

	byName := map[string][]string{}
	for _, s := range segs {
		for _, c := range s.Clients {
			byName[s.Name] = append(byName[s.Name], c.ClientID)
		}
	}
	assert.Equal(t, []string{"CLI001"}, byName[services.SegmentVIP])
	assert.Equal(t, []string{"CLI002"}, byName[services.SegmentInactive])
	assert.Equal(t, []string{"CLI003"}, byName[services.SegmentRegular])
	assert.Equal(t, []string{"CLI004"}, byName[services.SegmentOccasional])
	assert.Equal(t, services.SegmentVIP, segs[0].Name)
	assert.Equal(t, 2, segs[2].Clients[0].RecencyDays)
}

func TestReport_MonthlyPnL(t *testing.T) {
	e := newEnv(t)
	history(t, e)
	cfg, from, warns := services.LoadExpenses(services.ExpenseSource{EnvJSON: `{
	  "variable_costs": {"packaging": {"name": "Packaging", "value": 2}},
	  "monthly_fixed_expenses": {"rent": {"name": "Rent", "value": 1000}, "internet": {"name": "Internet", "value": 100}}
	}`})
	require.Empty(t, warns)
	e.reports.Expenses = services.NewExpenseService(cfg, from, "")

	r, err := e.reports.MonthlyPnL("2024-05")
	require.NoError(t, err)
	decEq(t, "180", r.Summary.Revenue)
	decEq(t, "70", r.COGS)
	decEq(t, "110", r.GrossProfit)
	decEq(t, "6", r.Variable.Total)
	decEq(t, "104", r.Contribution)
	decEq(t, "57.78", r.ContributionPct)
	decEq(t, "1100", r.PnL.FixedExpenses)
	decEq(t, "-996", r.PnL.NetProfit)
	decEq(t, "22", r.Breakeven.Sales)
	assert.True(t, r.Required.Reachable)

	empty, err := e.reports.MonthlyPnL("2023-01")
	require.NoError(t, err)
	assert.Zero(t, empty.Summary.Sales)
	assert.False(t, empty.Breakeven.Reachable)
	assert.False(t, empty.Required.Reachable)
}
