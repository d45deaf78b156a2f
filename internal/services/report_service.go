package services

import (
	"sort"
	"time"

	"homeessence/internal/domain"
	"homeessence/internal/repos"

	"github.com/shopspring/decimal"
)

type ReportService struct {
	Reports  *repos.ReportRepo
	Sales    *repos.SaleRepo
	Clients  *repos.ClientRepo
	Inv      *InventoryService
	Expenses *ExpenseService
	Now      func() time.Time
}

func NewReportService(reports *repos.ReportRepo, sales *repos.SaleRepo, clients *repos.ClientRepo, inv *InventoryService, exp *ExpenseService) *ReportService {
	return &ReportService{Reports: reports, Sales: sales, Clients: clients, Inv: inv, Expenses: exp, Now: time.Now}
}

type Summary struct {
	Sales     int             `json:"sales"`
	Revenue   decimal.Decimal `json:"revenue"`
	Items     int             `json:"items"`
	AvgTicket decimal.Decimal `json:"avg_ticket"`
}

func (s *ReportService) Summary(p repos.Period) (Summary, error) {
	t, err := s.Reports.Totals(p)
	if err != nil {
		return Summary{}, err
	}
	out := Summary{Sales: t.Sales, Revenue: t.Revenue.Round(2), Items: t.Items}
	if t.Sales > 0 {
		out.AvgTicket = t.Revenue.Div(decimal.NewFromInt(int64(t.Sales))).Round(2)
	}
	return out, nil
}

// MonthPeriod turns YYYY-MM into an inclusive date range.
func MonthPeriod(month string) repos.Period {
	return repos.Period{From: month + "-01", To: month + "-31"}
}

type Dashboard struct {
	AllTime     Summary
	ThisMonth   Summary
	Inventory   domain.InventorySummary
	Recent      []domain.Sale
	LowStock    []domain.Product
	TopProducts []repos.ProductSales
	TopClients  []repos.ClientStats
}

func (s *ReportService) Dashboard() (*Dashboard, error) {
	var (
		d   Dashboard
		err error
	)
	if d.AllTime, err = s.Summary(repos.Period{}); err != nil {
		return nil, err
	}
	if d.ThisMonth, err = s.Summary(MonthPeriod(s.Now().Format("2006-01"))); err != nil {
		return nil, err
	}
	if d.Inventory, err = s.Inv.Summary(); err != nil {
		return nil, err
	}
	if d.Recent, err = s.Sales.List(repos.SaleFilter{Limit: 10}); err != nil {
		return nil, err
	}
	if d.LowStock, err = s.Inv.LowStock(); err != nil {
		return nil, err
	}
	if d.TopProducts, err = s.Reports.ProductSales(repos.Period{}, 5); err != nil {
		return nil, err
	}
	if d.TopClients, err = s.Reports.ClientStats(repos.Period{}, 5); err != nil {
		return nil, err
	}
	return &d, nil
}

// ABCItem classifies a product by its share of revenue: A up to 80%
// cumulative, B up to 95%, C for the tail.
type ABCItem struct {
	repos.ProductSales
	SharePct      decimal.Decimal `json:"share_pct"`
	CumulativePct decimal.Decimal `json:"cumulative_pct"`
	Class         string          `json:"class"`
}

func ABC(products []repos.ProductSales) []ABCItem {
	sorted := append([]repos.ProductSales(nil), products...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Revenue.GreaterThan(sorted[j].Revenue) })
	total := decimal.Zero
	for _, p := range sorted {
		total = total.Add(p.Revenue)
	}
	out := make([]ABCItem, 0, len(sorted))
	cum := decimal.Zero
	for _, p := range sorted {
		cum = cum.Add(p.Revenue)
		it := ABCItem{ProductSales: p, SharePct: pct(p.Revenue, total), CumulativePct: pct(cum, total)}
		switch {
		case it.CumulativePct.LessThanOrEqual(decimal.NewFromInt(80)):
			it.Class = "A"
		case it.CumulativePct.LessThanOrEqual(decimal.NewFromInt(95)):
			it.Class = "B"
		default:
			it.Class = "C"
		}
		out = append(out, it)
	}
	return out
}

const (
	SegmentVIP        = "VIP"
	SegmentRegular    = "Regular"
	SegmentOccasional = "Occasional"
	SegmentInactive   = "Inactive"
)

type SegmentedClient struct {
	repos.ClientStats
	AvgPurchase decimal.Decimal `json:"avg_purchase"`
	RecencyDays int             `json:"recency_days"`
}

type Segment struct {
	Name    string            `json:"name"`
	Clients []SegmentedClient `json:"clients"`
	Revenue decimal.Decimal   `json:"revenue"`
}

// SegmentClients buckets clients: VIP spent over 500 in more than 5 purchases;
// otherwise Inactive after 90 days without buying; Regular from 3
// purchases; Occasional for the rest.
func SegmentClients(stats []repos.ClientStats, now time.Time) []Segment {
	order := []string{SegmentVIP, SegmentRegular, SegmentOccasional, SegmentInactive}
	byName := map[string]*Segment{}
	for _, n := range order {
		byName[n] = &Segment{Name: n, Clients: []SegmentedClient{}}
	}
	vipSpend := decimal.NewFromInt(500)
	today := now.Truncate(24 * time.Hour)
	for _, st := range stats {
		c := SegmentedClient{ClientStats: st, RecencyDays: 999}
		if st.Purchases > 0 {
			c.AvgPurchase = st.Spent.Div(decimal.NewFromInt(int64(st.Purchases))).Round(2)
		}
		if t, err := time.Parse("2006-01-02", st.LastDate); err == nil {
			c.RecencyDays = int(today.Sub(t).Hours() / 24)
		}
		var name string
		switch {
		case st.Spent.GreaterThan(vipSpend) && st.Purchases > 5:
			name = SegmentVIP
		case c.RecencyDays > 90:
			name = SegmentInactive
		case st.Purchases >= 3:
			name = SegmentRegular
		default:
			name = SegmentOccasional
		}
		seg := byName[name]
		seg.Clients = append(seg.Clients, c)
		seg.Revenue = seg.Revenue.Add(st.Spent)
	}
	out := make([]Segment, 0, len(order))
	for _, n := range order {
		out = append(out, *byName[n])
	}
	return out
}

type Analytics struct {
	Summary       Summary              `json:"summary"`
	ByPayment     []repos.GroupTotal   `json:"by_payment"`
	ByCategory    []repos.GroupTotal   `json:"by_category"`
	TopCategory   string               `json:"top_category"`
	Monthly       []repos.MonthTotal   `json:"monthly"`
	ABC           []ABCItem            `json:"abc"`
	TopClients    []repos.ClientStats  `json:"top_clients"`
	Segments      []Segment            `json:"segments"`
	Genders       []repos.GroupTotal   `json:"genders"`
	Salespeople   []repos.GroupTotal   `json:"salespeople"`
	NewClients    int                  `json:"new_clients_this_month"`
	ReturnRatePct decimal.Decimal      `json:"return_rate_pct"`
	Products      []repos.ProductSales `json:"-"`
}

// LastMonths returns revenue for the last n calendar months, oldest first,
// with empty months filled with zero.
func (s *ReportService) LastMonths(n int) ([]repos.MonthTotal, error) {
	now := s.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(n - 1), 0)
	rows, err := s.Reports.Monthly(repos.Period{From: first.Format("2006-01-02")})
	if err != nil {
		return nil, err
	}
	got := map[string]repos.MonthTotal{}
	for _, r := range rows {
		r.Revenue = r.Revenue.Round(2)
		got[r.Month] = r
	}
	out := make([]repos.MonthTotal, 0, n)
	for i := 0; i < n; i++ {
		m := first.AddDate(0, i, 0).Format("2006-01")
		if r, ok := got[m]; ok {
			out = append(out, r)
			continue
		}
		out = append(out, repos.MonthTotal{Month: m})
	}
	return out, nil
}

func (s *ReportService) Analytics(p repos.Period) (*Analytics, error) {
	var (
		a   Analytics
		err error
	)
	if a.Summary, err = s.Summary(p); err != nil {
		return nil, err
	}
	if a.ByPayment, err = s.Reports.ByPayment(p); err != nil {
		return nil, err
	}
	if a.ByCategory, err = s.Reports.ByCategory(p); err != nil {
		return nil, err
	}
	if len(a.ByCategory) > 0 {
		a.TopCategory = a.ByCategory[0].Label
	}
	if a.Monthly, err = s.LastMonths(12); err != nil {
		return nil, err
	}
	if a.Products, err = s.Reports.ProductSales(p, 0); err != nil {
		return nil, err
	}
	a.ABC = ABC(a.Products)

	stats, err := s.Reports.ClientStats(p, 0)
	if err != nil {
		return nil, err
	}
	a.Segments = SegmentClients(stats, s.Now())
	if len(stats) > 10 {
		a.TopClients = stats[:10]
	} else {
		a.TopClients = stats
	}
	returning := 0
	for _, st := range stats {
		if st.Purchases > 1 {
			returning++
		}
	}
	a.ReturnRatePct = pct(decimal.NewFromInt(int64(returning)), decimal.NewFromInt(int64(len(stats))))

	if a.Genders, err = s.Reports.Genders(); err != nil {
		return nil, err
	}
	if a.Salespeople, err = s.Reports.Salespeople(p); err != nil {
		return nil, err
	}
	if a.NewClients, err = s.Clients.CreatedSince(s.Now().Format("2006-01") + "-01"); err != nil {
		return nil, err
	}
	return &a, nil
}

// MonthlyReport is the month's P&L: contribution margin from sales,
// less fixed expenses.
type MonthlyReport struct {
	Month           string          `json:"month"`
	Summary         Summary         `json:"summary"`
	COGS            decimal.Decimal `json:"cogs"`
	GrossProfit     decimal.Decimal `json:"gross_profit"`
	Variable        VariableCosts   `json:"variable_costs"`
	Contribution    decimal.Decimal `json:"contribution_margin"`
	ContributionPct decimal.Decimal `json:"contribution_margin_pct"`
	PnL             PnL             `json:"pnl"`
	Breakeven       Breakeven       `json:"breakeven"`
	Required        RequiredRevenue `json:"required_revenue"`
}

func (s *ReportService) MonthlyPnL(month string) (*MonthlyReport, error) {
	p := MonthPeriod(month)
	sum, err := s.Summary(p)
	if err != nil {
		return nil, err
	}
	sales, err := s.Reports.SaleEconomics(p)
	if err != nil {
		return nil, err
	}
	r := &MonthlyReport{Month: month, Summary: sum}
	revenue := decimal.Zero
	for _, se := range sales {
		revenue = revenue.Add(se.Total)
		r.COGS = r.COGS.Add(se.COGS)
		vc := s.Expenses.VariableCosts(se.Total, se.Units, se.PaymentMethod)
		r.Variable.PaymentFee = r.Variable.PaymentFee.Add(vc.PaymentFee)
		r.Variable.Packaging = r.Variable.Packaging.Add(vc.Packaging)
		r.Variable.ShippingMaterials = r.Variable.ShippingMaterials.Add(vc.ShippingMaterials)
		r.Variable.CardMaterials = r.Variable.CardMaterials.Add(vc.CardMaterials)
		r.Variable.Total = r.Variable.Total.Add(vc.Total)
	}
	r.COGS = r.COGS.Round(2)
	r.Variable.Total = r.Variable.Total.Round(2)
	r.GrossProfit = revenue.Sub(r.COGS).Round(2)
	r.Contribution = r.GrossProfit.Sub(r.Variable.Total)
	r.ContributionPct = pct(r.Contribution, revenue)
	r.PnL = s.Expenses.MonthlyPnL(r.Contribution)

	avg := decimal.Zero
	if len(sales) > 0 {
		avg = r.Contribution.Div(decimal.NewFromInt(int64(len(sales)))).Round(2)
	}
	r.Breakeven = s.Expenses.Breakeven(avg)
	r.Required = s.Expenses.RequiredRevenue(r.ContributionPct, nil)
	return r, nil
}
