package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"homeessence/internal/domain"

	"github.com/shopspring/decimal"
)

// ExpenseSource lists where expense figures may come from, in priority order.
type ExpenseSource struct {
	File     string // real config, also the target of every save
	EnvJSON  string // inline JSON (EXPENSES_CONFIG_JSON)
	Template string
}

const (
	SourceFile     = "file"
	SourceEnv      = "env"
	SourceTemplate = "template"
	SourceDefault  = "default"
)

// LoadExpenses tries the real file, then the inline JSON, then the template
// and finally falls back to an empty skeleton. Unreadable or malformed
// sources are skipped and reported in warnings.
func LoadExpenses(src ExpenseSource) (cfg *domain.ExpensesConfig, from string, warnings []error) {
	try := func(name string, raw []byte) bool {
		c, err := parseExpenses(raw)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", name, err))
			return false
		}
		cfg, from = c, name
		return true
	}
	if src.File != "" {
		if raw, err := os.ReadFile(src.File); err == nil {
			if try(SourceFile, raw) {
				return
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			warnings = append(warnings, fmt.Errorf("file: %w", err))
		}
	}
	if strings.TrimSpace(src.EnvJSON) != "" && try(SourceEnv, []byte(src.EnvJSON)) {
		return
	}
	if src.Template != "" {
		if raw, err := os.ReadFile(src.Template); err == nil {
			if try(SourceTemplate, raw) {
				return
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			warnings = append(warnings, fmt.Errorf("template: %w", err))
		}
	}
	return emptyExpenses(), SourceDefault, warnings
}

func emptyExpenses() *domain.ExpensesConfig {
	return &domain.ExpensesConfig{
		VariableCosts:        map[string]domain.ExpenseItem{},
		MonthlyFixedExpenses: map[string]domain.ExpenseItem{},
	}
}

func parseExpenses(raw []byte) (*domain.ExpensesConfig, error) {
	var c domain.ExpensesConfig
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if c.VariableCosts == nil {
		c.VariableCosts = map[string]domain.ExpenseItem{}
	}
	if c.MonthlyFixedExpenses == nil {
		c.MonthlyFixedExpenses = map[string]domain.ExpenseItem{}
	}
	return &c, nil
}

type ExpenseService struct {
	mu     sync.RWMutex
	path   string
	cfg    *domain.ExpensesConfig
	source string
}

func NewExpenseService(cfg *domain.ExpensesConfig, source, path string) *ExpenseService {
	if cfg == nil {
		cfg = emptyExpenses()
	}
	return &ExpenseService{cfg: cfg, source: source, path: path}
}

func (s *ExpenseService) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// ExpenseLine is one configured entry flattened for display.
type ExpenseLine struct {
	ID string `json:"id"`
	domain.ExpenseItem
}

// FixedExpenses returns fixed expenses sorted by value, largest first.
func (s *ExpenseService) FixedExpenses() []ExpenseLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := flatten(s.cfg.MonthlyFixedExpenses)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value.GreaterThan(out[j].Value) })
	return out
}

func (s *ExpenseService) VariableCostLines() []ExpenseLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return flatten(s.cfg.VariableCosts)
}

func flatten(m map[string]domain.ExpenseItem) []ExpenseLine {
	out := make([]ExpenseLine, 0, len(m))
	for id, it := range m {
		out = append(out, ExpenseLine{ID: id, ExpenseItem: it})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *ExpenseService) TotalFixed() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range s.cfg.MonthlyFixedExpenses {
		sum = sum.Add(e.Value)
	}
	return sum
}

func (s *ExpenseService) SalaryGoals() domain.SalaryGoals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg.SalaryGoals == nil {
		return domain.DefaultSalaryGoals()
	}
	return *s.cfg.SalaryGoals
}

type VariableCosts struct {
	PaymentFee        decimal.Decimal `json:"payment_fee"`
	Packaging         decimal.Decimal `json:"packaging"`
	ShippingMaterials decimal.Decimal `json:"shipping_materials"`
	CardMaterials     decimal.Decimal `json:"card_materials"`
	Total             decimal.Decimal `json:"total"`
}

func methodKey(m string) string { return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(m)), " ", "_") }

// VariableCosts prices one sale: a percentage fee for the payment methods
// the fee applies to, packaging and card materials per unit, shipping
// materials once per sale.
func (s *ExpenseService) VariableCosts(revenue decimal.Decimal, units int, payment string) VariableCosts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vc := s.cfg.VariableCosts
	q := decimal.NewFromInt(int64(units))
	var out VariableCosts

	if fee, ok := vc[domain.CostPaymentFee]; ok {
		pm := methodKey(payment)
		for _, m := range fee.AppliesTo {
			if methodKey(m) == pm {
				out.PaymentFee = revenue.Mul(fee.Value).Div(hundred)
				break
			}
		}
	}
	out.Packaging = vc[domain.CostPackaging].Value.Mul(q)
	out.ShippingMaterials = vc[domain.CostShippingMaterials].Value
	out.CardMaterials = vc[domain.CostCardMaterials].Value.Mul(q)
	out.Total = out.PaymentFee.Add(out.Packaging).Add(out.ShippingMaterials).Add(out.CardMaterials)
	return out
}

var hundred = decimal.NewFromInt(100)

func pct(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// Margin is the contribution margin of selling qty units. Fixed expenses
// are not part of it.
type Margin struct {
	Revenue          decimal.Decimal `json:"revenue"`
	COGS             decimal.Decimal `json:"cogs"`
	GrossProfit      decimal.Decimal `json:"gross_profit"`
	GrossMarginPct   decimal.Decimal `json:"gross_margin_pct"`
	Variable         VariableCosts   `json:"variable_costs"`
	Contribution     decimal.Decimal `json:"contribution_margin"`
	ContributionPct  decimal.Decimal `json:"contribution_margin_pct"`
	UnitContribution decimal.Decimal `json:"unit_contribution"`
}

func (s *ExpenseService) ProductMargin(price, cost decimal.Decimal, qty int, payment string) Margin {
	q := decimal.NewFromInt(int64(qty))
	m := Margin{Revenue: price.Mul(q), COGS: cost.Mul(q)}
	m.GrossProfit = m.Revenue.Sub(m.COGS)
	m.GrossMarginPct = pct(m.GrossProfit, m.Revenue)
	m.Variable = s.VariableCosts(m.Revenue, qty, payment)
	m.Contribution = m.GrossProfit.Sub(m.Variable.Total)
	m.ContributionPct = pct(m.Contribution, m.Revenue)
	if qty > 0 {
		m.UnitContribution = m.Contribution.Div(q).Round(2)
	}
	return m
}

type PnL struct {
	Contribution  decimal.Decimal `json:"total_contribution_margin"`
	FixedExpenses decimal.Decimal `json:"fixed_expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	ProfitPct     decimal.Decimal `json:"profit_margin_pct"`
}

// MonthlyPnL subtracts fixed expenses from the month's contribution margin.
func (s *ExpenseService) MonthlyPnL(contribution decimal.Decimal) PnL {
	fixed := s.TotalFixed()
	net := contribution.Sub(fixed)
	return PnL{Contribution: contribution, FixedExpenses: fixed, NetProfit: net, ProfitPct: pct(net, contribution)}
}

type Breakeven struct {
	FixedExpenses   decimal.Decimal `json:"fixed_expenses"`
	AvgContribution decimal.Decimal `json:"avg_contribution_per_sale"`
	Sales           decimal.Decimal `json:"breakeven_sales"`
	Reachable       bool            `json:"reachable"`
}

// Breakeven is the number of sales whose average contribution covers the
// fixed expenses. Not reachable when the average contribution is not positive.
func (s *ExpenseService) Breakeven(avgContribution decimal.Decimal) Breakeven {
	b := Breakeven{FixedExpenses: s.TotalFixed(), AvgContribution: avgContribution}
	if !avgContribution.IsPositive() {
		return b
	}
	b.Sales = b.FixedExpenses.Div(avgContribution).Ceil()
	b.Reachable = true
	return b
}

type RequiredRevenue struct {
	FixedExpenses   decimal.Decimal `json:"fixed_expenses"`
	TargetNetProfit decimal.Decimal `json:"target_net_profit"`
	MarginPct       decimal.Decimal `json:"avg_contribution_margin_pct"`
	Revenue         decimal.Decimal `json:"required_revenue"`
	Reachable       bool            `json:"reachable"`
}

// RequiredRevenue is (fixed + target) / (margin%/100). A nil target uses the
// salary goal.
func (s *ExpenseService) RequiredRevenue(marginPct decimal.Decimal, target *decimal.Decimal) RequiredRevenue {
	r := RequiredRevenue{FixedExpenses: s.TotalFixed(), MarginPct: marginPct}
	if target != nil {
		r.TargetNetProfit = *target
	} else {
		r.TargetNetProfit = s.SalaryGoals().TotalMonthlySalaryGoal
	}
	if !marginPct.IsPositive() {
		return r
	}
	r.Revenue = r.FixedExpenses.Add(r.TargetNetProfit).Div(marginPct.Div(hundred)).Round(2)
	r.Reachable = true
	return r
}

// Edits. Each one is applied to a copy and saved before it becomes visible.

func (s *ExpenseService) UpdateFixed(id string, value decimal.Decimal) error {
	return s.mutate(func(c *domain.ExpensesConfig) error {
		it, ok := c.MonthlyFixedExpenses[id]
		if !ok {
			return ErrNotFound
		}
		it.Value = value
		c.MonthlyFixedExpenses[id] = it
		return nil
	})
}

func (s *ExpenseService) UpdateVariable(id string, value decimal.Decimal) error {
	return s.mutate(func(c *domain.ExpensesConfig) error {
		it, ok := c.VariableCosts[id]
		if !ok {
			return ErrNotFound
		}
		it.Value = value
		c.VariableCosts[id] = it
		return nil
	})
}

func (s *ExpenseService) AddFixed(id, name string, value decimal.Decimal, description string) error {
	return s.mutate(func(c *domain.ExpensesConfig) error {
		if _, ok := c.MonthlyFixedExpenses[id]; ok {
			return invalid("id", "expense "+id+" already exists")
		}
		c.MonthlyFixedExpenses[id] = domain.ExpenseItem{Name: name, Value: value, Description: description}
		return nil
	})
}

func (s *ExpenseService) RemoveFixed(id string) error {
	return s.mutate(func(c *domain.ExpensesConfig) error {
		if _, ok := c.MonthlyFixedExpenses[id]; !ok {
			return ErrNotFound
		}
		delete(c.MonthlyFixedExpenses, id)
		return nil
	})
}

func (s *ExpenseService) mutate(fn func(*domain.ExpensesConfig) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := cloneExpenses(s.cfg)
	if err := fn(next); err != nil {
		return err
	}
	if err := saveExpenses(s.path, next); err != nil {
		return err
	}
	s.cfg = next
	s.source = SourceFile
	return nil
}

func cloneExpenses(c *domain.ExpensesConfig) *domain.ExpensesConfig {
	out := emptyExpenses()
	for k, v := range c.VariableCosts {
		v.AppliesTo = append([]string(nil), v.AppliesTo...)
		out.VariableCosts[k] = v
	}
	for k, v := range c.MonthlyFixedExpenses {
		out.MonthlyFixedExpenses[k] = v
	}
	if c.SalaryGoals != nil {
		g := *c.SalaryGoals
		out.SalaryGoals = &g
	}
	return out
}

// saveExpenses writes a temp file next to path and renames it into place.
func saveExpenses(path string, c *domain.ExpensesConfig) error {
	if path == "" {
		return errors.New("no expenses file configured")
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
