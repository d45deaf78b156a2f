package handlers_test

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"homeessence/internal/services"
)

const expensesJSON = `{
  "variable_costs": {
    "payment_fee": {"name": "Taxa cartão", "value": 4.5, "type": "percentage", "applies_to": ["cartão", "cartão de crédito"]},
    "packaging": {"name": "Embalagem", "value": 2}
  },
  "monthly_fixed_expenses": {
    "aluguel": {"name": "Aluguel", "value": 1500},
    "internet": {"name": "Internet", "value": 120}
  }
}`

func expenseApp(t *testing.T) (*testApp, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "expenses_config.json")
	if err := os.WriteFile(path, []byte(expensesJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, from, warnings := services.LoadExpenses(services.ExpenseSource{File: path})
	if len(warnings) > 0 || from != services.SourceFile {
		t.Fatalf("load expenses: from=%s warnings=%v", from, warnings)
	}
	return newTestAppWith(t, 0, services.NewExpenseService(cfg, from, path)), path
}

func TestExpensesPageAndEdits(t *testing.T) {
	ta, path := expenseApp(t)
	admin := ta.session(t, "u-admin")

	resp := ta.get(t, "/expenses", admin)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expenses: expected 200, got %d", resp.StatusCode)
	}
	if b := body(t, resp); !strings.Contains(b, "R$ 1.620,00") {
		t.Fatalf("total fixed missing from page; body=%s", b)
	}

	if resp := ta.post(t, "/expenses/fixed/aluguel", admin, url.Values{"value": {"1.800,00"}}); resp.StatusCode != http.StatusFound {
		t.Fatalf("update fixed: expected redirect, got %d", resp.StatusCode)
	}
	if resp := ta.post(t, "/expenses/fixed", admin, url.Values{"id": {"luz"}, "name": {"Energia"}, "value": {"200"}}); resp.StatusCode != http.StatusFound {
		t.Fatalf("add fixed: expected redirect, got %d", resp.StatusCode)
	}
	if resp := ta.post(t, "/expenses/fixed/internet/delete", admin, nil); resp.StatusCode != http.StatusFound {
		t.Fatalf("remove fixed: expected redirect, got %d", resp.StatusCode)
	}
	if got := ta.deps.Expenses.TotalFixed().StringFixed(2); got != "2000.00" {
		t.Fatalf("total fixed after edits: expected 2000.00, got %s", got)
	}

	// edits are written back to the real file
	cfg, from, _ := services.LoadExpenses(services.ExpenseSource{File: path})
	if from != services.SourceFile {
		t.Fatalf("reload: expected file source, got %s", from)
	}
	if _, ok := cfg.MonthlyFixedExpenses["luz"]; !ok {
		t.Fatal("added expense not persisted")
	}
	if _, ok := cfg.MonthlyFixedExpenses["internet"]; ok {
		t.Fatal("removed expense still persisted")
	}

	for _, tc := range []struct {
		path string
		form url.Values
		want int
	}{
		{"/expenses/fixed/aluguel", url.Values{"value": {"-5"}}, http.StatusBadRequest},
		{"/expenses/fixed/aluguel", url.Values{"value": {"abc"}}, http.StatusBadRequest},
		{"/expenses/fixed/nope", url.Values{"value": {"10"}}, http.StatusNotFound},
		{"/expenses/fixed", url.Values{"id": {"luz"}, "name": {"Luz"}, "value": {"1"}}, http.StatusBadRequest},
		{"/expenses/fixed", url.Values{"id": {"bad id!"}, "name": {"Luz"}, "value": {"1"}}, http.StatusBadRequest},
	} {
		if resp := ta.post(t, tc.path, admin, tc.form); resp.StatusCode != tc.want {
			t.Fatalf("%s %v: expected %d, got %d", tc.path, tc.form, tc.want, resp.StatusCode)
		}
	}
}

func TestMarginSimulation(t *testing.T) {
	ta, _ := expenseApp(t)
	seedShop(t, ta)
	sid := ta.session(t, "u-seller")

	// price 50, cost 20, packaging 2 per unit, pix carries no card fee
	resp := ta.get(t, "/expenses?code=HS-HAV&qty=1&payment=pix", sid)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("simulation: expected 200, got %d", resp.StatusCode)
	}
	b := body(t, resp)
	if !strings.Contains(b, "Contribution margin") || !strings.Contains(b, "R$ 28,00") {
		t.Fatalf("simulation output missing; body=%s", b)
	}
	if resp := ta.get(t, "/expenses?code=NOPE", sid); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown product: expected 404, got %d", resp.StatusCode)
	}
	if resp := ta.get(t, "/expenses?code=HS-HAV&qty=0", sid); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad qty: expected 400, got %d", resp.StatusCode)
	}
}
