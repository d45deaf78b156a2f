package domain

import "github.com/shopspring/decimal"

// Well-known variable cost keys.
const (
	CostPaymentFee        = "payment_fee"        // percent of revenue, only for listed payment methods
	CostPackaging         = "packaging"          // per unit
	CostShippingMaterials = "shipping_materials" // per sale
	CostCardMaterials     = "card_materials"     // per unit
)

type ExpenseItem struct {
	Name        string          `json:"name"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type,omitempty"`
	AppliesTo   []string        `json:"applies_to,omitempty"`
}

type SalaryGoals struct {
	Employees               int             `json:"employees"`
	TargetSalaryPerEmployee decimal.Decimal `json:"target_salary_per_employee"`
	TotalMonthlySalaryGoal  decimal.Decimal `json:"total_monthly_salary_goal"`
}

type ExpensesConfig struct {
	VariableCosts        map[string]ExpenseItem `json:"variable_costs"`
	MonthlyFixedExpenses map[string]ExpenseItem `json:"monthly_fixed_expenses"`
	SalaryGoals          *SalaryGoals           `json:"salary_goals,omitempty"`
}

func DefaultSalaryGoals() SalaryGoals {
	return SalaryGoals{
		Employees:               3,
		TargetSalaryPerEmployee: decimal.NewFromInt(2000),
		TotalMonthlySalaryGoal:  decimal.NewFromInt(6000),
	}
}
