package budget

import "github.com/shopspring/decimal"

type BudgetPlan struct {
	Id        int
	Name      string
	IsCurrent bool
	Items     []BudgetItem
}

type BudgetItem struct {
	Id         int
	PlanId     int
	CategoryId int
	// MonthlyLimit is expressed in the owner's currency.
	MonthlyLimit decimal.Decimal
	Position     int
}

// Limit returns the item planned for the category, if any.
func (p BudgetPlan) Limit(categoryId int) (BudgetItem, bool) {
	for _, item := range p.Items {
		if item.CategoryId == categoryId {
			return item, true
		}
	}
	return BudgetItem{}, false
}
