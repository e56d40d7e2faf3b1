package report

import (
	"github.com/fundwise/fundwise/internal/utils"
	"github.com/fundwise/fundwise/pkg/category"
	"github.com/shopspring/decimal"
)

type CategoryReport struct {
	Category category.Category
	Limit    decimal.Decimal
	// Spent is the positive sum of expenses booked on the category.
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	// Percent is Spent as a percentage of Limit, zero when nothing is planned.
	Percent decimal.Decimal
}

// Ratio returns Spent/Limit, false when the category has no limit.
func (c CategoryReport) Ratio() (decimal.Decimal, bool) {
	if !c.Limit.IsPositive() {
		return decimal.Zero, false
	}
	return c.Spent.Div(c.Limit), true
}

type MonthlyReport struct {
	Month      utils.BudgetMonth
	Period     utils.Period
	Currency   string
	Categories []CategoryReport
	// Uncategorized sums expenses without a category.
	Uncategorized  decimal.Decimal
	TotalIncome    decimal.Decimal
	TotalExpense   decimal.Decimal
	TotalLimit     decimal.Decimal
	TotalRemaining decimal.Decimal
}

func (r MonthlyReport) Category(categoryId int) (CategoryReport, bool) {
	for _, c := range r.Categories {
		if c.Category.Id == categoryId {
			return c, true
		}
	}
	return CategoryReport{}, false
}
