package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/fundwise/fundwise/internal/utils"
	"github.com/fundwise/fundwise/pkg/budget"
	"github.com/fundwise/fundwise/pkg/category"
	"github.com/fundwise/fundwise/pkg/exchange"
	"github.com/fundwise/fundwise/pkg/transaction"
	"github.com/fundwise/fundwise/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	Monthly(ctx context.Context, month utils.BudgetMonth) (MonthlyReport, error)
}

type TransactionLister interface {
	List(ctx context.Context, period utils.Period) ([]transaction.Transaction, error)
}

type CategoryLister interface {
	List(ctx context.Context) ([]category.Category, error)
}

type PlanReader interface {
	GetCurrentPlan(ctx context.Context) (budget.BudgetPlan, error)
}

type ServiceImpl struct {
	transactions TransactionLister
	categories   CategoryLister
	plans        PlanReader
	converter    exchange.Converter
}

func NewReportService(
	transactions TransactionLister,
	categories CategoryLister,
	plans PlanReader,
	converter exchange.Converter,
) *ServiceImpl {
	return &ServiceImpl{
		transactions: transactions,
		categories:   categories,
		plans:        plans,
		converter:    converter,
	}
}

// Monthly builds the report of a budget month against the current plan. All
// amounts are converted to the user's currency.
func (s *ServiceImpl) Monthly(ctx context.Context, month utils.BudgetMonth) (MonthlyReport, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("failed to get current user: %w", err)
	}
	settings := currentUser.Settings
	period := month.Period(settings.MonthStartDay, settings.Location())

	plan, err := s.plans.GetCurrentPlan(ctx)
	if err != nil && !errors.Is(err, budget.ErrPlanNotFound) {
		return MonthlyReport{}, err
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return MonthlyReport{}, err
	}
	transactions, err := s.transactions.List(ctx, period)
	if err != nil {
		return MonthlyReport{}, err
	}
	log.Tracef("report %s: %d transactions, %d categories", month, len(transactions), len(categories))

	report := MonthlyReport{
		Month:          month,
		Period:         period,
		Currency:       settings.Currency,
		Uncategorized:  decimal.Zero,
		TotalIncome:    decimal.Zero,
		TotalExpense:   decimal.Zero,
		TotalLimit:     decimal.Zero,
		TotalRemaining: decimal.Zero,
	}

	spentByCategory := make(map[int]decimal.Decimal)
	for _, t := range transactions {
		amount, err := s.converter.Convert(ctx, t.Amount, t.Currency, settings.Currency)
		if err != nil {
			return MonthlyReport{}, fmt.Errorf("failed to convert transaction %s: %w", t.Uid, err)
		}
		if !amount.IsNegative() {
			report.TotalIncome = report.TotalIncome.Add(amount)
			continue
		}
		spent := amount.Neg()
		report.TotalExpense = report.TotalExpense.Add(spent)
		if t.CategoryId == 0 {
			report.Uncategorized = report.Uncategorized.Add(spent)
			continue
		}
		spentByCategory[t.CategoryId] = spentByCategory[t.CategoryId].Add(spent)
	}

	report.Categories = make([]CategoryReport, 0, len(categories))
	for _, c := range categories {
		if c.Kind != category.Expense {
			continue
		}
		limit := decimal.Zero
		if item, ok := plan.Limit(c.Id); ok {
			limit = item.MonthlyLimit
		}
		spent := spentByCategory[c.Id]
		categoryReport := CategoryReport{
			Category:  c,
			Limit:     limit,
			Spent:     spent,
			Remaining: limit.Sub(spent),
			Percent:   decimal.Zero,
		}
		if ratio, ok := categoryReport.Ratio(); ok {
			categoryReport.Percent = ratio.Mul(decimal.NewFromInt(100)).Round(2)
		}
		report.TotalLimit = report.TotalLimit.Add(limit)
		report.Categories = append(report.Categories, categoryReport)
	}
	report.TotalRemaining = report.TotalLimit.Sub(report.TotalExpense)

	return report, nil
}
