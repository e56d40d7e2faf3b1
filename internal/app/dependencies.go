package app

import (
	"net/http"

	"github.com/fundwise/fundwise/internal/config"
	"github.com/fundwise/fundwise/internal/pubsub"
	"github.com/fundwise/fundwise/internal/utils"
	"github.com/fundwise/fundwise/pkg/account"
	"github.com/fundwise/fundwise/pkg/budget"
	"github.com/fundwise/fundwise/pkg/category"
	"github.com/fundwise/fundwise/pkg/exchange"
	"github.com/fundwise/fundwise/pkg/live"
	"github.com/fundwise/fundwise/pkg/report"
	"github.com/fundwise/fundwise/pkg/transaction"
	"github.com/fundwise/fundwise/pkg/user"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	UserService user.Service
	UserHandler *user.Handler

	AccountService *account.ServiceImpl
	AccountHandler *account.Handler

	CategoryService *category.ServiceImpl
	CategoryHandler *category.Handler

	BudgetPlanService *budget.ServiceImpl
	BudgetPlanHandler *budget.Handler

	TransactionService *transaction.ServiceImpl
	TransactionHandler *transaction.Handler

	RatesClient    exchange.Client
	RatesConverter *exchange.ConverterImpl

	ReportService *report.ServiceImpl
	ReportHandler *report.Handler
	BudgetWatcher *report.BudgetWatcher

	LiveHandler *live.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, ps *pubsub.PubSub, httpClient *http.Client, cfg config.Application) *Dependencies {
	deps := &Dependencies{}
	deps.Clock = &utils.SystemClock{}

	deps.UserService = user.NewUserService(user.NewUserRepo(db))
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.AccountService = account.NewAccountService(account.NewAccountRepo(db))
	deps.AccountHandler = account.NewAccountHandler(deps.AccountService)

	deps.CategoryService = category.NewCategoryService(category.NewCategoryRepo(db))
	deps.CategoryHandler = category.NewCategoryHandler(deps.CategoryService)

	deps.BudgetPlanService = budget.NewBudgetPlanService(budget.NewBudgetPlanRepo(db), deps.CategoryService, ps)
	deps.BudgetPlanHandler = budget.NewBudgetPlanHandler(deps.BudgetPlanService)

	deps.TransactionService = transaction.NewTransactionService(
		transaction.NewTransactionRepo(db),
		deps.AccountService,
		deps.CategoryService,
		ps,
		deps.Clock,
	)
	deps.TransactionHandler = transaction.NewTransactionHandler(deps.TransactionService, deps.Clock)

	deps.RatesClient = exchange.NewClient(cfg.Rates, httpClient)
	deps.RatesConverter = exchange.NewConverter(deps.RatesClient, cfg.Rates.CacheTTL, deps.Clock)

	deps.ReportService = report.NewReportService(deps.TransactionService, deps.CategoryService, deps.BudgetPlanService, deps.RatesConverter)
	deps.ReportHandler = report.NewReportHandler(deps.ReportService, report.NewCsvRenderer(), deps.Clock)
	deps.BudgetWatcher = report.NewBudgetWatcher(deps.ReportService, ps)

	deps.LiveHandler = live.NewLiveHandler(ps, cfg.Live.KeepAlive)

	return deps
}
