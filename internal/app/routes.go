package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// User management
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")
	r.HandleFunc("/api/user/current", deps.UserHandler.UpdateUser).Methods("PUT")
	r.HandleFunc("/api/user/name-availability", deps.UserHandler.IsUsernameAvailable).Methods("GET").Queries("username", "{username}")
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")
	r.HandleFunc("/api/user", deps.UserHandler.GetAvailableUsers).Methods("GET")
	r.HandleFunc("/api/user/{userUid}", deps.UserHandler.DeleteUser).Methods("DELETE")

	// Accounts
	r.HandleFunc("/api/account", deps.AccountHandler.ListAccounts).Methods("GET")
	r.HandleFunc("/api/account", deps.AccountHandler.CreateAccount).Methods("POST")
	r.HandleFunc("/api/account/{accountId}", deps.AccountHandler.GetAccount).Methods("GET")
	r.HandleFunc("/api/account/{accountId}", deps.AccountHandler.UpdateAccount).Methods("PUT")
	r.HandleFunc("/api/account/{accountId}", deps.AccountHandler.DeleteAccount).Methods("DELETE")

	// Categories
	r.HandleFunc("/api/category", deps.CategoryHandler.ListCategories).Methods("GET")
	r.HandleFunc("/api/category", deps.CategoryHandler.CreateCategory).Methods("POST")
	r.HandleFunc("/api/category/{categoryId}", deps.CategoryHandler.UpdateCategory).Methods("PUT")
	r.HandleFunc("/api/category/{categoryId}", deps.CategoryHandler.DeleteCategory).Methods("DELETE")
	r.HandleFunc("/api/category/{categoryId}/position", deps.CategoryHandler.SetCategoryPosition).Methods("PUT")

	// Budget Plan
	r.HandleFunc("/api/budgetplan", deps.BudgetPlanHandler.ListPlans).Methods("GET")
	r.HandleFunc("/api/budgetplan", deps.BudgetPlanHandler.CreatePlan).Methods("POST")
	r.HandleFunc("/api/budgetplan/{planId}", deps.BudgetPlanHandler.GetPlan).Methods("GET")
	r.HandleFunc("/api/budgetplan/{planId}", deps.BudgetPlanHandler.UpdatePlan).Methods("PUT")
	r.HandleFunc("/api/budgetplan/{planId}", deps.BudgetPlanHandler.DeletePlan).Methods("DELETE")

	// Budget Item
	r.HandleFunc("/api/budgetplan/{planId}/item", deps.BudgetPlanHandler.RegisterItem).Methods("POST")
	r.HandleFunc("/api/budgetplan/{planId}/item/{itemId}", deps.BudgetPlanHandler.UpdateItem).Methods("PUT")
	r.HandleFunc("/api/budgetplan/{planId}/item/{itemId}/position", deps.BudgetPlanHandler.SetItemPosition).Methods("PUT")
	r.HandleFunc("/api/budgetplan/{planId}/item/{itemId}", deps.BudgetPlanHandler.DeleteItem).Methods("DELETE")

	// Transactions
	r.HandleFunc("/api/transaction", deps.TransactionHandler.ListTransactions).Methods("GET")
	r.HandleFunc("/api/transaction", deps.TransactionHandler.RecordTransaction).Methods("POST")
	r.HandleFunc("/api/transaction/{transactionUid}", deps.TransactionHandler.GetTransaction).Methods("GET")
	r.HandleFunc("/api/transaction/{transactionUid}", deps.TransactionHandler.UpdateTransaction).Methods("PUT")
	r.HandleFunc("/api/transaction/{transactionUid}", deps.TransactionHandler.DeleteTransaction).Methods("DELETE")

	// Reports
	r.HandleFunc("/api/report/monthly", deps.ReportHandler.GetMonthlyReport).Methods("GET")

	// Live updates
	r.HandleFunc("/api/live", deps.LiveHandler.Stream).Methods("GET")
}
