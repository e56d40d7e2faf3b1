package pubsub

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicTransactionRecorded   Topic = "transaction.recorded"
	TopicTransactionUpdated    Topic = "transaction.updated"
	TopicTransactionDeleted    Topic = "transaction.deleted"
	TopicBudgetPlanItemUpdated Topic = "budget_plan.item.updated"

	TypeBudgetThresholdReached = "budget.threshold_reached"
)

type TransactionRecorded struct {
	UserId     int             `json:"userId"`
	Uid        string          `json:"uid"`
	AccountId  int             `json:"accountId"`
	CategoryId int             `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	OccurredAt time.Time       `json:"occurredAt"`
	// Previous is set on updates and holds where the transaction was booked before.
	Previous *TransactionPlacement `json:"previous,omitempty"`
}

// TransactionPlacement is the category and time a transaction counts against.
type TransactionPlacement struct {
	CategoryId int       `json:"categoryId"`
	OccurredAt time.Time `json:"occurredAt"`
}

type TransactionDeleted struct {
	UserId     int       `json:"userId"`
	Uid        string    `json:"uid"`
	CategoryId int       `json:"categoryId"`
	OccurredAt time.Time `json:"occurredAt"`
}

type BudgetPlanItemUpdated struct {
	Id           int             `json:"id"`
	PlanId       int             `json:"planId"`
	CategoryId   int             `json:"categoryId"`
	MonthlyLimit decimal.Decimal `json:"monthlyLimit"`
	Position     int             `json:"position"`
}

// BudgetThresholdReached is sent when spending in a category crosses a fraction
// (0.8, 1.0) of its monthly limit.
type BudgetThresholdReached struct {
	CategoryId int             `json:"categoryId"`
	Category   string          `json:"category"`
	Threshold  decimal.Decimal `json:"threshold"`
	Limit      decimal.Decimal `json:"limit"`
	Spent      decimal.Decimal `json:"spent"`
	Currency   string          `json:"currency"`
	Month      string          `json:"month"`
}
