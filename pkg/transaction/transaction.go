package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	Id  int
	Uid string
	// AccountId is the account the money moved on.
	AccountId int
	// CategoryId is 0 for uncategorized transactions.
	CategoryId int
	// Amount is negative for expenses and positive for income.
	Amount      decimal.Decimal
	Currency    string
	Description string
	OccurredAt  time.Time
}

func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}
