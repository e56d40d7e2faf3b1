package account

import "github.com/shopspring/decimal"

type Type string

const (
	Checking Type = "checking"
	Savings  Type = "savings"
	Credit   Type = "credit"
	Cash     Type = "cash"
)

func (t Type) Valid() bool {
	switch t {
	case Checking, Savings, Credit, Cash:
		return true
	}
	return false
}

type Account struct {
	Id             int
	Name           string
	Type           Type
	Currency       string
	OpeningBalance decimal.Decimal
	Archived       bool
	// Balance is the opening balance plus every transaction booked in the account's currency.
	Balance decimal.Decimal
}
