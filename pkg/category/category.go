package category

type Kind string

const (
	Expense Kind = "expense"
	Income  Kind = "income"
)

func (k Kind) Valid() bool {
	return k == Expense || k == Income
}

type Category struct {
	Id       int
	Name     string
	Kind     Kind
	Icon     string
	Color    string
	Position int
}
