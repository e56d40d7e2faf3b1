package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCsvRendererImpl_Render(t *testing.T) {
	tests := []struct {
		name   string
		report MonthlyReport
		want   string
	}{
		{
			name: "categories with totals",
			report: MonthlyReport{
				Month:    march,
				Currency: "EUR",
				Categories: []CategoryReport{
					{
						Category:  food,
						Limit:     decimal.NewFromInt(200),
						Spent:     decimal.RequireFromString("59"),
						Remaining: decimal.RequireFromString("141"),
						Percent:   decimal.RequireFromString("29.5"),
					},
					{
						Category:  rent,
						Limit:     decimal.Zero,
						Spent:     decimal.NewFromInt(10),
						Remaining: decimal.NewFromInt(-10),
						Percent:   decimal.Zero,
					},
				},
				Uncategorized:  decimal.RequireFromString("4.5"),
				TotalIncome:    decimal.NewFromInt(3000),
				TotalExpense:   decimal.RequireFromString("73.5"),
				TotalLimit:     decimal.NewFromInt(200),
				TotalRemaining: decimal.RequireFromString("126.5"),
			},
			want: "Category,Limit (EUR),Spent,Remaining,Percent\n" +
				"Food,200.00,59.00,141.00,29.50\n" +
				"Rent,0.00,10.00,-10.00,\n" +
				"Uncategorized,,4.50,,\n" +
				"Total,200.00,73.50,126.50,\n" +
				"Income,,3000.00,,\n",
		},
		{
			name:   "empty month",
			report: MonthlyReport{Month: march, Currency: "PLN"},
			want: "Category,Limit (PLN),Spent,Remaining,Percent\n" +
				"Total,0.00,0.00,0.00,\n" +
				"Income,,0.00,,\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewCsvRenderer().Render(tt.report)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
