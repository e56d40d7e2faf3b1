package report

import (
	"bytes"
	"encoding/csv"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Renderer interface {
	Render(report MonthlyReport) (string, error)
}

type CsvRendererImpl struct {
}

func NewCsvRenderer() *CsvRendererImpl {
	return &CsvRendererImpl{}
}

func (r *CsvRendererImpl) Render(report MonthlyReport) (string, error) {
	data := make([][]string, 0, len(report.Categories)+4)
	data = append(data, []string{"Category", "Limit (" + report.Currency + ")", "Spent", "Remaining", "Percent"})
	for _, c := range report.Categories {
		percent := ""
		if c.Limit.IsPositive() {
			percent = c.Percent.StringFixed(2)
		}
		data = append(data, []string{
			c.Category.Name,
			money(c.Limit),
			money(c.Spent),
			money(c.Remaining),
			percent,
		})
	}
	if !report.Uncategorized.IsZero() {
		data = append(data, []string{"Uncategorized", "", money(report.Uncategorized), "", ""})
	}
	data = append(data,
		[]string{"Total", money(report.TotalLimit), money(report.TotalExpense), money(report.TotalRemaining), ""},
		[]string{"Income", "", money(report.TotalIncome), "", ""},
	)

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	if err := writer.WriteAll(data); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}
	return b.String(), nil
}

func money(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
