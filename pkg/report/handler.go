package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fundwise/fundwise/internal/rest"
	"github.com/fundwise/fundwise/internal/utils"
	"github.com/fundwise/fundwise/pkg/user"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type CategoryReportDTO struct {
	CategoryId int             `json:"categoryId"`
	Name       string          `json:"name"`
	Icon       string          `json:"icon,omitempty"`
	Color      string          `json:"color,omitempty"`
	Limit      decimal.Decimal `json:"limit"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percent    decimal.Decimal `json:"percent"`
}

type MonthlyReportDTO struct {
	Month          string              `json:"month"`
	From           time.Time           `json:"from"`
	To             time.Time           `json:"to"`
	Currency       string              `json:"currency"`
	Categories     []CategoryReportDTO `json:"categories"`
	Uncategorized  decimal.Decimal     `json:"uncategorized"`
	TotalIncome    decimal.Decimal     `json:"totalIncome"`
	TotalExpense   decimal.Decimal     `json:"totalExpense"`
	TotalLimit     decimal.Decimal     `json:"totalLimit"`
	TotalRemaining decimal.Decimal     `json:"totalRemaining"`
}

type Handler struct {
	service     Service
	csvRenderer Renderer
	clock       utils.Clock
}

func NewReportHandler(service Service, csvRenderer Renderer, clock utils.Clock) *Handler {
	return &Handler{service: service, csvRenderer: csvRenderer, clock: clock}
}

// GetMonthlyReport godoc
// @Summary Monthly budget report
// @Description Limits, spending and totals of a budget month in the user's currency.
// @Description Responds with CSV when the client accepts text/csv.
// @Tags Report
// @Produce json,text/csv
// @Param month query string false "Budget month, YYYY-MM. Defaults to the current one"
// @Success 200 {object} MonthlyReportDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid month"
// @Router /api/report/monthly [get]
// @Security XUserId
func (h *Handler) GetMonthlyReport(w http.ResponseWriter, r *http.Request) {
	month, err := h.month(r)
	if errors.Is(err, user.ErrNoUser) {
		rest.WriteServiceError(w, err)
		return
	}
	if err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid month", err.Error())
		return
	}

	report, err := h.service.Monthly(r.Context(), month)
	if err != nil {
		rest.WriteServiceError(w, fmt.Errorf("failed to build report for %s: %w", month, err))
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/csv") {
		csv, err := h.csvRenderer.Render(report)
		if err != nil {
			rest.WriteServiceError(w, fmt.Errorf("failed to render report for %s: %w", month, err))
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="report-`+month.String()+`.csv"`)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(csv)); err != nil {
			log.Errorf("failed to write csv report: %v", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(reportToDTO(report)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func (h *Handler) month(r *http.Request) (utils.BudgetMonth, error) {
	if month := r.URL.Query().Get("month"); month != "" {
		return utils.ParseBudgetMonth(month)
	}
	currentUser, err := user.CurrentUser(r.Context())
	if err != nil {
		return utils.BudgetMonth{}, err
	}
	settings := currentUser.Settings
	return utils.BudgetMonthOf(h.clock.Now(), settings.MonthStartDay, settings.Location()), nil
}

func reportToDTO(report MonthlyReport) MonthlyReportDTO {
	categories := make([]CategoryReportDTO, 0, len(report.Categories))
	for _, c := range report.Categories {
		categories = append(categories, CategoryReportDTO{
			CategoryId: c.Category.Id,
			Name:       c.Category.Name,
			Icon:       c.Category.Icon,
			Color:      c.Category.Color,
			Limit:      c.Limit,
			Spent:      c.Spent,
			Remaining:  c.Remaining,
			Percent:    c.Percent,
		})
	}
	return MonthlyReportDTO{
		Month:          report.Month.String(),
		From:           report.Period.From,
		To:             report.Period.To,
		Currency:       report.Currency,
		Categories:     categories,
		Uncategorized:  report.Uncategorized,
		TotalIncome:    report.TotalIncome,
		TotalExpense:   report.TotalExpense,
		TotalLimit:     report.TotalLimit,
		TotalRemaining: report.TotalRemaining,
	}
}
