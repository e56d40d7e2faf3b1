package transaction

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fundwise/fundwise/internal/rest"
	"github.com/fundwise/fundwise/internal/utils"
	"github.com/fundwise/fundwise/pkg/user"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

type TransactionDTO struct {
	Uid         string          `json:"uid"`
	AccountId   int             `json:"accountId"`
	CategoryId  int             `json:"categoryId,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Description string          `json:"description,omitempty"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

type Handler struct {
	service Service
	clock   utils.Clock
}

func NewTransactionHandler(service Service, clock utils.Clock) *Handler {
	return &Handler{service: service, clock: clock}
}

// ListTransactions godoc
// @Summary List transactions
// @Description Transactions in [from, to), or the last N when "last" is given.
// @Description Without parameters the current budget month is returned.
// @Tags Transaction
// @Produce json
// @Param from query string false "Start, RFC3339 or YYYY-MM-DD"
// @Param to query string false "End (exclusive), RFC3339 or YYYY-MM-DD"
// @Param last query int false "Number of most recent transactions"
// @Success 200 {array} TransactionDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/transaction [get]
// @Security XUserId
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	query := r.URL.Query()

	var transactions []Transaction
	if last := query.Get("last"); last != "" {
		limit, err := strconv.Atoi(last)
		if err != nil {
			rest.WriteValidationError(w, http.StatusBadRequest, "Invalid last parameter", err.Error())
			return
		}
		transactions, err = h.service.Last(r.Context(), limit)
		if err != nil {
			writeError(w, err)
			return
		}
	} else {
		period, err := h.period(r)
		if errors.Is(err, user.ErrNoUser) {
			rest.WriteServiceError(w, err)
			return
		}
		if err != nil {
			rest.WriteValidationError(w, http.StatusBadRequest, "Invalid period", err.Error())
			return
		}
		transactions, err = h.service.List(r.Context(), period)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	transactionsDTO := make([]TransactionDTO, 0, len(transactions))
	for _, transaction := range transactions {
		transactionsDTO = append(transactionsDTO, transactionToDTO(transaction))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(transactionsDTO); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// RecordTransaction godoc
// @Summary Record a transaction
// @Description Negative amounts are expenses. Currency defaults to the account's currency.
// @Tags Transaction
// @Accept json
// @Produce json
// @Param transaction body TransactionDTO true "Transaction"
// @Success 201 {object} TransactionDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/transaction [post]
// @Security XUserId
func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	log.Debug("Recording transaction")
	w.Header().Set("Content-Type", "application/json")

	var transactionDTO TransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&transactionDTO); err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	recorded, err := h.service.Record(r.Context(), dtoToTransaction(transactionDTO))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(transactionToDTO(recorded)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// GetTransaction godoc
// @Summary Get a transaction
// @Tags Transaction
// @Produce json
// @Param transactionUid path string true "Transaction UID"
// @Success 200 {object} TransactionDTO
// @Failure 404 {object} object "Not Found"
// @Router /api/transaction/{transactionUid} [get]
// @Security XUserId
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	transaction, err := h.service.Get(r.Context(), mux.Vars(r)["transactionUid"])
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(transactionToDTO(transaction)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// UpdateTransaction godoc
// @Summary Update a transaction
// @Tags Transaction
// @Accept json
// @Produce json
// @Param transactionUid path string true "Transaction UID"
// @Param transaction body TransactionDTO true "Transaction"
// @Success 200 {object} TransactionDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {object} object "Not Found"
// @Router /api/transaction/{transactionUid} [put]
// @Security XUserId
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	uid := mux.Vars(r)["transactionUid"]

	var transactionDTO TransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&transactionDTO); err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	if transactionDTO.Uid != "" && transactionDTO.Uid != uid {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid transaction uid in request body", "")
		return
	}
	transactionDTO.Uid = uid

	updated, err := h.service.Update(r.Context(), dtoToTransaction(transactionDTO))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(transactionToDTO(updated)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// DeleteTransaction godoc
// @Summary Delete a transaction
// @Tags Transaction
// @Param transactionUid path string true "Transaction UID"
// @Success 204 "No Content"
// @Failure 404 {object} object "Not Found"
// @Router /api/transaction/{transactionUid} [delete]
// @Security XUserId
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["transactionUid"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// period reads from/to, defaulting to the budget month that contains now.
func (h *Handler) period(r *http.Request) (utils.Period, error) {
	currentUser, err := user.CurrentUser(r.Context())
	if err != nil {
		return utils.Period{}, err
	}
	loc := currentUser.Settings.Location()
	current := utils.BudgetMonthOf(h.clock.Now(), currentUser.Settings.MonthStartDay, loc).
		Period(currentUser.Settings.MonthStartDay, loc)

	period := current
	if from := r.URL.Query().Get("from"); from != "" {
		if period.From, err = parseTime(from, loc); err != nil {
			return utils.Period{}, err
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if period.To, err = parseTime(to, loc); err != nil {
			return utils.Period{}, err
		}
	}
	return period, nil
}

func parseTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, value, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTransactionNotFound):
		rest.WriteError(w, http.StatusNotFound)
	case errors.Is(err, ErrTransactionInvalid):
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid transaction", err.Error())
	default:
		rest.WriteServiceError(w, err)
	}
}

func transactionToDTO(transaction Transaction) TransactionDTO {
	return TransactionDTO{
		Uid:         transaction.Uid,
		AccountId:   transaction.AccountId,
		CategoryId:  transaction.CategoryId,
		Amount:      transaction.Amount,
		Currency:    transaction.Currency,
		Description: transaction.Description,
		OccurredAt:  transaction.OccurredAt,
	}
}

func dtoToTransaction(transactionDTO TransactionDTO) Transaction {
	return Transaction{
		Uid:         transactionDTO.Uid,
		AccountId:   transactionDTO.AccountId,
		CategoryId:  transactionDTO.CategoryId,
		Amount:      transactionDTO.Amount,
		Currency:    transactionDTO.Currency,
		Description: transactionDTO.Description,
		OccurredAt:  transactionDTO.OccurredAt,
	}
}
