package account

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fundwise/fundwise/internal/rest"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type AccountDTO struct {
	Id             int             `json:"id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Currency       string          `json:"currency,omitempty"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	Archived       bool            `json:"archived"`
	Balance        decimal.Decimal `json:"balance"`
}

type Handler struct {
	service Service
}

func NewAccountHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListAccounts godoc
// @Summary List accounts
// @Description List accounts of the current user with their balances
// @Tags Account
// @Produce json
// @Param archived query bool false "Include archived accounts"
// @Success 200 {array} AccountDTO
// @Failure 403 {string} string "User not found"
// @Router /api/account [get]
// @Security XUserId
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing accounts")
	w.Header().Set("Content-Type", "application/json")

	includeArchived := r.URL.Query().Get("archived") == "true"
	accounts, err := h.service.List(r.Context(), includeArchived)
	if err != nil {
		rest.WriteServiceError(w, err)
		return
	}

	accountsDTO := make([]AccountDTO, 0, len(accounts))
	for _, account := range accounts {
		accountsDTO = append(accountsDTO, accountToDTO(account))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(accountsDTO); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// GetAccount godoc
// @Summary Get an account
// @Tags Account
// @Produce json
// @Param accountId path int true "Account ID"
// @Success 200 {object} AccountDTO
// @Failure 404 {object} object "Not Found"
// @Router /api/account/{accountId} [get]
// @Security XUserId
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	accountId, err := strconv.Atoi(mux.Vars(r)["accountId"])
	if err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid account id", err.Error())
		return
	}

	account, err := h.service.Get(r.Context(), accountId)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(accountToDTO(account)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// CreateAccount godoc
// @Summary Create an account
// @Description Currency defaults to the user's currency
// @Tags Account
// @Accept json
// @Produce json
// @Param account body AccountDTO true "Account"
// @Success 201 {object} AccountDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/account [post]
// @Security XUserId
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating account")
	w.Header().Set("Content-Type", "application/json")

	var accountDTO AccountDTO
	if err := json.NewDecoder(r.Body).Decode(&accountDTO); err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), dtoToAccount(accountDTO))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(accountToDTO(created)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// UpdateAccount godoc
// @Summary Update an account
// @Description Also used to archive or restore an account
// @Tags Account
// @Accept json
// @Produce json
// @Param accountId path int true "Account ID"
// @Param account body AccountDTO true "Account"
// @Success 200 {object} AccountDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {object} object "Not Found"
// @Router /api/account/{accountId} [put]
// @Security XUserId
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	accountId, err := strconv.Atoi(mux.Vars(r)["accountId"])
	if err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid account id", err.Error())
		return
	}

	var accountDTO AccountDTO
	if err := json.NewDecoder(r.Body).Decode(&accountDTO); err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	if accountDTO.Id != 0 && accountDTO.Id != accountId {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid account id in request body", "")
		return
	}
	accountDTO.Id = accountId

	updated, err := h.service.Update(r.Context(), dtoToAccount(accountDTO))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(accountToDTO(updated)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// DeleteAccount godoc
// @Summary Delete an account
// @Description Accounts with transactions cannot be deleted, archive them instead
// @Tags Account
// @Param accountId path int true "Account ID"
// @Success 204 "No Content"
// @Failure 404 {object} object "Not Found"
// @Failure 409 {object} rest.ErrorResponse "Account in use"
// @Router /api/account/{accountId} [delete]
// @Security XUserId
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountId, err := strconv.Atoi(mux.Vars(r)["accountId"])
	if err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid account id", err.Error())
		return
	}
	if err := h.service.Delete(r.Context(), accountId); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		rest.WriteError(w, http.StatusNotFound)
	case errors.Is(err, ErrAccountInvalid):
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid account", err.Error())
	case errors.Is(err, ErrAccountNameTaken):
		rest.WriteValidationError(w, http.StatusConflict, "Account name already used", "")
	case errors.Is(err, ErrAccountInUse):
		rest.WriteValidationError(w, http.StatusConflict, "Account has transactions", "Archive the account instead")
	default:
		rest.WriteServiceError(w, err)
	}
}

func accountToDTO(account Account) AccountDTO {
	return AccountDTO{
		Id:             account.Id,
		Name:           account.Name,
		Type:           string(account.Type),
		Currency:       account.Currency,
		OpeningBalance: account.OpeningBalance,
		Archived:       account.Archived,
		Balance:        account.Balance,
	}
}

func dtoToAccount(accountDTO AccountDTO) Account {
	return Account{
		Id:             accountDTO.Id,
		Name:           accountDTO.Name,
		Type:           Type(accountDTO.Type),
		Currency:       accountDTO.Currency,
		OpeningBalance: accountDTO.OpeningBalance,
		Archived:       accountDTO.Archived,
	}
}
