package budget

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

type BudgetPlanDTO struct {
	Id        int       `json:"id"`
	Name      string    `json:"name"`
	IsCurrent bool      `json:"isCurrent"`
	Items     []ItemDTO `json:"items,omitempty"`
}

type ItemDTO struct {
	ID           int             `json:"id"`
	CategoryId   int             `json:"categoryId"`
	MonthlyLimit decimal.Decimal `json:"monthlyLimit"`
	Position     int             `json:"position"`
}

type Handler struct {
	service Service
}

func NewBudgetPlanHandler(service Service) *Handler {
	return &Handler{service}
}

// ListPlans godoc
// @Summary List all budget plans
// @Description Get a list of all budget plans for the current user
// @Tags BudgetPlan
// @Produce json
// @Success 200 {array} BudgetPlanDTO
// @Failure 403 {string} string "User not found"
// @Router /api/budgetplan [get]
// @Security XUserId
func (handler *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing budget plans")
	w.Header().Set("Content-Type", "application/json")
	plans, err := handler.service.ListPlans(r.Context())
	if err != nil {
		rest.WriteServiceError(w, err)
		return
	}

	plansDTO := make([]BudgetPlanDTO, 0, len(plans))
	for _, plan := range plans {
		plansDTO = append(plansDTO, PlanToDTO(plan))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(plansDTO); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// CreatePlan godoc
// @Summary Create a new budget plan
// @Description The first plan of a user becomes the current one
// @Tags BudgetPlan
// @Accept json
// @Produce json
// @Param plan body BudgetPlanDTO true "Budget Plan"
// @Success 201 {object} BudgetPlanDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/budgetplan [post]
// @Security XUserId
func (handler *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new budget plan")
	w.Header().Set("Content-Type", "application/json")
	var planDTO BudgetPlanDTO
	if err := json.NewDecoder(r.Body).Decode(&planDTO); err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	if planDTO.Name == "" {
		rest.WriteValidationError(w, http.StatusBadRequest, "Plan name is required", "")
		return
	}

	plan, err := handler.service.CreatePlan(r.Context(), DTOToPlan(planDTO))
	if err != nil {
		rest.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(PlanToDTO(plan)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// GetPlan godoc
// @Summary Get a budget plan by ID
// @Description Retrieve a specific budget plan with all its items
// @Tags BudgetPlan
// @Produce json
// @Param planId path int true "Budget Plan ID"
// @Success 200 {object} BudgetPlanDTO
// @Failure 404 {object} object "Not Found"
// @Router /api/budgetplan/{planId} [get]
// @Security XUserId
func (handler *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	planId, ok := pathId(w, r, "planId")
	if !ok {
		return
	}

	plan, err := handler.service.GetPlan(r.Context(), planId)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(PlanToDTO(plan)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// UpdatePlan godoc
// @Summary Update an existing budget plan
// @Description Rename a plan or make it the current one
// @Tags BudgetPlan
// @Accept json
// @Produce json
// @Param planId path int true "Budget Plan ID"
// @Param plan body BudgetPlanDTO true "Budget Plan"
// @Success 200 {object} BudgetPlanDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {object} object "Not Found"
// @Router /api/budgetplan/{planId} [put]
// @Security XUserId
func (handler *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	log.Debug("Updating budget plan")
	w.Header().Set("Content-Type", "application/json")
	planId, ok := pathId(w, r, "planId")
	if !ok {
		return
	}
	var planDTO BudgetPlanDTO
	if err := json.NewDecoder(r.Body).Decode(&planDTO); err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	if planDTO.Id == 0 || planDTO.Id != planId {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid plan id in request body", "")
		return
	}
	plan := DTOToPlan(planDTO)
	plan.IsCurrent = planDTO.IsCurrent

	updatedPlan, err := handler.service.UpdatePlan(r.Context(), plan)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(PlanToDTO(updatedPlan)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// DeletePlan godoc
// @Summary Delete a budget plan
// @Description The current plan cannot be deleted
// @Tags BudgetPlan
// @Param planId path int true "Budget Plan ID"
// @Success 204 "No Content"
// @Failure 404 {object} object "Not Found"
// @Failure 409 {object} rest.ErrorResponse "Current plan"
// @Router /api/budgetplan/{planId} [delete]
// @Security XUserId
func (handler *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	log.Debug("Deleting budget plan")
	planId, ok := pathId(w, r, "planId")
	if !ok {
		return
	}
	deleted, err := handler.service.DeletePlan(r.Context(), planId)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		rest.WriteError(w, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterItem godoc
// @Summary Add a category limit to a plan
// @Tags BudgetItem
// @Accept json
// @Produce json
// @Param planId path int true "Budget Plan ID"
// @Param item body ItemDTO true "Budget Item"
// @Success 201 {object} ItemDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {object} object "Not Found"
// @Failure 409 {object} rest.ErrorResponse "Category already planned"
// @Router /api/budgetplan/{planId}/item [post]
// @Security XUserId
func (handler *Handler) RegisterItem(w http.ResponseWriter, r *http.Request) {
	log.Debug("Registering new budget item")
	w.Header().Set("Content-Type", "application/json")
	planId, ok := pathId(w, r, "planId")
	if !ok {
		return
	}

	var itemDTO ItemDTO
	if err := json.NewDecoder(r.Body).Decode(&itemDTO); err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	createdItem, err := handler.service.CreateItem(r.Context(), DTOToItem(planId, itemDTO))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(ItemToDTO(createdItem)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// UpdateItem godoc
// @Summary Change the monthly limit of a budget item
// @Tags BudgetItem
// @Accept json
// @Produce json
// @Param planId path int true "Budget Plan ID"
// @Param itemId path int true "Budget Item ID"
// @Param item body ItemDTO true "Budget Item"
// @Success 200 {object} ItemDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {object} object "Not Found"
// @Router /api/budgetplan/{planId}/item/{itemId} [put]
// @Security XUserId
func (handler *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	planId, ok := pathId(w, r, "planId")
	if !ok {
		return
	}
	itemId, ok := pathId(w, r, "itemId")
	if !ok {
		return
	}
	var itemDTO ItemDTO
	if err := json.NewDecoder(r.Body).Decode(&itemDTO); err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	if itemDTO.ID == 0 || itemDTO.ID != itemId {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid item id in request body", "")
		return
	}

	updatedItem, err := handler.service.UpdateItem(r.Context(), DTOToItem(planId, itemDTO))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ItemToDTO(updatedItem)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// DeleteItem godoc
// @Summary Delete a budget item
// @Tags BudgetItem
// @Param planId path int true "Budget Plan ID"
// @Param itemId path int true "Budget Item ID"
// @Success 204 "No Content"
// @Failure 404 {object} object "Not Found"
// @Router /api/budgetplan/{planId}/item/{itemId} [delete]
// @Security XUserId
func (handler *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemId, ok := pathId(w, r, "itemId")
	if !ok {
		return
	}

	deleted, err := handler.service.DeleteItem(r.Context(), itemId)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		rest.WriteError(w, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetItemPosition godoc
// @Summary Set position of a budget item
// @Description Move a budget item right after precedingId, 0 moves it first
// @Tags BudgetItem
// @Accept json
// @Param planId path int true "Budget Plan ID"
// @Param itemId path int true "Budget Item ID"
// @Param position body object{id=int,precedingId=int} true "Position details"
// @Success 200 "OK"
// @Failure 404 {object} object "Not Found"
// @Router /api/budgetplan/{planId}/item/{itemId}/position [put]
// @Security XUserId
func (handler *Handler) SetItemPosition(w http.ResponseWriter, r *http.Request) {
	planId, ok := pathId(w, r, "planId")
	if !ok {
		return
	}
	itemId, ok := pathId(w, r, "itemId")
	if !ok {
		return
	}

	var setPositionDTO struct {
		ID          int `json:"id"`
		PrecedingId int `json:"precedingId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&setPositionDTO); err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	moved, err := handler.service.MoveItemAfter(r.Context(), planId, itemId, setPositionDTO.PrecedingId)
	if err != nil {
		writeError(w, err)
		return
	}
	if !moved {
		rest.WriteError(w, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func pathId(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid "+name, err.Error())
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPlanNotFound), errors.Is(err, ErrBudgetPlanItemNotFound):
		rest.WriteError(w, http.StatusNotFound)
	case errors.Is(err, ErrBudgetItemInvalid):
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid budget item", err.Error())
	case errors.Is(err, ErrCategoryAlreadyPlanned):
		rest.WriteValidationError(w, http.StatusConflict, "Category already planned", "")
	case errors.Is(err, ErrDeletingCurrentPlan):
		rest.WriteValidationError(w, http.StatusConflict, "Cannot delete current plan", "Make another plan current first")
	default:
		rest.WriteServiceError(w, err)
	}
}

func PlanToDTO(plan BudgetPlan) BudgetPlanDTO {
	itemsDto := make([]ItemDTO, 0, len(plan.Items))
	for _, item := range plan.Items {
		itemsDto = append(itemsDto, ItemToDTO(item))
	}
	return BudgetPlanDTO{
		Id:        plan.Id,
		Name:      plan.Name,
		Items:     itemsDto,
		IsCurrent: plan.IsCurrent,
	}
}

func DTOToPlan(planDTO BudgetPlanDTO) BudgetPlan {
	items := make([]BudgetItem, 0, len(planDTO.Items))
	for _, itemDTO := range planDTO.Items {
		items = append(items, DTOToItem(planDTO.Id, itemDTO))
	}
	return BudgetPlan{
		Id:    planDTO.Id,
		Name:  planDTO.Name,
		Items: items,
	}
}

func ItemToDTO(item BudgetItem) ItemDTO {
	return ItemDTO{
		ID:           item.Id,
		CategoryId:   item.CategoryId,
		MonthlyLimit: item.MonthlyLimit,
		Position:     item.Position,
	}
}

func DTOToItem(planId int, itemDTO ItemDTO) BudgetItem {
	return BudgetItem{
		Id:           itemDTO.ID,
		PlanId:       planId,
		CategoryId:   itemDTO.CategoryId,
		MonthlyLimit: itemDTO.MonthlyLimit,
	}
}
