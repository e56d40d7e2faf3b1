package category

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fundwise/fundwise/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type CategoryDTO struct {
	Id       int    `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Icon     string `json:"icon,omitempty"`
	Color    string `json:"color,omitempty"`
	Position int    `json:"position"`
}

type Handler struct {
	service Service
}

func NewCategoryHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListCategories godoc
// @Summary List categories
// @Description Categories of the current user ordered by position
// @Tags Category
// @Produce json
// @Success 200 {array} CategoryDTO
// @Router /api/category [get]
// @Security XUserId
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	categories, err := h.service.List(r.Context())
	if err != nil {
		rest.WriteServiceError(w, err)
		return
	}

	categoriesDTO := make([]CategoryDTO, 0, len(categories))
	for _, category := range categories {
		categoriesDTO = append(categoriesDTO, categoryToDTO(category))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(categoriesDTO); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// CreateCategory godoc
// @Summary Create a category
// @Description The category is appended after the existing ones
// @Tags Category
// @Accept json
// @Produce json
// @Param category body CategoryDTO true "Category"
// @Success 201 {object} CategoryDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/category [post]
// @Security XUserId
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating category")
	w.Header().Set("Content-Type", "application/json")

	var categoryDTO CategoryDTO
	if err := json.NewDecoder(r.Body).Decode(&categoryDTO); err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), dtoToCategory(categoryDTO))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(categoryToDTO(created)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// UpdateCategory godoc
// @Summary Update a category
// @Tags Category
// @Accept json
// @Produce json
// @Param categoryId path int true "Category ID"
// @Param category body CategoryDTO true "Category"
// @Success 200 {object} CategoryDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 404 {object} object "Not Found"
// @Router /api/category/{categoryId} [put]
// @Security XUserId
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	categoryId, err := strconv.Atoi(mux.Vars(r)["categoryId"])
	if err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid category id", err.Error())
		return
	}

	var categoryDTO CategoryDTO
	if err := json.NewDecoder(r.Body).Decode(&categoryDTO); err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	if categoryDTO.Id != 0 && categoryDTO.Id != categoryId {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid category id in request body", "")
		return
	}
	categoryDTO.Id = categoryId

	updated, err := h.service.Update(r.Context(), dtoToCategory(categoryDTO))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(categoryToDTO(updated)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// DeleteCategory godoc
// @Summary Delete a category
// @Description Transactions keep existing without a category
// @Tags Category
// @Param categoryId path int true "Category ID"
// @Success 204 "No Content"
// @Failure 404 {object} object "Not Found"
// @Router /api/category/{categoryId} [delete]
// @Security XUserId
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryId, err := strconv.Atoi(mux.Vars(r)["categoryId"])
	if err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid category id", err.Error())
		return
	}
	if err := h.service.Delete(r.Context(), categoryId); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCategoryPosition godoc
// @Summary Move a category
// @Description Place the category right after precedingId, 0 moves it first
// @Tags Category
// @Accept json
// @Param categoryId path int true "Category ID"
// @Param position body object{id=int,precedingId=int} true "Position details"
// @Success 200 "OK"
// @Failure 404 {object} object "Not Found"
// @Router /api/category/{categoryId}/position [put]
// @Security XUserId
func (h *Handler) SetCategoryPosition(w http.ResponseWriter, r *http.Request) {
	categoryId, err := strconv.Atoi(mux.Vars(r)["categoryId"])
	if err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid category id", err.Error())
		return
	}

	var setPositionDTO struct {
		Id          int `json:"id"`
		PrecedingId int `json:"precedingId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&setPositionDTO); err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	if err := h.service.MoveAfter(r.Context(), categoryId, setPositionDTO.PrecedingId); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCategoryNotFound):
		rest.WriteError(w, http.StatusNotFound)
	case errors.Is(err, ErrCategoryInvalid):
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid category", err.Error())
	case errors.Is(err, ErrCategoryNameTaken):
		rest.WriteValidationError(w, http.StatusConflict, "Category name already used", "")
	default:
		rest.WriteServiceError(w, err)
	}
}

func categoryToDTO(category Category) CategoryDTO {
	return CategoryDTO{
		Id:       category.Id,
		Name:     category.Name,
		Kind:     string(category.Kind),
		Icon:     category.Icon,
		Color:    category.Color,
		Position: category.Position,
	}
}

func dtoToCategory(categoryDTO CategoryDTO) Category {
	return Category{
		Id:    categoryDTO.Id,
		Name:  categoryDTO.Name,
		Kind:  Kind(categoryDTO.Kind),
		Icon:  categoryDTO.Icon,
		Color: categoryDTO.Color,
	}
}
