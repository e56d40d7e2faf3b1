package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fundwise/fundwise/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type UserDTO struct {
	Uid         string      `json:"uid"`
	Username    string      `json:"username"`
	DisplayName string      `json:"displayName"`
	Settings    SettingsDTO `json:"settings"`
}

type SettingsDTO struct {
	Currency      string `json:"currency"`
	Timezone      string `json:"timezone"`
	MonthStartDay int    `json:"monthStartDay"`
}

type Handler struct {
	userService Service
}

func NewHandler(userService Service) *Handler {
	return &Handler{
		userService: userService,
	}
}

// CreateUser godoc
// @Summary Create a new user
// @Tags User
// @Accept json
// @Produce json
// @Param user body UserDTO true "User"
// @Success 201 {object} UserDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/user [post]
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Debug("Creating user")

	var user UserDTO
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	log.Tracef("Creating new user: %+v", user)

	if !validateNames(w, user) {
		return
	}

	createdUser, err := h.userService.CreateUser(r.Context(), dtoToUser(user))
	if err != nil {
		if errors.Is(err, ErrUserDataInvalid) {
			rest.WriteValidationError(w, http.StatusBadRequest, "Invalid user data", err.Error())
			return
		}
		rest.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(userToDTO(&createdUser)); err != nil {
		log.Errorf("failed to encode response: %v", err)
		return
	}
}

// CurrentUser godoc
// @Summary Get current user
// @Tags User
// @Produce json
// @Success 200 {object} UserDTO
// @Failure 404 {string} string "User Not Found"
// @Router /api/user/current [get]
// @Security XUserId
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Getting current user")

	currentUser, err := h.userService.GetCurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			rest.WriteError(w, http.StatusNotFound)
			return
		}
		rest.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(userToDTO(&currentUser)); err != nil {
		log.Errorf("failed to encode response: %v", err)
		return
	}
}

// UpdateUser godoc
// @Summary Update current user
// @Tags User
// @Accept json
// @Produce json
// @Param user body UserDTO true "User"
// @Success 200 {object} UserDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/user/current [put]
// @Security XUserId
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Updating user")

	var user UserDTO
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		rest.WriteValidationError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	if !validateNames(w, user) {
		return
	}

	updatedUser, err := h.userService.UpdateUser(r.Context(), dtoToUser(user))
	if err != nil {
		if errors.Is(err, ErrUserDataInvalid) {
			rest.WriteValidationError(w, http.StatusBadRequest, "Invalid user data", err.Error())
			return
		}
		if errors.Is(err, ErrUserNotFound) {
			rest.WriteError(w, http.StatusNotFound)
			return
		}
		rest.WriteServiceError(w, err)
		return
	}
	log.Debugf("Updated user: %d", updatedUser.Id)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(userToDTO(&updatedUser)); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// IsUsernameAvailable godoc
// @Summary Check username availability
// @Tags User
// @Produce json
// @Param username query string true "Username to check"
// @Success 200 {object} object{available=bool}
// @Router /api/user/name-availability [get]
func (h *Handler) IsUsernameAvailable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	username := r.URL.Query().Get("username")
	if len(username) == 0 {
		rest.WriteValidationError(w, http.StatusBadRequest, "Username is required", "")
		return
	}

	isAvailable, err := h.userService.IsUsernameAvailable(r.Context(), username)
	if err != nil {
		rest.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]bool{"available": isAvailable}); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// GetAvailableUsers godoc
// @Summary Get all users
// @Tags User
// @Produce json
// @Success 200 {array} UserDTO
// @Router /api/user [get]
func (h *Handler) GetAvailableUsers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	users, err := h.userService.GetAllUsers(r.Context())
	if err != nil {
		rest.WriteServiceError(w, err)
		return
	}

	usersDTO := make([]UserDTO, 0, len(users))
	for _, user := range users {
		usersDTO = append(usersDTO, userToDTO(&user))
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(usersDTO); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags User
// @Param userUid path string true "User UID"
// @Success 204 "No Content"
// @Failure 404 {string} string "User not found"
// @Router /api/user/{userUid} [delete]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userUid := mux.Vars(r)["userUid"]
	user, err := h.userService.GetUserByUid(r.Context(), userUid)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			rest.WriteError(w, http.StatusNotFound)
			return
		}
		rest.WriteServiceError(w, err)
		return
	}
	log.Debugf("Deleting user with id: %d", user.Id)
	if err := h.userService.DeleteUser(r.Context(), user.Id); err != nil {
		rest.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validateNames(w http.ResponseWriter, user UserDTO) bool {
	if len(user.Username) == 0 {
		rest.WriteValidationError(w, http.StatusBadRequest, "Username is required", "")
		return false
	}
	if len(user.DisplayName) == 0 {
		rest.WriteValidationError(w, http.StatusBadRequest, "Display name is required", "")
		return false
	}
	return true
}

func userToDTO(user *User) UserDTO {
	return UserDTO{
		Uid:         user.Uid,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Settings: SettingsDTO{
			Currency:      user.Settings.Currency,
			Timezone:      user.Settings.Timezone,
			MonthStartDay: user.Settings.MonthStartDay,
		},
	}
}

func dtoToUser(userDTO UserDTO) User {
	return User{
		Uid:         userDTO.Uid,
		Username:    userDTO.Username,
		DisplayName: userDTO.DisplayName,
		Settings: Settings{
			Currency:      userDTO.Settings.Currency,
			Timezone:      userDTO.Settings.Timezone,
			MonthStartDay: userDTO.Settings.MonthStartDay,
		},
	}
}
