package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"micro-crm/backend/users-service/middleware"
	"micro-crm/backend/users-service/models"
	"micro-crm/backend/users-service/services"
	"micro-crm/backend/utils"
	"micro-crm/backend/utils/logging"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	Service     *services.UserService
	Tokens      middleware.TokenValidator
	AuthLimiter *middleware.RateLimiter
	APILimiter  *middleware.RateLimiter
}

func (h *UserHandler) Register(r *mux.Router) {
	byIP := h.AuthLimiter.Limit(middleware.ClientIP)
	r.Handle("/api/auth/register", byIP(http.HandlerFunc(h.RegisterUser))).Methods(http.MethodPost)
	r.Handle("/api/auth/login", byIP(http.HandlerFunc(h.Login))).Methods(http.MethodPost)

	authenticated := middleware.JWTAuthMiddleware(h.Tokens)
	bySubject := h.APILimiter.Limit(middleware.SubjectOrIP)
	r.Handle("/api/auth/me", authenticated(bySubject(http.HandlerFunc(h.Me)))).Methods(http.MethodGet)

	r.HandleFunc("/api/users/", h.ListUsers).Methods(http.MethodGet)
	r.HandleFunc("/api/users/", h.CreateUser).Methods(http.MethodPost)
	r.HandleFunc("/api/users/{id}", h.GetUser).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}", h.UpdateUser).Methods(http.MethodPut)
	r.HandleFunc("/api/users/{id}", h.DeleteUser).Methods(http.MethodDelete)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "users-service"})
	}).Methods(http.MethodGet)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := services.ParsePageRequest(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	users, err := h.Service.ListUsers(r.Context(), page)
	respond(w, r, http.StatusOK, users, err)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.Service.CreateUser(r.Context(), req)
	respond(w, r, http.StatusCreated, user, err)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Service.GetUser(r.Context(), mux.Vars(r)["id"])
	respond(w, r, http.StatusOK, user, err)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.Service.UpdateUser(r.Context(), mux.Vars(r)["id"], req)
	respond(w, r, http.StatusOK, user, err)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	err := h.Service.DeleteUser(r.Context(), mux.Vars(r)["id"])
	respond(w, r, http.StatusNoContent, nil, err)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.WriteError(w, r, http.StatusBadRequest, "Validation Error", "Invalid request payload")
		return false
	}
	return true
}

func respond(w http.ResponseWriter, r *http.Request, status int, body any, err error) {
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	utils.WriteJSON(w, status, body)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		utils.WriteError(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid email or password")
	case errors.Is(err, models.ErrUserDisabled):
		utils.WriteError(w, r, http.StatusUnauthorized, "Unauthorized", "User account is disabled")
	case errors.Is(err, services.ErrValidation):
		utils.WriteError(w, r, http.StatusBadRequest, "Validation Error", err.Error())
	case errors.Is(err, models.ErrEmailExists):
		utils.WriteError(w, r, http.StatusBadRequest, "Validation Error", "Email already exists")
	case errors.Is(err, models.ErrUserNotFound):
		utils.WriteError(w, r, http.StatusNotFound, "Not Found", "User not found")
	default:
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %s %s: %v", r.Method, r.URL.Path, err)
		utils.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
	}
}
