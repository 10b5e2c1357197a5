package handlers

import (
	"net/http"

	"micro-crm/backend/users-service/middleware"
	"micro-crm/backend/users-service/models"
	"micro-crm/backend/utils"
)

func (h *UserHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.Service.Register(r.Context(), req)
	respond(w, r, http.StatusCreated, resp, err)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.Service.Login(r.Context(), req)
	respond(w, r, http.StatusOK, resp, err)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		utils.WriteError(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid token")
		return
	}
	user, err := h.Service.Me(r.Context(), claims.Subject)
	respond(w, r, http.StatusOK, user, err)
}
