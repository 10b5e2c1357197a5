package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"micro-crm/backend/notifications-service/models"
	"micro-crm/backend/notifications-service/services"
	"micro-crm/backend/utils"
	"micro-crm/backend/utils/logging"

	"github.com/gorilla/mux"
)

type NotificationHandler struct {
	service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (nh *NotificationHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/notifications/", nh.CreateNotification).Methods(http.MethodPost)
	r.HandleFunc("/api/notifications/user/{userId}", nh.ListUserNotifications).Methods(http.MethodGet)
	r.HandleFunc("/api/notifications/read", nh.MarkNotificationAsRead).Methods(http.MethodPut)
	r.HandleFunc("/api/notifications/", nh.DeleteNotification).Methods(http.MethodDelete)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "notifications-service"})
	}).Methods(http.MethodGet)
}

func (nh *NotificationHandler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.Logger.Warnf("Event ID: INVALID_PAYLOAD, Description: CreateNotification: %v", err)
		utils.WriteError(w, r, http.StatusBadRequest, "Validation Error", "Invalid request payload")
		return
	}

	n, err := nh.service.CreateNotification(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, n)
}

func (nh *NotificationHandler) ListUserNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := nh.service.ListForUser(r.Context(), utils.UserID(r), mux.Vars(r)["userId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, notifications)
}

func (nh *NotificationHandler) MarkNotificationAsRead(w http.ResponseWriter, r *http.Request) {
	ref, ok := decodeRef(w, r)
	if !ok {
		return
	}
	if err := nh.service.MarkAsRead(r.Context(), utils.UserID(r), ref); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (nh *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	ref, ok := decodeRef(w, r)
	if !ok {
		return
	}
	if err := nh.service.Delete(r.Context(), utils.UserID(r), ref); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeRef(w http.ResponseWriter, r *http.Request) (models.NotificationRef, bool) {
	var ref models.NotificationRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		utils.WriteError(w, r, http.StatusBadRequest, "Validation Error", "Invalid request payload")
		return ref, false
	}
	return ref, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		utils.WriteError(w, r, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.WriteError(w, r, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, services.ErrValidation):
		utils.WriteError(w, r, http.StatusBadRequest, "Validation Error", err.Error())
	case errors.Is(err, models.ErrNotificationNotFound):
		utils.WriteError(w, r, http.StatusNotFound, "Not Found", err.Error())
	default:
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %s %s: %v", r.Method, r.URL.Path, err)
		utils.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
	}
}
