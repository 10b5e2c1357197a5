package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"micro-crm/backend/tasks-service/lifecycle"
	"micro-crm/backend/tasks-service/models"
	"micro-crm/backend/tasks-service/services"
	"micro-crm/backend/utils"
	"micro-crm/backend/utils/logging"

	"github.com/gorilla/mux"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// Register mounts the task routes on r.
func (h *TaskHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/tasks/", h.GetAllTasks).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/", h.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/project/{projectId}", h.GetTasksByProject).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/project/{projectId}", h.DeleteTasksByProject).Methods(http.MethodDelete)
	r.HandleFunc("/api/tasks/project/{projectId}/activity", h.GetProjectActivity).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/project/{projectId}/analytics", h.GetProjectAnalytics).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/user/{userId}", h.GetTasksByUser).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{taskId}", h.GetTask).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{taskId}", h.UpdateTask).Methods(http.MethodPut)
	r.HandleFunc("/api/tasks/{taskId}", h.DeleteTask).Methods(http.MethodDelete)
	r.HandleFunc("/api/tasks/{taskId}/transition", h.TransitionTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{taskId}/transitions", h.GetTransitions).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
}

func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "tasks-service"})
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, r, http.StatusBadRequest, "Validation Error", "Invalid request payload")
		return
	}

	task, err := h.service.CreateTask(r.Context(), utils.UserID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) GetAllTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListTasks(r.Context(), utils.UserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) GetTasksByProject(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListByProject(r.Context(), utils.UserID(r), mux.Vars(r)["projectId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) DeleteTasksByProject(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.DeleteProjectTasks(r.Context(), utils.UserID(r), mux.Vars(r)["projectId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": count})
}

func (h *TaskHandler) GetTasksByUser(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListByUser(r.Context(), utils.UserID(r), mux.Vars(r)["userId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.GetTask(r.Context(), utils.UserID(r), mux.Vars(r)["taskId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, r, http.StatusBadRequest, "Validation Error", "Invalid request payload")
		return
	}

	task, err := h.service.UpdateTask(r.Context(), utils.UserID(r), mux.Vars(r)["taskId"], req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) TransitionTask(w http.ResponseWriter, r *http.Request) {
	var req models.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, r, http.StatusBadRequest, "Validation Error", "Invalid request payload")
		return
	}

	task, err := h.service.Transition(r.Context(), utils.UserID(r), mux.Vars(r)["taskId"], req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) GetTransitions(w http.ResponseWriter, r *http.Request) {
	transitions, err := h.service.AvailableTransitions(r.Context(), utils.UserID(r), mux.Vars(r)["taskId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, transitions)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTask(r.Context(), utils.UserID(r), mux.Vars(r)["taskId"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) GetProjectActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.service.ListActivity(r.Context(), utils.UserID(r), mux.Vars(r)["projectId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, activity)
}

func (h *TaskHandler) GetProjectAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.service.ProjectAnalytics(r.Context(), utils.UserID(r), mux.Vars(r)["projectId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, analytics)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		utils.WriteError(w, r, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, services.ErrValidation), errors.Is(err, lifecycle.ErrInvalidStatus):
		utils.WriteError(w, r, http.StatusBadRequest, "Validation Error", err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		utils.WriteError(w, r, http.StatusBadRequest, "Invalid Transition", err.Error())
	case errors.Is(err, models.ErrStatusConflict):
		utils.WriteError(w, r, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, lifecycle.ErrForbidden):
		utils.WriteError(w, r, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, models.ErrTaskNotFound), errors.Is(err, models.ErrProjectNotFound), errors.Is(err, models.ErrUserNotFound):
		utils.WriteError(w, r, http.StatusNotFound, "Not Found", err.Error())
	default:
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %s %s: %v", r.Method, r.URL.Path, err)
		utils.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
	}
}
