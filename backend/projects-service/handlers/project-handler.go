package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"micro-crm/backend/projects-service/models"
	"micro-crm/backend/projects-service/services"
	"micro-crm/backend/utils"
	"micro-crm/backend/utils/logging"

	"github.com/gorilla/mux"
)

type ProjectHandler struct {
	Service *services.ProjectService
}

func NewProjectHandler(service *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{Service: service}
}

func (h *ProjectHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/projects/", h.ListProjects).Methods(http.MethodGet)
	r.HandleFunc("/api/projects/", h.CreateProject).Methods(http.MethodPost)
	r.HandleFunc("/api/projects/{id}", h.GetProject).Methods(http.MethodGet)
	r.HandleFunc("/api/projects/{id}", h.UpdateProject).Methods(http.MethodPut)
	r.HandleFunc("/api/projects/{id}", h.DeleteProject).Methods(http.MethodDelete)
	r.HandleFunc("/api/projects/{id}/access", h.GetProjectAccess).Methods(http.MethodGet)

	r.HandleFunc("/api/project-members/project/{id}", h.ListProjectMembers).Methods(http.MethodGet)
	r.HandleFunc("/api/project-members/user/{id}", h.ListUserMemberships).Methods(http.MethodGet)
	r.HandleFunc("/api/project-members/", h.AddMember).Methods(http.MethodPost)
	r.HandleFunc("/api/project-members/{id}", h.GetMember).Methods(http.MethodGet)
	r.HandleFunc("/api/project-members/{id}", h.UpdateMember).Methods(http.MethodPut)
	r.HandleFunc("/api/project-members/{id}", h.RemoveMember).Methods(http.MethodDelete)

	r.HandleFunc("/api/roles/", h.ListRoles).Methods(http.MethodGet)
	r.HandleFunc("/api/roles/", h.CreateRole).Methods(http.MethodPost)
	r.HandleFunc("/api/roles/{id}", h.GetRole).Methods(http.MethodGet)
	r.HandleFunc("/api/roles/{id}", h.UpdateRole).Methods(http.MethodPut)
	r.HandleFunc("/api/roles/{id}", h.DeleteRole).Methods(http.MethodDelete)

	r.HandleFunc("/api/customers/", h.ListCustomers).Methods(http.MethodGet)
	r.HandleFunc("/api/customers/", h.CreateCustomer).Methods(http.MethodPost)
	r.HandleFunc("/api/customers/{id}", h.GetCustomer).Methods(http.MethodGet)
	r.HandleFunc("/api/customers/{id}", h.DeleteCustomer).Methods(http.MethodDelete)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "projects-service"})
	}).Methods(http.MethodGet)
}

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	page, err := services.ParsePageRequest(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	projects, err := h.Service.ListProjects(r.Context(), page)
	respond(w, r, http.StatusOK, projects, err)
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req models.ProjectRequest
	if !decode(w, r, &req) {
		return
	}
	project, err := h.Service.CreateProject(r.Context(), utils.UserID(r), req)
	respond(w, r, http.StatusCreated, project, err)
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.Service.GetProject(r.Context(), mux.Vars(r)["id"])
	respond(w, r, http.StatusOK, project, err)
}

func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req models.ProjectRequest
	if !decode(w, r, &req) {
		return
	}
	project, err := h.Service.UpdateProject(r.Context(), utils.UserID(r), mux.Vars(r)["id"], req)
	respond(w, r, http.StatusOK, project, err)
}

func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	err := h.Service.DeleteProject(r.Context(), utils.UserID(r), mux.Vars(r)["id"])
	respond(w, r, http.StatusNoContent, nil, err)
}

func (h *ProjectHandler) GetProjectAccess(w http.ResponseWriter, r *http.Request) {
	access, err := h.Service.Access(r.Context(), mux.Vars(r)["id"])
	respond(w, r, http.StatusOK, access, err)
}

func (h *ProjectHandler) ListProjectMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Service.ListProjectMembers(r.Context(), mux.Vars(r)["id"])
	respond(w, r, http.StatusOK, members, err)
}

func (h *ProjectHandler) ListUserMemberships(w http.ResponseWriter, r *http.Request) {
	members, err := h.Service.ListUserMemberships(r.Context(), mux.Vars(r)["id"])
	respond(w, r, http.StatusOK, members, err)
}

func (h *ProjectHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMemberRequest
	if !decode(w, r, &req) {
		return
	}
	member, err := h.Service.AddMember(r.Context(), utils.UserID(r), req)
	respond(w, r, http.StatusCreated, member, err)
}

func (h *ProjectHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.Service.GetMember(r.Context(), mux.Vars(r)["id"])
	respond(w, r, http.StatusOK, member, err)
}

func (h *ProjectHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateMemberRequest
	if !decode(w, r, &req) {
		return
	}
	member, err := h.Service.UpdateMemberRole(r.Context(), utils.UserID(r), mux.Vars(r)["id"], req)
	respond(w, r, http.StatusOK, member, err)
}

func (h *ProjectHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	err := h.Service.RemoveMember(r.Context(), utils.UserID(r), mux.Vars(r)["id"])
	respond(w, r, http.StatusNoContent, nil, err)
}

func (h *ProjectHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.ListRoles(r.Context())
	respond(w, r, http.StatusOK, roles, err)
}

func (h *ProjectHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req models.RoleRequest
	if !decode(w, r, &req) {
		return
	}
	role, err := h.Service.CreateRole(r.Context(), req)
	respond(w, r, http.StatusCreated, role, err)
}

func (h *ProjectHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.Service.GetRole(r.Context(), mux.Vars(r)["id"])
	respond(w, r, http.StatusOK, role, err)
}

func (h *ProjectHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req models.RoleRequest
	if !decode(w, r, &req) {
		return
	}
	role, err := h.Service.UpdateRole(r.Context(), mux.Vars(r)["id"], req)
	respond(w, r, http.StatusOK, role, err)
}

func (h *ProjectHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	err := h.Service.DeleteRole(r.Context(), mux.Vars(r)["id"])
	respond(w, r, http.StatusNoContent, nil, err)
}

func (h *ProjectHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Service.ListCustomers(r.Context())
	respond(w, r, http.StatusOK, customers, err)
}

func (h *ProjectHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req models.CustomerRequest
	if !decode(w, r, &req) {
		return
	}
	customer, err := h.Service.CreateCustomer(r.Context(), req)
	respond(w, r, http.StatusCreated, customer, err)
}

func (h *ProjectHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.Service.GetCustomer(r.Context(), mux.Vars(r)["id"])
	respond(w, r, http.StatusOK, customer, err)
}

func (h *ProjectHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.DeleteCustomer(r.Context(), utils.UserID(r), mux.Vars(r)["id"])
	respond(w, r, http.StatusOK, result, err)
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
	case errors.Is(err, services.ErrUnauthenticated):
		utils.WriteError(w, r, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.WriteError(w, r, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, services.ErrValidation), errors.Is(err, models.ErrDuplicateEmail):
		utils.WriteError(w, r, http.StatusBadRequest, "Validation Error", err.Error())
	case errors.Is(err, models.ErrAlreadyMember), errors.Is(err, models.ErrDuplicateRole), errors.Is(err, models.ErrCustomerInUse):
		utils.WriteError(w, r, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, models.ErrProjectNotFound),
		errors.Is(err, models.ErrMemberNotFound),
		errors.Is(err, models.ErrRoleNotFound),
		errors.Is(err, models.ErrCustomerNotFound),
		errors.Is(err, models.ErrUserNotFound):
		utils.WriteError(w, r, http.StatusNotFound, "Not Found", err.Error())
	default:
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %s %s: %v", r.Method, r.URL.Path, err)
		utils.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
	}
}
