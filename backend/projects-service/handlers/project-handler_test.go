package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"micro-crm/backend/projects-service/models"
	"micro-crm/backend/projects-service/services"
	"micro-crm/backend/utils"

	"github.com/gorilla/mux"
)

func TestListProjectsRejectsBadPagination(t *testing.T) {
	r := mux.NewRouter()
	NewProjectHandler(nil).Register(r)

	for _, query := range []string{"limit=500", "skip=abc", "order_dir=up"} {
		req := httptest.NewRequest(http.MethodGet, "/api/projects/?"+query, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", query, rec.Code)
			continue
		}
		var body utils.ErrorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("%s: %v", query, err)
		}
		if body.Error != "Validation Error" || body.Path != "/api/projects/" {
			t.Errorf("%s: unexpected body %+v", query, body)
		}
	}
}

func TestMalformedBodyIsRejected(t *testing.T) {
	r := mux.NewRouter()
	NewProjectHandler(nil).Register(r)

	for _, path := range []string{"/api/projects/", "/api/project-members/", "/api/roles/", "/api/customers/"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Body = http.NoBody
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrUnauthenticated, http.StatusUnauthorized},
		{services.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: name", services.ErrValidation), http.StatusBadRequest},
		{models.ErrDuplicateEmail, http.StatusBadRequest},
		{models.ErrAlreadyMember, http.StatusConflict},
		{models.ErrDuplicateRole, http.StatusConflict},
		{models.ErrCustomerInUse, http.StatusConflict},
		{models.ErrCustomerNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/customers/1", nil)
		rec := httptest.NewRecorder()
		writeServiceError(rec, req, tt.err)
		if rec.Code != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, rec.Code)
		}
	}
}
