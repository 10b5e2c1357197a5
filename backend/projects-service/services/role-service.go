package services

import (
	"context"
	"errors"
	"strings"

	"micro-crm/backend/projects-service/models"
)

func (s *ProjectService) ListRoles(ctx context.Context) ([]models.Role, error) {
	return s.roles.List(ctx)
}

func (s *ProjectService) GetRole(ctx context.Context, roleID string) (*models.Role, error) {
	return s.roles.GetByID(ctx, roleID)
}

func (s *ProjectService) CreateRole(ctx context.Context, req models.RoleRequest) (*models.Role, error) {
	if req.Name == nil {
		return nil, validationError("role name cannot be empty")
	}
	role := &models.Role{}
	if err := s.applyRoleRequest(ctx, role, req); err != nil {
		return nil, err
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *ProjectService) UpdateRole(ctx context.Context, roleID string, req models.RoleRequest) (*models.Role, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if err := s.applyRoleRequest(ctx, role, req); err != nil {
		return nil, err
	}
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *ProjectService) DeleteRole(ctx context.Context, roleID string) error {
	return s.roles.Delete(ctx, roleID)
}

// applyRoleRequest validates the request and rejects names already used by
// another role, ignoring case.
func (s *ProjectService) applyRoleRequest(ctx context.Context, role *models.Role, req models.RoleRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return validationError("role name cannot be empty")
		}
		if len([]rune(name)) > models.MaxRoleName {
			return validationError("role name must be %d characters or less", models.MaxRoleName)
		}
		existing, err := s.roles.FindByName(ctx, name)
		switch {
		case err == nil && existing.ID != role.ID:
			return models.ErrDuplicateRole
		case err != nil && !errors.Is(err, models.ErrRoleNotFound):
			return err
		}
		role.Name = name
	}
	if req.Description != nil {
		if len([]rune(*req.Description)) > models.MaxRoleDescription {
			return validationError("role description must be %d characters or less", models.MaxRoleDescription)
		}
		role.Description = *req.Description
	}
	return nil
}
