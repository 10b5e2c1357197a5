package services

import (
	"context"
	"errors"

	"micro-crm/backend/projects-service/models"
	"micro-crm/backend/utils/logging"
)

func (s *ProjectService) ListProjectMembers(ctx context.Context, projectID string) ([]models.MemberResponse, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	members, err := s.members.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.describeMembers(ctx, members), nil
}

func (s *ProjectService) ListUserMemberships(ctx context.Context, userID string) ([]models.MemberResponse, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	members, err := s.members.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.describeMembers(ctx, members), nil
}

func (s *ProjectService) GetMember(ctx context.Context, memberID string) (*models.MemberResponse, error) {
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	described := s.describeMembers(ctx, []models.ProjectMember{*member})
	return &described[0], nil
}

// AddMember adds a user to a project with a role. Only the project owner may
// add members and the owner cannot be added to their own project.
func (s *ProjectService) AddMember(ctx context.Context, callerID string, req models.CreateMemberRequest) (*models.MemberResponse, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}

	project, err := s.projects.GetByID(ctx, req.ProjectID)
	if errors.Is(err, models.ErrProjectNotFound) {
		return nil, validationError("projectId does not exist")
	}
	if err != nil {
		return nil, err
	}
	if project.CreatorID != callerID {
		return nil, ErrForbidden
	}
	if req.UserID == project.CreatorID {
		return nil, validationError("the project creator cannot be added as a member")
	}

	if _, err := s.users.GetUser(ctx, req.UserID); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, validationError("userId does not exist")
		}
		return nil, err
	}
	if err := s.requireRole(ctx, req.RoleID); err != nil {
		return nil, err
	}

	if _, err := s.members.Find(ctx, req.ProjectID, req.UserID); err == nil {
		return nil, models.ErrAlreadyMember
	} else if !errors.Is(err, models.ErrMemberNotFound) {
		return nil, err
	}

	member := &models.ProjectMember{
		ProjectID: req.ProjectID,
		UserID:    req.UserID,
		RoleID:    req.RoleID,
		AddedBy:   callerID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: MEMBER_ADDED, Description: User %s added to project %s by %s", member.UserID, member.ProjectID, callerID)

	described := s.describeMembers(ctx, []models.ProjectMember{*member})
	return &described[0], nil
}

func (s *ProjectService) UpdateMemberRole(ctx context.Context, callerID, memberID string, req models.UpdateMemberRequest) (*models.MemberResponse, error) {
	member, err := s.ownedMembership(ctx, callerID, memberID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, req.RoleID); err != nil {
		return nil, err
	}
	if err := s.members.UpdateRole(ctx, member.ID, req.RoleID); err != nil {
		return nil, err
	}
	member.RoleID = req.RoleID

	described := s.describeMembers(ctx, []models.ProjectMember{*member})
	return &described[0], nil
}

func (s *ProjectService) RemoveMember(ctx context.Context, callerID, memberID string) error {
	member, err := s.ownedMembership(ctx, callerID, memberID)
	if err != nil {
		return err
	}
	if err := s.members.Delete(ctx, member.ID); err != nil {
		return err
	}
	logging.Logger.Infof("Event ID: MEMBER_REMOVED, Description: User %s removed from project %s by %s", member.UserID, member.ProjectID, callerID)
	return nil
}

func (s *ProjectService) ownedMembership(ctx context.Context, callerID, memberID string) (*models.ProjectMember, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedProject(ctx, callerID, member.ProjectID); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *ProjectService) requireRole(ctx context.Context, roleID string) error {
	_, err := s.roles.GetByID(ctx, roleID)
	if errors.Is(err, models.ErrRoleNotFound) {
		return validationError("roleId does not exist")
	}
	return err
}

func (s *ProjectService) describeMembers(ctx context.Context, members []models.ProjectMember) []models.MemberResponse {
	names := map[string]string{}
	userName := func(id string) string {
		if name, ok := names[id]; ok {
			return name
		}
		name := "Unknown User"
		if user, err := s.users.GetUser(ctx, id); err == nil {
			name = user.Name
		}
		names[id] = name
		return name
	}

	out := make([]models.MemberResponse, 0, len(members))
	for _, m := range members {
		roleName := "Unknown Role"
		if role, err := s.roles.GetByID(ctx, m.RoleID); err == nil {
			roleName = role.Name
		}
		out = append(out, models.MemberResponse{
			ProjectMember: m,
			UserName:      userName(m.UserID),
			RoleName:      roleName,
			AddedByName:   userName(m.AddedBy),
		})
	}
	return out
}
