package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"micro-crm/backend/projects-service/models"
	"micro-crm/backend/projects-service/repository"
	"micro-crm/backend/utils"
	"micro-crm/backend/utils/logging"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUnauthenticated = errors.New("missing authenticated user")
	ErrForbidden       = errors.New("only the project owner can perform this action")
	ErrValidation      = errors.New("validation failed")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type ProjectStore interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, projectID string) (*models.Project, error)
	List(ctx context.Context, page utils.PageRequest) ([]models.Project, int64, error)
	ListByCustomer(ctx context.Context, customerID string) ([]models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, projectID string) error
}

type MemberStore interface {
	Create(ctx context.Context, member *models.ProjectMember) error
	GetByID(ctx context.Context, memberID string) (*models.ProjectMember, error)
	Find(ctx context.Context, projectID, userID string) (*models.ProjectMember, error)
	ListByProject(ctx context.Context, projectID string) ([]models.ProjectMember, error)
	ListByUser(ctx context.Context, userID string) ([]models.ProjectMember, error)
	UpdateRole(ctx context.Context, memberID primitive.ObjectID, roleID string) error
	Delete(ctx context.Context, memberID primitive.ObjectID) error
	DeleteByProject(ctx context.Context, projectID string) (int64, error)
}

type RoleStore interface {
	Create(ctx context.Context, role *models.Role) error
	GetByID(ctx context.Context, roleID string) (*models.Role, error)
	FindByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, roleID string) error
}

type CustomerStore interface {
	Create(ctx context.Context, customer *models.Customer) error
	GetByID(ctx context.Context, customerID string) (*models.Customer, error)
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	List(ctx context.Context) ([]models.Customer, error)
	Delete(ctx context.Context, customerID string) error
}

type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*models.UserSummary, error)
}

// TaskCleaner removes the tasks of a deleted project from tasks-service.
type TaskCleaner interface {
	DeleteProjectTasks(ctx context.Context, ownerID, projectID string) error
}

type ProjectService struct {
	projects  ProjectStore
	members   MemberStore
	roles     RoleStore
	customers CustomerStore
	users     UserDirectory
	tasks     TaskCleaner
	now       func() time.Time
}

func NewProjectService(projects ProjectStore, members MemberStore, roles RoleStore, customers CustomerStore, users UserDirectory, tasks TaskCleaner) *ProjectService {
	return &ProjectService{
		projects:  projects,
		members:   members,
		roles:     roles,
		customers: customers,
		users:     users,
		tasks:     tasks,
		now:       time.Now,
	}
}

// ParsePageRequest reads the paging parameters of the project list.
func ParsePageRequest(query url.Values) (utils.PageRequest, error) {
	page, err := utils.ParsePageRequest(query, func(field string) bool {
		_, ok := repository.SortField(field)
		return ok
	})
	if err != nil {
		return page, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return page, nil
}

func (s *ProjectService) ListProjects(ctx context.Context, page utils.PageRequest) (utils.Page[models.Project], error) {
	projects, total, err := s.projects.List(ctx, page)
	if err != nil {
		return utils.Page[models.Project]{}, err
	}
	return utils.NewPage(projects, total, page), nil
}

func (s *ProjectService) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	return s.projects.GetByID(ctx, projectID)
}

func (s *ProjectService) CreateProject(ctx context.Context, userID string, req models.ProjectRequest) (*models.Project, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if req.Name == nil {
		return nil, validationError("project name is required")
	}

	now := s.now().UTC()
	project := &models.Project{
		CreatorID: userID,
		Status:    models.ProjectProspect,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.applyProjectRequest(ctx, project, req); err != nil {
		return nil, err
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: PROJECT_CREATED, Description: Project %s created by %s", project.ID.Hex(), userID)
	return project, nil
}

func (s *ProjectService) UpdateProject(ctx context.Context, userID, projectID string, req models.ProjectRequest) (*models.Project, error) {
	project, err := s.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.applyProjectRequest(ctx, project, req); err != nil {
		return nil, err
	}
	project.UpdatedAt = s.now().UTC()
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// DeleteProject removes the project with its tasks and memberships. Owner only.
func (s *ProjectService) DeleteProject(ctx context.Context, userID, projectID string) error {
	project, err := s.ownedProject(ctx, userID, projectID)
	if err != nil {
		return err
	}
	return s.deleteCascade(ctx, project)
}

// Access summarizes who may work on the project's tasks.
func (s *ProjectService) Access(ctx context.Context, projectID string) (*models.ProjectAccess, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	members, err := s.members.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	access := &models.ProjectAccess{
		ProjectID: project.ID.Hex(),
		Name:      project.Name,
		CreatorID: project.CreatorID,
		MemberIDs: make([]string, 0, len(members)),
	}
	for _, m := range members {
		access.MemberIDs = append(access.MemberIDs, m.UserID)
	}
	return access, nil
}

func (s *ProjectService) deleteCascade(ctx context.Context, project *models.Project) error {
	projectID := project.ID.Hex()
	if s.tasks != nil {
		if err := s.tasks.DeleteProjectTasks(ctx, project.CreatorID, projectID); err != nil {
			return fmt.Errorf("failed to delete tasks of project %s: %w", projectID, err)
		}
	}
	removed, err := s.members.DeleteByProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, projectID); err != nil {
		return err
	}
	logging.Logger.Infof("Event ID: PROJECT_DELETED, Description: Project %s deleted with %d members", projectID, removed)
	return nil
}

func (s *ProjectService) ownedProject(ctx context.Context, userID, projectID string) (*models.Project, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.CreatorID != userID {
		return nil, ErrForbidden
	}
	return project, nil
}

func (s *ProjectService) applyProjectRequest(ctx context.Context, project *models.Project, req models.ProjectRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return validationError("project name cannot be empty")
		}
		if len([]rune(name)) > models.MaxProjectName {
			return validationError("project name must be %d characters or less", models.MaxProjectName)
		}
		project.Name = name
	}
	if req.Description != nil {
		if len([]rune(*req.Description)) > models.MaxProjectDescription {
			return validationError("project description must be %d characters or less", models.MaxProjectDescription)
		}
		project.Description = *req.Description
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return validationError("unknown project status %q", *req.Status)
		}
		project.Status = *req.Status
	}
	if req.Budget != nil {
		if *req.Budget < 0 {
			return validationError("budget must be positive")
		}
		project.Budget = req.Budget
	}
	if req.StartDate != nil {
		project.StartDate = req.StartDate
	}
	if req.CustomerID != nil {
		customerID := strings.TrimSpace(*req.CustomerID)
		if customerID != "" {
			_, err := s.customers.GetByID(ctx, customerID)
			if errors.Is(err, models.ErrCustomerNotFound) {
				return validationError("customerId does not exist")
			}
			if err != nil {
				return err
			}
		}
		project.CustomerID = customerID
	}
	return nil
}
