package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"micro-crm/backend/tasks-service/lifecycle"
	"micro-crm/backend/tasks-service/models"
	"micro-crm/backend/utils/logging"
)

var (
	ErrUnauthenticated = errors.New("missing authenticated user")
	ErrValidation      = errors.New("validation failed")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, taskID string) (*models.Task, error)
	List(ctx context.Context) ([]*models.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.Task, error)
	ListByAssignee(ctx context.Context, userID string) ([]*models.Task, error)
	ListOverdueCandidates(ctx context.Context, now time.Time) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task, from models.TaskStatus) error
	UpdateStatus(ctx context.Context, task *models.Task, from, to models.TaskStatus) error
	Delete(ctx context.Context, taskID string) error
	DeleteByProject(ctx context.Context, projectID string) (int64, error)
}

type ActivityStore interface {
	Record(ctx context.Context, activity *models.ProjectActivity) error
	ListByProject(ctx context.Context, projectID string) ([]models.ProjectActivity, error)
}

type ProjectDirectory interface {
	GetAccess(ctx context.Context, projectID string) (*models.ProjectAccess, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*models.UserSummary, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, taskID, message string) error
}

type TaskService struct {
	tasks      TaskStore
	activities ActivityStore
	projects   ProjectDirectory
	users      UserDirectory
	notifier   Notifier
	lifecycle  *lifecycle.Manager
	now        func() time.Time
}

func NewTaskService(tasks TaskStore, activities ActivityStore, projects ProjectDirectory, users UserDirectory, notifier Notifier) *TaskService {
	return &TaskService{
		tasks:      tasks,
		activities: activities,
		projects:   projects,
		users:      users,
		notifier:   notifier,
		lifecycle:  lifecycle.NewManager(tasks),
		now:        time.Now,
	}
}

func (s *TaskService) CreateTask(ctx context.Context, userID string, req models.CreateTaskRequest) (*models.TaskResponse, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	title, err := validateTitle(req.Title)
	if err != nil {
		return nil, err
	}
	if err := validateDescription(req.Description); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = models.StatusPending
	}
	if !status.Valid() {
		return nil, validationError("status must be one of %v", models.AllStatuses)
	}

	access, err := s.projects.GetAccess(ctx, req.ProjectID)
	if errors.Is(err, models.ErrProjectNotFound) {
		return nil, validationError("projectId does not exist")
	}
	if err != nil {
		return nil, err
	}
	if access.CreatorID != userID {
		return nil, lifecycle.ErrForbidden
	}
	if req.AssignedTo != "" && !access.IsMember(req.AssignedTo) {
		return nil, validationError("assignedTo must be the project owner or a project member")
	}

	task := &models.Task{
		ProjectID:   req.ProjectID,
		Title:       title,
		Description: req.Description,
		Status:      status,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
		CreatedBy:   userID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created in project %s by %s", task.ID.Hex(), task.ProjectID, userID)

	s.record(ctx, task, models.ActivityCreateTask, userID, "", task.Status, task.Title)
	if task.AssignedTo != "" && task.AssignedTo != userID {
		s.notify(ctx, task.AssignedTo, task, fmt.Sprintf("You have been assigned to task %q", task.Title))
	}
	return s.enrich(ctx, task, access), nil
}

// ListTasks returns the tasks of every project the caller owns or belongs to.
func (s *TaskService) ListTasks(ctx context.Context, userID string) ([]*models.TaskResponse, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, err
	}

	projects := map[string]*models.ProjectAccess{}
	out := []*models.TaskResponse{}
	for _, task := range tasks {
		access, seen := projects[task.ProjectID]
		if !seen {
			access, err = s.projects.GetAccess(ctx, task.ProjectID)
			switch {
			case errors.Is(err, models.ErrProjectNotFound):
				access = nil
			case err != nil:
				return nil, err
			}
			projects[task.ProjectID] = access
		}
		if access == nil || !access.IsMember(userID) {
			continue
		}
		out = append(out, s.enrich(ctx, task, access))
	}
	return out, nil
}

// ListByProject returns the project's tasks to its owner and members.
func (s *TaskService) ListByProject(ctx context.Context, userID, projectID string) ([]*models.TaskResponse, error) {
	access, err := s.memberAccess(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, s.enrich(ctx, task, access))
	}
	return out, nil
}

// ListByUser returns the tasks assigned to assigneeID. Users may only list their own.
func (s *TaskService) ListByUser(ctx context.Context, userID, assigneeID string) ([]*models.TaskResponse, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if userID != assigneeID {
		return nil, lifecycle.ErrForbidden
	}
	tasks, err := s.tasks.ListByAssignee(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	return s.enrichAll(ctx, tasks), nil
}

func (s *TaskService) GetTask(ctx context.Context, userID, taskID string) (*models.TaskResponse, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	access, err := s.memberAccess(ctx, userID, task.ProjectID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, task, access), nil
}

// UpdateTask applies an edit. The owner may change every field and set any
// status; the assignee may only send a status allowed by the transition table.
func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID string, req models.UpdateTaskRequest) (*models.TaskResponse, error) {
	task, access, actor, err := s.loadForActor(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	switch actor {
	case lifecycle.ActorAssignee:
		if !req.OnlyStatus() {
			return nil, fmt.Errorf("%w: assignee may only change the status", lifecycle.ErrForbidden)
		}
		if req.Status == nil {
			return s.enrich(ctx, task, access), nil
		}
		from := task.Status
		if err := s.lifecycle.Edit(ctx, task, actor, *req.Status); err != nil {
			return nil, err
		}
		if task.Status != from {
			s.afterStatusChange(ctx, task, access, userID, from)
		}
		return s.enrich(ctx, task, access), nil

	case lifecycle.ActorOwner:
		updated := *task
		if req.Title != nil {
			title, err := validateTitle(*req.Title)
			if err != nil {
				return nil, err
			}
			updated.Title = title
		}
		if req.Description != nil {
			if err := validateDescription(*req.Description); err != nil {
				return nil, err
			}
			updated.Description = *req.Description
		}
		if req.AssignedTo != nil {
			if *req.AssignedTo != "" && !access.IsMember(*req.AssignedTo) {
				return nil, validationError("assignedTo must be the project owner or a project member")
			}
			updated.AssignedTo = *req.AssignedTo
		}
		if req.DueDate != nil {
			updated.DueDate = req.DueDate
		}
		if req.Status != nil {
			if err := lifecycle.CanEdit(actor, task.Status, *req.Status); err != nil {
				return nil, err
			}
			updated.Status = *req.Status
		}

		if err := s.tasks.Update(ctx, &updated, task.Status); err != nil {
			return nil, err
		}
		from := task.Status
		reassigned := updated.AssignedTo != task.AssignedTo
		*task = updated

		s.record(ctx, task, models.ActivityUpdateTask, userID, from, task.Status, "task edited by owner")
		if task.Status != from {
			s.afterStatusChange(ctx, task, access, userID, from)
		}
		if reassigned && task.AssignedTo != "" && task.AssignedTo != userID {
			s.notify(ctx, task.AssignedTo, task, fmt.Sprintf("You have been assigned to task %q", task.Title))
		}
		return s.enrich(ctx, task, access), nil
	}

	return nil, lifecycle.ErrForbidden
}

// Transition moves a task along the board on behalf of userID.
func (s *TaskService) Transition(ctx context.Context, userID, taskID string, status models.TaskStatus) (*models.TaskResponse, error) {
	task, access, actor, err := s.loadForActor(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	from := task.Status
	if err := s.lifecycle.Transition(ctx, task, actor, status); err != nil {
		logging.Logger.Warnf("Event ID: TASK_TRANSITION_REJECTED, Description: %s (%s) could not move task %s %s -> %s: %v", userID, actor, taskID, from, status, err)
		return nil, err
	}
	s.afterStatusChange(ctx, task, access, userID, from)
	return s.enrich(ctx, task, access), nil
}

func (s *TaskService) AvailableTransitions(ctx context.Context, userID, taskID string) (*models.TransitionsResponse, error) {
	task, _, actor, err := s.loadForActor(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	return &models.TransitionsResponse{
		TaskID:      task.ID.Hex(),
		Status:      task.Status,
		Actor:       string(actor),
		Transitions: lifecycle.AvailableTransitions(actor, task.Status),
	}, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID string) error {
	task, _, actor, err := s.loadForActor(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if actor != lifecycle.ActorOwner {
		return lifecycle.ErrForbidden
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return err
	}
	s.record(ctx, task, models.ActivityDeleteTask, userID, task.Status, "", task.Title)
	return nil
}

// DeleteProjectTasks removes every task of a project. Only the project owner may do it.
func (s *TaskService) DeleteProjectTasks(ctx context.Context, userID, projectID string) (int64, error) {
	access, err := s.memberAccess(ctx, userID, projectID)
	if err != nil {
		return 0, err
	}
	if access.CreatorID != userID {
		return 0, lifecycle.ErrForbidden
	}
	count, err := s.tasks.DeleteByProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	logging.Logger.Infof("Event ID: PROJECT_TASKS_DELETED, Description: Deleted %d tasks of project %s", count, projectID)
	return count, nil
}

func (s *TaskService) ListActivity(ctx context.Context, userID, projectID string) ([]models.ProjectActivity, error) {
	if _, err := s.memberAccess(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.activities.ListByProject(ctx, projectID)
}

// ProjectAnalytics counts the project's tasks by status and assignee.
// Cancelled tasks are excluded from the completion rate.
func (s *TaskService) ProjectAnalytics(ctx context.Context, userID, projectID string) (*models.ProjectAnalytics, error) {
	if _, err := s.memberAccess(ctx, userID, projectID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := &models.ProjectAnalytics{
		ProjectID:       projectID,
		TotalTasks:      len(tasks),
		TasksByStatus:   make(map[models.TaskStatus]int, len(models.AllStatuses)),
		TasksByAssignee: map[string]int{},
	}
	for _, status := range models.AllStatuses {
		out.TasksByStatus[status] = 0
	}
	for _, task := range tasks {
		out.TasksByStatus[task.Status]++
		if task.AssignedTo == "" {
			out.Unassigned++
		} else {
			out.TasksByAssignee[task.AssignedTo]++
		}
		if !task.Status.Terminal() && task.DueDate != nil && task.DueDate.Before(now) {
			out.PastDue++
		}
	}
	if considered := out.TotalTasks - out.TasksByStatus[models.StatusCancelled]; considered > 0 {
		out.CompletionRate = float64(out.TasksByStatus[models.StatusCompleted]) / float64(considered)
	}
	return out, nil
}

// MarkOverdueTasks flags every pending or in-progress task whose due date has passed.
func (s *TaskService) MarkOverdueTasks(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.tasks.ListOverdueCandidates(ctx, now)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, task := range candidates {
		if !lifecycle.ShouldMarkOverdue(task, now) {
			continue
		}
		from := task.Status
		err := s.tasks.UpdateStatus(ctx, task, from, models.StatusOverdue)
		if errors.Is(err, models.ErrStatusConflict) || errors.Is(err, models.ErrTaskNotFound) {
			logging.Logger.Infof("Event ID: OVERDUE_SKIPPED, Description: Task %s changed since the scan started: %v", task.ID.Hex(), err)
			continue
		}
		if err != nil {
			return updated, err
		}
		task.Status = models.StatusOverdue
		updated++
		s.record(ctx, task, models.ActivityMarkOverdue, "", from, models.StatusOverdue, "due date passed")
	}
	return updated, nil
}

// RunOverdueScanner calls MarkOverdueTasks every interval until ctx is done.
// After a failed scan it retries after retry instead.
func (s *TaskService) RunOverdueScanner(ctx context.Context, interval, retry time.Duration) {
	logging.Logger.Infof("Event ID: OVERDUE_SCANNER_STARTED, Description: Scanning for overdue tasks every %s", interval)
	for {
		wait := interval
		count, err := s.MarkOverdueTasks(ctx)
		switch {
		case err != nil:
			logging.Logger.Errorf("Event ID: OVERDUE_SCAN_FAILED, Description: %v", err)
			wait = retry
		case count > 0:
			logging.Logger.Infof("Event ID: OVERDUE_SCAN_UPDATED, Description: Updated %d tasks to overdue status", count)
		default:
			logging.Logger.Debug("Event ID: OVERDUE_SCAN_IDLE, Description: No tasks needed to be updated to overdue status")
		}

		select {
		case <-ctx.Done():
			logging.Logger.Info("Event ID: OVERDUE_SCANNER_STOPPED, Description: Overdue scanner stopped")
			return
		case <-time.After(wait):
		}
	}
}

func (s *TaskService) loadForActor(ctx context.Context, userID, taskID string) (*models.Task, *models.ProjectAccess, lifecycle.Actor, error) {
	if userID == "" {
		return nil, nil, lifecycle.ActorNone, ErrUnauthenticated
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, lifecycle.ActorNone, err
	}
	access, err := s.projects.GetAccess(ctx, task.ProjectID)
	if err != nil {
		return nil, nil, lifecycle.ActorNone, err
	}
	actor := lifecycle.Resolve(*access, task, userID)
	if actor == lifecycle.ActorNone {
		return nil, nil, actor, lifecycle.ErrForbidden
	}
	return task, access, actor, nil
}

func (s *TaskService) memberAccess(ctx context.Context, userID, projectID string) (*models.ProjectAccess, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	access, err := s.projects.GetAccess(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !access.IsMember(userID) {
		return nil, lifecycle.ErrForbidden
	}
	return access, nil
}

func (s *TaskService) afterStatusChange(ctx context.Context, task *models.Task, access *models.ProjectAccess, actorID string, from models.TaskStatus) {
	logging.Logger.Infof("Event ID: TASK_STATUS_CHANGED, Description: Task %s moved %s -> %s by %s", task.ID.Hex(), from, task.Status, actorID)
	s.record(ctx, task, models.ActivityChangeTaskStatus, actorID, from, task.Status, "")

	message := fmt.Sprintf("Task %q moved from %s to %s", task.Title, from, task.Status)
	if task.AssignedTo != "" && task.AssignedTo != actorID {
		s.notify(ctx, task.AssignedTo, task, message)
	}
	if access.CreatorID != actorID {
		s.notify(ctx, access.CreatorID, task, message)
	}
}

// record and notify are best-effort: failures are logged and never undo the change.
func (s *TaskService) record(ctx context.Context, task *models.Task, kind models.ActivityType, actorID string, from, to models.TaskStatus, details string) {
	err := s.activities.Record(ctx, &models.ProjectActivity{
		ProjectID:    task.ProjectID,
		TaskID:       task.ID.Hex(),
		ActivityType: kind,
		ActorID:      actorID,
		FromStatus:   from,
		ToStatus:     to,
		Details:      details,
		Timestamp:    s.now().UTC(),
	})
	if err != nil {
		logging.Logger.Warnf("Event ID: ACTIVITY_RECORD_FAILED, Description: %s for task %s: %v", kind, task.ID.Hex(), err)
	}
}

func (s *TaskService) notify(ctx context.Context, userID string, task *models.Task, message string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Notify(ctx, userID, task.ID.Hex(), message)
}

func (s *TaskService) enrichAll(ctx context.Context, tasks []*models.Task) []*models.TaskResponse {
	projects := map[string]*models.ProjectAccess{}
	out := make([]*models.TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		access, ok := projects[task.ProjectID]
		if !ok {
			fetched, err := s.projects.GetAccess(ctx, task.ProjectID)
			if err != nil {
				logging.Logger.Warnf("Event ID: PROJECT_LOOKUP_FAILED, Description: project %s: %v", task.ProjectID, err)
			}
			access = fetched
			projects[task.ProjectID] = access
		}
		out = append(out, s.enrich(ctx, task, access))
	}
	return out
}

func (s *TaskService) enrich(ctx context.Context, task *models.Task, access *models.ProjectAccess) *models.TaskResponse {
	resp := &models.TaskResponse{Task: *task, ProjectName: "Unknown Project"}
	if access != nil && access.Name != "" {
		resp.ProjectName = access.Name
	}
	if s.users == nil {
		return resp
	}
	if task.AssignedTo != "" {
		if user, err := s.users.GetUser(ctx, task.AssignedTo); err == nil {
			resp.AssignedToEmail = user.Email
		}
	}
	if user, err := s.users.GetUser(ctx, task.CreatedBy); err == nil {
		resp.CreatedByEmail = user.Email
	} else {
		resp.CreatedByEmail = "Unknown User"
	}
	return resp
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", validationError("task title cannot be empty")
	}
	if len([]rune(title)) > models.MaxTitleLength {
		return "", validationError("task title must be %d characters or less", models.MaxTitleLength)
	}
	return title, nil
}

func validateDescription(description string) error {
	if len([]rune(description)) > models.MaxDescriptionLength {
		return validationError("task description must be %d characters or less", models.MaxDescriptionLength)
	}
	return nil
}
