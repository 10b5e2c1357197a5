package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"micro-crm/backend/tasks-service/lifecycle"
	"micro-crm/backend/tasks-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeTaskStore struct {
	mu        sync.Mutex
	tasks     map[string]*models.Task
	failWrite error
	writes    int
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: map[string]*models.Task{}}
}

func (f *fakeTaskStore) put(task *models.Task) *models.Task {
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	stored := *task
	f.tasks[task.ID.Hex()] = &stored
	return task
}

func (f *fakeTaskStore) Create(_ context.Context, task *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(task)
	return nil
}

func (f *fakeTaskStore) GetByID(_ context.Context, id string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, models.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskStore) filter(keep func(*models.Task) bool) []*models.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Task{}
	for _, task := range f.tasks {
		if keep(task) {
			copied := *task
			out = append(out, &copied)
		}
	}
	return out
}

func (f *fakeTaskStore) List(context.Context) ([]*models.Task, error) {
	return f.filter(func(*models.Task) bool { return true }), nil
}

func (f *fakeTaskStore) ListByProject(_ context.Context, projectID string) ([]*models.Task, error) {
	return f.filter(func(t *models.Task) bool { return t.ProjectID == projectID }), nil
}

func (f *fakeTaskStore) ListByAssignee(_ context.Context, userID string) ([]*models.Task, error) {
	return f.filter(func(t *models.Task) bool { return t.AssignedTo == userID }), nil
}

func (f *fakeTaskStore) ListOverdueCandidates(_ context.Context, now time.Time) ([]*models.Task, error) {
	return f.filter(func(t *models.Task) bool { return lifecycle.ShouldMarkOverdue(t, now) }), nil
}

func (f *fakeTaskStore) Update(_ context.Context, task *models.Task, from models.TaskStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite != nil {
		return f.failWrite
	}
	stored, ok := f.tasks[task.ID.Hex()]
	if !ok {
		return models.ErrTaskNotFound
	}
	if stored.Status != from {
		return models.ErrStatusConflict
	}
	f.writes++
	f.put(task)
	return nil
}

func (f *fakeTaskStore) UpdateStatus(_ context.Context, task *models.Task, from, to models.TaskStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite != nil {
		return f.failWrite
	}
	stored, ok := f.tasks[task.ID.Hex()]
	if !ok {
		return models.ErrTaskNotFound
	}
	if stored.Status != from {
		return models.ErrStatusConflict
	}
	f.writes++
	stored.Status = to
	return nil
}

func (f *fakeTaskStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return models.ErrTaskNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskStore) DeleteByProject(_ context.Context, projectID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, task := range f.tasks {
		if task.ProjectID == projectID {
			delete(f.tasks, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeTaskStore) status(id primitive.ObjectID) models.TaskStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[id.Hex()].Status
}

func (f *fakeTaskStore) setStatus(id primitive.ObjectID, status models.TaskStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[id.Hex()].Status = status
}

// racingTaskStore changes the stored status right after a read, the way a
// concurrent request would between load and write.
type racingTaskStore struct {
	*fakeTaskStore
	after models.TaskStatus
}

func (r *racingTaskStore) GetByID(ctx context.Context, id string) (*models.Task, error) {
	task, err := r.fakeTaskStore.GetByID(ctx, id)
	if err == nil {
		r.setStatus(task.ID, r.after)
	}
	return task, err
}

func (r *racingTaskStore) ListOverdueCandidates(ctx context.Context, now time.Time) ([]*models.Task, error) {
	tasks, err := r.fakeTaskStore.ListOverdueCandidates(ctx, now)
	for _, task := range tasks {
		r.setStatus(task.ID, r.after)
	}
	return tasks, err
}

type fakeActivities struct {
	recorded []models.ProjectActivity
}

func (f *fakeActivities) Record(_ context.Context, activity *models.ProjectActivity) error {
	f.recorded = append(f.recorded, *activity)
	return nil
}

func (f *fakeActivities) ListByProject(_ context.Context, projectID string) ([]models.ProjectActivity, error) {
	out := []models.ProjectActivity{}
	for _, a := range f.recorded {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeProjects map[string]models.ProjectAccess

func (f fakeProjects) GetAccess(_ context.Context, projectID string) (*models.ProjectAccess, error) {
	access, ok := f[projectID]
	if !ok {
		return nil, models.ErrProjectNotFound
	}
	return &access, nil
}

type fakeUsers map[string]models.UserSummary

func (f fakeUsers) GetUser(_ context.Context, userID string) (*models.UserSummary, error) {
	user, ok := f[userID]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &user, nil
}

type sentNotification struct {
	userID  string
	taskID  string
	message string
}

type fakeNotifier struct {
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, userID, taskID, message string) error {
	f.sent = append(f.sent, sentNotification{userID, taskID, message})
	return f.err
}

const (
	ownerID    = "owner-1"
	assigneeID = "member-1"
	memberID   = "member-2"
	strangerID = "stranger"
	projectID  = "project-1"
)

type fixture struct {
	service    *TaskService
	store      *fakeTaskStore
	activities *fakeActivities
	notifier   *fakeNotifier
	now        time.Time
}

func newFixture() *fixture {
	store := newFakeTaskStore()
	activities := &fakeActivities{}
	notifier := &fakeNotifier{}
	projects := fakeProjects{
		projectID: {ProjectID: projectID, Name: "Website", CreatorID: ownerID, MemberIDs: []string{assigneeID, memberID}},
	}
	users := fakeUsers{
		ownerID:    {ID: ownerID, Name: "Owner", Email: "owner@example.com"},
		assigneeID: {ID: assigneeID, Name: "Ana", Email: "ana@example.com"},
	}

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	service := NewTaskService(store, activities, projects, users, notifier)
	service.now = func() time.Time { return now }
	return &fixture{service: service, store: store, activities: activities, notifier: notifier, now: now}
}

func (f *fixture) seed(status models.TaskStatus) *models.Task {
	return f.store.put(&models.Task{
		ProjectID:  projectID,
		Title:      "Landing page",
		Status:     status,
		AssignedTo: assigneeID,
		CreatedBy:  ownerID,
		CreatedAt:  f.now,
	})
}

func TestCreateTask(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		req     models.CreateTaskRequest
		wantErr error
	}{
		{
			name:   "owner creates pending task",
			userID: ownerID,
			req:    models.CreateTaskRequest{ProjectID: projectID, Title: "  Write copy  ", AssignedTo: assigneeID},
		},
		{
			name:    "missing user",
			req:     models.CreateTaskRequest{ProjectID: projectID, Title: "x"},
			wantErr: ErrUnauthenticated,
		},
		{
			name:    "member cannot create",
			userID:  assigneeID,
			req:     models.CreateTaskRequest{ProjectID: projectID, Title: "x"},
			wantErr: lifecycle.ErrForbidden,
		},
		{
			name:    "empty title",
			userID:  ownerID,
			req:     models.CreateTaskRequest{ProjectID: projectID, Title: "   "},
			wantErr: ErrValidation,
		},
		{
			name:    "unknown project",
			userID:  ownerID,
			req:     models.CreateTaskRequest{ProjectID: "nope", Title: "x"},
			wantErr: ErrValidation,
		},
		{
			name:    "assignee outside project",
			userID:  ownerID,
			req:     models.CreateTaskRequest{ProjectID: projectID, Title: "x", AssignedTo: strangerID},
			wantErr: ErrValidation,
		},
		{
			name:    "invalid status",
			userID:  ownerID,
			req:     models.CreateTaskRequest{ProjectID: projectID, Title: "x", Status: "blocked"},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			resp, err := f.service.CreateTask(context.Background(), tt.userID, tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if len(f.store.tasks) != 0 {
					t.Fatalf("no task should be stored on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Title != "Write copy" || resp.Status != models.StatusPending {
				t.Errorf("unexpected task %+v", resp.Task)
			}
			if resp.ProjectName != "Website" || resp.AssignedToEmail != "ana@example.com" || resp.CreatedByEmail != "owner@example.com" {
				t.Errorf("response not enriched: %+v", resp)
			}
			if len(f.notifier.sent) != 1 || f.notifier.sent[0].userID != assigneeID {
				t.Errorf("expected assignee notification, got %+v", f.notifier.sent)
			}
		})
	}
}

func TestTransitionOwnerHappyPath(t *testing.T) {
	f := newFixture()
	task := f.seed(models.StatusPending)

	for _, next := range []models.TaskStatus{models.StatusInProgress, models.StatusInReview, models.StatusCompleted} {
		resp, err := f.service.Transition(context.Background(), ownerID, task.ID.Hex(), next)
		if err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
		if resp.Status != next || f.store.status(task.ID) != next {
			t.Fatalf("expected %s, got response %s stored %s", next, resp.Status, f.store.status(task.ID))
		}
	}

	if got := len(f.activities.recorded); got != 3 {
		t.Errorf("expected 3 activity entries, got %d", got)
	}
	for _, a := range f.activities.recorded {
		if a.ActivityType != models.ActivityChangeTaskStatus || a.ActorID != ownerID {
			t.Errorf("unexpected activity %+v", a)
		}
	}
}

func TestTransitionRejectedLeavesStatus(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		from    models.TaskStatus
		to      models.TaskStatus
		wantErr error
	}{
		{"assignee cannot complete from review", assigneeID, models.StatusInReview, models.StatusCompleted, lifecycle.ErrInvalidTransition},
		{"assignee cannot cancel", assigneeID, models.StatusPending, models.StatusCancelled, lifecycle.ErrInvalidTransition},
		{"owner cannot reopen completed", ownerID, models.StatusCompleted, models.StatusPending, lifecycle.ErrInvalidTransition},
		{"member not assigned", memberID, models.StatusPending, models.StatusInProgress, lifecycle.ErrForbidden},
		{"stranger", strangerID, models.StatusPending, models.StatusInProgress, lifecycle.ErrForbidden},
		{"unknown status", ownerID, models.StatusPending, "done", lifecycle.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			task := f.seed(tt.from)

			_, err := f.service.Transition(context.Background(), tt.userID, task.ID.Hex(), tt.to)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if got := f.store.status(task.ID); got != tt.from {
				t.Errorf("status changed to %s", got)
			}
			if f.store.writes != 0 {
				t.Errorf("expected no writes, got %d", f.store.writes)
			}
			if len(f.notifier.sent) != 0 {
				t.Errorf("expected no notifications, got %+v", f.notifier.sent)
			}
		})
	}
}

func TestTransitionByAssigneeRemovedFromProject(t *testing.T) {
	f := newFixture()
	task := f.seed(models.StatusPending)
	task.AssignedTo = strangerID
	f.store.put(task)

	if _, err := f.service.Transition(context.Background(), strangerID, task.ID.Hex(), models.StatusInProgress); !errors.Is(err, lifecycle.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if got := f.store.status(task.ID); got != models.StatusPending {
		t.Errorf("status changed to %s", got)
	}
}

func TestTransitionConflictsWithConcurrentChange(t *testing.T) {
	f := newFixture()
	task := f.seed(models.StatusPending)
	f.service.tasks = &racingTaskStore{fakeTaskStore: f.store, after: models.StatusCancelled}

	_, err := f.service.Transition(context.Background(), ownerID, task.ID.Hex(), models.StatusInProgress)
	if !errors.Is(err, models.ErrStatusConflict) {
		t.Fatalf("expected status conflict, got %v", err)
	}
	if got := f.store.status(task.ID); got != models.StatusCancelled {
		t.Errorf("concurrent cancel was overwritten with %s", got)
	}
	if len(f.activities.recorded) != 0 {
		t.Errorf("no activity expected on conflict, got %+v", f.activities.recorded)
	}
}

func TestTransitionPersistFailure(t *testing.T) {
	f := newFixture()
	task := f.seed(models.StatusPending)
	f.store.failWrite = errors.New("write conflict")

	_, err := f.service.Transition(context.Background(), assigneeID, task.ID.Hex(), models.StatusInProgress)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := f.store.status(task.ID); got != models.StatusPending {
		t.Errorf("expected pending, got %s", got)
	}
	if len(f.activities.recorded) != 0 {
		t.Errorf("no activity expected on failure")
	}
}

func TestTransitionNotificationFailureKeepsChange(t *testing.T) {
	f := newFixture()
	task := f.seed(models.StatusInProgress)
	f.notifier.err = errors.New("breaker open")

	if _, err := f.service.Transition(context.Background(), assigneeID, task.ID.Hex(), models.StatusInReview); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.store.status(task.ID); got != models.StatusInReview {
		t.Errorf("expected in_review, got %s", got)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].userID != ownerID {
		t.Errorf("expected owner to be notified, got %+v", f.notifier.sent)
	}
}

func TestUpdateTaskAssignee(t *testing.T) {
	f := newFixture()
	task := f.seed(models.StatusPending)
	title := "Renamed"
	inProgress := models.StatusInProgress
	completed := models.StatusCompleted

	if _, err := f.service.UpdateTask(context.Background(), assigneeID, task.ID.Hex(), models.UpdateTaskRequest{Title: &title}); !errors.Is(err, lifecycle.ErrForbidden) {
		t.Fatalf("assignee edit of title: expected forbidden, got %v", err)
	}

	resp, err := f.service.UpdateTask(context.Background(), assigneeID, task.ID.Hex(), models.UpdateTaskRequest{Status: &inProgress})
	if err != nil {
		t.Fatalf("assignee status update: %v", err)
	}
	if resp.Status != models.StatusInProgress {
		t.Errorf("expected in_progress, got %s", resp.Status)
	}

	if _, err := f.service.UpdateTask(context.Background(), assigneeID, task.ID.Hex(), models.UpdateTaskRequest{Status: &completed}); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("assignee completing: expected invalid transition, got %v", err)
	}
	if got := f.store.status(task.ID); got != models.StatusInProgress {
		t.Errorf("expected in_progress to stick, got %s", got)
	}
}

func TestUpdateTaskOwner(t *testing.T) {
	f := newFixture()
	task := f.seed(models.StatusCompleted)
	title := "  New title "
	reopened := models.StatusPending
	reassign := memberID

	resp, err := f.service.UpdateTask(context.Background(), ownerID, task.ID.Hex(), models.UpdateTaskRequest{
		Title:      &title,
		Status:     &reopened,
		AssignedTo: &reassign,
	})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if resp.Title != "New title" || resp.Status != models.StatusPending || resp.AssignedTo != memberID {
		t.Errorf("unexpected task %+v", resp.Task)
	}

	outsider := strangerID
	if _, err := f.service.UpdateTask(context.Background(), ownerID, task.ID.Hex(), models.UpdateTaskRequest{AssignedTo: &outsider}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := f.service.UpdateTask(context.Background(), strangerID, task.ID.Hex(), models.UpdateTaskRequest{Status: &reopened}); !errors.Is(err, lifecycle.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAvailableTransitions(t *testing.T) {
	f := newFixture()
	task := f.seed(models.StatusInProgress)

	owner, err := f.service.AvailableTransitions(context.Background(), ownerID, task.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if owner.Actor != "owner" || len(owner.Transitions) != 2 {
		t.Errorf("owner transitions: %+v", owner)
	}

	assignee, err := f.service.AvailableTransitions(context.Background(), assigneeID, task.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if len(assignee.Transitions) != 1 || assignee.Transitions[0] != models.StatusInReview {
		t.Errorf("assignee transitions: %+v", assignee)
	}
}

func TestDeleteTask(t *testing.T) {
	f := newFixture()
	task := f.seed(models.StatusPending)

	if err := f.service.DeleteTask(context.Background(), assigneeID, task.ID.Hex()); !errors.Is(err, lifecycle.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.service.DeleteTask(context.Background(), ownerID, task.ID.Hex()); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := f.service.GetTask(context.Background(), ownerID, task.ID.Hex()); !errors.Is(err, models.ErrTaskNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteProjectTasks(t *testing.T) {
	f := newFixture()
	f.seed(models.StatusPending)
	f.seed(models.StatusCompleted)

	if _, err := f.service.DeleteProjectTasks(context.Background(), assigneeID, projectID); !errors.Is(err, lifecycle.ErrForbidden) {
		t.Fatalf("member delete: expected forbidden, got %v", err)
	}
	count, err := f.service.DeleteProjectTasks(context.Background(), ownerID, projectID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 || len(f.store.tasks) != 0 {
		t.Errorf("expected 2 deleted and none left, got %d deleted, %d left", count, len(f.store.tasks))
	}
}

func TestListTasksOnlyShowsCallerProjects(t *testing.T) {
	f := newFixture()
	f.seed(models.StatusPending)
	orphan := f.seed(models.StatusPending)
	orphan.ProjectID = "deleted-project"
	f.store.put(orphan)

	for _, userID := range []string{ownerID, memberID} {
		tasks, err := f.service.ListTasks(context.Background(), userID)
		if err != nil {
			t.Fatal(err)
		}
		if len(tasks) != 1 || tasks[0].ProjectID != projectID {
			t.Errorf("%s: expected the one project task, got %+v", userID, tasks)
		}
	}

	tasks, err := f.service.ListTasks(context.Background(), strangerID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 0 {
		t.Errorf("outsider must see no tasks, got %d", len(tasks))
	}
	if _, err := f.service.ListTasks(context.Background(), ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected unauthenticated, got %v", err)
	}
}

func TestListByProjectAndUser(t *testing.T) {
	f := newFixture()
	f.seed(models.StatusPending)
	f.seed(models.StatusInProgress)

	tasks, err := f.service.ListByProject(context.Background(), memberID, projectID)
	if err != nil || len(tasks) != 2 {
		t.Fatalf("member listing: %d tasks, err %v", len(tasks), err)
	}
	if _, err := f.service.ListByProject(context.Background(), strangerID, projectID); !errors.Is(err, lifecycle.ErrForbidden) {
		t.Errorf("expected forbidden for stranger, got %v", err)
	}
	if _, err := f.service.ListByProject(context.Background(), ownerID, "missing"); !errors.Is(err, models.ErrProjectNotFound) {
		t.Errorf("expected project not found, got %v", err)
	}

	mine, err := f.service.ListByUser(context.Background(), assigneeID, assigneeID)
	if err != nil || len(mine) != 2 {
		t.Fatalf("assignee listing: %d tasks, err %v", len(mine), err)
	}
	if _, err := f.service.ListByUser(context.Background(), memberID, assigneeID); !errors.Is(err, lifecycle.ErrForbidden) {
		t.Errorf("expected forbidden listing someone else's tasks, got %v", err)
	}
}

func TestProjectAnalytics(t *testing.T) {
	f := newFixture()
	past := f.now.Add(-time.Hour)

	late := f.seed(models.StatusInProgress)
	late.DueDate = &past
	f.store.put(late)
	f.seed(models.StatusCompleted)
	f.seed(models.StatusCancelled)
	unassigned := f.seed(models.StatusPending)
	unassigned.AssignedTo = ""
	f.store.put(unassigned)

	got, err := f.service.ProjectAnalytics(context.Background(), memberID, projectID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalTasks != 4 || got.PastDue != 1 || got.Unassigned != 1 {
		t.Errorf("unexpected totals %+v", got)
	}
	if got.TasksByAssignee[assigneeID] != 3 || got.TasksByStatus[models.StatusOverdue] != 0 {
		t.Errorf("unexpected breakdown %+v", got)
	}
	if got.CompletionRate < 0.33 || got.CompletionRate > 0.34 {
		t.Errorf("expected completion rate 1/3, got %f", got.CompletionRate)
	}

	if _, err := f.service.ProjectAnalytics(context.Background(), strangerID, projectID); !errors.Is(err, lifecycle.ErrForbidden) {
		t.Errorf("expected forbidden for stranger, got %v", err)
	}
}

func TestMarkOverdueTasks(t *testing.T) {
	f := newFixture()
	past := f.now.Add(-time.Hour)
	future := f.now.Add(time.Hour)

	late := f.seed(models.StatusPending)
	late.DueDate = &past
	f.store.put(late)

	lateInReview := f.seed(models.StatusInReview)
	lateInReview.DueDate = &past
	f.store.put(lateInReview)

	upcoming := f.seed(models.StatusInProgress)
	upcoming.DueDate = &future
	f.store.put(upcoming)

	count, err := f.service.MarkOverdueTasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 overdue task, got %d", count)
	}
	if f.store.status(late.ID) != models.StatusOverdue {
		t.Errorf("late task not flagged")
	}
	if f.store.status(lateInReview.ID) != models.StatusInReview || f.store.status(upcoming.ID) != models.StatusInProgress {
		t.Errorf("other tasks must keep their status")
	}
	if len(f.activities.recorded) != 1 || f.activities.recorded[0].ActivityType != models.ActivityMarkOverdue {
		t.Errorf("expected one MarkOverdue activity, got %+v", f.activities.recorded)
	}
}

func TestMarkOverdueSkipsTasksCompletedDuringScan(t *testing.T) {
	f := newFixture()
	past := f.now.Add(-time.Hour)
	late := f.seed(models.StatusInProgress)
	late.DueDate = &past
	f.store.put(late)
	f.service.tasks = &racingTaskStore{fakeTaskStore: f.store, after: models.StatusCompleted}

	count, err := f.service.MarkOverdueTasks(context.Background())
	if err != nil {
		t.Fatalf("scan must skip conflicting tasks, got %v", err)
	}
	if count != 0 {
		t.Errorf("expected no overdue updates, got %d", count)
	}
	if got := f.store.status(late.ID); got != models.StatusCompleted {
		t.Errorf("completed task overwritten with %s", got)
	}
	if len(f.activities.recorded) != 0 {
		t.Errorf("no activity expected, got %+v", f.activities.recorded)
	}
}

func TestRunOverdueScannerStops(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		f.service.RunOverdueScanner(ctx, time.Hour, time.Minute)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scanner did not stop after cancellation")
	}
}
