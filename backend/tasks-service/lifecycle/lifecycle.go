// Package lifecycle decides which status changes a user may apply to a task.
//
// The project owner moves tasks along the board and may also set any status
// through an edit. The assignee may only push their own task forward up to
// review. Everybody else is rejected. Every accepted change is written through
// a Persister; if that write fails the task keeps its previous status.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"micro-crm/backend/tasks-service/models"
)

var (
	ErrForbidden         = errors.New("user is neither the project owner nor the task assignee")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrInvalidStatus     = errors.New("unknown task status")
)

// Actor is the relationship between the acting user and a task.
type Actor string

const (
	ActorOwner    Actor = "owner"
	ActorAssignee Actor = "assignee"
	ActorNone     Actor = "none"
)

type transition struct {
	from models.TaskStatus
	to   models.TaskStatus
}

var ownerTransitions = map[transition]bool{
	{models.StatusPending, models.StatusInProgress}:   true,
	{models.StatusInProgress, models.StatusInReview}:  true,
	{models.StatusInProgress, models.StatusCompleted}: true,
	{models.StatusInReview, models.StatusCompleted}:   true,
	{models.StatusOverdue, models.StatusCompleted}:    true,
}

var assigneeTransitions = map[transition]bool{
	{models.StatusPending, models.StatusInProgress}:  true,
	{models.StatusInProgress, models.StatusInReview}: true,
	{models.StatusOverdue, models.StatusInReview}:    true,
}

// Resolve classifies userID against the project and task.
// The creator is always the owner, even when also assigned to the task.
// An assignee who is no longer a member has no rights on the task.
func Resolve(project models.ProjectAccess, task *models.Task, userID string) Actor {
	switch {
	case userID == "":
		return ActorNone
	case project.CreatorID == userID:
		return ActorOwner
	case task != nil && task.AssignedTo == userID && project.IsMember(userID):
		return ActorAssignee
	default:
		return ActorNone
	}
}

// CanTransition checks one move against the table of actor.
func CanTransition(actor Actor, from, to models.TaskStatus) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: %q -> %q", ErrInvalidStatus, from, to)
	}

	var table map[transition]bool
	switch actor {
	case ActorOwner:
		table = ownerTransitions
	case ActorAssignee:
		table = assigneeTransitions
	default:
		return ErrForbidden
	}

	if !table[transition{from, to}] {
		return fmt.Errorf("%w: %s cannot move %s -> %s", ErrInvalidTransition, actor, from, to)
	}
	return nil
}

// CanEdit checks a direct status set from the edit form. The owner may set
// any valid status; the assignee is held to the transition table.
func CanEdit(actor Actor, from, to models.TaskStatus) error {
	if actor == ActorOwner {
		if !to.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
		}
		return nil
	}
	return CanTransition(actor, from, to)
}

// AvailableTransitions lists the targets actor may move a task in status from to,
// in board order. Clients render exactly these actions.
func AvailableTransitions(actor Actor, from models.TaskStatus) []models.TaskStatus {
	out := []models.TaskStatus{}
	for _, to := range models.AllStatuses {
		if CanTransition(actor, from, to) == nil {
			out = append(out, to)
		}
	}
	return out
}

// Persister writes a new status for a task. It is the task-update collaborator.
type Persister interface {
	UpdateStatus(ctx context.Context, task *models.Task, from, to models.TaskStatus) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, task *models.Task, from, to models.TaskStatus) error

func (f PersisterFunc) UpdateStatus(ctx context.Context, task *models.Task, from, to models.TaskStatus) error {
	return f(ctx, task, from, to)
}

// Manager applies validated status changes through a Persister.
type Manager struct {
	persister Persister
}

func NewManager(persister Persister) *Manager {
	return &Manager{persister: persister}
}

// Transition moves task to status following the board rules for actor.
func (m *Manager) Transition(ctx context.Context, task *models.Task, actor Actor, status models.TaskStatus) error {
	if err := CanTransition(actor, task.Status, status); err != nil {
		return err
	}
	return m.apply(ctx, task, status)
}

// Edit sets status directly, as the owner's edit form does.
func (m *Manager) Edit(ctx context.Context, task *models.Task, actor Actor, status models.TaskStatus) error {
	if actor != ActorOwner && actor != ActorAssignee {
		return ErrForbidden
	}
	if task.Status == status {
		return nil
	}
	if err := CanEdit(actor, task.Status, status); err != nil {
		return err
	}
	return m.apply(ctx, task, status)
}

func (m *Manager) apply(ctx context.Context, task *models.Task, status models.TaskStatus) error {
	previous := task.Status
	task.Status = status
	if err := m.persister.UpdateStatus(ctx, task, previous, status); err != nil {
		task.Status = previous
		return fmt.Errorf("failed to persist status %s: %w", status, err)
	}
	return nil
}

// ShouldMarkOverdue reports whether the overdue scan must flag task at now.
// Only pending and in-progress tasks with a past due date qualify.
func ShouldMarkOverdue(task *models.Task, now time.Time) bool {
	if task.DueDate == nil {
		return false
	}
	if task.Status != models.StatusPending && task.Status != models.StatusInProgress {
		return false
	}
	return task.DueDate.Before(now)
}
