package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusOverdue    TaskStatus = "overdue"
	StatusInReview   TaskStatus = "in_review"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// AllStatuses lists every status in board column order.
var AllStatuses = []TaskStatus{
	StatusPending,
	StatusInProgress,
	StatusOverdue,
	StatusInReview,
	StatusCompleted,
	StatusCancelled,
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

const (
	MaxTitleLength       = 150
	MaxDescriptionLength = 150
)

type Task struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ProjectID   string             `json:"projectId" bson:"projectId"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Status      TaskStatus         `json:"status" bson:"status"`
	AssignedTo  string             `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	DueDate     *time.Time         `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	CreatedBy   string             `json:"createdBy" bson:"createdBy"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// CreateTaskRequest is the body of POST /api/tasks/.
type CreateTaskRequest struct {
	ProjectID   string     `json:"projectId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	AssignedTo  string     `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateTaskRequest is the body of PUT /api/tasks/{id}. Nil fields are left untouched.
// An assignee that is not the owner may only send Status.
type UpdateTaskRequest struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	Status      *TaskStatus `json:"status"`
	AssignedTo  *string     `json:"assignedTo"`
	DueDate     *time.Time  `json:"dueDate"`
}

// OnlyStatus reports whether the request touches nothing but the status.
func (r UpdateTaskRequest) OnlyStatus() bool {
	return r.Title == nil && r.Description == nil && r.AssignedTo == nil && r.DueDate == nil
}

// TransitionRequest is the body of POST /api/tasks/{id}/transition.
type TransitionRequest struct {
	Status TaskStatus `json:"status"`
}

// TaskResponse is a Task enriched with names resolved from other services.
type TaskResponse struct {
	Task
	ProjectName     string `json:"projectName,omitempty"`
	AssignedToEmail string `json:"assignedToEmail,omitempty"`
	CreatedByEmail  string `json:"createdByEmail,omitempty"`
}

// TransitionsResponse lists the statuses the caller may move a task to.
type TransitionsResponse struct {
	TaskID      string       `json:"taskId"`
	Status      TaskStatus   `json:"status"`
	Actor       string       `json:"actor"`
	Transitions []TaskStatus `json:"transitions"`
}
