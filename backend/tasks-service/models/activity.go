package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ActivityType string

const (
	ActivityCreateTask       ActivityType = "CreateTask"
	ActivityUpdateTask       ActivityType = "UpdateTask"
	ActivityDeleteTask       ActivityType = "DeleteTask"
	ActivityChangeTaskStatus ActivityType = "ChangeTaskStatus"
	ActivityMarkOverdue      ActivityType = "MarkOverdue"
)

// ProjectActivity is one entry of a project's task history.
type ProjectActivity struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ProjectID    string             `json:"projectId" bson:"projectId"`
	TaskID       string             `json:"taskId,omitempty" bson:"taskId,omitempty"`
	ActivityType ActivityType       `json:"activityType" bson:"activityType"`
	ActorID      string             `json:"actorId,omitempty" bson:"actorId,omitempty"`
	FromStatus   TaskStatus         `json:"fromStatus,omitempty" bson:"fromStatus,omitempty"`
	ToStatus     TaskStatus         `json:"toStatus,omitempty" bson:"toStatus,omitempty"`
	Details      string             `json:"details,omitempty" bson:"details,omitempty"`
	Timestamp    time.Time          `json:"timestamp" bson:"timestamp"`
}
