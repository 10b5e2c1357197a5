package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectStatus string

const (
	ProjectProspect ProjectStatus = "prospecto"
	ProjectActive   ProjectStatus = "en_curso"
	ProjectPaused   ProjectStatus = "pausado"
	ProjectClosed   ProjectStatus = "cerrado"
)

const (
	MaxProjectName        = 100
	MaxProjectDescription = 500
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectProspect, ProjectActive, ProjectPaused, ProjectClosed:
		return true
	}
	return false
}

type Project struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	CreatorID   string             `json:"creatorId" bson:"creatorId"`
	CustomerID  string             `json:"customerId,omitempty" bson:"customerId,omitempty"`
	Status      ProjectStatus      `json:"status" bson:"status"`
	Budget      *float64           `json:"budget,omitempty" bson:"budget,omitempty"`
	StartDate   *time.Time         `json:"startDate,omitempty" bson:"startDate,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ProjectRequest is the body of POST and PUT /api/projects. On PUT nil fields are kept.
type ProjectRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	CustomerID  *string        `json:"customerId"`
	Status      *ProjectStatus `json:"status"`
	Budget      *float64       `json:"budget"`
	StartDate   *time.Time     `json:"startDate"`
}

// ProjectAccess is the ownership summary served to tasks-service.
type ProjectAccess struct {
	ProjectID string   `json:"projectId"`
	Name      string   `json:"name"`
	CreatorID string   `json:"creatorId"`
	MemberIDs []string `json:"memberIds"`
}
