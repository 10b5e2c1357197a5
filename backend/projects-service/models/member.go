package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectMember struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ProjectID string             `json:"projectId" bson:"projectId"`
	UserID    string             `json:"userId" bson:"userId"`
	RoleID    string             `json:"roleId" bson:"roleId"`
	AddedBy   string             `json:"addedBy" bson:"addedBy"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

type CreateMemberRequest struct {
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
	RoleID    string `json:"roleId"`
}

type UpdateMemberRequest struct {
	RoleID string `json:"roleId"`
}

// MemberResponse carries the display names resolved for a membership.
type MemberResponse struct {
	ProjectMember
	UserName    string `json:"userName"`
	RoleName    string `json:"roleName"`
	AddedByName string `json:"addedByName"`
}

// UserSummary is the part of a users-service record this service needs.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
