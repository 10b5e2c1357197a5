package models

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	MaxRoleName        = 50
	MaxRoleDescription = 150
)

type Role struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
}

type RoleRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}
