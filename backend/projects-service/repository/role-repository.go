package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"micro-crm/backend/projects-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RoleRepository struct {
	collection *mongo.Collection
}

func NewRoleRepository(collection *mongo.Collection) *RoleRepository {
	return &RoleRepository{collection: collection}
}

func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	if role.ID.IsZero() {
		role.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, role); err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

func (r *RoleRepository) GetByID(ctx context.Context, roleID string) (*models.Role, error) {
	objectID, err := primitive.ObjectIDFromHex(roleID)
	if err != nil {
		return nil, models.ErrRoleNotFound
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

// FindByName matches name case-insensitively.
func (r *RoleRepository) FindByName(ctx context.Context, name string) (*models.Role, error) {
	return r.findOne(ctx, bson.M{"name": exactInsensitive(name)})
}

func (r *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve roles: %w", err)
	}
	defer cursor.Close(ctx)

	roles := []models.Role{}
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, fmt.Errorf("failed to decode roles: %w", err)
	}
	return roles, nil
}

func (r *RoleRepository) Update(ctx context.Context, role *models.Role) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": role.ID}, role)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, roleID string) error {
	objectID, err := primitive.ObjectIDFromHex(roleID)
	if err != nil {
		return models.ErrRoleNotFound
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepository) findOne(ctx context.Context, filter bson.M) (*models.Role, error) {
	var role models.Role
	err := r.collection.FindOne(ctx, filter).Decode(&role)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch role: %w", err)
	}
	return &role, nil
}

// exactInsensitive builds a whole-value, case-insensitive match for s.
func exactInsensitive(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}
