package repository

import (
	"context"
	"errors"
	"fmt"

	"micro-crm/backend/projects-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MemberRepository struct {
	collection *mongo.Collection
}

func NewMemberRepository(collection *mongo.Collection) *MemberRepository {
	return &MemberRepository{collection: collection}
}

// EnsureIndexes makes (projectId, userId) unique.
func (r *MemberRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "projectId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create member indexes: %w", err)
	}
	return nil
}

func (r *MemberRepository) Create(ctx context.Context, member *models.ProjectMember) error {
	if member.ID.IsZero() {
		member.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, member)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrAlreadyMember
	}
	if err != nil {
		return fmt.Errorf("failed to add project member: %w", err)
	}
	return nil
}

func (r *MemberRepository) GetByID(ctx context.Context, memberID string) (*models.ProjectMember, error) {
	objectID, err := primitive.ObjectIDFromHex(memberID)
	if err != nil {
		return nil, models.ErrMemberNotFound
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

// Find returns the membership of userID in projectID.
func (r *MemberRepository) Find(ctx context.Context, projectID, userID string) (*models.ProjectMember, error) {
	return r.findOne(ctx, bson.M{"projectId": projectID, "userId": userID})
}

func (r *MemberRepository) ListByProject(ctx context.Context, projectID string) ([]models.ProjectMember, error) {
	return r.find(ctx, bson.M{"projectId": projectID})
}

func (r *MemberRepository) ListByUser(ctx context.Context, userID string) ([]models.ProjectMember, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *MemberRepository) UpdateRole(ctx context.Context, memberID primitive.ObjectID, roleID string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": memberID}, bson.M{"$set": bson.M{"roleId": roleID}})
	if err != nil {
		return fmt.Errorf("failed to update project member: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) Delete(ctx context.Context, memberID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": memberID})
	if err != nil {
		return fmt.Errorf("failed to remove project member: %w", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"projectId": projectID})
	if err != nil {
		return 0, fmt.Errorf("failed to remove project members: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *MemberRepository) findOne(ctx context.Context, filter bson.M) (*models.ProjectMember, error) {
	var member models.ProjectMember
	err := r.collection.FindOne(ctx, filter).Decode(&member)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project member: %w", err)
	}
	return &member, nil
}

func (r *MemberRepository) find(ctx context.Context, filter bson.M) ([]models.ProjectMember, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve project members: %w", err)
	}
	defer cursor.Close(ctx)

	members := []models.ProjectMember{}
	if err := cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("failed to decode project members: %w", err)
	}
	return members, nil
}
