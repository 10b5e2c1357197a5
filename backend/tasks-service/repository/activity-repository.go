package repository

import (
	"context"
	"fmt"
	"time"

	"micro-crm/backend/tasks-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ActivityRepository stores the task history of each project.
type ActivityRepository struct {
	collection *mongo.Collection
}

func NewActivityRepository(collection *mongo.Collection) *ActivityRepository {
	return &ActivityRepository{collection: collection}
}

func (r *ActivityRepository) Record(ctx context.Context, activity *models.ProjectActivity) error {
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, activity); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) ListByProject(ctx context.Context, projectID string) ([]models.ProjectActivity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"projectId": projectID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve activity: %w", err)
	}
	defer cursor.Close(ctx)

	activities := []models.ProjectActivity{}
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, fmt.Errorf("failed to decode activity: %w", err)
	}
	return activities, nil
}
