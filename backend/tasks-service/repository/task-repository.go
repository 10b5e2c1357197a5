package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"micro-crm/backend/tasks-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TaskRepository struct {
	tasksCollection *mongo.Collection
}

func NewTaskRepository(tasksCollection *mongo.Collection) *TaskRepository {
	return &TaskRepository{tasksCollection: tasksCollection}
}

// EnsureIndexes creates the lookup indexes used by the list endpoints and the overdue scan.
func (r *TaskRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.tasksCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "projectId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "assignedTo", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "dueDate", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create task indexes: %w", err)
	}
	return nil
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	if _, err := r.tasksCollection.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, taskID string) (*models.Task, error) {
	objectID, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, models.ErrTaskNotFound
	}

	var task models.Task
	err = r.tasksCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) List(ctx context.Context) ([]*models.Task, error) {
	return r.find(ctx, bson.M{})
}

func (r *TaskRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	return r.find(ctx, bson.M{"projectId": projectID})
}

func (r *TaskRepository) ListByAssignee(ctx context.Context, userID string) ([]*models.Task, error) {
	return r.find(ctx, bson.M{"assignedTo": userID})
}

// ListOverdueCandidates returns pending or in-progress tasks whose due date is before now.
func (r *TaskRepository) ListOverdueCandidates(ctx context.Context, now time.Time) ([]*models.Task, error) {
	return r.find(ctx, bson.M{
		"dueDate": bson.M{"$ne": nil, "$lt": now},
		"status":  bson.M{"$in": []models.TaskStatus{models.StatusPending, models.StatusInProgress}},
	})
}

// Update writes the editable fields only while the stored status is still from.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task, from models.TaskStatus) error {
	update := bson.M{"$set": bson.M{
		"title":       task.Title,
		"description": task.Description,
		"status":      task.Status,
		"assignedTo":  task.AssignedTo,
		"dueDate":     task.DueDate,
	}}
	return r.updateOne(ctx, task.ID, from, update)
}

// UpdateStatus is the task-update collaborator used by the lifecycle manager
// and the overdue scan. It only applies while the stored status is from.
func (r *TaskRepository) UpdateStatus(ctx context.Context, task *models.Task, from, to models.TaskStatus) error {
	return r.updateOne(ctx, task.ID, from, bson.M{"$set": bson.M{"status": to}})
}

func (r *TaskRepository) Delete(ctx context.Context, taskID string) error {
	objectID, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return models.ErrTaskNotFound
	}
	result, err := r.tasksCollection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrTaskNotFound
	}
	return nil
}

// DeleteByProject removes every task of a project and returns how many were deleted.
func (r *TaskRepository) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	result, err := r.tasksCollection.DeleteMany(ctx, bson.M{"projectId": projectID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete project tasks: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *TaskRepository) updateOne(ctx context.Context, id primitive.ObjectID, from models.TaskStatus, update bson.M) error {
	result, err := r.tasksCollection.UpdateOne(ctx, bson.M{"_id": id, "status": from}, update)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}
	exists, err := r.tasksCollection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check task: %w", err)
	}
	if exists == 0 {
		return models.ErrTaskNotFound
	}
	return models.ErrStatusConflict
}

func (r *TaskRepository) find(ctx context.Context, filter bson.M) ([]*models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.tasksCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []*models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}
