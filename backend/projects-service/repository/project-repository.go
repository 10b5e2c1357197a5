package repository

import (
	"context"
	"errors"
	"fmt"

	"micro-crm/backend/projects-service/models"
	"micro-crm/backend/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// sortFields maps the public order_by names to document fields.
var sortFields = map[string]string{
	"id":        "_id",
	"name":      "name",
	"status":    "status",
	"createdAt": "createdAt",
	"updatedAt": "updatedAt",
}

// SortField reports the stored field for an order_by value.
func SortField(orderBy string) (string, bool) {
	field, ok := sortFields[orderBy]
	return field, ok
}

type ProjectRepository struct {
	collection *mongo.Collection
}

func NewProjectRepository(collection *mongo.Collection) *ProjectRepository {
	return &ProjectRepository{collection: collection}
}

func (r *ProjectRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "creatorId", Value: 1}}},
		{Keys: bson.D{{Key: "customerId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create project indexes: %w", err)
	}
	return nil
}

func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, project); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, projectID string) (*models.Project, error) {
	objectID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, models.ErrProjectNotFound
	}

	var project models.Project
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&project)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project: %w", err)
	}
	return &project, nil
}

// List returns one page of projects and the total number of projects.
func (r *ProjectRepository) List(ctx context.Context, page utils.PageRequest) ([]models.Project, int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	field, ok := SortField(page.OrderBy)
	if !ok {
		field = "_id"
	}
	direction := -1
	if page.Ascending() {
		direction = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: direction}}).
		SetSkip(page.Skip).
		SetLimit(page.Limit)

	projects, err := r.find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (r *ProjectRepository) ListByCustomer(ctx context.Context, customerID string) ([]models.Project, error) {
	return r.find(ctx, bson.M{"customerId": customerID}, options.Find())
}

func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": project.ID}, project)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, projectID string) error {
	objectID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return models.ErrProjectNotFound
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Project, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve projects: %w", err)
	}
	defer cursor.Close(ctx)

	projects := []models.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	return projects, nil
}
