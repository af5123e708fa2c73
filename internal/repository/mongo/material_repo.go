package mongo

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const materialCollectionName = "course_materials"

// mongoMaterialRepository implements repository.MaterialRepository
type mongoMaterialRepository struct {
	collection *mongo.Collection
}

// NewMongoMaterialRepository creates a new Material repository backed by MongoDB.
func NewMongoMaterialRepository(db *mongo.Database) repository.MaterialRepository {
	return &mongoMaterialRepository{
		collection: db.Collection(materialCollectionName),
	}
}

// Create inserts new material metadata. The caller assigns ID and CreatedAt.
func (r *mongoMaterialRepository) Create(ctx context.Context, m *domain.Material) error {
	if m.ID == "" || m.CourseID == "" || m.ObjectKey == "" {
		return errors.New("material requires id, courseId and objectKey")
	}

	_, err := r.collection.InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID retrieves material metadata by its ID.
func (r *mongoMaterialRepository) GetByID(ctx context.Context, id string) (*domain.Material, error) {
	var m domain.Material
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *mongoMaterialRepository) ListByCourse(ctx context.Context, courseID string) ([]domain.Material, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	var materials []domain.Material
	if err := findAll(ctx, r.collection, bson.M{"courseId": courseID}, opts, &materials); err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *mongoMaterialRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func ensureMaterialIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "courseId", Value: 1}, {Key: "createdAt", Value: 1}}},
		{
			Keys:    bson.D{{Key: "objectKey", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}
