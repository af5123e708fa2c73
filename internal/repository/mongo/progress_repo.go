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

const progressCollectionName = "user_progress"

// mongoProgressRepository implements repository.ProgressRepository.
type mongoProgressRepository struct {
	collection *mongo.Collection
}

// NewMongoProgressRepository creates a new progress repository backed by MongoDB.
func NewMongoProgressRepository(db *mongo.Database) repository.ProgressRepository {
	return &mongoProgressRepository{
		collection: db.Collection(progressCollectionName),
	}
}

func (r *mongoProgressRepository) Get(ctx context.Context, userID, lessonID string) (*domain.UserProgress, error) {
	var p domain.UserProgress
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "lessonId": lessonID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Upsert writes the row with a single atomic update. In ratchet mode the
// completed flag goes through $max, so true always wins over false.
func (r *mongoProgressRepository) Upsert(ctx context.Context, p *domain.UserProgress, mode repository.CompletionWrite) (*domain.UserProgress, error) {
	if p.UserID == "" || p.LessonID == "" {
		return nil, errors.New("progress requires userId and lessonId")
	}

	set := bson.M{
		"courseId":            p.CourseID,
		"lastWatchedPosition": p.LastWatchedPosition,
		"updatedAt":           p.UpdatedAt,
	}
	update := bson.M{
		"$setOnInsert": bson.M{"watchedAt": p.WatchedAt},
	}
	if mode == repository.CompletionRatchet {
		update["$max"] = bson.M{"completed": p.Completed}
	} else {
		set["completed"] = p.Completed
	}
	update["$set"] = set

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored domain.UserProgress
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"userId": p.UserID, "lessonId": p.LessonID}, update, opts).Decode(&stored)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *mongoProgressRepository) ListByCourse(ctx context.Context, userID, courseID string) ([]domain.UserProgress, error) {
	return r.find(ctx, bson.M{"userId": userID, "courseId": courseID})
}

func (r *mongoProgressRepository) ListByUser(ctx context.Context, userID string) ([]domain.UserProgress, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *mongoProgressRepository) find(ctx context.Context, filter bson.M) ([]domain.UserProgress, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "lessonId", Value: 1}})
	var rows []domain.UserProgress
	if err := findAll(ctx, r.collection, filter, opts, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *mongoProgressRepository) DeleteByCourse(ctx context.Context, userID, courseID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"userId": userID, "courseId": courseID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func ensureProgressIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "lessonId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "courseId", Value: 1}, {Key: "updatedAt", Value: -1}},
		},
	})
	return err
}
