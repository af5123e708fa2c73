package mongo

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/repository"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	courseCollectionName  = "courses"
	moduleCollectionName  = "modules"
	sectionCollectionName = "sections"
	lessonCollectionName  = "lessons"
)

// mongoContentRepository implements repository.ContentRepository.
// Hierarchy levels live in their own collections, linked by parent id.
type mongoContentRepository struct {
	client   *mongo.Client
	courses  *mongo.Collection
	modules  *mongo.Collection
	sections *mongo.Collection
	lessons  *mongo.Collection
}

// NewMongoContentRepository creates a new content repository backed by MongoDB.
// ApplyCourseChanges runs in a multi-document transaction, which needs a replica set.
func NewMongoContentRepository(db *mongo.Database) repository.ContentRepository {
	return &mongoContentRepository{
		client:   db.Client(),
		courses:  db.Collection(courseCollectionName),
		modules:  db.Collection(moduleCollectionName),
		sections: db.Collection(sectionCollectionName),
		lessons:  db.Collection(lessonCollectionName),
	}
}

func (r *mongoContentRepository) GetCourse(ctx context.Context, courseID string) (*domain.Course, error) {
	var course domain.Course
	err := r.courses.FindOne(ctx, bson.M{"_id": courseID}).Decode(&course)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &course, nil
}

func (r *mongoContentRepository) ListCourses(ctx context.Context) ([]domain.Course, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.courses.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var courses []domain.Course
	if err = cursor.All(ctx, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// GetCourseTree loads each level with one query and assembles the tree in memory.
func (r *mongoContentRepository) GetCourseTree(ctx context.Context, courseID string) (*domain.CourseTree, error) {
	course, err := r.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	byCourse := bson.M{"courseId": courseID}
	ordered := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}})

	var modules []domain.Module
	if err := findAll(ctx, r.modules, byCourse, ordered, &modules); err != nil {
		return nil, err
	}
	var sections []domain.Section
	if err := findAll(ctx, r.sections, byCourse, ordered, &sections); err != nil {
		return nil, err
	}
	var lessons []domain.Lesson
	if err := findAll(ctx, r.lessons, byCourse, ordered, &lessons); err != nil {
		return nil, err
	}

	lessonsBySection := make(map[string][]domain.Lesson, len(sections))
	for _, l := range lessons {
		lessonsBySection[l.SectionID] = append(lessonsBySection[l.SectionID], l)
	}
	sectionsByModule := make(map[string][]domain.SectionNode, len(modules))
	for _, s := range sections {
		sectionsByModule[s.ModuleID] = append(sectionsByModule[s.ModuleID], domain.SectionNode{
			Section: s,
			Lessons: lessonsBySection[s.ID],
		})
	}
	tree := &domain.CourseTree{Course: *course}
	for _, m := range modules {
		tree.Modules = append(tree.Modules, domain.ModuleNode{
			Module:   m,
			Sections: sectionsByModule[m.ID],
		})
	}
	domain.SortTree(tree)
	return tree, nil
}

func (r *mongoContentRepository) GetLesson(ctx context.Context, lessonID string) (*domain.Lesson, error) {
	var lesson domain.Lesson
	err := r.lessons.FindOne(ctx, bson.M{"_id": lessonID}).Decode(&lesson)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &lesson, nil
}

func (r *mongoContentRepository) OwningCourses(ctx context.Context, kind repository.EntityKind, ids []string) (map[string]string, error) {
	owners := make(map[string]string)
	if len(ids) == 0 {
		return owners, nil
	}
	var coll *mongo.Collection
	switch kind {
	case repository.EntityModule:
		coll = r.modules
	case repository.EntitySection:
		coll = r.sections
	case repository.EntityLesson:
		coll = r.lessons
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	opts := options.Find().SetProjection(bson.M{"_id": 1, "courseId": 1})
	cursor, err := coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			ID       string `bson:"_id"`
			CourseID string `bson:"courseId"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		owners[row.ID] = row.CourseID
	}
	return owners, cursor.Err()
}

// ApplyCourseChanges writes the whole change set inside one transaction.
// The course document is written first with a revision filter, so a
// concurrent ingestion of the same course aborts with ErrConflict.
func (r *mongoContentRepository) ApplyCourseChanges(ctx context.Context, cs *repository.CourseChangeSet) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, r.applyInTx(sc, cs)
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

func (r *mongoContentRepository) applyInTx(ctx mongo.SessionContext, cs *repository.CourseChangeSet) error {
	if cs.IsNew {
		if _, err := r.courses.InsertOne(ctx, cs.Course); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return repository.ErrConflict
			}
			return err
		}
	} else {
		filter := bson.M{"_id": cs.Course.ID, "revision": cs.ExpectedRevision}
		res, err := r.courses.ReplaceOne(ctx, filter, cs.Course)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return repository.ErrConflict
		}
	}

	// --- Deletes, children first ---
	if err := deleteIDs(ctx, r.lessons, cs.DeleteLessonIDs); err != nil {
		return err
	}
	if err := deleteIDs(ctx, r.sections, cs.DeleteSectionIDs); err != nil {
		return err
	}
	if err := deleteIDs(ctx, r.modules, cs.DeleteModuleIDs); err != nil {
		return err
	}

	// --- Park rows that move, then upsert, parents first ---
	if err := parkIDs(ctx, r.modules, cs.ParkModuleIDs); err != nil {
		return err
	}
	if err := parkIDs(ctx, r.sections, cs.ParkSectionIDs); err != nil {
		return err
	}
	if err := parkIDs(ctx, r.lessons, cs.ParkLessonIDs); err != nil {
		return err
	}

	moduleModels := make([]mongo.WriteModel, 0, len(cs.Modules))
	for _, m := range cs.Modules {
		moduleModels = append(moduleModels, replaceOwned(m.ID, m.CourseID, m))
	}
	if err := bulkWrite(ctx, r.modules, moduleModels); err != nil {
		return err
	}
	sectionModels := make([]mongo.WriteModel, 0, len(cs.Sections))
	for _, s := range cs.Sections {
		sectionModels = append(sectionModels, replaceOwned(s.ID, s.CourseID, s))
	}
	if err := bulkWrite(ctx, r.sections, sectionModels); err != nil {
		return err
	}
	lessonModels := make([]mongo.WriteModel, 0, len(cs.Lessons))
	for _, l := range cs.Lessons {
		lessonModels = append(lessonModels, replaceOwned(l.ID, l.CourseID, l))
	}
	return bulkWrite(ctx, r.lessons, lessonModels)
}

// replaceOwned upserts a row of courseID. A row with the same id under another
// course misses the filter, and the upsert then fails on the _id index.
func replaceOwned(id, courseID string, doc interface{}) mongo.WriteModel {
	return mongo.NewReplaceOneModel().
		SetFilter(bson.M{"_id": id, "courseId": courseID}).
		SetReplacement(doc).
		SetUpsert(true)
}

func bulkWrite(ctx context.Context, coll *mongo.Collection, models []mongo.WriteModel) error {
	if len(models) == 0 {
		return nil
	}
	_, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}

func deleteIDs(ctx context.Context, coll *mongo.Collection, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

// parkIDs gives each id a distinct negative order, outside the range real rows use.
func parkIDs(ctx context.Context, coll *mongo.Collection, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(ids))
	for i, id := range ids {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$set": bson.M{"order": -(i + 1)}}))
	}
	return bulkWrite(ctx, coll, models)
}

func findAll(ctx context.Context, coll *mongo.Collection, filter interface{}, opts *options.FindOptions, out interface{}) error {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

// --- Indexes ---

func ensureModuleIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "courseId", Value: 1}, {Key: "order", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}

func ensureSectionIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "moduleId", Value: 1}, {Key: "order", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "courseId", Value: 1}}},
	})
	return err
}

func ensureLessonIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sectionId", Value: 1}, {Key: "order", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "courseId", Value: 1}}},
	})
	return err
}
