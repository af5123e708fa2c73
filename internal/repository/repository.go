package repository

import (
	"alcyxob/course-app/internal/domain"
	"context"
)

// Error constants for repository layer
var (
	ErrNotFound = RepositoryError("not found")
	// ErrConflict is returned when a write lost an optimistic concurrency check
	// or collided with a uniqueness constraint.
	ErrConflict = RepositoryError("conflict")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// EntityKind names one level of the content hierarchy.
type EntityKind string

const (
	EntityModule  EntityKind = "module"
	EntitySection EntityKind = "section"
	EntityLesson  EntityKind = "lesson"
)

// CourseChangeSet is everything one ingestion writes, applied atomically.
// Only changed rows are listed; unchanged rows are left untouched.
type CourseChangeSet struct {
	Course           domain.Course
	IsNew            bool  // Course row does not exist yet
	ExpectedRevision int64 // Stored revision the change set was computed from

	Modules  []domain.Module
	Sections []domain.Section
	Lessons  []domain.Lesson

	// Existing rows whose order changes. They are moved out of the way before
	// the upserts so the (parent, order) unique indexes never see a transient duplicate.
	ParkModuleIDs  []string
	ParkSectionIDs []string
	ParkLessonIDs  []string

	DeleteModuleIDs  []string
	DeleteSectionIDs []string
	DeleteLessonIDs  []string
}

// ContentRepository defines the interface for the course hierarchy.
type ContentRepository interface {
	GetCourse(ctx context.Context, courseID string) (*domain.Course, error)
	ListCourses(ctx context.Context) ([]domain.Course, error)
	// GetCourseTree returns the nested hierarchy with every level ordered.
	GetCourseTree(ctx context.Context, courseID string) (*domain.CourseTree, error)
	GetLesson(ctx context.Context, lessonID string) (*domain.Lesson, error)
	// OwningCourses maps each existing id of the given kind to its course id.
	// Ids that do not exist are absent from the result.
	OwningCourses(ctx context.Context, kind EntityKind, ids []string) (map[string]string, error)
	// ApplyCourseChanges writes the change set in a single transaction.
	// Returns ErrConflict when the stored revision no longer matches.
	ApplyCourseChanges(ctx context.Context, cs *CourseChangeSet) error
}

// CompletionWrite selects how a progress upsert treats the completed flag.
type CompletionWrite int

const (
	// CompletionRatchet keeps completed=true once stored, whatever the new value.
	CompletionRatchet CompletionWrite = iota
	// CompletionOverwrite stores the given flag as is (manual toggle).
	CompletionOverwrite
)

// ProgressRepository defines the interface for per-user lesson progress.
type ProgressRepository interface {
	Get(ctx context.Context, userID, lessonID string) (*domain.UserProgress, error)
	// Upsert inserts or updates the (UserID, LessonID) row and returns the stored row.
	// WatchedAt is only written on insert.
	Upsert(ctx context.Context, p *domain.UserProgress, mode CompletionWrite) (*domain.UserProgress, error)
	// ListByCourse returns the user's rows for a course, most recently updated first.
	ListByCourse(ctx context.Context, userID, courseID string) ([]domain.UserProgress, error)
	ListByUser(ctx context.Context, userID string) ([]domain.UserProgress, error)
	DeleteByCourse(ctx context.Context, userID, courseID string) (int64, error)
}

// MaterialRepository defines the interface for course material metadata.
type MaterialRepository interface {
	Create(ctx context.Context, m *domain.Material) error
	GetByID(ctx context.Context, id string) (*domain.Material, error)
	ListByCourse(ctx context.Context, courseID string) ([]domain.Material, error)
	Delete(ctx context.Context, id string) error
}
