package service

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/logger"
	"alcyxob/course-app/internal/repository"
	"context"
	"errors"
	"time"
)

// ProgressUpdate is a playback event. Nil fields are not reported.
type ProgressUpdate struct {
	Completed *bool
	Position  *int
}

// ResumePoint is where a user should continue a course.
type ResumePoint struct {
	Lesson   domain.Lesson        `json:"lesson"`
	Progress *domain.UserProgress `json:"progress"`
	Resumed  bool                 `json:"resumed"` // False when falling back to the first lesson
}

// --- Service Interface ---

type ProgressService interface {
	UpsertProgress(ctx context.Context, userID, lessonID, courseID string, update ProgressUpdate) (*domain.UserProgress, error)
	ToggleCompletion(ctx context.Context, userID, lessonID, courseID string, completed bool) (*domain.UserProgress, error)
	ResetProgress(ctx context.Context, userID, courseID string) (int64, error)
	GetLastWatched(ctx context.Context, userID, courseID string) (*ResumePoint, error)
	// GetLessonProgress returns (nil, nil) when the user never started the lesson.
	GetLessonProgress(ctx context.Context, userID, lessonID string) (*domain.UserProgress, error)
	ListCourseProgress(ctx context.Context, userID, courseID string) ([]domain.UserProgress, error)
	ListAllProgress(ctx context.Context, userID string) ([]domain.UserProgress, error)
}

// --- Service Implementation ---

type progressService struct {
	progressRepo repository.ProgressRepository
	content      ContentService
	policy       CompletionPolicy
	log          *logger.Logger
	now          func() time.Time
}

func NewProgressService(progressRepo repository.ProgressRepository, content ContentService, policy CompletionPolicy, log *logger.Logger) ProgressService {
	return &progressService{
		progressRepo: progressRepo,
		content:      content,
		policy:       policy,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// UpsertProgress applies one playback event. Completion only ratchets upward:
// a reported completed=false never clears a stored completion.
func (s *progressService) UpsertProgress(ctx context.Context, userID, lessonID, courseID string, update ProgressUpdate) (*domain.UserProgress, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if update.Position == nil && update.Completed == nil {
		return nil, ErrEmptyProgressUpdate
	}
	if update.Position != nil && *update.Position < 0 {
		return nil, ErrInvalidPosition
	}
	lesson, err := s.lessonInCourse(ctx, lessonID, courseID)
	if err != nil {
		return nil, err
	}
	existing, err := s.stored(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}

	next := domain.UserProgress{
		UserID:   userID,
		LessonID: lessonID,
		CourseID: lesson.CourseID,
	}
	if existing != nil {
		next.LastWatchedPosition = existing.LastWatchedPosition
		next.Completed = existing.Completed
	}
	if update.Position != nil {
		next.LastWatchedPosition = *update.Position
	}
	if update.Completed != nil && *update.Completed {
		next.Completed = true
	}
	if update.Position != nil && s.policy.Reached(*update.Position, lesson.Duration) {
		next.Completed = true
	}

	return s.write(ctx, existing, next, repository.CompletionRatchet)
}

// ToggleCompletion sets the completed flag as given. It is the only way to
// clear a completion.
func (s *progressService) ToggleCompletion(ctx context.Context, userID, lessonID, courseID string, completed bool) (*domain.UserProgress, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	lesson, err := s.lessonInCourse(ctx, lessonID, courseID)
	if err != nil {
		return nil, err
	}
	existing, err := s.stored(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}

	next := domain.UserProgress{
		UserID:    userID,
		LessonID:  lessonID,
		CourseID:  lesson.CourseID,
		Completed: completed,
	}
	if existing != nil {
		next.LastWatchedPosition = existing.LastWatchedPosition
	}
	return s.write(ctx, existing, next, repository.CompletionOverwrite)
}

// write skips the store when nothing visible changes, so repeated identical
// events leave updatedAt alone.
func (s *progressService) write(ctx context.Context, existing *domain.UserProgress, next domain.UserProgress, mode repository.CompletionWrite) (*domain.UserProgress, error) {
	if existing != nil && existing.SameState(&next) {
		return existing, nil
	}
	now := s.now()
	next.UpdatedAt = now
	next.WatchedAt = now
	if existing != nil {
		next.WatchedAt = existing.WatchedAt
	}

	stored, err := s.progressRepo.Upsert(ctx, &next, mode)
	if err != nil {
		return nil, err
	}
	if existing.State() != stored.State() {
		s.log.Debug("lesson progress state changed",
			"userId", stored.UserID, "lessonId", stored.LessonID,
			"from", string(existing.State()), "to", string(stored.State()))
	}
	return stored, nil
}

func (s *progressService) ResetProgress(ctx context.Context, userID, courseID string) (int64, error) {
	if userID == "" {
		return 0, ErrUnauthenticated
	}
	if _, err := s.content.GetCourse(ctx, courseID); err != nil {
		return 0, err
	}
	deleted, err := s.progressRepo.DeleteByCourse(ctx, userID, courseID)
	if err != nil {
		return 0, err
	}
	s.log.Info("course progress reset", "userId", userID, "courseId", courseID, "deleted", deleted)
	return deleted, nil
}

// GetLastWatched picks the most recently updated lesson with a position,
// falling back to the first lesson of the course.
func (s *progressService) GetLastWatched(ctx context.Context, userID, courseID string) (*ResumePoint, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	tree, err := s.content.GetHierarchy(ctx, courseID)
	if err != nil {
		return nil, err
	}
	seq := NewSequence(tree)
	first, ok := seq.First()
	if !ok {
		return nil, ErrLessonNotFound
	}

	rows, err := s.progressRepo.ListByCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	var firstProgress *domain.UserProgress
	for i := range rows {
		row := &rows[i]
		idx, ok := seq.IndexOf(row.LessonID)
		if !ok {
			continue
		}
		if row.LastWatchedPosition > 0 {
			lesson, _ := seq.At(idx)
			return &ResumePoint{Lesson: *lesson, Progress: row, Resumed: true}, nil
		}
		if idx == 0 {
			firstProgress = row
		}
	}
	return &ResumePoint{Lesson: *first, Progress: firstProgress, Resumed: false}, nil
}

func (s *progressService) GetLessonProgress(ctx context.Context, userID, lessonID string) (*domain.UserProgress, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if _, err := s.content.GetLesson(ctx, lessonID); err != nil {
		return nil, err
	}
	return s.stored(ctx, userID, lessonID)
}

func (s *progressService) ListCourseProgress(ctx context.Context, userID, courseID string) ([]domain.UserProgress, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	rows, err := s.progressRepo.ListByCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.UserProgress{}
	}
	return rows, nil
}

func (s *progressService) ListAllProgress(ctx context.Context, userID string) ([]domain.UserProgress, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	rows, err := s.progressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.UserProgress{}
	}
	return rows, nil
}

// lessonInCourse loads the lesson and checks it against an optional course id.
func (s *progressService) lessonInCourse(ctx context.Context, lessonID, courseID string) (*domain.Lesson, error) {
	lesson, err := s.content.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if courseID != "" && courseID != lesson.CourseID {
		return nil, ErrCourseMismatch
	}
	return lesson, nil
}

func (s *progressService) stored(ctx context.Context, userID, lessonID string) (*domain.UserProgress, error) {
	p, err := s.progressRepo.Get(ctx, userID, lessonID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}
