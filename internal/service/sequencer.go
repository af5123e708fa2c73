package service

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/repository"
	"context"
	"errors"
	"fmt"
)

// Sequencing strategies accepted by NewSequencer.
const (
	StrategyComputed    = "computed"
	StrategyPrecomputed = "precomputed"
)

// Flatten returns every lesson of an ordered tree in sequence order:
// module order, then section order, then lesson order.
func Flatten(tree *domain.CourseTree) []domain.Lesson {
	if tree == nil {
		return nil
	}
	lessons := make([]domain.Lesson, 0, tree.LessonCount())
	for _, m := range tree.Modules {
		for _, s := range m.Sections {
			lessons = append(lessons, s.Lessons...)
		}
	}
	return lessons
}

// Sequence is the flattened lesson order of one course with an id index.
type Sequence struct {
	lessons []domain.Lesson
	index   map[string]int
}

// NewSequence builds the sequence of a tree. The tree must already be ordered.
func NewSequence(tree *domain.CourseTree) *Sequence {
	lessons := Flatten(tree)
	index := make(map[string]int, len(lessons))
	for i, l := range lessons {
		index[l.ID] = i
	}
	return &Sequence{lessons: lessons, index: index}
}

func (s *Sequence) Len() int { return len(s.lessons) }

// IndexOf returns the zero-based position of the lesson.
func (s *Sequence) IndexOf(lessonID string) (int, bool) {
	i, ok := s.index[lessonID]
	return i, ok
}

func (s *Sequence) At(i int) (*domain.Lesson, bool) {
	if i < 0 || i >= len(s.lessons) {
		return nil, false
	}
	l := s.lessons[i]
	return &l, true
}

func (s *Sequence) First() (*domain.Lesson, bool) {
	return s.At(0)
}

// Neighbor returns the lesson offset positions away from lessonID, or nil at
// the course edges.
func (s *Sequence) Neighbor(lessonID string, offset int) (*domain.Lesson, bool) {
	i, ok := s.index[lessonID]
	if !ok {
		return nil, false
	}
	l, _ := s.At(i + offset)
	return l, true
}

// Sequencer answers next/previous navigation. Both return (nil, nil) at the
// edges of the course and ErrLessonNotFound for an unknown lesson.
type Sequencer interface {
	Next(ctx context.Context, lessonID string) (*domain.Lesson, error)
	Previous(ctx context.Context, lessonID string) (*domain.Lesson, error)
}

// NewSequencer selects a strategy by name.
func NewSequencer(strategy string, content ContentService, contentRepo repository.ContentRepository) (Sequencer, error) {
	switch strategy {
	case "", StrategyComputed:
		return &computedSequencer{content: content}, nil
	case StrategyPrecomputed:
		return &precomputedSequencer{contentRepo: contentRepo}, nil
	default:
		return nil, fmt.Errorf("unknown sequencing strategy %q", strategy)
	}
}

// computedSequencer flattens the (cached) hierarchy on every call.
type computedSequencer struct {
	content ContentService
}

func (s *computedSequencer) Next(ctx context.Context, lessonID string) (*domain.Lesson, error) {
	return s.neighbor(ctx, lessonID, 1)
}

func (s *computedSequencer) Previous(ctx context.Context, lessonID string) (*domain.Lesson, error) {
	return s.neighbor(ctx, lessonID, -1)
}

func (s *computedSequencer) neighbor(ctx context.Context, lessonID string, offset int) (*domain.Lesson, error) {
	lesson, err := s.content.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	tree, err := s.content.GetHierarchy(ctx, lesson.CourseID)
	if err != nil {
		if errors.Is(err, ErrCourseNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	l, ok := NewSequence(tree).Neighbor(lessonID, offset)
	if !ok {
		// Cached tree predates the lesson; treat like a missing lesson.
		return nil, ErrLessonNotFound
	}
	return l, nil
}

// precomputedSequencer follows the pointers written at ingestion time.
type precomputedSequencer struct {
	contentRepo repository.ContentRepository
}

func (s *precomputedSequencer) Next(ctx context.Context, lessonID string) (*domain.Lesson, error) {
	lesson, err := s.lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	return s.follow(ctx, lesson.NextLessonID)
}

func (s *precomputedSequencer) Previous(ctx context.Context, lessonID string) (*domain.Lesson, error) {
	lesson, err := s.lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	return s.follow(ctx, lesson.PrevLessonID)
}

func (s *precomputedSequencer) lesson(ctx context.Context, lessonID string) (*domain.Lesson, error) {
	lesson, err := s.contentRepo.GetLesson(ctx, lessonID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	return lesson, nil
}

func (s *precomputedSequencer) follow(ctx context.Context, id *string) (*domain.Lesson, error) {
	if id == nil || *id == "" {
		return nil, nil
	}
	l, err := s.lesson(ctx, *id)
	if err != nil {
		return nil, fmt.Errorf("resolve lesson pointer %s: %w", *id, err)
	}
	return l, nil
}
