// Package memory provides in-process repository implementations used by tests
// and by the "memory" database driver for local development.
package memory

import (
	"alcyxob/course-app/internal/domain"
	"sync"
)

type progressKey struct {
	userID   string
	lessonID string
}

// Store holds every table of the in-memory database behind one lock, so a
// course change set is applied atomically with respect to readers.
type Store struct {
	mu sync.RWMutex

	courses   map[string]domain.Course
	modules   map[string]domain.Module
	sections  map[string]domain.Section
	lessons   map[string]domain.Lesson
	progress  map[progressKey]domain.UserProgress
	materials map[string]domain.Material
}

func NewStore() *Store {
	return &Store{
		courses:   make(map[string]domain.Course),
		modules:   make(map[string]domain.Module),
		sections:  make(map[string]domain.Section),
		lessons:   make(map[string]domain.Lesson),
		progress:  make(map[progressKey]domain.UserProgress),
		materials: make(map[string]domain.Material),
	}
}

// cloneLesson copies the pointer fields so callers never share state with the store.
func cloneLesson(l domain.Lesson) domain.Lesson {
	l.MediaRef = cloneString(l.MediaRef)
	l.Duration = cloneInt(l.Duration)
	l.NextLessonID = cloneString(l.NextLessonID)
	l.PrevLessonID = cloneString(l.PrevLessonID)
	return l
}

func cloneMaterial(m domain.Material) domain.Material {
	m.LessonID = cloneString(m.LessonID)
	return m
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
