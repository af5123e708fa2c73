package memory

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/repository"
	"context"
	"sort"
)

type contentRepository struct {
	store *Store
}

// NewContentRepository creates a content repository backed by the in-memory store.
func NewContentRepository(store *Store) repository.ContentRepository {
	return &contentRepository{store: store}
}

func (r *contentRepository) GetCourse(ctx context.Context, courseID string) (*domain.Course, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.courses[courseID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *contentRepository) ListCourses(ctx context.Context) ([]domain.Course, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	courses := make([]domain.Course, 0, len(r.store.courses))
	for _, c := range r.store.courses {
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool {
		if !courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].CreatedAt.Before(courses[j].CreatedAt)
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func (r *contentRepository) GetCourseTree(ctx context.Context, courseID string) (*domain.CourseTree, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	course, ok := r.store.courses[courseID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	lessonsBySection := make(map[string][]domain.Lesson)
	for _, l := range r.store.lessons {
		if l.CourseID == courseID {
			lessonsBySection[l.SectionID] = append(lessonsBySection[l.SectionID], cloneLesson(l))
		}
	}
	sectionsByModule := make(map[string][]domain.SectionNode)
	for _, s := range r.store.sections {
		if s.CourseID == courseID {
			sectionsByModule[s.ModuleID] = append(sectionsByModule[s.ModuleID], domain.SectionNode{
				Section: s,
				Lessons: lessonsBySection[s.ID],
			})
		}
	}
	tree := &domain.CourseTree{Course: course}
	for _, m := range r.store.modules {
		if m.CourseID == courseID {
			tree.Modules = append(tree.Modules, domain.ModuleNode{
				Module:   m,
				Sections: sectionsByModule[m.ID],
			})
		}
	}
	domain.SortTree(tree)
	return tree, nil
}

func (r *contentRepository) GetLesson(ctx context.Context, lessonID string) (*domain.Lesson, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	l, ok := r.store.lessons[lessonID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	l = cloneLesson(l)
	return &l, nil
}

func (r *contentRepository) OwningCourses(ctx context.Context, kind repository.EntityKind, ids []string) (map[string]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	owners := make(map[string]string)
	for _, id := range ids {
		switch kind {
		case repository.EntityModule:
			if m, ok := r.store.modules[id]; ok {
				owners[id] = m.CourseID
			}
		case repository.EntitySection:
			if s, ok := r.store.sections[id]; ok {
				owners[id] = s.CourseID
			}
		case repository.EntityLesson:
			if l, ok := r.store.lessons[id]; ok {
				owners[id] = l.CourseID
			}
		}
	}
	return owners, nil
}

// ApplyCourseChanges validates the revision before touching any table, so the
// change set is either fully applied or not at all.
func (r *contentRepository) ApplyCourseChanges(ctx context.Context, cs *repository.CourseChangeSet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, exists := r.store.courses[cs.Course.ID]
	switch {
	case cs.IsNew && exists:
		return repository.ErrConflict
	case !cs.IsNew && (!exists || stored.Revision != cs.ExpectedRevision):
		return repository.ErrConflict
	}
	if r.claimsForeignRow(cs) {
		return repository.ErrConflict
	}

	for _, id := range cs.DeleteLessonIDs {
		delete(r.store.lessons, id)
	}
	for _, id := range cs.DeleteSectionIDs {
		delete(r.store.sections, id)
	}
	for _, id := range cs.DeleteModuleIDs {
		delete(r.store.modules, id)
	}

	r.store.courses[cs.Course.ID] = cs.Course
	for _, m := range cs.Modules {
		r.store.modules[m.ID] = m
	}
	for _, s := range cs.Sections {
		r.store.sections[s.ID] = s
	}
	for _, l := range cs.Lessons {
		r.store.lessons[l.ID] = cloneLesson(l)
	}
	return nil
}

// claimsForeignRow reports whether an upsert would move a row owned by another course.
func (r *contentRepository) claimsForeignRow(cs *repository.CourseChangeSet) bool {
	courseID := cs.Course.ID
	for _, m := range cs.Modules {
		if stored, ok := r.store.modules[m.ID]; ok && stored.CourseID != courseID {
			return true
		}
	}
	for _, s := range cs.Sections {
		if stored, ok := r.store.sections[s.ID]; ok && stored.CourseID != courseID {
			return true
		}
	}
	for _, l := range cs.Lessons {
		if stored, ok := r.store.lessons[l.ID]; ok && stored.CourseID != courseID {
			return true
		}
	}
	return false
}
