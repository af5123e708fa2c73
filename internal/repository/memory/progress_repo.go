package memory

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/repository"
	"context"
	"errors"
	"sort"
)

type progressRepository struct {
	store *Store
}

// NewProgressRepository creates a progress repository backed by the in-memory store.
func NewProgressRepository(store *Store) repository.ProgressRepository {
	return &progressRepository{store: store}
}

func (r *progressRepository) Get(ctx context.Context, userID, lessonID string) (*domain.UserProgress, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.progress[progressKey{userID: userID, lessonID: lessonID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *progressRepository) Upsert(ctx context.Context, p *domain.UserProgress, mode repository.CompletionWrite) (*domain.UserProgress, error) {
	if p.UserID == "" || p.LessonID == "" {
		return nil, errors.New("progress requires userId and lessonId")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := progressKey{userID: p.UserID, lessonID: p.LessonID}
	row := *p
	if stored, ok := r.store.progress[key]; ok {
		row.WatchedAt = stored.WatchedAt
		if mode == repository.CompletionRatchet {
			row.Completed = stored.Completed || p.Completed
		}
	}
	r.store.progress[key] = row
	return &row, nil
}

func (r *progressRepository) ListByCourse(ctx context.Context, userID, courseID string) ([]domain.UserProgress, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var rows []domain.UserProgress
	for _, p := range r.store.progress {
		if p.UserID == userID && p.CourseID == courseID {
			rows = append(rows, p)
		}
	}
	sortByRecency(rows)
	return rows, nil
}

func (r *progressRepository) ListByUser(ctx context.Context, userID string) ([]domain.UserProgress, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var rows []domain.UserProgress
	for _, p := range r.store.progress {
		if p.UserID == userID {
			rows = append(rows, p)
		}
	}
	sortByRecency(rows)
	return rows, nil
}

func (r *progressRepository) DeleteByCourse(ctx context.Context, userID, courseID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var deleted int64
	for key, p := range r.store.progress {
		if p.UserID == userID && p.CourseID == courseID {
			delete(r.store.progress, key)
			deleted++
		}
	}
	return deleted, nil
}

func sortByRecency(rows []domain.UserProgress) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
			return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
		}
		return rows[i].LessonID < rows[j].LessonID
	})
}
