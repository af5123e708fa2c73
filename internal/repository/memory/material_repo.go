package memory

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/repository"
	"context"
	"errors"
	"sort"
)

type materialRepository struct {
	store *Store
}

// NewMaterialRepository creates a material repository backed by the in-memory store.
func NewMaterialRepository(store *Store) repository.MaterialRepository {
	return &materialRepository{store: store}
}

func (r *materialRepository) Create(ctx context.Context, m *domain.Material) error {
	if m.ID == "" || m.CourseID == "" || m.ObjectKey == "" {
		return errors.New("material requires id, courseId and objectKey")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.materials[m.ID]; ok {
		return repository.ErrConflict
	}
	for _, existing := range r.store.materials {
		if existing.ObjectKey == m.ObjectKey {
			return repository.ErrConflict
		}
	}
	r.store.materials[m.ID] = cloneMaterial(*m)
	return nil
}

func (r *materialRepository) GetByID(ctx context.Context, id string) (*domain.Material, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	m, ok := r.store.materials[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m = cloneMaterial(m)
	return &m, nil
}

func (r *materialRepository) ListByCourse(ctx context.Context, courseID string) ([]domain.Material, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var materials []domain.Material
	for _, m := range r.store.materials {
		if m.CourseID == courseID {
			materials = append(materials, cloneMaterial(m))
		}
	}
	sort.Slice(materials, func(i, j int) bool {
		if !materials[i].CreatedAt.Equal(materials[j].CreatedAt) {
			return materials[i].CreatedAt.Before(materials[j].CreatedAt)
		}
		return materials[i].ID < materials[j].ID
	})
	return materials, nil
}

func (r *materialRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.materials[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.materials, id)
	return nil
}
