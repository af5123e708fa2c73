package postgres

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/repository"
	"context"
	"errors"

	"gorm.io/gorm"
)

type materialRepository struct {
	db *gorm.DB
}

// NewMaterialRepository creates a material repository backed by PostgreSQL.
func NewMaterialRepository(db *gorm.DB) repository.MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) Create(ctx context.Context, m *domain.Material) error {
	if m.ID == "" || m.CourseID == "" || m.ObjectKey == "" {
		return errors.New("material requires id, courseId and objectKey")
	}
	rec := toMaterialRecord(*m)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

func (r *materialRepository) GetByID(ctx context.Context, id string) (*domain.Material, error) {
	var rec materialRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	m := rec.toDomain()
	return &m, nil
}

func (r *materialRepository) ListByCourse(ctx context.Context, courseID string) ([]domain.Material, error) {
	var recs []materialRecord
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at asc, id asc").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	materials := make([]domain.Material, 0, len(recs))
	for _, rec := range recs {
		materials = append(materials, rec.toDomain())
	}
	return materials, nil
}

func (r *materialRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&materialRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
