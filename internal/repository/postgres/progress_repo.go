package postgres

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/repository"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository creates a progress repository backed by PostgreSQL.
func NewProgressRepository(db *gorm.DB) repository.ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Get(ctx context.Context, userID, lessonID string) (*domain.UserProgress, error) {
	var rec progressRecord
	err := r.db.WithContext(ctx).First(&rec, "user_id = ? AND lesson_id = ?", userID, lessonID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	p := rec.toDomain()
	return &p, nil
}

// Upsert is an INSERT .. ON CONFLICT followed by a read of the stored row in
// the same transaction. watched_at is never part of the update set, so it
// keeps the first playback time.
func (r *progressRepository) Upsert(ctx context.Context, p *domain.UserProgress, mode repository.CompletionWrite) (*domain.UserProgress, error) {
	if p.UserID == "" || p.LessonID == "" {
		return nil, errors.New("progress requires userId and lessonId")
	}

	var completed interface{} = gorm.Expr("EXCLUDED.completed")
	if mode == repository.CompletionRatchet {
		completed = gorm.Expr("user_progress.completed OR EXCLUDED.completed")
	}

	rec := toProgressRecord(*p)
	var stored progressRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"course_id":             gorm.Expr("EXCLUDED.course_id"),
				"last_watched_position": gorm.Expr("EXCLUDED.last_watched_position"),
				"updated_at":            gorm.Expr("EXCLUDED.updated_at"),
				"completed":             completed,
			}),
		}).Create(&rec).Error
		if err != nil {
			return err
		}
		return tx.First(&stored, "user_id = ? AND lesson_id = ?", p.UserID, p.LessonID).Error
	})
	if err != nil {
		return nil, err
	}
	out := stored.toDomain()
	return &out, nil
}

func (r *progressRepository) ListByCourse(ctx context.Context, userID, courseID string) ([]domain.UserProgress, error) {
	return r.find(r.db.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID))
}

func (r *progressRepository) ListByUser(ctx context.Context, userID string) ([]domain.UserProgress, error) {
	return r.find(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

func (r *progressRepository) find(q *gorm.DB) ([]domain.UserProgress, error) {
	var recs []progressRecord
	if err := q.Order("updated_at desc, lesson_id asc").Find(&recs).Error; err != nil {
		return nil, err
	}
	rows := make([]domain.UserProgress, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, rec.toDomain())
	}
	return rows, nil
}

func (r *progressRepository) DeleteByCourse(ctx context.Context, userID, courseID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&progressRecord{})
	return res.RowsAffected, res.Error
}
