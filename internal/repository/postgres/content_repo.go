package postgres

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/repository"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a content repository backed by PostgreSQL.
func NewContentRepository(db *gorm.DB) repository.ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) GetCourse(ctx context.Context, courseID string) (*domain.Course, error) {
	var rec courseRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	c := rec.toDomain()
	return &c, nil
}

func (r *contentRepository) ListCourses(ctx context.Context) ([]domain.Course, error) {
	var recs []courseRecord
	if err := r.db.WithContext(ctx).Order("created_at asc, id asc").Find(&recs).Error; err != nil {
		return nil, err
	}
	courses := make([]domain.Course, 0, len(recs))
	for _, rec := range recs {
		courses = append(courses, rec.toDomain())
	}
	return courses, nil
}

func (r *contentRepository) GetCourseTree(ctx context.Context, courseID string) (*domain.CourseTree, error) {
	course, err := r.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	db := r.db.WithContext(ctx)
	var modules []moduleRecord
	if err := db.Where("course_id = ?", courseID).Order("sort_order asc, id asc").Find(&modules).Error; err != nil {
		return nil, err
	}
	var sections []sectionRecord
	if err := db.Where("course_id = ?", courseID).Order("sort_order asc, id asc").Find(&sections).Error; err != nil {
		return nil, err
	}
	var lessons []lessonRecord
	if err := db.Where("course_id = ?", courseID).Order("sort_order asc, id asc").Find(&lessons).Error; err != nil {
		return nil, err
	}

	lessonsBySection := make(map[string][]domain.Lesson, len(sections))
	for _, l := range lessons {
		lessonsBySection[l.SectionID] = append(lessonsBySection[l.SectionID], l.toDomain())
	}
	sectionsByModule := make(map[string][]domain.SectionNode, len(modules))
	for _, s := range sections {
		sectionsByModule[s.ModuleID] = append(sectionsByModule[s.ModuleID], domain.SectionNode{
			Section: s.toDomain(),
			Lessons: lessonsBySection[s.ID],
		})
	}
	tree := &domain.CourseTree{Course: *course}
	for _, m := range modules {
		tree.Modules = append(tree.Modules, domain.ModuleNode{
			Module:   m.toDomain(),
			Sections: sectionsByModule[m.ID],
		})
	}
	domain.SortTree(tree)
	return tree, nil
}

func (r *contentRepository) GetLesson(ctx context.Context, lessonID string) (*domain.Lesson, error) {
	var rec lessonRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	l := rec.toDomain()
	return &l, nil
}

func (r *contentRepository) OwningCourses(ctx context.Context, kind repository.EntityKind, ids []string) (map[string]string, error) {
	owners := make(map[string]string)
	if len(ids) == 0 {
		return owners, nil
	}
	var model interface{}
	switch kind {
	case repository.EntityModule:
		model = &moduleRecord{}
	case repository.EntitySection:
		model = &sectionRecord{}
	case repository.EntityLesson:
		model = &lessonRecord{}
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	var rows []struct {
		ID       string
		CourseID string
	}
	if err := r.db.WithContext(ctx).Model(model).Select("id, course_id").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		owners[row.ID] = row.CourseID
	}
	return owners, nil
}

// ApplyCourseChanges runs the change set in one transaction. The course row
// is updated under a revision predicate first, which also row-locks it for
// the rest of the transaction.
func (r *contentRepository) ApplyCourseChanges(ctx context.Context, cs *repository.CourseChangeSet) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course := toCourseRecord(cs.Course)
		if cs.IsNew {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&course)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repository.ErrConflict
			}
		} else {
			res := tx.Model(&courseRecord{}).
				Where("id = ? AND revision = ?", course.ID, cs.ExpectedRevision).
				Updates(map[string]interface{}{
					"acronym":        course.Acronym,
					"title":          course.Title,
					"description":    course.Description,
					"thumbnail":      course.Thumbnail,
					"total_videos":   course.TotalVideos,
					"total_duration": course.TotalDuration,
					"revision":       course.Revision,
					"updated_at":     course.UpdatedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repository.ErrConflict
			}
		}

		// --- Deletes, children first ---
		if len(cs.DeleteLessonIDs) > 0 {
			if err := tx.Where("id IN ?", cs.DeleteLessonIDs).Delete(&lessonRecord{}).Error; err != nil {
				return err
			}
		}
		if len(cs.DeleteSectionIDs) > 0 {
			if err := tx.Where("id IN ?", cs.DeleteSectionIDs).Delete(&sectionRecord{}).Error; err != nil {
				return err
			}
		}
		if len(cs.DeleteModuleIDs) > 0 {
			if err := tx.Where("id IN ?", cs.DeleteModuleIDs).Delete(&moduleRecord{}).Error; err != nil {
				return err
			}
		}

		// --- Park moving rows, then upsert parents first ---
		if err := park(tx, &moduleRecord{}, cs.ParkModuleIDs); err != nil {
			return err
		}
		if err := park(tx, &sectionRecord{}, cs.ParkSectionIDs); err != nil {
			return err
		}
		if err := park(tx, &lessonRecord{}, cs.ParkLessonIDs); err != nil {
			return err
		}

		if len(cs.Modules) > 0 {
			recs := make([]moduleRecord, 0, len(cs.Modules))
			for _, m := range cs.Modules {
				recs = append(recs, toModuleRecord(m))
			}
			if err := upsertOwned(tx, "modules", &recs, len(recs)); err != nil {
				return err
			}
		}
		if len(cs.Sections) > 0 {
			recs := make([]sectionRecord, 0, len(cs.Sections))
			for _, s := range cs.Sections {
				recs = append(recs, toSectionRecord(s))
			}
			if err := upsertOwned(tx, "sections", &recs, len(recs)); err != nil {
				return err
			}
		}
		if len(cs.Lessons) > 0 {
			recs := make([]lessonRecord, 0, len(cs.Lessons))
			for _, l := range cs.Lessons {
				recs = append(recs, toLessonRecord(l))
			}
			if err := upsertOwned(tx, "lessons", &recs, len(recs)); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repository.ErrConflict
	}
	return err
}

// upsertOwned inserts or updates rows by id, but only updates a row that
// already belongs to the same course. A skipped row means another course owns
// the id, which fails the whole change set.
func upsertOwned(tx *gorm.DB, table string, recs interface{}, n int) error {
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: table + ".course_id = excluded.course_id"},
		}},
	}).Create(recs)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(n) {
		return repository.ErrConflict
	}
	return nil
}

func park(tx *gorm.DB, model interface{}, ids []string) error {
	for i, id := range ids {
		if err := tx.Model(model).Where("id = ?", id).Update("sort_order", -(i + 1)).Error; err != nil {
			return err
		}
	}
	return nil
}
