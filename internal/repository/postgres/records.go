// Package postgres implements the repositories on PostgreSQL through gorm.
package postgres

import (
	"alcyxob/course-app/internal/domain"
	"time"
)

// Row types carry the gorm mapping so the domain package stays free of
// storage tags for this backend. The hierarchy order column is sort_order.

type courseRecord struct {
	ID            string `gorm:"primaryKey"`
	Acronym       string `gorm:"not null"`
	Title         string `gorm:"not null"`
	Description   string
	Thumbnail     string
	TotalVideos   int   `gorm:"not null"`
	TotalDuration int   `gorm:"not null"`
	Revision      int64 `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (courseRecord) TableName() string { return "courses" }

type moduleRecord struct {
	ID            string `gorm:"primaryKey"`
	CourseID      string `gorm:"not null;uniqueIndex:idx_modules_course_order"`
	Title         string `gorm:"not null"`
	SortOrder     int    `gorm:"not null;uniqueIndex:idx_modules_course_order"`
	TotalDuration int    `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (moduleRecord) TableName() string { return "modules" }

type sectionRecord struct {
	ID            string `gorm:"primaryKey"`
	ModuleID      string `gorm:"not null;uniqueIndex:idx_sections_module_order"`
	CourseID      string `gorm:"not null;index"`
	Title         string `gorm:"not null"`
	SortOrder     int    `gorm:"not null;uniqueIndex:idx_sections_module_order"`
	TotalDuration int    `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (sectionRecord) TableName() string { return "sections" }

type lessonRecord struct {
	ID           string `gorm:"primaryKey"`
	SectionID    string `gorm:"not null;uniqueIndex:idx_lessons_section_order"`
	ModuleID     string `gorm:"not null"`
	CourseID     string `gorm:"not null;index"`
	Title        string `gorm:"not null"`
	MediaRef     *string
	Kind         string `gorm:"not null"`
	Duration     *int
	SortOrder    int `gorm:"not null;uniqueIndex:idx_lessons_section_order"`
	NextLessonID *string
	PrevLessonID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (lessonRecord) TableName() string { return "lessons" }

type progressRecord struct {
	UserID              string `gorm:"primaryKey;index:idx_user_progress_course,priority:1"`
	LessonID            string `gorm:"primaryKey"`
	CourseID            string `gorm:"not null;index:idx_user_progress_course,priority:2"`
	Completed           bool   `gorm:"not null"`
	LastWatchedPosition int    `gorm:"not null"`
	WatchedAt           time.Time
	UpdatedAt           time.Time
}

func (progressRecord) TableName() string { return "user_progress" }

type materialRecord struct {
	ID          string  `gorm:"primaryKey"`
	CourseID    string  `gorm:"not null;index"`
	LessonID    *string `gorm:"index"`
	Title       string  `gorm:"not null"`
	Description string
	Type        string `gorm:"not null"`
	ObjectKey   string `gorm:"not null;uniqueIndex"`
	FileSize    int64
	MimeType    string
	CreatedAt   time.Time
}

func (materialRecord) TableName() string { return "course_materials" }

// --- Conversions ---

func toCourseRecord(c domain.Course) courseRecord {
	return courseRecord{
		ID:            c.ID,
		Acronym:       c.Acronym,
		Title:         c.Title,
		Description:   c.Description,
		Thumbnail:     c.Thumbnail,
		TotalVideos:   c.TotalVideos,
		TotalDuration: c.TotalDuration,
		Revision:      c.Revision,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (r courseRecord) toDomain() domain.Course {
	return domain.Course{
		ID:            r.ID,
		Acronym:       r.Acronym,
		Title:         r.Title,
		Description:   r.Description,
		Thumbnail:     r.Thumbnail,
		TotalVideos:   r.TotalVideos,
		TotalDuration: r.TotalDuration,
		Revision:      r.Revision,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toModuleRecord(m domain.Module) moduleRecord {
	return moduleRecord{
		ID:            m.ID,
		CourseID:      m.CourseID,
		Title:         m.Title,
		SortOrder:     m.Order,
		TotalDuration: m.TotalDuration,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (r moduleRecord) toDomain() domain.Module {
	return domain.Module{
		ID:            r.ID,
		CourseID:      r.CourseID,
		Title:         r.Title,
		Order:         r.SortOrder,
		TotalDuration: r.TotalDuration,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toSectionRecord(s domain.Section) sectionRecord {
	return sectionRecord{
		ID:            s.ID,
		ModuleID:      s.ModuleID,
		CourseID:      s.CourseID,
		Title:         s.Title,
		SortOrder:     s.Order,
		TotalDuration: s.TotalDuration,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (r sectionRecord) toDomain() domain.Section {
	return domain.Section{
		ID:            r.ID,
		ModuleID:      r.ModuleID,
		CourseID:      r.CourseID,
		Title:         r.Title,
		Order:         r.SortOrder,
		TotalDuration: r.TotalDuration,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toLessonRecord(l domain.Lesson) lessonRecord {
	return lessonRecord{
		ID:           l.ID,
		SectionID:    l.SectionID,
		ModuleID:     l.ModuleID,
		CourseID:     l.CourseID,
		Title:        l.Title,
		MediaRef:     l.MediaRef,
		Kind:         string(l.Kind),
		Duration:     l.Duration,
		SortOrder:    l.Order,
		NextLessonID: l.NextLessonID,
		PrevLessonID: l.PrevLessonID,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func (r lessonRecord) toDomain() domain.Lesson {
	return domain.Lesson{
		ID:           r.ID,
		SectionID:    r.SectionID,
		ModuleID:     r.ModuleID,
		CourseID:     r.CourseID,
		Title:        r.Title,
		MediaRef:     r.MediaRef,
		Kind:         domain.LessonKind(r.Kind),
		Duration:     r.Duration,
		Order:        r.SortOrder,
		NextLessonID: r.NextLessonID,
		PrevLessonID: r.PrevLessonID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toProgressRecord(p domain.UserProgress) progressRecord {
	return progressRecord{
		UserID:              p.UserID,
		LessonID:            p.LessonID,
		CourseID:            p.CourseID,
		Completed:           p.Completed,
		LastWatchedPosition: p.LastWatchedPosition,
		WatchedAt:           p.WatchedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func (r progressRecord) toDomain() domain.UserProgress {
	return domain.UserProgress{
		UserID:              r.UserID,
		LessonID:            r.LessonID,
		CourseID:            r.CourseID,
		Completed:           r.Completed,
		LastWatchedPosition: r.LastWatchedPosition,
		WatchedAt:           r.WatchedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func toMaterialRecord(m domain.Material) materialRecord {
	return materialRecord{
		ID:          m.ID,
		CourseID:    m.CourseID,
		LessonID:    m.LessonID,
		Title:       m.Title,
		Description: m.Description,
		Type:        string(m.Type),
		ObjectKey:   m.ObjectKey,
		FileSize:    m.FileSize,
		MimeType:    m.MimeType,
		CreatedAt:   m.CreatedAt,
	}
}

func (r materialRecord) toDomain() domain.Material {
	return domain.Material{
		ID:          r.ID,
		CourseID:    r.CourseID,
		LessonID:    r.LessonID,
		Title:       r.Title,
		Description: r.Description,
		Type:        domain.MaterialType(r.Type),
		ObjectKey:   r.ObjectKey,
		FileSize:    r.FileSize,
		MimeType:    r.MimeType,
		CreatedAt:   r.CreatedAt,
	}
}
