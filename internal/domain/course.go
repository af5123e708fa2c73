package domain

import (
	"time"
)

// LessonKind distinguishes recorded videos from live sessions.
type LessonKind string

const (
	LessonKindVideo LessonKind = "video"
	LessonKindLive  LessonKind = "live"
)

// Course is the root of the content hierarchy.
// TotalDuration is derived: it always equals the sum of its modules' durations.
type Course struct {
	ID            string    `bson:"_id" json:"id"` // Natural id, e.g. "gestao-fazendas-gado-leite"
	Acronym       string    `bson:"acronym" json:"acronym"`
	Title         string    `bson:"title" json:"title"`
	Description   string    `bson:"description,omitempty" json:"description,omitempty"`
	Thumbnail     string    `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	TotalVideos   int       `bson:"totalVideos" json:"totalVideos"`
	TotalDuration int       `bson:"totalDuration" json:"totalDuration"` // Seconds
	Revision      int64     `bson:"revision" json:"revision"`           // Bumped on every applied ingestion
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Module groups sections inside a course. Order is unique within the course.
type Module struct {
	ID            string    `bson:"_id" json:"id"`
	CourseID      string    `bson:"courseId" json:"courseId"`
	Title         string    `bson:"title" json:"title"`
	Order         int       `bson:"order" json:"order"`
	TotalDuration int       `bson:"totalDuration" json:"totalDuration"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Section groups lessons inside a module. Order is unique within the module.
type Section struct {
	ID            string    `bson:"_id" json:"id"`
	ModuleID      string    `bson:"moduleId" json:"moduleId"`
	CourseID      string    `bson:"courseId" json:"courseId"` // Denormalized from the module
	Title         string    `bson:"title" json:"title"`
	Order         int       `bson:"order" json:"order"`
	TotalDuration int       `bson:"totalDuration" json:"totalDuration"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Lesson is a single watchable unit. MediaRef and Duration stay nil until the
// video has been uploaded to the video host and measured.
type Lesson struct {
	ID           string     `bson:"_id" json:"id"`
	SectionID    string     `bson:"sectionId" json:"sectionId"`
	ModuleID     string     `bson:"moduleId" json:"moduleId"` // Denormalized
	CourseID     string     `bson:"courseId" json:"courseId"` // Denormalized
	Title        string     `bson:"title" json:"title"`
	MediaRef     *string    `bson:"mediaRef,omitempty" json:"mediaRef"`
	Kind         LessonKind `bson:"kind" json:"kind"`
	Duration     *int       `bson:"duration,omitempty" json:"duration"` // Seconds
	Order        int        `bson:"order" json:"order"`
	NextLessonID *string    `bson:"nextLessonId,omitempty" json:"nextLessonId"`
	PrevLessonID *string    `bson:"prevLessonId,omitempty" json:"prevLessonId"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// DurationSeconds returns the lesson duration, treating an unknown duration as zero.
func (l *Lesson) DurationSeconds() int {
	if l.Duration == nil || *l.Duration < 0 {
		return 0
	}
	return *l.Duration
}

// HasMedia reports whether the lesson video is available on the video host.
func (l *Lesson) HasMedia() bool {
	return l.MediaRef != nil && *l.MediaRef != ""
}

// --- Hierarchy views ---

// CourseTree is the full nested hierarchy of one course, each level ordered by Order.
type CourseTree struct {
	Course  Course       `json:"course"`
	Modules []ModuleNode `json:"modules"`
}

type ModuleNode struct {
	Module   Module        `json:"module"`
	Sections []SectionNode `json:"sections"`
}

type SectionNode struct {
	Section Section  `json:"section"`
	Lessons []Lesson `json:"lessons"`
}

// LessonCount returns the number of lessons in the tree.
func (t *CourseTree) LessonCount() int {
	n := 0
	for _, m := range t.Modules {
		for _, s := range m.Sections {
			n += len(s.Lessons)
		}
	}
	return n
}

// SectionCount returns the number of sections in the tree.
func (t *CourseTree) SectionCount() int {
	n := 0
	for _, m := range t.Modules {
		n += len(m.Sections)
	}
	return n
}

// CourseMetadata is a lightweight summary of a course used by listing screens.
type CourseMetadata struct {
	CourseID      string `json:"courseId"`
	Title         string `json:"title"`
	ModuleCount   int    `json:"moduleCount"`
	SectionCount  int    `json:"sectionCount"`
	LessonCount   int    `json:"lessonCount"`
	TotalVideos   int    `json:"totalVideos"`
	TotalDuration int    `json:"totalDuration"`
}

// LessonDetails is a lesson flattened with the titles and rollups of its ancestors.
type LessonDetails struct {
	Lesson
	Position             int    `json:"position"` // Zero-based index in sequence order
	ModuleTitle          string `json:"moduleTitle"`
	ModuleOrder          int    `json:"moduleOrder"`
	ModuleTotalDuration  int    `json:"moduleTotalDuration"`
	SectionTitle         string `json:"sectionTitle"`
	SectionOrder         int    `json:"sectionOrder"`
	SectionTotalDuration int    `json:"sectionTotalDuration"`
}
