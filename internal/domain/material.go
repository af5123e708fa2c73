package domain

import (
	"time"
)

// MaterialType classifies downloadable course resources.
type MaterialType string

const (
	MaterialPDF      MaterialType = "pdf"
	MaterialSlide    MaterialType = "slide"
	MaterialDocument MaterialType = "document"
	MaterialOther    MaterialType = "other"
)

// Material stores metadata about a downloadable resource attached to a course
// (and optionally to one lesson). The file itself lives in object storage.
type Material struct {
	ID          string       `bson:"_id" json:"id"`
	CourseID    string       `bson:"courseId" json:"courseId"`
	LessonID    *string      `bson:"lessonId,omitempty" json:"lessonId,omitempty"`
	Title       string       `bson:"title" json:"title"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
	Type        MaterialType `bson:"type" json:"type"`
	ObjectKey   string       `bson:"objectKey" json:"-"` // Key in the bucket, internal use only
	FileSize    int64        `bson:"fileSize" json:"fileSize"`
	MimeType    string       `bson:"mimeType" json:"mimeType"`
	CreatedAt   time.Time    `bson:"createdAt" json:"createdAt"`
}
