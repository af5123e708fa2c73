package service

import "errors"

// --- Error Definitions ---
var (
	ErrCourseNotFound   = errors.New("course not found")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrMaterialNotFound = errors.New("material not found")

	// Ingestion
	ErrInvalidDocument   = errors.New("invalid course document")
	ErrDanglingReference = errors.New("dangling parent reference in course document")
	ErrConcurrentIngest  = errors.New("course was modified by a concurrent ingestion")

	// Progress
	ErrUnauthenticated     = errors.New("authenticated user required")
	ErrInvalidPosition     = errors.New("watched position must not be negative")
	ErrCourseMismatch      = errors.New("lesson does not belong to the given course")
	ErrEmptyProgressUpdate = errors.New("progress update needs a position or a completed flag")

	// Materials
	ErrValidationFailed = errors.New("validation failed")
	ErrUploadMissing    = errors.New("uploaded object not found in storage")
)
