package domain

import (
	"time"
)

// ProgressState is the derived watch state of a (user, lesson) pair.
type ProgressState string

const (
	ProgressNotStarted ProgressState = "not_started"
	ProgressInProgress ProgressState = "in_progress"
	ProgressCompleted  ProgressState = "completed"
)

// UserProgress stores how far a user got in one lesson.
// There is at most one row per (UserID, LessonID).
type UserProgress struct {
	UserID              string    `bson:"userId" json:"userId"`
	LessonID            string    `bson:"lessonId" json:"lessonId"`
	CourseID            string    `bson:"courseId" json:"courseId"` // Denormalized from the lesson
	Completed           bool      `bson:"completed" json:"completed"`
	LastWatchedPosition int       `bson:"lastWatchedPosition" json:"lastWatchedPosition"` // Seconds
	WatchedAt           time.Time `bson:"watchedAt" json:"watchedAt"`                     // First playback
	UpdatedAt           time.Time `bson:"updatedAt" json:"updatedAt"`
}

// State derives the state machine position from the stored row.
// A nil row means the lesson was never started.
func (p *UserProgress) State() ProgressState {
	switch {
	case p == nil:
		return ProgressNotStarted
	case p.Completed:
		return ProgressCompleted
	default:
		return ProgressInProgress
	}
}

// SameState reports whether two rows hold the same user-visible state,
// ignoring timestamps.
func (p *UserProgress) SameState(other *UserProgress) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.UserID == other.UserID &&
		p.LessonID == other.LessonID &&
		p.CourseID == other.CourseID &&
		p.Completed == other.Completed &&
		p.LastWatchedPosition == other.LastWatchedPosition
}
