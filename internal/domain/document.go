package domain

// CourseDocument is the canonical course JSON produced by the uploader tooling.
// Ingestion upserts every level keyed by the natural ids it carries.
type CourseDocument struct {
	Course CourseDoc `json:"course" validate:"required"`
}

type CourseDoc struct {
	ID          string      `json:"id" validate:"required,max=128"`
	Acronym     string      `json:"acronym" validate:"max=16"`
	Title       string      `json:"title" validate:"required"`
	Description string      `json:"description"`
	Thumbnail   string      `json:"thumbnail,omitempty"`
	TotalVideos int         `json:"totalVideos" validate:"gte=0"`
	Modules     []ModuleDoc `json:"modules" validate:"dive"`
}

type ModuleDoc struct {
	ID       string       `json:"id" validate:"required,max=128"`
	Title    string       `json:"title" validate:"required"`
	Order    int          `json:"order" validate:"gte=0"` // Negative orders are reserved for parked rows
	Sections []SectionDoc `json:"sections" validate:"dive"`
}

type SectionDoc struct {
	ID       string      `json:"id" validate:"required,max=128"`
	ModuleID string      `json:"moduleId,omitempty"` // Optional explicit parent reference
	Title    string      `json:"title" validate:"required"`
	Order    int         `json:"order" validate:"gte=0"`
	Lessons  []LessonDoc `json:"lessons" validate:"dive"`
}

type LessonDoc struct {
	ID         string  `json:"id" validate:"required,max=128"`
	SectionID  string  `json:"sectionId,omitempty"` // Optional explicit parent references
	ModuleID   string  `json:"moduleId,omitempty"`
	Title      string  `json:"title" validate:"required"`
	MediaRef   *string `json:"mediaRef,omitempty"`
	YoutubeURL *string `json:"youtubeUrl,omitempty"` // Uploader field name, alias of mediaRef
	Kind       string  `json:"kind,omitempty" validate:"omitempty,oneof=video live"`
	Type       string  `json:"type,omitempty" validate:"omitempty,oneof=video live"` // Alias of kind
	Order      int     `json:"order" validate:"gte=0"`
	Duration   *int    `json:"duration,omitempty"`
}

// Media returns the media reference, accepting either field name.
// Empty strings count as absent.
func (l *LessonDoc) Media() *string {
	for _, ref := range []*string{l.MediaRef, l.YoutubeURL} {
		if ref != nil && *ref != "" {
			v := *ref
			return &v
		}
	}
	return nil
}

// LessonKind returns the lesson kind, defaulting to video.
func (l *LessonDoc) LessonKind() LessonKind {
	switch {
	case l.Kind != "":
		return LessonKind(l.Kind)
	case l.Type != "":
		return LessonKind(l.Type)
	default:
		return LessonKindVideo
	}
}

// KnownDuration returns the duration only when it is a positive number of seconds.
func (l *LessonDoc) KnownDuration() *int {
	if l.Duration == nil || *l.Duration <= 0 {
		return nil
	}
	v := *l.Duration
	return &v
}
