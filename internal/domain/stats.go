package domain

// ProgressStats is the rollup shared by every level of the hierarchy.
type ProgressStats struct {
	TotalLessons       int `json:"totalLessons"`
	CompletedLessons   int `json:"completedLessons"`
	ProgressPercentage int `json:"progressPercentage"`
	WatchedDuration    int `json:"watchedDuration"` // Seconds
	TotalDuration      int `json:"totalDuration"`   // Seconds
}

// CourseStats is the per-user rollup of one course with its module/section breakdown.
type CourseStats struct {
	CourseID string `json:"courseId"`
	ProgressStats
	Modules []ModuleStats `json:"modules"`
}

type ModuleStats struct {
	ModuleID string `json:"moduleId"`
	Title    string `json:"title"`
	Order    int    `json:"order"`
	ProgressStats
	Sections []SectionStats `json:"sections"`
}

type SectionStats struct {
	SectionID string `json:"sectionId"`
	Title     string `json:"title"`
	Order     int    `json:"order"`
	ProgressStats
}
