package service

import (
	"alcyxob/course-app/internal/domain"
	"math"
)

// ApplyRollups recomputes the static duration totals of every level from the
// lesson durations. Unknown durations count as zero.
func ApplyRollups(tree *domain.CourseTree) {
	courseTotal := 0
	for mi := range tree.Modules {
		m := &tree.Modules[mi]
		moduleTotal := 0
		for si := range m.Sections {
			s := &m.Sections[si]
			sectionTotal := 0
			for li := range s.Lessons {
				sectionTotal += s.Lessons[li].DurationSeconds()
			}
			s.Section.TotalDuration = sectionTotal
			moduleTotal += sectionTotal
		}
		m.Module.TotalDuration = moduleTotal
		courseTotal += moduleTotal
	}
	tree.Course.TotalDuration = courseTotal
}

// lessonStats is the contribution of one lesson to every level above it.
func lessonStats(l *domain.Lesson, p *domain.UserProgress) domain.ProgressStats {
	st := domain.ProgressStats{
		TotalLessons:  1,
		TotalDuration: l.DurationSeconds(),
	}
	if p == nil {
		return st
	}
	if p.Completed {
		st.CompletedLessons = 1
	}
	if d := l.DurationSeconds(); d > 0 {
		st.WatchedDuration = min(max(p.LastWatchedPosition, 0), d)
	}
	return st
}

func addStats(dst *domain.ProgressStats, src domain.ProgressStats) {
	dst.TotalLessons += src.TotalLessons
	dst.CompletedLessons += src.CompletedLessons
	dst.WatchedDuration += src.WatchedDuration
	dst.TotalDuration += src.TotalDuration
}

func finishStats(st *domain.ProgressStats) {
	st.ProgressPercentage = percentage(st.CompletedLessons, st.TotalLessons)
}

// percentage is round(100*part/total), 0 for an empty total.
func percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}

// AggregateStats rolls the user's progress rows up the tree. Rows for
// lessons not in the tree are ignored.
func AggregateStats(tree *domain.CourseTree, progress []domain.UserProgress) *domain.CourseStats {
	byLesson := make(map[string]*domain.UserProgress, len(progress))
	for i := range progress {
		byLesson[progress[i].LessonID] = &progress[i]
	}

	stats := &domain.CourseStats{
		CourseID: tree.Course.ID,
		Modules:  make([]domain.ModuleStats, 0, len(tree.Modules)),
	}
	for _, m := range tree.Modules {
		ms := domain.ModuleStats{
			ModuleID: m.Module.ID,
			Title:    m.Module.Title,
			Order:    m.Module.Order,
			Sections: make([]domain.SectionStats, 0, len(m.Sections)),
		}
		for _, s := range m.Sections {
			ss := domain.SectionStats{
				SectionID: s.Section.ID,
				Title:     s.Section.Title,
				Order:     s.Section.Order,
			}
			for li := range s.Lessons {
				l := &s.Lessons[li]
				addStats(&ss.ProgressStats, lessonStats(l, byLesson[l.ID]))
			}
			finishStats(&ss.ProgressStats)
			addStats(&ms.ProgressStats, ss.ProgressStats)
			ms.Sections = append(ms.Sections, ss)
		}
		finishStats(&ms.ProgressStats)
		addStats(&stats.ProgressStats, ms.ProgressStats)
		stats.Modules = append(stats.Modules, ms)
	}
	finishStats(&stats.ProgressStats)
	return stats
}
