package service

import (
	"alcyxob/course-app/internal/domain"
	"testing"
)

func TestCompletionPolicyReached(t *testing.T) {
	p := DefaultCompletionPolicy()
	tests := []struct {
		name     string
		position int
		duration *int
		want     bool
	}{
		{"ratio reached", 91, intPtr(100), true},
		{"exactly ratio", 90, intPtr(100), true},
		{"below both rules", 50, intPtr(100), false},
		{"thirty seconds left", 170, intPtr(200), true},
		{"thirty one seconds left", 269, intPtr(300), false},
		{"unknown duration", 5000, nil, false},
		{"zero duration", 10, intPtr(0), false},
		{"short lesson inside remaining window", 0, intPtr(20), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Reached(tt.position, tt.duration); got != tt.want {
				t.Fatalf("Reached(%d, %v): want=%v got=%v", tt.position, tt.duration, tt.want, got)
			}
		})
	}
}

func TestApplyRollups(t *testing.T) {
	tree := &domain.CourseTree{
		Modules: []domain.ModuleNode{
			{Sections: []domain.SectionNode{
				{Lessons: []domain.Lesson{{Duration: intPtr(30)}, {Duration: nil}, {Duration: intPtr(70)}}},
				{Lessons: []domain.Lesson{{Duration: intPtr(5)}}},
			}},
			{},
		},
	}
	ApplyRollups(tree)

	if got := tree.Modules[0].Sections[0].Section.TotalDuration; got != 100 {
		t.Fatalf("section 0: want=100 got=%d", got)
	}
	if got := tree.Modules[0].Module.TotalDuration; got != 105 {
		t.Fatalf("module 0: want=105 got=%d", got)
	}
	if got := tree.Modules[1].Module.TotalDuration; got != 0 {
		t.Fatalf("empty module: want=0 got=%d", got)
	}
	if got := tree.Course.TotalDuration; got != 105 {
		t.Fatalf("course: want=105 got=%d", got)
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct{ part, total, want int }{
		{0, 0, 0},
		{1, 4, 25},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
	}
	for _, tt := range tests {
		if got := percentage(tt.part, tt.total); got != tt.want {
			t.Fatalf("percentage(%d, %d): want=%d got=%d", tt.part, tt.total, tt.want, got)
		}
	}
}

func TestAggregateStatsBreakdown(t *testing.T) {
	env := newTestEnv(t)
	env.ingest(t, sampleDocument(), IngestOptions{})
	tree := env.tree(t, "gado-leite")

	stats := AggregateStats(tree, []domain.UserProgress{
		{LessonID: "L1", Completed: true, LastWatchedPosition: 100},
		{LessonID: "L3", LastWatchedPosition: 250}, // beyond duration, capped
		{LessonID: "gone", Completed: true, LastWatchedPosition: 10},
	})

	if stats.TotalLessons != 4 || stats.CompletedLessons != 1 || stats.ProgressPercentage != 25 {
		t.Fatalf("course: got=%+v", stats.ProgressStats)
	}
	if stats.WatchedDuration != 200 || stats.TotalDuration != 400 {
		t.Fatalf("course durations: watched=%d total=%d", stats.WatchedDuration, stats.TotalDuration)
	}
	m1, m2 := stats.Modules[0], stats.Modules[1]
	if m1.ModuleID != "M1" || m1.CompletedLessons != 1 || m1.ProgressPercentage != 50 || m1.WatchedDuration != 100 {
		t.Fatalf("module M1: got=%+v", m1)
	}
	if m2.CompletedLessons != 0 || m2.WatchedDuration != 100 || m2.TotalDuration != 200 {
		t.Fatalf("module M2: got=%+v", m2)
	}
	if s := m2.Sections[0]; s.SectionID != "S2" || s.TotalLessons != 2 {
		t.Fatalf("section S2: got=%+v", s)
	}
}
