package domain

import "testing"

func TestSortTreeTiebreaksByID(t *testing.T) {
	tree := &CourseTree{Modules: []ModuleNode{
		{Module: Module{ID: "b", Order: 1}},
		{Module: Module{ID: "a", Order: 1}},
		{Module: Module{ID: "z", Order: 0}},
	}}
	SortTree(tree)

	got := []string{tree.Modules[0].Module.ID, tree.Modules[1].Module.ID, tree.Modules[2].Module.ID}
	if got[0] != "z" || got[1] != "a" || got[2] != "b" {
		t.Fatalf("order: want=[z a b] got=%v", got)
	}
	SortTree(nil)
}

func TestProgressState(t *testing.T) {
	var none *UserProgress
	if none.State() != ProgressNotStarted {
		t.Fatalf("nil row: want=%s got=%s", ProgressNotStarted, none.State())
	}
	if (&UserProgress{LastWatchedPosition: 0}).State() != ProgressInProgress {
		t.Fatalf("row without completion must be in progress")
	}
	if (&UserProgress{Completed: true}).State() != ProgressCompleted {
		t.Fatalf("completed row must be completed")
	}

	a := &UserProgress{UserID: "u", LessonID: "l", LastWatchedPosition: 3}
	b := *a
	if !a.SameState(&b) {
		t.Fatalf("identical rows must share state")
	}
	b.LastWatchedPosition = 4
	if a.SameState(&b) || a.SameState(nil) {
		t.Fatalf("different rows must not share state")
	}
}

func TestLessonDocAccessors(t *testing.T) {
	empty, ref, dur, zero := "", "yt-1", 300, 0

	l := LessonDoc{MediaRef: &empty, YoutubeURL: &ref, Type: "live", Duration: &zero}
	if m := l.Media(); m == nil || *m != "yt-1" {
		t.Fatalf("Media: want=yt-1 got=%v", m)
	}
	if l.LessonKind() != LessonKindLive {
		t.Fatalf("LessonKind: want=%s got=%s", LessonKindLive, l.LessonKind())
	}
	if l.KnownDuration() != nil {
		t.Fatalf("zero duration must be unknown")
	}

	l = LessonDoc{Duration: &dur}
	if l.Media() != nil || l.LessonKind() != LessonKindVideo {
		t.Fatalf("defaults: media=%v kind=%s", l.Media(), l.LessonKind())
	}
	if d := l.KnownDuration(); d == nil || *d != 300 {
		t.Fatalf("KnownDuration: want=300 got=%v", d)
	}
}
