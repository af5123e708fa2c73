package service

import (
	"alcyxob/course-app/internal/domain"
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestFlattenFollowsHierarchyOrder(t *testing.T) {
	tree := &domain.CourseTree{
		Modules: []domain.ModuleNode{
			{Module: domain.Module{ID: "m-b", Order: 2}, Sections: []domain.SectionNode{
				{Section: domain.Section{ID: "s3", Order: 1}, Lessons: []domain.Lesson{{ID: "l5", Order: 1}}},
			}},
			{Module: domain.Module{ID: "m-a", Order: 1}, Sections: []domain.SectionNode{
				{Section: domain.Section{ID: "s2", Order: 2}, Lessons: []domain.Lesson{{ID: "l4", Order: 1}}},
				{Section: domain.Section{ID: "s1", Order: 1}, Lessons: []domain.Lesson{
					{ID: "l2", Order: 2}, {ID: "l1b", Order: 1}, {ID: "l1a", Order: 1},
				}},
			}},
		},
	}
	domain.SortTree(tree)

	got := lessonIDs(Flatten(tree))
	want := []string{"l1a", "l1b", "l2", "l4", "l5"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sequence: want=%v got=%v", want, got)
	}

	seq := NewSequence(tree)
	if i, ok := seq.IndexOf("l4"); !ok || i != 3 {
		t.Fatalf("IndexOf(l4): want=3 got=%d ok=%v", i, ok)
	}
	if first, ok := seq.First(); !ok || first.ID != "l1a" {
		t.Fatalf("First: want=l1a got=%v", first)
	}
	if _, ok := seq.At(5); ok {
		t.Fatalf("At(5) should be out of range")
	}
}

func TestSequencersCrossModuleBoundary(t *testing.T) {
	env := newTestEnv(t)
	env.ingest(t, sampleDocument(), IngestOptions{})

	for _, strategy := range []string{StrategyComputed, StrategyPrecomputed} {
		t.Run(strategy, func(t *testing.T) {
			seq, err := NewSequencer(strategy, env.content, env.contentRepo)
			if err != nil {
				t.Fatalf("NewSequencer: %v", err)
			}
			ctx := context.Background()

			next, err := seq.Next(ctx, "L2")
			if err != nil || next == nil || next.ID != "L3" {
				t.Fatalf("Next(L2): want=L3 got=%v err=%v", next, err)
			}
			prev, err := seq.Previous(ctx, "L3")
			if err != nil || prev == nil || prev.ID != "L2" {
				t.Fatalf("Previous(L3): want=L2 got=%v err=%v", prev, err)
			}
			if last, err := seq.Next(ctx, "L4"); err != nil || last != nil {
				t.Fatalf("Next(L4): want=nil got=%v err=%v", last, err)
			}
			if first, err := seq.Previous(ctx, "L1"); err != nil || first != nil {
				t.Fatalf("Previous(L1): want=nil got=%v err=%v", first, err)
			}
			if _, err := seq.Next(ctx, "nope"); !errors.Is(err, ErrLessonNotFound) {
				t.Fatalf("Next(unknown): want ErrLessonNotFound got=%v", err)
			}
		})
	}
}

func TestSequencersAgreeAfterReingestion(t *testing.T) {
	env := newTestEnv(t)
	env.ingest(t, sampleDocument(), IngestOptions{})

	doc := sampleDocument()
	doc.Course.Modules[0].Order = 5
	doc.Course.Modules[1].Sections[0].Lessons[0].Order = 9 // L3 after L4
	env.ingest(t, doc, IngestOptions{})

	computed, _ := NewSequencer(StrategyComputed, env.content, env.contentRepo)
	precomputed, _ := NewSequencer(StrategyPrecomputed, env.content, env.contentRepo)
	ctx := context.Background()

	for _, id := range []string{"L1", "L2", "L3", "L4"} {
		cn, err := computed.Next(ctx, id)
		if err != nil {
			t.Fatalf("computed Next(%s): %v", id, err)
		}
		pn, err := precomputed.Next(ctx, id)
		if err != nil {
			t.Fatalf("precomputed Next(%s): %v", id, err)
		}
		if idOf(cn) != idOf(pn) {
			t.Fatalf("Next(%s): computed=%s precomputed=%s", id, idOf(cn), idOf(pn))
		}
		cp, _ := computed.Previous(ctx, id)
		pp, _ := precomputed.Previous(ctx, id)
		if idOf(cp) != idOf(pp) {
			t.Fatalf("Previous(%s): computed=%s precomputed=%s", id, idOf(cp), idOf(pp))
		}
	}

	next, _ := computed.Next(ctx, "L4")
	if idOf(next) != "L3" {
		t.Fatalf("Next(L4) after reorder: want=L3 got=%s", idOf(next))
	}
}

func TestNewSequencerRejectsUnknownStrategy(t *testing.T) {
	if _, err := NewSequencer("random", nil, nil); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func idOf(l *domain.Lesson) string {
	if l == nil {
		return "<nil>"
	}
	return l.ID
}
