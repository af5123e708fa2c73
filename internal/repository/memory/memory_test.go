package memory

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/repository"
	"context"
	"errors"
	"testing"
	"time"
)

func seedCourse(t *testing.T, repo repository.ContentRepository) {
	t.Helper()
	dur := 120
	cs := &repository.CourseChangeSet{
		Course: domain.Course{ID: "c1", Title: "Course", Revision: 1},
		IsNew:  true,
		Modules: []domain.Module{
			{ID: "m2", CourseID: "c1", Order: 2},
			{ID: "m1", CourseID: "c1", Order: 1},
		},
		Sections: []domain.Section{
			{ID: "s1", ModuleID: "m1", CourseID: "c1", Order: 1},
			{ID: "s2", ModuleID: "m2", CourseID: "c1", Order: 1},
		},
		Lessons: []domain.Lesson{
			{ID: "l2", SectionID: "s1", ModuleID: "m1", CourseID: "c1", Order: 2, Duration: &dur},
			{ID: "l1", SectionID: "s1", ModuleID: "m1", CourseID: "c1", Order: 1},
			{ID: "l3", SectionID: "s2", ModuleID: "m2", CourseID: "c1", Order: 1},
		},
	}
	if err := repo.ApplyCourseChanges(context.Background(), cs); err != nil {
		t.Fatalf("ApplyCourseChanges: %v", err)
	}
}

func TestContentRepositoryTreeIsOrdered(t *testing.T) {
	repo := NewContentRepository(NewStore())
	seedCourse(t, repo)

	tree, err := repo.GetCourseTree(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetCourseTree: %v", err)
	}
	if len(tree.Modules) != 2 || tree.Modules[0].Module.ID != "m1" {
		t.Fatalf("modules: got=%+v", tree.Modules)
	}
	lessons := tree.Modules[0].Sections[0].Lessons
	if len(lessons) != 2 || lessons[0].ID != "l1" || lessons[1].ID != "l2" {
		t.Fatalf("lessons: got=%+v", lessons)
	}

	if _, err := repo.GetCourseTree(context.Background(), "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown course: want=%v got=%v", repository.ErrNotFound, err)
	}
}

func TestContentRepositoryReturnsCopies(t *testing.T) {
	repo := NewContentRepository(NewStore())
	seedCourse(t, repo)
	ctx := context.Background()

	l, err := repo.GetLesson(ctx, "l2")
	if err != nil {
		t.Fatalf("GetLesson: %v", err)
	}
	*l.Duration = 1

	again, _ := repo.GetLesson(ctx, "l2")
	if *again.Duration != 120 {
		t.Fatalf("stored duration changed through a returned pointer: got=%d", *again.Duration)
	}
}

func TestApplyCourseChangesRevisionCheck(t *testing.T) {
	repo := NewContentRepository(NewStore())
	seedCourse(t, repo)
	ctx := context.Background()

	stale := &repository.CourseChangeSet{
		Course:           domain.Course{ID: "c1", Title: "Renamed", Revision: 2},
		ExpectedRevision: 7,
		DeleteLessonIDs:  []string{"l3"},
	}
	if err := repo.ApplyCourseChanges(ctx, stale); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("stale revision: want=%v got=%v", repository.ErrConflict, err)
	}
	if _, err := repo.GetLesson(ctx, "l3"); err != nil {
		t.Fatalf("rejected change set must not delete: %v", err)
	}

	dup := &repository.CourseChangeSet{Course: domain.Course{ID: "c1"}, IsNew: true}
	if err := repo.ApplyCourseChanges(ctx, dup); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("duplicate create: want=%v got=%v", repository.ErrConflict, err)
	}

	ok := &repository.CourseChangeSet{
		Course:           domain.Course{ID: "c1", Title: "Renamed", Revision: 2},
		ExpectedRevision: 1,
		DeleteLessonIDs:  []string{"l3"},
	}
	if err := repo.ApplyCourseChanges(ctx, ok); err != nil {
		t.Fatalf("ApplyCourseChanges: %v", err)
	}
	if _, err := repo.GetLesson(ctx, "l3"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("deleted lesson: want=%v got=%v", repository.ErrNotFound, err)
	}
}

func TestApplyCourseChangesRejectsRowOfAnotherCourse(t *testing.T) {
	repo := NewContentRepository(NewStore())
	seedCourse(t, repo)
	ctx := context.Background()

	claim := &repository.CourseChangeSet{
		Course: domain.Course{ID: "c2", Title: "Other", Revision: 1},
		IsNew:  true,
		Lessons: []domain.Lesson{
			{ID: "l1", SectionID: "x1", ModuleID: "y1", CourseID: "c2", Order: 1},
		},
	}
	if err := repo.ApplyCourseChanges(ctx, claim); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("foreign id: want=%v got=%v", repository.ErrConflict, err)
	}
	l, err := repo.GetLesson(ctx, "l1")
	if err != nil || l.CourseID != "c1" {
		t.Fatalf("l1 owner: want=c1 got=%v err=%v", l, err)
	}
	if _, err := repo.GetCourse(ctx, "c2"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("rejected course must not be created: %v", err)
	}
}

func TestOwningCourses(t *testing.T) {
	repo := NewContentRepository(NewStore())
	seedCourse(t, repo)

	owners, err := repo.OwningCourses(context.Background(), repository.EntityLesson, []string{"l1", "missing"})
	if err != nil {
		t.Fatalf("OwningCourses: %v", err)
	}
	if len(owners) != 1 || owners["l1"] != "c1" {
		t.Fatalf("owners: got=%v", owners)
	}
}

func TestProgressUpsertModes(t *testing.T) {
	repo := NewProgressRepository(NewStore())
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	first := &domain.UserProgress{UserID: "u", LessonID: "l1", CourseID: "c1", Completed: true, WatchedAt: t0, UpdatedAt: t0}
	if _, err := repo.Upsert(ctx, first, repository.CompletionRatchet); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	later := t0.Add(time.Hour)
	row, err := repo.Upsert(ctx, &domain.UserProgress{UserID: "u", LessonID: "l1", CourseID: "c1", LastWatchedPosition: 5, WatchedAt: later, UpdatedAt: later}, repository.CompletionRatchet)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !row.Completed || !row.WatchedAt.Equal(t0) || row.LastWatchedPosition != 5 {
		t.Fatalf("ratchet upsert: got=%+v", row)
	}

	row, err = repo.Upsert(ctx, &domain.UserProgress{UserID: "u", LessonID: "l1", CourseID: "c1", UpdatedAt: later}, repository.CompletionOverwrite)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if row.Completed {
		t.Fatalf("overwrite upsert must clear completion")
	}
}

func TestProgressListAndDelete(t *testing.T) {
	repo := NewProgressRepository(NewStore())
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []domain.UserProgress{
		{UserID: "u", LessonID: "a", CourseID: "c1", UpdatedAt: t0},
		{UserID: "u", LessonID: "b", CourseID: "c1", UpdatedAt: t0.Add(time.Minute)},
		{UserID: "u", LessonID: "x", CourseID: "c2", UpdatedAt: t0},
		{UserID: "v", LessonID: "a", CourseID: "c1", UpdatedAt: t0},
	}
	for i := range rows {
		if _, err := repo.Upsert(ctx, &rows[i], repository.CompletionRatchet); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	got, _ := repo.ListByCourse(ctx, "u", "c1")
	if len(got) != 2 || got[0].LessonID != "b" {
		t.Fatalf("ListByCourse: got=%+v", got)
	}

	n, err := repo.DeleteByCourse(ctx, "u", "c1")
	if err != nil || n != 2 {
		t.Fatalf("DeleteByCourse: want=2 got=%d err=%v", n, err)
	}
	all, _ := repo.ListByUser(ctx, "u")
	if len(all) != 1 || all[0].LessonID != "x" {
		t.Fatalf("ListByUser after delete: got=%+v", all)
	}
	if _, err := repo.Get(ctx, "v", "a"); err != nil {
		t.Fatalf("other user's row: %v", err)
	}
}

func TestMaterialRepository(t *testing.T) {
	repo := NewMaterialRepository(NewStore())
	ctx := context.Background()

	m := &domain.Material{ID: "m1", CourseID: "c1", ObjectKey: "materials/c1/a.pdf"}
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, &domain.Material{ID: "m2", CourseID: "c1", ObjectKey: m.ObjectKey}); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("duplicate object key: want=%v got=%v", repository.ErrConflict, err)
	}
	if err := repo.Delete(ctx, "m1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "m1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second delete: want=%v got=%v", repository.ErrNotFound, err)
	}
}
