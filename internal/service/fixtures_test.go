package service

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/logger"
	"alcyxob/course-app/internal/repository"
	"alcyxob/course-app/internal/repository/memory"
	"context"
	"sync"
	"testing"
	"time"
)

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// tickingClock returns a strictly increasing time on every call.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTickingClock() *tickingClock {
	return &tickingClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// sampleDocument: 2 modules, each 1 section, each 2 lessons of 100s.
// Sequence order is L1, L2, L3, L4.
func sampleDocument() *domain.CourseDocument {
	lesson := func(id string, order int) domain.LessonDoc {
		return domain.LessonDoc{
			ID:       id,
			Title:    "Lesson " + id,
			Kind:     "video",
			Order:    order,
			MediaRef: strPtr("yt-" + id),
			Duration: intPtr(100),
		}
	}
	return &domain.CourseDocument{Course: domain.CourseDoc{
		ID:          "gado-leite",
		Acronym:     "GL",
		Title:       "Gestão de Fazendas de Gado de Leite",
		TotalVideos: 4,
		Modules: []domain.ModuleDoc{
			{ID: "M1", Title: "Module 1", Order: 1, Sections: []domain.SectionDoc{
				{ID: "S1", Title: "Section 1", Order: 1, Lessons: []domain.LessonDoc{lesson("L1", 1), lesson("L2", 2)}},
			}},
			{ID: "M2", Title: "Module 2", Order: 2, Sections: []domain.SectionDoc{
				{ID: "S2", Title: "Section 2", Order: 1, Lessons: []domain.LessonDoc{lesson("L3", 1), lesson("L4", 2)}},
			}},
		},
	}}
}

// otherDocument is a second course with distinct ids.
func otherDocument() *domain.CourseDocument {
	return &domain.CourseDocument{Course: domain.CourseDoc{
		ID:    "suinos",
		Title: "Suinocultura",
		Modules: []domain.ModuleDoc{
			{ID: "X1", Title: "Intro", Order: 1, Sections: []domain.SectionDoc{
				{ID: "XS1", Title: "Basics", Order: 1, Lessons: []domain.LessonDoc{
					{ID: "XL1", Title: "Welcome", Order: 1, Duration: intPtr(60)},
				}},
			}},
		},
	}}
}

type testEnv struct {
	store        *memory.Store
	contentRepo  repository.ContentRepository
	progressRepo repository.ProgressRepository
	content      ContentService
	progress     ProgressService
	stats        StatsService
	clock        *tickingClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	env := &testEnv{
		store:        store,
		contentRepo:  memory.NewContentRepository(store),
		progressRepo: memory.NewProgressRepository(store),
		clock:        newTickingClock(),
	}
	log := logger.NewNop()

	content := NewContentService(env.contentRepo, nil, log)
	content.(*contentService).now = env.clock.Now
	env.content = content

	progress := NewProgressService(env.progressRepo, content, DefaultCompletionPolicy(), log)
	progress.(*progressService).now = env.clock.Now
	env.progress = progress

	env.stats = NewStatsService(content, env.progressRepo)
	return env
}

func (e *testEnv) ingest(t *testing.T, doc *domain.CourseDocument, opts IngestOptions) *IngestReport {
	t.Helper()
	report, err := e.content.UpsertCourse(context.Background(), doc, opts)
	if err != nil {
		t.Fatalf("UpsertCourse(%s): %v", doc.Course.ID, err)
	}
	return report
}

func (e *testEnv) tree(t *testing.T, courseID string) *domain.CourseTree {
	t.Helper()
	tree, err := e.content.GetHierarchy(context.Background(), courseID)
	if err != nil {
		t.Fatalf("GetHierarchy(%s): %v", courseID, err)
	}
	return tree
}

func lessonIDs(lessons []domain.Lesson) []string {
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	return ids
}
