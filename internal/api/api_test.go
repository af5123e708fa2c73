package api

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/logger"
	"alcyxob/course-app/internal/repository/memory"
	"alcyxob/course-app/internal/service"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "test-secret"

const courseJSON = `{
  "course": {
    "id": "gado-leite", "acronym": "GL", "title": "Gado de Leite", "totalVideos": 3,
    "modules": [
      {"id": "M1", "title": "Intro", "order": 1, "sections": [
        {"id": "S1", "title": "Basics", "order": 1, "lessons": [
          {"id": "L1", "title": "One", "order": 1, "duration": 100, "youtubeUrl": "yt-1"},
          {"id": "L2", "title": "Two", "order": 2, "duration": 100}
        ]}
      ]},
      {"id": "M2", "title": "Deep", "order": 2, "sections": [
        {"id": "S2", "title": "More", "order": 1, "lessons": [
          {"id": "L3", "title": "Three", "order": 1, "duration": 200, "type": "live"}
        ]}
      ]}
    ]
  }
}`

func init() {
	gin.SetMode(gin.TestMode)
}

// memoryCounter is a RateCounter that allows limit hits per key, forever.
type memoryCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (m *memoryCounter) Hit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hits == nil {
		m.hits = map[string]int{}
	}
	m.hits[key]++
	if m.hits[key] > limit {
		return false, window, nil
	}
	return true, 0, nil
}

func newTestRouter(t *testing.T, cfg RouterConfig) *gin.Engine {
	t.Helper()
	log := logger.NewNop()
	store := memory.NewStore()
	contentRepo := memory.NewContentRepository(store)
	progressRepo := memory.NewProgressRepository(store)

	content := service.NewContentService(contentRepo, nil, log)
	seq, err := service.NewSequencer(service.StrategyComputed, content, contentRepo)
	if err != nil {
		t.Fatalf("NewSequencer: %v", err)
	}
	svcs := Services{
		Content:   content,
		Sequencer: seq,
		Progress:  service.NewProgressService(progressRepo, content, service.DefaultCompletionPolicy(), log),
		Stats:     service.NewStatsService(content, progressRepo),
	}

	cfg.JWTSecret = testSecret
	router := gin.New()
	router.Use(RequestID())
	SetupRoutes(router, cfg, svcs, log)
	return router
}

func signToken(t *testing.T, userID string, role domain.Role, ttl time.Duration) string {
	t.Helper()
	claims := jwtClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doRequest(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func syncCourse(t *testing.T, router http.Handler) {
	t.Helper()
	admin := signToken(t, "admin-1", domain.RoleAdmin, time.Hour)
	w := doRequest(router, http.MethodPost, "/api/v1/admin/courses/sync", admin, courseJSON)
	if w.Code != http.StatusCreated {
		t.Fatalf("sync: want=%d got=%d body=%s", http.StatusCreated, w.Code, w.Body.String())
	}
}

func TestSyncRequiresAdmin(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})

	w := doRequest(router, http.MethodPost, "/api/v1/admin/courses/sync", "", courseJSON)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous sync: want=401 got=%d", w.Code)
	}
	learner := signToken(t, "user-1", domain.RoleLearner, time.Hour)
	w = doRequest(router, http.MethodPost, "/api/v1/admin/courses/sync", learner, courseJSON)
	if w.Code != http.StatusForbidden {
		t.Fatalf("learner sync: want=403 got=%d", w.Code)
	}

	syncCourse(t, router)

	admin := signToken(t, "admin-1", domain.RoleAdmin, time.Hour)
	w = doRequest(router, http.MethodPost, "/api/v1/admin/courses/sync", admin, courseJSON)
	if w.Code != http.StatusOK {
		t.Fatalf("re-sync: want=200 got=%d", w.Code)
	}
	var report service.IngestReport
	decode(t, w, &report)
	if report.Changed || report.Lessons != 3 {
		t.Fatalf("re-sync report: got=%+v", report)
	}
}

func TestSyncRejectsBadDocuments(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})
	admin := signToken(t, "admin-1", domain.RoleAdmin, time.Hour)

	dangling := strings.Replace(courseJSON, `"id": "L2", "title": "Two"`, `"id": "L2", "sectionId": "S9", "title": "Two"`, 1)
	tests := []struct {
		name string
		path string
		body string
	}{
		{"malformed json", "/api/v1/admin/courses/sync", `{"course":`},
		{"missing title", "/api/v1/admin/courses/sync", `{"course": {"id": "x"}}`},
		{"dangling parent", "/api/v1/admin/courses/sync", dangling},
		{"bad query flag", "/api/v1/admin/courses/sync?prune=maybe", courseJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, tt.path, admin, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("want=400 got=%d body=%s", w.Code, w.Body.String())
			}
		})
	}

	w := doRequest(router, http.MethodGet, "/api/v1/courses/gado-leite", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("rejected documents must not be written: got=%d", w.Code)
	}
}

func TestPublicContentRoutes(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})
	syncCourse(t, router)

	w := doRequest(router, http.MethodGet, "/api/v1/courses/gado-leite/hierarchy", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("hierarchy: want=200 got=%d", w.Code)
	}
	var tree domain.CourseTree
	decode(t, w, &tree)
	if tree.Course.TotalDuration != 400 || len(tree.Modules) != 2 {
		t.Fatalf("hierarchy: total=%d modules=%d", tree.Course.TotalDuration, len(tree.Modules))
	}
	if l3 := tree.Modules[1].Sections[0].Lessons[0]; l3.Kind != domain.LessonKindLive {
		t.Fatalf("lesson kind alias: got=%s", l3.Kind)
	}

	var next neighborResponse
	w = doRequest(router, http.MethodGet, "/api/v1/lessons/L2/next", "", "")
	decode(t, w, &next)
	if next.Lesson == nil || next.Lesson.ID != "L3" {
		t.Fatalf("next of L2: got=%v", next.Lesson)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/lessons/L3/next", "", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"lesson":null}` {
		t.Fatalf("next at course edge: code=%d body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/api/v1/lessons/nope/previous", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown lesson: want=404 got=%d", w.Code)
	}

	var meta domain.CourseMetadata
	w = doRequest(router, http.MethodGet, "/api/v1/courses/gado-leite/metadata", "", "")
	decode(t, w, &meta)
	if meta.ModuleCount != 2 || meta.SectionCount != 2 || meta.LessonCount != 3 {
		t.Fatalf("metadata: got=%+v", meta)
	}

	var details []domain.LessonDetails
	w = doRequest(router, http.MethodGet, "/api/v1/courses/gado-leite/lessons", "", "")
	decode(t, w, &details)
	if len(details) != 3 || details[2].ModuleTitle != "Deep" || details[2].Position != 2 {
		t.Fatalf("lesson details: got=%+v", details)
	}
}

func TestProgressRoutes(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})
	syncCourse(t, router)
	token := signToken(t, "user-1", domain.RoleLearner, time.Hour)

	w := doRequest(router, http.MethodPut, "/api/v1/me/lessons/L1/progress", "", `{"lastWatchedPosition": 10}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous upsert: want=401 got=%d", w.Code)
	}

	w = doRequest(router, http.MethodPut, "/api/v1/me/lessons/L1/progress", token, `{"courseId": "gado-leite", "lastWatchedPosition": 91}`)
	if w.Code != http.StatusOK {
		t.Fatalf("upsert: want=200 got=%d body=%s", w.Code, w.Body.String())
	}
	var p domain.UserProgress
	decode(t, w, &p)
	if !p.Completed || p.LastWatchedPosition != 91 {
		t.Fatalf("upsert: got=%+v", p)
	}

	errorCases := []struct {
		body string
		want int
	}{
		{`{"lastWatchedPosition": -5}`, http.StatusBadRequest},
		{`{"courseId": "other", "lastWatchedPosition": 5}`, http.StatusBadRequest},
		{`{}`, http.StatusBadRequest},
	}
	for _, tc := range errorCases {
		w = doRequest(router, http.MethodPut, "/api/v1/me/lessons/L1/progress", token, tc.body)
		if w.Code != tc.want {
			t.Fatalf("upsert %s: want=%d got=%d", tc.body, tc.want, w.Code)
		}
	}

	var stats domain.CourseStats
	w = doRequest(router, http.MethodGet, "/api/v1/me/courses/gado-leite/stats", token, "")
	decode(t, w, &stats)
	if stats.CompletedLessons != 1 || stats.TotalLessons != 3 || stats.ProgressPercentage != 33 || stats.WatchedDuration != 91 {
		t.Fatalf("stats: got=%+v", stats.ProgressStats)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/me/courses/gado-leite/stats", "", "")
	decode(t, w, &stats)
	if w.Code != http.StatusOK || stats.CompletedLessons != 0 || stats.WatchedDuration != 0 {
		t.Fatalf("anonymous stats: code=%d got=%+v", w.Code, stats.ProgressStats)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/me/lessons/L2/progress", token, "")
	var lp LessonProgressResponse
	decode(t, w, &lp)
	if lp.State != domain.ProgressNotStarted || lp.Progress != nil {
		t.Fatalf("untouched lesson: got=%+v", lp)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/me/courses/gado-leite/resume", token, "")
	var rp service.ResumePoint
	decode(t, w, &rp)
	if !rp.Resumed || rp.Lesson.ID != "L1" {
		t.Fatalf("resume: got lesson=%s resumed=%v", rp.Lesson.ID, rp.Resumed)
	}

	w = doRequest(router, http.MethodPut, "/api/v1/me/lessons/L1/completion", token, `{"completed": false}`)
	decode(t, w, &p)
	if w.Code != http.StatusOK || p.Completed {
		t.Fatalf("toggle off: code=%d got=%+v", w.Code, p)
	}
	w = doRequest(router, http.MethodPut, "/api/v1/me/lessons/L1/completion", token, `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("toggle without flag: want=400 got=%d", w.Code)
	}

	w = doRequest(router, http.MethodDelete, "/api/v1/me/courses/gado-leite/progress", token, "")
	var reset ResetProgressResponse
	decode(t, w, &reset)
	if reset.Deleted != 1 {
		t.Fatalf("reset: want=1 got=%d", reset.Deleted)
	}

	var rows []domain.UserProgress
	w = doRequest(router, http.MethodGet, "/api/v1/me/progress", token, "")
	decode(t, w, &rows)
	if len(rows) != 0 {
		t.Fatalf("progress after reset: got=%d rows", len(rows))
	}
}

func TestStatsForCoursesRoute(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})
	syncCourse(t, router)
	token := signToken(t, "user-1", domain.RoleLearner, time.Hour)

	w := doRequest(router, http.MethodPost, "/api/v1/me/stats", "", `{"courseIds": ["gado-leite"]}`)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{}` {
		t.Fatalf("anonymous multi stats: code=%d body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodPost, "/api/v1/me/stats", token, `{"courseIds": ["gado-leite"]}`)
	var got map[string]domain.CourseStats
	decode(t, w, &got)
	if st, ok := got["gado-leite"]; !ok || st.TotalLessons != 3 {
		t.Fatalf("multi stats: got=%+v", got)
	}

	w = doRequest(router, http.MethodPost, "/api/v1/me/stats", token, `{"courseIds": ["gado-leite", "nope"]}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown course: want=404 got=%d", w.Code)
	}
}

func TestMetadataForCoursesRoute(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})
	syncCourse(t, router)

	w := doRequest(router, http.MethodPost, "/api/v1/courses/metadata", "", `{"courseIds": ["gado-leite", "gado-leite"]}`)
	var got map[string]domain.CourseMetadata
	decode(t, w, &got)
	if w.Code != http.StatusOK || len(got) != 1 {
		t.Fatalf("metadata: code=%d got=%+v", w.Code, got)
	}
	if md := got["gado-leite"]; md.LessonCount != 3 || md.TotalDuration != 400 {
		t.Fatalf("metadata: got=%+v", md)
	}

	w = doRequest(router, http.MethodPost, "/api/v1/courses/metadata", "", `{"courseIds": ["gado-leite", "nope"]}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown course: want=404 got=%d", w.Code)
	}
	w = doRequest(router, http.MethodPost, "/api/v1/courses/metadata", "", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing ids: want=400 got=%d", w.Code)
	}
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})

	expired := signToken(t, "user-1", domain.RoleLearner, -time.Minute)
	forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		UserID:           "user-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("other-secret"))

	for name, header := range map[string]string{
		"expired":    "Bearer " + expired,
		"forged":     "Bearer " + forged,
		"bad format": "Token abc",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me/progress", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: want=401 got=%d", name, w.Code)
		}
	}

	// A present but invalid token is rejected even where auth is optional.
	w := doRequest(router, http.MethodGet, "/api/v1/me/courses/gado-leite/stats", expired, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("optional auth with expired token: want=401 got=%d", w.Code)
	}
}

func TestProgressRateLimit(t *testing.T) {
	router := newTestRouter(t, RouterConfig{RateCounter: &memoryCounter{}, ProgressPerMinute: 2})
	syncCourse(t, router)
	token := signToken(t, "user-1", domain.RoleLearner, time.Hour)

	for i := 0; i < 2; i++ {
		w := doRequest(router, http.MethodPut, "/api/v1/me/lessons/L1/progress", token, `{"lastWatchedPosition": 5}`)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: want=200 got=%d", i, w.Code)
		}
	}
	w := doRequest(router, http.MethodPut, "/api/v1/me/lessons/L1/progress", token, `{"lastWatchedPosition": 6}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: want=429 got=%d", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After: want=60 got=%q", w.Header().Get("Retry-After"))
	}

	other := signToken(t, "user-2", domain.RoleLearner, time.Hour)
	w = doRequest(router, http.MethodPut, "/api/v1/me/lessons/L1/progress", other, `{"lastWatchedPosition": 6}`)
	if w.Code != http.StatusOK {
		t.Fatalf("other user: want=200 got=%d", w.Code)
	}
}

func TestPingAndRequestID(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})

	w := doRequest(router, http.MethodGet, "/ping", "", "")
	if w.Code != http.StatusOK || w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("ping: code=%d request id=%q", w.Code, w.Header().Get(requestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get(requestIDHeader) != "abc" {
		t.Fatalf("healthz: code=%d request id=%q", rec.Code, rec.Header().Get(requestIDHeader))
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrCourseNotFound, http.StatusNotFound},
		{service.ErrDanglingReference, http.StatusBadRequest},
		{service.ErrUnauthenticated, http.StatusUnauthorized},
		{service.ErrConcurrentIngest, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Fatalf("statusFor(%v): want=%d got=%d", tt.err, tt.want, got)
		}
	}
}
