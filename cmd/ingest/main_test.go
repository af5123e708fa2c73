package main

import (
	"alcyxob/course-app/internal/service"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const doc = `{"course": {"id": "c1", "title": "Course", "modules": [
  {"id": "m1", "title": "M", "order": 1, "sections": [
    {"id": "s1", "title": "S", "order": 1, "lessons": [
      {"id": "l1", "title": "A", "order": 1, "duration": 90},
      {"id": "l2", "title": "B", "order": 1, "duration": 30}
    ]}
  ]}
]}}`

func writeDoc(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "course.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	return path
}

func TestRunIngestsFile(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")
	path := writeDoc(t, doc)

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-file", path, "-config", t.TempDir()}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code: want=0 got=%d stderr=%s", code, stderr.String())
	}

	var report service.IngestReport
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("decode report %q: %v", stdout.String(), err)
	}
	if !report.CourseCreated || report.Lessons != 2 || report.TotalDuration != 120 || report.OrderingConflicts != 1 {
		t.Fatalf("report: got=%+v", report)
	}
}

func TestRunFailures(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no source", []string{}, "exactly one of -file or -s3"},
		{"both sources", []string{"-file", "a.json", "-s3", "s3://b/k"}, "exactly one of -file or -s3"},
		{"missing file", []string{"-file", filepath.Join(t.TempDir(), "nope.json")}, "open"},
		{"invalid document", []string{"-file", writeDoc(t, `{"course": {"id": "c1"}}`)}, "invalid course document"},
		{"bad s3 uri", []string{"-s3", "http://bucket/key"}, "scheme must be s3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			args := append(tt.args, "-config", t.TempDir())
			if code := run(context.Background(), args, &stdout, &stderr); code != 1 {
				t.Fatalf("exit code: want=1 got=%d", code)
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Fatalf("stderr: want substring %q got=%q", tt.want, stderr.String())
			}
		})
	}
}

func TestRunRefusesToWriteWhenCacheUnreachable(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")
	path := writeDoc(t, doc)

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-file", path, "-config", t.TempDir()}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code: want=1 got=%d", code)
	}
	if !strings.Contains(stderr.String(), "nothing written") {
		t.Fatalf("stderr: got=%q", stderr.String())
	}

	stdout.Reset()
	stderr.Reset()
	if code := run(context.Background(), []string{"-file", path, "-dry-run", "-config", t.TempDir()}, &stdout, &stderr); code != 0 {
		t.Fatalf("dry run exit code: want=0 got=%d stderr=%s", code, stderr.String())
	}
}
