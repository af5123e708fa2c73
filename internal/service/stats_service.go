package service

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/repository"
	"context"

	"golang.org/x/sync/errgroup"
)

// maxParallelCourses bounds the courses read at once by the multi-course calls.
const maxParallelCourses = 8

type StatsService interface {
	GetCourseStats(ctx context.Context, userID, courseID string) (*domain.CourseStats, error)
	GetStatsForCourses(ctx context.Context, userID string, courseIDs []string) (map[string]*domain.CourseStats, error)
	// EmptyCourseStats is the zero rollup of a course, shown to anonymous callers.
	EmptyCourseStats(ctx context.Context, courseID string) (*domain.CourseStats, error)
}

type statsService struct {
	content      ContentService
	progressRepo repository.ProgressRepository
}

func NewStatsService(content ContentService, progressRepo repository.ProgressRepository) StatsService {
	return &statsService{content: content, progressRepo: progressRepo}
}

// GetCourseStats aggregates over the stored hierarchy, which is authoritative.
func (s *statsService) GetCourseStats(ctx context.Context, userID, courseID string) (*domain.CourseStats, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	tree, err := s.content.GetHierarchy(ctx, courseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.progressRepo.ListByCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	return AggregateStats(tree, rows), nil
}

func (s *statsService) EmptyCourseStats(ctx context.Context, courseID string) (*domain.CourseStats, error) {
	if _, err := s.content.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return &domain.CourseStats{CourseID: courseID, Modules: []domain.ModuleStats{}}, nil
}

// GetStatsForCourses computes several courses concurrently. Duplicate ids are
// computed once; any failure cancels the rest.
func (s *statsService) GetStatsForCourses(ctx context.Context, userID string, courseIDs []string) (map[string]*domain.CourseStats, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	unique := uniqueIDs(courseIDs)
	results := make([]*domain.CourseStats, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelCourses)
	for i, id := range unique {
		g.Go(func() error {
			st, err := s.GetCourseStats(gctx, userID, id)
			if err != nil {
				return err
			}
			results[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*domain.CourseStats, len(unique))
	for i, id := range unique {
		out[id] = results[i]
	}
	return out, nil
}

// uniqueIDs drops empty and repeated ids, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique
}
