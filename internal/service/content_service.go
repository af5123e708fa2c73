package service

import (
	"alcyxob/course-app/internal/cache"
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/logger"
	"alcyxob/course-app/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

// --- Service Interface ---

// ContentService owns the course hierarchy: ingestion and read access.
type ContentService interface {
	UpsertCourse(ctx context.Context, doc *domain.CourseDocument, opts IngestOptions) (*IngestReport, error)
	GetHierarchy(ctx context.Context, courseID string) (*domain.CourseTree, error)
	ListCourses(ctx context.Context) ([]domain.Course, error)
	GetCourse(ctx context.Context, courseID string) (*domain.Course, error)
	GetCourseMetadata(ctx context.Context, courseID string) (*domain.CourseMetadata, error)
	GetMetadataForCourses(ctx context.Context, courseIDs []string) (map[string]*domain.CourseMetadata, error)
	GetLesson(ctx context.Context, lessonID string) (*domain.Lesson, error)
	ListLessonsWithDetails(ctx context.Context, courseID string) ([]domain.LessonDetails, error)
}

// --- Service Implementation ---

type contentService struct {
	contentRepo repository.ContentRepository
	cache       cache.HierarchyCache
	validate    *validator.Validate
	log         *logger.Logger
	now         func() time.Time
}

// NewContentService creates a new content service. A nil cache disables caching.
func NewContentService(contentRepo repository.ContentRepository, hierarchyCache cache.HierarchyCache, log *logger.Logger) ContentService {
	if hierarchyCache == nil {
		hierarchyCache = cache.NewNopHierarchyCache()
	}
	return &contentService{
		contentRepo: contentRepo,
		cache:       hierarchyCache,
		validate:    validator.New(),
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// UpsertCourse validates the document, merges it with the stored course and
// writes the result in one transaction.
func (s *contentService) UpsertCourse(ctx context.Context, doc *domain.CourseDocument, opts IngestOptions) (*IngestReport, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}
	if err := s.validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := checkDocument(doc); err != nil {
		return nil, err
	}
	courseID := doc.Course.ID

	existing, err := s.contentRepo.GetCourseTree(ctx, courseID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("load course %s: %w", courseID, err)
		}
		existing = nil
	}
	if err := s.checkOwnership(ctx, doc); err != nil {
		return nil, err
	}

	plan := planIngest(doc, existing, opts, s.now())
	for _, c := range plan.Conflicts {
		s.log.Warn("ordering conflict resolved",
			"courseId", courseID, "level", string(c.Level), "parentId", c.ParentID, "bumpedIds", c.IDs)
	}
	if !plan.Report.Changed {
		s.log.Info("course unchanged, nothing written", "courseId", courseID, "revision", plan.Report.Revision)
		return plan.Report, nil
	}
	if opts.DryRun {
		return plan.Report, nil
	}

	if err := s.contentRepo.ApplyCourseChanges(ctx, plan.Changes); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConcurrentIngest
		}
		return nil, fmt.Errorf("apply course %s: %w", courseID, err)
	}
	if err := s.cache.Invalidate(ctx, courseID); err != nil {
		s.log.Warn("hierarchy cache invalidation failed", "courseId", courseID, "error", err)
	}

	r := plan.Report
	s.log.Info("course ingested",
		"courseId", courseID, "revision", r.Revision,
		"lessonsCreated", r.LessonsCreated, "lessonsUpdated", r.LessonsUpdated,
		"newMediaRefs", r.NewMediaRefs, "newDurations", r.NewDurations,
		"pruned", r.PrunedModules+r.PrunedSections+r.PrunedLessons)
	return r, nil
}

// checkOwnership rejects ids that already belong to another course.
func (s *contentService) checkOwnership(ctx context.Context, doc *domain.CourseDocument) error {
	modules, sections, lessons := documentIDs(doc)
	for _, level := range []struct {
		kind repository.EntityKind
		ids  []string
	}{
		{repository.EntityModule, modules},
		{repository.EntitySection, sections},
		{repository.EntityLesson, lessons},
	} {
		owners, err := s.contentRepo.OwningCourses(ctx, level.kind, level.ids)
		if err != nil {
			return fmt.Errorf("look up %s owners: %w", level.kind, err)
		}
		for id, owner := range owners {
			if owner != doc.Course.ID {
				return fmt.Errorf("%w: %s %q already belongs to course %q", ErrInvalidDocument, level.kind, id, owner)
			}
		}
	}
	return nil
}

// GetHierarchy serves the cached tree only while its revision matches the
// stored course row. A reader that raced an ingestion can write an older tree
// back after the invalidation; the revision check discards it.
func (s *contentService) GetHierarchy(ctx context.Context, courseID string) (*domain.CourseTree, error) {
	if tree, ok := s.cache.Get(ctx, courseID); ok {
		course, err := s.contentRepo.GetCourse(ctx, courseID)
		switch {
		case err == nil && course.Revision == tree.Course.Revision:
			return tree, nil
		case err == nil:
			s.log.Debug("stale hierarchy cache entry", "courseId", courseID,
				"cachedRevision", tree.Course.Revision, "storedRevision", course.Revision)
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrCourseNotFound
		default:
			return nil, err
		}
	}
	tree, err := s.contentRepo.GetCourseTree(ctx, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	s.cache.Set(ctx, tree)
	return tree, nil
}

func (s *contentService) ListCourses(ctx context.Context) ([]domain.Course, error) {
	courses, err := s.contentRepo.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []domain.Course{}
	}
	return courses, nil
}

func (s *contentService) GetCourse(ctx context.Context, courseID string) (*domain.Course, error) {
	course, err := s.contentRepo.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

func (s *contentService) GetCourseMetadata(ctx context.Context, courseID string) (*domain.CourseMetadata, error) {
	tree, err := s.GetHierarchy(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return &domain.CourseMetadata{
		CourseID:      tree.Course.ID,
		Title:         tree.Course.Title,
		ModuleCount:   len(tree.Modules),
		SectionCount:  tree.SectionCount(),
		LessonCount:   tree.LessonCount(),
		TotalVideos:   tree.Course.TotalVideos,
		TotalDuration: tree.Course.TotalDuration,
	}, nil
}

// GetMetadataForCourses reads several courses concurrently. An unknown id
// fails the whole call with ErrCourseNotFound.
func (s *contentService) GetMetadataForCourses(ctx context.Context, courseIDs []string) (map[string]*domain.CourseMetadata, error) {
	unique := uniqueIDs(courseIDs)
	results := make([]*domain.CourseMetadata, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelCourses)
	for i, id := range unique {
		g.Go(func() error {
			md, err := s.GetCourseMetadata(gctx, id)
			if err != nil {
				return err
			}
			results[i] = md
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*domain.CourseMetadata, len(unique))
	for i, id := range unique {
		out[id] = results[i]
	}
	return out, nil
}

func (s *contentService) GetLesson(ctx context.Context, lessonID string) (*domain.Lesson, error) {
	lesson, err := s.contentRepo.GetLesson(ctx, lessonID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	return lesson, nil
}

// ListLessonsWithDetails returns the course's lessons in sequence order, each
// with its module and section context.
func (s *contentService) ListLessonsWithDetails(ctx context.Context, courseID string) ([]domain.LessonDetails, error) {
	tree, err := s.GetHierarchy(ctx, courseID)
	if err != nil {
		return nil, err
	}
	details := make([]domain.LessonDetails, 0, tree.LessonCount())
	for _, m := range tree.Modules {
		for _, sec := range m.Sections {
			for _, l := range sec.Lessons {
				details = append(details, domain.LessonDetails{
					Lesson:               l,
					Position:             len(details),
					ModuleTitle:          m.Module.Title,
					ModuleOrder:          m.Module.Order,
					ModuleTotalDuration:  m.Module.TotalDuration,
					SectionTitle:         sec.Section.Title,
					SectionOrder:         sec.Section.Order,
					SectionTotalDuration: sec.Section.TotalDuration,
				})
			}
		}
	}
	return details, nil
}
