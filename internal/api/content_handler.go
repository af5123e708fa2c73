package api

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/logger"
	"alcyxob/course-app/internal/service"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ContentHandler struct {
	contentService service.ContentService
	sequencer      service.Sequencer
	log            *logger.Logger
}

func NewContentHandler(contentService service.ContentService, sequencer service.Sequencer, log *logger.Logger) *ContentHandler {
	return &ContentHandler{
		contentService: contentService,
		sequencer:      sequencer,
		log:            log,
	}
}

// neighborResponse wraps next/previous so the course edge is {"lesson": null}.
type neighborResponse struct {
	Lesson *domain.Lesson `json:"lesson"`
}

// ListCourses handles GET /courses
func (h *ContentHandler) ListCourses(c *gin.Context) {
	courses, err := h.contentService.ListCourses(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to list courses.")
		return
	}
	c.JSON(http.StatusOK, courses)
}

// GetCourse handles GET /courses/:courseId
func (h *ContentHandler) GetCourse(c *gin.Context) {
	course, err := h.contentService.GetCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve course.")
		return
	}
	c.JSON(http.StatusOK, course)
}

// GetCourseMetadata handles GET /courses/:courseId/metadata
func (h *ContentHandler) GetCourseMetadata(c *gin.Context) {
	meta, err := h.contentService.GetCourseMetadata(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve course metadata.")
		return
	}
	c.JSON(http.StatusOK, meta)
}

// GetMetadataForCourses handles POST /courses/metadata
func (h *ContentHandler) GetMetadataForCourses(c *gin.Context) {
	var req CourseIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	meta, err := h.contentService.GetMetadataForCourses(c.Request.Context(), req.CourseIDs)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve course metadata.")
		return
	}
	c.JSON(http.StatusOK, meta)
}

// GetHierarchy handles GET /courses/:courseId/hierarchy
func (h *ContentHandler) GetHierarchy(c *gin.Context) {
	tree, err := h.contentService.GetHierarchy(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve course hierarchy.")
		return
	}
	c.JSON(http.StatusOK, tree)
}

// ListLessons handles GET /courses/:courseId/lessons
func (h *ContentHandler) ListLessons(c *gin.Context) {
	lessons, err := h.contentService.ListLessonsWithDetails(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		respondError(c, h.log, err, "Failed to list lessons.")
		return
	}
	c.JSON(http.StatusOK, lessons)
}

// GetLesson handles GET /lessons/:lessonId
func (h *ContentHandler) GetLesson(c *gin.Context) {
	lesson, err := h.contentService.GetLesson(c.Request.Context(), c.Param("lessonId"))
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve lesson.")
		return
	}
	c.JSON(http.StatusOK, lesson)
}

// GetNextLesson handles GET /lessons/:lessonId/next
func (h *ContentHandler) GetNextLesson(c *gin.Context) {
	next, err := h.sequencer.Next(c.Request.Context(), c.Param("lessonId"))
	if err != nil {
		respondError(c, h.log, err, "Failed to resolve next lesson.")
		return
	}
	c.JSON(http.StatusOK, neighborResponse{Lesson: next})
}

// GetPreviousLesson handles GET /lessons/:lessonId/previous
func (h *ContentHandler) GetPreviousLesson(c *gin.Context) {
	prev, err := h.sequencer.Previous(c.Request.Context(), c.Param("lessonId"))
	if err != nil {
		respondError(c, h.log, err, "Failed to resolve previous lesson.")
		return
	}
	c.JSON(http.StatusOK, neighborResponse{Lesson: prev})
}

// SyncCourse handles POST /admin/courses/sync?prune=true&dryRun=true
// The body is the course document.
func (h *ContentHandler) SyncCourse(c *gin.Context) {
	prune, err := queryBool(c, "prune")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	dryRun, err := queryBool(c, "dryRun")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := service.DecodeCourseDocument(c.Request.Body)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.contentService.UpsertCourse(c.Request.Context(), doc, service.IngestOptions{Prune: prune, DryRun: dryRun})
	if err != nil {
		respondError(c, h.log, err, "Failed to sync course.")
		return
	}
	status := http.StatusOK
	if report.CourseCreated && !report.DryRun {
		status = http.StatusCreated
	}
	c.JSON(status, report)
}

func queryBool(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("Invalid value for query parameter %s: %q", name, raw)
	}
	return v, nil
}
