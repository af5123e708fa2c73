package api

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/logger"
	"alcyxob/course-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ProgressHandler struct {
	progressService service.ProgressService
	statsService    service.StatsService
	log             *logger.Logger
}

func NewProgressHandler(progressService service.ProgressService, statsService service.StatsService, log *logger.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		statsService:    statsService,
		log:             log,
	}
}

// --- DTOs ---

// UpsertProgressRequest is a playback event. Both fields are optional but at
// least one must be present.
type UpsertProgressRequest struct {
	CourseID            string `json:"courseId"`
	Completed           *bool  `json:"completed"`
	LastWatchedPosition *int   `json:"lastWatchedPosition"`
}

type ToggleCompletionRequest struct {
	CourseID  string `json:"courseId"`
	Completed *bool  `json:"completed" binding:"required"`
}

// CourseIDsRequest is the body of the multi-course reads.
type CourseIDsRequest struct {
	CourseIDs []string `json:"courseIds" binding:"required,max=100"`
}

type ResetProgressResponse struct {
	CourseID string `json:"courseId"`
	Deleted  int64  `json:"deleted"`
}

// LessonProgressResponse keeps the derived state next to the stored row,
// which is null for a lesson never started.
type LessonProgressResponse struct {
	LessonID string               `json:"lessonId"`
	State    domain.ProgressState `json:"state"`
	Progress *domain.UserProgress `json:"progress"`
}

// --- Handlers ---

// UpsertProgress handles PUT /me/lessons/:lessonId/progress
func (h *ProgressHandler) UpsertProgress(c *gin.Context) {
	var req UpsertProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID := c.GetString(ContextUserIDKey)

	p, err := h.progressService.UpsertProgress(c.Request.Context(), userID, c.Param("lessonId"), req.CourseID, service.ProgressUpdate{
		Completed: req.Completed,
		Position:  req.LastWatchedPosition,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to save progress.")
		return
	}
	c.JSON(http.StatusOK, p)
}

// ToggleCompletion handles PUT /me/lessons/:lessonId/completion
func (h *ProgressHandler) ToggleCompletion(c *gin.Context) {
	var req ToggleCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID := c.GetString(ContextUserIDKey)

	p, err := h.progressService.ToggleCompletion(c.Request.Context(), userID, c.Param("lessonId"), req.CourseID, *req.Completed)
	if err != nil {
		respondError(c, h.log, err, "Failed to update completion.")
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetLessonProgress handles GET /me/lessons/:lessonId/progress
func (h *ProgressHandler) GetLessonProgress(c *gin.Context) {
	lessonID := c.Param("lessonId")
	p, err := h.progressService.GetLessonProgress(c.Request.Context(), c.GetString(ContextUserIDKey), lessonID)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve progress.")
		return
	}
	c.JSON(http.StatusOK, LessonProgressResponse{LessonID: lessonID, State: p.State(), Progress: p})
}

// ListCourseProgress handles GET /me/courses/:courseId/progress
func (h *ProgressHandler) ListCourseProgress(c *gin.Context) {
	rows, err := h.progressService.ListCourseProgress(c.Request.Context(), c.GetString(ContextUserIDKey), c.Param("courseId"))
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve progress.")
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ListAllProgress handles GET /me/progress
func (h *ProgressHandler) ListAllProgress(c *gin.Context) {
	rows, err := h.progressService.ListAllProgress(c.Request.Context(), c.GetString(ContextUserIDKey))
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve progress.")
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ResetProgress handles DELETE /me/courses/:courseId/progress
func (h *ProgressHandler) ResetProgress(c *gin.Context) {
	courseID := c.Param("courseId")
	deleted, err := h.progressService.ResetProgress(c.Request.Context(), c.GetString(ContextUserIDKey), courseID)
	if err != nil {
		respondError(c, h.log, err, "Failed to reset progress.")
		return
	}
	c.JSON(http.StatusOK, ResetProgressResponse{CourseID: courseID, Deleted: deleted})
}

// GetResumePoint handles GET /me/courses/:courseId/resume
func (h *ProgressHandler) GetResumePoint(c *gin.Context) {
	rp, err := h.progressService.GetLastWatched(c.Request.Context(), c.GetString(ContextUserIDKey), c.Param("courseId"))
	if err != nil {
		respondError(c, h.log, err, "Failed to resolve resume point.")
		return
	}
	c.JSON(http.StatusOK, rp)
}

// GetCourseStats handles GET /me/courses/:courseId/stats. Anonymous callers
// get the zero rollup.
func (h *ProgressHandler) GetCourseStats(c *gin.Context) {
	ctx := c.Request.Context()
	courseID := c.Param("courseId")

	var (
		stats *domain.CourseStats
		err   error
	)
	if userID := c.GetString(ContextUserIDKey); userID == "" {
		stats, err = h.statsService.EmptyCourseStats(ctx, courseID)
	} else {
		stats, err = h.statsService.GetCourseStats(ctx, userID, courseID)
	}
	if err != nil {
		respondError(c, h.log, err, "Failed to compute course stats.")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetStatsForCourses handles POST /me/stats. Anonymous callers get {}.
func (h *ProgressHandler) GetStatsForCourses(c *gin.Context) {
	var req CourseIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID := c.GetString(ContextUserIDKey)
	if userID == "" {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	stats, err := h.statsService.GetStatsForCourses(c.Request.Context(), userID, req.CourseIDs)
	if err != nil {
		respondError(c, h.log, err, "Failed to compute course stats.")
		return
	}
	c.JSON(http.StatusOK, stats)
}
