package api

import (
	"alcyxob/course-app/internal/logger"
	"alcyxob/course-app/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrCourseNotFound),
		errors.Is(err, service.ErrLessonNotFound),
		errors.Is(err, service.ErrMaterialNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidDocument),
		errors.Is(err, service.ErrDanglingReference),
		errors.Is(err, service.ErrInvalidPosition),
		errors.Is(err, service.ErrCourseMismatch),
		errors.Is(err, service.ErrEmptyProgressUpdate),
		errors.Is(err, service.ErrValidationFailed),
		errors.Is(err, service.ErrUploadMissing):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrConcurrentIngest):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the mapped status. Internal errors are logged and
// replaced by the generic message.
func respondError(c *gin.Context, log *logger.Logger, err error, internalMsg string) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Error(internalMsg, "path", c.FullPath(), "error", err)
		abortWithError(c, code, internalMsg)
		return
	}
	abortWithError(c, code, err.Error())
}
