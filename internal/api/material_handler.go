package api

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/logger"
	"alcyxob/course-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type MaterialHandler struct {
	materialService service.MaterialService
	log             *logger.Logger
}

func NewMaterialHandler(materialService service.MaterialService, log *logger.Logger) *MaterialHandler {
	return &MaterialHandler{materialService: materialService, log: log}
}

type UploadURLRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

type ConfirmMaterialRequest struct {
	ObjectKey   string  `json:"objectKey" binding:"required"`
	LessonID    *string `json:"lessonId"`
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Type        string  `json:"type" binding:"omitempty,oneof=pdf slide document other"`
}

// RequestUploadURL handles POST /admin/courses/:courseId/materials/upload-url
func (h *MaterialHandler) RequestUploadURL(c *gin.Context) {
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	resp, err := h.materialService.RequestUploadURL(c.Request.Context(), c.Param("courseId"), req.FileName, req.ContentType)
	if err != nil {
		respondError(c, h.log, err, "Failed to generate upload URL.")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmUpload handles POST /admin/courses/:courseId/materials
func (h *MaterialHandler) ConfirmUpload(c *gin.Context) {
	var req ConfirmMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	m, err := h.materialService.ConfirmUpload(c.Request.Context(), c.Param("courseId"), service.MaterialUpload{
		ObjectKey:   req.ObjectKey,
		LessonID:    req.LessonID,
		Title:       req.Title,
		Description: req.Description,
		Type:        domain.MaterialType(req.Type),
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to save material.")
		return
	}
	c.JSON(http.StatusCreated, m)
}

// ListMaterials handles GET /courses/:courseId/materials
func (h *MaterialHandler) ListMaterials(c *gin.Context) {
	views, err := h.materialService.ListMaterials(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		respondError(c, h.log, err, "Failed to list materials.")
		return
	}
	c.JSON(http.StatusOK, views)
}

// DeleteMaterial handles DELETE /admin/materials/:materialId
func (h *MaterialHandler) DeleteMaterial(c *gin.Context) {
	if err := h.materialService.DeleteMaterial(c.Request.Context(), c.Param("materialId")); err != nil {
		respondError(c, h.log, err, "Failed to delete material.")
		return
	}
	c.Status(http.StatusNoContent)
}
