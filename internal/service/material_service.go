package service

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/logger"
	"alcyxob/course-app/internal/repository"
	"alcyxob/course-app/internal/storage"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UploadURLResponse carries the presigned URL and the key to confirm with.
type UploadURLResponse struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectKey string    `json:"objectKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MaterialUpload is the metadata an admin confirms after uploading.
type MaterialUpload struct {
	ObjectKey   string
	LessonID    *string
	Title       string
	Description string
	Type        domain.MaterialType
}

// MaterialView is a material with a temporary download URL.
type MaterialView struct {
	domain.Material
	DownloadURL string `json:"downloadUrl"`
}

type MaterialService interface {
	RequestUploadURL(ctx context.Context, courseID, fileName, contentType string) (*UploadURLResponse, error)
	ConfirmUpload(ctx context.Context, courseID string, upload MaterialUpload) (*domain.Material, error)
	ListMaterials(ctx context.Context, courseID string) ([]MaterialView, error)
	DeleteMaterial(ctx context.Context, materialID string) error
}

type materialService struct {
	materialRepo repository.MaterialRepository
	content      ContentService
	fileStorage  storage.FileStorage
	presignTTL   time.Duration
	log          *logger.Logger
	now          func() time.Time
}

func NewMaterialService(materialRepo repository.MaterialRepository, content ContentService, fileStorage storage.FileStorage, presignTTL time.Duration, log *logger.Logger) MaterialService {
	if presignTTL <= 0 {
		presignTTL = storage.DefaultPresignedURLExpiry
	}
	return &materialService{
		materialRepo: materialRepo,
		content:      content,
		fileStorage:  fileStorage,
		presignTTL:   presignTTL,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func materialPrefix(courseID string) string {
	return path.Join("materials", courseID) + "/"
}

// RequestUploadURL presigns a PUT for materials/<courseId>/<uuid><ext>.
func (s *materialService) RequestUploadURL(ctx context.Context, courseID, fileName, contentType string) (*UploadURLResponse, error) {
	if contentType == "" {
		return nil, fmt.Errorf("%w: contentType is required", ErrValidationFailed)
	}
	if _, err := s.content.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}

	ext := strings.ToLower(path.Ext(fileName))
	objectKey := materialPrefix(courseID) + uuid.NewString() + ext

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, s.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("generate upload url: %w", err)
	}
	return &UploadURLResponse{
		UploadURL: uploadURL,
		ObjectKey: objectKey,
		ExpiresAt: s.now().Add(s.presignTTL),
	}, nil
}

// ConfirmUpload records the material once the object exists in storage.
func (s *materialService) ConfirmUpload(ctx context.Context, courseID string, upload MaterialUpload) (*domain.Material, error) {
	if upload.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidationFailed)
	}
	if !strings.HasPrefix(upload.ObjectKey, materialPrefix(courseID)) {
		return nil, fmt.Errorf("%w: object key does not belong to course %s", ErrValidationFailed, courseID)
	}
	switch upload.Type {
	case "":
		upload.Type = domain.MaterialOther
	case domain.MaterialPDF, domain.MaterialSlide, domain.MaterialDocument, domain.MaterialOther:
	default:
		return nil, fmt.Errorf("%w: unknown material type %q", ErrValidationFailed, upload.Type)
	}
	if _, err := s.content.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	if upload.LessonID != nil && *upload.LessonID != "" {
		lesson, err := s.content.GetLesson(ctx, *upload.LessonID)
		if err != nil {
			return nil, err
		}
		if lesson.CourseID != courseID {
			return nil, ErrCourseMismatch
		}
	} else {
		upload.LessonID = nil
	}

	meta, err := s.fileStorage.StatObject(ctx, upload.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrUploadMissing
		}
		return nil, err
	}

	m := &domain.Material{
		ID:          uuid.NewString(),
		CourseID:    courseID,
		LessonID:    upload.LessonID,
		Title:       upload.Title,
		Description: upload.Description,
		Type:        upload.Type,
		ObjectKey:   upload.ObjectKey,
		FileSize:    meta.Size,
		MimeType:    meta.ContentType,
		CreatedAt:   s.now(),
	}
	if err := s.materialRepo.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: object key already confirmed", ErrValidationFailed)
		}
		return nil, err
	}
	s.log.Info("material created", "materialId", m.ID, "courseId", courseID, "objectKey", m.ObjectKey)
	return m, nil
}

func (s *materialService) ListMaterials(ctx context.Context, courseID string) ([]MaterialView, error) {
	if _, err := s.content.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	materials, err := s.materialRepo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	views := make([]MaterialView, 0, len(materials))
	for _, m := range materials {
		url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, m.ObjectKey, s.presignTTL)
		if err != nil {
			return nil, fmt.Errorf("generate download url for %s: %w", m.ID, err)
		}
		views = append(views, MaterialView{Material: m, DownloadURL: url})
	}
	return views, nil
}

// DeleteMaterial removes the row first, then the object. A failed object
// delete is logged and leaves an orphan object rather than a dangling row.
func (s *materialService) DeleteMaterial(ctx context.Context, materialID string) error {
	m, err := s.materialRepo.GetByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMaterialNotFound
		}
		return err
	}
	if err := s.materialRepo.Delete(ctx, materialID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMaterialNotFound
		}
		return err
	}
	if err := s.fileStorage.DeleteObject(ctx, m.ObjectKey); err != nil {
		s.log.Warn("material object delete failed", "materialId", materialID, "objectKey", m.ObjectKey, "error", err)
	}
	return nil
}
