package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"threadkeeper/internal/config"
	"threadkeeper/internal/domain"
	models "threadkeeper/internal/domain/models/assistant"
	svc "threadkeeper/internal/domain/services/assistant"
)

// uploadTimestampLayout is the coarse suffix that keeps display names unique.
const uploadTimestampLayout = "20060102-150405"

// mimeExtensions lists the image types accepted for upload.
var mimeExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// FileRegistry is a thin pass-through over the backend file store.
type FileRegistry struct {
	backend svc.Backend
	now     func() time.Time
	logger  *slog.Logger
}

// NewFileRegistry creates a file registry browser.
func NewFileRegistry(backend svc.Backend, logger *slog.Logger) *FileRegistry {
	return &FileRegistry{
		backend: backend,
		now:     time.Now,
		logger:  logger,
	}
}

// Upload stores an image for vision use and returns the registry entry.
func (f *FileRegistry) Upload(ctx context.Context, req *svc.UploadFileRequest) (*models.StoredFile, error) {
	if err := validateUpload(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	name := SanitizeDisplayName(req.DisplayName, req.MIMEType, f.now())
	file, err := f.backend.UploadFile(ctx, req.Data, req.MIMEType, name, models.FilePurposeVision)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}

	f.logger.Info("file uploaded",
		"file_id", file.ID,
		"filename", file.Filename,
		"bytes", len(req.Data),
	)
	return file, nil
}

// List returns vision files, newest first.
func (f *FileRegistry) List(ctx context.Context) ([]models.StoredFile, error) {
	files, err := f.backend.ListFiles(ctx, models.FilePurposeVision)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

// Delete removes a file. Messages that already reference it are not touched.
func (f *FileRegistry) Delete(ctx context.Context, fileID string) error {
	if strings.TrimSpace(fileID) == "" {
		return fmt.Errorf("%w: file id is required", domain.ErrValidation)
	}
	if err := f.backend.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	f.logger.Info("file deleted", "file_id", fileID)
	return nil
}

// SanitizeDisplayName turns a user supplied name into a registry filename:
// directories dropped, whitespace runs replaced by "_", a timestamp appended
// before the extension, and the extension matched to mimeType when it is known.
func SanitizeDisplayName(displayName, mimeType string, at time.Time) string {
	base := filepath.Base(strings.TrimSpace(displayName))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	stem = strings.Join(strings.Fields(stem), "_")
	if stem == "" {
		stem = "image"
	}
	if known, ok := mimeExtensions[mimeType]; ok {
		ext = known
	}

	return fmt.Sprintf("%s_%s%s", stem, at.Format(uploadTimestampLayout), ext)
}

func validateUpload(req *svc.UploadFileRequest) error {
	allowed := make([]interface{}, 0, len(mimeExtensions))
	for mime := range mimeExtensions {
		allowed = append(allowed, mime)
	}

	return validation.ValidateStruct(req,
		validation.Field(&req.Data,
			validation.Required,
			validation.Length(1, config.MaxUploadBytes),
		),
		validation.Field(&req.MIMEType, validation.Required, validation.In(allowed...)),
		validation.Field(&req.DisplayName,
			validation.Required,
			validation.Length(1, config.MaxDisplayNameLength),
		),
	)
}
