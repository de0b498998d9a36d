package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"threadkeeper/internal/config"
	models "threadkeeper/internal/domain/models/assistant"
	svc "threadkeeper/internal/domain/services/assistant"
	"threadkeeper/internal/httputil"
	"threadkeeper/internal/imageprep"
)

// uploadField is the multipart field carrying the image.
const uploadField = "file"

// FileHandler serves the remote file registry.
type FileHandler struct {
	fileService svc.FileService
	logger      *slog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileService svc.FileService, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		logger:      logger,
	}
}

// UploadFile normalizes and uploads one image
// POST /api/files (multipart: file, optional display_name)
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	// multipart overhead on top of the image itself
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes+(1<<20))

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, "image exceeds upload limit")
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("multipart field %q is required", uploadField))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, config.MaxUploadBytes+1))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(raw) > config.MaxUploadBytes {
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, "image exceeds upload limit")
		return
	}

	data, format, err := imageprep.Normalize(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, imageprep.ErrUnsupportedImage) {
			httputil.RespondError(w, http.StatusUnsupportedMediaType, "upload is not a PNG, JPEG, GIF or WebP image")
			return
		}
		if errors.Is(err, imageprep.ErrImageTooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	displayName := r.FormValue("display_name")
	if displayName == "" {
		displayName = header.Filename
	}

	stored, err := h.fileService.Upload(r.Context(), &svc.UploadFileRequest{
		Data:        data,
		MIMEType:    imageprep.OutputMIMEType,
		DisplayName: displayName,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("image uploaded",
		"file_id", stored.ID,
		"source_format", format,
		"source_bytes", len(raw),
		"bytes", stored.Bytes,
	)
	httputil.RespondJSON(w, http.StatusCreated, stored)
}

// ListFiles lists uploaded images, newest first
// GET /api/files
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.fileService.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if files == nil {
		files = []models.StoredFile{}
	}

	httputil.RespondJSON(w, http.StatusOK, files)
}

// DeleteFile removes an image from the registry
// DELETE /api/files/{id}
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := PathParam(w, r, "id", "File ID")
	if !ok {
		return
	}

	if err := h.fileService.Delete(r.Context(), fileID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
