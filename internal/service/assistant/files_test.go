package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"threadkeeper/internal/domain"
	models "threadkeeper/internal/domain/models/assistant"
	svc "threadkeeper/internal/domain/services/assistant"
)

func TestSanitizeDisplayName(t *testing.T) {
	at := time.Date(2026, 3, 4, 15, 6, 7, 0, time.UTC)

	tests := []struct {
		name        string
		displayName string
		mimeType    string
		want        string
	}{
		{"simple", "cat.png", "image/png", "cat_20260304-150607.png"},
		{"whitespace runs", "my  holiday\tphoto.jpg", "image/jpeg", "my_holiday_photo_20260304-150607.jpg"},
		{"extension follows mime", "scan.png", "image/jpeg", "scan_20260304-150607.jpg"},
		{"directories dropped", "../../etc/passwd.gif", "image/gif", "passwd_20260304-150607.gif"},
		{"blank name", "   ", "image/webp", "image_20260304-150607.webp"},
		{"unknown mime keeps extension", "pic.bmp", "image/bmp", "pic_20260304-150607.bmp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeDisplayName(tt.displayName, tt.mimeType, at); got != tt.want {
				t.Errorf("SanitizeDisplayName(%q) = %q, want %q", tt.displayName, got, tt.want)
			}
		})
	}
}

func TestFileRegistry_Upload(t *testing.T) {
	backend := newFakeBackend()
	registry := NewFileRegistry(backend, testLogger())
	registry.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	file, err := registry.Upload(context.Background(), &svc.UploadFileRequest{
		Data:        []byte("jpeg-bytes"),
		MIMEType:    "image/jpeg",
		DisplayName: "front door.jpg",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if backend.uploadedName != "front_door_20260102-030405.jpg" {
		t.Errorf("uploaded as %q", backend.uploadedName)
	}
	if file.Purpose != models.FilePurposeVision {
		t.Errorf("purpose = %q", file.Purpose)
	}
}

func TestFileRegistry_UploadValidation(t *testing.T) {
	tests := []struct {
		name string
		req  svc.UploadFileRequest
	}{
		{"no data", svc.UploadFileRequest{MIMEType: "image/png", DisplayName: "a.png"}},
		{"unsupported type", svc.UploadFileRequest{Data: []byte("x"), MIMEType: "application/pdf", DisplayName: "a.pdf"}},
		{"no name", svc.UploadFileRequest{Data: []byte("x"), MIMEType: "image/png"}},
		{"name too long", svc.UploadFileRequest{Data: []byte("x"), MIMEType: "image/png", DisplayName: strings.Repeat("n", 300)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			_, err := NewFileRegistry(backend, testLogger()).Upload(context.Background(), &tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if backend.count("upload_file") != 0 {
				t.Error("invalid upload reached the backend")
			}
		})
	}
}

func TestFileRegistry_ListNewestFirst(t *testing.T) {
	backend := newFakeBackend()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	backend.files = []models.StoredFile{
		{ID: "file_mid", CreatedAt: base.Add(time.Hour)},
		{ID: "file_old", CreatedAt: base},
		{ID: "file_new", CreatedAt: base.Add(2 * time.Hour)},
	}

	files, err := NewFileRegistry(backend, testLogger()).List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	got := []string{files[0].ID, files[1].ID, files[2].ID}
	want := []string{"file_new", "file_mid", "file_old"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestFileRegistry_Delete(t *testing.T) {
	backend := newFakeBackend()
	registry := NewFileRegistry(backend, testLogger())

	if err := registry.Delete(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank id: expected ErrValidation, got %v", err)
	}

	backend.deleteErr = &domain.NotFoundError{Message: "no such file"}
	if err := registry.Delete(context.Background(), "file_gone"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
