package openai

import (
	"bytes"
	"context"

	"github.com/openai/openai-go"

	models "threadkeeper/internal/domain/models/assistant"
)

// UploadFile stores an image with the given purpose.
func (b *Backend) UploadFile(ctx context.Context, data []byte, mimeType, filename, purpose string) (*models.StoredFile, error) {
	obj, err := b.client.Files.New(ctx, openai.FileNewParams{
		File:    openai.File(bytes.NewReader(data), filename, mimeType),
		Purpose: openai.FilePurpose(purpose),
	})
	if err != nil {
		return nil, translateError("upload file", err)
	}
	out := fromFile(*obj)
	return &out, nil
}

// ListFiles walks every page of the registry for purpose.
func (b *Backend) ListFiles(ctx context.Context, purpose string) ([]models.StoredFile, error) {
	params := openai.FileListParams{}
	if purpose != "" {
		params.Purpose = openai.String(purpose)
	}

	var files []models.StoredFile
	err := b.read(ctx, "list files", func(ctx context.Context) error {
		files = files[:0]
		iter := b.client.Files.ListAutoPaging(ctx, params)
		for iter.Next() {
			files = append(files, fromFile(iter.Current()))
		}
		return iter.Err()
	})
	if err != nil {
		return nil, translateError("list files", err)
	}
	return files, nil
}

// DeleteFile removes a file from the registry.
func (b *Backend) DeleteFile(ctx context.Context, fileID string) error {
	if _, err := b.client.Files.Delete(ctx, fileID); err != nil {
		return translateError("delete file", err)
	}
	return nil
}

func fromFile(f openai.FileObject) models.StoredFile {
	return models.StoredFile{
		ID:        f.ID,
		Filename:  f.Filename,
		Bytes:     f.Bytes,
		Purpose:   string(f.Purpose),
		CreatedAt: unixTime(f.CreatedAt),
	}
}
