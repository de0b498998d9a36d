package openai

import (
	"context"

	"github.com/openai/openai-go"

	models "threadkeeper/internal/domain/models/assistant"
)

// CreateThread starts an empty thread.
func (b *Backend) CreateThread(ctx context.Context) (*models.Thread, error) {
	thread, err := b.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return nil, translateError("create thread", err)
	}
	return &models.Thread{ID: thread.ID, CreatedAt: unixTime(thread.CreatedAt)}, nil
}

// CreateMessage appends a message. Not retried.
func (b *Backend) CreateMessage(ctx context.Context, threadID string, role models.Role, parts []models.Part) (string, error) {
	params := openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRole(role),
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfArrayOfContentParts: toContentParts(parts),
		},
	}

	msg, err := b.client.Beta.Threads.Messages.New(ctx, threadID, params)
	if err != nil {
		return "", translateError("create message", err)
	}
	return msg.ID, nil
}

// ListMessages returns one page of at most limit messages.
func (b *Backend) ListMessages(ctx context.Context, threadID string, limit int, order models.ListOrder) ([]models.Message, error) {
	params := openai.BetaThreadMessageListParams{
		Limit: openai.Int(int64(limit)),
		Order: openai.BetaThreadMessageListParamsOrderAsc,
	}
	if order == models.OrderDesc {
		params.Order = openai.BetaThreadMessageListParamsOrderDesc
	}

	var page []openai.Message
	err := b.read(ctx, "list messages", func(ctx context.Context) error {
		res, err := b.client.Beta.Threads.Messages.List(ctx, threadID, params)
		if err != nil {
			return err
		}
		page = res.Data
		return nil
	})
	if err != nil {
		return nil, translateError("list messages", err)
	}

	messages := make([]models.Message, 0, len(page))
	for _, m := range page {
		messages = append(messages, fromMessage(m))
	}
	return messages, nil
}

func toContentParts(parts []models.Part) []openai.MessageContentPartParamUnion {
	out := make([]openai.MessageContentPartParamUnion, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case models.PartTypeText:
			out = append(out, openai.MessageContentPartParamUnion{
				OfText: &openai.TextContentBlockParam{Text: part.Text},
			})
		case models.PartTypeImageFile:
			out = append(out, openai.MessageContentPartParamUnion{
				OfImageFile: &openai.ImageFileContentBlockParam{
					ImageFile: openai.ImageFileParam{FileID: part.FileID},
				},
			})
		case models.PartTypeImageURL:
			out = append(out, openai.MessageContentPartParamUnion{
				OfImageURL: &openai.ImageURLContentBlockParam{
					ImageURL: openai.ImageURLParam{URL: part.URL},
				},
			})
		}
	}
	return out
}

func fromMessage(m openai.Message) models.Message {
	parts := make([]models.Part, 0, len(m.Content))
	for _, c := range m.Content {
		switch c.Type {
		case "text":
			parts = append(parts, models.TextPart(c.Text.Value))
		case "image_file":
			parts = append(parts, models.ImageFilePart(c.ImageFile.FileID))
		case "image_url":
			parts = append(parts, models.Part{Type: models.PartTypeImageURL, URL: c.ImageURL.URL})
		default:
			// refusals and future block types render as opaque parts
			parts = append(parts, models.Part{Type: c.Type})
		}
	}

	return models.Message{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		Role:      models.Role(m.Role),
		Parts:     parts,
		CreatedAt: unixTime(m.CreatedAt),
	}
}
