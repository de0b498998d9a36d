package assistant

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"threadkeeper/internal/config"
	models "threadkeeper/internal/domain/models/assistant"
	svc "threadkeeper/internal/domain/services/assistant"
)

// Package assembles one outbound unit: the text part first, then one image part
// per reference in the order given. It has no state and performs no I/O.
func Package(text string, imageRefs []string) models.ContentUnit {
	parts := make([]models.Part, 0, 1+len(imageRefs))
	parts = append(parts, models.TextPart(text))
	for _, ref := range imageRefs {
		parts = append(parts, models.ImageFilePart(ref))
	}
	return models.ContentUnit{Parts: parts}
}

// Preview flattens a unit the way the same message will read once it comes back
// from history, so optimistic entries match their synchronized form.
func Preview(unit models.ContentUnit) string {
	return models.Message{Parts: unit.Parts}.Flatten()
}

// ValidateTurnRequest rejects turns the packager must never see: empty text,
// oversized text, too many or blank image references.
func ValidateTurnRequest(req *svc.SendTurnRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Text,
			validation.Required,
			validation.Length(1, config.MaxTurnTextLength),
		),
		validation.Field(&req.ImageFileIDs,
			validation.Length(0, config.MaxImagesPerTurn),
			validation.Each(validation.Required),
		),
	)
}
