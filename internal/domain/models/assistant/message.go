package assistant

import (
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Part types
const (
	PartTypeText      = "text"
	PartTypeImageFile = "image_file"
	PartTypeImageURL  = "image_url"
)

// ImagePlaceholder replaces every non-text part when a message is flattened for display.
const ImagePlaceholder = "[image]"

// Thread is a backend-held conversation. Threads are never deleted by this system,
// only superseded by a new one on reset.
type Thread struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Part is one atomic unit of message content.
type Part struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	FileID string `json:"file_id,omitempty"`
	URL    string `json:"url,omitempty"`
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

// ImageFilePart builds an image reference part for an uploaded file.
func ImageFilePart(fileID string) Part {
	return Part{Type: PartTypeImageFile, FileID: fileID}
}

// IsText reports whether the part carries text.
func (p Part) IsText() bool {
	return p.Type == PartTypeText
}

// Message is an immutable entry of a thread's remote log.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts"`
	CreatedAt time.Time `json:"created_at"`
}

// Flatten concatenates the message parts in order into a display string.
// Non-text parts become ImagePlaceholder.
func (m Message) Flatten() string {
	var b strings.Builder
	for _, part := range m.Parts {
		if part.IsText() {
			b.WriteString(part.Text)
			continue
		}
		b.WriteString(ImagePlaceholder)
	}
	return b.String()
}

// FlattenText concatenates only the text parts, skipping image references.
func (m Message) FlattenText() string {
	var b strings.Builder
	for _, part := range m.Parts {
		if part.IsText() {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// Entry is one element of the local conversation cache.
type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ListOrder is the sort direction for message listings.
type ListOrder string

const (
	OrderAsc  ListOrder = "asc"
	OrderDesc ListOrder = "desc"
)
