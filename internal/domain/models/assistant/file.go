package assistant

import "time"

// FilePurposeVision is the only purpose this system uploads with.
const FilePurposeVision = "vision"

// StoredFile is an entry of the process-wide remote file registry.
// Deleting a file does not retract references already embedded in sent messages.
type StoredFile struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Bytes     int64     `json:"bytes"`
	Purpose   string    `json:"purpose"`
	CreatedAt time.Time `json:"created_at"`
}
