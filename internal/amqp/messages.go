package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ImportJobMessage asks the worker to run the import pipeline on a file
// already on shared storage. It carries only the job coordinates; the
// worker reads the file itself.
type ImportJobMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	Owner     string    `json:"owner"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// NewImportJobMessage creates a job message with a fresh ID.
func NewImportJobMessage(owner, path string) *ImportJobMessage {
	return &ImportJobMessage{
		JobID:     uuid.New(),
		Owner:     owner,
		Path:      path,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ImportJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func ImportJobMessageFromJSON(data []byte) (*ImportJobMessage, error) {
	var msg ImportJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
