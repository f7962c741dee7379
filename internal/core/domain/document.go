package domain

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type DocumentStatus string

const (
	StatusProcessing       DocumentStatus = "PROCESSING"
	StatusProcessed        DocumentStatus = "PROCESSED"
	StatusUnsupported      DocumentStatus = "UNSUPPORTED"
	StatusExtractionFailed DocumentStatus = "EXTRACTION_FAILED"
	StatusFailed           DocumentStatus = "FAILED"
)

// IsTerminal reports whether a document in this status has finished the
// pipeline. PROCESSING is the only non-terminal status.
func (s DocumentStatus) IsTerminal() bool {
	return s != StatusProcessing
}

// Metadata is an insertion-ordered key/value map. Order matters because the
// dispatcher merges channel metadata, extraction notes and the classification
// verdict in a fixed sequence and persists them as one JSON object.
type Metadata = *orderedmap.OrderedMap[string, any]

func NewMetadata() Metadata {
	return orderedmap.New[string, any]()
}

type Document struct {
	ID            string         `json:"id"`
	Filename      string         `json:"filename"`
	OriginalPath  string         `json:"original_path"`
	FileType      string         `json:"file_type"`
	MimeType      string         `json:"mime_type"`
	Channel       string         `json:"channel"`
	Department    string         `json:"department,omitempty"`
	ExtractedText string         `json:"extracted_text,omitempty"`
	Metadata      Metadata       `json:"metadata,omitempty"`
	Status        DocumentStatus `json:"status"`
	Error         string         `json:"error,omitempty"`
	ProcessedAt   time.Time      `json:"processed_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// DocumentSummary is the search read model: full text is reduced to a short
// preview.
type DocumentSummary struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	FileType    string         `json:"file_type"`
	Channel     string         `json:"channel"`
	Department  string         `json:"department,omitempty"`
	Status      DocumentStatus `json:"status"`
	ProcessedAt time.Time      `json:"processed_at"`
	TextPreview string         `json:"text_preview,omitempty"`
}

type SearchFilter struct {
	Text       string
	Department string
	FileType   string
	Channel    string
	Limit      int
}

// IntakeItem is one staged file handed to the dispatcher by an intake
// channel. StorageKey points into object storage; Metadata carries whatever
// side information the channel collected.
type IntakeItem struct {
	StorageKey string            `json:"storage_key"`
	Filename   string            `json:"filename"`
	Channel    string            `json:"channel"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	ReceivedAt time.Time         `json:"received_at"`
}

// ProcessingResult is the per-document outcome returned by the dispatcher,
// with a human-readable step log suitable for direct display.
type ProcessingResult struct {
	Status     DocumentStatus `json:"status"`
	DocumentID string         `json:"document_id,omitempty"`
	FileType   string         `json:"file_type,omitempty"`
	Department string         `json:"department,omitempty"`
	Error      string         `json:"error,omitempty"`
	Steps      []string       `json:"steps"`
}
