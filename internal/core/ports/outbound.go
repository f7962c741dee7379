package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docflow/internal/core/domain"
	"github.com/kirillkom/docflow/internal/filetype"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	// Finalize writes extracted text, department, merged metadata and the
	// terminal status in one update.
	Finalize(ctx context.Context, doc *domain.Document) error
	Search(ctx context.Context, filter domain.SearchFilter) ([]domain.DocumentSummary, error)
	// Stats aggregates stored documents by channel, file type and
	// department. It is the durable counterpart of the dispatcher's
	// in-memory counters.
	Stats(ctx context.Context) (domain.StatisticsSnapshot, error)
}

// ObjectStorage stores staged source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// IntakeQueue connects intake channels to the dispatcher.
type IntakeQueue interface {
	PublishIntake(ctx context.Context, item domain.IntakeItem) error
	SubscribeIntake(ctx context.Context, handler func(context.Context, domain.IntakeItem) error) error
}

// TypeResolver maps binary content and filename to a canonical type tag and
// a media type. It never fails.
type TypeResolver interface {
	Resolve(body []byte, filename string) (filetype.Tag, string)
}

// TextExtractor runs the type-specific extraction strategy. Degraded
// extraction is reported inside the outcome; an error means the extractor
// itself raised.
type TextExtractor interface {
	Extract(ctx context.Context, tag filetype.Tag, body []byte) (domain.ExtractionOutcome, error)
}

// DepartmentClassifier scores text, filename and side metadata against the
// known departments. It never fails.
type DepartmentClassifier interface {
	Classify(text, filename string, meta map[string]string) domain.ClassificationVerdict
}
