package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docflow/internal/core/domain"
)

// DocumentIngestor stages an uploaded file and enqueues it for processing.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, channel string, metadata map[string]string, body io.Reader) (domain.IntakeItem, error)
}

// DocumentDispatcher sequences one document through resolution, extraction,
// classification and persistence, and aggregates outcome statistics.
type DocumentDispatcher interface {
	ProcessOne(ctx context.Context, item domain.IntakeItem) domain.ProcessingResult
	ProcessBatch(ctx context.Context, items []domain.IntakeItem) []domain.ProcessingResult
	Statistics() domain.StatisticsSnapshot
	ResetStatistics()
}

// DocumentReader is the inbound read model for processed documents.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	Search(ctx context.Context, filter domain.SearchFilter) ([]domain.DocumentSummary, error)
}
