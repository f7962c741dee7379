package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docflow/internal/core/domain"
	"github.com/kirillkom/docflow/internal/core/ports"
	"github.com/kirillkom/docflow/internal/filetype"
)

// DefaultChannel is used when an intake item does not name its source.
const DefaultChannel = "UNKNOWN"

// Dispatcher sequences one document through type resolution, persistence,
// extraction and classification. It is the sole caller of the resolver,
// extractor and classifier; data flows strictly downstream.
type Dispatcher struct {
	repo       ports.DocumentRepository
	storage    ports.ObjectStorage
	resolver   ports.TypeResolver
	extractor  ports.TextExtractor
	classifier ports.DepartmentClassifier

	stats *domain.Statistics
}

func NewDispatcher(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	resolver ports.TypeResolver,
	extractor ports.TextExtractor,
	classifier ports.DepartmentClassifier,
) *Dispatcher {
	return &Dispatcher{
		repo:       repo,
		storage:    storage,
		resolver:   resolver,
		extractor:  extractor,
		classifier: classifier,
		stats:      domain.NewStatistics(),
	}
}

// ProcessOne runs a single document to one of its terminal states. It never
// returns a non-terminal status and records exactly one statistics increment
// per call.
func (d *Dispatcher) ProcessOne(ctx context.Context, item domain.IntakeItem) (result domain.ProcessingResult) {
	result = domain.ProcessingResult{Status: domain.StatusProcessing}

	channel := item.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	fileType := string(filetype.Unknown)

	defer func() {
		if r := recover(); r != nil && !result.Status.IsTerminal() {
			result = d.fail(ctx, result, channel, fileType, fmt.Errorf("processing panic: %v", r))
		}
	}()

	body, err := d.readStaged(ctx, item.StorageKey)
	if err != nil {
		return d.fail(ctx, result, channel, fileType, err)
	}

	tag, mediaType := d.resolver.Resolve(body, item.Filename)
	fileType = string(tag)
	result.FileType = fileType
	result.Steps = append(result.Steps, fmt.Sprintf("Detected file type: %s (%s)", tag, mediaType))

	if !filetype.IsSupported(tag) {
		result.Status = domain.StatusUnsupported
		result.Error = fmt.Sprintf("file type %s is not supported", tag)
		result.Steps = append(result.Steps, result.Error)
		d.stats.Record(channel, fileType, domain.DepartmentUnknown, false)
		return result
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:           uuid.NewString(),
		Filename:     item.Filename,
		OriginalPath: item.StorageKey,
		FileType:     fileType,
		MimeType:     mediaType,
		Channel:      channel,
		Metadata:     metadataFromMap(item.Metadata),
		Status:       domain.StatusProcessing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := d.repo.Create(ctx, doc); err != nil {
		return d.fail(ctx, result, channel, fileType, fmt.Errorf("create document record: %w", err))
	}
	result.DocumentID = doc.ID
	result.Steps = append(result.Steps, fmt.Sprintf("Created document record: %s", doc.ID))

	outcome, err := d.extractor.Extract(ctx, tag, body)
	if err != nil {
		result.Status = domain.StatusExtractionFailed
		result.Error = fmt.Sprintf("text extraction failed: %v", err)
		result.Steps = append(result.Steps, result.Error)
		if updErr := d.repo.UpdateStatus(ctx, doc.ID, domain.StatusExtractionFailed, result.Error); updErr != nil {
			return d.fail(ctx, result, channel, fileType, fmt.Errorf("persist extraction failure: %w", updErr))
		}
		d.stats.Record(channel, fileType, domain.DepartmentUnknown, false)
		return result
	}
	result.Steps = append(result.Steps, fmt.Sprintf("Extracted %d characters", len(outcome.Text)))
	if outcome.Notes.Degraded() {
		result.Steps = append(result.Steps, fmt.Sprintf("Extraction warning: %s", outcome.Notes.FailureReason))
	}

	verdict := d.classifier.Classify(outcome.Text, item.Filename, classificationMeta(item.Metadata, fileType))
	result.Steps = append(result.Steps, fmt.Sprintf("Classified as %s (confidence: %.2f)", verdict.Department, verdict.Confidence))

	doc.ExtractedText = outcome.Text
	doc.Department = verdict.Department
	doc.Status = domain.StatusProcessed
	doc.ProcessedAt = time.Now().UTC()
	doc.Metadata = mergeFinalMetadata(item.Metadata, outcome.Notes, verdict, doc.ProcessedAt)
	if err := d.repo.Finalize(ctx, doc); err != nil {
		return d.fail(ctx, result, channel, fileType, fmt.Errorf("finalize document record: %w", err))
	}

	result.Status = domain.StatusProcessed
	result.Department = verdict.Department
	result.Steps = append(result.Steps, "Processing completed successfully")
	d.stats.Record(channel, fileType, verdict.Department, true)
	return result
}

// ProcessBatch preserves input order and never short-circuits: a failing
// document does not stop subsequent documents.
func (d *Dispatcher) ProcessBatch(ctx context.Context, items []domain.IntakeItem) []domain.ProcessingResult {
	results := make([]domain.ProcessingResult, 0, len(items))
	for _, item := range items {
		results = append(results, d.ProcessOne(ctx, item))
	}
	return results
}

func (d *Dispatcher) Statistics() domain.StatisticsSnapshot {
	return d.stats.Snapshot()
}

func (d *Dispatcher) ResetStatistics() {
	d.stats.Reset()
}

func (d *Dispatcher) readStaged(ctx context.Context, key string) ([]byte, error) {
	reader, err := d.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	defer reader.Close()

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read staged file: %w", err)
	}
	return body, nil
}

// fail finalizes a generic failure. The persisted record is updated best
// effort: a secondary persistence fault is logged and swallowed so it never
// masks the primary fault.
func (d *Dispatcher) fail(ctx context.Context, result domain.ProcessingResult, channel, fileType string, err error) domain.ProcessingResult {
	result.Status = domain.StatusFailed
	result.Error = fmt.Sprintf("processing failed: %v", err)
	result.Steps = append(result.Steps, fmt.Sprintf("Error: %v", err))

	if result.DocumentID != "" {
		if updErr := d.repo.UpdateStatus(ctx, result.DocumentID, domain.StatusFailed, err.Error()); updErr != nil {
			slog.Warn("failure_status_not_persisted",
				"document_id", result.DocumentID,
				"primary_error", err,
				"update_error", updErr,
			)
		}
	}

	d.stats.Record(channel, fileType, domain.DepartmentUnknown, false)
	return result
}

// metadataFromMap copies channel metadata into an ordered map with sorted
// keys so the persisted encoding is stable.
func metadataFromMap(meta map[string]string) domain.Metadata {
	out := domain.NewMetadata()
	for _, key := range sortedKeys(meta) {
		out.Set(key, meta[key])
	}
	return out
}

// classificationMeta merges the resolved type tag into the caller-supplied
// metadata. The resolver output wins over a caller-supplied "file_type" key:
// type-based scoring bonuses must follow what the content actually is, not
// what the channel claims.
func classificationMeta(meta map[string]string, fileType string) map[string]string {
	merged := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		merged[k] = v
	}
	merged["file_type"] = fileType
	return merged
}

func mergeFinalMetadata(channelMeta map[string]string, notes domain.ExtractionNotes, verdict domain.ClassificationVerdict, processedAt time.Time) domain.Metadata {
	merged := domain.NewMetadata()
	for _, key := range sortedKeys(channelMeta) {
		merged.Set(key, channelMeta[key])
	}
	merged.Set("extraction_notes", notes)
	merged.Set("classification", verdict)
	merged.Set("processing_timestamp", processedAt.Format(time.RFC3339))
	return merged
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
