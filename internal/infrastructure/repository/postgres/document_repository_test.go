package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/docflow/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, filename, original_path").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDRestoresMetadataOrder(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "filename", "original_path", "file_type", "mime_type", "channel",
		"department", "extracted_text", "metadata",
		"status", "error_message", "processed_at", "created_at", "updated_at",
	}).AddRow(
		"doc-1", "invoice.pdf", "k1_invoice.pdf", "PDF", "application/pdf", "EMAIL",
		"PROCUREMENT", "invoice text", []byte(`{"sender":"a@b.c","processing_timestamp":"2026-08-29T10:00:00Z"}`),
		"PROCESSED", "", now, now, now,
	)

	mock.ExpectQuery("SELECT id, filename, original_path").
		WithArgs("doc-1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.Status != domain.StatusProcessed {
		t.Fatalf("unexpected status %s", doc.Status)
	}
	if doc.ProcessedAt.IsZero() {
		t.Fatalf("processed_at not scanned")
	}

	pair := doc.Metadata.Oldest()
	if pair == nil || pair.Key != "sender" {
		t.Fatalf("metadata order not preserved, first key %+v", pair)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusFailed), "boom", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusFailed, "boom")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFinalizeWritesTerminalState(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", "SAFETY", "incident text", sqlmock.AnyArg(), string(domain.StatusProcessed), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	meta := domain.NewMetadata()
	meta.Set("channel", "EMAIL")
	err := repo.Finalize(context.Background(), &domain.Document{
		ID:            "doc-1",
		Department:    "SAFETY",
		ExtractedText: "incident text",
		Metadata:      meta,
		Status:        domain.StatusProcessed,
		ProcessedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchBuildsFilteredQuery(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "filename", "file_type", "channel", "department", "status", "processed_at", "preview",
	}).AddRow("doc-1", "po.pdf", "PDF", "EMAIL", "PROCUREMENT", "PROCESSED", now, "purchase order")

	mock.ExpectQuery(`SELECT id, filename, file_type, channel.*AND extracted_text ILIKE \$1 AND department = \$2.*LIMIT \$3`).
		WithArgs("%order%", "PROCUREMENT", 10).
		WillReturnRows(rows)

	out, err := repo.Search(context.Background(), domain.SearchFilter{
		Text:       "order",
		Department: "PROCUREMENT",
		Limit:      10,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(out) != 1 || out[0].TextPreview != "purchase order" {
		t.Fatalf("unexpected results %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
