package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/docflow/internal/core/domain"
)

const textPreviewLen = 200

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	original_path TEXT NOT NULL,
	file_type TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	channel TEXT NOT NULL,
	department TEXT,
	extracted_text TEXT,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	status TEXT NOT NULL,
	error_message TEXT,
	processed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_department ON documents(department);
CREATE INDEX IF NOT EXISTS idx_documents_processed_at ON documents(processed_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	metaJSON, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, filename, original_path, file_type, mime_type, channel, department, extracted_text, metadata, status, error_message, processed_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		doc.ID, doc.Filename, doc.OriginalPath, doc.FileType, doc.MimeType, doc.Channel,
		doc.Department, doc.ExtractedText, metaJSON, string(doc.Status), doc.Error,
		nullableTime(doc.ProcessedAt), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, original_path, file_type, mime_type, channel,
	COALESCE(department, ''), COALESCE(extracted_text, ''), metadata,
	status, COALESCE(error_message, ''), processed_at, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var metaRaw []byte
	var status string
	var processedAt sql.NullTime

	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.OriginalPath, &doc.FileType, &doc.MimeType, &doc.Channel,
		&doc.Department, &doc.ExtractedText, &metaRaw,
		&status, &doc.Error, &processedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("select document: %w", err)
	}

	doc.Status = domain.DocumentStatus(status)
	if processedAt.Valid {
		doc.ProcessedAt = processedAt.Time
	}
	doc.Metadata = domain.NewMetadata()
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("status rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Finalize(ctx context.Context, doc *domain.Document) error {
	metaJSON, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET department = $2, extracted_text = $3, metadata = $4, status = $5, error_message = '', processed_at = $6, updated_at = $7
WHERE id = $1
`, doc.ID, doc.Department, doc.ExtractedText, metaJSON, string(doc.Status),
		nullableTime(doc.ProcessedAt), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finalize document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Search(ctx context.Context, filter domain.SearchFilter) ([]domain.DocumentSummary, error) {
	query := strings.Builder{}
	query.WriteString(`
SELECT id, filename, file_type, channel, COALESCE(department, ''), status, processed_at,
	LEFT(COALESCE(extracted_text, ''), ` + fmt.Sprint(textPreviewLen) + `)
FROM documents
WHERE 1=1`)

	args := make([]any, 0, 5)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Text != "" {
		query.WriteString(" AND extracted_text ILIKE " + arg("%"+filter.Text+"%"))
	}
	if filter.Department != "" {
		query.WriteString(" AND department = " + arg(filter.Department))
	}
	if filter.FileType != "" {
		query.WriteString(" AND file_type = " + arg(filter.FileType))
	}
	if filter.Channel != "" {
		query.WriteString(" AND channel = " + arg(filter.Channel))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query.WriteString(" ORDER BY processed_at DESC NULLS LAST, created_at DESC LIMIT " + arg(limit))

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentSummary, 0, limit)
	for rows.Next() {
		var s domain.DocumentSummary
		var status string
		var processedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.Filename, &s.FileType, &s.Channel, &s.Department, &status, &processedAt, &s.TextPreview); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		s.Status = domain.DocumentStatus(status)
		if processedAt.Valid {
			s.ProcessedAt = processedAt.Time
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) Stats(ctx context.Context) (domain.StatisticsSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT channel, file_type, COALESCE(department, ''), status, COUNT(*)
FROM documents
GROUP BY channel, file_type, department, status
`)
	if err != nil {
		return domain.StatisticsSnapshot{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	snap := domain.StatisticsSnapshot{
		ByChannel:    make(map[string]int64),
		ByType:       make(map[string]int64),
		ByDepartment: make(map[string]int64),
	}
	for rows.Next() {
		var channel, fileType, department, status string
		var count int64
		if err := rows.Scan(&channel, &fileType, &department, &status, &count); err != nil {
			return domain.StatisticsSnapshot{}, fmt.Errorf("scan stats row: %w", err)
		}

		if !domain.DocumentStatus(status).IsTerminal() {
			continue
		}
		snap.TotalProcessed += count
		if domain.DocumentStatus(status) == domain.StatusProcessed {
			snap.Successful += count
		} else {
			snap.Failed += count
		}
		snap.ByChannel[channel] += count
		snap.ByType[fileType] += count
		if department == "" {
			department = domain.DepartmentUnknown
		}
		snap.ByDepartment[department] += count
	}
	if err := rows.Err(); err != nil {
		return domain.StatisticsSnapshot{}, fmt.Errorf("iterate stats rows: %w", err)
	}
	return snap, nil
}

func marshalMetadata(meta domain.Metadata) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(meta)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
