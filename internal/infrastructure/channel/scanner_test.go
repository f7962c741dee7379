package channel

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirillkom/docflow/internal/core/domain"
)

type ingestorFake struct {
	uploads []uploadCall
	err     error
}

type uploadCall struct {
	filename string
	channel  string
	metadata map[string]string
	body     string
}

func (f *ingestorFake) Upload(_ context.Context, filename, channelName string, metadata map[string]string, body io.Reader) (domain.IntakeItem, error) {
	if f.err != nil {
		return domain.IntakeItem{}, f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return domain.IntakeItem{}, err
	}
	f.uploads = append(f.uploads, uploadCall{
		filename: filename,
		channel:  channelName,
		metadata: metadata,
		body:     string(data),
	})
	return domain.IntakeItem{Filename: filename, Channel: channelName}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFolderScannerSweepIngestsAndMoves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "maintenance_log.csv")
	if err := os.WriteFile(path, []byte("asset,interval\n"), 0o644); err != nil {
		t.Fatalf("write drop file: %v", err)
	}

	ingestor := &ingestorFake{}
	scanner, err := NewFolderScanner(dir, time.Second, ingestor, testLogger())
	if err != nil {
		t.Fatalf("NewFolderScanner() error = %v", err)
	}

	scanner.sweep(context.Background())

	if len(ingestor.uploads) != 1 {
		t.Fatalf("expected one ingested file, got %d", len(ingestor.uploads))
	}
	up := ingestor.uploads[0]
	if up.filename != "maintenance_log.csv" || up.channel != ChannelUploadFolder {
		t.Fatalf("unexpected upload %+v", up)
	}
	if up.body != "asset,interval\n" {
		t.Fatalf("body altered: %q", up.body)
	}
	if up.metadata["source_path"] != path {
		t.Fatalf("missing source path metadata: %v", up.metadata)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("ingested file should have been moved out of the drop folder")
	}
	moved := filepath.Join(dir, processedSubdir, "maintenance_log.csv")
	if _, err := os.Stat(moved); err != nil {
		t.Fatalf("moved file missing: %v", err)
	}
}

func TestFolderScannerSweepSkipsDirsAndKeepsFileOnError(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write drop file: %v", err)
	}

	ingestor := &ingestorFake{err: os.ErrDeadlineExceeded}
	scanner, err := NewFolderScanner(dir, time.Second, ingestor, testLogger())
	if err != nil {
		t.Fatalf("NewFolderScanner() error = %v", err)
	}

	scanner.sweep(context.Background())

	if _, err := os.Stat(path); err != nil {
		t.Fatal("file must stay in the drop folder when ingestion fails")
	}
}
