package channel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kirillkom/docflow/internal/core/ports"
)

const processedSubdir = "processed"

// FolderScanner polls a drop folder and ingests every regular file it finds.
// Ingested files are moved into a processed/ subdirectory so a restart never
// ingests them twice.
type FolderScanner struct {
	dir      string
	interval time.Duration
	ingestor ports.DocumentIngestor
	logger   *slog.Logger
}

func NewFolderScanner(dir string, interval time.Duration, ingestor ports.DocumentIngestor, logger *slog.Logger) (*FolderScanner, error) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if err := os.MkdirAll(filepath.Join(dir, processedSubdir), 0o755); err != nil {
		return nil, fmt.Errorf("prepare upload folder: %w", err)
	}
	return &FolderScanner{
		dir:      dir,
		interval: interval,
		ingestor: ingestor,
		logger:   logger,
	}, nil
}

func (s *FolderScanner) Name() string { return ChannelUploadFolder }

func (s *FolderScanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *FolderScanner) sweep(ctx context.Context) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error("upload_folder_read_failed", "dir", s.dir, "error", err)
		return
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() {
			continue
		}
		if err := ingestLocalFile(ctx, s.ingestor, filepath.Join(s.dir, entry.Name()), s.Name()); err != nil {
			s.logger.Error("upload_folder_ingest_failed", "file", entry.Name(), "error", err)
			continue
		}
		s.logger.Info("upload_folder_ingested", "file", entry.Name())
	}
}

// ingestLocalFile stages one on-disk file and moves it out of the drop
// folder afterwards.
func ingestLocalFile(ctx context.Context, ingestor ports.DocumentIngestor, path, channelName string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dropped file: %w", err)
	}

	meta := map[string]string{"source_path": path}
	_, err = ingestor.Upload(ctx, filepath.Base(path), channelName, meta, f)
	f.Close()
	if err != nil {
		return fmt.Errorf("ingest dropped file: %w", err)
	}

	dest := filepath.Join(filepath.Dir(path), processedSubdir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("move to processed: %w", err)
	}
	return nil
}
