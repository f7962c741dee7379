package channel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kirillkom/docflow/internal/core/ports"
)

// settleDelay gives the writing process time to finish before the file is
// read. Copies into a watched directory are not atomic.
const settleDelay = 2 * time.Second

// DirWatcher ingests files as they appear in the watched directories using
// inotify events.
type DirWatcher struct {
	dirs     []string
	ingestor ports.DocumentIngestor
	logger   *slog.Logger
}

func NewDirWatcher(dirs []string, ingestor ports.DocumentIngestor, logger *slog.Logger) (*DirWatcher, error) {
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, processedSubdir), 0o755); err != nil {
			return nil, fmt.Errorf("prepare watch dir %s: %w", dir, err)
		}
	}
	return &DirWatcher{dirs: dirs, ingestor: ingestor, logger: logger}, nil
}

func (w *DirWatcher) Name() string { return ChannelFileWatcher }

func (w *DirWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if strings.Contains(event.Name, string(filepath.Separator)+processedSubdir+string(filepath.Separator)) {
				continue
			}
			w.handle(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fs_watcher_error", "error", err)
		}
	}
}

func (w *DirWatcher) handle(ctx context.Context, path string) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(settleDelay):
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	if err := ingestLocalFile(ctx, w.ingestor, path, w.Name()); err != nil {
		w.logger.Error("watched_file_ingest_failed", "file", path, "error", err)
		return
	}
	w.logger.Info("watched_file_ingested", "file", path)
}
