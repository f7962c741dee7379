package channel

import (
	"context"
	"log/slog"
	"sync"
)

// Canonical intake channel names recorded on every document.
const (
	ChannelManualUpload = "MANUAL_UPLOAD"
	ChannelUploadFolder = "UPLOAD_FOLDER"
	ChannelFileWatcher  = "FILE_WATCHER"
	ChannelEmail        = "EMAIL"
	ChannelSharePoint   = "SHAREPOINT"
)

// Worker is one long-running intake source. Run blocks until the context is
// cancelled or the source fails permanently.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

// Manager runs all configured workers and waits for them to finish. A
// failing worker is logged and does not stop the others.
type Manager struct {
	workers []Worker
	logger  *slog.Logger
}

func NewManager(logger *slog.Logger, workers ...Worker) *Manager {
	return &Manager{workers: workers, logger: logger}
}

func (m *Manager) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range m.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			m.logger.Info("intake_channel_started", "channel", w.Name())
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error("intake_channel_stopped", "channel", w.Name(), "error", err)
				return
			}
			m.logger.Info("intake_channel_stopped", "channel", w.Name())
		}(w)
	}
	wg.Wait()
}
