package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/docflow/internal/bootstrap"
	"github.com/kirillkom/docflow/internal/config"
	"github.com/kirillkom/docflow/internal/core/domain"
	"github.com/kirillkom/docflow/internal/core/ports"
	"github.com/kirillkom/docflow/internal/infrastructure/channel"
	"github.com/kirillkom/docflow/internal/observability/logging"
	"github.com/kirillkom/docflow/internal/observability/metrics"
)

const serviceName = "docflow-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	go serveOps(cfg.WorkerMetricsPort, workerMetrics, app.Dispatcher, logger)

	channels, err := buildChannels(cfg, app, logger)
	if err != nil {
		log.Fatalf("intake channel setup error: %v", err)
	}
	manager := channel.NewManager(logger, channels...)
	go manager.Run(ctx)

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeIntake(ctx, func(handlerCtx context.Context, item domain.IntakeItem) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if !item.ReceivedAt.IsZero() {
			workerMetrics.ObserveQueueLag(serviceName, item.Channel, time.Since(item.ReceivedAt))
		}

		workerMetrics.StartDocument()
		start := time.Now()
		result := app.Dispatcher.ProcessOne(processCtx, item)
		workerMetrics.FinishDocument(serviceName, string(result.Status), result.FileType, result.Department, time.Since(start))

		logger.Info("document_processed",
			"document_id", result.DocumentID,
			"status", result.Status,
			"file_type", result.FileType,
			"department", result.Department,
			"error", result.Error,
		)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func buildChannels(cfg config.Config, app *bootstrap.App, logger *slog.Logger) ([]channel.Worker, error) {
	workers := make([]channel.Worker, 0, 4)

	scanner, err := channel.NewFolderScanner(
		cfg.UploadDir,
		time.Duration(cfg.PollIntervalSeconds)*time.Second,
		app.IngestUC,
		logger,
	)
	if err != nil {
		return nil, err
	}
	workers = append(workers, scanner)

	if len(cfg.WatchDirs) > 0 {
		watcher, err := channel.NewDirWatcher(cfg.WatchDirs, app.IngestUC, logger)
		if err != nil {
			return nil, err
		}
		workers = append(workers, watcher)
	}

	if cfg.IMAPEnabled {
		mailChannel, err := channel.NewMailChannel(channel.MailConfig{
			Address:      cfg.IMAPAddress,
			Username:     cfg.IMAPUsername,
			Password:     cfg.IMAPPassword,
			Mailbox:      cfg.IMAPMailbox,
			PollInterval: time.Duration(cfg.IMAPPollSeconds) * time.Second,
			LedgerPath:   cfg.IMAPLedgerPath,
		}, app.IngestUC, logger)
		if err != nil {
			return nil, err
		}
		workers = append(workers, mailChannel)
	}

	workers = append(workers, channel.NewSharePointChannel(logger))
	return workers, nil
}

// serveOps exposes prometheus metrics and the dispatcher's in-memory
// statistics on the ops port.
func serveOps(port string, workerMetrics *metrics.WorkerMetrics, dispatcher ports.DocumentDispatcher, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dispatcher.Statistics())
	})
	mux.HandleFunc("/stats/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		dispatcher.ResetStatistics()
		w.WriteHeader(http.StatusNoContent)
	})

	logger.Info("ops_listening", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error("ops_server_error", "error", err)
	}
}
