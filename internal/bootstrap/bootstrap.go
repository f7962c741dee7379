package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/docflow/internal/classify"
	"github.com/kirillkom/docflow/internal/config"
	"github.com/kirillkom/docflow/internal/core/ports"
	"github.com/kirillkom/docflow/internal/core/usecase"
	"github.com/kirillkom/docflow/internal/extract"
	"github.com/kirillkom/docflow/internal/filetype"
	"github.com/kirillkom/docflow/internal/infrastructure/ocr"
	"github.com/kirillkom/docflow/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docflow/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docflow/internal/infrastructure/resilience"
	"github.com/kirillkom/docflow/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue      *nats.Queue
	Repo       ports.DocumentRepository
	Storage    ports.ObjectStorage
	IngestUC   ports.DocumentIngestor
	QueryUC    ports.DocumentReader
	Dispatcher ports.DocumentDispatcher

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	classifier, err := buildClassifier(cfg.ClassifyPolicyPath)
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}

	resolver := filetype.NewResolver()
	extractor := extract.NewPipeline(ocr.New(cfg.OCRLanguages))

	ingestUC := usecase.NewIngestUseCase(storage, queue)
	queryUC := usecase.NewQueryUseCase(repo)
	dispatcher := usecase.NewDispatcher(repo, storage, resolver, extractor, classifier)

	return &App{
		Config: cfg,

		Queue:      queue,
		Repo:       repo,
		Storage:    storage,
		IngestUC:   ingestUC,
		QueryUC:    queryUC,
		Dispatcher: dispatcher,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func buildClassifier(policyPath string) (*classify.Engine, error) {
	if policyPath == "" {
		return classify.NewEngine()
	}
	policy, err := classify.LoadPolicy(policyPath)
	if err != nil {
		return nil, err
	}
	return classify.NewEngineFromPolicy(policy)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
