package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docflow/internal/core/domain"
	"github.com/kirillkom/docflow/internal/core/ports"
)

// IngestUseCase stages an incoming file and hands it off to the processing
// queue. It does not create a document record; that is the dispatcher's job
// once the file type is known to be supported.
type IngestUseCase struct {
	storage ports.ObjectStorage
	queue   ports.IntakeQueue
}

func NewIngestUseCase(storage ports.ObjectStorage, queue ports.IntakeQueue) *IngestUseCase {
	return &IngestUseCase{
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestUseCase) Upload(
	ctx context.Context,
	filename, channel string,
	metadata map[string]string,
	body io.Reader,
) (domain.IntakeItem, error) {
	storageKey := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return domain.IntakeItem{}, fmt.Errorf("save to object storage: %w", err)
	}

	item := domain.IntakeItem{
		StorageKey: storageKey,
		Filename:   filename,
		Channel:    channel,
		Metadata:   metadata,
		ReceivedAt: time.Now().UTC(),
	}

	if err := uc.queue.PublishIntake(ctx, item); err != nil {
		return domain.IntakeItem{}, fmt.Errorf("publish intake event: %w", err)
	}

	return item, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
