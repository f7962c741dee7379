package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/docflow/internal/core/domain"
)

type queueFake struct {
	published []domain.IntakeItem
	err       error
}

func (f *queueFake) PublishIntake(_ context.Context, item domain.IntakeItem) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, item)
	return nil
}

func (f *queueFake) SubscribeIntake(context.Context, func(context.Context, domain.IntakeItem) error) error {
	return nil
}

func TestUploadStagesAndPublishes(t *testing.T) {
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewIngestUseCase(storage, queue)

	item, err := uc.Upload(
		context.Background(),
		"Safety Report 2026.pdf",
		"MANUAL_UPLOAD",
		map[string]string{"uploaded_by": "inspector"},
		strings.NewReader("%PDF-1.4"),
	)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if item.Channel != "MANUAL_UPLOAD" {
		t.Fatalf("unexpected channel %q", item.Channel)
	}
	if !strings.HasSuffix(item.StorageKey, "_Safety_Report_2026.pdf") {
		t.Fatalf("storage key should embed the sanitized filename, got %q", item.StorageKey)
	}
	if item.Filename != "Safety Report 2026.pdf" {
		t.Fatalf("original filename must be preserved, got %q", item.Filename)
	}
	if item.ReceivedAt.IsZero() {
		t.Fatal("received timestamp not set")
	}

	body, ok := storage.files[item.StorageKey]
	if !ok {
		t.Fatalf("staged file %q not saved", item.StorageKey)
	}
	if string(body) != "%PDF-1.4" {
		t.Fatalf("staged body altered: %q", body)
	}

	if len(queue.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(queue.published))
	}
	if queue.published[0].StorageKey != item.StorageKey {
		t.Fatal("published event does not reference the staged key")
	}
}

func TestUploadQueueFailure(t *testing.T) {
	uc := NewIngestUseCase(&storageFake{}, &queueFake{err: errors.New("nats down")})

	_, err := uc.Upload(context.Background(), "memo.txt", "EMAIL", nil, strings.NewReader("hello"))
	if err == nil {
		t.Fatal("expected error when publish fails")
	}
	if !strings.Contains(err.Error(), "publish intake event") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd":    "passwd",
		"track plan (v2).pdf": "track_plan__v2_.pdf",
		"report.pdf":          "report.pdf",
		"":                    "document.bin",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
