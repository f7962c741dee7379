package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/docflow/internal/core/domain"
)

type queryRepoFake struct {
	dispatchRepoFake

	doc        *domain.Document
	getErr     error
	summaries  []domain.DocumentSummary
	searchErr  error
	lastFilter domain.SearchFilter
}

func (f *queryRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.doc, nil
}

func (f *queryRepoFake) Search(_ context.Context, filter domain.SearchFilter) ([]domain.DocumentSummary, error) {
	f.lastFilter = filter
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.summaries, nil
}

func TestGetByIDSuccess(t *testing.T) {
	repo := &queryRepoFake{doc: &domain.Document{ID: "doc-1", Department: "SAFETY"}}
	uc := NewQueryUseCase(repo)

	doc, err := uc.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if doc.Department != "SAFETY" {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestGetByIDEmptyID(t *testing.T) {
	uc := NewQueryUseCase(&queryRepoFake{})

	_, err := uc.GetByID(context.Background(), "")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := &queryRepoFake{getErr: domain.ErrDocumentNotFound}
	uc := NewQueryUseCase(repo)

	_, err := uc.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestSearchAppliesDefaultLimit(t *testing.T) {
	repo := &queryRepoFake{summaries: []domain.DocumentSummary{{ID: "doc-1"}}}
	uc := NewQueryUseCase(repo)

	results, err := uc.Search(context.Background(), domain.SearchFilter{Department: "FINANCE"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if repo.lastFilter.Limit != defaultSearchLimit {
		t.Fatalf("expected default limit %d, got %d", defaultSearchLimit, repo.lastFilter.Limit)
	}
	if repo.lastFilter.Department != "FINANCE" {
		t.Fatalf("filter not forwarded: %+v", repo.lastFilter)
	}
}

func TestSearchKeepsExplicitLimit(t *testing.T) {
	repo := &queryRepoFake{}
	uc := NewQueryUseCase(repo)

	if _, err := uc.Search(context.Background(), domain.SearchFilter{Limit: 5}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if repo.lastFilter.Limit != 5 {
		t.Fatalf("explicit limit overridden: %d", repo.lastFilter.Limit)
	}
}
