package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/docflow/internal/core/domain"
	"github.com/kirillkom/docflow/internal/core/ports"
)

const defaultSearchLimit = 50

type QueryUseCase struct {
	repo ports.DocumentRepository
}

func NewQueryUseCase(repo ports.DocumentRepository) *QueryUseCase {
	return &QueryUseCase{repo: repo}
}

func (uc *QueryUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document", fmt.Errorf("empty document id"))
	}
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

func (uc *QueryUseCase) Search(ctx context.Context, filter domain.SearchFilter) ([]domain.DocumentSummary, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultSearchLimit
	}
	results, err := uc.repo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return results, nil
}
