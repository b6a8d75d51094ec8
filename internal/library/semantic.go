package library

import (
	"context"
	"encoding/json"

	"github.com/Xunop/e-oasis-mcp/internal/model"
)

// GetSemanticIndex returns nil when no analysis was saved for the book.
func (s *Service) GetSemanticIndex(ctx context.Context, query string) (*model.SemanticIndex, error) {
	book, err := s.ResolveBook(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.store.GetSemanticIndex(ctx, book.ID)
}

func (s *Service) SaveSemanticIndex(ctx context.Context, query string, data json.RawMessage) (*model.SemanticIndex, error) {
	book, err := s.ResolveBook(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.store.UpsertSemanticIndex(ctx, book.ID, data)
}
