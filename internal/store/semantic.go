package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/model"
)

// UpsertSemanticIndex stores the one semantic index of a book, replacing its
// data while keeping the original creation time.
func (s *Store) UpsertSemanticIndex(ctx context.Context, bookID string, data json.RawMessage) (*model.SemanticIndex, error) {
	if !json.Valid(data) {
		return nil, errors.New("semantic index data is not valid JSON")
	}
	now := toTs(s.now())
	stmt := `
		INSERT INTO semantic_indexes (book_id, index_data, created_ts, updated_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(book_id) DO UPDATE
		SET
			index_data = EXCLUDED.index_data,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`
	index := &model.SemanticIndex{BookID: bookID, IndexData: data}
	var createdTs, updatedTs int64
	if err := s.db.QueryRowContext(ctx, stmt, bookID, string(data), now, now).Scan(&index.ID, &createdTs, &updatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to save semantic index")
	}
	index.CreatedAt, index.UpdatedAt = fromTs(createdTs), fromTs(updatedTs)
	return index, nil
}

// GetSemanticIndex returns nil when the book has none.
func (s *Store) GetSemanticIndex(ctx context.Context, bookID string) (*model.SemanticIndex, error) {
	query := "SELECT id, book_id, index_data, created_ts, updated_ts FROM semantic_indexes WHERE book_id = ?"
	var (
		index                model.SemanticIndex
		data                 string
		createdTs, updatedTs int64
	)
	err := s.db.QueryRowContext(ctx, query, bookID).Scan(&index.ID, &index.BookID, &data, &createdTs, &updatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query semantic index")
	}
	index.IndexData = json.RawMessage(data)
	index.CreatedAt, index.UpdatedAt = fromTs(createdTs), fromTs(updatedTs)
	return &index, nil
}
