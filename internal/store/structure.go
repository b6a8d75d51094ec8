package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/model"
)

// SaveStructure caches the structure tree of a book as brotli compressed JSON.
func (s *Store) SaveStructure(ctx context.Context, structure *model.BookStructure) error {
	raw, err := json.Marshal(structure)
	if err != nil {
		return errors.Wrap(err, "failed to encode structure")
	}
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(raw); err != nil {
		return errors.Wrap(err, "failed to compress structure")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "failed to compress structure")
	}

	stmt := `
		INSERT INTO structure_cache (book_id, data, updated_ts)
		VALUES (?, ?, ?)
		ON CONFLICT(book_id) DO UPDATE
		SET
			data = EXCLUDED.data,
			updated_ts = EXCLUDED.updated_ts
	`
	if _, err := s.db.ExecContext(ctx, stmt, structure.BookID, buf.Bytes(), toTs(s.now())); err != nil {
		return errors.Wrap(err, "failed to save structure")
	}
	return nil
}

// GetStructure returns nil when nothing is cached for bookID.
func (s *Store) GetStructure(ctx context.Context, bookID string) (*model.BookStructure, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM structure_cache WHERE book_id = ?", bookID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query structure")
	}

	raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decompress structure")
	}
	var structure model.BookStructure
	if err := json.Unmarshal(raw, &structure); err != nil {
		return nil, errors.Wrap(err, "failed to decode structure")
	}
	return &structure, nil
}
