package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/util"
)

func (s *Store) CreateHighlight(ctx context.Context, create *model.Highlight) (*model.Highlight, error) {
	h := *create
	if h.ID == "" {
		h.ID = util.GenUUID()
	}
	if h.Color == "" {
		h.Color = model.ColorYellow
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = s.now()
	}

	stmt := `
		INSERT INTO highlights (
			id, book_id, chapter_index, text, color, cfi_range, page_number, created_ts
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, stmt,
		h.ID, h.BookID, h.ChapterIndex, h.Text, string(h.Color), h.CFIRange, nullInt(h.PageNumber), toTs(h.CreatedAt),
	); err != nil {
		return nil, errors.Wrap(err, "failed to create highlight")
	}
	return &h, nil
}

// ListHighlights returns matching highlights, newest first.
func (s *Store) ListHighlights(ctx context.Context, find *model.FindHighlight) ([]*model.Highlight, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.BookID; v != nil {
		where, args = append(where, "book_id = ?"), append(args, *v)
	}
	if v := find.Text; v != nil && *v != "" {
		where, args = append(where, "instr(lower(text), lower(?)) > 0"), append(args, *v)
	}
	if v := find.Color; v != nil {
		where, args = append(where, "color = ?"), append(args, string(*v))
	}

	query := `
		SELECT id, book_id, chapter_index, text, color, cfi_range, page_number, created_ts
		FROM highlights
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id` + limitClause(find.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query highlights")
	}
	defer rows.Close()

	list := make([]*model.Highlight, 0)
	for rows.Next() {
		var (
			h         model.Highlight
			color     string
			page      sql.NullInt64
			createdTs int64
		)
		if err := rows.Scan(&h.ID, &h.BookID, &h.ChapterIndex, &h.Text, &color, &h.CFIRange, &page, &createdTs); err != nil {
			return nil, err
		}
		h.Color = model.HighlightColor(color)
		h.PageNumber = int(page.Int64)
		h.CreatedAt = fromTs(createdTs)
		list = append(list, &h)
	}
	return list, rows.Err()
}

func (s *Store) DeleteHighlight(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, "highlights", id)
}

func (s *Store) CreateNote(ctx context.Context, create *model.Note) (*model.Note, error) {
	n := *create
	if n.ID == "" {
		n.ID = util.GenUUID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}

	stmt := `
		INSERT INTO notes (
			id, book_id, chapter_index, text, quote, cfi_range, page_number, created_ts
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, stmt,
		n.ID, n.BookID, n.ChapterIndex, n.Text, n.Quote, n.CFIRange, nullInt(n.PageNumber), toTs(n.CreatedAt),
	); err != nil {
		return nil, errors.Wrap(err, "failed to create note")
	}
	return &n, nil
}

func (s *Store) ListNotes(ctx context.Context, find *model.FindNote) ([]*model.Note, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.BookID; v != nil {
		where, args = append(where, "book_id = ?"), append(args, *v)
	}
	if v := find.Text; v != nil && *v != "" {
		where, args = append(where, "(instr(lower(text), lower(?)) > 0 OR instr(lower(quote), lower(?)) > 0)"), append(args, *v, *v)
	}

	query := `
		SELECT id, book_id, chapter_index, text, quote, cfi_range, page_number, created_ts
		FROM notes
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id` + limitClause(find.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query notes")
	}
	defer rows.Close()

	list := make([]*model.Note, 0)
	for rows.Next() {
		var (
			n         model.Note
			page      sql.NullInt64
			createdTs int64
		)
		if err := rows.Scan(&n.ID, &n.BookID, &n.ChapterIndex, &n.Text, &n.Quote, &n.CFIRange, &page, &createdTs); err != nil {
			return nil, err
		}
		n.PageNumber = int(page.Int64)
		n.CreatedAt = fromTs(createdTs)
		list = append(list, &n)
	}
	return list, rows.Err()
}

func (s *Store) DeleteNote(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, "notes", id)
}

func (s *Store) CreateBookmark(ctx context.Context, create *model.Bookmark) (*model.Bookmark, error) {
	b := *create
	if b.ID == "" {
		b.ID = util.GenUUID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}

	stmt := `
		INSERT INTO bookmarks (
			id, book_id, chapter_index, title, cfi_range, page_number, created_ts
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, stmt,
		b.ID, b.BookID, b.ChapterIndex, b.Title, b.CFIRange, nullInt(b.PageNumber), toTs(b.CreatedAt),
	); err != nil {
		return nil, errors.Wrap(err, "failed to create bookmark")
	}
	return &b, nil
}

func (s *Store) ListBookmarks(ctx context.Context, find *model.FindBookmark) ([]*model.Bookmark, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.BookID; v != nil {
		where, args = append(where, "book_id = ?"), append(args, *v)
	}

	query := `
		SELECT id, book_id, chapter_index, title, cfi_range, page_number, created_ts
		FROM bookmarks
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id` + limitClause(find.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query bookmarks")
	}
	defer rows.Close()

	list := make([]*model.Bookmark, 0)
	for rows.Next() {
		var (
			b         model.Bookmark
			page      sql.NullInt64
			createdTs int64
		)
		if err := rows.Scan(&b.ID, &b.BookID, &b.ChapterIndex, &b.Title, &b.CFIRange, &page, &createdTs); err != nil {
			return nil, err
		}
		b.PageNumber = int(page.Int64)
		b.CreatedAt = fromTs(createdTs)
		list = append(list, &b)
	}
	return list, rows.Err()
}

func (s *Store) DeleteBookmark(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, "bookmarks", id)
}

// deleteByID reports whether a row was removed. table is never user input.
func (s *Store) deleteByID(ctx context.Context, table, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return false, errors.Wrapf(err, "failed to delete from %s", table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
