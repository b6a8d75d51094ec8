package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/util"
)

const DefaultSearchLimit = 20

// ReplaceBookContent swaps every indexed row of bookID for rows in a single
// transaction, so readers see either the old chapter set or the new one.
func (s *Store) ReplaceBookContent(ctx context.Context, bookID string, rows []*model.IndexedContent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM content_fts WHERE rowid IN (SELECT id FROM book_content WHERE book_id = ?)", bookID); err != nil {
		return errors.Wrap(err, "failed to delete search rows")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM book_content WHERE book_id = ?", bookID); err != nil {
		return errors.Wrap(err, "failed to delete content rows")
	}

	insertContent, err := tx.PrepareContext(ctx, `
		INSERT INTO book_content (
			book_id, chapter_index, chapter_title, content, content_hash, book_title, author, indexed_ts
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer insertContent.Close()
	insertFTS, err := tx.PrepareContext(ctx, `
		INSERT INTO content_fts (rowid, chapter_title, content, book_id, chapter_index)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer insertFTS.Close()

	indexedTs := toTs(s.now())
	for _, row := range rows {
		res, err := insertContent.ExecContext(ctx,
			bookID, row.ChapterIndex, row.ChapterTitle, row.Content, row.ContentHash, row.BookTitle, row.Author, indexedTs,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to insert chapter %d", row.ChapterIndex)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := insertFTS.ExecContext(ctx, id, row.ChapterTitle, row.Content, bookID, row.ChapterIndex); err != nil {
			return errors.Wrapf(err, "failed to index chapter %d", row.ChapterIndex)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit content")
	}
	log.Debug("Replaced book content", zap.String("book_id", bookID), zap.Int("chapters", len(rows)))
	return nil
}

// GetContentHash returns the hash shared by the indexed rows of bookID, and
// false when the book is not indexed.
func (s *Store) GetContentHash(ctx context.Context, bookID string) (string, bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, "SELECT content_hash FROM book_content WHERE book_id = ? LIMIT 1", bookID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "failed to query content hash")
	}
	return hash, true, nil
}

func (s *Store) ListBookContent(ctx context.Context, bookID string) ([]*model.IndexedContent, error) {
	query := `
		SELECT id, book_id, chapter_index, chapter_title, content, content_hash, book_title, author, indexed_ts
		FROM book_content
		WHERE book_id = ?
		ORDER BY chapter_index
	`
	rows, err := s.db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query book content")
	}
	defer rows.Close()

	list := make([]*model.IndexedContent, 0)
	for rows.Next() {
		var (
			c         model.IndexedContent
			indexedTs int64
		)
		if err := rows.Scan(&c.ID, &c.BookID, &c.ChapterIndex, &c.ChapterTitle, &c.Content, &c.ContentHash, &c.BookTitle, &c.Author, &indexedTs); err != nil {
			return nil, err
		}
		c.IndexedAt = fromTs(indexedTs)
		list = append(list, &c)
	}
	return list, rows.Err()
}

func (s *Store) GetIndexStatus(ctx context.Context, bookID string) (*model.IndexStatus, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(MAX(content_hash), ''),
			COALESCE(MAX(indexed_ts), 0),
			COALESCE(sortconcat(chapter_index, chapter_title), '')
		FROM book_content
		WHERE book_id = ?
	`
	var (
		status    = &model.IndexStatus{BookID: bookID}
		indexedTs int64
		titles    string
	)
	if err := s.db.QueryRowContext(ctx, query, bookID).Scan(&status.ChapterCount, &status.ContentHash, &indexedTs, &titles); err != nil {
		return nil, errors.Wrap(err, "failed to query index status")
	}
	status.Indexed = status.ChapterCount > 0
	if status.Indexed {
		status.IndexedAt = fromTs(indexedTs)
	}
	if titles != "" {
		status.ChapterTitles = strings.Split(titles, util.SortConcatSeparator)
	}
	return status, nil
}

// BuildMatchQuery turns free text into an FTS5 query where every
// whitespace-separated term must match as a quoted prefix:
//
//	running shoes -> "running"* AND "shoes"*
//
// Terms without letters or digits are dropped. The result is empty when no
// term is left.
func BuildMatchQuery(query string) string {
	terms := []string{}
	for _, term := range strings.Fields(query) {
		if !strings.ContainsFunc(term, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(term, `"`, `""`)+`"*`)
	}
	return strings.Join(terms, " AND ")
}

// SearchContent ranks indexed chapters with bm25, weighting the content
// column ten times the chapter title. Scores are divided by the largest
// absolute score of this result set.
func (s *Store) SearchContent(ctx context.Context, find *model.FindContent) ([]*model.ContentSearchResult, error) {
	match := BuildMatchQuery(find.Query)
	if match == "" {
		return []*model.ContentSearchResult{}, nil
	}

	where, args := []string{"content_fts MATCH ?"}, []any{match}
	if len(find.BookIDs) > 0 {
		placeholders := make([]string, len(find.BookIDs))
		for i, id := range find.BookIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		where = append(where, fmt.Sprintf("c.book_id IN (%s)", strings.Join(placeholders, ", ")))
	}
	limit := DefaultSearchLimit
	if find.Limit != nil && *find.Limit > 0 {
		limit = *find.Limit
	}

	query := `
		SELECT
			c.book_id,
			c.book_title,
			c.author,
			c.chapter_index,
			c.chapter_title,
			snippet(content_fts, 1, '**', '**', '...', 40),
			bm25(content_fts, 1.0, 10.0) AS score
		FROM content_fts
		JOIN book_content c ON c.id = content_fts.rowid
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY score, c.book_id, c.chapter_index
		LIMIT ` + fmt.Sprint(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search content")
	}
	defer rows.Close()

	list := make([]*model.ContentSearchResult, 0)
	for rows.Next() {
		var r model.ContentSearchResult
		if err := rows.Scan(&r.BookID, &r.BookTitle, &r.Author, &r.ChapterIndex, &r.ChapterTitle, &r.Snippet, &r.Score); err != nil {
			return nil, err
		}
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	normalizeScores(list)
	return list, nil
}

func normalizeScores(list []*model.ContentSearchResult) {
	maxScore := 0.0
	for _, r := range list {
		maxScore = math.Max(maxScore, math.Abs(r.Score))
	}
	for _, r := range list {
		if maxScore == 0 {
			r.Score = 0
			continue
		}
		r.Score = math.Abs(r.Score) / maxScore
	}
}
