package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/model"
)

// InsertArticles adds the articles of a feed whose GUID is not stored yet and
// returns how many were new. Existing rows are left untouched, read and saved
// flags included.
func (s *Store) InsertArticles(ctx context.Context, feedID int64, articles []*model.Article) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (
			feed_id, guid, title, link, author, pub_ts, summary, content, fetched_ts
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(feed_id, guid) DO NOTHING
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	added := 0
	fetched := toTs(s.now())
	for _, a := range articles {
		var pubTs any
		if a.PubDate != nil {
			pubTs = toTs(*a.PubDate)
		}
		res, err := stmt.ExecContext(ctx, feedID, a.GUID, a.Title, a.Link, a.Author, pubTs, a.Summary, a.Content, fetched)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to insert article %q", a.GUID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		added += int(n)
	}
	return added, tx.Commit()
}

// ListArticles returns matching articles, newest first.
func (s *Store) ListArticles(ctx context.Context, find *model.FindArticle) ([]*model.Article, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "a.id = ?"), append(args, *v)
	}
	if v := find.FeedID; v != nil {
		where, args = append(where, "a.feed_id = ?"), append(args, *v)
	}
	if v := find.IsRead; v != nil {
		where, args = append(where, "a.is_read = ?"), append(args, *v)
	}
	if v := find.IsSaved; v != nil {
		where, args = append(where, "a.is_saved = ?"), append(args, *v)
	}
	if v := find.Query; v != nil && *v != "" {
		where = append(where, "(instr(lower(a.title), lower(?)) > 0 OR instr(lower(a.summary), lower(?)) > 0 OR instr(lower(a.content), lower(?)) > 0)")
		args = append(args, *v, *v, *v)
	}

	query := `
		SELECT
			a.id,
			a.feed_id,
			a.guid,
			a.title,
			a.link,
			a.author,
			a.pub_ts,
			a.summary,
			a.content,
			a.is_read,
			a.is_saved,
			a.fetched_ts,
			f.title
		FROM articles a
		JOIN feeds f ON f.id = a.feed_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY COALESCE(a.pub_ts, a.fetched_ts) DESC, a.id DESC` + limitClause(find.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query articles")
	}
	defer rows.Close()

	list := make([]*model.Article, 0)
	for rows.Next() {
		var (
			a         model.Article
			pubTs     sql.NullInt64
			fetchedTs int64
		)
		if err := rows.Scan(
			&a.ID, &a.FeedID, &a.GUID, &a.Title, &a.Link, &a.Author, &pubTs,
			&a.Summary, &a.Content, &a.IsRead, &a.IsSaved, &fetchedTs, &a.FeedTitle,
		); err != nil {
			return nil, err
		}
		a.PubDate = nullTs(pubTs)
		a.FetchedAt = fromTs(fetchedTs)
		list = append(list, &a)
	}
	return list, rows.Err()
}

// GetArticle returns nil when the article does not exist.
func (s *Store) GetArticle(ctx context.Context, id int64) (*model.Article, error) {
	list, err := s.ListArticles(ctx, &model.FindArticle{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) SetArticleRead(ctx context.Context, id int64, read bool) (bool, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE articles SET is_read = ? WHERE id = ?", read, id)
	if err != nil {
		return false, errors.Wrap(err, "failed to update article")
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkAllRead marks the unread articles of one feed, or of every feed when
// feedID is nil, and returns how many changed.
func (s *Store) MarkAllRead(ctx context.Context, feedID *int64) (int64, error) {
	stmt, args := "UPDATE articles SET is_read = 1 WHERE is_read = 0", []any{}
	if feedID != nil {
		stmt, args = stmt+" AND feed_id = ?", append(args, *feedID)
	}
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to mark articles read")
	}
	return res.RowsAffected()
}

// ToggleSaved flips the saved flag and returns the new value.
func (s *Store) ToggleSaved(ctx context.Context, id int64) (bool, error) {
	var saved bool
	err := s.db.QueryRowContext(ctx, "UPDATE articles SET is_saved = 1 - is_saved WHERE id = ? RETURNING is_saved", id).Scan(&saved)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to toggle saved")
	}
	return saved, nil
}
