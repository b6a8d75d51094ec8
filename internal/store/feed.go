package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/model"
)

func (s *Store) CreateFeed(ctx context.Context, create *model.Feed) (*model.Feed, error) {
	f := *create
	if f.CreatedAt.IsZero() {
		f.CreatedAt = s.now()
	}
	stmt := `
		INSERT INTO feeds (url, title, description, icon_url, site_url, last_fetched_ts, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	if err := s.db.QueryRowContext(ctx, stmt,
		f.URL, f.Title, f.Description, f.IconURL, f.SiteURL, fetchedTs(f), toTs(f.CreatedAt),
	).Scan(&f.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create feed")
	}
	return &f, nil
}

// UpdateFeed rewrites the metadata of a feed taken from its latest fetch.
func (s *Store) UpdateFeed(ctx context.Context, update *model.Feed) error {
	stmt := `
		UPDATE feeds
		SET title = ?, description = ?, icon_url = ?, site_url = ?, last_fetched_ts = ?
		WHERE id = ?
	`
	if _, err := s.db.ExecContext(ctx, stmt,
		update.Title, update.Description, update.IconURL, update.SiteURL, fetchedTs(*update), update.ID,
	); err != nil {
		return errors.Wrapf(err, "failed to update feed %d", update.ID)
	}
	return nil
}

func fetchedTs(f model.Feed) any {
	if f.LastFetched.IsZero() {
		return nil
	}
	return toTs(f.LastFetched)
}

// DeleteFeed removes the feed and its articles.
func (s *Store) DeleteFeed(ctx context.Context, id int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM articles WHERE feed_id = ?", id); err != nil {
		return false, errors.Wrap(err, "failed to delete articles")
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM feeds WHERE id = ?", id)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete feed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, tx.Commit()
}

// GetFeed returns nil when no feed matches.
func (s *Store) GetFeed(ctx context.Context, find *model.FindFeed) (*model.Feed, error) {
	list, err := s.ListFeeds(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListFeeds returns the feeds ordered by title, each with its unread count.
func (s *Store) ListFeeds(ctx context.Context, find *model.FindFeed) ([]*model.Feed, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "f.id = ?"), append(args, *v)
	}
	if v := find.URL; v != nil {
		where, args = append(where, "f.url = ?"), append(args, *v)
	}

	query := `
		SELECT
			f.id,
			f.url,
			f.title,
			f.description,
			f.icon_url,
			f.site_url,
			f.last_fetched_ts,
			f.created_ts,
			(SELECT COUNT(*) FROM articles a WHERE a.feed_id = f.id AND a.is_read = 0)
		FROM feeds f
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY lower(f.title), f.id
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query feeds")
	}
	defer rows.Close()

	list := make([]*model.Feed, 0)
	for rows.Next() {
		var (
			f         model.Feed
			fetched   sql.NullInt64
			createdTs int64
		)
		if err := rows.Scan(&f.ID, &f.URL, &f.Title, &f.Description, &f.IconURL, &f.SiteURL, &fetched, &createdTs, &f.UnreadCount); err != nil {
			return nil, err
		}
		if t := nullTs(fetched); t != nil {
			f.LastFetched = *t
		}
		f.CreatedAt = fromTs(createdTs)
		list = append(list, &f)
	}
	return list, rows.Err()
}
