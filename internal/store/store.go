package store // import "github.com/Xunop/e-oasis-mcp/internal/store"

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Store holds every persistent record that is not a JSON document: the
// annotations, the full-text index, the semantic indexes, the structure cache
// and the feeds. Multi-statement writes run in one transaction each.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		now: time.Now,
	}
}

func (s *Store) DBStats() sql.DBStats {
	return s.db.Stats()
}

func (s *Store) Ping() error {
	return s.db.Ping()
}

func toTs(t time.Time) int64 {
	return t.UnixMilli()
}

func fromTs(ts int64) time.Time {
	return time.UnixMilli(ts)
}

func nullTs(ts sql.NullInt64) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := fromTs(ts.Int64)
	return &t
}

// nullInt maps the zero value to NULL for optional integer columns.
func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func limitClause(limit *int) string {
	if limit == nil || *limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", *limit)
}

// ErrNotFound is returned by updates that address a missing row.
var ErrNotFound = errors.New("not found")
