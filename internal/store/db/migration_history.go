package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/store"
)

func (d *DB) UpsertMigrationHistory(ctx context.Context, upsert *store.UpsertMigrationHistory) (*store.MigrationHistory, error) {
	stmt := `
		INSERT INTO migration_history (
			version
		)
		VALUES (?)
		ON CONFLICT(version) DO UPDATE
		SET
			version=EXCLUDED.version
		RETURNING version, created_ts
	`
	var migrationHistory store.MigrationHistory
	if err := d.DB.QueryRowContext(ctx, stmt, upsert.Version).Scan(
		&migrationHistory.Version,
		&migrationHistory.CreatedTs,
	); err != nil {
		return nil, errors.Wrapf(err, "failed to record migration %s", upsert.Version)
	}

	return &migrationHistory, nil
}

func (d *DB) FindMigrationHistoryList(ctx context.Context, _ *store.FindMigrationHistory) ([]*store.MigrationHistory, error) {
	query := "SELECT `version`, `created_ts` FROM `migration_history` ORDER BY `created_ts` DESC"
	rows, err := d.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*store.MigrationHistory, 0)
	for rows.Next() {
		var mh store.MigrationHistory
		if err := rows.Scan(
			&mh.Version,
			&mh.CreatedTs,
		); err != nil {
			return nil, err
		}
		list = append(list, &mh)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) CheckTableExists(ctx context.Context, tableName string) (bool, error) {
	query := "SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name=?"
	var name string
	if err := d.DB.QueryRowContext(ctx, query, tableName).Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// CheckColumnExists looks the column up in PRAGMA table_info, since sqlite
// has no ADD COLUMN IF NOT EXISTS.
func (d *DB) CheckColumnExists(ctx context.Context, tableName, columnName string) (bool, error) {
	rows, err := d.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(`%s`)", tableName))
	if err != nil {
		return false, errors.Wrapf(err, "failed to read columns of %s", tableName)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return false, err
		}
		if name == columnName {
			return true, nil
		}
	}
	return false, rows.Err()
}
