package db

import (
	"context"
	"fmt"
	"slices"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/store"
	"github.com/Xunop/e-oasis-mcp/internal/version"
)

// columnMigration adds one column to a table created by an older release.
type columnMigration struct {
	Version    string
	Table      string
	Column     string
	Definition string
}

// Columns added to the base schema, oldest first. Definitions of NOT NULL
// columns need a default since sqlite fills existing rows with it.
var columnMigrations = []columnMigration{
	{Version: "0.2.0", Table: "highlights", Column: "cfi_range", Definition: "TEXT NOT NULL DEFAULT ''"},
	{Version: "0.2.0", Table: "highlights", Column: "page_number", Definition: "INTEGER"},
	{Version: "0.2.0", Table: "notes", Column: "cfi_range", Definition: "TEXT NOT NULL DEFAULT ''"},
	{Version: "0.2.0", Table: "notes", Column: "page_number", Definition: "INTEGER"},
	{Version: "0.2.0", Table: "bookmarks", Column: "cfi_range", Definition: "TEXT NOT NULL DEFAULT ''"},
	{Version: "0.2.0", Table: "bookmarks", Column: "page_number", Definition: "INTEGER"},
	{Version: "0.3.0", Table: "feeds", Column: "icon_url", Definition: "TEXT NOT NULL DEFAULT ''"},
	{Version: "0.3.0", Table: "feeds", Column: "site_url", Definition: "TEXT NOT NULL DEFAULT ''"},
	{Version: "0.4.0", Table: "articles", Column: "is_saved", Definition: "INTEGER NOT NULL DEFAULT 0"},
}

func migrationVersions() []string {
	versions := []string{}
	for _, m := range columnMigrations {
		if !slices.Contains(versions, m.Version) {
			versions = append(versions, m.Version)
		}
	}
	version.SortVersion(versions)
	return versions
}

func (d *DB) applyMigrationForVersion(ctx context.Context, v string) error {
	applied := 0
	for _, m := range columnMigrations {
		if m.Version != v {
			continue
		}
		exists, err := d.CheckColumnExists(ctx, m.Table, m.Column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE `%s` ADD COLUMN `%s` %s", m.Table, m.Column, m.Definition)
		if err := d.execute(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to add %s.%s", m.Table, m.Column)
		}
		applied++
	}
	if applied > 0 {
		log.Info("Applied migration", zap.String("version", v), zap.Int("columns", applied))
	}

	if _, err := d.UpsertMigrationHistory(ctx, &store.UpsertMigrationHistory{
		Version: v,
	}); err != nil {
		return errors.Wrapf(err, "failed to upsert migration history for version %s", v)
	}
	return nil
}
