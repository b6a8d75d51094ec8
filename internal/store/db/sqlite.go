package db

import (
	"context"
	"database/sql"
	"embed"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/store"
	"github.com/Xunop/e-oasis-mcp/internal/util"
	"github.com/Xunop/e-oasis-mcp/internal/version"
)

type DB struct {
	*sql.DB
	path string
}

func init() {
	util.RegisterSQLiteFunctions()
}

// NewDB opens the sqlite database at path, creating its directory. Every
// connection runs in WAL mode with foreign keys on, and write transactions
// take the lock up front so concurrent writers wait on busy_timeout instead
// of failing mid-transaction.
func NewDB(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	d, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := d.Ping(); err != nil {
		d.Close()
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	return &DB{d, path}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

func (d *DB) Close() error {
	return d.DB.Close()
}

//go:embed migration
var migrationFS embed.FS

const latestSchemaFileName = "migration/LATEST_SCHEMA.sql"

// Migrate creates any missing table and then applies the column migrations
// in version order. Running it again on a migrated database changes nothing.
func (d *DB) Migrate(ctx context.Context) error {
	currentVersion := version.GetCurrentVersion()
	log.Debug("Migrating database", zap.String("path", d.path), zap.String("version", currentVersion))

	if err := d.applyLatestSchema(ctx); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}
	for _, v := range migrationVersions() {
		if version.IsVersionGreaterThan(v, currentVersion) {
			continue
		}
		if err := d.applyMigrationForVersion(ctx, v); err != nil {
			return errors.Wrapf(err, "failed to apply version %s migration", v)
		}
	}
	if _, err := d.UpsertMigrationHistory(ctx, &store.UpsertMigrationHistory{
		Version: currentVersion,
	}); err != nil {
		return errors.Wrap(err, "failed to upsert migration history")
	}
	return nil
}

func (d *DB) applyLatestSchema(ctx context.Context) error {
	buf, err := migrationFS.ReadFile(latestSchemaFileName)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema file: %q", latestSchemaFileName)
	}

	if err := d.execute(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}
	return nil
}

// execute runs stmt within a transaction.
func (d *DB) execute(ctx context.Context, stmt string) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to execute statement")
	}

	return tx.Commit()
}
