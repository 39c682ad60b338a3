package memory

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillroute/pkg/db"
	"github.com/jingkaihe/skillroute/pkg/db/migrations"
	"github.com/jingkaihe/skillroute/pkg/logger"
)

// SQLite stores entries in the memory_entries table
type SQLite struct {
	db *sqlx.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens the database at path and brings its schema up to date
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	sqlDB, err := db.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := db.NewMigrationRunner(sqlDB).Run(ctx, migrations.All()); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to migrate memory database")
	}

	logger.G(ctx).WithField("path", path).Debug("Opened memory database")
	return &SQLite{db: sqlDB}, nil
}

// InspectSQLite opens the database at path without migrating it, for
// reporting or rolling back its schema. An empty path uses the default.
func InspectSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		p, err := db.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	sqlDB, err := db.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: sqlDB}, nil
}

func (s *SQLite) Append(ctx context.Context, key, text string) (Entry, error) {
	e, err := newEntry(key, text)
	if err != nil {
		return Entry{}, err
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO memory_entries (id, key, text, created_at)
		VALUES (:id, :key, :text, :created_at)
	`, e)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "failed to append memory for %s", e.Key)
	}
	return e, nil
}

func (s *SQLite) Read(ctx context.Context, key string) ([]Entry, error) {
	key = NormalizeKey(key)

	var entries []Entry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, key, text, created_at FROM memory_entries
		WHERE key = ? ORDER BY seq
	`, key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read memory for %s", key)
	}
	if len(entries) == 0 {
		return nil, &NotFoundError{Key: key}
	}
	for i := range entries {
		entries[i].CreatedAt = entries[i].CreatedAt.UTC()
	}
	return entries, nil
}

func (s *SQLite) Keys(ctx context.Context) ([]string, error) {
	keys := []string{}
	if err := s.db.SelectContext(ctx, &keys, "SELECT DISTINCT key FROM memory_entries ORDER BY key"); err != nil {
		return nil, errors.Wrap(err, "failed to list memory keys")
	}
	return keys, nil
}

// MigrationState pairs a schema migration with whether it is applied
type MigrationState struct {
	Version     int64
	Description string
	Applied     bool
}

// Schema checks the connection pragmas and reports every known migration
func (s *SQLite) Schema(ctx context.Context) ([]MigrationState, error) {
	if err := db.VerifyConfiguration(ctx, s.db); err != nil {
		return nil, errors.Wrap(err, "memory database is misconfigured")
	}

	applied, err := db.NewMigrationRunner(s.db).AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[int64]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	all := migrations.All()
	states := make([]MigrationState, 0, len(all))
	for _, m := range all {
		states = append(states, MigrationState{Version: m.Version, Description: m.Description, Applied: done[m.Version]})
	}
	return states, nil
}

// RollbackSchema reverts the latest applied migration and returns it. The
// result is nil when nothing is applied. The next OpenSQLite reapplies it.
func (s *SQLite) RollbackSchema(ctx context.Context) (*MigrationState, error) {
	runner := db.NewMigrationRunner(s.db)
	applied, err := runner.AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	if len(applied) == 0 {
		return nil, nil
	}

	last := MigrationState{Version: applied[len(applied)-1]}
	for _, m := range migrations.All() {
		if m.Version == last.Version {
			last.Description = m.Description
		}
	}

	if err := runner.Rollback(ctx, migrations.All()); err != nil {
		return nil, errors.Wrapf(err, "failed to roll back migration %d", last.Version)
	}
	logger.G(ctx).WithField("version", last.Version).Info("Rolled back memory database migration")
	return &last, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
