package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillroute/pkg/db"
)

// Migration20261017090000CreateMemoryEntries creates the memory_entries table
func Migration20261017090000CreateMemoryEntries() db.Migration {
	return db.Migration{
		Version:     20261017090000,
		Description: "Create memory_entries table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS memory_entries (
					seq INTEGER PRIMARY KEY AUTOINCREMENT,
					id TEXT NOT NULL UNIQUE,
					key TEXT NOT NULL,
					text TEXT NOT NULL,
					created_at DATETIME NOT NULL
				)
			`)
			return errors.Wrap(err, "failed to create memory_entries table")
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS memory_entries")
			return errors.Wrap(err, "failed to drop memory_entries table")
		},
	}
}
