package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillroute/pkg/db"
)

// Migration20261017090100AddMemoryKeyIndex indexes entries by key in append order
func Migration20261017090100AddMemoryKeyIndex() db.Migration {
	return db.Migration{
		Version:     20261017090100,
		Description: "Add memory key index",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_memory_entries_key ON memory_entries(key, seq)")
			return errors.Wrap(err, "failed to create memory key index")
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP INDEX IF EXISTS idx_memory_entries_key")
			return errors.Wrap(err, "failed to drop memory key index")
		},
	}
}
