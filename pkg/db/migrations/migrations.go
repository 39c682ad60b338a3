// Package migrations holds the schema history of the memory database.
// Versions are timestamps (YYYYMMDDHHmmss); append new migrations to All.
package migrations

import (
	"github.com/jingkaihe/skillroute/pkg/db"
)

// All returns every migration in version order
func All() []db.Migration {
	return []db.Migration{
		Migration20261017090000CreateMemoryEntries(),
		Migration20261017090100AddMemoryKeyIndex(),
	}
}
