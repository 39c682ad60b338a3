// Package memory is the persistent notebook personas write to between
// conversations. It replaces a shared MEMORY.md with an explicit store the
// caller opens, injects and closes.
package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillroute/pkg/db"
)

// Backend names accepted by Open
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendFiles  = "files"
)

// Entry is one appended note
type Entry struct {
	ID        string    `db:"id" json:"id"`
	Key       string    `db:"key" json:"key"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Store is an append-only key-value notebook. Entries under a key are
// returned in the order they were appended.
type Store interface {
	Append(ctx context.Context, key, text string) (Entry, error)
	// Read returns a *NotFoundError when nothing was appended under key
	Read(ctx context.Context, key string) ([]Entry, error)
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// NotFoundError reports a key with no entries
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no memory stored under %q", e.Key)
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Text joins entry texts with blank lines, oldest first
func Text(entries []Entry) string {
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.Text)
	}
	return strings.Join(texts, "\n\n")
}

// NormalizeKey is applied to every key a backend is given, so " qa " and
// "qa" address the same notes
func NormalizeKey(key string) string {
	return strings.TrimSpace(key)
}

// newEntry validates input and stamps a new entry
func newEntry(key, text string) (Entry, error) {
	key = NormalizeKey(key)
	if key == "" {
		return Entry{}, errors.New("memory key must not be empty")
	}
	if strings.TrimSpace(text) == "" {
		return Entry{}, errors.New("memory text must not be empty")
	}
	return Entry{
		ID:        uuid.NewString(),
		Key:       key,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Open selects a backend by name. location is the database file for
// "sqlite" and the directory for "files"; an empty location uses the
// default under the skillroute base path. "none" returns a nil Store.
func Open(ctx context.Context, backend, location string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return NewInMemory(), nil
	case BackendSQLite:
		if location == "" {
			p, err := db.DefaultPath()
			if err != nil {
				return nil, err
			}
			location = p
		}
		return OpenSQLite(ctx, location)
	case BackendFiles:
		if location == "" {
			p, err := defaultFilesDir()
			if err != nil {
				return nil, err
			}
			location = p
		}
		return OpenFiles(location)
	default:
		return nil, errors.Errorf("unknown memory backend %q", backend)
	}
}

// defaultFilesDir sits next to the default database
func defaultFilesDir() (string, error) {
	p, err := db.DefaultPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(p), "memory"), nil
}
