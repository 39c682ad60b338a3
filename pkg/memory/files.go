package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"

	"github.com/jingkaihe/skillroute/pkg/logger"
)

const (
	fileSuffix    = ".json"
	corruptSuffix = ".corrupt-"
)

// Files keeps one JSON document per key in a directory. Appends take an OS
// file lock, so several processes may share the directory.
type Files struct {
	dir string
}

var _ Store = (*Files)(nil)

type fileData struct {
	Entries []Entry `json:"entries"`
}

// OpenFiles uses dir, creating it if needed
func OpenFiles(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create memory directory")
	}
	return &Files{dir: dir}, nil
}

func (s *Files) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+fileSuffix)
}

func (s *Files) Append(ctx context.Context, key, text string) (Entry, error) {
	e, err := newEntry(key, text)
	if err != nil {
		return Entry{}, err
	}

	path := s.path(e.Key)
	err = lockedfile.Transform(path, func(data []byte) ([]byte, error) {
		var fd fileData
		if len(data) > 0 {
			if err := json.Unmarshal(data, &fd); err != nil {
				backup, berr := preserveCorrupt(path, data)
				if berr != nil {
					return nil, errors.Wrap(berr, "failed to preserve corrupt memory file")
				}
				logger.G(ctx).WithError(err).WithField("key", e.Key).WithField("backup", backup).Warn("Corrupt memory file moved aside, starting over")
				fd = fileData{}
			}
		}
		fd.Entries = append(fd.Entries, e)
		return json.MarshalIndent(fd, "", "  ")
	})
	if err != nil {
		return Entry{}, errors.Wrapf(err, "failed to append memory for %s", e.Key)
	}
	return e, nil
}

func (s *Files) Read(_ context.Context, key string) ([]Entry, error) {
	key = NormalizeKey(key)
	data, err := lockedfile.Read(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, &NotFoundError{Key: key}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read memory for %s", key)
	}

	var fd fileData
	if err := json.Unmarshal(data, &fd); err != nil {
		return nil, errors.Wrapf(err, "failed to decode memory for %s", key)
	}
	if len(fd.Entries) == 0 {
		return nil, &NotFoundError{Key: key}
	}
	return fd.Entries, nil
}

// preserveCorrupt copies unreadable file contents next to the original as
// <key>.json.corrupt-<unix nanos> and returns the copy's path
func preserveCorrupt(path string, data []byte) (string, error) {
	backup := fmt.Sprintf("%s%s%d", path, corruptSuffix, time.Now().UnixNano())
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return "", err
	}
	return backup, nil
}

func (s *Files) Keys(context.Context) ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read memory directory")
	}

	keys := []string{}
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, fileSuffix))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Files) Close() error {
	return nil
}
