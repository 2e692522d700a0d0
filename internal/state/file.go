package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"profilegate/internal/upstream"
)

const blockFile = "blocks.json"

// FileStore keeps one JSON file per session identity plus one for the block
// window. Writes go through a temp file and rename.
type FileStore struct {
	dir    string
	sealer *Sealer
}

func NewFileStore(dir string, sealer *Sealer) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("state: mkdir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, sealer: sealer}, nil
}

func (f *FileStore) sessionPath(identity string) string {
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, identity)
	return filepath.Join(f.dir, "session-"+safe+".json")
}

func (f *FileStore) LoadSession(_ context.Context, identity string) (*upstream.Session, error) {
	data, err := os.ReadFile(f.sessionPath(identity))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, upstream.ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(identity, data, f.sealer)
}

func (f *FileStore) SaveSession(_ context.Context, s *upstream.Session) error {
	data, err := encodeSession(s, f.sealer)
	if err != nil {
		return err
	}
	return writeAtomic(f.sessionPath(s.Identity), data)
}

func (f *FileStore) DeleteSession(_ context.Context, identity string) error {
	err := os.Remove(f.sessionPath(identity))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (f *FileStore) LoadGlobalBlock(_ context.Context) (time.Time, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, blockFile))
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	var rec blockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return time.Time{}, fmt.Errorf("state: decode %s: %w", blockFile, err)
	}
	return rec.GlobalBlockUntil, nil
}

func (f *FileStore) SaveGlobalBlock(_ context.Context, until time.Time) error {
	data, err := json.Marshal(blockRecord{GlobalBlockUntil: until})
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(f.dir, blockFile), data)
}

func (f *FileStore) Close() error { return nil }

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
