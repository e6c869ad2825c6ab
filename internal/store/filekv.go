package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const tmpDirName = "tmp"

// FileKV stores each key as a file under dir.
//
// Files are fanned out by the first two hex chars of the key's SHA-256:
// <dir>/<xx>/<key>. Writes go to <dir>/tmp first and are renamed into place,
// so a reader never sees a half-written value.
type FileKV struct {
	dir string
}

// NewFileKV creates dir if needed and returns a FileKV rooted there.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", dir, err)
	}
	return &FileKV{dir: dir}, nil
}

// Dir returns the root directory.
func (s *FileKV) Dir() string {
	return s.dir
}

func (s *FileKV) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:1]), key)
}

// Get implements KV.
func (s *FileKV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Put implements KV.
func (s *FileKV) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	tmpDir := filepath.Join(s.dir, tmpDirName)
	if err := os.MkdirAll(tmpDir, 0o750); err != nil {
		return fmt.Errorf("create tmp directory: %w", err)
	}
	f, err := os.CreateTemp(tmpDir, "*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := f.Name()
	if _, err := f.Write(value); err != nil {
		return errors.Join(fmt.Errorf("write %s: %w", key, err), f.Close(), os.Remove(tmpPath))
	}
	if err := f.Close(); err != nil {
		return errors.Join(fmt.Errorf("close temp file: %w", err), os.Remove(tmpPath))
	}
	target := s.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return errors.Join(fmt.Errorf("create fan-out directory: %w", err), os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return errors.Join(fmt.Errorf("rename %s into place: %w", key, err), os.Remove(tmpPath))
	}
	return nil
}

// Delete implements KV.
func (s *FileKV) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys implements KV. Stray entries that do not match the fan-out layout are
// skipped.
func (s *FileKV) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store directory: %w", err)
	}
	var keys []string
	for _, entry := range entries {
		if !entry.IsDir() || !isFanOut(entry.Name()) {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || s.path(f.Name()) != filepath.Join(s.dir, entry.Name(), f.Name()) {
				continue
			}
			keys = append(keys, f.Name())
		}
	}
	return keys, nil
}

func isFanOut(name string) bool {
	if len(name) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		c := name[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
