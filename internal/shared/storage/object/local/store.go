package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"filegate/internal/shared/storage/object"
)

const (
	objectsDir = "objects"
	metaDir    = "meta"
	tmpDir     = "tmp"
)

// Store implements ObjectStore using the local filesystem.
type Store struct {
	baseDir string
}

// New creates a new local object store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Put writes exactly size bytes from body under key, replacing any previous object.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	objPath, metaPath, err := s.paths(key)
	if err != nil {
		return err
	}

	staging := filepath.Join(s.baseDir, tmpDir)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmpPath := filepath.Join(staging, uuid.NewString())

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer os.Remove(tmpPath)

	written, copyErr := io.CopyN(f, body, size)
	closeErr := f.Close()
	if copyErr != nil {
		if errors.Is(copyErr, io.EOF) {
			copyErr = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("write body (%d of %d bytes): %w", written, size, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close file: %w", closeErr)
	}

	if err := os.MkdirAll(filepath.Dir(objPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.Rename(tmpPath, objPath); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return s.writeMeta(metaPath, metadata)
}

// Get opens a stored object for reading.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	objPath, _, err := s.paths(key)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(objPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, object.ErrNotFound
		}
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}
	return f, info.Size(), nil
}

// Delete removes the object and its metadata. Missing objects are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	objPath, metaPath, err := s.paths(key)
	if err != nil {
		return err
	}
	if err := os.Remove(objPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Remove(metaPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Head stats the object without opening it.
func (s *Store) Head(ctx context.Context, key string) (object.HeadResult, error) {
	if err := ctx.Err(); err != nil {
		return object.HeadResult{}, err
	}
	objPath, metaPath, err := s.paths(key)
	if err != nil {
		return object.HeadResult{}, err
	}

	info, err := os.Stat(objPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return object.HeadResult{Found: false}, nil
		}
		return object.HeadResult{}, err
	}
	if info.IsDir() {
		return object.HeadResult{Found: false}, nil
	}

	meta, err := readMeta(metaPath)
	if err != nil {
		return object.HeadResult{}, err
	}
	return object.HeadResult{Found: true, Size: info.Size(), Metadata: meta}, nil
}

// List walks the object tree and returns keys starting with prefix, sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := filepath.Join(s.baseDir, objectsDir)
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}

	keys := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}

func (s *Store) paths(key string) (string, string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.baseDir, objectsDir, clean),
		filepath.Join(s.baseDir, metaDir, clean+".json"),
		nil
}

func (s *Store) writeMeta(path string, metadata map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func readMeta(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	meta := map[string]string{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return meta, nil
}

var _ object.ObjectStore = (*Store)(nil)
