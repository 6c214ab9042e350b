package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/corpora-dev/corpora/pkg/logger"
)

// FSStore stores content on the local filesystem under a root directory.
// It is the default backend for single-node deployments and tests.
type FSStore struct {
	root string
	log  *slog.Logger
}

// NewFSStore creates a filesystem-backed content store rooted at dir
func NewFSStore(dir string, log *slog.Logger) (*FSStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage root dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	log = log.With(logger.Scope("storage.fs"))
	log.Info("filesystem content store initialized", slog.String("root", dir))

	return &FSStore{root: dir, log: log}, nil
}

// path resolves a key to an on-disk path, rejecting traversal outside root.
func (s *FSStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Save writes data to the key's path, creating parent directories as needed
func (s *FSStore) Save(ctx context.Context, key string, data io.Reader, size int64, opts SaveOptions) (*SaveResult, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("create object dir: %w", err)
	}

	tmp := p + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create object: %w", err)
	}

	h := md5.New()
	written, err := io.Copy(io.MultiWriter(f, h), data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("write object: %w", err)
	}

	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("finalize object: %w", err)
	}

	s.log.Debug("object saved",
		slog.String("key", key),
		slog.Int64("size", written),
	)

	return &SaveResult{
		Key:         key,
		ETag:        hex.EncodeToString(h.Sum(nil)),
		Size:        written,
		ContentType: opts.ContentType,
	}, nil
}

// Open returns a reader for the object
func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("object %q not found: %w", key, err)
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

// Delete removes the object. Missing objects are not an error.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	s.log.Debug("object deleted", slog.String("key", key))
	return nil
}

// Exists checks if an object exists
func (s *FSStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}
