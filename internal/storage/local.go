package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LocalBackend implements Backend on the local filesystem.
type LocalBackend struct {
	basePath string
	logger   zerolog.Logger
}

// NewLocalBackend creates a filesystem backend rooted at basePath.
func NewLocalBackend(basePath string, logger zerolog.Logger) (*LocalBackend, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	return &LocalBackend{
		basePath: absPath,
		logger:   logger.With().Str("component", "local-storage").Logger(),
	}, nil
}

// fullPath resolves a storage key to an absolute filesystem path, rejecting
// keys that would escape the base directory.
func (b *LocalBackend) fullPath(path string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("path escapes storage root: %s", path)
	}
	return filepath.Join(b.basePath, cleaned), nil
}

// Write writes data atomically: to a temp file in the target directory,
// then rename.
func (b *LocalBackend) Write(ctx context.Context, path string, data []byte) error {
	fullPath, err := b.fullPath(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".secstore-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	b.logger.Debug().Str("path", path).Int("size", len(data)).Msg("Wrote file")
	return nil
}

// Read reads the object at path.
func (b *LocalBackend) Read(ctx context.Context, path string) ([]byte, error) {
	fullPath, err := b.fullPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// List returns the keys of all regular files under prefix.
func (b *LocalBackend) List(ctx context.Context, prefix string) ([]string, error) {
	searchPath, err := b.fullPath(prefix)
	if err != nil {
		return nil, fmt.Errorf("invalid prefix: %w", err)
	}

	results := []string{}
	err = filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		relPath, err := filepath.Rel(b.basePath, path)
		if err != nil {
			return err
		}
		results = append(results, filepath.ToSlash(relPath))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return results, nil
}

// Delete removes the object at path. Missing objects are ignored.
func (b *LocalBackend) Delete(ctx context.Context, path string) error {
	fullPath, err := b.fullPath(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	b.logger.Debug().Str("path", path).Msg("Deleted file")
	return nil
}

// DeletePrefix removes the whole subtree under prefix.
func (b *LocalBackend) DeletePrefix(ctx context.Context, prefix string) error {
	fullPath, err := b.fullPath(prefix)
	if err != nil {
		return fmt.Errorf("invalid prefix: %w", err)
	}

	if err := os.RemoveAll(fullPath); err != nil {
		return fmt.Errorf("failed to delete prefix: %w", err)
	}

	b.logger.Debug().Str("prefix", prefix).Msg("Deleted prefix")
	return nil
}

// Exists checks whether an object exists at path.
func (b *LocalBackend) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := b.fullPath(path)
	if err != nil {
		return false, fmt.Errorf("invalid path: %w", err)
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return true, nil
}

// Close is a no-op for local storage.
func (b *LocalBackend) Close() error {
	return nil
}

// BasePath returns the backend's root directory.
func (b *LocalBackend) BasePath() string {
	return b.basePath
}

// Type returns the storage type identifier.
func (b *LocalBackend) Type() string {
	return "local"
}
