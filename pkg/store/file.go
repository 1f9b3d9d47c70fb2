package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"mercator-hq/underwriter/pkg/strategy"
)

// Extensions lists the file extensions FileStore reads.
var Extensions = []string{".yaml", ".yml", ".json"}

// FileStore loads strategies from YAML or JSON files on disk.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a file based store. The path can be either a single
// file or a directory; directories are walked recursively.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Path returns the file or directory the store reads.
func (s *FileStore) Path() string {
	return s.path
}

// ActiveStrategies loads every document under the store's path and returns
// those matching q.
func (s *FileStore) ActiveStrategies(ctx context.Context, q Query) ([]*strategy.EngineConfig, error) {
	configs, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return filter(configs, q), nil
}

// Load returns every strategy document under the store's path.
func (s *FileStore) Load(ctx context.Context) ([]*strategy.EngineConfig, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	if !info.IsDir() {
		return strategy.DecodeFile(s.path)
	}

	var configs []*strategy.EngineConfig
	err = filepath.WalkDir(s.path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !hasExtension(path) {
			return nil
		}

		docs, err := strategy.DecodeFile(path)
		if err != nil {
			s.logger.Warn("failed to load strategy file, skipping",
				"path", path,
				"error", err,
			)
			return nil
		}

		s.logger.Debug("loaded strategy file",
			"path", path,
			"strategies", len(docs),
		)
		configs = append(configs, docs...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", s.path, err)
	}

	s.logger.Info("loaded strategies from directory",
		"path", s.path,
		"strategy_count", len(configs),
	)

	return configs, nil
}

func hasExtension(path string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(path)))
}
