package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store loads metaform definitions from a directory of .json/.yaml files
// and indexes them by ID. A form whose file declares no ID is keyed by its
// file name without extension.
type Store struct {
	dir    string
	logger *slog.Logger

	mu        sync.RWMutex
	metaforms map[string]*Metaform
}

// NewStore creates a schema store for the given directory. Call Load before
// first use.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:       dir,
		logger:    logger,
		metaforms: make(map[string]*Metaform),
	}
}

// Load reads every metaform file in the store directory, replacing the
// current index. Files that fail to parse are logged and skipped so one
// broken schema does not take down the rest.
func (s *Store) Load() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading schema directory %s: %w", s.dir, err)
	}

	loaded := make(map[string]*Metaform)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		metaform, err := loadFile(path, ext)
		if err != nil {
			s.logger.Warn("skipping unparseable metaform file", "path", path, "error", err)
			continue
		}
		if metaform.ID == "" {
			metaform.ID = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		if _, exists := loaded[metaform.ID]; exists {
			s.logger.Warn("duplicate metaform id, keeping first", "id", metaform.ID, "path", path)
			continue
		}
		loaded[metaform.ID] = metaform
	}

	s.mu.Lock()
	s.metaforms = loaded
	s.mu.Unlock()

	s.logger.Info("loaded metaform schemas", "dir", s.dir, "count", len(loaded))
	return nil
}

func loadFile(path, ext string) (*Metaform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var metaform Metaform
	if ext == ".json" {
		if err := json.Unmarshal(data, &metaform); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &metaform); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	return &metaform, nil
}

// Get returns the metaform with the given ID, or nil when unknown.
func (s *Store) Get(id string) *Metaform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metaforms[id]
}

// List returns all loaded metaforms ordered by ID.
func (s *Store) List() []*Metaform {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Metaform, 0, len(s.metaforms))
	for _, m := range s.metaforms {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reload re-reads the schema directory.
func (s *Store) Reload() error {
	return s.Load()
}
