package infra

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

// JSONRegistryStore implements domain.RegistryStore with pretty-printed JSON
// marker files.
type JSONRegistryStore struct{}

// NewJSONRegistryStore creates a registry store.
func NewJSONRegistryStore() *JSONRegistryStore {
	return &JSONRegistryStore{}
}

// Load reads the registry at path. Missing files are empty registries.
// Undecodable files are empty registries plus ErrMalformedRegistry.
func (s *JSONRegistryStore) Load(path string) (domain.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.NewRegistry(), nil
		}
		return domain.NewRegistry(), fmt.Errorf("failed to read registry %s: %w", path, err)
	}

	var registry domain.Registry
	if err := json.Unmarshal(data, &registry); err != nil {
		return domain.NewRegistry(), fmt.Errorf("%w: %s: %v", domain.ErrMalformedRegistry, path, err)
	}
	if registry == nil {
		registry = domain.NewRegistry()
	}
	return registry.Normalize(), nil
}

// Save writes the registry atomically (write + rename), creating parent
// directories as needed.
func (s *JSONRegistryStore) Save(registry domain.Registry, path string) error {
	if registry == nil {
		registry = domain.NewRegistry()
	}
	data, err := json.MarshalIndent(registry.Normalize(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	// Unique per process so concurrent writers never share a temp file.
	tmpPath := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	return nil
}

// Latest returns the most recently modified readable file among paths.
// Ties keep the earlier path. Returns "" when none can be stat'ed.
func (s *JSONRegistryStore) Latest(paths []string) string {
	var (
		latest   string
		latestAt time.Time
	)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if latest == "" || info.ModTime().After(latestAt) {
			latest = path
			latestAt = info.ModTime()
		}
	}
	return latest
}

// Ensure JSONRegistryStore implements domain.RegistryStore.
var _ domain.RegistryStore = (*JSONRegistryStore)(nil)
