package infra

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

const manifestFileName = "package.json"

// packageManifest is the subset of package.json we read.
type packageManifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// PackageJSONReader implements domain.ManifestReader for package.json.
type PackageJSONReader struct{}

// NewPackageJSONReader creates a manifest reader.
func NewPackageJSONReader() *PackageJSONReader {
	return &PackageJSONReader{}
}

// Dependencies returns dependencies and devDependencies merged; a package
// listed in both keeps its devDependencies version.
func (r *PackageJSONReader) Dependencies(projectDir string) (map[string]string, error) {
	path := filepath.Join(projectDir, manifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoManifest, projectDir)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var manifest packageManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	deps := make(map[string]string, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for name, version := range manifest.Dependencies {
		deps[name] = version
	}
	for name, version := range manifest.DevDependencies {
		deps[name] = version
	}
	return deps, nil
}

// Ensure PackageJSONReader implements domain.ManifestReader.
var _ domain.ManifestReader = (*PackageJSONReader)(nil)
