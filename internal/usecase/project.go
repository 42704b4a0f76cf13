package usecase

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

// Project manages the marker file of a single project directory.
type Project struct {
	dir      string
	store    domain.RegistryStore
	manifest domain.ManifestReader
	fs       domain.FileSystemManager
	now      domain.Clock
	logger   *zap.Logger
}

// NewProject creates a project use case for dir.
func NewProject(
	dir string,
	store domain.RegistryStore,
	manifest domain.ManifestReader,
	fs domain.FileSystemManager,
	now domain.Clock,
	logger *zap.Logger,
) *Project {
	if now == nil {
		now = time.Now
	}
	return &Project{dir: dir, store: store, manifest: manifest, fs: fs, now: now, logger: logger}
}

// MarkerPath returns the project's marker file.
func (p *Project) MarkerPath() string {
	return domain.MarkerPath(p.dir)
}

// Init creates an empty marker file unless one exists.
// Returns whether a file was created.
func (p *Project) Init() (bool, error) {
	path := p.MarkerPath()
	if p.fs.Exists(path) {
		p.logger.Info("marker file already exists", zap.String("path", path))
		return false, nil
	}
	if err := p.store.Save(domain.NewRegistry(), path); err != nil {
		return false, fmt.Errorf("failed to create marker file: %w", err)
	}
	p.logger.Info("created marker file", zap.String("path", path))
	return true, nil
}

// Dependencies returns the project's declared dependencies.
func (p *Project) Dependencies() (map[string]string, error) {
	return p.manifest.Dependencies(p.dir)
}

// Record notes every declared dependency in registry: the project dir joins
// its locations, its install path joins installPaths when present on disk,
// and lastUsed moves to now. registry is modified and returned.
func (p *Project) Record(registry domain.Registry, deps map[string]string) domain.Registry {
	if registry == nil {
		registry = domain.NewRegistry()
	}
	at := p.now()
	for name, version := range deps {
		installPath := domain.InstallPath(p.dir, name)
		if !p.fs.Exists(installPath) {
			installPath = ""
		}
		registry.Record(name, version, p.dir, installPath, at)
	}
	return registry
}

// Update loads the project's marker, records its current dependencies and
// saves it back.
func (p *Project) Update() (domain.Registry, error) {
	deps, err := p.Dependencies()
	if err != nil {
		return nil, err
	}
	registry, err := p.store.Load(p.MarkerPath())
	if err != nil {
		p.logger.Warn("replacing unreadable marker file",
			zap.String("path", p.MarkerPath()),
			zap.Error(err))
	}
	registry = p.Record(registry, deps)
	if err := p.store.Save(registry, p.MarkerPath()); err != nil {
		return nil, fmt.Errorf("failed to save marker file: %w", err)
	}
	return registry, nil
}
