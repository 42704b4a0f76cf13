package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

// Profile tunes one search variant.
type Profile struct {
	TaskTimeout   time.Duration
	GlobalTimeout time.Duration
	MaxDirs       int
	Skip          SkipSet
}

// EngineConfig configures both search variants.
type EngineConfig struct {
	Concurrency int
	MarkerName  string
	Markers     Profile
	Packages    Profile
}

const (
	DefaultConcurrency      = 6
	DefaultMarkerTimeout    = 30 * time.Second
	DefaultPackageTimeout   = 45 * time.Second
	DefaultMarkerMaxDirs    = 5000
	DefaultPackageMaxDirs   = 3000
	globalTimeoutMultiplier = 2
)

// DefaultEngineConfig returns the stock tunables. The global deadline of each
// variant is twice its per-root deadline.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Concurrency: DefaultConcurrency,
		MarkerName:  domain.MarkerFileName,
		Markers: Profile{
			TaskTimeout:   DefaultMarkerTimeout,
			GlobalTimeout: globalTimeoutMultiplier * DefaultMarkerTimeout,
			MaxDirs:       DefaultMarkerMaxDirs,
			Skip:          MarkerSkipSet(),
		},
		Packages: Profile{
			TaskTimeout:   DefaultPackageTimeout,
			GlobalTimeout: globalTimeoutMultiplier * DefaultPackageTimeout,
			MaxDirs:       DefaultPackageMaxDirs,
			Skip:          PackageSkipSet(),
		},
	}
}

// Engine implements domain.Searcher with a dispatcher per variant.
type Engine struct {
	markerName    string
	markerWalker  *Walker
	packageWalker *Walker
	markerPool    *Dispatcher
	packagePool   *Dispatcher
}

var _ domain.Searcher = (*Engine)(nil)

// NewEngine creates an engine.
func NewEngine(cfg EngineConfig, logger *zap.Logger) *Engine {
	if cfg.MarkerName == "" {
		cfg.MarkerName = domain.MarkerFileName
	}
	return &Engine{
		markerName:    cfg.MarkerName,
		markerWalker:  NewWalker(cfg.Markers.Skip, cfg.Markers.MaxDirs),
		packageWalker: NewWalker(cfg.Packages.Skip, cfg.Packages.MaxDirs),
		markerPool: NewDispatcher(Limits{
			Concurrency:   cfg.Concurrency,
			TaskTimeout:   cfg.Markers.TaskTimeout,
			GlobalTimeout: cfg.Markers.GlobalTimeout,
		}, logger.Named("markers")),
		packagePool: NewDispatcher(Limits{
			Concurrency:   cfg.Concurrency,
			TaskTimeout:   cfg.Packages.TaskTimeout,
			GlobalTimeout: cfg.Packages.GlobalTimeout,
		}, logger.Named("packages")),
	}
}

// FindMarkers implements domain.Searcher.
func (e *Engine) FindMarkers(ctx context.Context, roots []string) domain.SearchReport {
	return e.markerPool.Dispatch(ctx, domain.SearchMarkers, roots, func(ctx context.Context, root string) domain.WalkResult {
		return e.markerWalker.FindMarkers(ctx, root, e.markerName)
	})
}

// FindPackages implements domain.Searcher.
func (e *Engine) FindPackages(ctx context.Context, roots []string, packages []string) domain.SearchReport {
	if len(packages) == 0 {
		return e.packagePool.Dispatch(ctx, domain.SearchPackages, nil, nil)
	}
	return e.packagePool.Dispatch(ctx, domain.SearchPackages, roots, func(ctx context.Context, root string) domain.WalkResult {
		return e.packageWalker.FindPackages(ctx, root, packages)
	})
}
