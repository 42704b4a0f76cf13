// Package usecase contains application business logic.
package usecase

import (
	"context"
	"errors"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

// defaultLoadConcurrency bounds concurrent registry reads.
const defaultLoadConcurrency = 8

// Discovery finds and loads registries and package installs on disk.
type Discovery struct {
	searcher  domain.Searcher
	roots     domain.RootProvider
	store     domain.RegistryStore
	history   domain.HistoryStore // optional
	cwd       string
	loadLimit int
	logger    *zap.Logger
}

// NewDiscovery creates a discovery use case. history may be nil.
func NewDiscovery(
	searcher domain.Searcher,
	roots domain.RootProvider,
	store domain.RegistryStore,
	history domain.HistoryStore,
	cwd string,
	logger *zap.Logger,
) *Discovery {
	return &Discovery{
		searcher:  searcher,
		roots:     roots,
		store:     store,
		history:   history,
		cwd:       cwd,
		loadLimit: defaultLoadConcurrency,
		logger:    logger,
	}
}

// FindMarkers searches every root for marker files. The working directory's
// marker is always included when present, even if the search missed it.
func (d *Discovery) FindMarkers(ctx context.Context) ([]string, domain.ScanSummary) {
	report := d.searcher.FindMarkers(ctx, d.roots.Roots())
	d.recordScan(report.Summary)

	files := report.Files
	if d.cwd != "" {
		local := domain.MarkerPath(d.cwd)
		if info, err := os.Stat(local); err == nil && !info.IsDir() && !containsString(files, local) {
			files = append(files, local)
			sort.Strings(files)
		}
	}

	d.logger.Info("marker search finished",
		zap.String("run_id", report.Summary.RunID),
		zap.Int("files", len(files)),
		zap.Int("timed_out", report.Summary.TimedOut),
		zap.Bool("global_timeout", report.Summary.GlobalTimeout))

	return files, report.Summary
}

// FindPackages searches every root for installs of the named packages.
func (d *Discovery) FindPackages(ctx context.Context, names []string) (map[string][]string, domain.ScanSummary) {
	report := d.searcher.FindPackages(ctx, d.roots.Roots(), names)
	d.recordScan(report.Summary)

	d.logger.Info("package search finished",
		zap.String("run_id", report.Summary.RunID),
		zap.Int("requested", len(names)),
		zap.Int("found", len(report.Packages)),
		zap.Int("timed_out", report.Summary.TimedOut))

	return report.Packages, report.Summary
}

// LoadRegistries reads every path concurrently. Unreadable or malformed
// files contribute an empty registry. Output order matches paths.
func (d *Discovery) LoadRegistries(ctx context.Context, paths []string) []domain.Registry {
	registries := make([]domain.Registry, len(paths))

	var g errgroup.Group
	g.SetLimit(d.loadLimit)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			registries[i] = domain.NewRegistry()
			if ctx.Err() != nil {
				return nil
			}
			reg, err := d.store.Load(path)
			if err != nil {
				level := d.logger.Warn
				if !errors.Is(err, domain.ErrMalformedRegistry) {
					level = d.logger.Debug
				}
				level("ignoring unreadable registry", zap.String("path", path), zap.Error(err))
			}
			if reg != nil {
				registries[i] = reg
			}
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	return registries
}

// Merge loads paths and merges them in order.
func (d *Discovery) Merge(ctx context.Context, paths []string) domain.Registry {
	return domain.Merge(d.LoadRegistries(ctx, paths)...)
}

// Existing finds every marker file and merges them into one registry.
func (d *Discovery) Existing(ctx context.Context) (domain.Registry, []string) {
	files, _ := d.FindMarkers(ctx)
	return d.Merge(ctx, files), files
}

// Latest returns the most recently modified marker file ("" if none).
func (d *Discovery) Latest(ctx context.Context) string {
	files, _ := d.FindMarkers(ctx)
	return d.store.Latest(files)
}

// PackageRegistry converts package search results into a registry. Each
// install path is recorded under the declared version with its owning
// project directory as the location.
func PackageRegistry(found map[string][]string, declared map[string]string, at time.Time) domain.Registry {
	registry := domain.NewRegistry()
	for name, paths := range found {
		version, ok := declared[name]
		if !ok {
			continue
		}
		for _, p := range paths {
			registry.Record(name, version, domain.ProjectRootOf(p, name), p, at)
		}
	}
	return registry
}

func (d *Discovery) recordScan(summary domain.ScanSummary) {
	if d.history == nil {
		return
	}
	if err := d.history.Append(summary); err != nil {
		d.logger.Warn("failed to record scan history",
			zap.String("run_id", summary.RunID),
			zap.Error(err))
	}
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
