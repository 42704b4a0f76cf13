package usecase

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

// RebaseOptions controls one rebase run.
type RebaseOptions struct {
	DryRun             bool
	GlobalRegistryPath string // "" skips the global save
}

// ReusedPackage is a dependency satisfied from an existing install.
type ReusedPackage struct {
	Name    string
	Version string
	Source  string
	Linked  bool // false in dry-run or when the source is already in place
}

// RebaseResult reports what a rebase did (or would do, in dry-run).
type RebaseResult struct {
	Dependencies   map[string]string
	MarkerFiles    []string        // markers merged as the starting registry
	Reused         []ReusedPackage // sorted by name
	Installed      []string        // names handed to the package manager, sorted
	PackageManager string
	Written        []string // marker files saved
	DryRun         bool
}

// Rebaser points a project's dependencies at installs that already exist
// elsewhere on disk and installs the rest.
type Rebaser struct {
	project   *Project
	discovery *Discovery
	resolver  *Resolver
	fs        domain.FileSystemManager
	installer domain.Installer
	store     domain.RegistryStore
	logger    *zap.Logger
}

// NewRebaser creates a rebase use case.
func NewRebaser(
	project *Project,
	discovery *Discovery,
	resolver *Resolver,
	fs domain.FileSystemManager,
	installer domain.Installer,
	store domain.RegistryStore,
	logger *zap.Logger,
) *Rebaser {
	return &Rebaser{
		project:   project,
		discovery: discovery,
		resolver:  resolver,
		fs:        fs,
		installer: installer,
		store:     store,
		logger:    logger,
	}
}

// Rebase runs: discover registries, classify dependencies as reusable or
// missing, search disk for the missing ones, link reusable installs (falling
// back to installing), install the rest, record the project, save.
func (r *Rebaser) Rebase(ctx context.Context, opts RebaseOptions) (*RebaseResult, error) {
	deps, err := r.project.Dependencies()
	if err != nil {
		return nil, err
	}
	result := &RebaseResult{Dependencies: deps, DryRun: opts.DryRun}

	existing, markers := r.discovery.Existing(ctx)
	result.MarkerFiles = markers

	reusable := make(map[string]ReusedPackage)
	var missing []string
	for _, name := range sortedKeys(deps) {
		if res, ok := r.resolver.Resolve(existing, name, deps[name]); ok {
			reusable[name] = ReusedPackage{Name: name, Version: res.Version, Source: res.InstallPath}
			continue
		}
		missing = append(missing, name)
	}

	discovered := domain.NewRegistry()
	if len(missing) > 0 {
		found, _ := r.discovery.FindPackages(ctx, missing)
		discovered = PackageRegistry(found, deps, r.project.now())

		var still []string
		for _, name := range missing {
			if source := r.pickSource(found[name], name); source != "" {
				reusable[name] = ReusedPackage{Name: name, Version: deps[name], Source: source}
				continue
			}
			still = append(still, name)
		}
		missing = still
	}

	toInstall := make(map[string]string, len(missing))
	for _, name := range missing {
		toInstall[name] = deps[name]
	}

	if !opts.DryRun {
		r.linkAll(reusable, toInstall, deps)
	}
	for _, name := range sortedKeys(reusableVersions(reusable)) {
		result.Reused = append(result.Reused, reusable[name])
	}
	result.Installed = sortedKeys(toInstall)

	if !opts.DryRun && len(toInstall) > 0 {
		used, err := r.installer.Install(ctx, r.project.dir, toInstall)
		result.PackageManager = used
		if err != nil {
			return result, fmt.Errorf("failed to install missing packages: %w", err)
		}
	}

	registry := r.project.Record(domain.Merge(existing, discovered), deps)

	r.logger.Info("rebase planned",
		zap.String("project", r.project.dir),
		zap.Int("dependencies", len(deps)),
		zap.Int("reused", len(result.Reused)),
		zap.Int("installed", len(result.Installed)),
		zap.Bool("dry_run", opts.DryRun))

	if opts.DryRun {
		return result, nil
	}

	written, err := r.save(registry, opts.GlobalRegistryPath, networkLocations(discovered))
	result.Written = written
	return result, err
}

// linkAll links every reusable install into the project. Failed links move
// the package to toInstall.
func (r *Rebaser) linkAll(reusable map[string]ReusedPackage, toInstall, deps map[string]string) {
	for _, name := range sortedKeys(reusableVersions(reusable)) {
		pkg := reusable[name]
		target := domain.InstallPath(r.project.dir, name)
		if pkg.Source == target {
			continue
		}
		if err := r.fs.Link(pkg.Source, target); err != nil {
			r.logger.Warn("link failed, installing instead",
				zap.String("package", name),
				zap.String("source", pkg.Source),
				zap.Error(err))
			delete(reusable, name)
			toInstall[name] = deps[name]
			continue
		}
		pkg.Linked = true
		reusable[name] = pkg
		r.logger.Info("linked package",
			zap.String("package", name),
			zap.String("source", pkg.Source))
	}
}

// pickSource returns the first install that belongs to another project.
func (r *Rebaser) pickSource(paths []string, name string) string {
	own := domain.InstallPath(r.project.dir, name)
	for _, p := range paths {
		if p != own {
			return p
		}
	}
	return ""
}

// save writes the registry to the project, the global location, and merges
// it into the marker file of every project a package was discovered in.
func (r *Rebaser) save(registry domain.Registry, globalPath string, network []string) ([]string, error) {
	var written []string

	projectPath := r.project.MarkerPath()
	if err := r.store.Save(registry, projectPath); err != nil {
		return written, fmt.Errorf("failed to save project registry: %w", err)
	}
	written = append(written, projectPath)

	if globalPath != "" {
		if err := r.store.Save(registry, globalPath); err != nil {
			return written, fmt.Errorf("failed to save global registry: %w", err)
		}
		written = append(written, globalPath)
	}

	for _, location := range network {
		if location == r.project.dir {
			continue
		}
		path := domain.MarkerPath(location)
		current, err := r.store.Load(path)
		if err != nil {
			r.logger.Debug("replacing unreadable marker file", zap.String("path", path), zap.Error(err))
		}
		if err := r.store.Save(domain.Merge(current, registry), path); err != nil {
			r.logger.Warn("failed to update marker file", zap.String("path", path), zap.Error(err))
			continue
		}
		written = append(written, path)
	}
	return written, nil
}

// networkLocations returns every location recorded in registry, sorted.
func networkLocations(registry domain.Registry) []string {
	seen := make(map[string]string)
	for _, entry := range registry {
		for _, v := range entry.Versions {
			for _, loc := range v.Locations {
				if loc != "" {
					seen[loc] = loc
				}
			}
		}
	}
	return sortedKeys(seen)
}

func reusableVersions(reusable map[string]ReusedPackage) map[string]string {
	out := make(map[string]string, len(reusable))
	for name, pkg := range reusable {
		out[name] = pkg.Version
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
