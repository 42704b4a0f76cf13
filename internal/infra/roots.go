package infra

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"

	"github.com/eliteGoblin/bluecore/internal/domain"
	"github.com/eliteGoblin/bluecore/internal/search"
)

// commonProjectDirs are home subdirectories searched when present.
var commonProjectDirs = []string{"Documents", "Projects", "Desktop", "Code", "Development"}

// removableMountPrefixes hold user-visible volumes on unix-like systems.
var removableMountPrefixes = []string{"/media/", "/mnt/", "/run/media/", "/Volumes/"}

// PartitionLister enumerates mounted partitions (disk.Partitions in production).
type PartitionLister func(all bool) ([]disk.PartitionStat, error)

// RootsOptions selects the directories a search starts from.
type RootsOptions struct {
	Home          string
	Cwd           string
	DataDir       string
	Extra         []string
	IncludeDrives bool
}

// SearchRoots implements domain.RootProvider.
type SearchRoots struct {
	opts       RootsOptions
	partitions PartitionLister
	goos       string
	logger     *zap.Logger
}

// NewSearchRoots creates a root provider backed by gopsutil partitions.
func NewSearchRoots(opts RootsOptions, logger *zap.Logger) *SearchRoots {
	return NewSearchRootsWithLister(opts, disk.Partitions, runtime.GOOS, logger)
}

// NewSearchRootsWithLister creates a root provider with a custom partition
// source and OS name (for testing).
func NewSearchRootsWithLister(opts RootsOptions, lister PartitionLister, goos string, logger *zap.Logger) *SearchRoots {
	return &SearchRoots{opts: opts, partitions: lister, goos: goos, logger: logger}
}

// Roots returns home, the data dir, the working directory, common project
// folders that exist, configured extras, then drive roots.
func (r *SearchRoots) Roots() []string {
	var roots []string
	add := func(paths ...string) {
		for _, p := range paths {
			if p != "" {
				roots = append(roots, p)
			}
		}
	}

	add(r.opts.Home, r.opts.DataDir, r.opts.Cwd)
	if r.opts.Home != "" {
		for _, name := range commonProjectDirs {
			dir := filepath.Join(r.opts.Home, name)
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				add(dir)
			}
		}
	}
	for _, extra := range r.opts.Extra {
		add(expandHome(extra, r.opts.Home))
	}
	if r.opts.IncludeDrives {
		add(r.drives()...)
	}

	return search.UniqueRoots(roots)
}

// drives returns every partition root on Windows and removable or
// secondary mounts elsewhere.
func (r *SearchRoots) drives() []string {
	if r.partitions == nil {
		return nil
	}
	parts, err := r.partitions(false)
	if err != nil {
		r.logger.Warn("failed to list partitions", zap.Error(err))
		return nil
	}

	var out []string
	for _, p := range parts {
		mount := p.Mountpoint
		if mount == "" {
			continue
		}
		if r.goos == "windows" {
			if !strings.HasSuffix(mount, `\`) {
				mount += `\`
			}
			out = append(out, mount)
			continue
		}
		for _, prefix := range removableMountPrefixes {
			if strings.HasPrefix(mount, prefix) {
				out = append(out, mount)
				break
			}
		}
	}
	return out
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// Ensure SearchRoots implements domain.RootProvider.
var _ domain.RootProvider = (*SearchRoots)(nil)
