package search

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

// Walker performs bounded breadth-first traversals of a single root.
// A Walker holds no per-walk state and is safe for concurrent use.
type Walker struct {
	skip    SkipSet
	maxDirs int
}

// NewWalker creates a walker that never descends into skip and expands at
// most maxDirs directories per walk (0 means unbounded).
func NewWalker(skip SkipSet, maxDirs int) *Walker {
	return &Walker{skip: skip, maxDirs: maxDirs}
}

// visitFunc sees every successfully listed directory with all of its entries,
// including ones the skip set will not descend into.
type visitFunc func(dir string, entries []fs.DirEntry)

// FindMarkers returns every file named marker under root.
func (w *Walker) FindMarkers(ctx context.Context, root, marker string) domain.WalkResult {
	var files []string
	result := w.walk(ctx, root, func(dir string, entries []fs.DirEntry) {
		for _, entry := range entries {
			if entry.IsDir() || w.skip.Skips(entry.Name()) {
				continue
			}
			if entry.Name() == marker {
				files = append(files, filepath.Join(dir, entry.Name()))
			}
		}
	})
	result.Files = files
	return result
}

// FindPackages probes the install directory of every project root under root
// for the named packages and returns name -> install paths found.
func (w *Walker) FindPackages(ctx context.Context, root string, packages []string) domain.WalkResult {
	found := make(map[string][]string)
	result := w.walk(ctx, root, func(dir string, entries []fs.DirEntry) {
		names := make(map[string]struct{}, len(entries))
		for _, entry := range entries {
			names[entry.Name()] = struct{}{}
		}
		if !IsProjectRoot(names) {
			return
		}
		if _, ok := names[domain.InstallDirName]; !ok {
			return
		}

		installDir := filepath.Join(dir, domain.InstallDirName)
		if info, err := os.Stat(installDir); err != nil || !info.IsDir() {
			return
		}
		for _, pkg := range packages {
			candidate := filepath.Join(installDir, filepath.FromSlash(pkg))
			if _, err := os.Stat(candidate); err == nil {
				found[pkg] = append(found[pkg], candidate)
			}
		}
	})
	result.Packages = found
	return result
}

// walk runs the BFS. Listing failures below the root are swallowed; failure to
// list the root itself marks the result as an error.
func (w *Walker) walk(ctx context.Context, root string, visit visitFunc) domain.WalkResult {
	result := domain.WalkResult{Root: root, Status: domain.WalkOK}
	queue := []string{root}

	for len(queue) > 0 {
		if w.maxDirs > 0 && result.Visited >= w.maxDirs {
			result.Truncated = true
			break
		}
		if err := ctx.Err(); err != nil {
			result.Status = domain.WalkCancelled
			result.Err = err
			break
		}

		dir := queue[0]
		queue[0] = ""
		queue = queue[1:]
		result.Visited++

		entries, err := os.ReadDir(dir)
		if err != nil {
			if dir == root {
				result.Status = domain.WalkError
				result.Err = fmt.Errorf("failed to list search root: %w", err)
				return result
			}
			continue
		}

		visit(dir, entries)

		for _, entry := range entries {
			// Symlinked directories report as non-directories and are not followed.
			if entry.IsDir() && !w.skip.Skips(entry.Name()) {
				queue = append(queue, filepath.Join(dir, entry.Name()))
			}
		}
	}

	return result
}
