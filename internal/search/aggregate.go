package search

import (
	"path/filepath"
	"sort"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

// Aggregator unions walk results into deduplicated, sorted collections.
// Not safe for concurrent use; the dispatcher owns it.
type Aggregator struct {
	files    map[string]struct{}
	packages map[string]map[string]struct{}
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		files:    make(map[string]struct{}),
		packages: make(map[string]map[string]struct{}),
	}
}

// Add merges one walk result.
func (a *Aggregator) Add(result domain.WalkResult) {
	for _, file := range result.Files {
		a.files[filepath.Clean(file)] = struct{}{}
	}
	for pkg, paths := range result.Packages {
		set, ok := a.packages[pkg]
		if !ok {
			set = make(map[string]struct{}, len(paths))
			a.packages[pkg] = set
		}
		for _, p := range paths {
			set[filepath.Clean(p)] = struct{}{}
		}
	}
}

// Files returns every marker path seen, sorted.
func (a *Aggregator) Files() []string {
	return sortedKeys(a.files)
}

// Packages returns name -> install paths, each list sorted.
// Packages never found are absent.
func (a *Aggregator) Packages() map[string][]string {
	out := make(map[string][]string, len(a.packages))
	for pkg, set := range a.packages {
		if len(set) > 0 {
			out[pkg] = sortedKeys(set)
		}
	}
	return out
}

// Found is the number of distinct paths collected.
func (a *Aggregator) Found() int {
	n := len(a.files)
	for _, set := range a.packages {
		n += len(set)
	}
	return n
}

// Aggregate is a convenience for merging a fixed set of results.
func Aggregate(results ...domain.WalkResult) ([]string, map[string][]string) {
	agg := NewAggregator()
	for _, r := range results {
		agg.Add(r)
	}
	return agg.Files(), agg.Packages()
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
