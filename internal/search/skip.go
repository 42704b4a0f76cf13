// Package search implements bounded, concurrent discovery of marker files and
// package installations across many filesystem roots.
package search

import (
	"strings"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

// systemDirs are never worth descending into on any platform.
var systemDirs = []string{
	"$RECYCLE.BIN",
	"System Volume Information",
	"Windows",
	"Program Files",
	"Program Files (x86)",
	"ProgramData",
}

// SkipSet is an immutable set of directory names excluded from traversal.
// Names match the final path component exactly (case-sensitive).
type SkipSet struct {
	names      map[string]struct{}
	skipHidden bool
}

// NewSkipSet builds a skip set. When skipHidden is set, any name starting
// with "." is skipped as well.
func NewSkipSet(skipHidden bool, names ...string) SkipSet {
	set := SkipSet{
		names:      make(map[string]struct{}, len(names)),
		skipHidden: skipHidden,
	}
	for _, name := range names {
		set.names[name] = struct{}{}
	}
	return set
}

// SystemSkipSet skips OS-managed directories only.
func SystemSkipSet() SkipSet {
	return NewSkipSet(false, systemDirs...)
}

// MarkerSkipSet is the default policy for the marker-file search.
func MarkerSkipSet() SkipSet {
	return NewSkipSet(true, append([]string{domain.InstallDirName}, systemDirs...)...)
}

// PackageSkipSet is the default policy for the package-install search.
// node_modules stays searchable: it is what this search is looking for.
func PackageSkipSet() SkipSet {
	return NewSkipSet(true, systemDirs...)
}

// Skips reports whether an entry with this name must be ignored.
func (s SkipSet) Skips(name string) bool {
	if s.skipHidden && strings.HasPrefix(name, ".") {
		return true
	}
	_, ok := s.names[name]
	return ok
}

// With returns a copy of s that also skips names.
func (s SkipSet) With(names ...string) SkipSet {
	out := NewSkipSet(s.skipHidden)
	for name := range s.names {
		out.names[name] = struct{}{}
	}
	for _, name := range names {
		out.names[name] = struct{}{}
	}
	return out
}
