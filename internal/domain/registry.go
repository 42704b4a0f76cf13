package domain

import (
	"sort"
	"time"
)

// NewRegistry returns an empty registry.
func NewRegistry() Registry {
	return make(Registry)
}

// Lookup returns the entry recorded for pkg@version.
func (r Registry) Lookup(pkg, version string) (VersionEntry, bool) {
	entry, ok := r[pkg]
	if !ok || entry.Versions == nil {
		return VersionEntry{}, false
	}
	v, ok := entry.Versions[version]
	return v, ok
}

// Names returns package names in lexical order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Versions returns the version keys recorded for pkg, in lexical order.
func (r Registry) Versions(pkg string) []string {
	entry, ok := r[pkg]
	if !ok {
		return nil
	}
	versions := make([]string, 0, len(entry.Versions))
	for v := range entry.Versions {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// Record notes that location declared pkg@version and that it is installed at
// installPath (skipped when empty). lastUsed only moves forward.
// Record mutates r; callers own the registry they record into.
func (r Registry) Record(pkg, version, location, installPath string, at time.Time) {
	entry, ok := r[pkg]
	if !ok || entry.Versions == nil {
		entry = PackageEntry{Versions: make(map[string]VersionEntry)}
	}

	v, ok := entry.Versions[version]
	if !ok {
		v = VersionEntry{Locations: []string{}, InstallPaths: []string{}}
	}
	if location != "" {
		v.Locations = appendUnique(v.Locations, location)
	}
	if installPath != "" {
		v.InstallPaths = appendUnique(v.InstallPaths, installPath)
	}
	if stamp := NewTimestamp(at); stamp.After(v.LastUsed) {
		v.LastUsed = stamp
	}

	entry.Versions[version] = v
	r[pkg] = entry
}

// Normalize replaces nil slices and maps with empty ones so the document
// serializes with [] and {} instead of null.
func (r Registry) Normalize() Registry {
	for name, entry := range r {
		if entry.Versions == nil {
			entry.Versions = make(map[string]VersionEntry)
		}
		for version, v := range entry.Versions {
			if v.Locations == nil {
				v.Locations = []string{}
			}
			if v.InstallPaths == nil {
				v.InstallPaths = []string{}
			}
			entry.Versions[version] = v
		}
		r[name] = entry
	}
	return r
}

// Size returns the number of (package, version) pairs.
func (r Registry) Size() int {
	n := 0
	for _, entry := range r {
		n += len(entry.Versions)
	}
	return n
}

func appendUnique(dst []string, values ...string) []string {
	for _, value := range values {
		if !contains(dst, value) {
			dst = append(dst, value)
		}
	}
	return dst
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
