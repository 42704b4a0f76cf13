package usecase

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

// Resolution is a registry entry whose install can be reused.
type Resolution struct {
	Version     string // registry version key that matched
	InstallPath string // first recorded install path present on disk
}

// Resolver picks a reusable install for a declared dependency.
type Resolver struct {
	fs domain.FileSystemManager
}

// NewResolver creates a resolver checking install paths through fs.
func NewResolver(fs domain.FileSystemManager) *Resolver {
	return &Resolver{fs: fs}
}

// Resolve tries the exact declared version key first, then the highest
// recorded version satisfying the declared range. Only entries with an
// install path that still exists qualify.
func (r *Resolver) Resolve(registry domain.Registry, name, declared string) (Resolution, bool) {
	if entry, ok := registry.Lookup(name, declared); ok {
		if path := r.firstExisting(entry.InstallPaths); path != "" {
			return Resolution{Version: declared, InstallPath: path}, true
		}
	}

	constraint, err := semver.NewConstraint(declared)
	if err != nil {
		return Resolution{}, false
	}
	for _, key := range SortVersions(registry.Versions(name)) {
		if key == declared {
			continue
		}
		version, ok := parseVersion(key)
		if !ok || !constraint.Check(version) {
			continue
		}
		entry, _ := registry.Lookup(name, key)
		if path := r.firstExisting(entry.InstallPaths); path != "" {
			return Resolution{Version: key, InstallPath: path}, true
		}
	}
	return Resolution{}, false
}

func (r *Resolver) firstExisting(paths []string) string {
	for _, p := range paths {
		if r.fs.Exists(p) {
			return p
		}
	}
	return ""
}

// SortVersions orders version keys newest first. Keys that are not
// versions (ranges, tags) follow in lexical order.
func SortVersions(keys []string) []string {
	type keyed struct {
		key     string
		version *semver.Version
	}
	var versions, others []keyed
	for _, key := range keys {
		if v, err := semver.NewVersion(key); err == nil {
			versions = append(versions, keyed{key, v})
		} else {
			others = append(others, keyed{key: key})
		}
	}

	sort.SliceStable(versions, func(i, j int) bool {
		if c := versions[i].version.Compare(versions[j].version); c != 0 {
			return c > 0
		}
		return versions[i].key < versions[j].key
	})
	sort.Slice(others, func(i, j int) bool { return others[i].key < others[j].key })

	out := make([]string, 0, len(keys))
	for _, k := range versions {
		out = append(out, k.key)
	}
	for _, k := range others {
		out = append(out, k.key)
	}
	return out
}

// parseVersion accepts plain versions and the common single-operator
// prefixes recorded as keys ("^1.2.3", "~1.2.3", "=1.2.3").
func parseVersion(key string) (*semver.Version, bool) {
	if v, err := semver.NewVersion(key); err == nil {
		return v, true
	}
	trimmed := strings.TrimLeft(key, "^~= ")
	if trimmed == key || trimmed == "" {
		return nil, false
	}
	v, err := semver.NewVersion(trimmed)
	if err != nil {
		return nil, false
	}
	return v, true
}
