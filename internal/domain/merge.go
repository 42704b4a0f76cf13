package domain

// Merge combines registries left to right into a new registry.
//
// A (package, version) pair seen for the first time is copied; later
// occurrences union their locations and install paths into the existing
// entry (existing order kept, new values appended) and advance lastUsed when
// strictly later. No key is ever dropped. Inputs are not modified.
func Merge(registries ...Registry) Registry {
	merged := NewRegistry()

	for _, registry := range registries {
		for pkg, pkgEntry := range registry {
			acc, ok := merged[pkg]
			if !ok {
				acc = PackageEntry{Versions: make(map[string]VersionEntry, len(pkgEntry.Versions))}
			}

			for version, incoming := range pkgEntry.Versions {
				existing, seen := acc.Versions[version]
				if !seen {
					acc.Versions[version] = VersionEntry{
						Locations:    appendUnique(make([]string, 0, len(incoming.Locations)), incoming.Locations...),
						LastUsed:     incoming.LastUsed,
						InstallPaths: appendUnique(make([]string, 0, len(incoming.InstallPaths)), incoming.InstallPaths...),
					}
					continue
				}

				existing.Locations = appendUnique(existing.Locations, incoming.Locations...)
				existing.InstallPaths = appendUnique(existing.InstallPaths, incoming.InstallPaths...)
				if incoming.LastUsed.After(existing.LastUsed) {
					existing.LastUsed = incoming.LastUsed
				}
				acc.Versions[version] = existing
			}

			merged[pkg] = acc
		}
	}

	return merged
}
