package search

import "github.com/eliteGoblin/bluecore/internal/domain"

// projectIndicators mark a directory as a project root: a manifest, an
// install directory, or a version-control marker.
var projectIndicators = []string{"package.json", domain.InstallDirName, ".git"}

// IsProjectRoot reports whether a directory containing the given entry names
// looks like a project root.
func IsProjectRoot(names map[string]struct{}) bool {
	for _, indicator := range projectIndicators {
		if _, ok := names[indicator]; ok {
			return true
		}
	}
	return false
}
