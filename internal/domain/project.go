package domain

import (
	"path/filepath"
	"strings"
)

// MarkerPath returns the marker file location inside dir.
func MarkerPath(dir string) string {
	return filepath.Join(dir, MarkerFileName)
}

// InstallPath returns where pkg is installed inside projectDir.
// Scoped names ("@scope/name") map to nested directories.
func InstallPath(projectDir, pkg string) string {
	return filepath.Join(projectDir, InstallDirName, filepath.FromSlash(pkg))
}

// ProjectRootOf returns the project directory owning installPath, or "" if
// installPath is not <project>/node_modules/<pkg>.
func ProjectRootOf(installPath, pkg string) string {
	suffix := string(filepath.Separator) + filepath.Join(InstallDirName, filepath.FromSlash(pkg))
	clean := filepath.Clean(installPath)
	if !strings.HasSuffix(clean, suffix) {
		return ""
	}
	root := strings.TrimSuffix(clean, suffix)
	if root == "" {
		return string(filepath.Separator)
	}
	return root
}
