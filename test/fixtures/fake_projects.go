// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// FakeWorkspace lays out projects, installs and registries under a temp root.
type FakeWorkspace struct {
	Root string
}

// NewFakeWorkspace creates a new fake workspace generator rooted at root.
func NewFakeWorkspace(root string) *FakeWorkspace {
	return &FakeWorkspace{Root: root}
}

// Path joins rel (slash separated) onto the workspace root.
func (f *FakeWorkspace) Path(rel string) string {
	return filepath.Join(f.Root, filepath.FromSlash(rel))
}

// Project creates dir with a package.json declaring deps.
func (f *FakeWorkspace) Project(dir string, deps map[string]string) (string, error) {
	projectDir := f.Path(dir)
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		return "", err
	}
	manifest := map[string]any{
		"name":         filepath.Base(projectDir),
		"version":      "1.0.0",
		"dependencies": deps,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", err
	}
	return projectDir, os.WriteFile(filepath.Join(projectDir, "package.json"), data, 0644)
}

// Install creates dir/node_modules/<pkg> with a minimal package.json.
func (f *FakeWorkspace) Install(dir, pkg, version string) (string, error) {
	installDir := filepath.Join(f.Path(dir), "node_modules", filepath.FromSlash(pkg))
	if err := os.MkdirAll(installDir, 0755); err != nil {
		return "", err
	}
	data, err := json.Marshal(map[string]string{"name": pkg, "version": version})
	if err != nil {
		return "", err
	}
	return installDir, os.WriteFile(filepath.Join(installDir, "package.json"), data, 0644)
}

// Marker writes raw content as dir/rhezusport.json.
func (f *FakeWorkspace) Marker(dir, content string) (string, error) {
	markerDir := f.Path(dir)
	if err := os.MkdirAll(markerDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(markerDir, "rhezusport.json")
	return path, os.WriteFile(path, []byte(content), 0644)
}

// Deep creates a chain of depth nested directories under dir and returns the leaf.
func (f *FakeWorkspace) Deep(dir string, depth int) (string, error) {
	leaf := f.Path(dir)
	for i := 0; i < depth; i++ {
		leaf = filepath.Join(leaf, "d")
	}
	return leaf, os.MkdirAll(leaf, 0755)
}

// Exists checks if rel exists under the workspace.
func (f *FakeWorkspace) Exists(rel string) bool {
	_, err := os.Stat(f.Path(rel))
	return err == nil
}

// IsSymlink reports whether rel is a symlink.
func (f *FakeWorkspace) IsSymlink(rel string) bool {
	info, err := os.Lstat(f.Path(rel))
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// Cleanup removes the whole workspace.
func (f *FakeWorkspace) Cleanup() error {
	return os.RemoveAll(f.Root)
}
