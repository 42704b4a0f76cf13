package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

// FileSystemManagerImpl implements domain.FileSystemManager.
type FileSystemManagerImpl struct {
	homeDir string
}

// NewFileSystemManagerWithHome creates a filesystem manager that expands ~ to home.
func NewFileSystemManagerWithHome(home string) domain.FileSystemManager {
	return &FileSystemManagerImpl{homeDir: home}
}

// Exists checks if a path exists.
func (fm *FileSystemManagerImpl) Exists(path string) bool {
	expanded := fm.ExpandHome(path)
	_, err := os.Stat(expanded)
	return err == nil
}

// Delete removes a file or directory recursively. Symlinks are removed,
// not followed.
func (fm *FileSystemManagerImpl) Delete(path string) error {
	return os.RemoveAll(fm.ExpandHome(path))
}

// ExpandHome expands ~ to the user's home directory.
func (fm *FileSystemManagerImpl) ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(fm.homeDir, path[2:])
	}
	if path == "~" {
		return fm.homeDir
	}
	return path
}

// Link makes target a symlink to source, replacing whatever is at target.
// Parent directories of target are created as needed.
func (fm *FileSystemManagerImpl) Link(source, target string) error {
	source = fm.ExpandHome(source)
	target = fm.ExpandHome(target)

	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("link source unavailable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create link parent: %w", err)
	}
	if _, err := os.Lstat(target); err == nil {
		if err := fm.Delete(target); err != nil {
			return fmt.Errorf("failed to replace %s: %w", target, err)
		}
	}
	if err := os.Symlink(source, target); err != nil {
		return fmt.Errorf("failed to link %s: %w", target, err)
	}
	return nil
}

// Ensure FileSystemManagerImpl implements domain.FileSystemManager.
var _ domain.FileSystemManager = (*FileSystemManagerImpl)(nil)
