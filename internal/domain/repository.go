package domain

import (
	"context"
	"time"
)

// SearchReport is the aggregated output of one dispatch over many roots.
type SearchReport struct {
	Summary  ScanSummary
	Files    []string            // marker search, sorted and unique
	Packages map[string][]string // package search, each list sorted and unique
}

// Searcher runs bounded concurrent searches over a list of roots.
// Implementation: search.Engine (dispatcher + BFS walkers).
type Searcher interface {
	// FindMarkers returns every marker file found under roots.
	FindMarkers(ctx context.Context, roots []string) SearchReport

	// FindPackages returns install directories of the named packages found under roots.
	FindPackages(ctx context.Context, roots []string, packages []string) SearchReport
}

// RegistryStore reads and writes marker files.
// Implementation: pretty-printed JSON written atomically.
type RegistryStore interface {
	// Load reads a registry. A missing file yields an empty registry and no
	// error; a malformed one yields an empty registry and ErrMalformedRegistry.
	Load(path string) (Registry, error)

	// Save writes the registry, creating parent directories as needed.
	Save(registry Registry, path string) error

	// Latest returns the most recently modified of paths ("" if none are readable).
	Latest(paths []string) string
}

// RootProvider enumerates the directories a search starts from.
type RootProvider interface {
	// Roots returns absolute, cleaned, deduplicated roots in dispatch order.
	Roots() []string
}

// FileSystemManager handles filesystem operations.
type FileSystemManager interface {
	// Exists checks if a path exists.
	Exists(path string) bool

	// Delete removes a file or directory recursively.
	Delete(path string) error

	// ExpandHome expands ~ to the user's home directory.
	ExpandHome(path string) string

	// Link points target at source with a symlink, replacing whatever is at target.
	Link(source, target string) error
}

// ManifestReader reads the dependency declarations of a project.
type ManifestReader interface {
	// Dependencies returns name -> declared version (dependencies and devDependencies).
	Dependencies(projectDir string) (map[string]string, error)
}

// PackageManager installs packages with an external tool.
// Implementations: npm, yarn.
type PackageManager interface {
	// Name returns the tool name (e.g., "npm", "yarn").
	Name() string

	// IsAvailable returns true if the tool binary can be found.
	IsAvailable() bool

	// Detect reports whether projectDir is managed by this tool (lockfile present).
	Detect(projectDir string) bool

	// Install adds the given name@version specs to projectDir.
	Install(ctx context.Context, projectDir string, specs []string) error
}

// Installer picks a package manager for a project and installs packages with it.
type Installer interface {
	// Install installs name -> version into projectDir.
	// Returns the name of the package manager used.
	Install(ctx context.Context, projectDir string, packages map[string]string) (string, error)
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// HistoryStore keeps summaries of past scans.
// Implementation: SQLCipher encrypted SQLite database in the data dir.
type HistoryStore interface {
	// Append records one scan summary.
	Append(summary ScanSummary) error

	// Recent returns up to limit summaries, newest first.
	Recent(limit int) ([]ScanSummary, error)

	// Close releases resources (e.g., database connection).
	Close() error
}

// Clock returns the current time. Injected so tests can pin lastUsed values.
type Clock func() time.Time
