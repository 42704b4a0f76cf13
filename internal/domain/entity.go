// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// MarkerFileName is the registry file searched for on disk and written back.
const MarkerFileName = "rhezusport.json"

// InstallDirName is the directory packages are installed into inside a project.
const InstallDirName = "node_modules"

var (
	// ErrMalformedRegistry is returned when a registry document cannot be decoded.
	ErrMalformedRegistry = errors.New("malformed registry document")

	// ErrNoManifest is returned when the project has no package manifest.
	ErrNoManifest = errors.New("no package manifest found")

	// ErrKeyNotFound is returned when the history encryption key has not been generated.
	ErrKeyNotFound = errors.New("encryption key not found")
)

// Registry maps package name to its recorded versions.
// Persisted as the marker file (rhezusport.json).
type Registry map[string]PackageEntry

// PackageEntry holds every version recorded for one package.
type PackageEntry struct {
	Versions map[string]VersionEntry `json:"versions"`
}

// VersionEntry records where a package@version was declared and installed.
type VersionEntry struct {
	Locations    []string  `json:"locations"`
	LastUsed     Timestamp `json:"lastUsed"`
	InstallPaths []string  `json:"installPaths"`
}

// timestampLayout is the millisecond ISO-8601 form used in marker files.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp is a time.Time that tolerates empty or invalid JSON values.
// Unparseable input decodes to the zero time, which orders before any real timestamp.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// After reports whether ts is strictly later than other.
func (ts Timestamp) After(other Timestamp) bool {
	return ts.Time.After(other.Time)
}

// MarshalJSON writes the timestamp in UTC with millisecond precision.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(ts.UTC().Format(timestampLayout))
}

// UnmarshalJSON accepts RFC 3339 strings; anything else becomes the zero time.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	ts.Time = time.Time{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		ts.Time = parsed
	}
	return nil
}

// WalkStatus is the completion status of one walk.
type WalkStatus string

const (
	WalkOK        WalkStatus = "ok"
	WalkError     WalkStatus = "error"
	WalkTimedOut  WalkStatus = "timed_out"
	WalkCancelled WalkStatus = "cancelled"
)

// SearchKind identifies which search variant produced a result.
type SearchKind string

const (
	SearchMarkers  SearchKind = "markers"
	SearchPackages SearchKind = "packages"
)

// WalkResult is the output of a single bounded walk of one root.
type WalkResult struct {
	Root      string
	Status    WalkStatus
	Files     []string            // marker search
	Packages  map[string][]string // package search: name -> install paths
	Visited   int                 // directories expanded
	Truncated bool                // budget exhausted before the queue emptied
	Err       error
}

// ScanSummary captures what happened during one dispatch.
// Stored in the scan history.
type ScanSummary struct {
	RunID         string
	Kind          SearchKind
	Roots         int
	Completed     int
	TimedOut      int
	Failed        int
	Abandoned     int // in flight when the global deadline fired
	NotStarted    int // never dispatched because the global deadline fired first
	GlobalTimeout bool
	Found         int
	StartedAt     time.Time
	Duration      time.Duration
}
