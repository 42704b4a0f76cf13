package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

// mockSearcher implements domain.Searcher for testing
type mockSearcher struct {
	markers       []string
	packages      map[string][]string
	summary       domain.ScanSummary
	packageCalls  [][]string
	searchedRoots []string
}

func (m *mockSearcher) FindMarkers(ctx context.Context, roots []string) domain.SearchReport {
	m.searchedRoots = roots
	summary := m.summary
	summary.Kind = domain.SearchMarkers
	return domain.SearchReport{Summary: summary, Files: append([]string(nil), m.markers...)}
}

func (m *mockSearcher) FindPackages(ctx context.Context, roots []string, packages []string) domain.SearchReport {
	m.packageCalls = append(m.packageCalls, packages)
	found := make(map[string][]string)
	for _, name := range packages {
		if paths, ok := m.packages[name]; ok {
			found[name] = paths
		}
	}
	summary := m.summary
	summary.Kind = domain.SearchPackages
	return domain.SearchReport{Summary: summary, Packages: found}
}

// mockRootProvider implements domain.RootProvider for testing
type mockRootProvider struct {
	roots []string
}

func (m *mockRootProvider) Roots() []string {
	return m.roots
}

// mockRegistryStore implements domain.RegistryStore in memory
type mockRegistryStore struct {
	mu        sync.Mutex
	files     map[string]domain.Registry
	malformed map[string]bool
	saveErr   error
	saved     []string
}

func newMockRegistryStore() *mockRegistryStore {
	return &mockRegistryStore{
		files:     make(map[string]domain.Registry),
		malformed: make(map[string]bool),
	}
}

func (m *mockRegistryStore) Load(path string) (domain.Registry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.malformed[path] {
		return domain.NewRegistry(), fmt.Errorf("%w: %s", domain.ErrMalformedRegistry, path)
	}
	reg, ok := m.files[path]
	if !ok {
		return domain.NewRegistry(), nil
	}
	return domain.Merge(reg), nil
}

func (m *mockRegistryStore) Save(registry domain.Registry, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.files[path] = domain.Merge(registry)
	m.saved = append(m.saved, path)
	return nil
}

func (m *mockRegistryStore) Latest(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	return sorted[len(sorted)-1]
}

// mockHistoryStore implements domain.HistoryStore for testing
type mockHistoryStore struct {
	appended  []domain.ScanSummary
	appendErr error
}

func (m *mockHistoryStore) Append(summary domain.ScanSummary) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appended = append(m.appended, summary)
	return nil
}

func (m *mockHistoryStore) Recent(limit int) ([]domain.ScanSummary, error) {
	return m.appended, nil
}

func (m *mockHistoryStore) Close() error {
	return nil
}

// mockFileSystemManager implements domain.FileSystemManager for testing
type mockFileSystemManager struct {
	existingPaths map[string]bool
	linkErr       map[string]error // keyed by target
	links         map[string]string
}

func newMockFileSystemManager(existing ...string) *mockFileSystemManager {
	m := &mockFileSystemManager{
		existingPaths: make(map[string]bool),
		linkErr:       make(map[string]error),
		links:         make(map[string]string),
	}
	for _, p := range existing {
		m.existingPaths[p] = true
	}
	return m
}

func (m *mockFileSystemManager) Exists(path string) bool {
	return m.existingPaths[path]
}

func (m *mockFileSystemManager) Delete(path string) error {
	delete(m.existingPaths, path)
	return nil
}

func (m *mockFileSystemManager) ExpandHome(path string) string {
	return path // No expansion in tests
}

func (m *mockFileSystemManager) Link(source, target string) error {
	if err := m.linkErr[target]; err != nil {
		return err
	}
	m.links[target] = source
	m.existingPaths[target] = true
	return nil
}

// mockManifestReader implements domain.ManifestReader for testing
type mockManifestReader struct {
	deps map[string]string
	err  error
}

func (m *mockManifestReader) Dependencies(projectDir string) (map[string]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.deps, nil
}

// mockInstaller implements domain.Installer for testing
type mockInstaller struct {
	installed  map[string]string
	installErr error
	calls      int
}

func (m *mockInstaller) Install(ctx context.Context, projectDir string, packages map[string]string) (string, error) {
	m.calls++
	m.installed = packages
	return "npm", m.installErr
}
