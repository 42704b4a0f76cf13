package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

func registryWith(pkg, version, location, installPath string, at time.Time) domain.Registry {
	reg := domain.NewRegistry()
	reg.Record(pkg, version, location, installPath, at)
	return reg
}

func TestDiscovery_FindMarkersAddsWorkingDirectoryMarker(t *testing.T) {
	cwd := t.TempDir()
	local := filepath.Join(cwd, domain.MarkerFileName)
	require.NoError(t, os.WriteFile(local, []byte("{}"), 0644))

	searcher := &mockSearcher{markers: []string{"/a/rhezusport.json"}, summary: domain.ScanSummary{RunID: "run-1"}}
	history := &mockHistoryStore{}
	d := NewDiscovery(searcher, &mockRootProvider{roots: []string{"/a"}}, newMockRegistryStore(), history, cwd, zap.NewNop())

	files, summary := d.FindMarkers(context.Background())

	assert.ElementsMatch(t, []string{"/a/rhezusport.json", local}, files)
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, []string{"/a"}, searcher.searchedRoots)
	require.Len(t, history.appended, 1)
	assert.Equal(t, domain.SearchMarkers, history.appended[0].Kind)
}

func TestDiscovery_FindMarkersDoesNotDuplicateWorkingDirectoryMarker(t *testing.T) {
	cwd := t.TempDir()
	local := filepath.Join(cwd, domain.MarkerFileName)
	require.NoError(t, os.WriteFile(local, []byte("{}"), 0644))

	searcher := &mockSearcher{markers: []string{local}}
	d := NewDiscovery(searcher, &mockRootProvider{}, newMockRegistryStore(), nil, cwd, zap.NewNop())

	files, _ := d.FindMarkers(context.Background())

	assert.Equal(t, []string{local}, files)
}

func TestDiscovery_HistoryFailureIsTolerated(t *testing.T) {
	history := &mockHistoryStore{appendErr: errors.New("disk full")}
	d := NewDiscovery(&mockSearcher{markers: []string{"/x"}}, &mockRootProvider{}, newMockRegistryStore(), history, "", zap.NewNop())

	files, _ := d.FindMarkers(context.Background())

	assert.Equal(t, []string{"/x"}, files)
}

func TestDiscovery_LoadRegistriesKeepsOrderAndToleratesBadFiles(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newMockRegistryStore()
	store.files["/a"] = registryWith("lodash", "4.17.21", "/pa", "", at)
	store.malformed["/bad"] = true
	store.files["/c"] = registryWith("chalk", "5.0.0", "/pc", "", at)

	d := NewDiscovery(&mockSearcher{}, &mockRootProvider{}, store, nil, "", zap.NewNop())
	regs := d.LoadRegistries(context.Background(), []string{"/a", "/bad", "/missing", "/c"})

	require.Len(t, regs, 4)
	assert.Equal(t, []string{"lodash"}, regs[0].Names())
	assert.Empty(t, regs[1])
	assert.Empty(t, regs[2])
	assert.Equal(t, []string{"chalk"}, regs[3].Names())
}

func TestDiscovery_LoadRegistriesCancelled(t *testing.T) {
	store := newMockRegistryStore()
	store.files["/a"] = registryWith("lodash", "1.0.0", "/p", "", time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDiscovery(&mockSearcher{}, &mockRootProvider{}, store, nil, "", zap.NewNop())
	regs := d.LoadRegistries(ctx, []string{"/a"})

	require.Len(t, regs, 1)
	assert.Empty(t, regs[0])
}

func TestDiscovery_ExistingMergesEveryMarker(t *testing.T) {
	older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.AddDate(1, 0, 0)
	store := newMockRegistryStore()
	store.files["/a/rhezusport.json"] = registryWith("lodash", "4.17.21", "/a", "/a/node_modules/lodash", older)
	store.files["/b/rhezusport.json"] = registryWith("lodash", "4.17.21", "/b", "/b/node_modules/lodash", newer)

	searcher := &mockSearcher{markers: []string{"/a/rhezusport.json", "/b/rhezusport.json"}}
	d := NewDiscovery(searcher, &mockRootProvider{}, store, nil, "", zap.NewNop())

	merged, files := d.Existing(context.Background())

	assert.Len(t, files, 2)
	entry, ok := merged.Lookup("lodash", "4.17.21")
	require.True(t, ok)
	assert.Equal(t, []string{"/a", "/b"}, entry.Locations)
	assert.Equal(t, []string{"/a/node_modules/lodash", "/b/node_modules/lodash"}, entry.InstallPaths)
	assert.True(t, entry.LastUsed.Equal(newer))
}

func TestDiscovery_Latest(t *testing.T) {
	searcher := &mockSearcher{markers: []string{"/a/rhezusport.json", "/z/rhezusport.json"}}
	d := NewDiscovery(searcher, &mockRootProvider{}, newMockRegistryStore(), nil, "", zap.NewNop())

	assert.Equal(t, "/z/rhezusport.json", d.Latest(context.Background()))
}

func TestDiscovery_FindPackages(t *testing.T) {
	searcher := &mockSearcher{packages: map[string][]string{"lodash": {"/p/node_modules/lodash"}}}
	history := &mockHistoryStore{}
	d := NewDiscovery(searcher, &mockRootProvider{}, newMockRegistryStore(), history, "", zap.NewNop())

	found, summary := d.FindPackages(context.Background(), []string{"lodash", "chalk"})

	assert.Equal(t, map[string][]string{"lodash": {"/p/node_modules/lodash"}}, found)
	assert.Equal(t, domain.SearchPackages, summary.Kind)
	assert.Len(t, history.appended, 1)
}

func TestPackageRegistry(t *testing.T) {
	at := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	found := map[string][]string{
		"lodash":  {"/p/node_modules/lodash", "/q/node_modules/lodash"},
		"unknown": {"/p/node_modules/unknown"},
	}

	reg := PackageRegistry(found, map[string]string{"lodash": "^4.17.0"}, at)

	assert.Equal(t, []string{"lodash"}, reg.Names())
	entry, ok := reg.Lookup("lodash", "^4.17.0")
	require.True(t, ok)
	assert.Equal(t, []string{"/p", "/q"}, entry.Locations)
	assert.Equal(t, []string{"/p/node_modules/lodash", "/q/node_modules/lodash"}, entry.InstallPaths)
	assert.True(t, entry.LastUsed.Equal(at))
}
