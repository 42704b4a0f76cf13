//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/bluecore/internal/domain"
	"github.com/eliteGoblin/bluecore/internal/infra"
	"github.com/eliteGoblin/bluecore/internal/search"
	"github.com/eliteGoblin/bluecore/internal/usecase"
	"github.com/eliteGoblin/bluecore/test/fixtures"
)

type staticRoots []string

func (r staticRoots) Roots() []string { return r }

// recordingInstaller creates node_modules/<pkg> instead of running npm.
type recordingInstaller struct {
	installed map[string]string
}

func (i *recordingInstaller) Install(ctx context.Context, projectDir string, packages map[string]string) (string, error) {
	for name, version := range packages {
		i.installed[name] = version
		if err := os.MkdirAll(domain.InstallPath(projectDir, name), 0755); err != nil {
			return "", err
		}
	}
	return "npm", nil
}

var _ = Describe("Search", func() {
	var (
		ws     *fixtures.FakeWorkspace
		logger *zap.Logger
		cfg    search.EngineConfig
	)

	BeforeEach(func() {
		tmpDir, err := os.MkdirTemp("", "bluecore-integration-*")
		Expect(err).NotTo(HaveOccurred())
		// macOS hands out /var/... which is a symlink to /private/var/...
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		ws = fixtures.NewFakeWorkspace(tmpDir)
		logger = zap.NewNop()
		cfg = search.DefaultEngineConfig()
	})

	AfterEach(func() {
		ws.Cleanup()
	})

	Describe("marker search", func() {
		BeforeEach(func() {
			for _, dir := range []string{"a", "a/x", "a/x/node_modules/dep", "a/.cache", "b/y"} {
				_, err := ws.Marker(dir, "{}")
				Expect(err).NotTo(HaveOccurred())
			}
		})

		Context("with the default skip policy", func() {
			It("should skip install and hidden directories", func() {
				engine := search.NewEngine(cfg, logger)

				report := engine.FindMarkers(context.Background(), []string{ws.Path("a"), ws.Path("b")})

				Expect(report.Files).To(Equal([]string{
					ws.Path("a/rhezusport.json"),
					ws.Path("a/x/rhezusport.json"),
					ws.Path("b/y/rhezusport.json"),
				}))
				Expect(report.Summary.Completed).To(Equal(2))
				Expect(report.Summary.GlobalTimeout).To(BeFalse())
			})
		})

		Context("with only system directories skipped", func() {
			It("should also find markers inside install directories", func() {
				cfg.Markers.Skip = search.SystemSkipSet()
				engine := search.NewEngine(cfg, logger)

				report := engine.FindMarkers(context.Background(), []string{ws.Path("a")})

				Expect(report.Files).To(ContainElements(
					ws.Path("a/x/node_modules/dep/rhezusport.json"),
					ws.Path("a/.cache/rhezusport.json"),
				))
			})
		})

		Context("when a root does not exist", func() {
			It("should count it as failed and keep the other results", func() {
				engine := search.NewEngine(cfg, logger)

				report := engine.FindMarkers(context.Background(), []string{ws.Path("missing"), ws.Path("b")})

				Expect(report.Files).To(Equal([]string{ws.Path("b/y/rhezusport.json")}))
				Expect(report.Summary.Failed).To(Equal(1))
				Expect(report.Summary.Completed).To(Equal(2))
			})
		})

		Context("when the directory budget runs out", func() {
			It("should not report markers beyond the budget", func() {
				leaf, err := ws.Deep("deep", 20)
				Expect(err).NotTo(HaveOccurred())
				Expect(os.WriteFile(filepath.Join(leaf, domain.MarkerFileName), []byte("{}"), 0644)).To(Succeed())

				cfg.Markers.MaxDirs = 5
				engine := search.NewEngine(cfg, logger)

				report := engine.FindMarkers(context.Background(), []string{ws.Path("deep")})

				Expect(report.Files).To(BeEmpty())
				Expect(report.Summary.Completed).To(Equal(1))
				Expect(report.Summary.TimedOut).To(BeZero())
			})
		})

		Context("when the caller cancels before the search starts", func() {
			It("should return without results", func() {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				engine := search.NewEngine(cfg, logger)

				report := engine.FindMarkers(ctx, []string{ws.Path("a"), ws.Path("b")})

				Expect(report.Files).To(BeEmpty())
				Expect(report.Summary.Completed).To(BeZero())
				Expect(report.Summary.GlobalTimeout).To(BeFalse())
			})
		})
	})

	Describe("package search", func() {
		It("should find installs in every project root", func() {
			_, err := ws.Project("p1", map[string]string{"lodash": "^4.17.0"})
			Expect(err).NotTo(HaveOccurred())
			_, err = ws.Install("p1", "lodash", "4.17.21")
			Expect(err).NotTo(HaveOccurred())
			_, err = ws.Install("p1", "@types/node", "20.0.0")
			Expect(err).NotTo(HaveOccurred())
			// A bare node_modules directory still marks a project root.
			_, err = ws.Install("loose", "lodash", "4.17.21")
			Expect(err).NotTo(HaveOccurred())

			engine := search.NewEngine(cfg, logger)
			report := engine.FindPackages(context.Background(), []string{ws.Root}, []string{"lodash", "@types/node", "chalk"})

			Expect(report.Packages).To(Equal(map[string][]string{
				"lodash":      {ws.Path("loose/node_modules/lodash"), ws.Path("p1/node_modules/lodash")},
				"@types/node": {ws.Path("p1/node_modules/@types/node")},
			}))
		})
	})

	Describe("rebase", func() {
		var (
			store     *infra.JSONRegistryStore
			installer *recordingInstaller
			app       string
		)

		BeforeEach(func() {
			store = infra.NewJSONRegistryStore()
			installer = &recordingInstaller{installed: map[string]string{}}

			// An older project already has lodash and chalk installed.
			_, err := ws.Project("old", map[string]string{"lodash": "4.17.21", "chalk": "5.0.0"})
			Expect(err).NotTo(HaveOccurred())
			_, err = ws.Install("old", "lodash", "4.17.21")
			Expect(err).NotTo(HaveOccurred())
			_, err = ws.Install("old", "chalk", "5.0.0")
			Expect(err).NotTo(HaveOccurred())

			registry := domain.NewRegistry()
			registry.Record("lodash", "4.17.21", ws.Path("old"), ws.Path("old/node_modules/lodash"), time.Now().Add(-time.Hour))
			Expect(store.Save(registry, ws.Path("old/rhezusport.json"))).To(Succeed())

			app, err = ws.Project("app", map[string]string{"lodash": "^4.17.0", "chalk": "5.0.0", "express": "4.18.0"})
			Expect(err).NotTo(HaveOccurred())
		})

		newRebaser := func() *usecase.Rebaser {
			fs := infra.NewFileSystemManagerWithHome(ws.Root)
			engine := search.NewEngine(cfg, logger)
			discovery := usecase.NewDiscovery(engine, staticRoots{ws.Root}, store, nil, app, logger)
			project := usecase.NewProject(app, store, infra.NewPackageJSONReader(), fs, nil, logger)
			return usecase.NewRebaser(project, discovery, usecase.NewResolver(fs), fs, installer, store, logger)
		}

		It("should link known installs and install the rest", func() {
			global := ws.Path("data/rhezusport.json")

			result, err := newRebaser().Rebase(context.Background(), usecase.RebaseOptions{GlobalRegistryPath: global})
			Expect(err).NotTo(HaveOccurred())

			Expect(ws.IsSymlink("app/node_modules/lodash")).To(BeTrue())
			Expect(ws.IsSymlink("app/node_modules/chalk")).To(BeTrue())
			Expect(installer.installed).To(Equal(map[string]string{"express": "4.18.0"}))
			Expect(result.Installed).To(Equal([]string{"express"}))
			Expect(result.Reused).To(HaveLen(2))

			Expect(ws.Exists("app/rhezusport.json")).To(BeTrue())
			Expect(ws.Exists("data/rhezusport.json")).To(BeTrue())

			saved, err := store.Load(ws.Path("app/rhezusport.json"))
			Expect(err).NotTo(HaveOccurred())
			entry, ok := saved.Lookup("express", "4.18.0")
			Expect(ok).To(BeTrue())
			Expect(entry.Locations).To(ConsistOf(app))
			Expect(entry.InstallPaths).To(ConsistOf(ws.Path("app/node_modules/express")))

			// chalk was discovered in "old", so its marker learns about the app.
			network, err := store.Load(ws.Path("old/rhezusport.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(network.Names()).To(ContainElements("lodash", "chalk", "express"))
		})

		It("should leave the disk untouched in dry-run", func() {
			result, err := newRebaser().Rebase(context.Background(), usecase.RebaseOptions{DryRun: true})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Installed).To(Equal([]string{"express"}))
			Expect(ws.Exists("app/node_modules")).To(BeFalse())
			Expect(ws.Exists("app/rhezusport.json")).To(BeFalse())
			Expect(installer.installed).To(BeEmpty())
		})
	})

	Describe("scan history", func() {
		It("should keep summaries in the encrypted database", func() {
			dataDir := ws.Path("data")
			key, err := infra.EnsureKey(infra.NewFileKeyProvider(dataDir))
			Expect(err).NotTo(HaveOccurred())
			history, err := infra.NewEncryptedHistory(dataDir, key)
			Expect(err).NotTo(HaveOccurred())
			defer history.Close()

			_, err = ws.Marker("p", "{}")
			Expect(err).NotTo(HaveOccurred())

			engine := search.NewEngine(cfg, logger)
			discovery := usecase.NewDiscovery(engine, staticRoots{ws.Path("p")}, infra.NewJSONRegistryStore(), history, "", logger)
			files, summary := discovery.FindMarkers(context.Background())
			Expect(files).To(HaveLen(1))

			runs, err := history.Recent(5)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(1))
			Expect(runs[0].RunID).To(Equal(summary.RunID))
			Expect(runs[0].Found).To(Equal(1))
		})
	})
})
