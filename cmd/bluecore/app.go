package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/bluecore/internal/config"
	"github.com/eliteGoblin/bluecore/internal/domain"
	"github.com/eliteGoblin/bluecore/internal/infra"
	"github.com/eliteGoblin/bluecore/internal/search"
	"github.com/eliteGoblin/bluecore/internal/usecase"
)

// app wires infrastructure into use cases for one command invocation.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	cwd       string
	home      string
	store     *infra.JSONRegistryStore
	fs        domain.FileSystemManager
	roots     domain.RootProvider
	history   domain.HistoryStore // nil when disabled or unavailable
	discovery *usecase.Discovery
}

func newApp() (*app, error) {
	logger := createLogger(verbose, logFile)

	home := infra.GetRealUserHome()
	cfg, err := config.LoadWithHome(configPath, home)
	if err != nil {
		return nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		cwd:    cwd,
		home:   home,
		store:  infra.NewJSONRegistryStore(),
		fs:     infra.NewFileSystemManagerWithHome(home),
	}
	a.roots = infra.NewSearchRoots(infra.RootsOptions{
		Home:          home,
		Cwd:           cwd,
		DataDir:       cfg.DataDir,
		Extra:         cfg.Roots.Extra,
		IncludeDrives: cfg.Roots.IncludeDrives,
	}, logger)
	if cfg.HistoryEnabled {
		a.history = a.openHistory()
	}

	engine := search.NewEngine(cfg.Engine(), logger.Named("search"))
	a.discovery = usecase.NewDiscovery(engine, a.roots, a.store, a.history, cwd, logger)

	logger.Debug("configuration loaded",
		zap.String("file", cfg.File),
		zap.String("data_dir", cfg.DataDir),
		zap.Int("concurrency", cfg.Concurrency))
	return a, nil
}

// openHistory opens the encrypted scan history; failure only disables history.
func (a *app) openHistory() domain.HistoryStore {
	key, err := infra.EnsureKey(infra.NewFileKeyProvider(a.cfg.DataDir))
	if err != nil {
		a.logger.Warn("scan history disabled", zap.Error(err))
		return nil
	}
	history, err := infra.NewEncryptedHistory(a.cfg.DataDir, key)
	if err != nil {
		a.logger.Warn("scan history disabled", zap.Error(err))
		return nil
	}
	return history
}

func (a *app) project() *usecase.Project {
	return usecase.NewProject(a.cwd, a.store, infra.NewPackageJSONReader(), a.fs, nil, a.logger)
}

func (a *app) rebaser() *usecase.Rebaser {
	return usecase.NewRebaser(
		a.project(),
		a.discovery,
		usecase.NewResolver(a.fs),
		a.fs,
		infra.NewStrategyManager(a.logger),
		a.store,
		a.logger,
	)
}

func (a *app) close() {
	if a.history != nil {
		_ = a.history.Close()
	}
	_ = a.logger.Sync()
}

// createLogger logs human-readable lines to stderr, plus logFile when set.
func createLogger(verbose bool, logFile string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	if logFile != "" {
		config.OutputPaths = append(config.OutputPaths, logFile)
	}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		// Fallback to plain stderr logging if the file sink fails
		logger, _ = zap.NewProduction()
	}
	return logger
}
