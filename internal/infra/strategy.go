package infra

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/bluecore/internal/domain"
)

// CommandRunner runs an external tool in dir.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) error

// execRunner runs the command non-interactively and folds stderr into the error.
func execRunner(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = nil // Prevent any interactive prompts
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
		}
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
	}
	return nil
}

// cliStrategy installs packages with a package-manager CLI.
type cliStrategy struct {
	name     string
	lockfile string
	addArgs  []string
	binPath  string
	run      CommandRunner
}

func newCLIStrategy(name, lockfile string, addArgs []string, run CommandRunner) *cliStrategy {
	binPath, _ := exec.LookPath(name)
	return &cliStrategy{name: name, lockfile: lockfile, addArgs: addArgs, binPath: binPath, run: run}
}

// NewNpmStrategy handles npm projects (package-lock.json).
func NewNpmStrategy() domain.PackageManager {
	return newCLIStrategy("npm", "package-lock.json", []string{"install"}, execRunner)
}

// NewYarnStrategy handles yarn projects (yarn.lock).
func NewYarnStrategy() domain.PackageManager {
	return newCLIStrategy("yarn", "yarn.lock", []string{"add"}, execRunner)
}

func (s *cliStrategy) Name() string {
	return s.name
}

func (s *cliStrategy) IsAvailable() bool {
	return s.binPath != ""
}

func (s *cliStrategy) Detect(projectDir string) bool {
	_, err := os.Stat(filepath.Join(projectDir, s.lockfile))
	return err == nil
}

func (s *cliStrategy) Install(ctx context.Context, projectDir string, specs []string) error {
	if len(specs) == 0 {
		return nil
	}
	if !s.IsAvailable() {
		return fmt.Errorf("%s is not installed", s.name)
	}
	args := append(append([]string{}, s.addArgs...), specs...)
	return s.run(ctx, projectDir, s.binPath, args...)
}

// StrategyManager picks the package manager for a project and installs with it.
type StrategyManager struct {
	strategies []domain.PackageManager // detection order; last one is the fallback
	logger     *zap.Logger
}

// NewStrategyManager creates a manager preferring yarn when a yarn.lock is
// present and npm otherwise.
func NewStrategyManager(logger *zap.Logger) *StrategyManager {
	return NewStrategyManagerWith(logger, NewYarnStrategy(), NewNpmStrategy())
}

// NewStrategyManagerWith creates a manager over explicit strategies (for testing).
func NewStrategyManagerWith(logger *zap.Logger, strategies ...domain.PackageManager) *StrategyManager {
	return &StrategyManager{strategies: strategies, logger: logger}
}

// Select returns the strategy managing projectDir: the first whose lockfile
// is present, else the last (default) strategy.
func (sm *StrategyManager) Select(projectDir string) domain.PackageManager {
	if len(sm.strategies) == 0 {
		return nil
	}
	for _, strategy := range sm.strategies {
		if strategy.Detect(projectDir) {
			return strategy
		}
	}
	return sm.strategies[len(sm.strategies)-1]
}

// Install installs name -> version into projectDir in one tool invocation.
// Returns the strategy name used.
func (sm *StrategyManager) Install(ctx context.Context, projectDir string, packages map[string]string) (string, error) {
	if len(packages) == 0 {
		return "", nil
	}
	strategy := sm.Select(projectDir)
	if strategy == nil {
		return "", fmt.Errorf("no package manager configured")
	}

	specs := make([]string, 0, len(packages))
	for name, version := range packages {
		specs = append(specs, name+"@"+version)
	}
	sort.Strings(specs)

	sm.logger.Info("installing packages",
		zap.String("strategy", strategy.Name()),
		zap.String("project", projectDir),
		zap.Strings("packages", specs))

	if err := strategy.Install(ctx, projectDir, specs); err != nil {
		return strategy.Name(), fmt.Errorf("%s install failed: %w", strategy.Name(), err)
	}
	return strategy.Name(), nil
}

// Ensure implementations satisfy interfaces
var _ domain.PackageManager = (*cliStrategy)(nil)
var _ domain.Installer = (*StrategyManager)(nil)
