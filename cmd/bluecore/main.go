// Package main is the CLI entry point for bluecore.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eliteGoblin/bluecore/internal/domain"
	"github.com/eliteGoblin/bluecore/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bluecore",
	Short: "Find and reuse installed packages across projects",
	Long: `bluecore keeps a registry (rhezusport.json) of which package versions are
installed where. It searches your home directory, common project folders and
attached drives for registries and installs, merges what it finds, and links
existing installs into new projects instead of downloading them again.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty rhezusport.json in the current directory",
	RunE:  runInit,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find every rhezusport.json and merge them into the global registry",
	RunE:  runScan,
}

var findCmd = &cobra.Command{
	Use:   "find <package>...",
	Short: "Search disk for installs of the named packages",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFind,
}

var mergeCmd = &cobra.Command{
	Use:   "merge <file>...",
	Short: "Merge registry files",
	Long:  `Merges the given registry files left to right and prints the result, or writes it with --output.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMerge,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List packages in the global registry",
	RunE:  runList,
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the current project's dependencies in its rhezusport.json",
	RunE:  runRecord,
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the most recently modified rhezusport.json",
	RunE:  runLatest,
}

var rebaseCmd = &cobra.Command{
	Use:   "rebase",
	Short: "Link existing installs into this project and install the rest",
	Long: `Reads package.json, reuses installs recorded in any registry or found on disk
by symlinking them into node_modules, installs whatever is left with yarn
(when yarn.lock exists) or npm, and saves the updated registries.`,
	RunE: runRebase,
}

var rootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "Print the directories searches start from",
	RunE:  runRoots,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent searches",
	RunE:  runHistory,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath   string
	verbose      bool
	logFile      string
	jsonOutput   bool
	dryRun       bool
	mergeOutput  string
	listFile     string
	historyLimit int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.bluecore/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file")

	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "Write the merged registry to this file")
	listCmd.Flags().StringVar(&listFile, "file", "", "Registry file to list (default: global registry)")
	rebaseCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would happen without linking, installing or saving")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(rebaseCmd)
	rootCmd.AddCommand(rootsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// signalContext is cancelled on SIGINT/SIGTERM so searches stop promptly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	project := a.project()
	created, err := project.Init()
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Created %s\n", project.MarkerPath())
	} else {
		fmt.Printf("%s already exists\n", project.MarkerPath())
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	files, summary := a.discovery.FindMarkers(ctx)
	merged := a.discovery.Merge(ctx, files)

	fmt.Printf("\n=== Registries (%d) ===\n", len(files))
	for _, f := range files {
		fmt.Printf("  - %s\n", f)
	}
	printSummary(summary)

	globalPath := a.cfg.GlobalRegistryPath()
	if err := a.store.Save(merged, globalPath); err != nil {
		return err
	}
	fmt.Printf("\nMerged %d package versions into %s\n", merged.Size(), globalPath)
	return nil
}

func runFind(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	found, summary := a.discovery.FindPackages(ctx, args)
	for _, name := range args {
		paths := found[name]
		fmt.Printf("\n[%s]\n", name)
		if len(paths) == 0 {
			fmt.Println("  not found")
			continue
		}
		for _, p := range paths {
			fmt.Printf("  - %s\n", p)
		}
	}
	printSummary(summary)
	return nil
}

func runMerge(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	merged := a.discovery.Merge(cmd.Context(), args)
	if mergeOutput != "" {
		if err := a.store.Save(merged, mergeOutput); err != nil {
			return err
		}
		fmt.Printf("Wrote %d package versions to %s\n", merged.Size(), mergeOutput)
		return nil
	}

	data, err := json.MarshalIndent(merged.Normalize(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	path := listFile
	if path == "" {
		path = a.cfg.GlobalRegistryPath()
	}
	registry, err := a.store.Load(path)
	if err != nil {
		return err
	}
	if len(registry) == 0 {
		fmt.Printf("No packages recorded in %s\n", path)
		return nil
	}

	fmt.Printf("\n=== %s ===\n", path)
	for _, name := range registry.Names() {
		fmt.Printf("\n%s\n", name)
		for _, version := range usecase.SortVersions(registry.Versions(name)) {
			entry, _ := registry.Lookup(name, version)
			lastUsed := "never"
			if !entry.LastUsed.IsZero() {
				lastUsed = entry.LastUsed.Local().Format(time.DateTime)
			}
			fmt.Printf("  %-16s %d locations, %d installs, last used %s\n",
				version, len(entry.Locations), len(entry.InstallPaths), lastUsed)
		}
	}
	return nil
}

func runRecord(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	project := a.project()
	registry, err := project.Update()
	if err != nil {
		return err
	}
	fmt.Printf("Recorded %d package versions in %s\n", registry.Size(), project.MarkerPath())
	return nil
}

func runLatest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	latest := a.discovery.Latest(ctx)
	if latest == "" {
		return fmt.Errorf("no %s found", domain.MarkerFileName)
	}
	fmt.Println(latest)
	return nil
}

func runRebase(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := a.rebaser().Rebase(ctx, usecase.RebaseOptions{
		DryRun:             dryRun,
		GlobalRegistryPath: a.cfg.GlobalRegistryPath(),
	})
	if result != nil {
		printRebase(result)
	}
	return err
}

func printRebase(result *usecase.RebaseResult) {
	title := "Rebase"
	if result.DryRun {
		title = "Rebase (dry run)"
	}
	fmt.Printf("\n=== %s ===\n", title)
	fmt.Printf("Dependencies: %d, registries merged: %d\n", len(result.Dependencies), len(result.MarkerFiles))

	if len(result.Reused) > 0 {
		fmt.Println("\nReused:")
		for _, pkg := range result.Reused {
			state := "would link"
			switch {
			case pkg.Linked:
				state = "linked"
			case !result.DryRun:
				state = "already in place"
			}
			fmt.Printf("  - %s@%s %s from %s\n", pkg.Name, pkg.Version, state, pkg.Source)
		}
	}
	if len(result.Installed) > 0 {
		verb := "Installed"
		if result.DryRun {
			verb = "Would install"
		}
		if result.PackageManager != "" {
			verb += " with " + result.PackageManager
		}
		fmt.Printf("\n%s: %s\n", verb, strings.Join(result.Installed, ", "))
	}
	if len(result.Written) > 0 {
		fmt.Println("\nSaved:")
		for _, p := range result.Written {
			fmt.Printf("  - %s\n", p)
		}
	}
}

func runRoots(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	for _, root := range a.roots.Roots() {
		fmt.Println(root)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if a.history == nil {
		return fmt.Errorf("scan history is disabled")
	}
	runs, err := a.history.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No searches recorded yet.")
		return nil
	}
	for _, s := range runs {
		flag := ""
		if s.GlobalTimeout {
			flag = " (global timeout)"
		}
		fmt.Printf("%s  %-8s %s  roots=%d done=%d timed_out=%d failed=%d found=%d %s%s\n",
			s.StartedAt.Local().Format(time.DateTime), s.Kind, shortID(s.RunID),
			s.Roots, s.Completed, s.TimedOut, s.Failed, s.Found, s.Duration.Round(time.Millisecond), flag)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printSummary(s domain.ScanSummary) {
	fmt.Printf("\nSearched %d roots in %s: %d done, %d timed out, %d failed",
		s.Roots, s.Duration.Round(time.Millisecond), s.Completed, s.TimedOut, s.Failed)
	if s.GlobalTimeout {
		fmt.Printf(", stopped at the global deadline (%d abandoned, %d not started)", s.Abandoned, s.NotStarted)
	}
	fmt.Println()
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("bluecore %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
