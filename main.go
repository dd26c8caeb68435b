// pattern: Imperative Shell
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"

	"venvkiller/internal/cli"
	"venvkiller/internal/config"
	"venvkiller/internal/instance"
	"venvkiller/internal/logging"
	"venvkiller/internal/tui"
	"venvkiller/internal/watch"
)

var version = "dev"

// options holds the global flags. They override config.yaml only when set
// explicitly on the command line.
type options struct {
	configDir   string
	startDir    string
	recentDays  int
	oldDays     int
	maxDepth    int
	exclude     []string
	noParallel  bool
	logLevel    string
	showVersion bool
}

func registerFlags(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVarP(&o.configDir, "config-dir", "c", "", "config directory (default: ~/.config/venvkiller)")
	fs.StringVarP(&o.startDir, "start-dir", "d", "", "directory to scan (default: home directory)")
	fs.IntVarP(&o.recentDays, "recent", "r", config.DefaultRecentDays, "environments used within this many days are recent")
	fs.IntVarP(&o.oldDays, "old", "o", config.DefaultOldDays, "environments idle for this many days are old")
	fs.IntVar(&o.maxDepth, "max-depth", config.DefaultMaxDepth, "how many directory levels below the start directory to search")
	fs.StringSliceVar(&o.exclude, "exclude", nil, "additional directory names to skip (repeatable)")
	fs.BoolVar(&o.noParallel, "no-parallel", false, "scan top-level directories one at a time")
	fs.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.BoolVarP(&o.showVersion, "version", "v", false, "print version and exit")
	return o
}

// applyFlags copies explicitly set flags onto cfg.
func applyFlags(cfg *config.Config, fs *flag.FlagSet, o *options) {
	if fs.Changed("start-dir") {
		cfg.StartDir = o.startDir
	}
	if fs.Changed("recent") {
		cfg.RecentDays = o.recentDays
	}
	if fs.Changed("old") {
		cfg.OldDays = o.oldDays
	}
	if fs.Changed("max-depth") {
		cfg.MaxDepth = o.maxDepth
	}
	if fs.Changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, o.exclude...)
	}
	if fs.Changed("no-parallel") {
		cfg.Parallel = !o.noParallel
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
}

func main() {
	// Stop parsing flags after the first non-flag arg (the subcommand),
	// so that --help after a subcommand is handled by the subcommand.
	flag.CommandLine.SetInterspersed(false)
	opts := registerFlags(flag.CommandLine)

	flag.Usage = func() {
		cli.NewApp(version).PrintHelp(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if opts.showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := loadConfig(opts.configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
	applyFlags(&cfg, flag.CommandLine, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dataDir := cli.ResolveDataDir(opts.configDir)
	logManager, err := logging.NewManager(logging.Config{
		FilePath: filepath.Join(dataDir, "venvkiller.log"),
		Level:    cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logManager.Close() }()

	app := cli.BuildApp(version, cli.Env{
		Config:    cfg,
		ConfigDir: opts.configDir,
		Logs:      logManager,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	})

	if app.Execute(flag.Args()) {
		if err := runTUI(cfg, dataDir, logManager); err != nil {
			_ = logManager.Close()
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

// loadConfig loads the configuration from the specified directory or default location.
func loadConfig(configDir string) (config.Config, error) {
	if configDir != "" {
		return config.LoadFromDir(configDir)
	}
	return config.Load()
}

// runTUI launches the interactive TUI and prints the session summary after
// it exits.
func runTUI(cfg config.Config, dataDir string, logManager *logging.Manager) error {
	fl, err := instance.Lock(dataDir)
	if err != nil {
		return err
	}
	defer instance.Cleanup(dataDir, fl)

	root, err := cfg.ResolveStartDir()
	if err != nil {
		return err
	}

	appLogger := logManager.For("app")
	appLogger.Info("application starting", "version", version, "root", root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := watch.New(logManager.For("watch"))
	if err != nil {
		appLogger.Warn("filesystem watcher unavailable", "error", err)
	} else {
		defer func() { _ = watcher.Close() }()
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				appLogger.Warn("watcher stopped", "error", err)
			}
		}()
	}

	model := tui.NewModel(tui.Deps{
		Config:  cfg,
		Root:    root,
		Logs:    logManager,
		Entries: logManager.Entries(),
		Watcher: watcher,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		appLogger.Error("tui exited with error", "error", err)
		return err
	}
	appLogger.Info("application stopping")

	if m, ok := final.(tui.Model); ok {
		fmt.Println(m.Summary())
	}
	return nil
}
