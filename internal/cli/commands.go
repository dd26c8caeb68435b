// pattern: Imperative Shell
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"venvkiller/internal/cleaner"
	"venvkiller/internal/config"
	"venvkiller/internal/discovery"
	"venvkiller/internal/instance"
	"venvkiller/internal/logging"
)

// Env is everything a command needs from the process.
type Env struct {
	Config    config.Config
	ConfigDir string // --config-dir, empty for the default location
	Logs      logging.LoggerProvider
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
}

func (e Env) logger(scope string) *logging.ScopedLogger {
	if e.Logs == nil {
		return logging.NopLogger()
	}
	return e.Logs.For(scope)
}

// ResolveDataDir returns the directory holding the lock and log files.
// If configDir is specified it is used as is.
func ResolveDataDir(configDir string) string {
	if configDir != "" {
		return configDir
	}
	return config.Dir()
}

// BuildApp creates the CLI application with all commands registered.
func BuildApp(version string, env Env) *App {
	app := NewApp(version)

	app.AddCommand(&Command{
		Name:    "scan",
		Summary: "List virtual environments without deleting anything",
		Usage:   "Usage: venvkiller scan [--json] [dir]",
		Run: func(args []string) error {
			return runScanCommand(env, args)
		},
	})

	app.AddCommand(&Command{
		Name:    "delete",
		Summary: "Delete the given virtual environments",
		Usage:   "Usage: venvkiller delete [--yes] [--force] <path>...",
		Run: func(args []string) error {
			return runDeleteCommand(env, args)
		},
	})

	app.AddCommand(&Command{
		Name:    "cleanup",
		Summary: "Remove a stale lock left by a crashed session",
		Usage:   "Usage: venvkiller cleanup",
		Run: func(args []string) error {
			return runCleanupCommand(env)
		},
	})

	app.AddCommand(&Command{
		Name:    "version",
		Summary: "Print version and exit",
		Usage:   "Usage: venvkiller version",
		Run: func(args []string) error {
			fmt.Fprintln(env.Stdout, version)
			return nil
		},
	})

	return app
}

// runScanCommand scans the start directory (or the given one) and prints
// what it finds.
func runScanCommand(env Env, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := env.Config
	if fs.NArg() > 0 {
		cfg.StartDir = fs.Arg(0)
	}
	root, err := cfg.ResolveStartDir()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	envs, err := discovery.Find(ctx,
		discovery.NewScanner(env.logger("scan")),
		discovery.NewClassifier(env.logger("classify")),
		root,
		discovery.Options{MaxDepth: cfg.MaxDepth, Exclude: cfg.Exclude, Parallel: cfg.Parallel},
	)
	if err != nil {
		return err
	}

	if *asJSON {
		return writeJSON(env.Stdout, envs, cfg)
	}
	writeTable(env.Stdout, envs, cfg)
	fmt.Fprintf(env.Stdout, "\n%d environment(s), %s total, scanned %s in %s\n",
		len(envs), discovery.FormatSize(discovery.TotalSize(envs)), root, time.Since(start).Round(time.Millisecond))
	return nil
}

// runDeleteCommand deletes the paths given on the command line.
func runDeleteCommand(env Env, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	yes := fs.BoolP("yes", "y", false, "do not ask for confirmation")
	force := fs.Bool("force", false, "delete directories that do not look like virtual environments")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no paths given")
	}

	var targets []string
	var refused []cleaner.Failure
	for _, arg := range fs.Args() {
		path, err := filepath.Abs(config.ExpandHome(arg))
		if err != nil {
			return err
		}
		if !*force && !discovery.IsEnvironment(path) {
			refused = append(refused, cleaner.Failure{
				Path:   path,
				Detail: "not a virtual environment (use --force to delete anyway)",
			})
			continue
		}
		targets = append(targets, path)
	}

	for _, f := range refused {
		fmt.Fprintf(env.Stderr, "skipping %s: %s\n", f.Path, f.Detail)
	}
	if len(targets) == 0 {
		return errors.New("nothing to delete")
	}

	if !*yes {
		ok, err := confirm(env.Stdin, env.Stdout, fmt.Sprintf("Delete %d environment(s)? This cannot be undone. [y/N] ", len(targets)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(env.Stdout, "Aborted.")
			return nil
		}
	}

	dataDir := ResolveDataDir(env.ConfigDir)
	fl, err := instance.Lock(dataDir)
	if err != nil {
		return err
	}
	defer instance.Cleanup(dataDir, fl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	progress := newProgressPrinter(env.Stderr)
	report := cleaner.NewEngine(env.logger("delete")).DeleteMany(ctx, targets, progress.update)
	progress.finish()

	fmt.Fprintln(env.Stdout, report.Describe(discovery.FormatSize))
	for _, f := range report.Failures {
		fmt.Fprintf(env.Stdout, "  failed: %s\n", f.Path)
		for _, line := range strings.Split(f.Detail, "\n") {
			fmt.Fprintf(env.Stdout, "    %s\n", line)
		}
	}

	if failed := len(report.Failures) + len(refused); failed > 0 {
		return fmt.Errorf("%d path(s) not deleted", failed)
	}
	return nil
}

// runCleanupCommand removes the lock and PID file of a crashed session.
func runCleanupCommand(env Env) error {
	dataDir := ResolveDataDir(env.ConfigDir)

	// Taking the lock proves no session holds it.
	fl, err := instance.Lock(dataDir)
	if err != nil {
		return fmt.Errorf("a venvkiller session appears to be running, stop it first: %w", err)
	}
	instance.Cleanup(dataDir, fl)
	fmt.Fprintln(env.Stdout, "Cleaned up stale lock files.")
	return nil
}

// confirm asks a yes/no question, defaulting to no.
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// jsonEnvironment is the scan --json record.
type jsonEnvironment struct {
	Path          string    `json:"path"`
	SizeBytes     uint64    `json:"size_bytes"`
	ModifiedAt    time.Time `json:"modified_at"`
	AgeDays       int       `json:"age_days"`
	AgeClass      string    `json:"age_class"`
	Python        string    `json:"python"`
	HasManifest   bool      `json:"has_manifest"`
	ManifestPaths []string  `json:"manifest_paths"`
	PackageCount  int       `json:"package_count"`
}

func writeJSON(w io.Writer, envs []discovery.Environment, cfg config.Config) error {
	out := make([]jsonEnvironment, 0, len(envs))
	for _, e := range envs {
		manifests := e.ManifestPaths
		if manifests == nil {
			manifests = []string{}
		}
		out = append(out, jsonEnvironment{
			Path:          e.Path,
			SizeBytes:     e.SizeBytes,
			ModifiedAt:    e.ModifiedAt,
			AgeDays:       e.AgeDays,
			AgeClass:      e.Age(cfg.RecentDays, cfg.OldDays).String(),
			Python:        e.InterpreterVersion,
			HasManifest:   e.HasManifest,
			ManifestPaths: manifests,
			PackageCount:  e.PackageCount,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
