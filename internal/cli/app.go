// pattern: Functional Core
package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
)

// Command is a single subcommand. Run receives the arguments after the
// command name and reports failure by returning an error.
type Command struct {
	Name    string
	Summary string
	Usage   string
	Run     func(args []string) error
}

// App dispatches subcommands. With no arguments the caller launches the TUI.
type App struct {
	commands map[string]*Command
	order    []string
	version  string

	stderr io.Writer
	exit   func(code int)
}

// NewApp creates an application that reports errors on stderr and exits
// with status 1 when a command fails.
func NewApp(version string) *App {
	return &App{
		commands: make(map[string]*Command),
		version:  version,
		stderr:   os.Stderr,
		exit:     os.Exit,
	}
}

// AddCommand registers cmd. Help lists commands in registration order.
func (a *App) AddCommand(cmd *Command) {
	if _, ok := a.commands[cmd.Name]; !ok {
		a.order = append(a.order, cmd.Name)
	}
	a.commands[cmd.Name] = cmd
}

// Execute runs the command named by args[0]. It returns true when no
// command was given and the TUI should start.
func (a *App) Execute(args []string) bool {
	if len(args) == 0 {
		return true
	}

	name := args[0]
	if name == "help" || name == "--help" || name == "-h" {
		a.PrintHelp(a.stderr)
		return false
	}

	cmd, ok := a.commands[name]
	if !ok {
		fmt.Fprintf(a.stderr, "unknown command %q\n\n", name)
		a.PrintHelp(a.stderr)
		a.exit(1)
		return false
	}

	if slices.Contains(args[1:], "--help") || slices.Contains(args[1:], "-h") {
		fmt.Fprintf(a.stderr, "%s\n", cmd.Usage)
		return false
	}

	if err := cmd.Run(args[1:]); err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		a.exit(1)
	}
	return false
}

// PrintHelp prints the top-level help text.
func (a *App) PrintHelp(w io.Writer) {
	fmt.Fprintf(w, "venvkiller %s - find and delete Python virtual environments\n\n", a.version)
	fmt.Fprintf(w, "Usage: venvkiller [options] [command]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, name := range a.order {
		fmt.Fprintf(w, "  %-10s %s\n", name, a.commands[name].Summary)
	}
	fmt.Fprintf(w, "  %-10s %s\n", "(none)", "Launch interactive TUI")
	fmt.Fprintf(w, "\nUse \"venvkiller <command> --help\" for command details.\n\n")
	fmt.Fprintf(w, "Options:\n")
}
