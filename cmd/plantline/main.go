// Plantline - production line planning and execution.
//
// plantline turns a slot property table into a plant document, compiles the
// transport process into a command list and plays it on the physical
// controllers, the virtual twin, or both in lockstep.
//
// Usage:
//
//	plantline <subcommand> [flags]
//
// Run "plantline help" for the list of subcommands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/plantline/internal/infrastructure/config"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// defaultConfigPath is used when neither -config nor PLANTLINE_CONFIG is set.
const defaultConfigPath = "/etc/plantline/config.yaml"

// errUsage marks argument errors; main prints usage for them.
var errUsage = errors.New("usage")

// subcommand is one entry of the command table.
type subcommand struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string, stdout io.Writer) error
}

func subcommands() []subcommand {
	return []subcommand{
		{"export-topology", "build a topology document from a slot table", runExportTopology},
		{"export-plant", "add products and the compiled job to a topology document", runExportPlant},
		{"import-virtual", "mirror a plant document into the virtual twin", runImportVirtual},
		{"scan", "read the slot table from the physical controllers", runScan},
		{"simulate", "play the command list of a plant document", runSimulate},
		{"serve", "run the HTTP API", runServe},
		{"token", "mint an API bearer token", runToken},
		{"version", "print version information", runVersion},
	}
}

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches to a subcommand, separated from main for testability.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing subcommand", errUsage)
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		usage(stdout)
		return nil
	}
	for _, sc := range subcommands() {
		if sc.name == name {
			return sc.run(ctx, args[1:], stdout)
		}
	}
	return fmt.Errorf("%w: unknown subcommand %q", errUsage, name)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: plantline <subcommand> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Subcommands:")
	for _, sc := range subcommands() {
		fmt.Fprintf(w, "  %-16s %s\n", sc.name, sc.summary)
	}
}

func runVersion(_ context.Context, _ []string, stdout io.Writer) error {
	_, err := fmt.Fprintf(stdout, "plantline %s (commit %s, built %s)\n", version, commit, date)
	return err
}

// getConfigPath returns the -config flag value, then PLANTLINE_CONFIG, then
// the default path.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("PLANTLINE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig reads the configuration file. When the path was not given
// explicitly and the default file does not exist, the built-in defaults are
// used so the offline subcommands work without a config file.
func loadConfig(flagValue string) (*config.Config, string, error) {
	path := getConfigPath(flagValue)
	explicit := flagValue != "" || os.Getenv("PLANTLINE_CONFIG") != ""

	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg, err := config.Default()
			if err != nil {
				return nil, "", fmt.Errorf("loading default config: %w", err)
			}
			return cfg, "", nil
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}
