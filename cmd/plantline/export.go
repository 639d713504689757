package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nerrad567/plantline/internal/auth"
	"github.com/nerrad567/plantline/internal/document"
	"github.com/nerrad567/plantline/internal/infrastructure/config"
	"github.com/nerrad567/plantline/internal/pipeline"
	"github.com/nerrad567/plantline/internal/topology"
	"github.com/nerrad567/plantline/internal/transport"
)

// newFlagSet returns a flag set with the shared -config flag.
func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "configuration file (default $PLANTLINE_CONFIG or "+defaultConfigPath+")")
	return fs, configPath
}

// parseFlags parses args and reports -h as a clean exit.
func parseFlags(fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		return false, fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return true, nil
}

func required(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: -%s is required", errUsage, name)
	}
	return nil
}

func runExportTopology(_ context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("export-topology", os.Stderr)
	slots := fs.String("slots", "", "slot property table (CSV, ';' separated)")
	out := fs.String("out", "", "topology document to write")
	blueprint := fs.String("blueprint", "", "document providing the role and unit libraries (default built-in)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if err := errors.Join(required("slots", *slots), required("out", *out)); err != nil {
		return err
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	rows, err := readSlotTable(*slots)
	if err != nil {
		return err
	}

	var bp *document.Document
	if *blueprint != "" {
		if bp, err = document.Load(*blueprint); err != nil {
			return fmt.Errorf("loading blueprint: %w", err)
		}
	}

	d, err := pipeline.ExportTopology(rows, cfg.Plant.Hierarchy, bp)
	if err != nil {
		return fmt.Errorf("building topology: %w", err)
	}
	if err := d.Save(*out); err != nil {
		return fmt.Errorf("saving topology: %w", err)
	}
	_, err = fmt.Fprintf(stdout, "topology with %d slots written to %s\n", len(rows), *out)
	return err
}

func runExportPlant(_ context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("export-plant", os.Stderr)
	topoPath := fs.String("topology", "", "topology document to read")
	out := fs.String("out", "", "plant document to write")
	policy := fs.String("policy", "", "transport policy: automatic or custom (default from config)")
	colors := fs.String("colors", "", "comma separated color sequence for the custom policy")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if err := errors.Join(required("topology", *topoPath), required("out", *out)); err != nil {
		return err
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	opts, err := planOptions(cfg.Planner, *policy, *colors)
	if err != nil {
		return err
	}

	topo, err := document.Load(*topoPath)
	if err != nil {
		return fmt.Errorf("loading topology: %w", err)
	}
	d, err := pipeline.ExportPlant(topo, cfg.Plant.Hierarchy, opts)
	if err != nil {
		return fmt.Errorf("building plant: %w", err)
	}
	if err := d.Save(*out); err != nil {
		return fmt.Errorf("saving plant: %w", err)
	}

	cmds, err := pipeline.Commands(d, cfg.Plant.Hierarchy)
	if err != nil {
		return fmt.Errorf("extracting commands: %w", err)
	}
	_, err = fmt.Fprintf(stdout, "plant with %d commands written to %s\n", len(cmds), *out)
	return err
}

func runToken(_ context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("token", os.Stderr)
	subject := fs.String("subject", "", "token subject (client name)")
	role := fs.String("role", string(auth.RoleOperator), "token role: viewer or operator")
	ttl := fs.Duration("ttl", 0, "token lifetime (default security.jwt.token_ttl)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if err := required("subject", *subject); err != nil {
		return err
	}
	if !auth.IsValidRole(auth.Role(*role)) {
		return fmt.Errorf("%w: %q", auth.ErrInvalidRole, *role)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = cfg.GetTokenTTL()
	}
	if lifetime <= 0 {
		lifetime = auth.DefaultTTL
	}

	token, err := auth.IssueToken(*subject, auth.Role(*role), cfg.Security.JWT.Secret, lifetime)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	fmt.Fprintf(os.Stderr, "token for %s (%s) expires %s\n", *subject, *role, tokenDeadline(lifetime))
	_, err = fmt.Fprintln(stdout, token)
	return err
}

// planOptions resolves the transport policy from flags, falling back to the
// planner configuration.
func planOptions(cfg config.PlannerConfig, policy, colors string) (pipeline.PlanOptions, error) {
	if policy == "" {
		policy = cfg.Policy
	}
	p, err := transport.ParsePolicy(policy)
	if err != nil {
		return pipeline.PlanOptions{}, err
	}

	seq := cfg.ColorSequence
	if colors != "" {
		seq = nil
		for c := range strings.SplitSeq(colors, ",") {
			if c = strings.TrimSpace(c); c != "" {
				seq = append(seq, c)
			}
		}
	}
	if p == transport.Custom && len(seq) == 0 {
		return pipeline.PlanOptions{}, fmt.Errorf("%w: -colors is required for the custom policy", errUsage)
	}
	return pipeline.PlanOptions{Policy: p, Colors: seq}, nil
}

func readSlotTable(path string) ([]topology.SlotRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening slot table: %w", err)
	}
	defer f.Close()

	rows, err := topology.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading slot table: %w", err)
	}
	return rows, nil
}

func writeSlotTable(path string, rows []topology.SlotRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating slot table: %w", err)
	}
	if err := topology.WriteCSV(f, rows); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("writing slot table: %w", err)
	}
	return f.Close()
}

// tokenDeadline formats a token expiry for log output.
func tokenDeadline(ttl time.Duration) string {
	return time.Now().Add(ttl).UTC().Format(time.RFC3339)
}
