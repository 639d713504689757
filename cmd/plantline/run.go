package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nerrad567/plantline/internal/bridges/virtual"
	"github.com/nerrad567/plantline/internal/document"
	"github.com/nerrad567/plantline/internal/engine"
	"github.com/nerrad567/plantline/internal/pipeline"
	"github.com/nerrad567/plantline/internal/topology"
)

func runScan(ctx context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("scan", os.Stderr)
	out := fs.String("out", "", "write the slot table here (default stdout)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	rt, err := newRuntime(*configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.openDatabase(ctx); err != nil {
		return err
	}
	if err := rt.connectInfluxDB(); err != nil {
		return err
	}
	if err := rt.connectPhysical(ctx); err != nil {
		return err
	}

	progress := io.Writer(os.Stderr)
	e := rt.newEngine(nil, nil)
	rows, run, err := e.Scan(ctx, printProgress(progress))
	printRun(progress, run)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if *out == "" {
		return topology.WriteCSV(stdout, rows)
	}
	if err := writeSlotTable(*out, rows); err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "slot table written to %s\n", *out)
	return err
}

func runSimulate(ctx context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("simulate", os.Stderr)
	plantPath := fs.String("plant", "", "plant document to play")
	physical := fs.Bool("physical", false, "play on the physical controllers")
	virt := fs.Bool("virtual", false, "play on the virtual twin")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if err := required("plant", *plantPath); err != nil {
		return err
	}

	rt, err := newRuntime(*configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Without back-end flags, play on the back-ends enabled in the config.
	if !*physical && !*virt {
		*physical = rt.cfg.Physical.Enabled
		*virt = rt.cfg.Virtual.Enabled
	}
	if !*physical && !*virt {
		return fmt.Errorf("%w: no back-end selected (use -physical and/or -virtual)", errUsage)
	}

	d, err := document.Load(*plantPath)
	if err != nil {
		return fmt.Errorf("loading plant: %w", err)
	}
	cmds, err := pipeline.Commands(d, rt.cfg.Plant.Hierarchy)
	if err != nil {
		return fmt.Errorf("extracting commands: %w", err)
	}
	rt.log.Info("command list extracted", "commands", len(cmds))

	if err := rt.openDatabase(ctx); err != nil {
		return err
	}
	if err := rt.connectInfluxDB(); err != nil {
		return err
	}

	var backends []engine.Backend
	if *physical {
		if err := rt.connectPhysical(ctx); err != nil {
			return err
		}
		backends = append(backends, engine.Physical)
	}
	if *virt {
		if err := rt.connectMQTT(); err != nil {
			return err
		}
		if err := rt.connectVirtual(); err != nil {
			return err
		}
		backends = append(backends, engine.Virtual)
	}

	e := rt.newEngine(nil, nil)
	run, err := e.Simulate(ctx, cmds, backends, printProgress(stdout))
	printRun(stdout, run)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			rt.log.Warn("simulation cancelled")
			return nil
		}
		return fmt.Errorf("simulate: %w", err)
	}
	return nil
}

func runImportVirtual(ctx context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("import-virtual", os.Stderr)
	plantPath := fs.String("plant", "", "plant or topology document to mirror")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if err := required("plant", *plantPath); err != nil {
		return err
	}

	rt, err := newRuntime(*configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	g, err := document.LoadGraph(*plantPath, rt.cfg.Plant.Hierarchy)
	if err != nil {
		return fmt.Errorf("loading plant: %w", err)
	}

	lib := virtual.DefaultLibrary()
	if dir := rt.cfg.Virtual.LibraryDir; dir != "" {
		if lib, err = virtual.LoadLibrary(dir); err != nil {
			return fmt.Errorf("loading twin library: %w", err)
		}
	}

	cfg := rt.virtualConfig()
	scene, err := virtual.BuildScene(g, lib, cfg)
	if err != nil {
		return fmt.Errorf("building scene: %w", err)
	}

	if err := rt.connectMQTT(); err != nil {
		return err
	}
	if err := virtual.Import(ctx, rt.mqtt, cfg.QoS, scene, rt.log); err != nil {
		return fmt.Errorf("importing scene: %w", err)
	}
	_, err = fmt.Fprintf(stdout, "imported %d objects and %d variables into the virtual twin\n",
		len(scene.Placements), len(scene.Variables))
	return err
}
