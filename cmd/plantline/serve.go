package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nerrad567/plantline/internal/api"
	"github.com/nerrad567/plantline/internal/engine"
	"github.com/nerrad567/plantline/internal/infrastructure/metrics"
)

func runServe(ctx context.Context, args []string, _ io.Writer) error {
	fs, configPath := newFlagSet("serve", os.Stderr)
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	rt, err := newRuntime(*configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.cfg.API.Enabled {
		return errors.New("serve requires api.enabled")
	}

	if err := rt.openDatabase(ctx); err != nil {
		return err
	}
	if err := rt.connectMQTT(); err != nil {
		return err
	}
	if err := rt.connectInfluxDB(); err != nil {
		return err
	}

	// A missing back-end leaves the API up; runs on it answer 503.
	if rt.cfg.Physical.Enabled {
		if err := rt.connectPhysical(ctx); err != nil {
			rt.log.Warn("physical back-end unavailable", "error", err)
		}
	} else {
		rt.log.Info("physical back-end disabled")
	}
	if rt.cfg.Virtual.Enabled {
		if err := rt.connectVirtual(); err != nil {
			rt.log.Warn("virtual back-end unavailable", "error", err)
		}
	} else {
		rt.log.Info("virtual back-end disabled")
	}

	reg := metrics.NewRegistry()
	hub := api.NewHub(rt.cfg.WebSocket, rt.log)
	eng := rt.newEngine(reg, hub)

	health := healthCheckers(rt)
	if err := healthCheck(ctx, health); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	rt.log.Info("all health checks passed", "backends", eng.Backends())

	server, err := api.New(api.Deps{
		Config:   rt.cfg.API,
		WS:       rt.cfg.WebSocket,
		Security: rt.cfg.Security,
		Plant:    rt.cfg.Plant,
		Planner:  rt.cfg.Planner,
		Logger:   rt.log,
		Engine:   eng,
		Runs:     engine.NewSQLiteRepository(rt.db.DB),
		Metrics:  reg,
		Hub:      hub,
		Health:   health,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}

	rt.log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	rt.log.Info("shutdown signal received, cleaning up")

	// The server goes first so an active run winds down before its back-ends close.
	if err := server.Close(); err != nil {
		rt.log.Error("error closing API server", "error", err)
	}
	rt.log.Info("plantline stopped")
	return nil
}

// healthCheckers lists the opened components by name.
func healthCheckers(rt *runtime) map[string]api.HealthChecker {
	checks := map[string]api.HealthChecker{}
	if rt.db != nil {
		checks["database"] = rt.db
	}
	if rt.mqtt != nil {
		checks["mqtt"] = rt.mqtt
	}
	if rt.influx != nil {
		checks["influxdb"] = rt.influx
	}
	if rt.physical != nil {
		checks["physical"] = rt.physical
	}
	if rt.virtual != nil {
		checks["virtual"] = rt.virtual
	}
	return checks
}

// healthCheck verifies the infrastructure connections. The back-ends are
// left out: they report through /health instead of failing startup.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for _, name := range []string{"database", "mqtt", "influxdb"} {
		c, ok := checks[name]
		if !ok {
			continue
		}
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
