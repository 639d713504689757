package main

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"

	"github.com/nerrad567/plantline/internal/bridges/serial"
	"github.com/nerrad567/plantline/internal/bridges/virtual"
	"github.com/nerrad567/plantline/internal/engine"
	"github.com/nerrad567/plantline/internal/infrastructure/config"
	"github.com/nerrad567/plantline/internal/infrastructure/database"
	"github.com/nerrad567/plantline/internal/infrastructure/influxdb"
	"github.com/nerrad567/plantline/internal/infrastructure/logging"
	"github.com/nerrad567/plantline/internal/infrastructure/mqtt"
	"github.com/nerrad567/plantline/migrations"
)

// tracerName names the engine spans.
const tracerName = "github.com/nerrad567/plantline/internal/engine"

// runtime holds the infrastructure opened by the online subcommands.
// Close releases it in reverse order of opening.
type runtime struct {
	cfg *config.Config
	log *logging.Logger

	db       *database.DB
	mqtt     *mqtt.Client
	influx   *influxdb.Client
	physical *serial.Bridge
	virtual  *virtual.Bridge

	closers []func()
}

// newRuntime loads the configuration and switches to the configured logger.
func newRuntime(configFlag string) (*runtime, error) {
	log := logging.Default()
	cfg, path, err := loadConfig(configFlag)
	if err != nil {
		return nil, err
	}
	if path != "" {
		log.Info("configuration loaded", "path", path)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting plantline",
		"version", version,
		"commit", commit,
		"build_date", date,
	)
	return &runtime{cfg: cfg, log: log}, nil
}

func (r *runtime) onClose(fn func()) { r.closers = append(r.closers, fn) }

// Close runs the cleanup functions in reverse order.
func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// openDatabase opens the run log and applies pending migrations.
func (r *runtime) openDatabase(ctx context.Context) error {
	db, err := database.Open(r.cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	r.onClose(func() {
		r.log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			r.log.Error("error closing database", "error", closeErr)
		}
	})
	r.log.Info("database connected", "path", db.Path())

	applied, err := db.Migrate(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	r.log.Info("database migrations complete", "applied", applied)
	r.db = db
	return nil
}

// connectMQTT connects to the broker used by the virtual twin and for
// progress publication.
func (r *runtime) connectMQTT() error {
	client, err := mqtt.Connect(r.cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	r.onClose(func() {
		r.log.Info("disconnecting from MQTT")
		if closeErr := client.Close(); closeErr != nil {
			r.log.Error("error closing MQTT", "error", closeErr)
		}
	})
	r.log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", r.cfg.MQTT.Broker.Host, r.cfg.MQTT.Broker.Port),
		"client_id", r.cfg.MQTT.Broker.ClientID,
	)

	client.SetLogger(r.log)
	client.SetOnConnect(func() {
		r.log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		r.log.Warn("MQTT disconnected", "error", err)
	})
	r.mqtt = client
	return nil
}

// connectInfluxDB connects the optional telemetry sink.
func (r *runtime) connectInfluxDB() error {
	if !r.cfg.InfluxDB.Enabled {
		r.log.Info("InfluxDB disabled")
		return nil
	}
	client, err := influxdb.Connect(r.cfg.InfluxDB)
	if err != nil {
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	r.onClose(func() {
		r.log.Info("closing InfluxDB connection")
		if closeErr := client.Close(); closeErr != nil {
			r.log.Error("error closing InfluxDB", "error", closeErr)
		}
	})
	r.log.Info("InfluxDB connected",
		"url", r.cfg.InfluxDB.URL,
		"org", r.cfg.InfluxDB.Org,
		"bucket", r.cfg.InfluxDB.Bucket,
	)
	client.SetOnError(func(err error) {
		r.log.Error("InfluxDB write error", "error", err)
	})
	r.influx = client
	return nil
}

// connectPhysical opens the controller links and runs the handshakes.
func (r *runtime) connectPhysical(ctx context.Context) error {
	b, err := serial.Connect(ctx, serial.Config{
		Ports:             r.cfg.Physical.Ports,
		Baud:              r.cfg.Physical.Baud,
		HandshakeInterval: r.cfg.Physical.HandshakeInterval,
		HandshakeTimeout:  r.cfg.Physical.HandshakeTimeout,
	}, r.log)
	if err != nil {
		return fmt.Errorf("connecting physical controllers: %w", err)
	}
	r.onClose(func() {
		r.log.Info("closing controller links")
		if closeErr := b.Close(); closeErr != nil {
			r.log.Error("error closing controller links", "error", closeErr)
		}
	})
	for _, st := range b.Stats() {
		r.log.Info("controller connected", "port", st.Port, "lane", st.Class)
	}
	r.physical = b
	return nil
}

// connectVirtual subscribes to the twin state variables. MQTT must be connected.
func (r *runtime) connectVirtual() error {
	b, err := virtual.New(r.mqtt, r.virtualConfig(), r.log)
	if err != nil {
		return fmt.Errorf("connecting virtual twin: %w", err)
	}
	r.virtual = b
	return nil
}

func (r *runtime) virtualConfig() virtual.Config {
	return virtual.Config{
		ArmVariable:    r.cfg.Virtual.ArmVariable,
		SledgeVariable: r.cfg.Virtual.SledgeVariable,
		PollInterval:   r.cfg.Virtual.PollInterval,
		QoS:            byte(r.cfg.MQTT.QoS), //nolint:gosec // validated to 0..2
	}
}

// newEngine builds an engine over the opened infrastructure and attaches the
// connected back-ends.
func (r *runtime) newEngine(metrics engine.Metrics, hub engine.WSHub) *engine.Engine {
	deps := engine.Deps{
		Metrics: metrics,
		Hub:     hub,
		Tracer:  otel.Tracer(tracerName),
		Logger:  r.log,
	}
	if r.db != nil {
		deps.Repo = engine.NewSQLiteRepository(r.db.DB)
	}
	if r.mqtt != nil {
		deps.MQTT = r.mqtt
	}
	if r.influx != nil {
		deps.Telemetry = r.influx
	}

	e := engine.New(deps, engine.Options{
		PollInterval:      r.cfg.Engine.PollInterval,
		CompletionTimeout: r.cfg.Engine.CompletionTimeout,
		StandbyTimeout:    r.cfg.Engine.StandbyTimeout,
	})
	if r.physical != nil {
		e.Attach(engine.Physical, r.physical.Lanes())
	}
	if r.virtual != nil {
		e.Attach(engine.Virtual, r.virtual.Lanes())
	}
	return e
}

// printProgress writes one line per completed command.
func printProgress(w io.Writer) engine.ProgressFunc {
	return func(p engine.Progress) {
		fmt.Fprintf(w, "[%3.0f%%] %d/%d %s\n", p.Percent, p.Completed, p.Total, p.Opcode)
	}
}

// printRun writes the run summary.
func printRun(w io.Writer, run *engine.Run) {
	if run == nil {
		return
	}
	fmt.Fprintf(w, "run %s %s: %d/%d commands", run.ID, run.Status, run.Completed, run.Total)
	if run.DurationMS != nil {
		fmt.Fprintf(w, " in %dms", *run.DurationMS)
	}
	fmt.Fprintln(w)
}
