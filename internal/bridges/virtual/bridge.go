package virtual

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/plantline/internal/command"
	"github.com/nerrad567/plantline/internal/engine"
)

// Default command variables.
const (
	DefaultArmVariable    = "ar_command"
	DefaultSledgeVariable = "ss_command"
)

// Config holds the virtual back-end settings.
type Config struct {
	// ArmVariable and SledgeVariable name the command variables.
	ArmVariable    string
	SledgeVariable string

	// PollInterval is the state read interval. Default: 10ms.
	PollInterval time.Duration

	// QoS is used for set, release and state subscriptions.
	QoS byte
}

func (c *Config) applyDefaults() {
	if c.ArmVariable == "" {
		c.ArmVariable = DefaultArmVariable
	}
	if c.SledgeVariable == "" {
		c.SledgeVariable = DefaultSledgeVariable
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
}

// Bridge owns the arm and sledge lanes of the virtual back-end.
type Bridge struct {
	vars   *Variables
	arm    *Lane
	sledge *Lane
}

// New subscribes to the twin state topics and builds both lanes.
func New(client MQTTClient, cfg Config, logger Logger) (*Bridge, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = noopLogger{}
	}
	vars, err := NewVariables(client, cfg.QoS, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("virtual twin bridge ready", "arm", cfg.ArmVariable, "sledge", cfg.SledgeVariable)
	return &Bridge{
		vars:   vars,
		arm:    NewLane(vars, command.Arm, cfg.ArmVariable, cfg.PollInterval, logger),
		sledge: NewLane(vars, command.Sledge, cfg.SledgeVariable, cfg.PollInterval, logger),
	}, nil
}

// Lanes returns the lanes for engine.Attach.
func (b *Bridge) Lanes() engine.Lanes {
	return engine.Lanes{Arm: b.arm, Sledge: b.sledge}
}

// Variables returns the variable cache the lanes share.
func (b *Bridge) Variables() *Variables { return b.vars }

// HealthCheck reports whether the twin transport is up.
func (b *Bridge) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("virtual health check: %w", err)
	}
	if !b.vars.Connected() {
		return ErrNotConnected
	}
	return nil
}
