package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for plantline.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Plant     PlantConfig     `yaml:"plant"`
	Planner   PlannerConfig   `yaml:"planner"`
	Engine    EngineConfig    `yaml:"engine"`
	Physical  PhysicalConfig  `yaml:"physical"`
	Virtual   VirtualConfig   `yaml:"virtual"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// PlantConfig identifies the production line and its document layout.
type PlantConfig struct {
	Name string `yaml:"name"`

	// Hierarchy is the name of the instance hierarchy holding the plant graph
	// inside topology and plant documents.
	Hierarchy string `yaml:"hierarchy"`
}

// PlannerConfig selects the transport matching policy.
type PlannerConfig struct {
	// Policy is "automatic" or "custom".
	Policy string `yaml:"policy"`

	// ColorSequence is the ordered color list used by the custom policy.
	// Repeat a color to request more than one pair of it.
	ColorSequence []string `yaml:"color_sequence"`
}

// EngineConfig contains execution engine timing settings.
type EngineConfig struct {
	// PollInterval is how often channel state is sampled while waiting for Standby.
	PollInterval time.Duration `yaml:"poll_interval"`

	// CompletionTimeout bounds the wait for a single command's completion token.
	// Zero waits forever.
	CompletionTimeout time.Duration `yaml:"completion_timeout"`

	// StandbyTimeout bounds the wait for a channel to reach Standby before dispatch.
	// Zero waits forever.
	StandbyTimeout time.Duration `yaml:"standby_timeout"`
}

// PhysicalConfig contains the serial controller settings.
type PhysicalConfig struct {
	Enabled bool `yaml:"enabled"`

	// Ports lists link URLs (serial:///dev/ttyUSB0, tcp://host:port) or the
	// single value "auto" to discover USB controllers.
	Ports []string `yaml:"ports"`

	Baud              int           `yaml:"baud"`
	HandshakeInterval time.Duration `yaml:"handshake_interval"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
}

// VirtualConfig contains the virtual twin settings.
type VirtualConfig struct {
	Enabled bool `yaml:"enabled"`

	// ArmVariable and SledgeVariable name the symbolic command variables.
	// Their state variables carry the "State" suffix.
	ArmVariable    string `yaml:"arm_variable"`
	SledgeVariable string `yaml:"sledge_variable"`

	PollInterval time.Duration `yaml:"poll_interval"`

	// LibraryDir optionally overrides the built-in library object ids.
	// Each subdirectory holds a guid.txt named after the object.
	LibraryDir string `yaml:"library_dir"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`

	// TokenTTL is the default lifetime of minted tokens, in minutes.
	TokenTTL int `yaml:"token_ttl"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PLANTLINE_SECTION_KEY
// For example: PLANTLINE_DATABASE_PATH, PLANTLINE_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides applied.
// It is used by the offline subcommands when no config file exists.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Plant: PlantConfig{
			Name:      "Demonstrator",
			Hierarchy: "PlantProject",
		},
		Planner: PlannerConfig{
			Policy: "automatic",
		},
		Engine: EngineConfig{
			PollInterval:      10 * time.Millisecond,
			CompletionTimeout: 2 * time.Minute,
			StandbyTimeout:    2 * time.Minute,
		},
		Physical: PhysicalConfig{
			Ports:             []string{"auto"},
			Baud:              115200,
			HandshakeInterval: 100 * time.Millisecond,
			HandshakeTimeout:  10 * time.Second,
		},
		Virtual: VirtualConfig{
			ArmVariable:    "ar_command",
			SledgeVariable: "ss_command",
			PollInterval:   10 * time.Millisecond,
		},
		Database: DatabaseConfig{
			Path:        "./data/plantline.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "plantline",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				TokenTTL: 1440,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: PLANTLINE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Planner
	if v := os.Getenv("PLANTLINE_PLANNER_POLICY"); v != "" {
		cfg.Planner.Policy = v
	}
	if v := os.Getenv("PLANTLINE_PLANNER_COLORS"); v != "" {
		cfg.Planner.ColorSequence = splitList(v)
	}

	// Physical
	if v := os.Getenv("PLANTLINE_PHYSICAL_PORTS"); v != "" {
		cfg.Physical.Ports = splitList(v)
	}
	if v := os.Getenv("PLANTLINE_PHYSICAL_BAUD"); v != "" {
		if baud, err := strconv.Atoi(v); err == nil {
			cfg.Physical.Baud = baud
		}
	}

	// Database
	if v := os.Getenv("PLANTLINE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("PLANTLINE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PLANTLINE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PLANTLINE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("PLANTLINE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("PLANTLINE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("PLANTLINE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret (always override in production)
	if v := os.Getenv("PLANTLINE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Plant.Hierarchy == "" {
		errs = append(errs, "plant.hierarchy is required")
	}

	switch c.Planner.Policy {
	case "automatic":
	case "custom":
		if len(c.Planner.ColorSequence) == 0 {
			errs = append(errs, "planner.color_sequence is required for the custom policy")
		}
	default:
		errs = append(errs, "planner.policy must be automatic or custom")
	}

	if c.Engine.PollInterval <= 0 {
		errs = append(errs, "engine.poll_interval must be positive")
	}
	if c.Engine.CompletionTimeout < 0 || c.Engine.StandbyTimeout < 0 {
		errs = append(errs, "engine timeouts must not be negative")
	}

	if c.Physical.Enabled {
		if len(c.Physical.Ports) == 0 {
			errs = append(errs, "physical.ports is required when the physical back-end is enabled")
		}
		if c.Physical.Baud <= 0 {
			errs = append(errs, "physical.baud must be positive")
		}
	}

	if c.Virtual.Enabled {
		if c.Virtual.ArmVariable == "" || c.Virtual.SledgeVariable == "" {
			errs = append(errs, "virtual.arm_variable and virtual.sledge_variable are required")
		}
		if c.Virtual.PollInterval <= 0 {
			errs = append(errs, "virtual.poll_interval must be positive")
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// The API drives physical machinery, so a forgeable token is not acceptable.
	const minJWTSecretLength = 32
	if c.API.Enabled {
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required (set PLANTLINE_JWT_SECRET environment variable)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetTokenTTL returns the default lifetime of minted API tokens.
func (c *Config) GetTokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.TokenTTL) * time.Minute
}
