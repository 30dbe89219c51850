// Package config loads and validates the runtime configuration shared by
// the simulate, watch, and bridge subcommands. Values come from an optional
// YAML file, PRINTWATCH_* environment variables, and built-in defaults that
// match the reference printer profile.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the full configuration tree.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
}

// LogConfig controls the diagnostic logger. Data-plane output on stdout is
// never routed through it.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
}

// SignalConfig binds a monitored signal name to its diagnosis class.
type SignalConfig struct {
	Name  string `mapstructure:"name" validate:"required"`
	Class string `mapstructure:"class" validate:"oneof=flow hotend_temp bed_temp speed generic"`
}

// EngineConfig holds the detection parameters. They are fixed for the
// lifetime of a run.
type EngineConfig struct {
	Alpha           float64        `mapstructure:"alpha" validate:"gt=0,lt=1"`
	Epsilon         float64        `mapstructure:"epsilon" validate:"gt=0"`
	WarnZ           float64        `mapstructure:"warn_z" validate:"gt=0"`
	AlertZ          float64        `mapstructure:"alert_z" validate:"gtfield=WarnZ"`
	RunLenAlert     int            `mapstructure:"run_len_alert" validate:"min=1"`
	CooldownSec     float64        `mapstructure:"cooldown_s" validate:"gte=0"`
	TrendWindow     int            `mapstructure:"trend_window" validate:"min=2"`
	Signals         []SignalConfig `mapstructure:"signals" validate:"min=1,dive"`
	CriticalSignals []string       `mapstructure:"critical_signals"`
}

// FaultWindow schedules one or more simulator faults over a time span.
type FaultWindow struct {
	StartSec float64  `mapstructure:"start_s" validate:"gte=0"`
	EndSec   float64  `mapstructure:"end_s" validate:"gtfield=StartSec"`
	Faults   []string `mapstructure:"faults" validate:"min=1,dive,oneof=UNDER_EXTRUSION OVER_EXTRUSION NOZZLE_TEMP_DRIFT_DOWN BED_TEMP_OSCILLATE Y_AXIS_STICK_SLIP AMBIENT_BREEZE"`
}

// SimulatorConfig drives the synthetic telemetry source. Seed 0 means seed
// from the clock.
type SimulatorConfig struct {
	TickHz   float64       `mapstructure:"tick_hz" validate:"gt=0"`
	Seed     int64         `mapstructure:"seed"`
	Schedule []FaultWindow `mapstructure:"schedule" validate:"dive"`
}

// UserConfig is one bridge login. Passwords are stored as bcrypt hashes.
type UserConfig struct {
	Username     string `mapstructure:"username" validate:"required"`
	PasswordHash string `mapstructure:"password_hash" validate:"required"`
}

// AuthConfig gates WebSocket listeners behind token auth when enabled.
type AuthConfig struct {
	Enabled     bool         `mapstructure:"enabled"`
	APIKey      string       `mapstructure:"api_key"`
	JWTSecret   string       `mapstructure:"jwt_secret"`
	TokenTTLMin int          `mapstructure:"token_ttl_min" validate:"min=1"`
	Users       []UserConfig `mapstructure:"users" validate:"dive"`
}

// BridgeConfig holds the relay's listen address and buffering limits.
type BridgeConfig struct {
	ListenAddr  string     `mapstructure:"listen_addr" validate:"required"`
	QueueSize   int        `mapstructure:"queue_size" validate:"min=1"`
	HistorySize int        `mapstructure:"history_size" validate:"gte=0"`
	Auth        AuthConfig `mapstructure:"auth"`
}

// Load reads configuration from the given file path (optional; empty means
// defaults plus environment only), applies PRINTWATCH_* overrides, and
// validates the result. An explicitly named file that cannot be read is an
// error; a missing implicit file is not.
func Load(path string, log logrus.FieldLogger) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("printwatch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("printwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
			log.Debug("no config file found, using defaults")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and the cross-field rules the tags cannot
// express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	names := make(map[string]bool, len(c.Engine.Signals))
	for _, s := range c.Engine.Signals {
		if names[s.Name] {
			return fmt.Errorf("invalid config: signal %q configured twice", s.Name)
		}
		names[s.Name] = true
	}
	for _, crit := range c.Engine.CriticalSignals {
		if !names[crit] {
			return fmt.Errorf("invalid config: critical signal %q is not a monitored signal", crit)
		}
	}

	if c.Bridge.Auth.Enabled {
		if c.Bridge.Auth.JWTSecret == "" {
			return fmt.Errorf("invalid config: bridge.auth.jwt_secret required when auth is enabled")
		}
		if c.Bridge.Auth.APIKey == "" && len(c.Bridge.Auth.Users) == 0 {
			return fmt.Errorf("invalid config: bridge auth needs an api_key or at least one user")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("engine.alpha", 0.05)
	v.SetDefault("engine.epsilon", 1e-9)
	v.SetDefault("engine.warn_z", 3.0)
	v.SetDefault("engine.alert_z", 4.5)
	v.SetDefault("engine.run_len_alert", 6)
	v.SetDefault("engine.cooldown_s", 3.0)
	v.SetDefault("engine.trend_window", 80)
	v.SetDefault("engine.signals", []map[string]any{
		{"name": "nozzle_temp_c", "class": "hotend_temp"},
		{"name": "bed_temp_c", "class": "bed_temp"},
		{"name": "extruder_flow_mm3_s", "class": "flow"},
		{"name": "print_speed_mm_s", "class": "speed"},
	})
	v.SetDefault("engine.critical_signals", []string{"extruder_flow_mm3_s", "nozzle_temp_c"})

	v.SetDefault("simulator.tick_hz", 10.0)
	v.SetDefault("simulator.seed", 0)
	v.SetDefault("simulator.schedule", []map[string]any{
		{"start_s": 15.0, "end_s": 30.0, "faults": []string{"UNDER_EXTRUSION"}},
		{"start_s": 45.0, "end_s": 65.0, "faults": []string{"BED_TEMP_OSCILLATE"}},
		{"start_s": 75.0, "end_s": 95.0, "faults": []string{"Y_AXIS_STICK_SLIP", "AMBIENT_BREEZE"}},
		{"start_s": 110.0, "end_s": 130.0, "faults": []string{"NOZZLE_TEMP_DRIFT_DOWN"}},
	})

	v.SetDefault("bridge.listen_addr", ":8765")
	v.SetDefault("bridge.queue_size", 1000)
	v.SetDefault("bridge.history_size", 100)
	v.SetDefault("bridge.auth.enabled", false)
	v.SetDefault("bridge.auth.token_ttl_min", 60)
}
