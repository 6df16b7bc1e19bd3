// Package config provides configuration management for the bridge
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// String returns the string representation of Environment
func (e Environment) String() string {
	return string(e)
}

// IsValid checks if the environment is valid
func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvTesting, EnvStaging, EnvProduction:
		return true
	default:
		return false
	}
}

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	return string(l)
}

// IsValid checks if the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelFatal:
		return true
	default:
		return false
	}
}

// Log output formats. LogFormatAuto leaves the choice to the binary.
const (
	LogFormatAuto    = ""
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// MaxVerbosity is the highest worker verbosity accepted.
const MaxVerbosity = 1024

// Config represents the complete bridge configuration
type Config struct {
	// Application configuration
	App AppConfig `yaml:"app" json:"app"`

	// Logging configuration
	Log LogConfig `yaml:"log" json:"log"`

	// Client execution context configuration
	Client ClientConfig `yaml:"client" json:"client"`

	// Reference worker configuration
	Worker WorkerConfig `yaml:"worker" json:"worker"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	// Application name, used as the root logger name
	Name string `yaml:"name" json:"name"`

	// Deployment environment
	Environment Environment `yaml:"environment" json:"environment"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	// Log level
	Level LogLevel `yaml:"level" json:"level"`

	// Log format (json, console, or empty for auto)
	Format string `yaml:"format" json:"format"`

	// Output destination (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// Static fields added to every entry
	Fields map[string]string `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// ClientConfig contains settings for each client's execution context
type ClientConfig struct {
	// Initial task queue capacity
	MailboxSize int `yaml:"mailbox_size" json:"mailbox_size"`
}

// WorkerConfig contains settings for the reference worker
type WorkerConfig struct {
	// Initial log verbosity (0 fatal .. 4 debug)
	Verbosity int32 `yaml:"verbosity" json:"verbosity"`

	// Delay before answering ping; zero answers inline
	PingDelay time.Duration `yaml:"ping_delay" json:"ping_delay"`

	// Wallet id reported by init
	DefaultWalletID int64 `yaml:"default_wallet_id" json:"default_wallet_id"`
}

// UnmarshalJSON accepts ping_delay either as a duration string ("250ms"),
// like YAML does, or as a number of nanoseconds.
func (w *WorkerConfig) UnmarshalJSON(data []byte) error {
	type plain WorkerConfig
	aux := struct {
		*plain
		PingDelay json.RawMessage `json:"ping_delay"`
	}{plain: (*plain)(w)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.PingDelay) == 0 || string(aux.PingDelay) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.PingDelay, &s); err == nil {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("worker.ping_delay: %w", err)
		}
		w.PingDelay = d
		return nil
	}
	var ns int64
	if err := json.Unmarshal(aux.PingDelay, &ns); err != nil {
		return fmt.Errorf("worker.ping_delay: %w", err)
	}
	w.PingDelay = time.Duration(ns)
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "tlbridge",
			Environment: EnvProduction,
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatAuto,
			Output: "stderr",
		},
		Client: ClientConfig{
			MailboxSize: 64,
		},
		Worker: WorkerConfig{
			Verbosity:       3,
			PingDelay:       0,
			DefaultWalletID: 698983191,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate app config
	if c.App.Name == "" {
		return ErrInvalidAppName
	}
	if !c.App.Environment.IsValid() {
		return ErrInvalidEnvironment
	}

	// Validate log config
	if !c.Log.Level.IsValid() {
		return ErrInvalidLogLevel
	}
	switch c.Log.Format {
	case LogFormatAuto, LogFormatJSON, LogFormatConsole:
	default:
		return ErrInvalidLogFormat
	}

	// Validate client config
	if c.Client.MailboxSize <= 0 {
		return ErrInvalidMailboxSize
	}

	// Validate worker config
	if c.Worker.Verbosity < 0 || c.Worker.Verbosity > MaxVerbosity {
		return ErrInvalidVerbosity
	}
	if c.Worker.PingDelay < 0 {
		return ErrInvalidPingDelay
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// GetLogLevel returns the log level
func (c *Config) GetLogLevel() LogLevel {
	return c.Log.Level
}
