package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ConfigFormat represents the configuration file format
type ConfigFormat string

const (
	FormatYAML ConfigFormat = "yaml"
	FormatJSON ConfigFormat = "json"
)

// DefaultEnvPrefix prefixes every environment override.
const DefaultEnvPrefix = "TLBRIDGE"

var configFileNames = []string{
	"tlbridge.yaml", "tlbridge.yml",
	"config.yaml", "config.yml",
	"tlbridge.json", "config.json",
	"tlbridge.jsonc",
}

// Loader resolves configuration from defaults, a file and the environment,
// in that order of precedence.
type Loader struct {
	searchPaths   []string
	envPrefix     string
	defaultConfig *Config
	lookupEnv     func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	paths := []string{".", "./config", "/etc/tlbridge"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".tlbridge"))
	}
	return &Loader{
		searchPaths: paths,
		envPrefix:   DefaultEnvPrefix,
		lookupEnv:   os.LookupEnv,
	}
}

// SetSearchPaths sets the configuration file search paths
func (l *Loader) SetSearchPaths(paths []string) *Loader {
	l.searchPaths = paths
	return l
}

// SetEnvPrefix sets the environment variable prefix
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// SetDefaultConfig sets the configuration that file values are merged onto
func (l *Loader) SetDefaultConfig(config *Config) *Loader {
	l.defaultConfig = config
	return l
}

func (l *Loader) defaults() *Config {
	if l.defaultConfig != nil {
		c := *l.defaultConfig
		return &c
	}
	return DefaultConfig()
}

// Load loads configuration from filename, or only defaults and environment
// when filename is empty.
func (l *Loader) Load(filename string) (*Config, error) {
	if filename == "" {
		return l.finish(l.defaults())
	}
	return l.LoadFromFile(filename)
}

// LoadFromFile loads configuration from a specific file
func (l *Loader) LoadFromFile(filename string) (*Config, error) {
	format, err := formatOf(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	return l.load(data, format)
}

// LoadFromReader loads configuration from an io.Reader
func (l *Loader) LoadFromReader(reader io.Reader, format ConfigFormat) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration data: %w", err)
	}
	return l.load(data, format)
}

// AutoLoad searches the configured paths for a configuration file and
// falls back to defaults when none exists.
func (l *Loader) AutoLoad() (*Config, error) {
	configFile, err := l.findConfigFile()
	if errors.Is(err, ErrConfigFileNotFound) {
		return l.finish(l.defaults())
	}
	if err != nil {
		return nil, err
	}
	return l.LoadFromFile(configFile)
}

func (l *Loader) load(data []byte, format ConfigFormat) (*Config, error) {
	userConfig, err := parseConfig(data, format)
	if err != nil {
		return nil, err
	}
	return l.finish(mergeConfig(l.defaults(), userConfig))
}

func (l *Loader) finish(config *Config) (*Config, error) {
	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

func (l *Loader) findConfigFile() (string, error) {
	for _, searchPath := range l.searchPaths {
		for _, filename := range configFileNames {
			fullPath := filepath.Join(searchPath, filename)
			if _, err := os.Stat(fullPath); err == nil {
				return fullPath, nil
			}
		}
	}
	return "", ErrConfigFileNotFound
}

func formatOf(filename string) (ConfigFormat, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json", ".jsonc":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported config file format: %s", ext)
	}
}

func parseConfig(data []byte, format ConfigFormat) (*Config, error) {
	config := &Config{}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, config)
	case FormatJSON:
		// Comments and trailing commas are accepted.
		err = json.Unmarshal(jsonc.ToJSON(data), config)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParseError, format, err)
	}
	return config, nil
}

// loadFromEnv applies PREFIX_SECTION_KEY overrides.
func (l *Loader) loadFromEnv(config *Config) error {
	get := func(key string) (string, bool) {
		val, ok := l.lookupEnv(l.envPrefix + "_" + key)
		return val, ok && val != ""
	}

	if val, ok := get("APP_NAME"); ok {
		config.App.Name = val
	}
	if val, ok := get("APP_ENVIRONMENT"); ok {
		config.App.Environment = Environment(val)
	}
	if val, ok := get("LOG_LEVEL"); ok {
		config.Log.Level = LogLevel(val)
	}
	if val, ok := get("LOG_FORMAT"); ok {
		config.Log.Format = val
	}
	if val, ok := get("LOG_OUTPUT"); ok {
		config.Log.Output = val
	}
	if val, ok := get("CLIENT_MAILBOX_SIZE"); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s_CLIENT_MAILBOX_SIZE: %w", l.envPrefix, err)
		}
		config.Client.MailboxSize = n
	}
	if val, ok := get("WORKER_VERBOSITY"); ok {
		n, err := strconv.ParseInt(val, 10, 32)
		if err != nil {
			return fmt.Errorf("%s_WORKER_VERBOSITY: %w", l.envPrefix, err)
		}
		config.Worker.Verbosity = int32(n)
	}
	if val, ok := get("WORKER_PING_DELAY"); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("%s_WORKER_PING_DELAY: %w", l.envPrefix, err)
		}
		config.Worker.PingDelay = d
	}
	return nil
}

// mergeConfig overlays the non-zero values of userConfig onto defaultConfig.
func mergeConfig(defaultConfig, userConfig *Config) *Config {
	merged := *defaultConfig

	if userConfig.App.Name != "" {
		merged.App.Name = userConfig.App.Name
	}
	if userConfig.App.Environment != "" {
		merged.App.Environment = userConfig.App.Environment
	}

	if userConfig.Log.Level != "" {
		merged.Log.Level = userConfig.Log.Level
	}
	if userConfig.Log.Format != "" {
		merged.Log.Format = userConfig.Log.Format
	}
	if userConfig.Log.Output != "" {
		merged.Log.Output = userConfig.Log.Output
	}
	if userConfig.Log.Fields != nil {
		merged.Log.Fields = userConfig.Log.Fields
	}

	if userConfig.Client.MailboxSize != 0 {
		merged.Client.MailboxSize = userConfig.Client.MailboxSize
	}

	if userConfig.Worker.Verbosity != 0 {
		merged.Worker.Verbosity = userConfig.Worker.Verbosity
	}
	if userConfig.Worker.PingDelay != 0 {
		merged.Worker.PingDelay = userConfig.Worker.PingDelay
	}
	if userConfig.Worker.DefaultWalletID != 0 {
		merged.Worker.DefaultWalletID = userConfig.Worker.DefaultWalletID
	}

	return &merged
}
