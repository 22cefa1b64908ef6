package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the plua2 emulation core.
// All configuration is loaded from YAML and can be overridden by environment
// variables. A .env file next to the config (or in the working directory) is
// loaded first so credentials can live outside the YAML.
type Config struct {
	Remote    RemoteConfig    `yaml:"remote"`
	Emulator  EmulatorConfig  `yaml:"emulator"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RemoteConfig contains the connection details for the live controller that
// proxied devices mirror to. Credentials are passed through as HTTP basic auth.
type RemoteConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// Timeout is the per-request timeout in seconds for forwarded calls.
	Timeout int `yaml:"timeout"`
}

// EmulatorConfig contains behaviour settings for the local emulation.
type EmulatorConfig struct {
	// Offline disables all remote forwarding. Unanswered calls fail with a
	// timeout-equivalent status instead of reaching the controller.
	Offline bool `yaml:"offline"`
	Debug   bool `yaml:"debug"`

	// LibraryPaths are directories searched when a file directive names a
	// logical file that does not resolve relative to the script.
	LibraryPaths []string `yaml:"library_paths"`

	// FirstDeviceID is the id given to the first device created without an
	// explicit id directive. Subsequent devices count up from here.
	FirstDeviceID int `yaml:"first_device_id"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
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

// WebSocketConfig contains WebSocket event-push settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads, parses and validates the configuration file at path.
//
// Order of precedence (lowest to highest): built-in defaults, YAML file,
// environment variables. A missing config file is not an error; defaults
// plus environment apply.
func Load(path string) (*Config, error) {
	// Best-effort .env load so PLUA2_* credentials can live next to the
	// project instead of the shell profile.
	_ = godotenv.Load()

	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
		// Run on defaults + environment.
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			Timeout: 30,
		},
		Emulator: EmulatorConfig{
			// Offline by default: forwarding to a live controller is
			// opt-in via config or PLUA2_OFFLINE=false plus a remote URL.
			Offline:       true,
			FirstDeviceID: 5000,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8989,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
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
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variables follow the pattern PLUA2_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PLUA2_REMOTE_URL"); v != "" {
		cfg.Remote.URL = v
	}
	if v := os.Getenv("PLUA2_REMOTE_USER"); v != "" {
		cfg.Remote.User = v
	}
	if v := os.Getenv("PLUA2_REMOTE_PASSWORD"); v != "" {
		cfg.Remote.Password = v
	}
	if v := os.Getenv("PLUA2_OFFLINE"); v != "" {
		cfg.Emulator.Offline = v == "true" || v == "1"
	}
	if v := os.Getenv("PLUA2_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("PLUA2_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("PLUA2_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.Remote.Timeout < 1 {
		errs = append(errs, "remote.timeout must be at least 1 second")
	}
	if c.Emulator.FirstDeviceID < 1 {
		errs = append(errs, "emulator.first_device_id must be positive")
	}
	if !c.Emulator.Offline && c.Remote.URL == "" {
		errs = append(errs, "remote.url is required when emulator.offline is false")
	}
	for _, p := range c.Emulator.LibraryPaths {
		if p == "" {
			errs = append(errs, "emulator.library_paths must not contain empty entries")
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

// GetRemoteTimeout returns the forwarded-call timeout as a Duration.
func (c *Config) GetRemoteTimeout() time.Duration {
	return time.Duration(c.Remote.Timeout) * time.Second
}
