package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. CODERUNNER_SANDBOX_TIMEOUT_SEC.
const EnvPrefix = "CODERUNNER"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig        `mapstructure:"server"`
	Sandbox   SandboxConfig       `mapstructure:"sandbox"`
	Logging   LoggingConfig       `mapstructure:"logging"`
	Languages map[string]Language `mapstructure:"languages"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
	MCPPath   string `mapstructure:"mcp_path"`
}

// SandboxConfig holds sandbox configuration
type SandboxConfig struct {
	TimeoutSec      int    `mapstructure:"timeout_sec"`
	KillGraceMs     int    `mapstructure:"kill_grace_ms"`
	MaxCodeLen      int    `mapstructure:"max_code_len"`
	MaxInputLen     int    `mapstructure:"max_input_len"`
	MaxOutputBytes  int    `mapstructure:"max_output_bytes"`
	WorkspaceRoot   string `mapstructure:"workspace_root"`
	StderrIsFailure bool   `mapstructure:"stderr_is_failure"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// Language overrides the toolchain used for one language.
type Language struct {
	Command     string            `mapstructure:"command"`
	Runtime     string            `mapstructure:"runtime"`
	Flags       string            `mapstructure:"flags"`
	Environment map[string]string `mapstructure:"environment"`
}

// New loads and validates the application configuration from ./config.yaml or
// ./config/config.yaml, falling back to defaults when neither exists.
func New() (*Config, error) {
	return Load(".", "./config")
}

// Load reads config.yaml from the first matching search path, applies
// environment overrides and validates the result.
func Load(searchPaths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.transport", "http")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.mcp_path", "/mcp")

	v.SetDefault("sandbox.timeout_sec", 7)
	v.SetDefault("sandbox.kill_grace_ms", 500)
	v.SetDefault("sandbox.max_code_len", 50000)
	v.SetDefault("sandbox.max_input_len", 1000)
	v.SetDefault("sandbox.max_output_bytes", 1<<20)
	v.SetDefault("sandbox.workspace_root", filepath.Join(os.TempDir(), "coderunner"))
	v.SetDefault("sandbox.stderr_is_failure", true)

	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Server.Transport == "http" && (c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535) {
		return fmt.Errorf("invalid server.http_port: %d", c.Server.HTTPPort)
	}

	if c.Server.MCPPath != "" && !strings.HasPrefix(c.Server.MCPPath, "/") {
		return fmt.Errorf("server.mcp_path must start with '/', got: %s", c.Server.MCPPath)
	}

	if c.Sandbox.TimeoutSec <= 0 {
		return fmt.Errorf("sandbox.timeout_sec must be positive, got: %d", c.Sandbox.TimeoutSec)
	}

	if c.Sandbox.KillGraceMs <= 0 {
		return fmt.Errorf("sandbox.kill_grace_ms must be positive, got: %d", c.Sandbox.KillGraceMs)
	}

	if c.Sandbox.MaxCodeLen <= 0 {
		return fmt.Errorf("sandbox.max_code_len must be positive, got: %d", c.Sandbox.MaxCodeLen)
	}

	if c.Sandbox.MaxInputLen < 0 {
		return fmt.Errorf("sandbox.max_input_len must not be negative, got: %d", c.Sandbox.MaxInputLen)
	}

	if c.Sandbox.MaxOutputBytes <= 0 {
		return fmt.Errorf("sandbox.max_output_bytes must be positive, got: %d", c.Sandbox.MaxOutputBytes)
	}

	if !filepath.IsAbs(c.Sandbox.WorkspaceRoot) {
		return fmt.Errorf("sandbox.workspace_root must be an absolute path, got: %q", c.Sandbox.WorkspaceRoot)
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}

// GetTimeout returns the execution timeout as a duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Sandbox.TimeoutSec) * time.Second
}

// GetKillGrace returns how long a killed process tree may take to be reaped.
func (c *Config) GetKillGrace() time.Duration {
	return time.Duration(c.Sandbox.KillGraceMs) * time.Millisecond
}
