// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig                `mapstructure:"logger" yaml:"logger"`
	Server    ServerConfig                `mapstructure:"server" yaml:"server"`
	Database  DatabaseConfig              `mapstructure:"database" yaml:"database"`
	Verifier  VerifierConfig              `mapstructure:"verifier" yaml:"verifier"`
	Browser   BrowserConfig               `mapstructure:"browser" yaml:"browser"`
	Network   NetworkConfig               `mapstructure:"network" yaml:"network"`
	Platforms map[string]PlatformOverride `mapstructure:"platforms" yaml:"platforms"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig tunes the HTTP boundary.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// DatabaseConfig holds the connection details for the campaign store.
// An empty URL disables persistence; verification works without it.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// VerifierConfig governs strategy selection, timeouts, and pacing for the
// verification orchestrator.
type VerifierConfig struct {
	// APITimeout bounds the direct login API call.
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	// ProbeTimeout bounds the diagnostic page probe.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	// OverallTimeout bounds one whole verification call end to end.
	OverallTimeout time.Duration `mapstructure:"overall_timeout" yaml:"overall_timeout"`
	// AutomationFallback escalates to browser automation when the direct API
	// path fails at the transport level. Off by default: a transport failure
	// is reported with probe diagnostics instead.
	AutomationFallback bool `mapstructure:"automation_fallback" yaml:"automation_fallback"`
	// BrowserSlots caps how many verifications may hold a live browser at once.
	BrowserSlots int `mapstructure:"browser_slots" yaml:"browser_slots"`
	// RateLimit paces outbound attempts per platform (requests per second).
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
}

// BrowserConfig holds settings for the headless browser instances.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// ExecPath pins the browser binary. Empty means search well-known locations.
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`
	// NoSandbox disables the Chrome sandbox. Required inside most serverless
	// and container runtimes; leave off everywhere else.
	NoSandbox         bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SubmitTimeout     time.Duration `mapstructure:"submit_timeout" yaml:"submit_timeout"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// NetworkConfig tunes the outbound HTTP client shared by the API and probe
// strategies.
type NetworkConfig struct {
	UserAgent             string        `mapstructure:"user_agent" yaml:"user_agent"`
	DialTimeout           time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	TLSHandshakeTimeout   time.Duration `mapstructure:"tls_handshake_timeout" yaml:"tls_handshake_timeout"`
	ResponseHeaderTimeout time.Duration `mapstructure:"response_header_timeout" yaml:"response_header_timeout"`
	IgnoreTLSErrors       bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ForceHTTP2            bool          `mapstructure:"force_http2" yaml:"force_http2"`
}

// PlatformOverride lets deployments repoint a platform profile at a staging
// or mock upstream without rebuilding. Selectors stay code-owned.
type PlatformOverride struct {
	LoginURL    string `mapstructure:"login_url" yaml:"login_url"`
	APILoginURL string `mapstructure:"api_login_url" yaml:"api_login_url"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "credverify")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// -- Verifier --
	v.SetDefault("verifier.api_timeout", "15s")
	v.SetDefault("verifier.probe_timeout", "10s")
	v.SetDefault("verifier.overall_timeout", "75s")
	v.SetDefault("verifier.automation_fallback", false)
	v.SetDefault("verifier.browser_slots", 2)
	v.SetDefault("verifier.rate_limit", 1.0)
	v.SetDefault("verifier.rate_limit_burst", 3)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.submit_timeout", "20s")

	// -- Network --
	v.SetDefault("network.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	v.SetDefault("network.dial_timeout", "5s")
	v.SetDefault("network.tls_handshake_timeout", "5s")
	v.SetDefault("network.response_header_timeout", "10s")
	v.SetDefault("network.ignore_tls_errors", false)
	v.SetDefault("network.force_http2", true)
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults, but fail loudly rather than run half-configured.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Verifier.BrowserSlots <= 0 {
		return fmt.Errorf("verifier.browser_slots must be a positive integer")
	}
	if c.Verifier.APITimeout <= 0 || c.Verifier.OverallTimeout <= 0 {
		return fmt.Errorf("verifier timeouts must be positive durations")
	}
	if c.Verifier.OverallTimeout < c.Verifier.APITimeout {
		return fmt.Errorf("verifier.overall_timeout must not be shorter than verifier.api_timeout")
	}
	if c.Browser.NavigationTimeout <= 0 || c.Browser.SubmitTimeout <= 0 {
		return fmt.Errorf("browser timeouts must be positive durations")
	}
	if c.Verifier.RateLimit <= 0 {
		return fmt.Errorf("verifier.rate_limit must be positive")
	}
	if c.Network.UserAgent == "" {
		return fmt.Errorf("network.user_agent must not be empty")
	}
	return nil
}
