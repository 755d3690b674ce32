// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Engine() EngineConfig
	Locator() LocatorConfig
	Wait() WaitConfig
	Browser() BrowserConfig

	// Engine setters, driven by CLI flags.
	SetEngineStopOnError(bool)
	SetEngineSkipOnNotFound(bool)
	SetEngineBaseDelay(time.Duration)

	// Browser setters.
	SetBrowserHeadless(bool)
	SetBrowserNavigationTimeout(time.Duration)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	EngineCfg  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	LocatorCfg LocatorConfig `mapstructure:"locator" yaml:"locator"`
	WaitCfg    WaitConfig    `mapstructure:"wait" yaml:"wait"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Engine() EngineConfig   { return c.EngineCfg }
func (c *Config) Locator() LocatorConfig { return c.LocatorCfg }
func (c *Config) Wait() WaitConfig       { return c.WaitCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetEngineStopOnError(b bool)          { c.EngineCfg.StopOnError = b }
func (c *Config) SetEngineSkipOnNotFound(b bool)       { c.EngineCfg.SkipOnNotFound = b }
func (c *Config) SetEngineBaseDelay(d time.Duration)   { c.EngineCfg.BaseDelay = d }
func (c *Config) SetBrowserHeadless(b bool)            { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserNavigationTimeout(d time.Duration) {
	c.BrowserCfg.NavigationTimeout = d
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig configures the run orchestrator.
type EngineConfig struct {
	// StopOnError halts the entire run on the first failed step.
	StopOnError bool `mapstructure:"stop_on_error" yaml:"stop_on_error"`
	// SkipOnNotFound records a skip instead of a failure when an element
	// never appears within the locate budget.
	SkipOnNotFound bool `mapstructure:"skip_on_not_found" yaml:"skip_on_not_found"`
	// BaseDelay is the human-like pause applied between steps; the actual
	// delay is BaseDelay + U(0, BaseDelay*JitterFactor).
	BaseDelay    time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	JitterFactor float64       `mapstructure:"jitter_factor" yaml:"jitter_factor"`
	// PauseCheckInterval is the granularity at which a paused run re-checks
	// for resume/stop.
	PauseCheckInterval time.Duration `mapstructure:"pause_check_interval" yaml:"pause_check_interval"`
	ProjectID          string        `mapstructure:"project_id" yaml:"project_id"`
}

// LocatorConfig budgets element location.
type LocatorConfig struct {
	// FindTimeout bounds how long a step waits for its element to appear.
	FindTimeout time.Duration `mapstructure:"find_timeout" yaml:"find_timeout"`
	// RetryInterval spaces resolver re-polls inside the find budget.
	RetryInterval time.Duration `mapstructure:"retry_interval" yaml:"retry_interval"`
	// MinTextLength gates the fuzzy free-text fallback strategy.
	MinTextLength int `mapstructure:"min_text_length" yaml:"min_text_length"`
}

// WaitConfig parameterises the wait evaluator.
type WaitConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// BrowserConfig holds settings for the live-replay browser instance.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "replay-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Engine --
	v.SetDefault("engine.stop_on_error", false)
	v.SetDefault("engine.skip_on_not_found", false)
	v.SetDefault("engine.base_delay", "250ms")
	v.SetDefault("engine.jitter_factor", 0.5)
	v.SetDefault("engine.pause_check_interval", "100ms")

	// -- Locator --
	v.SetDefault("locator.find_timeout", "2s")
	v.SetDefault("locator.retry_interval", "120ms")
	v.SetDefault("locator.min_text_length", 3)

	// -- Wait --
	v.SetDefault("wait.timeout", "30s")
	v.SetDefault("wait.poll_interval", "100ms")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.action_timeout", "10s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
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
	if c.WaitCfg.PollInterval <= 0 {
		return fmt.Errorf("wait.poll_interval must be a positive duration")
	}
	if c.WaitCfg.Timeout <= 0 {
		return fmt.Errorf("wait.timeout must be a positive duration")
	}
	if c.LocatorCfg.FindTimeout <= 0 {
		return fmt.Errorf("locator.find_timeout must be a positive duration")
	}
	if c.LocatorCfg.RetryInterval <= 0 {
		return fmt.Errorf("locator.retry_interval must be a positive duration")
	}
	if c.EngineCfg.JitterFactor < 0 {
		return fmt.Errorf("engine.jitter_factor must not be negative")
	}
	if c.EngineCfg.PauseCheckInterval <= 0 {
		return fmt.Errorf("engine.pause_check_interval must be a positive duration")
	}
	return nil
}
