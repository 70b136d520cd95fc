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
	Database() DatabaseConfig
	Browser() BrowserConfig
	Executor() ExecutorConfig
	Runner() RunnerConfig
	Recorder() RecorderConfig
	Transport() TransportConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserRemoteURL(string)

	// Runner Setters
	SetRunnerSettleDelay(time.Duration)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	DatabaseCfg  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	BrowserCfg   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	ExecutorCfg  ExecutorConfig  `mapstructure:"executor" yaml:"executor"`
	RunnerCfg    RunnerConfig    `mapstructure:"runner" yaml:"runner"`
	RecorderCfg  RecorderConfig  `mapstructure:"recorder" yaml:"recorder"`
	TransportCfg TransportConfig `mapstructure:"transport" yaml:"transport"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Database() DatabaseConfig   { return c.DatabaseCfg }
func (c *Config) Browser() BrowserConfig     { return c.BrowserCfg }
func (c *Config) Executor() ExecutorConfig   { return c.ExecutorCfg }
func (c *Config) Runner() RunnerConfig       { return c.RunnerCfg }
func (c *Config) Recorder() RecorderConfig   { return c.RecorderCfg }
func (c *Config) Transport() TransportConfig { return c.TransportCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)            { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserRemoteURL(u string)         { c.BrowserCfg.RemoteURL = u }
func (c *Config) SetRunnerSettleDelay(d time.Duration) { c.RunnerCfg.SettleDelay = d }

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

// ColorConfig defines the colors for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the database connection details. An empty URL disables
// run report persistence.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// BrowserConfig holds settings for the controlled browser.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// RemoteURL attaches to an already running browser (a ws:// debugger URL)
	// instead of launching one.
	RemoteURL       string         `mapstructure:"remote_url" yaml:"remote_url"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Debug           bool           `mapstructure:"debug" yaml:"debug"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	LaunchTimeout   time.Duration  `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// ViewportConfig is the default window size of a new page.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// ExecutorConfig tunes command execution against a page.
type ExecutorConfig struct {
	// LoadTimeout bounds how long goto and history navigation wait for the
	// load event before carrying on.
	LoadTimeout time.Duration `mapstructure:"load_timeout" yaml:"load_timeout"`
}

// RunnerConfig tunes script execution.
type RunnerConfig struct {
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// RecorderConfig tunes interaction recording.
type RecorderConfig struct {
	Debounce        time.Duration `mapstructure:"debounce" yaml:"debounce"`
	NavigationGrace time.Duration `mapstructure:"navigation_grace" yaml:"navigation_grace"`
}

// TransportConfig configures the command server.
type TransportConfig struct {
	ListenAddr   string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	RateLimit    float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst        int           `mapstructure:"burst" yaml:"burst"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
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
	v.SetDefault("logger.service_name", "pwscript")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.debug", false)
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 800)
	v.SetDefault("browser.launch_timeout", "30s")

	// -- Executor --
	v.SetDefault("executor.load_timeout", "5s")

	// -- Runner --
	v.SetDefault("runner.settle_delay", "300ms")

	// -- Recorder --
	v.SetDefault("recorder.debounce", "1500ms")
	v.SetDefault("recorder.navigation_grace", "2s")

	// -- Transport --
	v.SetDefault("transport.listen_addr", "127.0.0.1:9322")
	v.SetDefault("transport.rate_limit", 20.0)
	v.SetDefault("transport.burst", 40)
	v.SetDefault("transport.read_timeout", "15s")
	v.SetDefault("transport.write_timeout", "60s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The database URL usually carries credentials, so it gets its own variable.
	_ = v.BindEnv("database.url", "PWSCRIPT_DATABASE_URL")

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
	if c.ExecutorCfg.LoadTimeout <= 0 {
		return fmt.Errorf("executor.load_timeout must be a positive duration")
	}
	if c.RunnerCfg.SettleDelay < 0 {
		return fmt.Errorf("runner.settle_delay must not be negative")
	}
	if err := c.RecorderCfg.Validate(); err != nil {
		return fmt.Errorf("recorder configuration invalid: %w", err)
	}
	if err := c.TransportCfg.Validate(); err != nil {
		return fmt.Errorf("transport configuration invalid: %w", err)
	}
	if c.BrowserCfg.Viewport.Width <= 0 || c.BrowserCfg.Viewport.Height <= 0 {
		return fmt.Errorf("browser.viewport width and height must be positive")
	}
	return nil
}

// Validate checks the RecorderConfig settings.
func (r *RecorderConfig) Validate() error {
	if r.Debounce <= 0 {
		return fmt.Errorf("debounce must be a positive duration")
	}
	if r.NavigationGrace < 0 {
		return fmt.Errorf("navigation_grace must not be negative")
	}
	return nil
}

// Validate checks the TransportConfig settings.
func (t *TransportConfig) Validate() error {
	if t.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if t.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be greater than 0")
	}
	if t.Burst <= 0 {
		return fmt.Errorf("burst must be greater than 0")
	}
	return nil
}
