// Package config handles configuration loading using viper.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("tunwatch: invalid configuration")

// maxSnapLen is the largest frame the capture sources read.
const maxSnapLen = 65535

// Config is the full runtime configuration. It is read once at startup and
// not changed afterwards.
type Config struct {
	Interface    string        `mapstructure:"interface"`
	ClientSubnet string        `mapstructure:"client_subnet"`
	Capture      CaptureConfig `mapstructure:"capture"`
	UI           UIConfig      `mapstructure:"ui"`
	Log          LogConfig     `mapstructure:"log"`
	Events       EventsConfig  `mapstructure:"events"`
	Metrics      MetricsConfig `mapstructure:"metrics"`
	Report       ReportConfig  `mapstructure:"report"`

	subnet netip.Prefix
}

// CaptureConfig controls frame acquisition.
type CaptureConfig struct {
	SnapLen        int           `mapstructure:"snap_len"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"`
	BufferMB       int           `mapstructure:"buffer_mb"`
	TunnelPrefixes []string      `mapstructure:"tunnel_prefixes"` // names selecting network-layer capture
	Promiscuous    bool          `mapstructure:"promiscuous"`
}

// UIConfig controls the live display.
type UIConfig struct {
	Mode            string        `mapstructure:"mode"` // auto / tui / plain
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level    string         `mapstructure:"level"`  // debug / info / warn / error
	Format   string         `mapstructure:"format"` // text / json
	File     string         `mapstructure:"file"`   // empty = stderr
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// EventsConfig controls the CSV event logs.
type EventsConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Dir      string         `mapstructure:"dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ReportConfig controls the HTML session report written on shutdown.
type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// New returns a viper instance with defaults and environment overrides
// (TUNWATCH_ prefix, e.g. TUNWATCH_LOG_LEVEL) set up. Callers may bind flags
// to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("tunwatch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the optional config file into v and returns the validated
// configuration.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interface", "tun0")
	v.SetDefault("client_subnet", "172.31.66.0/24")

	v.SetDefault("capture.snap_len", 65535)
	v.SetDefault("capture.poll_timeout", 500*time.Millisecond)
	v.SetDefault("capture.buffer_mb", 8)
	v.SetDefault("capture.tunnel_prefixes", []string{"tun"})
	v.SetDefault("capture.promiscuous", true)

	v.SetDefault("ui.mode", "auto")
	v.SetDefault("ui.refresh_interval", time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "logs/tunwatch.log")
	v.SetDefault("log.rotation.max_size_mb", 50)
	v.SetDefault("log.rotation.max_age_days", 14)
	v.SetDefault("log.rotation.max_backups", 3)
	v.SetDefault("log.rotation.compress", true)

	v.SetDefault("events.enabled", true)
	v.SetDefault("events.dir", "logs")
	v.SetDefault("events.rotation.max_size_mb", 100)
	v.SetDefault("events.rotation.max_age_days", 30)
	v.SetDefault("events.rotation.max_backups", 5)
	v.SetDefault("events.rotation.compress", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9310")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("report.enabled", false)
	v.SetDefault("report.dir", ".")
}

// Validate checks the configuration and caches the parsed client subnet.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Interface) == "" {
		return fmt.Errorf("%w: interface is required", ErrInvalid)
	}

	subnet, err := netip.ParsePrefix(c.ClientSubnet)
	if err != nil {
		return fmt.Errorf("%w: client_subnet %q: %v", ErrInvalid, c.ClientSubnet, err)
	}
	c.subnet = subnet.Masked()

	if c.Capture.SnapLen <= 0 || c.Capture.SnapLen > maxSnapLen {
		return fmt.Errorf("%w: capture.snap_len must be in 1..%d, got %d", ErrInvalid, maxSnapLen, c.Capture.SnapLen)
	}
	if c.Capture.PollTimeout <= 0 {
		return fmt.Errorf("%w: capture.poll_timeout must be positive", ErrInvalid)
	}
	if c.Capture.BufferMB <= 0 {
		return fmt.Errorf("%w: capture.buffer_mb must be positive", ErrInvalid)
	}

	switch c.UI.Mode {
	case "auto", "tui", "plain":
	default:
		return fmt.Errorf("%w: ui.mode %q (must be auto/tui/plain)", ErrInvalid, c.UI.Mode)
	}
	if c.UI.RefreshInterval <= 0 {
		return fmt.Errorf("%w: ui.refresh_interval must be positive", ErrInvalid)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("%w: log.level %q (must be debug/info/warn/error)", ErrInvalid, c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: log.format %q (must be text/json)", ErrInvalid, c.Log.Format)
	}

	if c.Events.Enabled && c.Events.Dir == "" {
		return fmt.Errorf("%w: events.dir is required when events are enabled", ErrInvalid)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics are enabled", ErrInvalid)
	}
	return nil
}

// Subnet returns the client subnet parsed by Validate.
func (c *Config) Subnet() netip.Prefix {
	return c.subnet
}
