package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/RowanDark/glyphpack/internal/env"
	"github.com/RowanDark/glyphpack/internal/logging"
)

const (
	homeDirName   = ".glyphpack"
	homeFileName  = "config.toml"
	localFileName = "glyphpack.yml"
)

// Config captures the glyphpack configuration resolved from defaults, optional
// files, and environment overrides.
type Config struct {
	PayloadType string       `yaml:"payload_type" toml:"payload_type"`
	OutputDir   string       `yaml:"output_dir" toml:"output_dir"`
	AuditLog    string       `yaml:"audit_log" toml:"audit_log"`
	LogLevel    string       `yaml:"log_level" toml:"log_level"`
	Fetch       FetchConfig  `yaml:"fetch" toml:"fetch"`
	Daemon      DaemonConfig `yaml:"daemon" toml:"daemon"`
}

// FetchConfig controls how source bytes are retrieved over HTTP.
type FetchConfig struct {
	Timeout     time.Duration `yaml:"timeout" toml:"timeout"`
	MaxBytes    int64         `yaml:"max_bytes" toml:"max_bytes"`
	EnableHTTP2 bool          `yaml:"enable_http2" toml:"enable_http2"`
	UserAgent   string        `yaml:"user_agent" toml:"user_agent"`
}

// DaemonConfig controls glyphpackd.
type DaemonConfig struct {
	Addr        string `yaml:"addr" toml:"addr"`
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr"`
	Token       string `yaml:"token" toml:"token"`
}

// Default returns the built-in glyphpack configuration.
func Default() Config {
	return Config{
		PayloadType: "python",
		OutputDir:   ".",
		LogLevel:    "info",
		Fetch: FetchConfig{
			Timeout:     10 * time.Second,
			MaxBytes:    64 << 20,
			EnableHTTP2: true,
			UserAgent:   "glyphpack",
		},
		Daemon: DaemonConfig{
			Addr: "127.0.0.1:50061",
		},
	}
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. The lookup order for configuration files is:
//  1. ~/.glyphpack/config.toml (TOML)
//  2. ./glyphpack.yml (YAML)
//
// Environment variables prefixed with GLYPHPACK_ have the highest precedence.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	wd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("determine working directory: %w", err)
	}
	return LoadFrom(home, wd)
}

// LoadFrom is Load with explicit home and working directories. An empty home
// skips the TOML file.
func LoadFrom(home, wd string) (Config, error) {
	cfg := Default()

	if home != "" {
		path := filepath.Join(home, homeDirName, homeFileName)
		if err := loadFile(&cfg, path, "toml"); err != nil {
			return Config{}, err
		}
	}
	if err := loadFile(&cfg, filepath.Join(wd, localFileName), "yaml"); err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch.max_bytes must be positive, got %d", c.Fetch.MaxBytes)
	}
	if strings.TrimSpace(c.PayloadType) == "" {
		return errors.New("payload_type cannot be empty")
	}
	return nil
}

func loadFile(cfg *Config, path, format string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	logging.Logger().Debug("loading config file", zap.String("path", path), zap.String("format", format))
	if err := applyFileConfig(cfg, data, format); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// fileConfig mirrors Config with pointer fields so a file only overrides the
// keys it sets.
type fileConfig struct {
	PayloadType *string           `yaml:"payload_type" toml:"payload_type"`
	OutputDir   *string           `yaml:"output_dir" toml:"output_dir"`
	AuditLog    *string           `yaml:"audit_log" toml:"audit_log"`
	LogLevel    *string           `yaml:"log_level" toml:"log_level"`
	Fetch       *fileFetchConfig  `yaml:"fetch" toml:"fetch"`
	Daemon      *fileDaemonConfig `yaml:"daemon" toml:"daemon"`
}

type fileFetchConfig struct {
	Timeout     *string `yaml:"timeout" toml:"timeout"`
	MaxBytes    *int64  `yaml:"max_bytes" toml:"max_bytes"`
	EnableHTTP2 *bool   `yaml:"enable_http2" toml:"enable_http2"`
	UserAgent   *string `yaml:"user_agent" toml:"user_agent"`
}

type fileDaemonConfig struct {
	Addr        *string `yaml:"addr" toml:"addr"`
	MetricsAddr *string `yaml:"metrics_addr" toml:"metrics_addr"`
	Token       *string `yaml:"token" toml:"token"`
}

func applyFileConfig(cfg *Config, data []byte, format string) error {
	var fc fileConfig
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return err
		}
	case "toml":
		if _, err := toml.Decode(string(data), &fc); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	setString(&cfg.PayloadType, fc.PayloadType)
	setString(&cfg.OutputDir, fc.OutputDir)
	setString(&cfg.AuditLog, fc.AuditLog)
	setString(&cfg.LogLevel, fc.LogLevel)
	if f := fc.Fetch; f != nil {
		if f.Timeout != nil {
			d, err := time.ParseDuration(strings.TrimSpace(*f.Timeout))
			if err != nil {
				return fmt.Errorf("fetch.timeout: %w", err)
			}
			cfg.Fetch.Timeout = d
		}
		if f.MaxBytes != nil {
			cfg.Fetch.MaxBytes = *f.MaxBytes
		}
		if f.EnableHTTP2 != nil {
			cfg.Fetch.EnableHTTP2 = *f.EnableHTTP2
		}
		setString(&cfg.Fetch.UserAgent, f.UserAgent)
	}
	if d := fc.Daemon; d != nil {
		setString(&cfg.Daemon.Addr, d.Addr)
		setString(&cfg.Daemon.MetricsAddr, d.MetricsAddr)
		setString(&cfg.Daemon.Token, d.Token)
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func applyEnvOverrides(cfg *Config) error {
	if val, ok := env.Get("PTYPE"); ok {
		cfg.PayloadType = val
	}
	if val, ok := env.Get("OUT"); ok {
		cfg.OutputDir = val
	}
	if val, ok := env.Get("AUDIT_LOG"); ok {
		cfg.AuditLog = val
	}
	if val, ok := env.Get("LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	if val, ok := env.Get("FETCH_TIMEOUT"); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("%sFETCH_TIMEOUT: %w", env.Prefix, err)
		}
		cfg.Fetch.Timeout = d
	}
	if val, ok := env.Get("FETCH_MAX_BYTES"); ok {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("%sFETCH_MAX_BYTES: %w", env.Prefix, err)
		}
		cfg.Fetch.MaxBytes = n
	}
	if val, ok := env.Get("FETCH_HTTP2"); ok {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%sFETCH_HTTP2: %w", env.Prefix, err)
		}
		cfg.Fetch.EnableHTTP2 = parsed
	}
	if val, ok := env.Get("USER_AGENT"); ok {
		cfg.Fetch.UserAgent = val
	}
	if val, ok := env.Get("DAEMON_ADDR"); ok {
		cfg.Daemon.Addr = val
	}
	if val, ok := env.Get("METRICS_ADDR"); ok {
		cfg.Daemon.MetricsAddr = val
	}
	if val, ok := env.Get("TOKEN"); ok {
		cfg.Daemon.Token = val
	}
	return nil
}
