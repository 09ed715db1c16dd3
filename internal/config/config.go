package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/durctl/internal/broker"
	"github.com/danmuck/durctl/internal/legacy"
	"github.com/danmuck/durctl/internal/protocol/codec"
	"github.com/danmuck/durctl/internal/protocol/frame"
	"github.com/joho/godotenv"
)

const (
	EnvHTTPAddr      = "DURCTL_HTTP_ADDR"
	EnvBrokerAddr    = "DURCTL_BROKER_ADDR"
	EnvBrokerTimeout = "DURCTL_BROKER_CONNECT_TIMEOUT"
	EnvLegacyCommand = "DURCTL_LEGACY_COMMAND"
	EnvLogLevel      = "DURCTL_LOG_LEVEL"
)

type Config struct {
	HTTP   HTTPConfig
	Broker BrokerConfig
	Legacy LegacyConfig
	Log    LogConfig
}

type HTTPConfig struct {
	Node        string
	Addr        string
	CorsOrigins []string
}

type BrokerConfig struct {
	Address        string
	ConnectTimeout time.Duration
	MaxBodyBytes   uint32
	Encoding       string
	RatePerSecond  float64
	RateBurst      int
}

type LegacyConfig struct {
	Command string
	Args    []string
	Timeout time.Duration
}

type LogConfig struct {
	Level string
}

type fileConfig struct {
	HTTP struct {
		Node        string   `toml:"node"`
		Addr        string   `toml:"addr"`
		CorsOrigins []string `toml:"cors_origins"`
	} `toml:"http"`
	Broker struct {
		Address        string  `toml:"address"`
		ConnectTimeout string  `toml:"connect_timeout"`
		MaxBodyBytes   int64   `toml:"max_body_bytes"`
		Encoding       string  `toml:"encoding"`
		RatePerSecond  float64 `toml:"rate_per_second"`
		RateBurst      int     `toml:"rate_burst"`
	} `toml:"broker"`
	Legacy struct {
		Command string   `toml:"command"`
		Args    []string `toml:"args"`
		Timeout string   `toml:"timeout"`
	} `toml:"legacy"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Node:        "durctl",
			Addr:        "127.0.0.1:8080",
			CorsOrigins: []string{"http://localhost:3000"},
		},
		Broker: BrokerConfig{
			Address:        broker.DefaultAddress,
			ConnectTimeout: broker.DefaultConnectTimeout,
			MaxBodyBytes:   frame.DefaultLimits().MaxBodyBytes,
			Encoding:       codec.DefaultName,
		},
		Legacy: LegacyConfig{
			Timeout: legacy.DefaultTimeout,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, then applies .env and process environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv populates unset environment variables from the given files.
// Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("dotenv load failed (%s): %w", p, err)
		}
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("http", "node") {
		cfg.HTTP.Node = strings.TrimSpace(raw.HTTP.Node)
	}
	if meta.IsDefined("http", "addr") {
		cfg.HTTP.Addr = strings.TrimSpace(raw.HTTP.Addr)
	}
	if meta.IsDefined("http", "cors_origins") {
		cfg.HTTP.CorsOrigins = normalizeList(raw.HTTP.CorsOrigins)
	}

	if meta.IsDefined("broker", "address") {
		cfg.Broker.Address = strings.TrimSpace(raw.Broker.Address)
	}
	if meta.IsDefined("broker", "connect_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Broker.ConnectTimeout))
		if err != nil {
			return fmt.Errorf("parse broker.connect_timeout: %w", err)
		}
		cfg.Broker.ConnectTimeout = d
	}
	if meta.IsDefined("broker", "max_body_bytes") {
		if raw.Broker.MaxBodyBytes <= 0 || raw.Broker.MaxBodyBytes > int64(^uint32(0)) {
			return fmt.Errorf("broker.max_body_bytes out of range: %d", raw.Broker.MaxBodyBytes)
		}
		cfg.Broker.MaxBodyBytes = uint32(raw.Broker.MaxBodyBytes)
	}
	if meta.IsDefined("broker", "encoding") {
		cfg.Broker.Encoding = strings.TrimSpace(raw.Broker.Encoding)
	}
	if meta.IsDefined("broker", "rate_per_second") {
		cfg.Broker.RatePerSecond = raw.Broker.RatePerSecond
	}
	if meta.IsDefined("broker", "rate_burst") {
		cfg.Broker.RateBurst = raw.Broker.RateBurst
	}

	if meta.IsDefined("legacy", "command") {
		cfg.Legacy.Command = strings.TrimSpace(raw.Legacy.Command)
	}
	if meta.IsDefined("legacy", "args") {
		cfg.Legacy.Args = raw.Legacy.Args
	}
	if meta.IsDefined("legacy", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Legacy.Timeout))
		if err != nil {
			return fmt.Errorf("parse legacy.timeout: %w", err)
		}
		cfg.Legacy.Timeout = d
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvHTTPAddr)); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBrokerAddr)); v != "" {
		cfg.Broker.Address = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBrokerTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			// bare integers are milliseconds
			ms, perr := strconv.Atoi(v)
			if perr != nil {
				return fmt.Errorf("parse %s: %w", EnvBrokerTimeout, err)
			}
			d = time.Duration(ms) * time.Millisecond
		}
		cfg.Broker.ConnectTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv(EnvLegacyCommand)); v != "" {
		cfg.Legacy.Command = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		return fmt.Errorf("http config missing addr")
	}
	if strings.TrimSpace(cfg.HTTP.Node) == "" {
		return fmt.Errorf("http config missing node")
	}
	if err := ValidateBroker(cfg.Broker); err != nil {
		return fmt.Errorf("broker invalid: %w", err)
	}
	if cfg.Legacy.Timeout <= 0 {
		return fmt.Errorf("legacy timeout must be positive")
	}
	return nil
}

func ValidateBroker(cfg BrokerConfig) error {
	if strings.TrimSpace(cfg.Address) == "" {
		return fmt.Errorf("address is required")
	}
	host, port, err := net.SplitHostPort(cfg.Address)
	if err != nil {
		return fmt.Errorf("address %q: %w", cfg.Address, err)
	}
	if strings.TrimSpace(host) == "" || strings.TrimSpace(port) == "" {
		return fmt.Errorf("address %q needs host and port", cfg.Address)
	}
	if cfg.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive")
	}
	if cfg.MaxBodyBytes == 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	if _, err := codec.Lookup(cfg.Encoding); err != nil {
		return err
	}
	if cfg.RatePerSecond < 0 || cfg.RateBurst < 0 {
		return fmt.Errorf("rate settings must not be negative")
	}
	return nil
}

// BrokerClient maps the broker section onto the transport config.
func (c Config) BrokerClient() broker.Config {
	return broker.Config{
		Address:        c.Broker.Address,
		ConnectTimeout: c.Broker.ConnectTimeout,
		Limits:         frame.Limits{MaxBodyBytes: c.Broker.MaxBodyBytes},
	}
}

// LegacyBridge maps the legacy section onto the bridge config.
func (c Config) LegacyBridge() legacy.Config {
	return legacy.Config{
		Command: c.Legacy.Command,
		Args:    c.Legacy.Args,
		Timeout: c.Legacy.Timeout,
	}
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
