package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/pelletier/go-toml"
)

const (
	DefaultListenAddress = "0.0.0.0:8545"
	DefaultLogLevel      = "info"

	DefaultCoinbaseBaseURL  = "https://api.coinbase.com/v2"
	DefaultCoinbaseTimeout  = 10 * time.Second
	DefaultCoinbaseInterval = time.Minute
)

var (
	ErrInvalidListenAddress = errors.New("invalid listen address")
	ErrInvalidLogLevel      = errors.New("invalid log level")
	ErrInvalidCoinbase      = errors.New("invalid coinbase configuration")
)

var listenAddressRegex = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}:\d+$`)

// Config defines the base-level server configuration
type Config struct {
	// The associated CORS config, if any
	CORSConfig *CORS `toml:"cors_config"`

	// The Coinbase rate provider config
	Coinbase *Coinbase `toml:"coinbase"`

	// The address at which the server will be served.
	// Format should be: <IP>:<PORT>
	ListenAddress string `toml:"listen_address"`

	// The minimum log level (debug, info, warn, error)
	LogLevel string `toml:"log_level"`
}

// CORS defines the server CORS policy
type CORS struct {
	AllowedOrigins []string `toml:"allowed_origins"`
	AllowedMethods []string `toml:"allowed_methods"`
	AllowedHeaders []string `toml:"allowed_headers"`
}

// Coinbase defines the Coinbase provider configuration
type Coinbase struct {
	// The Coinbase v2 API root
	BaseURL string `toml:"base_url"`

	// Per-request timeout for upstream calls
	Timeout time.Duration `toml:"timeout"`

	// How long a rate snapshot is reused by quotes. 0 refreshes on every quote
	MaxAge time.Duration `toml:"max_age"`

	// How often the rates are ingested into storage
	Interval time.Duration `toml:"interval"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		LogLevel:      DefaultLogLevel,
		CORSConfig:    DefaultCORSConfig(),
		Coinbase:      DefaultCoinbaseConfig(),
	}
}

// DefaultCORSConfig returns the default, permissive read-only CORS policy
func DefaultCORSConfig() *CORS {
	return &CORS{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}
}

// DefaultCoinbaseConfig returns the default Coinbase provider configuration
func DefaultCoinbaseConfig() *Coinbase {
	return &Coinbase{
		BaseURL:  DefaultCoinbaseBaseURL,
		Timeout:  DefaultCoinbaseTimeout,
		MaxAge:   0,
		Interval: DefaultCoinbaseInterval,
	}
}

// ValidateConfig validates the server configuration
func ValidateConfig(config *Config) error {
	// Validate the listen address
	if !listenAddressRegex.MatchString(config.ListenAddress) {
		return ErrInvalidListenAddress
	}

	// Validate the log level
	if _, err := ParseLogLevel(config.LogLevel); err != nil {
		return err
	}

	// Validate the provider config
	if config.Coinbase != nil {
		if err := validateCoinbase(config.Coinbase); err != nil {
			return err
		}
	}

	return nil
}

func validateCoinbase(c *Coinbase) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base URL %q", ErrInvalidCoinbase, c.BaseURL)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidCoinbase)
	}

	if c.MaxAge < 0 {
		return fmt.Errorf("%w: max age must not be negative", ErrInvalidCoinbase)
	}

	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidCoinbase)
	}

	return nil
}

// ParseLogLevel parses the textual log level.
// An empty level is the default level
func ParseLogLevel(level string) (slog.Level, error) {
	if level == "" {
		return slog.LevelInfo, nil
	}

	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, level)
	}

	return l, nil
}

// Read reads the configuration from the given path.
// Values missing from the file are set to their defaults
func Read(path string) (*Config, error) {
	// Read the config file
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Parse it
	var cfg Config

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in the unset values.
// A missing CORS section disables CORS
func (c *Config) applyDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = DefaultListenAddress
	}

	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	if c.Coinbase == nil {
		c.Coinbase = DefaultCoinbaseConfig()

		return
	}

	if c.Coinbase.BaseURL == "" {
		c.Coinbase.BaseURL = DefaultCoinbaseBaseURL
	}

	if c.Coinbase.Timeout == 0 {
		c.Coinbase.Timeout = DefaultCoinbaseTimeout
	}

	if c.Coinbase.Interval == 0 {
		c.Coinbase.Interval = DefaultCoinbaseInterval
	}
}
