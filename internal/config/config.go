package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/mmuslimabdulj/hero-arena/internal/domain"
)

// DefaultPath is read when HERO_CONFIG is not set. A missing default file is not an error.
const DefaultPath = "config/hero.toml"

// Ledger modes.
const (
	LedgerLocal = "local"
	LedgerSui   = "sui"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Security  SecurityConfig  `toml:"security"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Log       LogConfig       `toml:"log"`
	WebSocket WebSocketConfig `toml:"websocket"`
	Sync      SyncConfig      `toml:"sync"`
	Ledger    LedgerConfig    `toml:"ledger"`
}

type ServerConfig struct {
	Port string `toml:"port" env:"PORT"`
}

type SecurityConfig struct {
	AllowedOrigins []string      `toml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	SessionTTL     time.Duration `toml:"session_ttl" env:"SESSION_TTL"`
	SessionSecret  string        `toml:"session_secret" env:"SESSION_SECRET"`
}

type RateLimitConfig struct {
	API    float64 `toml:"api" env:"RATE_LIMIT_API"`
	WS     float64 `toml:"ws" env:"RATE_LIMIT_WS"`
	Strict float64 `toml:"strict" env:"RATE_LIMIT_STRICT"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"LOG_LEVEL"`   // debug, info, warn, error, silent
	Format string `toml:"format" env:"LOG_FORMAT"` // "json" or "console"
}

type WebSocketConfig struct {
	MaxMessageSize int64 `toml:"max_message_size" env:"MAX_MESSAGE_SIZE"`
	MaxHistorySize int   `toml:"max_history_size" env:"MAX_HISTORY_SIZE"`
}

type SyncConfig struct {
	PollInterval   time.Duration `toml:"poll_interval" env:"SYNC_POLL_INTERVAL"`
	RequestTimeout time.Duration `toml:"request_timeout" env:"SYNC_REQUEST_TIMEOUT"`
	SequenceReads  bool          `toml:"sequence_reads" env:"SYNC_SEQUENCE_READS"`
}

type LedgerConfig struct {
	Mode string `toml:"mode" env:"LEDGER_MODE"`

	// Sui
	RPCURL       string  `toml:"rpc_url" env:"SUI_RPC_URL"`
	PackageID    string  `toml:"package_id" env:"PACKAGE_ID"`
	Module       string  `toml:"module" env:"SUI_MODULE"`
	GasBudget    uint64  `toml:"gas_budget" env:"SUI_GAS_BUDGET"`
	KeystorePath string  `toml:"keystore_path" env:"SUI_KEYSTORE"`
	RPCRateLimit float64 `toml:"rpc_rate_limit" env:"SUI_RPC_RATE_LIMIT"`

	// Local
	DSN         string        `toml:"dsn" env:"LOCAL_DSN"`
	Latency     time.Duration `toml:"latency" env:"LOCAL_LATENCY"`
	DevAccounts []string      `toml:"dev_accounts" env:"DEV_ACCOUNTS" envSeparator:","`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080", "http://localhost:3000"},
			SessionTTL:     domain.SessionTTL,
		},
		RateLimit: RateLimitConfig{
			API:    domain.DefaultRateLimitAPI,
			WS:     domain.DefaultRateLimitWS,
			Strict: domain.DefaultRateLimitStrict,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: domain.MaxMessageSize,
			MaxHistorySize: domain.MaxHistorySize,
		},
		Sync: SyncConfig{
			PollInterval:   domain.PollInterval,
			RequestTimeout: domain.RequestTimeout,
		},
		Ledger: LedgerConfig{
			Mode:         LedgerLocal,
			RPCURL:       "https://fullnode.devnet.sui.io:443",
			Module:       "game",
			GasBudget:    10_000_000,
			KeystorePath: defaultKeystorePath(),
			RPCRateLimit: 20,
			DSN:          "data/heroes.db",
		},
	}
}

func defaultKeystorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sui.keystore"
	}
	return home + "/.sui/sui_config/sui.keystore"
}

// Load reads the configuration and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read builds the configuration from defaults, the TOML file at path and the
// environment, in that order, without validating it. An empty path reads
// DefaultPath if it exists.
func Read(path string) (*Config, error) {
	cfg := DefaultConfig()

	optional := path == ""
	if optional {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case optional && errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Security.AllowedOrigins = parseOrigins(cfg.Security.AllowedOrigins)
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("config: port is required")
	}
	if c.Sync.PollInterval <= 0 {
		return errors.New("config: sync poll interval must be positive")
	}
	if c.Sync.RequestTimeout < 0 {
		return errors.New("config: sync request timeout must not be negative")
	}
	if c.WebSocket.MaxMessageSize <= 0 || c.WebSocket.MaxHistorySize <= 0 {
		return errors.New("config: websocket limits must be positive")
	}
	if c.RateLimit.API <= 0 || c.RateLimit.WS <= 0 || c.RateLimit.Strict <= 0 {
		return errors.New("config: rate limits must be positive")
	}

	switch c.Ledger.Mode {
	case LedgerLocal:
		if strings.TrimSpace(c.Ledger.DSN) == "" {
			return errors.New("config: local ledger requires a dsn")
		}
	case LedgerSui:
		if c.Ledger.PackageID == "" {
			return errors.New("config: sui ledger requires a package id")
		}
		if c.Ledger.RPCURL == "" {
			return errors.New("config: sui ledger requires an rpc url")
		}
	default:
		return fmt.Errorf("config: unknown ledger mode %q", c.Ledger.Mode)
	}
	return nil
}

// parseOrigins trims origins and drops empty entries
func parseOrigins(origins []string) []string {
	result := make([]string, 0, len(origins))
	for _, p := range origins {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Global configuration instance
var AppConfig = DefaultConfig()
