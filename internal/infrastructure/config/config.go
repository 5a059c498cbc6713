package config

import (
	"errors"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		LogLevel         string `toml:"log_level"`
		SnapshotEveryMin int    `toml:"snapshot_every_min"`
	} `toml:"app"`

	Symbols struct {
		Quote string   `toml:"quote"`
		List  []string `toml:"list"`
	} `toml:"symbols"`

	Binance struct {
		WsURL             string `toml:"ws_url"`
		RestURL           string `toml:"rest_url"`
		MaxStreamsPerConn int    `toml:"max_streams_per_conn"`
	} `toml:"binance"`

	Storage struct {
		Backends    []string `toml:"backends"` // sqlite | postgres | redis; empty = in-memory only
		SqlitePath  string   `toml:"sqlite_path"`
		PostgresDSN string   `toml:"postgres_dsn"`
		RedisAddr   string   `toml:"redis_addr"`
		RedisPrefix string   `toml:"redis_prefix"`
		RedisTTLSec int      `toml:"redis_ttl_sec"`
	} `toml:"storage"`
}

func Load(path string) (*Config, error) {
	// .env overlay for credentials and DSNs; missing file is fine
	_ = godotenv.Load()

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.SnapshotEveryMin <= 0 {
		cfg.App.SnapshotEveryMin = 5
	}
	if cfg.Symbols.Quote == "" {
		cfg.Symbols.Quote = "USDT"
	}
	if cfg.Binance.WsURL == "" {
		cfg.Binance.WsURL = "wss://stream.binance.com:9443"
	}
	if cfg.Binance.RestURL == "" {
		cfg.Binance.RestURL = "https://api.binance.com"
	}
	if cfg.Binance.MaxStreamsPerConn <= 0 {
		cfg.Binance.MaxStreamsPerConn = 1024
	}
	if cfg.Storage.SqlitePath == "" {
		cfg.Storage.SqlitePath = "data/pricewatch.db"
	}
	if cfg.Storage.RedisPrefix == "" {
		cfg.Storage.RedisPrefix = "pricewatch"
	}
}

func validate(cfg *Config) error {
	cfg.Symbols.Quote = strings.ToUpper(strings.TrimSpace(cfg.Symbols.Quote))
	cfg.Symbols.List = normalizeSymbols(cfg.Symbols.List)
	if len(cfg.Symbols.List) == 0 {
		return errors.New("symbols.list is empty")
	}

	for _, b := range cfg.Storage.Backends {
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "sqlite", "postgres", "redis":
		default:
			return errors.New("storage.backends: unknown backend " + b)
		}
	}
	if hasBackend(cfg, "postgres") && strings.TrimSpace(cfg.Storage.PostgresDSN) == "" {
		return errors.New("storage.postgres_dsn empty but postgres backend enabled")
	}
	if hasBackend(cfg, "redis") && strings.TrimSpace(cfg.Storage.RedisAddr) == "" {
		return errors.New("storage.redis_addr empty but redis backend enabled")
	}
	return nil
}

func hasBackend(cfg *Config, name string) bool {
	for _, b := range cfg.Storage.Backends {
		if strings.EqualFold(strings.TrimSpace(b), name) {
			return true
		}
	}
	return false
}

// HasBackend reports whether the named storage backend is enabled.
func (c *Config) HasBackend(name string) bool { return hasBackend(c, name) }

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
