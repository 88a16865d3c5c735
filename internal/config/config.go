package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Bind    string `yaml:"bind"`
}

type MCPConfig struct {
	Instructions string `yaml:"instructions"`
}

// SessionConfig paces the simulated operations. The delays carry no
// confirmation semantics.
type SessionConfig struct {
	MintDelay   time.Duration `yaml:"mint_delay"`
	BridgeDelay time.Duration `yaml:"bridge_delay"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

type BridgeConfig struct {
	Chain         string `yaml:"chain"`
	Symbol        string `yaml:"symbol"`
	AddressPrefix string `yaml:"address_prefix"`
}

type LedgerConfig struct {
	Driver string `yaml:"driver"` // "memory", "sqlite3" (cgo) or "sqlite" (pure Go)
	Path   string `yaml:"path"`   // defaults to <data_dir>/poeminter.db
}

type EventsConfig struct {
	Mode    string        `yaml:"mode"` // "none", "webhook" or "kafka"
	URL     string        `yaml:"url"`
	Brokers []string      `yaml:"brokers"`
	Topic   string        `yaml:"topic"`
	Timeout time.Duration `yaml:"timeout"`
}

// AttestorConfig identifies the metering device and the key that signs its
// proofs. Mints are refused for a DeviceID missing from CertifiedDevices;
// an empty list turns the check off.
type AttestorConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Key              string   `yaml:"key"`       // WIF; generated and kept in the ledger DB when empty
	DeviceID         string   `yaml:"device_id"` // meter identifier hashed into attestations
	CertifiedDevices []string `yaml:"certified_devices"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	DataDir  string         `yaml:"data_dir"`
	API      APIConfig      `yaml:"api"`
	MCP      MCPConfig      `yaml:"mcp"`
	Session  SessionConfig  `yaml:"session"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Events   EventsConfig   `yaml:"events"`
	Attestor AttestorConfig `yaml:"attestor"`
	Log      LogConfig      `yaml:"log"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(home, ".poeminter"),
		API: APIConfig{
			Enabled: true,
			Port:    8470,
			Bind:    "127.0.0.1",
		},
		MCP: MCPConfig{
			Instructions: "Proof-of-Energy minting simulator. Load a voltage-change dataset, mint, then bridge or settle the minted tokens.",
		},
		Session: SessionConfig{
			MintDelay:   1500 * time.Millisecond,
			BridgeDelay: 2 * time.Second,
			SettleDelay: 2 * time.Second,
		},
		Bridge: BridgeConfig{
			Chain:         "Cardano",
			Symbol:        "ADA",
			AddressPrefix: "addr1",
		},
		Ledger: LedgerConfig{
			Driver: "memory",
		},
		Events: EventsConfig{
			Mode:    "none",
			Topic:   "poe_ledger_entries",
			Timeout: 10 * time.Second,
		},
		Attestor: AttestorConfig{
			Enabled:          true,
			DeviceID:         "meter_001",
			CertifiedDevices: []string{"meter_001"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file and merges it with defaults. A .env file next
// to the config (or in the working directory) is loaded before the
// environment overlay is applied.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	loadDotEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if len(cfg.DataDir) > 0 && cfg.DataDir[0] == '~' {
		home, _ := os.UserHomeDir()
		cfg.DataDir = filepath.Join(home, cfg.DataDir[1:])
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFromBytes parses YAML config from bytes and merges with defaults.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func loadDotEnv(cfgPath string) {
	candidates := []string{".env"}
	if cfgPath != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(cfgPath), ".env")}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			// Existing environment wins over the file.
			_ = godotenv.Load(p)
			return
		}
	}
}

// applyEnv overlays environment variables on top of config values.
func (c *Config) applyEnv() {
	if v := os.Getenv("POEMINTER_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("POEMINTER_API_BIND"); v != "" {
		c.API.Bind = v
	}
	if v := os.Getenv("POEMINTER_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port < 65536 {
			c.API.Port = port
		}
	}
	envDuration("POEMINTER_MINT_DELAY", &c.Session.MintDelay)
	envDuration("POEMINTER_BRIDGE_DELAY", &c.Session.BridgeDelay)
	envDuration("POEMINTER_SETTLE_DELAY", &c.Session.SettleDelay)
	if v := os.Getenv("POEMINTER_LEDGER_DRIVER"); v != "" {
		c.Ledger.Driver = v
	}
	if v := os.Getenv("POEMINTER_LEDGER_PATH"); v != "" {
		c.Ledger.Path = v
	}
	if v := os.Getenv("POEMINTER_EVENTS_MODE"); v != "" {
		c.Events.Mode = v
	}
	if v := os.Getenv("POEMINTER_EVENTS_URL"); v != "" {
		c.Events.URL = v
	}
	if v := os.Getenv("POEMINTER_EVENTS_TOPIC"); v != "" {
		c.Events.Topic = v
	}
	if v := os.Getenv("POEMINTER_KAFKA_BROKERS"); v != "" {
		c.Events.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("POEMINTER_ATTESTOR_KEY"); v != "" {
		c.Attestor.Key = v
	}
	if v := os.Getenv("POEMINTER_DEVICE_ID"); v != "" {
		c.Attestor.DeviceID = v
	}
	if v, ok := os.LookupEnv("POEMINTER_CERTIFIED_DEVICES"); ok {
		c.Attestor.CertifiedDevices = splitList(v)
	}
	if v := os.Getenv("POEMINTER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("POEMINTER_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// envDuration overwrites *d when key holds a valid non-negative duration.
func envDuration(key string, d *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if parsed, err := time.ParseDuration(v); err == nil && parsed >= 0 {
		*d = parsed
	}
}

func splitList(v string) []string {
	out := []string{}
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// DBPath returns the full path to the SQLite ledger database file.
func (c *Config) DBPath() string {
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	return filepath.Join(c.DataDir, "poeminter.db")
}
