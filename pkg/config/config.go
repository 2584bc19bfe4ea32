package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cuemby/drbridge/pkg/drdb"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no --config flag is given
const DefaultFile = "drbridge.yaml"

const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

const (
	DefaultEthClientURL  = "http://127.0.0.1:8545"
	DefaultPollingRateMs = 1000
	DefaultCallTimeoutMs = 10000
	DefaultDataDir       = "./data"
	DefaultHTTPAddr      = "127.0.0.1:9190"
	DefaultLogLevel      = "info"
	minPollingRateMs     = 10
)

// ErrInvalid is returned by Validate for every rejected field
var ErrInvalid = errors.New("invalid config")

// Config is the bridge configuration
type Config struct {
	EthClientURL          string `yaml:"eth_client_url" toml:"eth_client_url"`
	WRBContractAddr       string `yaml:"wrb_contract_addr" toml:"wrb_contract_addr"`
	EthAccount            string `yaml:"eth_account" toml:"eth_account"`
	EthNewDrPollingRateMs uint64 `yaml:"eth_new_dr_polling_rate_ms" toml:"eth_new_dr_polling_rate_ms"`
	EthCallTimeoutMs      uint64 `yaml:"eth_call_timeout_ms" toml:"eth_call_timeout_ms"`

	Storage Storage `yaml:"storage" toml:"storage"`

	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`

	Log Log `yaml:"log" toml:"log"`
}

// Storage selects and configures the local request store
type Storage struct {
	Driver      string `yaml:"driver" toml:"driver"`
	DataDir     string `yaml:"data_dir" toml:"data_dir"`
	DatabaseURL string `yaml:"database_url" toml:"database_url"`
	MailboxSize int    `yaml:"mailbox_size" toml:"mailbox_size"`
}

// Log configures pkg/log
type Log struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
}

// Default returns a config with every optional field set
func Default() *Config {
	return &Config{
		EthClientURL:          DefaultEthClientURL,
		EthNewDrPollingRateMs: DefaultPollingRateMs,
		EthCallTimeoutMs:      DefaultCallTimeoutMs,
		Storage: Storage{
			Driver:      DriverBolt,
			DataDir:     DefaultDataDir,
			MailboxSize: drdb.DefaultMailboxSize,
		},
		HTTPAddr: DefaultHTTPAddr,
		Log:      Log{Level: DefaultLogLevel},
	}
}

// Load reads path, decoding TOML for .toml files and YAML otherwise.
// Missing keys keep their defaults. The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the given format ("yaml" or "toml") over the defaults
func Parse(data []byte, format string) (*Config, error) {
	cfg := Default()

	switch format {
	case "toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
		}
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

// Validate checks required fields and ranges
func (c *Config) Validate() error {
	if c.EthClientURL == "" {
		return fmt.Errorf("%w: eth_client_url is required", ErrInvalid)
	}
	if !common.IsHexAddress(c.WRBContractAddr) {
		return fmt.Errorf("%w: wrb_contract_addr %q is not an address", ErrInvalid, c.WRBContractAddr)
	}
	if c.EthAccount != "" && !common.IsHexAddress(c.EthAccount) {
		return fmt.Errorf("%w: eth_account %q is not an address", ErrInvalid, c.EthAccount)
	}
	if c.EthNewDrPollingRateMs < minPollingRateMs {
		return fmt.Errorf("%w: eth_new_dr_polling_rate_ms must be at least %d", ErrInvalid, minPollingRateMs)
	}
	if c.EthCallTimeoutMs == 0 {
		return fmt.Errorf("%w: eth_call_timeout_ms must be positive", ErrInvalid)
	}

	switch c.Storage.Driver {
	case DriverBolt:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("%w: storage.data_dir is required for bolt", ErrInvalid)
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("%w: storage.database_url is required for postgres", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", ErrInvalid, c.Storage.Driver)
	}
	if c.Storage.MailboxSize <= 0 {
		return fmt.Errorf("%w: storage.mailbox_size must be positive", ErrInvalid)
	}

	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log.level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

// PollingPeriod is the delay between reconciliation cycles
func (c *Config) PollingPeriod() time.Duration {
	return time.Duration(c.EthNewDrPollingRateMs) * time.Millisecond
}

// CallTimeout bounds every contract call
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.EthCallTimeoutMs) * time.Millisecond
}

// ContractAddress returns the parsed WRB address
func (c *Config) ContractAddress() common.Address {
	return common.HexToAddress(c.WRBContractAddr)
}

// Account returns the parsed eth_account, or the zero address when unset
func (c *Config) Account() common.Address {
	if c.EthAccount == "" {
		return common.Address{}
	}
	return common.HexToAddress(c.EthAccount)
}
