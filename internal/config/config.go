// Package config holds splairdrop's typed configuration, the on-disk layout of
// the run log artifacts, and the persisted failure list used by retry passes.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported clusters.
const (
	ClusterDevnet  = "devnet"
	ClusterTestnet = "testnet"
	ClusterMainnet = "mainnet-beta"
)

// Supported commitment levels.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// Defaults applied by New.
const (
	DefaultConfirmTimeout = 90 * time.Second
	DefaultLogDir         = "logs/"
	MaxBatchSize          = 1000
)

// Environment variables read by ApplyEnv.
const (
	EnvHome      = "SPLAIRDROP_HOME"
	EnvCluster   = "SPLAIRDROP_CLUSTER"
	EnvRPCURL    = "SPLAIRDROP_RPC_URL"
	EnvKeypair   = "SPLAIRDROP_KEYPAIR"
	EnvLogDir    = "SPLAIRDROP_LOG_DIR"
	EnvLogLevel  = "SPLAIRDROP_LOG_LEVEL"
	EnvBatchSize = "SPLAIRDROP_BATCH_SIZE"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full splairdrop configuration.
type Config struct {
	Cluster        string         `yaml:"cluster"`
	RPCURL         string         `yaml:"rpc_url"`
	Keypair        string         `yaml:"keypair"`
	Commitment     string         `yaml:"commitment"`
	ConfirmTimeout time.Duration  `yaml:"confirm_timeout"`
	Transfer       TransferConfig `yaml:"transfer"`
	Logs           LogFiles       `yaml:"logs"`
	Logging        LoggingConfig  `yaml:"logging"`
	Filters        FilterConfig   `yaml:"filters"`
}

// TransferConfig controls how the engine executes a pass.
type TransferConfig struct {
	// BatchSize bounds the number of concurrent transfers. Zero leaves the
	// choice to each command.
	BatchSize int `yaml:"batch_size"`
	// SkipFunded enables the pre-transfer balance check.
	SkipFunded bool `yaml:"skip_funded"`
	// OverrideBalanceCheck sends even when the destination is already funded.
	OverrideBalanceCheck bool `yaml:"override_balance_check"`
	// MintIfAuthority mints instead of transferring when the signer is the mint authority.
	MintIfAuthority bool `yaml:"mint_if_authority"`
	// UseToken2022 targets the Token-2022 program instead of the classic token program.
	UseToken2022 bool `yaml:"use_token_2022"`
}

// BatchSizeOr returns BatchSize, or def when it is unset.
func (t TransferConfig) BatchSizeOr(def int) int {
	if t.BatchSize > 0 {
		return t.BatchSize
	}
	return def
}

// FilterConfig lists addresses that must never receive a transfer.
type FilterConfig struct {
	DenyAddresses []string `yaml:"deny_addresses"`
}

// DefaultDenyAddresses are marketplace escrow wallets that show up in holder
// snapshots but do not belong to real holders.
//
//nolint:gochecknoglobals // Read-only default list.
var DefaultDenyAddresses = []string{
	"GUfCR9mK6azb9vcpsxgXyj7XRPAKJd4KMHTTVvtncGgp", // Magic Eden v1 escrow
	"1BWutmTvYPwDtmw9abTkS4Ssr8no61spGAvW1X6NDix",  // Magic Eden v2 escrow
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Cluster:        ClusterDevnet,
		Commitment:     CommitmentConfirmed,
		ConfirmTimeout: DefaultConfirmTimeout,
		Transfer: TransferConfig{
			SkipFunded: true,
		},
		Logs: LogFiles{Dir: DefaultLogDir},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Filters: FilterConfig{
			DenyAddresses: append([]string(nil), DefaultDenyAddresses...),
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("checking config file %s: %w", path, err)
	}
	if err := ShallowMergeYAML(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SPLAIRDROP_* environment variables.
func (c *Config) ApplyEnv(lookupEnv func(string) (string, bool)) error {
	if v, ok := lookupEnv(EnvCluster); ok && v != "" {
		c.Cluster = v
	}
	if v, ok := lookupEnv(EnvRPCURL); ok && v != "" {
		c.RPCURL = v
	}
	if v, ok := lookupEnv(EnvKeypair); ok && v != "" {
		c.Keypair = v
	}
	if v, ok := lookupEnv(EnvLogDir); ok && v != "" {
		c.Logs.Dir = v
	}
	if v, ok := lookupEnv(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookupEnv(EnvBatchSize); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, EnvBatchSize, v)
		}
		c.Transfer.BatchSize = n
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Cluster {
	case ClusterDevnet, ClusterTestnet, ClusterMainnet:
	default:
		return fmt.Errorf("%w: unknown cluster %q (want devnet, testnet or mainnet-beta)", ErrInvalidConfig, c.Cluster)
	}
	switch c.Commitment {
	case CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized:
	default:
		return fmt.Errorf("%w: unknown commitment %q", ErrInvalidConfig, c.Commitment)
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("%w: confirm_timeout must be positive, got %s", ErrInvalidConfig, c.ConfirmTimeout)
	}
	if c.Transfer.BatchSize < 0 || c.Transfer.BatchSize > MaxBatchSize {
		return fmt.Errorf("%w: batch_size must be between 1 and %d, got %d",
			ErrInvalidConfig, MaxBatchSize, c.Transfer.BatchSize)
	}
	if strings.TrimSpace(c.Logs.Dir) == "" {
		return fmt.Errorf("%w: logs.dir cannot be empty", ErrInvalidConfig)
	}
	return nil
}

// IsMainnet reports whether transfers move real funds.
func (c *Config) IsMainnet() bool {
	return c.Cluster == ClusterMainnet
}

// WriteDefault writes the default configuration to path, creating parent
// directories. It refuses to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	data, err := yaml.Marshal(New())
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}
	if mkErr := os.MkdirAll(filepath.Dir(path), 0o700); mkErr != nil {
		return fmt.Errorf("creating config directory: %w", mkErr)
	}
	if writeErr := os.WriteFile(path, data, 0o600); writeErr != nil {
		return fmt.Errorf("writing config file: %w", writeErr)
	}
	return nil
}

// GetConfigDir returns $SPLAIRDROP_HOME or ~/.splairdrop.
func GetConfigDir() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return home, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".splairdrop"), nil
}

// DefaultConfigPath returns the path of config.yaml inside the config directory.
func DefaultConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

type configKey struct{}

// ContextWithConfig returns a copy of ctx carrying cfg.
func ContextWithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the Config stored in ctx, or defaults when none is set.
func FromContext(ctx context.Context) *Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(configKey{}).(*Config); ok && cfg != nil {
			return cfg
		}
	}
	return New()
}
