package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rshade/splairdrop/internal/config"
	"github.com/rshade/splairdrop/internal/engine"
	"github.com/rshade/splairdrop/internal/logging"
	"github.com/rshade/splairdrop/internal/solana"
	"github.com/rshade/splairdrop/internal/tui"
)

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// Ledger is what a pass needs from the network.
type Ledger interface {
	engine.Transferer
	engine.BalanceReader
	Decimals(ctx context.Context, mint string) (uint8, error)
}

// LedgerDialer connects to the ledger described by cfg.
type LedgerDialer func(cfg *config.Config) (Ledger, error)

// Deps are the collaborators of the command tree. Zero fields fall back to
// the production implementations.
type Deps struct {
	// LookupEnv reads environment variables.
	LookupEnv func(string) (string, bool)
	// Dial connects to the ledger. Never called in simulate mode.
	Dial LedgerDialer
	// Interactive reports whether prompts and the progress view may be shown.
	Interactive func() bool
}

func (d Deps) withDefaults() Deps {
	if d.LookupEnv == nil {
		d.LookupEnv = os.LookupEnv
	}
	if d.Dial == nil {
		d.Dial = dialSolana
	}
	if d.Interactive == nil {
		d.Interactive = func() bool { return tui.IsTTY(os.Stdin) && tui.IsTTY(os.Stdout) }
	}
	return d
}

func dialSolana(cfg *config.Config) (Ledger, error) {
	client, err := solana.Dial(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// rootFlags are the persistent flags shared by every command.
type rootFlags struct {
	configPath string
	cluster    string
	rpcURL     string
	keypair    string
	logDir     string
	logLevel   string
	debug      bool
	yes        bool
}

// NewRootCmd creates the root Cobra command for the splairdrop CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithDeps(ver, Deps{})
}

// NewRootCmdWithDeps creates the root command with explicit collaborators for testability.
func NewRootCmdWithDeps(ver string, deps Deps) *cobra.Command {
	deps = deps.withDefaults()

	var (
		flags     rootFlags
		logResult *logging.LogPathResult
	)

	cmd := &cobra.Command{
		Use:   "splairdrop",
		Short: "Batch SPL token and NFT airdrops on Solana",
		Long: `splairdrop sends SPL tokens and NFTs to lists of wallets in concurrent batches.

Every transfer is recorded. Failures are appended to a JSON failure list in
the log directory, which the retry-errors command replays.`,
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, flags, deps.LookupEnv)
			if err != nil {
				return err
			}
			cmd.SetContext(config.ContextWithConfig(cmd.Context(), cfg))

			result := setupLogging(cmd, cfg, flags.debug)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default $SPLAIRDROP_HOME/config.yaml)")
	pf.StringVarP(&flags.cluster, "env", "e", "", "Solana cluster: devnet, testnet or mainnet-beta")
	pf.StringVarP(&flags.rpcURL, "rpc-url", "r", "", "custom RPC endpoint")
	pf.StringVarP(&flags.keypair, "keypair", "k", "", "solana-keygen keypair file (default ~/.config/solana/id.json)")
	pf.StringVar(&flags.logDir, "log-dir", "", "directory for transcripts and failure lists (default logs/)")
	pf.StringVarP(&flags.logLevel, "log-level", "l", "", "log level: trace, debug, info, warn, error")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging to the console")
	pf.BoolVar(&flags.yes, "yes", false, "skip the mainnet confirmation prompt")

	cmd.AddCommand(
		newAirdropTokenCmd(deps),
		newAirdropTokenPerNFTCmd(deps),
		newAirdropNFTCmd(deps),
		newRetryErrorsCmd(deps),
		newConfigCmd(),
	)

	return cmd
}

// resolveConfig layers defaults, the config file, the environment and
// explicitly set flags, in that order, and validates the result.
func resolveConfig(
	cmd *cobra.Command,
	flags rootFlags,
	lookupEnv func(string) (string, bool),
) (*config.Config, error) {
	path := flags.configPath
	if path == "" {
		if v, ok := lookupEnv(config.EnvHome); ok && v != "" {
			path = filepath.Join(v, "config.yaml")
		} else if def, err := config.DefaultConfigPath(); err == nil {
			path = def
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err = cfg.ApplyEnv(lookupEnv); err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("env") {
		cfg.Cluster = flags.cluster
	}
	if changed("rpc-url") {
		cfg.RPCURL = flags.rpcURL
	}
	if changed("keypair") {
		cfg.Keypair = flags.keypair
	}
	if changed("log-dir") {
		cfg.Logs.Dir = flags.logDir
	}
	if changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// assumeYes reports whether the --yes flag was passed.
func assumeYes(cmd *cobra.Command) bool {
	yes, _ := cmd.Flags().GetBool("yes")
	return yes
}

const rootCmdExample = `  # Send 10 tokens to every wallet of an airdrop list on devnet
  splairdrop airdrop-token --airdroplist wallets.json --amount 10

  # Send 5 tokens per held NFT to a holder snapshot
  splairdrop airdrop-token-per-nft --mintid <MINT> --amount 5 --airdroplist holders.json

  # Distribute NFTs from a mint list
  splairdrop airdrop-nft --mintIds mints.json --airdroplist distribution.json

  # Replay the failure list of the last run
  splairdrop retry-errors

  # Write a default configuration file
  splairdrop config init`

// newConfigCmd creates the config command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigShowCmd())
	return cmd
}

// commandContext returns the command context with its configuration.
func commandContext(cmd *cobra.Command) (context.Context, *config.Config) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, config.FromContext(ctx)
}
