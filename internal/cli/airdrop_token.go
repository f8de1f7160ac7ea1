package cli

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rshade/splairdrop/internal/engine"
	"github.com/rshade/splairdrop/internal/ingest"
)

// Default batch sizes per command.
const (
	defaultTokenBatchSize       = 50
	defaultTokenPerNFTBatchSize = 25
	defaultNFTBatchSize         = 5
	defaultRetryBatchSize       = 5
)

// airdropTokenParams holds the parameters of the airdrop-token command.
type airdropTokenParams struct {
	airdropList     string
	exclusionList   string
	amount          string
	overrideBalance bool
	mintAuthority   bool
	simulate        bool
	batchSize       int
	useToken2022    bool
	startFrom       int
	fresh           bool
}

// newAirdropTokenCmd creates the airdrop-token command, which sends the same
// amount of one SPL token to every wallet of an airdrop list.
func newAirdropTokenCmd(deps Deps) *cobra.Command {
	var params airdropTokenParams

	cmd := &cobra.Command{
		Use:   "airdrop-token",
		Short: "Send an SPL token to every wallet of an airdrop list",
		Long: `Send --amount tokens to each wallet of an airdrop list {"mint", "wallets"}.

The amount is given in whole tokens and converted with the mint's decimals.
Wallets on the configured denylist are dropped first, then --start-from skips
the head of the list, then the exclusion list is applied. Wallets that already
hold the amount are skipped unless --override-balance-check is set.`,
		Example: `  # Simulate first
  splairdrop airdrop-token --airdroplist wallets.json --amount 2.5 --simulate

  # Resume a long list on mainnet
  splairdrop airdrop-token -e mainnet-beta --airdroplist wallets.json --amount 1 --start-from 1200`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeAirdropToken(cmd, deps, params)
		},
	}

	f := cmd.Flags()
	f.StringVar(&params.airdropList, "airdroplist", "", "path to the airdrop list {\"mint\", \"wallets\"}")
	f.StringVar(&params.exclusionList, "exclusionlist", "", "path to a JSON array of wallets to exclude")
	f.StringVar(&params.amount, "amount", "", "tokens per wallet, in whole tokens (e.g. 2.5)")
	f.BoolVar(&params.overrideBalance, "override-balance-check", false,
		"send the amount regardless of the destination balance")
	f.BoolVar(&params.mintAuthority, "mint-authority", false, "mint to the destination when the keypair is the mint authority")
	f.BoolVar(&params.simulate, "simulate", false, "print the planned transfers without sending")
	f.IntVar(&params.batchSize, "batch-size", defaultTokenBatchSize, "number of concurrent transfers per batch")
	f.BoolVar(&params.useToken2022, "use-token2022", false, "use the Token-2022 program")
	f.IntVar(&params.startFrom, "start-from", 0, "skip the first n wallets of the list")
	f.BoolVar(&params.fresh, "fresh", false, "empty both failure lists before the run")
	_ = cmd.MarkFlagRequired("airdroplist")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

// executeAirdropToken plans and runs a fungible token airdrop.
func executeAirdropToken(cmd *cobra.Command, deps Deps, params airdropTokenParams) error {
	ctx, cfg := commandContext(cmd)

	amount, err := decimal.NewFromString(params.amount)
	if err != nil {
		return fmt.Errorf("invalid --amount %q: %w", params.amount, err)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("invalid --amount %q: must be greater than zero", params.amount)
	}
	if params.startFrom < 0 {
		return errors.New("--start-from cannot be negative")
	}
	batchSize, err := batchSizeFor(cmd, cfg, params.batchSize, defaultTokenBatchSize)
	if err != nil {
		return err
	}

	list, err := ingest.LoadAirdropList(ctx, params.airdropList)
	if err != nil {
		return err
	}
	var exclusions []string
	if params.exclusionList != "" {
		if exclusions, err = ingest.LoadAddressList(ctx, params.exclusionList); err != nil {
			return err
		}
	}

	targets, denied := engine.FilterTargets(list.Targets(0), engine.DenyAddresses(cfg.Filters.DenyAddresses))
	targets = engine.StartFrom(targets, params.startFrom)
	targets, excluded := engine.FilterTargets(targets, engine.ExcludeAddresses(exclusions))

	logger.Info().
		Ctx(ctx).
		Str("operation", "airdrop_token").
		Str("mint", list.Mint).
		Int("wallets", len(list.Wallets)).
		Int("denied", denied).
		Int("start_from", params.startFrom).
		Int("excluded", excluded).
		Int("targets", len(targets)).
		Msg("airdrop list resolved")

	if params.simulate {
		sim := make([]simulatedTransfer, 0, len(targets))
		for _, t := range targets {
			sim = append(sim, simulatedTransfer{Wallet: t.Destination, Mint: t.Mint, Amount: amount.String()})
		}
		return writeSimulation(cmd.OutOrStdout(), sim)
	}

	dialCfg := *cfg
	dialCfg.Transfer.UseToken2022 = dialCfg.Transfer.UseToken2022 || params.useToken2022
	dialCfg.Transfer.MintIfAuthority = dialCfg.Transfer.MintIfAuthority || params.mintAuthority
	ledger, err := deps.Dial(&dialCfg)
	if err != nil {
		return err
	}

	decimals, err := ledger.Decimals(ctx, list.Mint)
	if err != nil {
		return err
	}
	base, err := engine.ToBaseUnits(amount, decimals)
	if err != nil {
		return fmt.Errorf("--amount %s with %d decimals: %w", amount, decimals, err)
	}
	for i := range targets {
		targets[i].Amount = base
	}

	return executePass(cmd, deps, ledger, passRun{
		pass:      engine.TokenPass(cfg.Logs),
		targets:   targets,
		batchSize: batchSize,
		fresh:     params.fresh,
		override:  params.overrideBalance,
	})
}
