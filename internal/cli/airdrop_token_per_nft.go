package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/splairdrop/internal/engine"
	"github.com/rshade/splairdrop/internal/ingest"
)

// airdropTokenPerNFTParams holds the parameters of the airdrop-token-per-nft command.
type airdropTokenPerNFTParams struct {
	mintID        string
	amount        string
	decimals      uint8
	holderList    string
	exclusionList string
	simulate      bool
	batchSize     int
}

// newAirdropTokenPerNFTCmd creates the airdrop-token-per-nft command, which
// pays every NFT holder a fixed amount per NFT held.
func newAirdropTokenPerNFTCmd(deps Deps) *cobra.Command {
	var params airdropTokenPerNFTParams

	cmd := &cobra.Command{
		Use:   "airdrop-token-per-nft",
		Short: "Send an SPL token to NFT holders, scaled by holdings",
		Long: `Send --amount tokens for every NFT each holder owns.

The holder list is a JSON array of {"walletId", "totalAmount"} entries. The
amount is converted with --decimals, so no RPC lookup is needed to plan the
run. Holders on the configured denylist or the exclusion list are skipped.`,
		Example: `  splairdrop airdrop-token-per-nft --mintid <MINT> --amount 10 --decimals 6 \
    --airdroplist holders.json --simulate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeAirdropTokenPerNFT(cmd, deps, params)
		},
	}

	f := cmd.Flags()
	f.StringVar(&params.mintID, "mintid", "", "mint of the token to send")
	f.StringVar(&params.amount, "amount", "", "tokens per NFT held, in whole tokens")
	f.Uint8Var(&params.decimals, "decimals", 9, "decimals of the token mint")
	f.StringVar(&params.holderList, "airdroplist", "", "path to the holder list [{\"walletId\", \"totalAmount\"}]")
	f.StringVar(&params.exclusionList, "exclusionlist", "", "path to a JSON array of wallets to exclude")
	f.BoolVar(&params.simulate, "simulate", false, "print the planned transfers without sending")
	f.IntVar(&params.batchSize, "batch-size", defaultTokenPerNFTBatchSize, "number of concurrent transfers per batch")
	_ = cmd.MarkFlagRequired("mintid")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("airdroplist")

	return cmd
}

// executeAirdropTokenPerNFT plans and runs a per-holding token airdrop.
func executeAirdropTokenPerNFT(cmd *cobra.Command, deps Deps, params airdropTokenPerNFTParams) error {
	ctx, cfg := commandContext(cmd)

	mint, err := ingest.ValidateAddress(params.mintID)
	if err != nil {
		return fmt.Errorf("invalid --mintid: %w", err)
	}
	perHolding, err := engine.ParseAmount(params.amount, params.decimals)
	if err != nil {
		return fmt.Errorf("invalid --amount: %w", err)
	}
	batchSize, err := batchSizeFor(cmd, cfg, params.batchSize, defaultTokenPerNFTBatchSize)
	if err != nil {
		return err
	}

	holders, err := ingest.LoadHolderList(ctx, params.holderList)
	if err != nil {
		return err
	}
	var exclusions []string
	if params.exclusionList != "" {
		if exclusions, err = ingest.LoadAddressList(ctx, params.exclusionList); err != nil {
			return err
		}
	}

	targets, err := ingest.HolderTargets(holders, mint, perHolding)
	if err != nil {
		return err
	}
	targets, dropped := engine.FilterTargets(targets, denyFilter(cfg, exclusions))

	logger.Info().
		Ctx(ctx).
		Str("operation", "airdrop_token_per_nft").
		Str("mint", mint).
		Int("holders", len(holders)).
		Int("dropped", dropped).
		Int("targets", len(targets)).
		Msg("holder list resolved")

	if params.simulate {
		sim := make([]simulatedTransfer, 0, len(targets))
		for _, t := range targets {
			sim = append(sim, simulatedTransfer{
				Wallet:   t.Destination,
				Mint:     t.Mint,
				Amount:   engine.FromBaseUnits(t.Amount, params.decimals).String(),
				Holdings: t.Holdings,
			})
		}
		return writeSimulation(cmd.OutOrStdout(), sim)
	}

	ledger, err := deps.Dial(cfg)
	if err != nil {
		return err
	}

	return executePass(cmd, deps, ledger, passRun{
		pass:      engine.TokenPerNFTPass(cfg.Logs),
		targets:   targets,
		batchSize: batchSize,
	})
}
