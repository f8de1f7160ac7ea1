package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rshade/splairdrop/internal/engine"
	"github.com/rshade/splairdrop/internal/ingest"
)

// airdropNFTParams holds the parameters of the airdrop-nft command.
type airdropNFTParams struct {
	mintList      string
	distributions string
	closeAccounts bool
	simulate      bool
	batchSize     int
}

// newAirdropNFTCmd creates the airdrop-nft command, which hands out NFTs
// from a mint list according to a distribution list.
func newAirdropNFTCmd(deps Deps) *cobra.Command {
	var params airdropNFTParams

	cmd := &cobra.Command{
		Use:   "airdrop-nft",
		Short: "Transfer NFTs from a mint list to the wallets of a distribution list",
		Long: `Pair each wallet of the distribution list with its next nFtsToAirdrop
mints, in list order, and transfer one of each.

The run fails before sending anything if the mint list is too short. With
--close-accounts the emptied source token accounts are closed and their rent
returned to the keypair.`,
		Example: `  splairdrop airdrop-nft --mintIds mints.json --airdroplist distribution.json --close-accounts`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeAirdropNFT(cmd, deps, params)
		},
	}

	f := cmd.Flags()
	f.StringVar(&params.mintList, "mintIds", "", "path to a JSON array of NFT mints owned by the keypair")
	f.StringVar(&params.distributions, "airdroplist", "",
		"path to the distribution list {\"distributionList\": [{\"wallet\", \"nFtsToAirdrop\"}]}")
	f.BoolVar(&params.closeAccounts, "close-accounts", false, "close the emptied source token accounts")
	f.BoolVar(&params.simulate, "simulate", false, "print the planned transfers without sending")
	f.IntVar(&params.batchSize, "batch-size", defaultNFTBatchSize, "number of concurrent transfers per batch")
	_ = cmd.MarkFlagRequired("mintIds")
	_ = cmd.MarkFlagRequired("airdroplist")

	return cmd
}

// executeAirdropNFT plans and runs an NFT distribution.
func executeAirdropNFT(cmd *cobra.Command, deps Deps, params airdropNFTParams) error {
	ctx, cfg := commandContext(cmd)

	batchSize, err := batchSizeFor(cmd, cfg, params.batchSize, defaultNFTBatchSize)
	if err != nil {
		return err
	}
	mints, err := ingest.LoadMintList(ctx, params.mintList)
	if err != nil {
		return err
	}
	dists, err := ingest.LoadDistributionList(ctx, params.distributions)
	if err != nil {
		return err
	}
	targets, err := ingest.PairNFTs(dists, mints, params.closeAccounts)
	if err != nil {
		return err
	}
	targets, denied := engine.FilterTargets(targets, engine.DenyAddresses(cfg.Filters.DenyAddresses))

	logger.Info().
		Ctx(ctx).
		Str("operation", "airdrop_nft").
		Int("mints", len(mints)).
		Int("wallets", len(dists)).
		Int("denied", denied).
		Int("targets", len(targets)).
		Msg("distribution resolved")

	if params.simulate {
		sim := make([]simulatedTransfer, 0, len(targets))
		for _, t := range targets {
			sim = append(sim, simulatedTransfer{
				Wallet: t.Destination,
				Mint:   t.Mint,
				Amount: strconv.FormatUint(t.Amount, 10),
				IsNFT:  true,
			})
		}
		return writeSimulation(cmd.OutOrStdout(), sim)
	}

	ledger, err := deps.Dial(cfg)
	if err != nil {
		return err
	}

	return executePass(cmd, deps, ledger, passRun{
		pass:      engine.NFTPass(cfg.Logs),
		targets:   targets,
		batchSize: batchSize,
	})
}
