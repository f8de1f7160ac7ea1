package ingest

import (
	"context"
	"fmt"

	"github.com/rshade/splairdrop/internal/config"
	"github.com/rshade/splairdrop/internal/engine"
	"github.com/rshade/splairdrop/internal/logging"
)

// AirdropList is the input of a fungible token airdrop: one mint, many wallets.
type AirdropList struct {
	Mint    string   `json:"mint"`
	Wallets []string `json:"wallets"`
}

// LoadAirdropList loads {"mint": "...", "wallets": [...]}.
func LoadAirdropList(ctx context.Context, path string) (*AirdropList, error) {
	var list AirdropList
	if err := readJSON(ctx, "load_airdrop_list", path, &list); err != nil {
		return nil, err
	}
	if list.Mint == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrMissingMint)
	}
	mint, err := ValidateAddress(list.Mint)
	if err != nil {
		return nil, fmt.Errorf("%s: mint: %w", path, err)
	}
	wallets, err := validateAddresses("wallets", list.Wallets)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	list.Mint = mint
	list.Wallets = wallets
	return &list, nil
}

// Targets returns one target per wallet, each receiving amount base units.
func (l *AirdropList) Targets(amount uint64) []engine.Target {
	targets := make([]engine.Target, 0, len(l.Wallets))
	for _, w := range l.Wallets {
		targets = append(targets, engine.Target{Destination: w, Mint: l.Mint, Amount: amount})
	}
	return targets
}

// HolderAccount is one wallet of a holder snapshot.
type HolderAccount struct {
	WalletID    string   `json:"walletId"`
	TotalAmount int      `json:"totalAmount"`
	MintIDs     []string `json:"mintIds"`
}

// LoadHolderList loads a holder snapshot: [{"walletId", "totalAmount", "mintIds"}].
func LoadHolderList(ctx context.Context, path string) ([]HolderAccount, error) {
	var holders []HolderAccount
	if err := readJSON(ctx, "load_holder_list", path, &holders); err != nil {
		return nil, err
	}
	for i := range holders {
		w, err := ValidateAddress(holders[i].WalletID)
		if err != nil {
			return nil, fmt.Errorf("%s: holder[%d]: %w", path, i, err)
		}
		if holders[i].TotalAmount < 0 {
			return nil, fmt.Errorf("%s: holder[%d]: negative totalAmount %d", path, i, holders[i].TotalAmount)
		}
		holders[i].WalletID = w
	}
	return holders, nil
}

// HolderTargets returns one target per holder receiving perHolding base units
// for every NFT held. Holders with no NFTs are left out.
func HolderTargets(holders []HolderAccount, mint string, perHolding uint64) ([]engine.Target, error) {
	targets := make([]engine.Target, 0, len(holders))
	for _, h := range holders {
		if h.TotalAmount == 0 {
			continue
		}
		amount, err := engine.MulAmount(perHolding, h.TotalAmount)
		if err != nil {
			return nil, fmt.Errorf("holder %s: %w", h.WalletID, err)
		}
		targets = append(targets, engine.Target{
			Destination: h.WalletID,
			Mint:        mint,
			Amount:      amount,
			Holdings:    h.TotalAmount,
		})
	}
	return targets, nil
}

// Distribution is how many NFTs one wallet receives.
type Distribution struct {
	Wallet        string `json:"wallet"`
	NFTsToAirdrop int    `json:"nFtsToAirdrop"`
}

type distributionFile struct {
	DistributionList []Distribution `json:"distributionList"`
}

// LoadDistributionList loads {"distributionList": [{"wallet", "nFtsToAirdrop"}]}.
func LoadDistributionList(ctx context.Context, path string) ([]Distribution, error) {
	var file distributionFile
	if err := readJSON(ctx, "load_distribution_list", path, &file); err != nil {
		return nil, err
	}
	for i := range file.DistributionList {
		d := &file.DistributionList[i]
		w, err := ValidateAddress(d.Wallet)
		if err != nil {
			return nil, fmt.Errorf("%s: distributionList[%d]: %w", path, i, err)
		}
		if d.NFTsToAirdrop < 0 {
			return nil, fmt.Errorf("%s: distributionList[%d]: negative nFtsToAirdrop %d", path, i, d.NFTsToAirdrop)
		}
		d.Wallet = w
	}
	return file.DistributionList, nil
}

// LoadMintList loads a JSON array of mint addresses.
func LoadMintList(ctx context.Context, path string) ([]string, error) {
	return loadAddressArray(ctx, "load_mint_list", "mints", path)
}

// LoadAddressList loads a JSON array of wallet addresses, such as an exclusion list.
func LoadAddressList(ctx context.Context, path string) ([]string, error) {
	return loadAddressArray(ctx, "load_address_list", "addresses", path)
}

func loadAddressArray(ctx context.Context, operation, field, path string) ([]string, error) {
	var raw []string
	if err := readJSON(ctx, operation, path, &raw); err != nil {
		return nil, err
	}
	addrs, err := validateAddresses(field, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return addrs, nil
}

// PairNFTs hands out mints in list order: each distribution entry takes the
// next NFTsToAirdrop mints. Running out of mints is an error.
func PairNFTs(dists []Distribution, mints []string, closeSource bool) ([]engine.Target, error) {
	var targets []engine.Target
	next := 0
	for _, d := range dists {
		if next+d.NFTsToAirdrop > len(mints) {
			return nil, fmt.Errorf("%w: %s wants %d, %d left", ErrNotEnoughMints,
				d.Wallet, d.NFTsToAirdrop, len(mints)-next)
		}
		for _, m := range mints[next : next+d.NFTsToAirdrop] {
			targets = append(targets, engine.Target{
				Destination: d.Wallet,
				Mint:        m,
				Amount:      1,
				IsNFT:       true,
				CloseSource: closeSource,
			})
		}
		next += d.NFTsToAirdrop
	}
	return targets, nil
}

// LoadFailureList loads a persisted failure list for a retry pass. Unlike
// appending to the list, replaying it requires a readable file.
func LoadFailureList(ctx context.Context, path string) ([]config.FailureRecord, error) {
	var records []config.FailureRecord
	if err := readJSON(ctx, "load_failure_list", path, &records); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info().
		Ctx(ctx).
		Str("component", "ingest").
		Str("operation", "load_failure_list").
		Str("path", path).
		Int("records", len(records)).
		Msg("loaded failure list")
	return records, nil
}
