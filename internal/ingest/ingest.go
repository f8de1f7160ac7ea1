// Package ingest loads the JSON input files of an airdrop: wallet lists,
// holder snapshots, NFT distribution plans, mint lists, exclusion lists and
// persisted failure lists.
//
// Every loader treats a missing or malformed file as fatal. Addresses are
// checked to be valid base58 public keys before any transfer is planned.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/rshade/splairdrop/internal/logging"
)

// Ingest errors.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrMissingMint    = errors.New("mint is required")
	ErrNotEnoughMints = errors.New("not enough mints for the distribution list")
)

// readJSON reads path and decodes it into v.
func readJSON(ctx context.Context, operation, path string, v any) error {
	log := logging.FromContext(ctx)
	log.Debug().
		Ctx(ctx).
		Str("component", "ingest").
		Str("operation", operation).
		Str("path", path).
		Msg("loading input file")

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().
			Ctx(ctx).
			Str("component", "ingest").
			Str("operation", operation).
			Str("path", path).
			Err(err).
			Msg("failed to read input file")
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err = json.Unmarshal(data, v); err != nil {
		log.Error().
			Ctx(ctx).
			Str("component", "ingest").
			Str("operation", operation).
			Str("path", path).
			Err(err).
			Msg("failed to parse input file")
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// ValidateAddress trims s and checks that it is a base58 public key.
func ValidateAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if _, err := solana.PublicKeyFromBase58(s); err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrInvalidAddress, s, err)
	}
	return s, nil
}

func validateAddresses(field string, addrs []string) ([]string, error) {
	out := make([]string, 0, len(addrs))
	for i, a := range addrs {
		v, err := ValidateAddress(a)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
