package solana

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// ErrNotTokenProgram is returned when a mint is owned by neither the classic
// token program nor Token-2022.
var ErrNotTokenProgram = errors.New("account is not owned by a token program")

// MintInfo is the decoded part of a mint account the transfer path needs.
type MintInfo struct {
	Address       solana.PublicKey
	Program       solana.PublicKey
	Decimals      uint8
	Supply        uint64
	MintAuthority *solana.PublicKey
}

// IsAuthority reports whether key may mint new tokens.
func (m MintInfo) IsAuthority(key solana.PublicKey) bool {
	return m.MintAuthority != nil && m.MintAuthority.Equals(key)
}

// TokenProgram returns the Token-2022 program when use2022 is set, the
// classic token program otherwise.
func TokenProgram(use2022 bool) solana.PublicKey {
	if use2022 {
		return solana.Token2022ProgramID
	}
	return solana.TokenProgramID
}

func isTokenProgram(p solana.PublicKey) bool {
	return p.Equals(solana.TokenProgramID) || p.Equals(solana.Token2022ProgramID)
}

// AssociatedTokenAddress derives the associated token account of owner for
// mint under tokenProgram.
func AssociatedTokenAddress(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner[:], tokenProgram[:], mint[:]},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("deriving token account of %s for %s: %w", owner, mint, err)
	}
	return addr, nil
}

// DecodeMint decodes the base mint layout. Token-2022 extensions after the
// base layout are ignored.
func DecodeMint(address, program solana.PublicKey, data []byte) (MintInfo, error) {
	var m token.Mint
	if err := m.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return MintInfo{}, fmt.Errorf("decoding mint %s: %w", address, err)
	}
	if !m.IsInitialized {
		return MintInfo{}, fmt.Errorf("mint %s is not initialized", address)
	}
	return MintInfo{
		Address:       address,
		Program:       program,
		Decimals:      m.Decimals,
		Supply:        m.Supply,
		MintAuthority: m.MintAuthority,
	}, nil
}

// DecodeTokenAccount decodes the base token account layout.
func DecodeTokenAccount(data []byte) (token.Account, error) {
	var acct token.Account
	if err := acct.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return token.Account{}, fmt.Errorf("decoding token account: %w", err)
	}
	return acct, nil
}
