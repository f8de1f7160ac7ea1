package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// createIdempotentDiscriminator selects CreateIdempotent in the associated
// token account program.
const createIdempotentDiscriminator = 1

// CreateATAIdempotent creates owner's associated token account for mint, or
// does nothing when it already exists.
func CreateATAIdempotent(payer, ata, owner, mint, tokenProgram solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		solana.AccountMetaSlice{
			solana.Meta(payer).WRITE().SIGNER(),
			solana.Meta(ata).WRITE(),
			solana.Meta(owner),
			solana.Meta(mint),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(tokenProgram),
		},
		[]byte{createIdempotentDiscriminator},
	)
}

// onProgram re-targets a token instruction at tokenProgram. Token-2022 shares
// the classic layout for the instructions used here.
func onProgram(ix *token.Instruction, tokenProgram solana.PublicKey) (solana.Instruction, error) {
	data, err := ix.Data()
	if err != nil {
		return nil, fmt.Errorf("encoding token instruction: %w", err)
	}
	return solana.NewInstruction(tokenProgram, ix.Accounts(), data), nil
}

// TransferChecked moves amount base units from source to destination.
func TransferChecked(
	amount uint64,
	decimals uint8,
	source, mint, destination, owner, tokenProgram solana.PublicKey,
) (solana.Instruction, error) {
	ix, err := token.NewTransferCheckedInstruction(amount, decimals, source, mint, destination, owner, nil).
		ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("building transfer: %w", err)
	}
	return onProgram(ix, tokenProgram)
}

// MintToChecked mints amount base units into destination.
func MintToChecked(
	amount uint64,
	decimals uint8,
	mint, destination, authority, tokenProgram solana.PublicKey,
) (solana.Instruction, error) {
	ix, err := token.NewMintToCheckedInstruction(amount, decimals, mint, destination, authority, nil).
		ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("building mint: %w", err)
	}
	return onProgram(ix, tokenProgram)
}

// CloseAccount closes an empty token account and returns its rent to destination.
func CloseAccount(account, destination, owner, tokenProgram solana.PublicKey) (solana.Instruction, error) {
	ix, err := token.NewCloseAccountInstruction(account, destination, owner, nil).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("building close: %w", err)
	}
	return onProgram(ix, tokenProgram)
}
