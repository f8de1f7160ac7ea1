package engine

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"
)

// Amount errors.
var (
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrFractionalAmount = errors.New("amount is finer than the mint's decimals")
	ErrAmountOverflow   = errors.New("amount does not fit in 64 bits")
)

// ToBaseUnits converts a UI amount into the mint's base units. The result
// must be a whole number; amounts with more precision than decimals are
// rejected instead of rounded.
func ToBaseUnits(ui decimal.Decimal, decimals uint8) (uint64, error) {
	if ui.IsNegative() {
		return 0, fmt.Errorf("%w: %s", ErrNegativeAmount, ui)
	}
	scaled := ui.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %s with %d decimals", ErrFractionalAmount, ui, decimals)
	}
	n := scaled.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: %s with %d decimals", ErrAmountOverflow, ui, decimals)
	}
	return n.Uint64(), nil
}

// ParseAmount parses a UI amount string and converts it to base units.
func ParseAmount(s string, decimals uint8) (uint64, error) {
	ui, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return ToBaseUnits(ui, decimals)
}

// FromBaseUnits renders base units as a UI amount.
func FromBaseUnits(base uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(base), -int32(decimals))
}

// MulAmount returns perUnit * count in base units.
func MulAmount(perUnit uint64, count int) (uint64, error) {
	if count < 0 {
		return 0, fmt.Errorf("%w: count %d", ErrNegativeAmount, count)
	}
	hi, lo := bits.Mul64(perUnit, uint64(count))
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d x %d", ErrAmountOverflow, perUnit, count)
	}
	return lo, nil
}
