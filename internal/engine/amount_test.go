package engine_test

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/splairdrop/internal/engine"
)

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		decimals uint8
		want     uint64
		wantErr  error
	}{
		{name: "whole tokens", in: "10", decimals: 9, want: 10_000_000_000},
		{name: "fraction within precision", in: "1.5", decimals: 6, want: 1_500_000},
		{name: "smallest unit", in: "0.000000001", decimals: 9, want: 1},
		{name: "zero decimals", in: "42", decimals: 0, want: 42},
		{name: "trailing zeros", in: "2.500", decimals: 2, want: 250},
		{name: "zero", in: "0", decimals: 9, want: 0},
		{name: "too precise", in: "0.0000000001", decimals: 9, wantErr: engine.ErrFractionalAmount},
		{name: "fraction with zero decimals", in: "1.5", decimals: 0, wantErr: engine.ErrFractionalAmount},
		{name: "negative", in: "-1", decimals: 0, wantErr: engine.ErrNegativeAmount},
		{name: "overflow", in: "18446744073709551616", decimals: 0, wantErr: engine.ErrAmountOverflow},
		{name: "overflow after scaling", in: "18446744074", decimals: 9, wantErr: engine.ErrAmountOverflow},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := engine.ParseAmount(tt.in, tt.decimals)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	t.Parallel()

	_, err := engine.ParseAmount("ten", 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ten"`)
}

func TestToBaseUnits_MaxUint64(t *testing.T) {
	t.Parallel()

	got, err := engine.ToBaseUnits(decimal.RequireFromString("18446744073709551615"), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got)
}

func TestFromBaseUnits(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.5", engine.FromBaseUnits(1_500_000, 6).String())
	assert.Equal(t, "0.000000001", engine.FromBaseUnits(1, 9).String())
	assert.Equal(t, "7", engine.FromBaseUnits(7, 0).String())

	back, err := engine.ToBaseUnits(engine.FromBaseUnits(123_456_789, 9), 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(123_456_789), back)
}

func TestMulAmount(t *testing.T) {
	t.Parallel()

	got, err := engine.MulAmount(2_000_000_000, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(6_000_000_000), got)

	got, err = engine.MulAmount(5, 0)
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = engine.MulAmount(math.MaxUint64/2+1, 2)
	require.ErrorIs(t, err, engine.ErrAmountOverflow)

	_, err = engine.MulAmount(1, -1)
	require.ErrorIs(t, err, engine.ErrNegativeAmount)
}
