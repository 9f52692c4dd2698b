package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFee(t *testing.T) {
	tests := []struct {
		name    string
		amount  uint64
		feeBps  uint16
		wantFee uint64
		wantNet uint64
	}{
		{"zero fee", 1000, 0, 0, 1000},
		{"30 bps", 1000, 30, 3, 997},
		{"rounds down", 1, 9999, 0, 1},
		{"full rate", 500, 10_000, 500, 0},
		{"max amount", math.MaxUint64, 10_000, math.MaxUint64, 0},
		{"max amount half", math.MaxUint64, 5_000, math.MaxUint64 / 2, math.MaxUint64 - math.MaxUint64/2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, net, err := SplitFee(tt.amount, tt.feeBps)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFee, fee)
			assert.Equal(t, tt.wantNet, net)
			assert.Equal(t, tt.amount, fee+net)
		})
	}
}

func TestSplitFee_NoRoundingLoss(t *testing.T) {
	for _, bps := range []uint16{0, 1, 7, 30, 99, 250, 3333, 9999, 10_000} {
		for _, amount := range []uint64{0, 1, 3, 99, 10_001, 123_456_789, math.MaxUint64 - 1} {
			fee, net, err := SplitFee(amount, bps)
			require.NoError(t, err)
			assert.Equal(t, amount, fee+net, "amount=%d bps=%d", amount, bps)
		}
	}
}

func TestSplitFee_RejectsRateAboveDenominator(t *testing.T) {
	_, _, err := SplitFee(100, 10_001)
	assert.ErrorIs(t, err, ErrInvalidFeeRate)
}

func TestPendingYield(t *testing.T) {
	assert.Equal(t, uint64(5), PendingYield(3_153_600_000, 1))
	assert.Equal(t, uint64(50_000), PendingYield(1_000_000, SecondsPerYear))
	assert.Equal(t, uint64(0), PendingYield(1_000_000, 0))
	assert.Equal(t, uint64(0), PendingYield(1_000_000, -50))
	assert.Equal(t, uint64(0), PendingYield(0, SecondsPerYear))
	// 1000 * 5 * 3600 / 3153600000 truncates to zero.
	assert.Equal(t, uint64(0), PendingYield(1000, 3600))
}

func TestPendingYield_Saturates(t *testing.T) {
	assert.Equal(t, uint64(math.MaxUint64), PendingYield(math.MaxUint64, math.MaxInt64))
	// Large but representable: no overflow in the intermediate product.
	got := PendingYield(math.MaxUint64, SecondsPerYear)
	assert.Equal(t, uint64(math.MaxUint64/20), got)
}

func TestMulDiv(t *testing.T) {
	got, err := MulDiv(math.MaxUint64, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(13835058055282163711), got)

	_, err = MulDiv(math.MaxUint64, 2, 1)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestCheckedArithmetic(t *testing.T) {
	_, err := CheckedAdd(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)

	sum, err := CheckedAdd(2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), sum)

	_, err = CheckedSub(1, 2)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)

	assert.Equal(t, uint64(0), SaturatingSub(1, 2))
	assert.Equal(t, uint64(1), SaturatingSub(3, 2))

	assert.Equal(t, int64(math.MaxInt64), SaturatingAddTime(math.MaxInt64-1, 10))
	assert.Equal(t, int64(110), SaturatingAddTime(100, 10))
}

func TestDeployAmount(t *testing.T) {
	got, err := DeployAmount(1000, 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), got)

	got, err = DeployAmount(999, 33)
	require.NoError(t, err)
	assert.Equal(t, uint64(329), got)

	_, err = DeployAmount(1000, 101)
	assert.ErrorIs(t, err, ErrInvalidPercentage)
}

func TestStakedShare(t *testing.T) {
	assert.Equal(t, uint64(800), StakedShare(1000))
	assert.Equal(t, uint64(0), StakedShare(1))
	assert.Equal(t, uint64(14757395258967641292), StakedShare(math.MaxUint64))
}
