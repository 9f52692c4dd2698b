package model

import (
	"math"
	"math/bits"
)

const (
	// BasisPointsDenominator is the fee-rate scale (10000 bps = 100%).
	BasisPointsDenominator = 10_000

	// SecondsPerYear is the accrual year (365 days).
	SecondsPerYear = 31_536_000

	// AnnualYieldPercent is the simple per-annum rate on staked funds.
	AnnualYieldPercent = 5

	// StakedSharePercent is the portion of deposits placed in the
	// yield-bearing bucket.
	StakedSharePercent = 80
)

// CheckedAdd returns a+b or ErrArithmeticOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

// CheckedSub returns a-b or ErrArithmeticOverflow on underflow.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrArithmeticOverflow
	}
	return diff, nil
}

// SaturatingSub returns a-b, or 0 when b > a.
func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// SaturatingAddTime returns t+d clamped to the int64 range.
func SaturatingAddTime(t, d int64) int64 {
	if d > 0 && t > math.MaxInt64-d {
		return math.MaxInt64
	}
	if d < 0 && t < math.MinInt64-d {
		return math.MinInt64
	}
	return t + d
}

// MulDiv computes floor(a*b/d) with a 128-bit intermediate product.
// Fails with ErrArithmeticOverflow when the quotient does not fit in 64 bits
// and panics on d == 0 like integer division.
func MulDiv(a, b, d uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, ErrArithmeticOverflow
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}

// SplitFee divides a withdrawal into the treasury fee and the net amount
// sent to the destination. fee = floor(amount*feeBps/10000), net = amount-fee,
// so fee+net == amount for every input.
func SplitFee(amount uint64, feeBps uint16) (fee, net uint64, err error) {
	if feeBps > BasisPointsDenominator {
		return 0, 0, ErrInvalidFeeRate
	}
	fee, err = MulDiv(amount, uint64(feeBps), BasisPointsDenominator)
	if err != nil {
		return 0, 0, err
	}
	return fee, amount - fee, nil
}

// PendingYield returns floor(staked * 5 * elapsed / (100 * SecondsPerYear)).
// Negative elapsed time yields nothing. The result saturates at MaxUint64
// instead of wrapping.
func PendingYield(staked uint64, elapsed int64) uint64 {
	if elapsed <= 0 || staked == 0 {
		return 0
	}
	const denom = 100 * SecondsPerYear

	hi, lo := bits.Mul64(staked, uint64(elapsed))
	hi, lo, overflow := mul128(hi, lo, AnnualYieldPercent)
	if overflow || hi >= denom {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, denom)
	return q
}

// DeployAmount returns floor(staked * pct / 100).
func DeployAmount(staked uint64, pct uint8) (uint64, error) {
	if pct > 100 {
		return 0, ErrInvalidPercentage
	}
	return MulDiv(staked, uint64(pct), 100)
}

// StakedShare returns the yield-bearing portion of total deposits.
func StakedShare(totalDeposited uint64) uint64 {
	// pct < 100 so the quotient always fits.
	q, _ := MulDiv(totalDeposited, StakedSharePercent, 100)
	return q
}

// mul128 multiplies the 128-bit value hi:lo by m.
func mul128(hi, lo, m uint64) (uint64, uint64, bool) {
	carryLo, outLo := bits.Mul64(lo, m)
	overHi, outHi := bits.Mul64(hi, m)
	if overHi != 0 {
		return 0, 0, true
	}
	outHi, carry := bits.Add64(outHi, carryLo, 0)
	if carry != 0 {
		return 0, 0, true
	}
	return outHi, outLo, false
}
