// Package fixedpoint implements the pooled-stake share and payout arithmetic.
//
// All amounts, prices and odds in the system are unsigned fixed-point integers
// at Scale (1e6). Every function here uses widened 128-bit intermediate math and
// truncating integer division; overflow or a division-by-zero guard trips
// ErrArithmetic instead of wrapping silently.
package fixedpoint

import (
	"errors"
	"math"
	"math/bits"
)

// Scale is the fixed-point scale shared by amounts, prices and odds.
const Scale int64 = 1_000_000

// BpsDenominator is the basis-point denominator used for fee rates.
const BpsDenominator int64 = 10_000

// ErrArithmetic is returned when a computation would overflow int64,
// receive a negative operand, or divide by zero.
var ErrArithmetic = errors.New("fixedpoint: arithmetic error")

// ShareForDeposit computes the shares issued for a deposit of amount into a
// side whose pool currently holds sameSidePool, with totalPool staked across
// both sides (both measured before the deposit is added).
//
// The first deposit on a side mints shares 1:1 with the amount. Later deposits
// are diluted against the depth of the whole pool:
//
//	shares = amount * totalPool / (sameSidePool + amount)
func ShareForDeposit(amount, sameSidePool, totalPool int64) (int64, error) {
	if amount <= 0 || sameSidePool < 0 || totalPool < 0 {
		return 0, ErrArithmetic
	}
	if sameSidePool == 0 {
		return amount, nil
	}
	denom, err := add(sameSidePool, amount)
	if err != nil {
		return 0, err
	}
	return MulDiv(amount, totalPool, denom)
}

// PayoutForShares computes the gross payout for a settling position: its
// principal plus a proportional claim on the opposing pool.
//
//	payout = amount + shares * losingPool / winningPool
//
// When the winning pool is empty or the position holds no shares, the payout
// is the principal alone.
func PayoutForShares(amount, shares, winningPool, losingPool int64) (int64, error) {
	if amount < 0 || shares < 0 || winningPool < 0 || losingPool < 0 {
		return 0, ErrArithmetic
	}
	if winningPool == 0 || shares == 0 {
		return amount, nil
	}
	profit, err := MulDiv(shares, losingPool, winningPool)
	if err != nil {
		return 0, err
	}
	return add(amount, profit)
}

// FeeOn computes the fee charged on a gross profit at feeRateBps basis points.
// Fees apply to profit only, never to principal.
func FeeOn(grossProfit, feeRateBps int64) (int64, error) {
	if grossProfit < 0 || feeRateBps < 0 {
		return 0, ErrArithmetic
	}
	if grossProfit == 0 || feeRateBps == 0 {
		return 0, nil
	}
	return MulDiv(grossProfit, feeRateBps, BpsDenominator)
}

// MulDiv returns a * b / d with a 128-bit intermediate product and truncating
// division. All operands must be non-negative and d non-zero.
func MulDiv(a, b, d int64) (int64, error) {
	if a < 0 || b < 0 || d <= 0 {
		return 0, ErrArithmetic
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= uint64(d) {
		// Quotient would not fit in 64 bits.
		return 0, ErrArithmetic
	}
	q, _ := bits.Div64(hi, lo, uint64(d))
	if q > math.MaxInt64 {
		return 0, ErrArithmetic
	}
	return int64(q), nil
}

// add returns a + b, failing instead of wrapping past MaxInt64.
func add(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, ErrArithmetic
	}
	sum := a + b
	if sum < a {
		return 0, ErrArithmetic
	}
	return sum, nil
}
