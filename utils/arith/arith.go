// Package arith implements the fixed-point arithmetic of the overlay:
// 1e8-scaled amounts with wide intermediates, so products of three
// 64-bit factors never overflow before the final division.
package arith

import (
	"math"
	"math/big"
)

// COIN is the number of indivisible units per displayed whole token.
const COIN int64 = 100000000

// MaxInt8Bytes is the largest amount any property may issue or move.
const MaxInt8Bytes int64 = math.MaxInt64

// MulDiv computes a*b*c/(d*e) with arbitrary-precision intermediates,
// truncated toward zero. ok is false when the divisor is zero or the
// result does not fit an int64.
func MulDiv(a, b, c, d, e int64) (result int64, ok bool) {
	divisor := new(big.Int).Mul(big.NewInt(d), big.NewInt(e))
	if divisor.Sign() == 0 {
		return 0, false
	}
	num := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	num.Mul(num, big.NewInt(c))
	num.Quo(num, divisor)
	if !num.IsInt64() {
		return 0, false
	}
	return num.Int64(), true
}

// MulDivRoundUp computes a*b/d rounded up, with arbitrary-precision
// intermediates. ok is false when d is zero or the result does not fit
// an int64.
func MulDivRoundUp(a, b, d int64) (int64, bool) {
	if d == 0 {
		return 0, false
	}
	num := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	q, r := new(big.Int).QuoRem(num, big.NewInt(d), new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsInt64() {
		return 0, false
	}
	return q.Int64(), true
}

// ContractReserve computes the margin a contract trade must lock:
//
//	(COIN * amount * marginRequirement) / (leverage * unitPrice)
//
// unitPrice is the market price for inverse-quoted contracts and COIN
// otherwise.
func ContractReserve(amount int64, marginRequirement, leverage, unitPrice uint64) (int64, bool) {
	return MulDiv(COIN, amount, int64(marginRequirement), int64(leverage), int64(unitPrice))
}

// ChannelContractReserve computes the margin a channel contract trade
// must lock: (amount * marginRequirement) / leverage, without the price
// normalization of on-book trades.
func ChannelContractReserve(amount int64, marginRequirement, leverage uint64) (int64, bool) {
	return MulDiv(amount, int64(marginRequirement), 1, int64(leverage), 1)
}

// DivideAndRoundUp returns n/d rounded away from zero for positive
// operands.
func DivideAndRoundUp(n, d int64) int64 {
	if d == 0 {
		return 0
	}
	return (n + d - 1) / d
}
