package engine

import (
	"math/big"
	"time"
)

// DefaultMaxFeeBps caps the platform fee at 10%.
const DefaultMaxFeeBps = 1000

const daysPerYear = 365

// Intermediate products (principal * bps * days) can exceed int64 for large
// pools, so the fixed-point math runs through big.Int and only the final
// quotient comes back down.

// ExpectedReturn computes principal plus simple interest:
//
//	principal + principal * rateBps * days / (365 * 10000)
//
// days is floored to 1 so a same-day commitment still accrues one day of
// interest. The division floors; the lost sub-unit stays with the payer, never
// with the investor.
func ExpectedReturn(principal, rateBps, days int64) int64 {
	if principal <= 0 {
		return 0
	}
	if days < 1 {
		days = 1
	}
	if rateBps < 0 {
		rateBps = 0
	}

	num := new(big.Int).SetInt64(principal)
	num.Mul(num, big.NewInt(rateBps))
	num.Mul(num, big.NewInt(days))
	num.Quo(num, big.NewInt(daysPerYear*10000))

	return principal + num.Int64()
}

// PlatformFee computes amount * feeBps / 10000 with floor division. feeBps is
// clamped to DefaultMaxFeeBps.
func PlatformFee(amount, feeBps int64) int64 {
	if amount <= 0 || feeBps <= 0 {
		return 0
	}
	if feeBps > DefaultMaxFeeBps {
		feeBps = DefaultMaxFeeBps
	}

	num := new(big.Int).SetInt64(amount)
	num.Mul(num, big.NewInt(feeBps))
	num.Quo(num, big.NewInt(10000))

	return num.Int64()
}

// DaysToMaturity returns the whole days between now and the due date, floored
// to a minimum of 1.
func DaysToMaturity(now, dueDate time.Time) int64 {
	days := int64(dueDate.Sub(now).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return days
}

// proRataShare computes total * part / whole with floor division, again via
// big.Int to survive large pools.
func proRataShare(total, part, whole int64) int64 {
	if whole <= 0 || part <= 0 || total <= 0 {
		return 0
	}
	num := new(big.Int).SetInt64(total)
	num.Mul(num, big.NewInt(part))
	num.Quo(num, big.NewInt(whole))
	return num.Int64()
}
