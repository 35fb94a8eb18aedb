package ledger

import (
	"math"
	"math/big"
)

const bpsDenominator = 10_000

// mulChecked multiplies two non-negative values, reporting overflow.
func mulChecked(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if c/b != a || c < 0 {
		return 0, false
	}
	return c, true
}

// splitFee divides a non-negative amount into the house cut, floor(amount*feeBps/10000),
// and the payout. houseCut + payout == amount always holds.
func splitFee(amount, feeBps int64) (houseCut, payout int64) {
	n := new(big.Int).Mul(big.NewInt(amount), big.NewInt(feeBps))
	n.Quo(n, big.NewInt(bpsDenominator))
	houseCut = n.Int64()
	return houseCut, amount - houseCut
}

// entitlementCap is the most a session may cash out: its stake times the multiplier.
func entitlementCap(stake, multiplier int64) int64 {
	c, ok := mulChecked(stake, multiplier)
	if !ok {
		return math.MaxInt64
	}
	return c
}

// coversBet reports whether credited is at least bet less the allowed slippage,
// i.e. credited*10000 >= bet*(10000-slippageBps).
func coversBet(credited, bet, slippageBps int64) bool {
	lhs := new(big.Int).Mul(big.NewInt(credited), big.NewInt(bpsDenominator))
	rhs := new(big.Int).Mul(big.NewInt(bet), big.NewInt(bpsDenominator-slippageBps))
	return lhs.Cmp(rhs) >= 0
}
