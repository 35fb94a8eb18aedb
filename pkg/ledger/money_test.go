package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitFee(t *testing.T) {
	testCases := []struct {
		amount, feeBps   int64
		houseCut, payout int64
	}{
		{40, 1000, 4, 36},
		{0, 1000, 0, 0},
		{9, 1000, 0, 9},
		{19, 1000, 1, 18},
		{12345, 250, 308, 12037},
		{100, 0, 0, 100},
		{100, 10_000, 100, 0},
		{math.MaxInt64, 1000, 922337203685477580, 8301034833169298227},
	}

	for _, tc := range testCases {
		cut, payout := splitFee(tc.amount, tc.feeBps)
		assert.Equal(t, tc.houseCut, cut, "house cut of %d at %d bps", tc.amount, tc.feeBps)
		assert.Equal(t, tc.payout, payout, "payout of %d at %d bps", tc.amount, tc.feeBps)
	}

	for amount := int64(0); amount < 5000; amount += 7 {
		cut, payout := splitFee(amount, 1000)
		assert.Equal(t, amount, cut+payout)
		assert.Equal(t, amount*1000/10_000, cut)
	}
}

func TestEntitlementCap(t *testing.T) {
	assert.Equal(t, int64(100), entitlementCap(10, 10))
	assert.Equal(t, int64(0), entitlementCap(0, 10))
	assert.Equal(t, int64(math.MaxInt64), entitlementCap(math.MaxInt64/2, 10))
}

func TestCoversBet(t *testing.T) {
	assert.True(t, coversBet(100, 100, 0))
	assert.False(t, coversBet(99, 100, 0))
	assert.True(t, coversBet(99, 100, 100))
	assert.False(t, coversBet(98, 100, 100))
	assert.True(t, coversBet(500, 100, 100))
}
