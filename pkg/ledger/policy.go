package ledger

import (
	"fmt"
	"time"
)

// ExpiryPolicy decides what happens to the stake of a session that times out.
type ExpiryPolicy string

const (
	// ExpiryRefund leaves the stake on the balance and carries it into the next session.
	ExpiryRefund ExpiryPolicy = "refund"
	// ExpiryForfeit books the stake to the house.
	ExpiryForfeit ExpiryPolicy = "forfeit"
)

// Policy holds the product rules the engine enforces. Amounts are ledger units.
type Policy struct {
	// CustodyAddress is the pooled account every deposit must be sent to.
	CustodyAddress string

	FeeBps              int64
	MaxPayoutMultiplier int64
	MinBet              int64
	MaxBet              int64
	// PriceSlippageBps is how far below the bet the converted deposit value may fall.
	PriceSlippageBps int64

	SessionTTL      time.Duration
	SettlingTimeout time.Duration
	PayoutTimeout   time.Duration
	LockTimeout     time.Duration

	Expiry ExpiryPolicy
}

// DefaultPolicy returns the production defaults: a 10% house fee, a 10x payout cap and
// bets between 1 and 100 USD.
func DefaultPolicy(custodyAddress string) Policy {
	return Policy{
		CustodyAddress:      custodyAddress,
		FeeBps:              1000,
		MaxPayoutMultiplier: 10,
		MinBet:              100,
		MaxBet:              10_000,
		PriceSlippageBps:    100,
		SessionTTL:          30 * time.Minute,
		SettlingTimeout:     10 * time.Minute,
		PayoutTimeout:       30 * time.Second,
		LockTimeout:         45 * time.Second,
		Expiry:              ExpiryRefund,
	}
}

// Validate rejects policies the engine cannot run safely with.
func (p Policy) Validate() error {
	switch {
	case p.CustodyAddress == "":
		return fmt.Errorf("custody address is required")
	case p.FeeBps < 0 || p.FeeBps > bpsDenominator:
		return fmt.Errorf("fee must be between 0 and %d bps, got %d", bpsDenominator, p.FeeBps)
	case p.MaxPayoutMultiplier < 1:
		return fmt.Errorf("max payout multiplier must be at least 1, got %d", p.MaxPayoutMultiplier)
	case p.MinBet <= 0 || p.MaxBet < p.MinBet:
		return fmt.Errorf("invalid bet bounds %d..%d", p.MinBet, p.MaxBet)
	case p.PriceSlippageBps < 0 || p.PriceSlippageBps >= bpsDenominator:
		return fmt.Errorf("price slippage must be below %d bps, got %d", bpsDenominator, p.PriceSlippageBps)
	case p.SessionTTL <= 0 || p.SettlingTimeout <= 0 || p.PayoutTimeout <= 0 || p.LockTimeout <= 0:
		return fmt.Errorf("timeouts must be positive")
	case p.PayoutTimeout >= p.LockTimeout:
		return fmt.Errorf("payout timeout %s must be shorter than lock timeout %s", p.PayoutTimeout, p.LockTimeout)
	case p.Expiry != ExpiryRefund && p.Expiry != ExpiryForfeit:
		return fmt.Errorf("unknown expiry policy %q", p.Expiry)
	}
	return nil
}

// requestOverhead covers verification, price lookup and the store writes around a payout.
const requestOverhead = 15 * time.Second

// MaxRequestDuration is the longest a deposit or settlement call can take: waiting out
// the lock, then a payout bounded by PayoutTimeout.
func (p Policy) MaxRequestDuration() time.Duration {
	return p.LockTimeout + p.PayoutTimeout + requestOverhead
}
