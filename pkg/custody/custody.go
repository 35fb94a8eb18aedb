// Package custody declares the chain-facing capabilities the ledger consumes:
// verifying inbound transfers into the pooled account and paying out of it.
package custody

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a transfer reference is unknown to the network.
	ErrNotFound = errors.New("transfer not found")
	// ErrRPCFailure is returned when the network could not be reached or answered with an error.
	// For Pay it means the transfer was not submitted.
	ErrRPCFailure = errors.New("custody rpc failure")
	// ErrInsufficientFunds is returned when the pooled account cannot cover a payout.
	ErrInsufficientFunds = errors.New("custody account has insufficient funds")
	// ErrInvalidAddress is returned for a malformed destination address.
	ErrInvalidAddress = errors.New("invalid custody address")
	// ErrOutcomeUnknown is returned when a payout may have been broadcast but its fate is not known.
	ErrOutcomeUnknown = errors.New("payout outcome unknown")
)

// Transfer describes an inbound transfer as seen by the network.
// Amount is in the settlement asset's base units.
type Transfer struct {
	Ref       string
	Confirmed bool
	From      string
	To        string
	Amount    int64
}

// Receipt identifies a submitted payout. ValidUntil is the network height after which a
// transfer that has not been seen can no longer land; zero means unknown.
type Receipt struct {
	Ref        string
	ValidUntil uint64
}

// PayoutStatus is the network's view of a previously submitted payout.
type PayoutStatus string

const (
	PayoutConfirmed PayoutStatus = "confirmed"
	PayoutFailed    PayoutStatus = "failed"
	PayoutPending   PayoutStatus = "pending"
)

// Verifier looks up inbound transfers.
type Verifier interface {
	Verify(ctx context.Context, ref string) (*Transfer, error)
}

// Payer moves value out of the pooled account.
type Payer interface {
	// Pay submits a transfer of amount base units to the destination address.
	// When it returns ErrOutcomeUnknown the receipt carries the ref if one was assigned.
	Pay(ctx context.Context, to string, amount int64) (Receipt, error)

	// PayoutStatus reports whether a submitted payout landed.
	PayoutStatus(ctx context.Context, receipt Receipt) (PayoutStatus, error)
}

// AddressValidator checks that an address is well formed for the settlement network.
type AddressValidator interface {
	ValidateAddress(addr string) error
}
