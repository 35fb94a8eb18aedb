package models

import (
	"time"
)

// SessionState defines the possible states of a betting session.
type SessionState string

const (
	OPEN     SessionState = "OPEN"
	SETTLING SessionState = "SETTLING"
	SETTLED  SessionState = "SETTLED"
	EXPIRED  SessionState = "EXPIRED"
)

// User is the ledger record for a single player.
// Balance, TotalWagered and TotalWon are ledger units (US cents).
type User struct {
	ID              string    `json:"id" dynamodbav:"id"`
	CustodyAddress  string    `json:"custody_address" dynamodbav:"custody_address"`
	Balance         int64     `json:"balance" dynamodbav:"balance"`
	TotalWagered    int64     `json:"total_wagered" dynamodbav:"total_wagered"`
	TotalWon        int64     `json:"total_won" dynamodbav:"total_won"`
	ActiveSessionID string    `json:"active_session_id,omitempty" dynamodbav:"active_session_id,omitempty"`
	Version         int64     `json:"version" dynamodbav:"version"`
	CreatedAt       time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Session is a single wager funded by exactly one inbound transfer.
type Session struct {
	ID            string       `dynamodbav:"id"`
	UserID        string       `dynamodbav:"user_id"`
	BetAmount     int64        `dynamodbav:"bet_amount"`
	CarriedAmount int64        `dynamodbav:"carried_amount"`
	DepositRef    string       `dynamodbav:"deposit_ref"`
	DepositAmount int64        `dynamodbav:"deposit_amount"`
	State         SessionState `dynamodbav:"state"`
	OpenedAt      time.Time    `dynamodbav:"opened_at"`
	ExpiresAt     time.Time    `dynamodbav:"expires_at"`
	UpdatedAt     time.Time    `dynamodbav:"updated_at"`
	ClosedAt      *time.Time   `dynamodbav:"closed_at,omitempty"`

	// Settlement record, filled when the session enters SETTLING.
	FinalBalance     int64  `dynamodbav:"final_balance"`
	HouseCut         int64  `dynamodbav:"house_cut"`
	Payout           int64  `dynamodbav:"payout"`
	PayoutAmount     int64  `dynamodbav:"payout_amount"`
	PayoutRef        string `dynamodbav:"payout_ref,omitempty"`
	PayoutValidUntil uint64 `dynamodbav:"payout_valid_until,omitempty"`

	SettleAttempts int        `dynamodbav:"settle_attempts"`
	SettlingSince  *time.Time `dynamodbav:"settling_since,omitempty"`
	LastFailure    string     `dynamodbav:"last_failure,omitempty"`
	HeldForReview  bool       `dynamodbav:"held_for_review"`
}

// Stake is the amount of balance this session consumes when it closes.
func (s *Session) Stake() int64 {
	return s.BetAmount + s.CarriedAmount
}

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	EntryDeposit  EntryKind = "DEPOSIT"
	EntryStake    EntryKind = "STAKE"
	EntryHouseFee EntryKind = "HOUSE_FEE"
	EntryForfeit  EntryKind = "FORFEIT"
)

// HouseAccount is the account id used for entries booked to the pooled account.
const HouseAccount = "house"

// LedgerEntry represents a single entry in the double-entry ledger.
type LedgerEntry struct {
	EntryID     string    `dynamodbav:"entry_id"`
	SessionID   string    `dynamodbav:"session_id"`
	AccountID   string    `dynamodbav:"account_id"`
	Kind        EntryKind `dynamodbav:"kind"`
	Debit       int64     `dynamodbav:"debit,omitempty"`
	Credit      int64     `dynamodbav:"credit,omitempty"`
	Description string    `dynamodbav:"description"`
	Timestamp   time.Time `dynamodbav:"timestamp"`
	GSI1PK      string    `dynamodbav:"gsi1pk"`
}
