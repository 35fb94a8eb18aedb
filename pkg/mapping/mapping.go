// Package mapping converts between the generated API models and the domain models.
package mapping

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/chris/custodial-ledger/pkg/api"
	"github.com/chris/custodial-ledger/pkg/ledger"
	"github.com/chris/custodial-ledger/pkg/models"
)

var maxCents = decimal.NewFromInt(1 << 53)

// FormatUSD renders cents as a fixed two-place dollar string.
func FormatUSD(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ParseUSD converts a positive dollar string with at most two decimal places to cents.
func ParseUSD(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid dollar amount %q", s)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("dollar amount must be positive")
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("dollar amount %q has more than two decimal places", s)
	}
	if cents.GreaterThan(maxCents) {
		return 0, fmt.Errorf("dollar amount %q is out of range", s)
	}
	return cents.IntPart(), nil
}

// ToApiUser converts a domain User model to an API User model.
func ToApiUser(user *models.User) api.User {
	return api.User{
		Id:              user.ID,
		CustodyAddress:  user.CustodyAddress,
		Balance:         user.Balance,
		BalanceUsd:      FormatUSD(user.Balance),
		TotalWagered:    user.TotalWagered,
		TotalWon:        user.TotalWon,
		ActiveSessionId: optional(user.ActiveSessionID),
		CreatedAt:       user.CreatedAt,
	}
}

// ToApiSession converts a domain Session model to an API Session model. Settlement
// fields are only populated once the session has entered SETTLING.
func ToApiSession(s *models.Session) api.Session {
	out := api.Session{
		Id:            s.ID,
		UserId:        s.UserID,
		BetAmount:     s.BetAmount,
		CarriedAmount: s.CarriedAmount,
		DepositRef:    s.DepositRef,
		State:         api.SessionState(s.State),
		OpenedAt:      s.OpenedAt,
		ExpiresAt:     s.ExpiresAt,
		ClosedAt:      s.ClosedAt,
		PayoutRef:     optional(s.PayoutRef),
		LastFailure:   optional(s.LastFailure),
	}
	if s.SettleAttempts > 0 {
		attempts := s.SettleAttempts
		out.SettleAttempts = &attempts
	}
	if s.HeldForReview {
		held := true
		out.HeldForReview = &held
	}
	if s.State == models.SETTLING || s.State == models.SETTLED {
		out.FinalBalance = ptr(s.FinalBalance)
		out.HouseCut = ptr(s.HouseCut)
		out.Payout = ptr(s.Payout)
	}
	return out
}

// ToApiProfile converts an engine Profile to an API Profile.
func ToApiProfile(p *ledger.Profile) api.Profile {
	out := api.Profile{User: ToApiUser(p.User)}
	if p.ActiveSession != nil {
		session := ToApiSession(p.ActiveSession)
		out.ActiveSession = &session
	}
	return out
}

// ToApiDepositResult converts an engine DepositResult to an API DepositResult.
func ToApiDepositResult(r *ledger.DepositResult) api.DepositResult {
	return api.DepositResult{
		Session: ToApiSession(r.Session),
		Balance: r.Balance,
	}
}

// ToApiSettlement converts an engine Settlement to an API Settlement.
func ToApiSettlement(s *ledger.Settlement) api.Settlement {
	return api.Settlement{
		SessionId:    s.Session.ID,
		State:        api.SessionState(s.Session.State),
		FinalBalance: s.FinalBalance,
		HouseCut:     s.HouseCut,
		Payout:       s.Payout,
		PayoutAmount: s.PayoutAmount,
		PayoutRef:    optional(s.PayoutRef),
		Balance:      s.Balance,
	}
}

// ToApiLedgerEntry converts a domain LedgerEntry to an API LedgerEntry.
func ToApiLedgerEntry(entry *models.LedgerEntry) api.LedgerEntry {
	out := api.LedgerEntry{
		EntryId:     optional(entry.EntryID),
		SessionId:   optional(entry.SessionID),
		AccountId:   entry.AccountID,
		Kind:        string(entry.Kind),
		Description: entry.Description,
		Timestamp:   entry.Timestamp,
	}
	if entry.Debit != 0 {
		out.Debit = ptr(entry.Debit)
	}
	if entry.Credit != 0 {
		out.Credit = ptr(entry.Credit)
	}
	return out
}

var ErrBetAmount = errors.New("exactly one of betAmount or betAmountUsd is required")

// ToDomainDepositRequest converts an API NewDeposit into an engine DepositRequest.
// The bet may be given in cents or as a dollar string, but not both.
func ToDomainDepositRequest(userID string, d *api.NewDeposit) (ledger.DepositRequest, error) {
	req := ledger.DepositRequest{
		UserID:        userID,
		DepositRef:    d.DepositRef,
		ClaimedAmount: d.ClaimedAmount,
	}
	switch {
	case d.BetAmount != nil && d.BetAmountUsd == nil:
		req.BetAmount = *d.BetAmount
	case d.BetAmountUsd != nil && d.BetAmount == nil:
		cents, err := ParseUSD(*d.BetAmountUsd)
		if err != nil {
			return ledger.DepositRequest{}, err
		}
		req.BetAmount = cents
	default:
		return ledger.DepositRequest{}, ErrBetAmount
	}
	return req, nil
}

// ToDomainResolution converts an API Resolution into an engine Resolution.
func ToDomainResolution(r *api.Resolution) ledger.Resolution {
	res := ledger.Resolution{Paid: r.Paid, Note: r.Note}
	if r.PayoutRef != nil {
		res.PayoutRef = *r.PayoutRef
	}
	return res
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func ptr(v int64) *int64 {
	return &v
}
