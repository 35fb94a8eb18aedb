// Package memory is the in-process storage backend. It is the default when no
// durable backend is configured and the backend the engine tests run against.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/storage"
)

// Store implements storage.Storage with maps guarded by a single RWMutex.
// Every method copies records in and out so callers never share memory with the store.
type Store struct {
	mu          sync.RWMutex
	users       map[string]models.User
	sessions    map[string]models.Session
	depositRefs map[string]string
	ledger      []models.LedgerEntry
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:       make(map[string]models.User),
		sessions:    make(map[string]models.Session),
		depositRefs: make(map[string]string),
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

func (s *Store) GetUser(_ context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (s *Store) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return nil, storage.ErrUserExists
	}
	created := *user
	s.users[user.ID] = created
	return &created, nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &sess, nil
}

func (s *Store) ListSessionsByState(_ context.Context, state models.SessionState, openedBy time.Time) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Session
	for _, sess := range s.sessions {
		if sess.State == state && !sess.OpenedAt.After(openedBy) {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

func (s *Store) ListLedgerEntries(_ context.Context, limit int32) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.ledger)
	if limit > 0 && int(limit) < n {
		n = int(limit)
	}
	// Newest first, matching the DynamoDB backend's descending index scan.
	out := make([]models.LedgerEntry, 0, n)
	for i := len(s.ledger) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.ledger[i])
	}
	return out, nil
}

func (s *Store) CommitDeposit(_ context.Context, user *models.User, session *models.Session, entries []models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.depositRefs[session.DepositRef]; ok {
		return storage.ErrDuplicateDepositRef
	}
	stored, ok := s.users[user.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if stored.ActiveSessionID != "" {
		return storage.ErrActiveSession
	}
	if stored.Version != user.Version {
		return storage.ErrVersionConflict
	}
	if _, ok := s.sessions[session.ID]; ok {
		return storage.ErrStateConflict
	}

	user.Version++
	s.users[user.ID] = *user
	s.sessions[session.ID] = *session
	s.depositRefs[session.DepositRef] = session.ID
	s.ledger = append(s.ledger, entries...)
	return nil
}

func (s *Store) BeginSettlement(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkState(session.ID, models.OPEN); err != nil {
		return err
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *Store) RecordSettlementAttempt(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkState(session.ID, models.SETTLING); err != nil {
		return err
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *Store) CompleteSettlement(_ context.Context, user *models.User, session *models.Session, entries []models.LedgerEntry) error {
	return s.closeSession(user, session, entries, models.SETTLING)
}

func (s *Store) AbortSettlement(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkState(session.ID, models.SETTLING); err != nil {
		return err
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *Store) ExpireSession(_ context.Context, user *models.User, session *models.Session, entries []models.LedgerEntry) error {
	return s.closeSession(user, session, entries, models.OPEN)
}

// closeSession writes a terminal session together with its user, the way the
// durable backends do it in one transaction.
func (s *Store) closeSession(user *models.User, session *models.Session, entries []models.LedgerEntry, from models.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkState(session.ID, from); err != nil {
		return err
	}
	stored, ok := s.users[user.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if stored.Version != user.Version {
		return storage.ErrVersionConflict
	}

	user.Version++
	s.users[user.ID] = *user
	s.sessions[session.ID] = *session
	s.ledger = append(s.ledger, entries...)
	return nil
}

func (s *Store) checkState(sessionID string, want models.SessionState) error {
	stored, ok := s.sessions[sessionID]
	if !ok {
		return storage.ErrNotFound
	}
	if stored.State != want {
		return storage.ErrStateConflict
	}
	return nil
}
