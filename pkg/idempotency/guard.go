// Package idempotency guards deposit references so a transfer is credited at most once.
package idempotency

import (
	"context"
	"sync"
)

// Guard is an atomic check-and-reserve set of references.
type Guard interface {
	// Reserve claims ref. It returns false if ref is already reserved or consumed.
	Reserve(ctx context.Context, ref string) (bool, error)
	// Commit marks a reserved ref as permanently consumed.
	Commit(ctx context.Context, ref string) error
	// Release drops a reservation that did not lead to a credit. Consumed refs stay consumed.
	Release(ctx context.Context, ref string) error
}

type refState int

const (
	reserved refState = iota + 1
	consumed
)

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	mu   sync.Mutex
	refs map[string]refState
}

// NewMemoryGuard creates an empty MemoryGuard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{refs: make(map[string]refState)}
}

var _ Guard = (*MemoryGuard)(nil)

func (g *MemoryGuard) Reserve(_ context.Context, ref string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, taken := g.refs[ref]; taken {
		return false, nil
	}
	g.refs[ref] = reserved
	return true, nil
}

func (g *MemoryGuard) Commit(_ context.Context, ref string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.refs[ref] = consumed
	return nil
}

func (g *MemoryGuard) Release(_ context.Context, ref string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.refs[ref] == reserved {
		delete(g.refs, ref)
	}
	return nil
}
