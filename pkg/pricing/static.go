package pricing

import (
	"context"
	"time"
)

// Static always returns the same ratio. It is meant for local development and tests;
// production wiring uses Feed.
type Static struct {
	quote Quote
}

// NewStatic creates a Static source. The quote must be valid.
func NewStatic(q Quote) (*Static, error) {
	if err := q.Valid(); err != nil {
		return nil, err
	}
	return &Static{quote: q}, nil
}

// Quote returns the configured ratio stamped with the current time.
func (s *Static) Quote(_ context.Context) (Quote, error) {
	q := s.quote
	q.AsOf = time.Now()
	return q, nil
}
