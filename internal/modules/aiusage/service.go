package aiusage

import (
	"context"
	"errors"
	"time"
)

// Ledger is the persistence the Service needs. *Store is the postgres implementation.
type Ledger interface {
	UseToken(ctx context.Context, uid string) error
	EnsureUser(ctx context.Context, uid string) error
	Remaining(ctx context.Context, uid string) (int, string, error)
}

// Service orchestrates AI token-usage logic. A Service without a ledger
// grants every request.
type Service struct {
	store Ledger
	now   func() time.Time
}

// NewService creates a Service backed by the given Ledger. store may be nil.
func NewService(store Ledger) *Service {
	return &Service{store: store, now: time.Now}
}

// Enabled reports whether usage is metered.
func (s *Service) Enabled() bool {
	return s != nil && s.store != nil
}

// UseToken deducts one token from the user's monthly allowance.
// If the user row does not exist yet it is initialised and the token is immediately consumed.
// Returns ErrInsufficientTokens when the quota for the current month is exhausted.
func (s *Service) UseToken(ctx context.Context, uid string) error {
	if !s.Enabled() || uid == "" {
		return nil
	}
	err := s.store.UseToken(ctx, uid)
	if !errors.Is(err, ErrInsufficientTokens) {
		return err
	}

	// Row may be missing: try to create it, then retry the deduction once.
	if initErr := s.store.EnsureUser(ctx, uid); initErr != nil {
		return initErr
	}
	return s.store.UseToken(ctx, uid)
}

// Usage reports the allowance left this month. Users without a row, and rows
// from a past month, have the full allowance.
func (s *Service) Usage(ctx context.Context, uid string) (Usage, error) {
	month := monthOf(s.now())
	if !s.Enabled() {
		return Usage{UID: uid, Remaining: DefaultTokens, Month: month}, nil
	}
	remaining, lastMonth, err := s.store.Remaining(ctx, uid)
	if errors.Is(err, ErrNoUsage) || (err == nil && lastMonth < month) {
		return Usage{UID: uid, Remaining: DefaultTokens, Month: month}, nil
	}
	if err != nil {
		return Usage{}, err
	}
	return Usage{UID: uid, Remaining: remaining, Month: month}, nil
}
