package itinerary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"skyplan/internal/flow"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 20

// Repository persists generated itineraries. *Store is the postgres implementation.
type Repository interface {
	Create(ctx context.Context, it *Itinerary) error
	ListByUser(ctx context.Context, uid string, limit int) ([]Itinerary, error)
	Get(ctx context.Context, uid, id string) (Itinerary, error)
}

// Service generates itineraries and keeps them for signed-in users.
type Service struct {
	flows  flow.Invoker
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a Service. repo may be nil, which disables saving.
func NewService(inv flow.Invoker, repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{flows: inv, repo: repo, logger: logger, now: time.Now}
}

// Saving reports whether generated itineraries are persisted.
func (s *Service) Saving() bool {
	return s.repo != nil
}

// Generate runs the itinerary flow. A non-empty uid saves the result when a
// repository is configured; a failed save is logged and the itinerary is still returned.
func (s *Service) Generate(ctx context.Context, uid string, prefs Preferences) (Itinerary, error) {
	out, err := flow.Run[generated](ctx, s.flows, Definition, prefs)
	if err != nil {
		return Itinerary{}, err
	}

	it := Itinerary{
		UID:         uid,
		Preferences: prefs,
		Text:        strings.TrimSpace(out.Itinerary),
		CreatedAt:   s.now().UTC(),
	}
	if uid == "" || s.repo == nil {
		return it, nil
	}
	if err := s.repo.Create(ctx, &it); err != nil {
		s.logger.Warn("save itinerary", zap.String("uid", uid), zap.Error(err))
	}
	return it, nil
}

// List returns the saved itineraries of uid, newest first.
func (s *Service) List(ctx context.Context, uid string, limit int) ([]Itinerary, error) {
	if s.repo == nil {
		return nil, nil
	}
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	items, err := s.repo.ListByUser(ctx, uid, limit)
	if err != nil {
		return nil, fmt.Errorf("list itineraries: %w", err)
	}
	return items, nil
}

// Get returns one saved itinerary of uid.
func (s *Service) Get(ctx context.Context, uid, id string) (Itinerary, error) {
	if s.repo == nil {
		return Itinerary{}, ErrNotFound
	}
	return s.repo.Get(ctx, uid, id)
}
