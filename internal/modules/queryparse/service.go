package queryparse

import (
	"context"
	"time"

	"skyplan/internal/flow"
)

// Service turns free-text search phrases into structured requests.
type Service struct {
	flows flow.Invoker
	now   func() time.Time
}

// NewService creates a Service running flows through inv.
func NewService(inv flow.Invoker) *Service {
	return &Service{flows: inv, now: time.Now}
}

// Parse extracts destination, dates and other details from query.
// Missing fields are not an error.
func (s *Service) Parse(ctx context.Context, query string) (Result, error) {
	return flow.Run[Result](ctx, s.flows, Definition, Request{
		Query: query,
		Today: s.now().Format("Monday, 2 January 2006"),
	})
}
