package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"skyplan/internal/flow"
	"skyplan/internal/maps"
	"skyplan/internal/modules/search"
)

// RouteProber looks up ground routes. *maps.RouteService implements it.
type RouteProber interface {
	GroundRoute(ctx context.Context, origin, destination string) (maps.RouteInfo, error)
}

// Service runs the booking assistant flow and advances conversations.
// It holds no conversation state of its own.
type Service struct {
	flows  flow.Invoker
	search search.Provider
	routes RouteProber
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a Service. routes may be nil, which disables route notes.
func NewService(inv flow.Invoker, provider search.Provider, routes RouteProber, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		flows:  inv,
		search: provider,
		routes: routes,
		logger: logger,
		now:    time.Now,
	}
}

// Ask makes one booking assistant call. The completeness flag of the result is
// derived from the extracted details, not taken from the model.
func (s *Service) Ask(ctx context.Context, req Request) (Reply, error) {
	out, err := flow.Run[Reply](ctx, s.flows, Definition, req)
	if err != nil {
		return Reply{}, err
	}

	out.Text = strings.TrimSpace(out.Text)
	if out.Details != nil && out.Details.empty() {
		out.Details = nil
	}
	complete := out.Details != nil && out.Details.Complete()
	if complete != out.Complete {
		s.logger.Debug("overriding model completeness flag",
			zap.Bool("model", out.Complete), zap.Bool("derived", complete))
	}
	out.Complete = complete
	return out, nil
}

// Converse handles one user message. On success the user turn and the final
// assistant reply are appended to conv. On failure conv is left untouched and
// the outcome carries FallbackReply next to the error.
func (s *Service) Converse(ctx context.Context, conv *Conversation, message string) (Outcome, error) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return Outcome{}, &flow.ValidationError{Flow: Definition.Name(), Field: "message", Reason: "must not be empty"}
	}

	turns := cloneTurns(conv.Turns)
	turns = append(turns, Turn{Role: RoleUser, Content: msg})
	history := SerializeHistory(turns)

	gathering := Request{ConversationHistory: history}
	if conv.Details != nil {
		gathering.RouteNotes = s.routeNotes(ctx, *conv.Details)
	}

	gathered, err := s.Ask(ctx, gathering)
	if err != nil {
		return s.fail(conv, "gathering", err)
	}

	out := Outcome{
		Reply:    gathered.Text,
		Phase:    PhaseGathering,
		Complete: gathered.Complete,
		Details:  gathered.Details,
	}

	if gathered.Complete {
		out.SearchQuery = SearchQuery(*gathered.Details)
		flights, err := s.search.Search(ctx, out.SearchQuery)
		if err != nil {
			return s.fail(conv, "search", err)
		}
		if len(flights) == 0 {
			s.logger.Info("no candidate flights", zap.String("conversation_id", conv.ID), zap.String("query", out.SearchQuery))
		} else {
			reply, mismatch, err := s.analyze(ctx, history, gathered, flights)
			if err != nil {
				return s.fail(conv, "analyzing", err)
			}
			out.Reply = reply
			out.Phase = PhaseAnalyzing
			// Flights for another route are neither kept nor summarized.
			if !mismatch {
				picks := search.SelectPicks(flights)
				out.Candidates = flights
				out.Picks = &picks
			}
		}
	}

	conv.Turns = append(turns, Turn{Role: RoleAssistant, Content: out.Reply})
	conv.Phase = out.Phase
	if out.Details != nil {
		conv.Details = out.Details
	}
	conv.SearchQuery = out.SearchQuery
	conv.Candidates = out.Candidates
	conv.UpdatedAt = s.now().UTC()
	return out, nil
}

// analyze runs the second call with the gathering reply in the history and the
// candidates attached. It only starts after the gathering reply was received.
// mismatch reports that the candidates are for a different route.
func (s *Service) analyze(ctx context.Context, history string, gathered Reply, flights []search.Flight) (string, bool, error) {
	encoded, err := EncodeFlights(flights)
	if err != nil {
		return "", false, err
	}

	req := Request{
		ConversationHistory: history + "\n" + string(RoleAssistant) + ": " + gathered.Text,
		AvailableFlights:    encoded,
	}
	notice, mismatch := RouteMismatch(*gathered.Details, flights)
	if mismatch {
		req.RouteMismatch = notice
	} else {
		req.RankingNotes = RankingNotes(flights)
	}

	analyzed, err := s.Ask(ctx, req)
	if err != nil {
		return "", false, err
	}
	if mismatch && !acceptableMismatchReply(analyzed.Text) {
		s.logger.Warn("replacing summary of mismatched flights", zap.String("notice", notice))
		return MismatchReply(notice), true, nil
	}
	return analyzed.Text, mismatch, nil
}

func (s *Service) routeNotes(ctx context.Context, d FlightDetails) string {
	if s.routes == nil || d.Origin == "" || d.Destination == "" {
		return ""
	}
	info, err := s.routes.GroundRoute(ctx, d.Origin, d.Destination)
	if err != nil {
		s.logger.Warn("ground route lookup failed",
			zap.String("origin", d.Origin), zap.String("destination", d.Destination), zap.Error(err))
		return ""
	}
	return info.Notes()
}

func (s *Service) fail(conv *Conversation, stage string, err error) (Outcome, error) {
	s.logger.Error("conversation turn failed",
		zap.String("conversation_id", conv.ID), zap.String("stage", stage), zap.Error(err))
	return Outcome{Reply: FallbackReply, Phase: conv.Phase, Failed: true}, fmt.Errorf("%s: %w", stage, err)
}
