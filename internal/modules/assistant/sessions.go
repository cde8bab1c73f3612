package assistant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sessions owns stored conversations: it loads one, runs a turn under the
// conversation lock and saves the result.
type Sessions struct {
	svc   *Service
	store Store
}

func NewSessions(svc *Service, store Store) *Sessions {
	return &Sessions{svc: svc, store: store}
}

// Start creates an empty conversation for uid. uid may be empty for guests.
func (s *Sessions) Start(ctx context.Context, uid string) (*Conversation, error) {
	now := s.svc.now().UTC()
	conv := &Conversation{
		ID:        uuid.NewString(),
		UID:       uid,
		Turns:     []Turn{},
		Phase:     PhaseGathering,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Get returns the conversation id when uid may see it.
func (s *Sessions) Get(ctx context.Context, id, uid string) (*Conversation, error) {
	conv, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.UID != uid {
		return nil, ErrNotFound
	}
	return conv, nil
}

// Send runs one user message. A second message for the same conversation
// while one is in flight fails with ErrConversationBusy. Failed turns are
// not saved.
func (s *Sessions) Send(ctx context.Context, id, uid, message string) (Outcome, *Conversation, error) {
	unlock, err := s.store.Lock(ctx, id)
	if err != nil {
		return Outcome{}, nil, err
	}
	defer unlock()

	conv, err := s.Get(ctx, id, uid)
	if err != nil {
		return Outcome{}, nil, err
	}

	prev := conv.Phase
	out, err := s.svc.Converse(ctx, conv, message)
	if err != nil {
		return out, conv, err
	}
	// The model has already answered; a client that went away mid-turn
	// must not lose the turn.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := s.store.Save(saveCtx, conv); err != nil {
		return Outcome{Reply: FallbackReply, Phase: prev, Failed: true}, nil, errors.Join(errSaveFailed, err)
	}
	return out, conv, nil
}

const saveTimeout = 5 * time.Second

var errSaveFailed = errors.New("save conversation")
