package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	conversationKeyPrefix = "conv:"
	lockKeyPrefix         = "conv:lock:"
)

// Store keeps conversations between turns and serializes turns per conversation.
type Store interface {
	Load(ctx context.Context, id string) (*Conversation, error)
	Save(ctx context.Context, conv *Conversation) error
	// Lock claims the conversation for one message. It returns
	// ErrConversationBusy when another message holds it.
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// RedisStore keeps conversations as JSON with a sliding TTL.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewRedisStore creates a RedisStore. lockTTL bounds how long a crashed
// request can keep a conversation busy.
func NewRedisStore(client *redis.Client, ttl, lockTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, lockTTL: lockTTL}
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Conversation, error) {
	data, err := s.client.Get(ctx, conversationKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

func (s *RedisStore) Save(ctx context.Context, conv *Conversation) error {
	b, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, conversationKeyPrefix+conv.ID, b, s.ttl).Err()
}

// unlockScript deletes the lock only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *RedisStore) Lock(ctx context.Context, id string) (func(), error) {
	key := lockKeyPrefix + id
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConversationBusy
	}
	return func() {
		// The request context may already be cancelled; release regardless.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = unlockScript.Run(releaseCtx, s.client, []string{key}, token).Err()
	}, nil
}

// MemoryStore is a process-local Store for the CLI and tests.
type MemoryStore struct {
	mu     sync.Mutex
	convs  map[string][]byte
	locked map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string][]byte), locked: make(map[string]bool)}
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*Conversation, error) {
	s.mu.Lock()
	data, ok := s.convs[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *MemoryStore) Save(ctx context.Context, conv *Conversation) error {
	b, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.convs[conv.ID] = b
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Lock(ctx context.Context, id string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked[id] {
		return nil, ErrConversationBusy
	}
	s.locked[id] = true
	return func() {
		s.mu.Lock()
		delete(s.locked, id)
		s.mu.Unlock()
	}, nil
}
