package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"concierge/models"
)

// ErrConversationNotFound is returned for unknown or expired conversation ids.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationStore holds conversations for the lifetime of a widget session.
// Nothing outlives the session: expiry equals the widget going away.
type ConversationStore interface {
	Get(ctx context.Context, id string) (*models.Conversation, error)
	Save(ctx context.Context, conv *models.Conversation) error
	Delete(ctx context.Context, id string) error
}

const conversationKeyPrefix = "assistant:conv:"

// encodeConversation and decodeConversation are the blob codec shared by the
// Redis store. The tagged turn states survive the trip through their
// flag-shaped wire form.
func encodeConversation(conv *models.Conversation) ([]byte, error) {
	return json.Marshal(conv)
}

func decodeConversation(data []byte) (*models.Conversation, error) {
	var conv models.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// RedisConversationStore keeps each conversation as a JSON blob with a
// session TTL. The TTL is refreshed on every save.
type RedisConversationStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisConversationStore(client *redis.Client, ttl time.Duration) *RedisConversationStore {
	return &RedisConversationStore{client: client, ttl: ttl}
}

func (s *RedisConversationStore) Get(ctx context.Context, id string) (*models.Conversation, error) {
	data, err := s.client.Get(ctx, conversationKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeConversation([]byte(data))
}

func (s *RedisConversationStore) Save(ctx context.Context, conv *models.Conversation) error {
	b, err := encodeConversation(conv)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, conversationKeyPrefix+conv.ID, b, s.ttl).Err()
}

func (s *RedisConversationStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, conversationKeyPrefix+id).Err()
}

// MemoryConversationStore is the in-process implementation used in tests and
// single-node deployments without Redis.
type MemoryConversationStore struct {
	mu    sync.RWMutex
	convs map[string]*models.Conversation
}

func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{convs: make(map[string]*models.Conversation)}
}

func (s *MemoryConversationStore) Get(ctx context.Context, id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return copyConversation(conv), nil
}

func (s *MemoryConversationStore) Save(ctx context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ID] = copyConversation(conv)
	return nil
}

func (s *MemoryConversationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, id)
	return nil
}

func copyConversation(conv *models.Conversation) *models.Conversation {
	cp := *conv
	cp.Turns = append([]models.Turn(nil), conv.Turns...)
	return &cp
}
