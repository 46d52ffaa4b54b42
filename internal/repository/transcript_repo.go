package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/cseasy-api/pkg/ai"
)

// TranscriptRepository keeps the most recent chat turns per conversation.
type TranscriptRepository interface {
	Load(ctx context.Context, conversationID string) ([]ai.ChatTurn, error)
	Append(ctx context.Context, conversationID string, turns ...ai.ChatTurn) error
	Reset(ctx context.Context, conversationID string) error
}

type memoryTranscriptRepository struct {
	mu       sync.Mutex
	maxTurns int
	items    map[string][]ai.ChatTurn
}

// NewMemoryTranscriptRepository keeps transcripts in process, bounded to maxTurns.
func NewMemoryTranscriptRepository(maxTurns int) TranscriptRepository {
	return &memoryTranscriptRepository{maxTurns: maxTurns, items: make(map[string][]ai.ChatTurn)}
}

func (r *memoryTranscriptRepository) Load(ctx context.Context, conversationID string) ([]ai.ChatTurn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ai.ChatTurn{}, r.items[conversationID]...), nil
}

func (r *memoryTranscriptRepository) Append(ctx context.Context, conversationID string, turns ...ai.ChatTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := append(append([]ai.ChatTurn{}, r.items[conversationID]...), turns...)
	if r.maxTurns > 0 && len(updated) > r.maxTurns {
		updated = updated[len(updated)-r.maxTurns:]
	}
	r.items[conversationID] = updated
	return nil
}

func (r *memoryTranscriptRepository) Reset(ctx context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, conversationID)
	return nil
}

type redisTranscriptRepository struct {
	client   *redis.Client
	prefix   string
	maxTurns int
	ttl      time.Duration
}

// NewRedisTranscriptRepository stores transcripts as capped redis lists.
func NewRedisTranscriptRepository(client *redis.Client, prefix string, maxTurns int, ttl time.Duration) TranscriptRepository {
	if prefix == "" {
		prefix = "chat:transcript"
	}
	return &redisTranscriptRepository{client: client, prefix: prefix, maxTurns: maxTurns, ttl: ttl}
}

func (r *redisTranscriptRepository) key(conversationID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, conversationID)
}

func (r *redisTranscriptRepository) Load(ctx context.Context, conversationID string) ([]ai.ChatTurn, error) {
	values, err := r.client.LRange(ctx, r.key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	turns := make([]ai.ChatTurn, 0, len(values))
	for _, value := range values {
		var turn ai.ChatTurn
		if err := json.Unmarshal([]byte(value), &turn); err != nil {
			return nil, fmt.Errorf("decode chat turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (r *redisTranscriptRepository) Append(ctx context.Context, conversationID string, turns ...ai.ChatTurn) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		payload, err := json.Marshal(turn)
		if err != nil {
			return err
		}
		values = append(values, payload)
	}

	key := r.key(conversationID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if r.maxTurns > 0 {
		pipe.LTrim(ctx, key, int64(-r.maxTurns), -1)
	}
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisTranscriptRepository) Reset(ctx context.Context, conversationID string) error {
	return r.client.Del(ctx, r.key(conversationID)).Err()
}
