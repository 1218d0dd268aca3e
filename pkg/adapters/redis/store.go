package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "sessiontable:session:"

// Store implements ports.SessionStore using Redis.
//
// Each payload lives at <prefix>s:<sessionID> with no native TTL; the sorted set <prefix>idx
// scores every session by its expiresAt (epoch ms) and drives Length and Cleanup.
// Payload keys and the index never share a namespace, whatever the session ID.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    ports.Clock
}

var _ ports.SessionStore = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithDefaultTTL sets the lifetime used when a payload carries no max-age hint.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithClock overrides time.Now.
func WithClock(clock ports.Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    domain.DefaultTTL,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

const (
	dataSegment  = "s:"
	indexSegment = "idx"
)

func (s *Store) dataPrefix() string {
	return s.prefix + dataSegment
}

func (s *Store) key(sessionID string) string {
	return s.dataPrefix() + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + indexSegment
}

// touchScript moves the index score only when the payload key exists.
var touchScript = backend.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	redis.call("ZADD", KEYS[2], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

// cleanupScript deletes every member scored strictly below ARGV[1].
var cleanupScript = backend.NewScript(`
local ids = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", "(" .. ARGV[1])
for _, id in ipairs(ids) do
	redis.call("DEL", ARGV[2] .. id)
end
if #ids > 0 then
	redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", "(" .. ARGV[1])
end
return #ids
`)

// clearScript deletes every indexed payload and the index itself.
var clearScript = backend.NewScript(`
local ids = redis.call("ZRANGE", KEYS[1], 0, -1)
for _, id in ipairs(ids) do
	redis.call("DEL", ARGV[1] .. id)
end
redis.call("DEL", KEYS[1])
return #ids
`)

// Get retrieves the payload from Redis.
func (s *Store) Get(ctx context.Context, sessionID string) (domain.Payload, error) {
	if err := domain.ValidateID(sessionID); err != nil {
		return nil, domain.NewError("get", domain.KindInvalidArgument, err)
	}

	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, nil
		}
		return nil, domain.NewError("get", domain.KindStorage, err)
	}

	payload, err := domain.UnmarshalPayload([]byte(val))
	if err != nil {
		return nil, domain.NewError("get", domain.KindSerialization, err)
	}
	return payload, nil
}

// Set writes the payload and its index entry in one MULTI/EXEC.
func (s *Store) Set(ctx context.Context, sessionID string, payload domain.Payload) error {
	if err := domain.ValidateID(sessionID); err != nil {
		return domain.NewError("set", domain.KindInvalidArgument, err)
	}
	if err := payload.Validate(); err != nil {
		return domain.NewError("set", domain.KindInvalidArgument, err)
	}

	expiresAt, err := payload.ExpiresAt(s.now(), s.ttl)
	if err != nil {
		return domain.NewError("set", domain.KindInvalidArgument, err)
	}

	data, err := payload.Marshal()
	if err != nil {
		return domain.NewError("set", domain.KindSerialization, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(sessionID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(expiresAt),
		Member: sessionID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return domain.NewError("set", domain.KindStorage, err)
	}
	return nil
}

// Destroy removes the session and its index entry.
func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	if err := domain.ValidateID(sessionID); err != nil {
		return domain.NewError("destroy", domain.KindInvalidArgument, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return domain.NewError("destroy", domain.KindStorage, err)
	}
	return nil
}

// All loads every indexed payload with a single MGET.
func (s *Store) All(ctx context.Context) ([]domain.Payload, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, domain.NewError("all", domain.KindStorage, err)
	}

	payloads := make([]domain.Payload, 0, len(ids))
	if len(ids) == 0 {
		return payloads, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, domain.NewError("all", domain.KindStorage, err)
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a payload (deleted behind our back).
			continue
		}
		payload, err := domain.UnmarshalPayload([]byte(raw))
		if err != nil {
			return nil, domain.NewError("all", domain.KindSerialization, err)
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

// Length returns the size of the index.
func (s *Store) Length(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, domain.NewError("length", domain.KindStorage, err)
	}
	return int(n), nil
}

// Clear removes every session under the prefix's index.
func (s *Store) Clear(ctx context.Context) error {
	if err := clearScript.Run(ctx, s.client, []string{s.indexKey()}, s.dataPrefix()).Err(); err != nil {
		return domain.NewError("clear", domain.KindStorage, err)
	}
	return nil
}

// Touch moves the index score of an existing session; the payload is left alone.
func (s *Store) Touch(ctx context.Context, sessionID string, payload domain.Payload) error {
	if err := domain.ValidateID(sessionID); err != nil {
		return domain.NewError("touch", domain.KindInvalidArgument, err)
	}
	if err := payload.Validate(); err != nil {
		return domain.NewError("touch", domain.KindInvalidArgument, err)
	}

	expiresAt, err := payload.ExpiresAt(s.now(), s.ttl)
	if err != nil {
		return domain.NewError("touch", domain.KindInvalidArgument, err)
	}

	keys := []string{s.key(sessionID), s.indexKey()}
	if err := touchScript.Run(ctx, s.client, keys, expiresAt, sessionID).Err(); err != nil {
		return domain.NewError("touch", domain.KindStorage, err)
	}
	return nil
}

// Cleanup removes sessions scored strictly before now.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	now := s.now().UnixMilli()
	n, err := cleanupScript.Run(ctx, s.client, []string{s.indexKey()}, now, s.dataPrefix()).Int64()
	if err != nil {
		return 0, domain.NewError("cleanup", domain.KindStorage, err)
	}
	return n, nil
}

// Ping checks that the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return domain.NewError("init", domain.KindInitialization, fmt.Errorf("redis ping: %w", err))
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
