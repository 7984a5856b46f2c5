package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/labledger/core"
	"github.com/layer-3/labledger/ports"
	"github.com/redis/go-redis/v9"
)

// expiredRetention keeps a challenge key around after it expires so that a
// late verification reports ErrChallengeExpired instead of ErrChallengeNotFound
const expiredRetention = time.Hour

// RedisStore shares outstanding challenges between gateway instances
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	opts   options
}

type redisChallenge struct {
	Nonce     string    `json:"nonce"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewRedisStore creates a new Redis challenge store
func NewRedisStore(client redis.UniversalClient, opts ...Option) ports.ChallengeStore {
	return &RedisStore{
		client: client,
		prefix: "labledger:challenge:",
		opts:   newOptions(opts),
	}
}

// Issue stores a new challenge for address, replacing any previous one
func (s *RedisStore) Issue(ctx context.Context, address string) (*core.Challenge, error) {
	challenge, err := s.opts.newChallenge(address)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(redisChallenge{
		Nonce:     challenge.Nonce,
		IssuedAt:  challenge.IssuedAt,
		ExpiresAt: challenge.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal challenge: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+challenge.Address, payload, s.opts.ttl+expiredRetention).Err(); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	return challenge, nil
}

// Consume removes and returns the challenge for address. GETDEL makes the
// read and the removal a single step.
func (s *RedisStore) Consume(ctx context.Context, address string) (*core.Challenge, error) {
	key := normalize(address)

	raw, err := s.client.GetDel(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to consume challenge: %w", err)
	}

	var stored redisChallenge
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	challenge := &core.Challenge{
		Address:   key,
		Nonce:     stored.Nonce,
		IssuedAt:  stored.IssuedAt,
		ExpiresAt: stored.ExpiresAt,
	}
	if challenge.Expired(s.opts.now()) {
		return nil, core.ErrChallengeExpired
	}
	return challenge, nil
}
