package store

import (
	"context"
	"sync"

	"github.com/layer-3/labledger/core"
	"github.com/layer-3/labledger/ports"
)

// MemoryStore keeps outstanding challenges in process memory. Expired
// challenges are only dropped when they are consumed or overwritten.
type MemoryStore struct {
	challenges map[string]*core.Challenge
	mu         sync.Mutex
	opts       options
}

// NewMemoryStore creates a new in-memory challenge store
func NewMemoryStore(opts ...Option) ports.ChallengeStore {
	return &MemoryStore{
		challenges: make(map[string]*core.Challenge),
		opts:       newOptions(opts),
	}
}

// Issue stores a new challenge for address, replacing any previous one
func (s *MemoryStore) Issue(ctx context.Context, address string) (*core.Challenge, error) {
	challenge, err := s.opts.newChallenge(address)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[challenge.Address] = challenge
	c := *challenge
	return &c, nil
}

// Consume removes and returns the challenge for address
func (s *MemoryStore) Consume(ctx context.Context, address string) (*core.Challenge, error) {
	key := normalize(address)

	s.mu.Lock()
	challenge, ok := s.challenges[key]
	delete(s.challenges, key)
	s.mu.Unlock()

	if !ok {
		return nil, core.ErrChallengeNotFound
	}
	if challenge.Expired(s.opts.now()) {
		return nil, core.ErrChallengeExpired
	}
	return challenge, nil
}

// Len returns the number of challenges held, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.challenges)
}
