package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/labledger/core"
)

const (
	// DefaultChallengeTTL bounds how long an unsigned challenge stays usable
	DefaultChallengeTTL = 5 * time.Minute

	// DefaultChallengePrefix is prepended to the random part of every challenge
	DefaultChallengePrefix = "Assine para entrar no Lab Redes: "

	nonceBytes = 16
)

type options struct {
	now    func() time.Time
	ttl    time.Duration
	prefix string
}

// Option configures a challenge store
type Option func(*options)

// WithClock replaces the time source used for issuing and expiring challenges
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithTTL sets the challenge lifetime
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithPrefix sets the human readable text placed before the random nonce
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

func newOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		ttl:    DefaultChallengeTTL,
		prefix: DefaultChallengePrefix,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// newChallenge builds a fresh challenge for address
func (o options) newChallenge(address string) (*core.Challenge, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := o.now()
	return &core.Challenge{
		Address:   normalize(address),
		Nonce:     o.prefix + hex.EncodeToString(buf),
		IssuedAt:  now,
		ExpiresAt: now.Add(o.ttl),
	}, nil
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
