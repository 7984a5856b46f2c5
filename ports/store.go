package ports

import (
	"context"

	"github.com/layer-3/labledger/core"
)

// ChallengeStore hands out single-use, time-boxed nonces
type ChallengeStore interface {
	// Issue creates a challenge for address, replacing any outstanding one.
	Issue(ctx context.Context, address string) (*core.Challenge, error)
	// Consume removes the challenge for address and returns it. The lookup and
	// the removal happen atomically.
	Consume(ctx context.Context, address string) (*core.Challenge, error)
}
