package service

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"testing"
	"time"

	"github.com/layer-3/labledger/adapters/store"
	"github.com/layer-3/labledger/adapters/tokenizer"
	"github.com/layer-3/labledger/core"
	"github.com/layer-3/labledger/internal/eth"
	"github.com/layer-3/labledger/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceKeyHex = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	aliceHex    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	bobKeyHex   = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	bobHex      = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func mustKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	t.Helper()
	key, err := eth.ParsePrivateKey(hexKey)
	require.NoError(t, err)
	return key
}

func sign(t *testing.T, hexKey, message string) string {
	t.Helper()
	sig, err := eth.SignText(mustKey(t, hexKey), message)
	require.NoError(t, err)
	return sig
}

func newTestAuth(t *testing.T, admins ...string) (*AuthService, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Unix(1700000000, 0)}
	challenges := store.NewMemoryStore(store.WithClock(clock.Now))
	tokens := tokenizer.NewJWTTokenizerWithClock([]byte("test-secret"), clock.Now)

	auth := NewAuthService(challenges, tokens, admins,
		WithAuthClock(clock.Now),
		WithAuthLogger(logging.Discard()),
	)
	return auth, clock
}

func TestVerifyOpensSession(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth(t, strings.ToUpper(aliceHex))

	nonce, err := auth.CreateChallenge(ctx, aliceHex)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(nonce, store.DefaultChallengePrefix))

	result, err := auth.Verify(ctx, aliceHex, sign(t, aliceKeyHex, nonce))
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(aliceHex), result.Address)
	assert.True(t, result.IsAdmin)

	session, err := auth.ValidateToken(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(aliceHex), session.Address)
	assert.True(t, session.IsAdmin)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, time.Hour, session.ExpiresAt.Sub(session.IssuedAt))
}

func TestVerifyNonAdmin(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth(t, aliceHex)

	nonce, err := auth.CreateChallenge(ctx, bobHex)
	require.NoError(t, err)

	result, err := auth.Verify(ctx, bobHex, sign(t, bobKeyHex, nonce))
	require.NoError(t, err)
	assert.False(t, result.IsAdmin)
	assert.False(t, auth.IsAdmin(bobHex))
	assert.True(t, auth.IsAdmin(strings.ToUpper(aliceHex)))
}

func TestVerifyReplayFails(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth(t)

	nonce, err := auth.CreateChallenge(ctx, aliceHex)
	require.NoError(t, err)
	sig := sign(t, aliceKeyHex, nonce)

	_, err = auth.Verify(ctx, aliceHex, sig)
	require.NoError(t, err)

	_, err = auth.Verify(ctx, aliceHex, sig)
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestVerifyOnlyLatestChallenge(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth(t)

	first, err := auth.CreateChallenge(ctx, aliceHex)
	require.NoError(t, err)
	second, err := auth.CreateChallenge(ctx, aliceHex)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = auth.Verify(ctx, aliceHex, sign(t, aliceKeyHex, first))
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)

	// the failed attempt spent the second challenge too
	_, err = auth.Verify(ctx, aliceHex, sign(t, aliceKeyHex, second))
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestVerifyExpiredChallenge(t *testing.T) {
	ctx := context.Background()
	auth, clock := newTestAuth(t)

	nonce, err := auth.CreateChallenge(ctx, aliceHex)
	require.NoError(t, err)

	clock.Advance(store.DefaultChallengeTTL + time.Second)
	_, err = auth.Verify(ctx, aliceHex, sign(t, aliceKeyHex, nonce))
	assert.ErrorIs(t, err, core.ErrChallengeExpired)

	_, err = auth.Verify(ctx, aliceHex, sign(t, aliceKeyHex, nonce))
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestVerifyRejectsOtherSigner(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth(t)

	nonce, err := auth.CreateChallenge(ctx, aliceHex)
	require.NoError(t, err)

	_, err = auth.Verify(ctx, aliceHex, sign(t, bobKeyHex, nonce))
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)
}

func TestVerifyValidation(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuth(t)

	_, err := auth.CreateChallenge(ctx, "not-an-address")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)

	_, err = auth.Verify(ctx, aliceHex, "")
	assert.ErrorIs(t, err, core.ErrInvalidSignature)

	_, err = auth.Verify(ctx, "", "0x00")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)

	_, err = auth.CreateChallenge(ctx, aliceHex)
	require.NoError(t, err)
	_, err = auth.Verify(ctx, aliceHex, "0x1234")
	assert.ErrorIs(t, err, core.ErrInvalidSignature)

	// undecodable signatures still spend the challenge
	_, err = auth.Verify(ctx, aliceHex, "0x1234")
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestValidateTokenExpiry(t *testing.T) {
	ctx := context.Background()
	auth, clock := newTestAuth(t)

	nonce, err := auth.CreateChallenge(ctx, aliceHex)
	require.NoError(t, err)
	result, err := auth.Verify(ctx, aliceHex, sign(t, aliceKeyHex, nonce))
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	_, err = auth.ValidateToken(ctx, result.Token)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = auth.ValidateToken(ctx, result.Token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)

	_, err = auth.ValidateToken(ctx, "garbage")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
