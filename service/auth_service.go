package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/labledger/core"
	"github.com/layer-3/labledger/internal/eth"
	"github.com/layer-3/labledger/ports"
)

// DefaultSessionTTL is how long a session token is accepted.
const DefaultSessionTTL = time.Hour

// LoginResult is returned to a wallet that proved control of its address
type LoginResult struct {
	Token   string `json:"token"`
	Address string `json:"address"`
	IsAdmin bool   `json:"isAdmin"`
}

// AuthService handles the wallet challenge-response protocol
type AuthService struct {
	challenges ports.ChallengeStore
	tokenizer  ports.Tokenizer
	admins     map[string]struct{}
	log        *slog.Logger

	now        func() time.Time
	sessionTTL time.Duration
}

// AuthOption configures an AuthService
type AuthOption func(*AuthService)

func WithSessionTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) {
		s.sessionTTL = ttl
	}
}

func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		s.now = now
	}
}

func WithAuthLogger(log *slog.Logger) AuthOption {
	return func(s *AuthService) {
		s.log = log
	}
}

// NewAuthService creates a new authentication service. Admin addresses are
// compared case-insensitively.
func NewAuthService(
	challenges ports.ChallengeStore,
	tokenizer ports.Tokenizer,
	admins []string,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		challenges: challenges,
		tokenizer:  tokenizer,
		admins:     make(map[string]struct{}, len(admins)),
		log:        slog.Default(),
		now:        time.Now,
		sessionTTL: DefaultSessionTTL,
	}
	for _, addr := range admins {
		s.admins[strings.ToLower(strings.TrimSpace(addr))] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateChallenge issues a new challenge for address and returns the text the
// wallet has to sign. Any earlier challenge for the address stops working.
func (s *AuthService) CreateChallenge(ctx context.Context, address string) (string, error) {
	normalized, err := eth.NormalizeAddress(address)
	if err != nil {
		return "", err
	}

	challenge, err := s.challenges.Issue(ctx, normalized)
	if err != nil {
		return "", fmt.Errorf("failed to issue challenge: %w", err)
	}

	s.log.Debug("Challenge issued", "address", normalized, "expiresAt", challenge.ExpiresAt)
	return challenge.Nonce, nil
}

// Verify checks signature against the outstanding challenge for address and
// opens a session. The challenge is spent whatever the outcome.
func (s *AuthService) Verify(ctx context.Context, address, signature string) (*LoginResult, error) {
	if strings.TrimSpace(signature) == "" {
		return nil, core.ErrInvalidSignature
	}
	normalized, err := eth.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	challenge, err := s.challenges.Consume(ctx, normalized)
	if err != nil {
		s.log.Info("Challenge rejected", "address", normalized, "err", err)
		return nil, err
	}

	recovered, err := eth.RecoverAddress(challenge.Nonce, signature)
	if err != nil {
		s.log.Info("Signature rejected", "address", normalized, "err", err)
		return nil, err
	}
	if !strings.EqualFold(recovered.Hex(), normalized) {
		s.log.Info("Signature mismatch", "address", normalized, "recovered", recovered.Hex())
		return nil, core.ErrSignatureMismatch
	}

	now := s.now()
	session := &core.Session{
		ID:        uuid.New().String(),
		Address:   normalized,
		IsAdmin:   s.IsAdmin(normalized),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	s.log.Info("Wallet authenticated", "address", normalized, "isAdmin", session.IsAdmin, "session", session.ID)
	return &LoginResult{
		Token:   token,
		Address: normalized,
		IsAdmin: session.IsAdmin,
	}, nil
}

// ValidateToken returns the session a token asserts
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*core.Session, error) {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, err
	}
	if s.now().After(session.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}
	return session, nil
}

// IsAdmin reports whether address is on the admin allow-list
func (s *AuthService) IsAdmin(address string) bool {
	_, ok := s.admins[strings.ToLower(strings.TrimSpace(address))]
	return ok
}
