package core

import "errors"

// Registry state invariants. These are raised by the registry state machine
// and must reach the caller unchanged.
var (
	ErrIdentityAlreadyExists = errors.New("identity already exists")
	ErrMatriculaAlreadyInUse = errors.New("matricula already in use")
	ErrIdentityNotFound      = errors.New("identity not found")
)

// Authentication protocol violations. A client recovers from any of them by
// requesting a new challenge.
var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrSignatureMismatch = errors.New("signature does not match address")
)

// Request validation.
var (
	ErrInvalidAddress   = errors.New("invalid ethereum address")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token has expired")
	ErrInvalidInput     = errors.New("invalid input")
)

// Gateway policy.
var (
	ErrIdentityRequired  = errors.New("a registered identity is required")
	ErrSignerUnavailable = errors.New("no signing key for address")
)

// Infrastructure. ErrWriteUnconfirmed means a transaction was sent but no
// receipt was seen in time; it may still be mined.
var (
	ErrRegistryNotDeployed = errors.New("registry contracts not deployed")
	ErrLedgerUnavailable   = errors.New("ledger unavailable")
	ErrTransactionReverted = errors.New("transaction reverted")
	ErrWriteUnconfirmed    = errors.New("write sent but not confirmed")
)
