package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/labledger/core"
	"github.com/layer-3/labledger/ports"
)

// recentEvents is how many events the admin summary lists
const recentEvents = 5

// IdentityInput is the user supplied part of an identity
type IdentityInput struct {
	Name      string
	Matricula string
	Curso     string
}

// EventInput is the user supplied part of an event
type EventInput struct {
	Title       string
	Description string
	EventDate   uint64
}

// Profile describes the caller of an authenticated request
type Profile struct {
	Address  string         `json:"address"`
	IsAdmin  bool           `json:"isAdmin"`
	Identity *core.Identity `json:"identity"`
}

// Summary backs the admin dashboard
type Summary struct {
	Identities   int          `json:"identities"`
	Events       int          `json:"events"`
	RecentEvents []core.Event `json:"recentEvents"`
}

// RegistryService exposes registry reads and session-bound writes
type RegistryService struct {
	registry    ports.Registry
	deployments ports.DeploymentSource
	publisher   ports.NotificationPublisher
	log         *slog.Logger

	requireIdentityForEvents bool
}

type RegistryOption func(*RegistryService)

// WithNotifications forwards the notification of every confirmed write to pub.
func WithNotifications(pub ports.NotificationPublisher) RegistryOption {
	return func(s *RegistryService) {
		s.publisher = pub
	}
}

func WithRegistryLogger(log *slog.Logger) RegistryOption {
	return func(s *RegistryService) {
		s.log = log
	}
}

// RequireIdentityForEvents makes CreateEvent fail with core.ErrIdentityRequired
// for signers without a registered identity.
func RequireIdentityForEvents(required bool) RegistryOption {
	return func(s *RegistryService) {
		s.requireIdentityForEvents = required
	}
}

func NewRegistryService(registry ports.Registry, deployments ports.DeploymentSource, opts ...RegistryOption) *RegistryService {
	s := &RegistryService{
		registry:                 registry,
		deployments:              deployments,
		log:                      slog.Default(),
		requireIdentityForEvents: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func parseAddress(address string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return common.Address{}, core.ErrInvalidAddress
	}
	return common.HexToAddress(address), nil
}

func (s *RegistryService) Deployment(ctx context.Context) (*core.Deployment, error) {
	return s.deployments.Deployment(ctx)
}

func (s *RegistryService) Identities(ctx context.Context) ([]core.Identity, error) {
	return s.registry.Identities(ctx)
}

// Identity returns the identity owned by address, or core.ErrIdentityNotFound.
func (s *RegistryService) Identity(ctx context.Context, address string) (*core.Identity, error) {
	account, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	identity, exists, err := s.registry.Identity(ctx, account)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, core.ErrIdentityNotFound
	}
	return &identity, nil
}

func (s *RegistryService) IdentityByMatricula(ctx context.Context, matricula string) (*core.Identity, error) {
	identity, exists, err := s.registry.IdentityByMatricula(ctx, strings.TrimSpace(matricula))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, core.ErrIdentityNotFound
	}
	return &identity, nil
}

// Events lists the events of owner, or every event when owner is empty.
func (s *RegistryService) Events(ctx context.Context, owner string) ([]core.Event, error) {
	if owner == "" {
		return s.registry.Events(ctx)
	}
	account, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	return s.registry.EventsByOwner(ctx, account)
}

// Event returns the event with id. The boolean is false when it does not exist.
func (s *RegistryService) Event(ctx context.Context, id uint64) (*core.Event, bool, error) {
	event, exists, err := s.registry.Event(ctx, id)
	if err != nil || !exists {
		return nil, false, err
	}
	return &event, true, nil
}

func (s *RegistryService) RegisterIdentity(ctx context.Context, signer string, in IdentityInput) (*core.Identity, error) {
	account, err := parseAddress(signer)
	if err != nil {
		return nil, err
	}
	if blank(in.Name, in.Matricula, in.Curso) {
		return nil, fmt.Errorf("%w: name, matricula and curso are required", core.ErrInvalidInput)
	}

	receipt, err := s.registry.RegisterIdentity(ctx, account, strings.TrimSpace(in.Name), strings.TrimSpace(in.Matricula), strings.TrimSpace(in.Curso))
	if err != nil {
		s.log.Info("Identity registration rejected", "account", account.Hex(), "err", err)
		return nil, err
	}
	s.confirmed(ctx, receipt)

	return s.Identity(ctx, account.Hex())
}

func (s *RegistryService) UpdateIdentity(ctx context.Context, signer string, in IdentityInput) (*core.Identity, error) {
	account, err := parseAddress(signer)
	if err != nil {
		return nil, err
	}
	if blank(in.Name, in.Curso) {
		return nil, fmt.Errorf("%w: name and curso are required", core.ErrInvalidInput)
	}

	receipt, err := s.registry.UpdateIdentity(ctx, account, strings.TrimSpace(in.Name), strings.TrimSpace(in.Curso))
	if err != nil {
		s.log.Info("Identity update rejected", "account", account.Hex(), "err", err)
		return nil, err
	}
	s.confirmed(ctx, receipt)

	return s.Identity(ctx, account.Hex())
}

func (s *RegistryService) CreateEvent(ctx context.Context, signer string, in EventInput) (*core.Event, error) {
	owner, err := parseAddress(signer)
	if err != nil {
		return nil, err
	}
	if blank(in.Title) {
		return nil, fmt.Errorf("%w: title is required", core.ErrInvalidInput)
	}

	if s.requireIdentityForEvents {
		_, exists, err := s.registry.Identity(ctx, owner)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, core.ErrIdentityRequired
		}
	}

	receipt, err := s.registry.CreateEvent(ctx, owner, strings.TrimSpace(in.Title), in.Description, in.EventDate)
	if err != nil {
		s.log.Info("Event creation rejected", "owner", owner.Hex(), "err", err)
		return nil, err
	}
	s.confirmed(ctx, receipt)

	event, exists, err := s.registry.Event(ctx, receipt.Notification.EventID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("event %d missing after confirmation", receipt.Notification.EventID)
	}
	return &event, nil
}

// Profile describes session, including its identity when one is registered.
func (s *RegistryService) Profile(ctx context.Context, session *core.Session) (*Profile, error) {
	p := &Profile{Address: session.Address, IsAdmin: session.IsAdmin}

	identity, err := s.Identity(ctx, session.Address)
	switch {
	case err == nil:
		p.Identity = identity
	case !errors.Is(err, core.ErrIdentityNotFound):
		return nil, err
	}
	return p, nil
}

// Summary counts identities and events and lists the newest events first.
func (s *RegistryService) Summary(ctx context.Context) (*Summary, error) {
	identities, err := s.registry.Identities(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.registry.Events(ctx)
	if err != nil {
		return nil, err
	}

	recent := make([]core.Event, 0, recentEvents)
	for i := len(events) - 1; i >= 0 && len(recent) < recentEvents; i-- {
		recent = append(recent, events[i])
	}

	return &Summary{
		Identities:   len(identities),
		Events:       len(events),
		RecentEvents: recent,
	}, nil
}

func (s *RegistryService) confirmed(ctx context.Context, receipt *core.Receipt) {
	n := receipt.Notification
	s.log.Info("Registry write confirmed",
		"kind", n.Kind,
		"account", n.Account.Hex(),
		"tx", receipt.TxHash.Hex(),
	)

	if s.publisher == nil {
		return
	}
	// the write is final; a lost notification must not fail the request
	if err := s.publisher.PublishNotification(context.WithoutCancel(ctx), n); err != nil {
		s.log.Warn("Failed to publish notification", "kind", n.Kind, "tx", receipt.TxHash.Hex(), "err", err)
	}
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
