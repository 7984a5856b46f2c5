package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/labledger/core"
)

// RegistryReader queries registry state. Reads never mutate state and never
// wait for confirmation.
type RegistryReader interface {
	Identity(ctx context.Context, account common.Address) (core.Identity, bool, error)
	IdentityByMatricula(ctx context.Context, matricula string) (core.Identity, bool, error)
	Identities(ctx context.Context) ([]core.Identity, error)
	Event(ctx context.Context, id uint64) (core.Event, bool, error)
	EventsByOwner(ctx context.Context, owner common.Address) ([]core.Event, error)
	Events(ctx context.Context) ([]core.Event, error)
}

// RegistryWriter submits registry writes on behalf of signer and blocks until
// they are confirmed. State machine failures are returned unmodified.
type RegistryWriter interface {
	RegisterIdentity(ctx context.Context, signer common.Address, name, matricula, curso string) (*core.Receipt, error)
	UpdateIdentity(ctx context.Context, signer common.Address, name, curso string) (*core.Receipt, error)
	CreateEvent(ctx context.Context, signer common.Address, title, description string, eventDate uint64) (*core.Receipt, error)
}

// Registry is the full reader/writer adapter.
type Registry interface {
	RegistryReader
	RegistryWriter
}

// DeploymentSource reports where the registry lives. It returns
// core.ErrRegistryNotDeployed until the contracts exist.
type DeploymentSource interface {
	Deployment(ctx context.Context) (*core.Deployment, error)
}
