package registry

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/labledger/core"
	"github.com/layer-3/labledger/ledger"
	"github.com/layer-3/labledger/ports"
)

// LocalNetwork is the network name reported by the in-process registry
const LocalNetwork = "local"

// LocalRegistry serves the registry from an in-process state machine. Writes
// are confirmed as soon as the machine applies them.
type LocalRegistry struct {
	machine    *ledger.Machine
	deployment core.Deployment
}

var (
	_ ports.Registry         = (*LocalRegistry)(nil)
	_ ports.DeploymentSource = (*LocalRegistry)(nil)
)

// NewLocalRegistry wraps machine. The reported contract addresses are the
// ones a fresh deployer account would get for its first two deployments.
func NewLocalRegistry(machine *ledger.Machine, chainID uint64) *LocalRegistry {
	deployer := common.Address{}
	return &LocalRegistry{
		machine: machine,
		deployment: core.Deployment{
			Network:          LocalNetwork,
			ChainID:          chainID,
			DeployedAt:       time.Now().UTC().Format(time.RFC3339),
			IdentityRegistry: crypto.CreateAddress(deployer, 0),
			EventStorage:     crypto.CreateAddress(deployer, 1),
		},
	}
}

// Deployment returns the synthetic deployment of the in-process registry
func (r *LocalRegistry) Deployment(ctx context.Context) (*core.Deployment, error) {
	d := r.deployment
	return &d, nil
}

func (r *LocalRegistry) Identity(ctx context.Context, account common.Address) (core.Identity, bool, error) {
	identity, ok := r.machine.Identity(account)
	return identity, ok, nil
}

func (r *LocalRegistry) IdentityByMatricula(ctx context.Context, matricula string) (core.Identity, bool, error) {
	identity, ok := r.machine.IdentityByMatricula(matricula)
	return identity, ok, nil
}

func (r *LocalRegistry) Identities(ctx context.Context) ([]core.Identity, error) {
	return r.machine.Identities(), nil
}

func (r *LocalRegistry) Event(ctx context.Context, id uint64) (core.Event, bool, error) {
	event, ok := r.machine.Event(id)
	return event, ok, nil
}

func (r *LocalRegistry) EventsByOwner(ctx context.Context, owner common.Address) ([]core.Event, error) {
	return r.machine.EventsByOwner(owner), nil
}

func (r *LocalRegistry) Events(ctx context.Context) ([]core.Event, error) {
	return r.machine.Events(), nil
}

func (r *LocalRegistry) RegisterIdentity(ctx context.Context, signer common.Address, name, matricula, curso string) (*core.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.machine.RegisterIdentity(signer, name, matricula, curso)
}

func (r *LocalRegistry) UpdateIdentity(ctx context.Context, signer common.Address, name, curso string) (*core.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.machine.UpdateIdentity(signer, name, curso)
}

func (r *LocalRegistry) CreateEvent(ctx context.Context, signer common.Address, title, description string, eventDate uint64) (*core.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.machine.CreateEvent(signer, title, description, eventDate)
}
