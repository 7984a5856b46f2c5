package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/layer-3/labledger/core"
	"github.com/layer-3/labledger/ports"
)

// Backend is what the onchain registry needs from an Ethereum client.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// OnchainRegistry talks to the IdentityRegistry and EventStorage contracts.
// Contract addresses are resolved through the deployment source on every
// call, so the registry starts answering as soon as the contracts are deployed.
type OnchainRegistry struct {
	backend     Backend
	deployments ports.DeploymentSource
	signers     Signers

	confirmTimeout time.Duration

	mu    sync.Mutex
	bound *boundContracts
}

type boundContracts struct {
	identityAddr common.Address
	eventAddr    common.Address
	identity     *bind.BoundContract
	events       *bind.BoundContract
}

var _ ports.Registry = (*OnchainRegistry)(nil)

// DefaultConfirmTimeout bounds the wait for a sent transaction to be mined.
const DefaultConfirmTimeout = 2 * time.Minute

// OnchainOption configures an OnchainRegistry.
type OnchainOption func(*OnchainRegistry)

// WithConfirmTimeout sets how long a write waits for its receipt once the
// transaction has been sent.
func WithConfirmTimeout(d time.Duration) OnchainOption {
	return func(r *OnchainRegistry) {
		r.confirmTimeout = d
	}
}

// NewOnchainRegistry creates a registry adapter. signers may be nil, in which
// case every write fails with core.ErrSignerUnavailable.
func NewOnchainRegistry(backend Backend, deployments ports.DeploymentSource, signers Signers, opts ...OnchainOption) *OnchainRegistry {
	r := &OnchainRegistry{
		backend:        backend,
		deployments:    deployments,
		signers:        signers,
		confirmTimeout: DefaultConfirmTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *OnchainRegistry) contracts(ctx context.Context) (*boundContracts, error) {
	d, err := r.deployments.Deployment(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bound != nil && r.bound.identityAddr == d.IdentityRegistry && r.bound.eventAddr == d.EventStorage {
		return r.bound, nil
	}

	r.bound = &boundContracts{
		identityAddr: d.IdentityRegistry,
		eventAddr:    d.EventStorage,
		identity:     bind.NewBoundContract(d.IdentityRegistry, identityABI, r.backend, r.backend, r.backend),
		events:       bind.NewBoundContract(d.EventStorage, eventABI, r.backend, r.backend, r.backend),
	}
	return r.bound, nil
}

func (r *OnchainRegistry) Identity(ctx context.Context, account common.Address) (core.Identity, bool, error) {
	c, err := r.contracts(ctx)
	if err != nil {
		return core.Identity{}, false, err
	}

	var out []interface{}
	if err := c.identity.Call(&bind.CallOpts{Context: ctx}, &out, "getIdentity", account); err != nil {
		return core.Identity{}, false, callError("getIdentity", identityABI, err)
	}

	tuple := *abi.ConvertType(out[0], new(identityTuple)).(*identityTuple)
	exists := *abi.ConvertType(out[1], new(bool)).(*bool)
	return tuple.toCore(), exists, nil
}

func (r *OnchainRegistry) IdentityByMatricula(ctx context.Context, matricula string) (core.Identity, bool, error) {
	c, err := r.contracts(ctx)
	if err != nil {
		return core.Identity{}, false, err
	}

	var out []interface{}
	if err := c.identity.Call(&bind.CallOpts{Context: ctx}, &out, "getIdentityByMatricula", matricula); err != nil {
		return core.Identity{}, false, callError("getIdentityByMatricula", identityABI, err)
	}

	tuple := *abi.ConvertType(out[0], new(identityTuple)).(*identityTuple)
	exists := *abi.ConvertType(out[1], new(bool)).(*bool)
	if tuple.Account == (common.Address{}) {
		exists = false
	}
	return tuple.toCore(), exists, nil
}

func (r *OnchainRegistry) Identities(ctx context.Context) ([]core.Identity, error) {
	c, err := r.contracts(ctx)
	if err != nil {
		return nil, err
	}

	var out []interface{}
	if err := c.identity.Call(&bind.CallOpts{Context: ctx}, &out, "getAllIdentities"); err != nil {
		return nil, callError("getAllIdentities", identityABI, err)
	}

	tuples := *abi.ConvertType(out[0], new([]identityTuple)).(*[]identityTuple)
	identities := make([]core.Identity, 0, len(tuples))
	for _, t := range tuples {
		identities = append(identities, t.toCore())
	}
	return identities, nil
}

func (r *OnchainRegistry) Event(ctx context.Context, id uint64) (core.Event, bool, error) {
	c, err := r.contracts(ctx)
	if err != nil {
		return core.Event{}, false, err
	}

	var out []interface{}
	if err := c.events.Call(&bind.CallOpts{Context: ctx}, &out, "getEvent", new(big.Int).SetUint64(id)); err != nil {
		return core.Event{}, false, callError("getEvent", eventABI, err)
	}

	tuple := *abi.ConvertType(out[0], new(eventTuple)).(*eventTuple)
	exists := *abi.ConvertType(out[1], new(bool)).(*bool)
	return tuple.toCore(), exists, nil
}

func (r *OnchainRegistry) EventsByOwner(ctx context.Context, owner common.Address) ([]core.Event, error) {
	c, err := r.contracts(ctx)
	if err != nil {
		return nil, err
	}

	var out []interface{}
	if err := c.events.Call(&bind.CallOpts{Context: ctx}, &out, "getEventsByOwner", owner); err != nil {
		return nil, callError("getEventsByOwner", eventABI, err)
	}
	return eventsFromOutput(out), nil
}

func (r *OnchainRegistry) Events(ctx context.Context) ([]core.Event, error) {
	c, err := r.contracts(ctx)
	if err != nil {
		return nil, err
	}

	var out []interface{}
	if err := c.events.Call(&bind.CallOpts{Context: ctx}, &out, "getAllEvents"); err != nil {
		return nil, callError("getAllEvents", eventABI, err)
	}
	return eventsFromOutput(out), nil
}

func eventsFromOutput(out []interface{}) []core.Event {
	tuples := *abi.ConvertType(out[0], new([]eventTuple)).(*[]eventTuple)
	events := make([]core.Event, 0, len(tuples))
	for _, t := range tuples {
		events = append(events, t.toCore())
	}
	return events
}

func (r *OnchainRegistry) RegisterIdentity(ctx context.Context, signer common.Address, name, matricula, curso string) (*core.Receipt, error) {
	c, err := r.contracts(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := r.transact(ctx, c.identity, identityABI, signer, "registerIdentity", name, matricula, curso)
	if err != nil {
		return nil, err
	}
	return identityReceipt(c, receipt, "IdentityRegistered", core.IdentityRegistered)
}

func (r *OnchainRegistry) UpdateIdentity(ctx context.Context, signer common.Address, name, curso string) (*core.Receipt, error) {
	c, err := r.contracts(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := r.transact(ctx, c.identity, identityABI, signer, "updateIdentity", name, curso)
	if err != nil {
		return nil, err
	}
	return identityReceipt(c, receipt, "IdentityUpdated", core.IdentityUpdated)
}

func (r *OnchainRegistry) CreateEvent(ctx context.Context, signer common.Address, title, description string, eventDate uint64) (*core.Receipt, error) {
	c, err := r.contracts(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := r.transact(ctx, c.events, eventABI, signer, "createEvent", title, description, new(big.Int).SetUint64(eventDate))
	if err != nil {
		return nil, err
	}

	for _, l := range receipt.Logs {
		if l.Address != c.eventAddr {
			continue
		}
		var ev eventCreatedLog
		if err := c.events.UnpackLog(&ev, "EventCreated", *l); err != nil {
			continue
		}
		return &core.Receipt{
			TxHash: receipt.TxHash,
			Notification: core.Notification{
				Kind:    core.EventCreated,
				Account: ev.Owner,
				EventID: toUint64(ev.Id),
				Title:   ev.Title,
			},
		}, nil
	}
	return nil, fmt.Errorf("createEvent %s: EventCreated log missing", receipt.TxHash.Hex())
}

func identityReceipt(c *boundContracts, receipt *types.Receipt, event string, kind core.NotificationKind) (*core.Receipt, error) {
	for _, l := range receipt.Logs {
		if l.Address != c.identityAddr {
			continue
		}
		var ev identityLog
		if err := c.identity.UnpackLog(&ev, event, *l); err != nil {
			continue
		}
		return &core.Receipt{
			TxHash: receipt.TxHash,
			Notification: core.Notification{
				Kind:      kind,
				Account:   ev.Account,
				Matricula: ev.Matricula,
				Name:      ev.Name,
			},
		}, nil
	}
	return nil, fmt.Errorf("%s log missing in %s", event, receipt.TxHash.Hex())
}

// transact simulates the call from signer first, so a revert comes back with
// its custom error data intact, then sends it and waits for the receipt.
// Once sent, the transaction may land whatever the caller does, so the wait
// is detached from ctx cancellation and bounded by confirmTimeout instead.
func (r *OnchainRegistry) transact(ctx context.Context, contract *bind.BoundContract, contractABI abi.ABI, signer common.Address, method string, args ...interface{}) (*types.Receipt, error) {
	if r.signers == nil {
		return nil, fmt.Errorf("%w %s", core.ErrSignerUnavailable, signer.Hex())
	}
	opts, err := r.signers.TransactOpts(ctx, signer)
	if err != nil {
		return nil, err
	}

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx, From: signer}, &out, method, args...); err != nil {
		return nil, callError(method, contractABI, err)
	}

	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		return nil, callError(method, contractABI, err)
	}

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, r.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s sent as %s: %w", core.ErrWriteUnconfirmed, method, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s %s", core.ErrTransactionReverted, method, tx.Hash().Hex())
	}
	return receipt, nil
}

// callError classifies an error from a contract call. Custom error reverts
// map onto registry sentinels, anything else is an infrastructure failure.
func callError(method string, contractABI abi.ABI, err error) error {
	if errors.Is(err, bind.ErrNoCode) {
		return fmt.Errorf("%s: %w", method, core.ErrRegistryNotDeployed)
	}

	if sentinel, ok := decodeRevert(contractABI, err); ok {
		return sentinel
	}
	if strings.Contains(err.Error(), "execution reverted") {
		return fmt.Errorf("%w: %s: %v", core.ErrTransactionReverted, method, err)
	}
	return fmt.Errorf("%w: %s: %v", core.ErrLedgerUnavailable, method, err)
}

func decodeRevert(contractABI abi.ABI, err error) (error, bool) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return nil, false
	}

	var data []byte
	switch v := dataErr.ErrorData().(type) {
	case string:
		decoded, decodeErr := hexutil.Decode(v)
		if decodeErr != nil {
			return nil, false
		}
		data = decoded
	case []byte:
		data = v
	default:
		return nil, false
	}
	if len(data) < 4 {
		return nil, false
	}

	for name, abiErr := range contractABI.Errors {
		if bytes.Equal(abiErr.ID[:4], data[:4]) {
			if sentinel, ok := revertErrors[name]; ok {
				return sentinel, true
			}
		}
	}
	return nil, false
}
