// Package ledger implements the registry state machine: the identity and
// event collections together with their uniqueness and ownership invariants.
//
// All writes go through a single writer lock, so state transitions are
// applied one at a time in the order the lock is acquired. A write either
// commits completely (state change, command log entry, notification) or
// returns an error and leaves the machine untouched.
package ledger

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/labledger/core"
)

// Op names a command applied to the machine.
type Op string

const (
	OpRegisterIdentity Op = "registerIdentity"
	OpUpdateIdentity   Op = "updateIdentity"
	OpCreateEvent      Op = "createEvent"
)

// Entry is one applied command in the append-only command log.
type Entry struct {
	Seq          uint64
	Op           Op
	From         common.Address
	At           uint64
	TxHash       common.Hash
	Notification core.Notification
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock replaces the ledger time source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// Machine is the in-process registry state machine.
type Machine struct {
	mu  sync.RWMutex
	now func() time.Time

	identities  []core.Identity
	byAccount   map[common.Address]int
	byMatricula map[string]common.Address

	events      []core.Event
	byOwner     map[common.Address][]int
	lastEventID uint64

	log []Entry
}

// NewMachine creates an empty registry.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		now:         time.Now,
		byAccount:   make(map[common.Address]int),
		byMatricula: make(map[string]common.Address),
		byOwner:     make(map[common.Address][]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// commit appends a log entry for an applied command. Callers hold m.mu.
func (m *Machine) commit(op Op, from common.Address, at uint64, n core.Notification) Entry {
	seq := uint64(len(m.log)) + 1

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	hash := crypto.Keccak256Hash(buf[:], from.Bytes(), []byte(op))

	entry := Entry{
		Seq:          seq,
		Op:           op,
		From:         from,
		At:           at,
		TxHash:       hash,
		Notification: n,
	}
	m.log = append(m.log, entry)
	return entry
}

func (m *Machine) timestamp() uint64 {
	return uint64(m.now().Unix())
}

// Log returns the applied commands with a sequence number greater than since.
func (m *Machine) Log(since uint64) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if since >= uint64(len(m.log)) {
		return nil
	}
	out := make([]Entry, len(m.log)-int(since))
	copy(out, m.log[since:])
	return out
}

// Height returns the number of applied commands.
func (m *Machine) Height() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return uint64(len(m.log))
}
