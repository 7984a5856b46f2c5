package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/labledger/core"
)

// RegisterIdentity creates the identity owned by from.
func (m *Machine) RegisterIdentity(from common.Address, name, matricula, curso string) (*core.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byAccount[from]; ok {
		return nil, core.ErrIdentityAlreadyExists
	}
	if _, ok := m.byMatricula[matricula]; ok {
		return nil, core.ErrMatriculaAlreadyInUse
	}

	at := m.timestamp()
	m.identities = append(m.identities, core.Identity{
		Account:   from,
		Name:      name,
		Matricula: matricula,
		Curso:     curso,
		CreatedAt: at,
	})
	m.byAccount[from] = len(m.identities) - 1
	m.byMatricula[matricula] = from

	entry := m.commit(OpRegisterIdentity, from, at, core.Notification{
		Kind:      core.IdentityRegistered,
		Account:   from,
		Matricula: matricula,
		Name:      name,
	})
	return &core.Receipt{TxHash: entry.TxHash, Notification: entry.Notification}, nil
}

// UpdateIdentity changes the mutable fields of the identity owned by from.
// Account, matricula and creation time never change.
func (m *Machine) UpdateIdentity(from common.Address, name, curso string) (*core.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.byAccount[from]
	if !ok {
		return nil, core.ErrIdentityNotFound
	}

	identity := &m.identities[idx]
	identity.Name = name
	identity.Curso = curso

	entry := m.commit(OpUpdateIdentity, from, m.timestamp(), core.Notification{
		Kind:      core.IdentityUpdated,
		Account:   from,
		Matricula: identity.Matricula,
		Name:      name,
	})
	return &core.Receipt{TxHash: entry.TxHash, Notification: entry.Notification}, nil
}

// Identity returns the identity owned by account.
func (m *Machine) Identity(account common.Address) (core.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.byAccount[account]
	if !ok {
		return core.Identity{}, false
	}
	return m.identities[idx], true
}

// IdentityByMatricula returns the identity registered under matricula. A
// missing matricula yields the zero identity (zero account).
func (m *Machine) IdentityByMatricula(matricula string) (core.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.byMatricula[matricula]
	if !ok {
		return core.Identity{}, false
	}
	return m.identities[m.byAccount[account]], true
}

// Identities returns every identity in registration order.
func (m *Machine) Identities() []core.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Identity, len(m.identities))
	copy(out, m.identities)
	return out
}
