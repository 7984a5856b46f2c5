package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/labledger/core"
)

// CreateEvent appends an event owned by from. Any address may create events;
// ids start at 1 and are never reused.
func (m *Machine) CreateEvent(from common.Address, title, description string, eventDate uint64) (*core.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastEventID++
	at := m.timestamp()
	m.events = append(m.events, core.Event{
		ID:          m.lastEventID,
		Owner:       from,
		Title:       title,
		Description: description,
		EventDate:   eventDate,
		CreatedAt:   at,
	})
	m.byOwner[from] = append(m.byOwner[from], len(m.events)-1)

	entry := m.commit(OpCreateEvent, from, at, core.Notification{
		Kind:    core.EventCreated,
		Account: from,
		EventID: m.lastEventID,
		Title:   title,
	})
	return &core.Receipt{TxHash: entry.TxHash, Notification: entry.Notification}, nil
}

// Event returns the event with the given id.
func (m *Machine) Event(id uint64) (core.Event, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// ids are contiguous from 1, so the id doubles as a position
	if id == 0 || id > uint64(len(m.events)) {
		return core.Event{}, false
	}
	return m.events[id-1], true
}

// EventsByOwner returns the events created by owner in creation order.
func (m *Machine) EventsByOwner(owner common.Address) []core.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idxs := m.byOwner[owner]
	out := make([]core.Event, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, m.events[idx])
	}
	return out
}

// Events returns every event in id order.
func (m *Machine) Events() []core.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Event, len(m.events))
	copy(out, m.events)
	return out
}
