package chanstore

import (
	"fmt"
	"sync"

	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
)

// MemStore is an in-memory ChannelGraphStore: a test double for an
// external store, never meant for production use.
type MemStore struct {
	mu sync.Mutex

	channels map[lnwire.ShortChannelID]*lnwire.ChannelAnnouncement
	updates  map[lnwire.ShortChannelID][2]*lnwire.ChannelUpdate
	nodes    map[route.Vertex]*lnwire.NodeAnnouncement
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		channels: make(map[lnwire.ShortChannelID]*lnwire.ChannelAnnouncement),
		updates:  make(map[lnwire.ShortChannelID][2]*lnwire.ChannelUpdate),
		nodes:    make(map[route.Vertex]*lnwire.NodeAnnouncement),
	}
}

// ListChannels implements ChannelGraphStore.
func (m *MemStore) ListChannels() (map[lnwire.ShortChannelID]*lnwire.ChannelAnnouncement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[lnwire.ShortChannelID]*lnwire.ChannelAnnouncement, len(m.channels))
	for k, v := range m.channels {
		out[k] = v
	}
	return out, nil
}

// ListChannelUpdates implements ChannelGraphStore.
func (m *MemStore) ListChannelUpdates() ([]*lnwire.ChannelUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*lnwire.ChannelUpdate
	for _, pair := range m.updates {
		for _, u := range pair {
			if u != nil {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

// AddChannel implements ChannelGraphStore.
func (m *MemStore) AddChannel(ann *lnwire.ChannelAnnouncement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.channels[ann.ShortChannelID] = ann
	return nil
}

// RemoveChannel implements ChannelGraphStore.
func (m *MemStore) RemoveChannel(id lnwire.ShortChannelID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.channels, id)
	delete(m.updates, id)
	return nil
}

// AddChannelUpdate implements ChannelGraphStore.
func (m *MemStore) AddChannelUpdate(u *lnwire.ChannelUpdate, signer route.Vertex) error {
	return m.storeUpdate(u)
}

// UpdateChannelUpdate implements ChannelGraphStore.
func (m *MemStore) UpdateChannelUpdate(u *lnwire.ChannelUpdate, signer route.Vertex) error {
	return m.storeUpdate(u)
}

func (m *MemStore) storeUpdate(u *lnwire.ChannelUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.channels[u.ShortChannelID]; !ok {
		return fmt.Errorf("unknown channel %v", u.ShortChannelID)
	}

	pair := m.updates[u.ShortChannelID]
	pair[u.Direction()] = u
	m.updates[u.ShortChannelID] = pair
	return nil
}

// AddNode implements ChannelGraphStore.
func (m *MemStore) AddNode(n *lnwire.NodeAnnouncement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nodes[n.NodeID] = n
	return nil
}

// UpdateNode implements ChannelGraphStore.
func (m *MemStore) UpdateNode(n *lnwire.NodeAnnouncement) error {
	return m.AddNode(n)
}

// RemoveNode implements ChannelGraphStore.
func (m *MemStore) RemoveNode(id route.Vertex) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.nodes, id)
	return nil
}
