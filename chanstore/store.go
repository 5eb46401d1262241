// Package chanstore defines the persistence contract the routing core
// depends on and ships two implementations of it: an in-memory
// reference store for tests, and a bbolt-backed store for durable
// deployments.
package chanstore

import (
	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
)

// NodeRecord pairs a node with its announcement. Neither store
// implementation uses it: both persist the NodeAnnouncement itself.
type NodeRecord struct {
	Node route.Vertex
	Ann  lnwire.NodeAnnouncement
}

// ChannelGraphStore is the externally implemented persistence contract.
// The router loads channels and updates at startup (node announcements
// are intentionally not restored) and calls back into it synchronously
// as part of event processing.
type ChannelGraphStore interface {
	// ListChannels returns every persisted public channel announcement,
	// keyed by short channel id.
	ListChannels() (map[lnwire.ShortChannelID]*lnwire.ChannelAnnouncement, error)

	// ListChannelUpdates returns every persisted public channel update.
	ListChannelUpdates() ([]*lnwire.ChannelUpdate, error)

	// AddChannel persists a newly accepted channel announcement.
	AddChannel(ann *lnwire.ChannelAnnouncement) error

	// RemoveChannel deletes a channel and cascades to its updates.
	RemoveChannel(id lnwire.ShortChannelID) error

	// AddChannelUpdate persists a channel update seen for the first
	// time for its (channel, direction).
	AddChannelUpdate(u *lnwire.ChannelUpdate, signer route.Vertex) error

	// UpdateChannelUpdate persists a replacement for an existing
	// channel update.
	UpdateChannelUpdate(u *lnwire.ChannelUpdate, signer route.Vertex) error

	// AddNode persists a newly learned node announcement.
	AddNode(n *lnwire.NodeAnnouncement) error

	// UpdateNode persists a replacement for an existing node
	// announcement.
	UpdateNode(n *lnwire.NodeAnnouncement) error

	// RemoveNode deletes a node's persisted record.
	RemoveNode(id route.Vertex) error
}
