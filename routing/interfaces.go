package routing

import (
	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
)

// PeerID identifies the peer that delivered or should receive a message.
// It is the remote node's compressed public key; the alias keeps the
// routing package's public surface readable without pulling callers
// through route.Vertex directly.
type PeerID = route.Vertex

// PeerNotifier is the narrow send/acknowledge surface the router needs
// towards a connected peer: transport, framing, and flow control all
// live with the real implementation.
type PeerNotifier interface {
	// SendMessage delivers msg to the peer. The router never blocks
	// event processing on delivery succeeding.
	SendMessage(peer PeerID, msg interface{}) error
}

// SelfChannelLink is the minimal local-node identity the router needs to
// orient private channel updates: which side of the private
// (local, remote) pair is "us".
type SelfChannelLink interface {
	// LocalNodeID returns our own node identity.
	LocalNodeID() route.Vertex
}

// ChannelLost is published when a channel is pruned, chain-spent, or
// explicitly forgotten via a RouteRequest's ignoreChannels hint.
type ChannelLost struct {
	ShortChannelID lnwire.ShortChannelID
}

// NodeDiscovered is published the first time a node announcement is
// accepted for a node not previously known.
type NodeDiscovered struct {
	Node route.Vertex
}

// NodeUpdated is published when a newer node announcement replaces one
// already known.
type NodeUpdated struct {
	Node route.Vertex
}

// NodeLost is published when a node's last remaining channel departs the
// graph.
type NodeLost struct {
	Node route.Vertex
}

// ChannelUpdateReceived is published whenever a channel update is
// accepted into the public or private update set.
type ChannelUpdateReceived struct {
	Update *lnwire.ChannelUpdate
}
