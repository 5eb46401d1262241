package route

import "github.com/breez/lnrouter/lnwire"

// ChannelDesc uniquely identifies one direction of a channel: the short
// channel id, the originating node A of the directional update, and its
// counterpart B. Two ChannelDescs exist per channel, one per direction.
type ChannelDesc struct {
	ShortChannelID lnwire.ShortChannelID
	A, B           Vertex
}

// Hop is one directed edge traversed by a payment: the endpoints plus the
// update whose policy governs the hop.
type Hop struct {
	A, B   Vertex
	Update *lnwire.ChannelUpdate
}
