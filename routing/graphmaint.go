package routing

import (
	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
)

// installEdge replaces any existing graph edge for desc with one built
// from u: the channel graph always reflects the most
// recently accepted update for a (channel, direction) pair, and a
// disabled update's edge is simply absent (graph.AddEdge already
// no-ops on a disabled update).
func installEdge(st *state, desc route.ChannelDesc, u *lnwire.ChannelUpdate) {
	st.graph.RemoveEdge(desc)
	st.graph.AddEdge(desc, u)
}

// removeEdge drops desc's graph edge, if any, along with its standing
// exclusion.
func removeEdge(st *state, desc route.ChannelDesc) {
	st.graph.RemoveEdge(desc)
	delete(st.excludedChannels, desc)
}
