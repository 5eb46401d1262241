package routing

import (
	"time"

	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
)

// handlePruneStaleChannels sweeps the channel graph: every public channel
// whose funding is old enough and whose forwarding policy hasn't been
// refreshed in staleUpdateThreshold seconds is removed from the graph,
// the update set, and the persistence store, with cascading node
// cleanup and ChannelLost/NodeLost notification.
func (r *ChannelRouter) handlePruneStaleChannels(e *tickPruneStaleChannelsEvent) error {
	var stale []lnwire.ShortChannelID

	now := time.Now().Unix()
	r.st.channels.Ascend(func(ann *lnwire.ChannelAnnouncement) bool {
		if r.isStaleChannel(ann, e.BestHeight, now) {
			stale = append(stale, ann.ShortChannelID)
		}
		return true
	})

	for _, scid := range stale {
		ann, ok := r.st.channels.Get(scid)
		if !ok {
			continue
		}
		r.removePublicChannel(scid, ann)
		r.metrics.ChannelsPruned++
	}

	return nil
}

// isStaleChannel implements the two-clock staleness rule: a
// channel is stale once its funding block is strictly more than
// staleBlockThreshold blocks behind bestHeight AND either no directional
// update is known or the newest one is older than staleUpdateThreshold
// seconds.
func (r *ChannelRouter) isStaleChannel(ann *lnwire.ChannelAnnouncement, bestHeight uint32, nowUnix int64) bool {
	h := ann.ShortChannelID.BlockHeight
	if bestHeight < h || bestHeight-h <= staleBlockThreshold {
		return false
	}

	node1, err1 := route.NewVertexFromBytes(ann.NodeID1[:])
	node2, err2 := route.NewVertexFromBytes(ann.NodeID2[:])
	if err1 != nil || err2 != nil {
		return false
	}

	newest, hasUpdate := r.newestUpdateTimestamp(ann.ShortChannelID, node1, node2)
	if hasUpdate && nowUnix-int64(newest) < staleUpdateThreshold {
		return false
	}

	return true
}

// newestUpdateTimestamp returns the most recent of the two directional
// updates known for a channel, if any.
func (r *ChannelRouter) newestUpdateTimestamp(scid lnwire.ShortChannelID, node1, node2 route.Vertex) (uint32, bool) {
	var newest uint32
	var found bool

	for _, desc := range []route.ChannelDesc{
		{ShortChannelID: scid, A: node1, B: node2},
		{ShortChannelID: scid, A: node2, B: node1},
	} {
		if u, ok := r.st.updates[desc]; ok {
			if !found || u.Timestamp > newest {
				newest = u.Timestamp
				found = true
			}
		}
	}

	return newest, found
}

// removePublicChannel tears down every trace of a public channel: both
// directional edges and update records, the channel announcement
// itself, its persisted form, and, if either endpoint has no other
// channel left, that node's record too.
func (r *ChannelRouter) removePublicChannel(scid lnwire.ShortChannelID, ann *lnwire.ChannelAnnouncement) {
	node1, err1 := route.NewVertexFromBytes(ann.NodeID1[:])
	node2, err2 := route.NewVertexFromBytes(ann.NodeID2[:])

	r.st.channels.Delete(scid)
	delete(r.st.stashUpdates, scid)

	if err1 == nil && err2 == nil {
		for _, desc := range []route.ChannelDesc{
			{ShortChannelID: scid, A: node1, B: node2},
			{ShortChannelID: scid, A: node2, B: node1},
		} {
			if _, ok := r.st.updates[desc]; ok {
				delete(r.st.updates, desc)
			}
			removeEdge(r.st, desc)
		}
	}

	if err := r.cfg.Store.RemoveChannel(scid); err != nil {
		log.Errorf("Unable to remove persisted channel %v: %v", scid, err)
	}

	r.cfg.Notifier.SendUpdate(ChannelLost{ShortChannelID: scid})

	if err1 == nil {
		r.maybeForgetNode(node1)
	}
	if err2 == nil {
		r.maybeForgetNode(node2)
	}
}

// maybeForgetNode drops a node's record once it names no more channels.
func (r *ChannelRouter) maybeForgetNode(v route.Vertex) {
	stillNamed := false
	r.st.channels.Ascend(func(ann *lnwire.ChannelAnnouncement) bool {
		node1, err1 := route.NewVertexFromBytes(ann.NodeID1[:])
		node2, err2 := route.NewVertexFromBytes(ann.NodeID2[:])
		if (err1 == nil && node1 == v) || (err2 == nil && node2 == v) {
			stillNamed = true
			return false
		}
		return true
	})

	if stillNamed {
		return
	}

	delete(r.st.knownNodes, v)
	delete(r.st.stashNodes, v)

	if _, ok := r.st.nodes[v]; ok {
		delete(r.st.nodes, v)
		if err := r.cfg.Store.RemoveNode(v); err != nil {
			log.Errorf("Unable to remove persisted node %v: %v", v, err)
		}
		r.cfg.Notifier.SendUpdate(NodeLost{Node: v})
	}
}
