package routing

import (
	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
)

// localNodeID returns our own node identity, preferring the live
// SelfChannelLink over the static config value when one is wired in.
func (r *ChannelRouter) localNodeID() route.Vertex {
	if r.cfg.SelfLink != nil {
		return r.cfg.SelfLink.LocalNodeID()
	}
	return r.cfg.NodeID
}

// handleLocalChannelUpdate installs or refreshes the forwarding policy
// for one of our own channels. A channel already accepted publicly
// keeps its public classification: the update is processed as ordinary
// gossip. A channel whose announcement is accepted or still under
// validation likewise stays on the public track, with the update
// stashed until validation completes. Only a channel with no public
// standing at all becomes (or remains) private: those never enter the
// public channels index or persistence store; they live only in
// privateChannels/privateUpdates and as graph edges, so our own
// unannounced channels still participate in path finding.
func (r *ChannelRouter) handleLocalChannelUpdate(e *localChannelUpdateEvent) error {
	if ann, ok := r.st.channels.Get(e.ShortChannelID); ok {
		return r.applyPublicLocalUpdate(ann, e.Update)
	}

	if _, ok := r.st.awaiting[e.ShortChannelID]; ok {
		r.stashUpdate(r.localNodeID(), e.Update)
		return nil
	}

	// The caller handed us the channel's announcement: honor whichever
	// public state that announcement's id is in, even when it differs
	// from the update's own id.
	if e.Ann != nil {
		annID := e.Ann.ShortChannelID
		if ann, ok := r.st.channels.Get(annID); ok {
			return r.applyPublicLocalUpdate(ann, e.Update)
		}
		if _, ok := r.st.awaiting[annID]; ok {
			r.stashUpdate(r.localNodeID(), e.Update)
			return nil
		}
	}

	local := r.localNodeID()

	r.st.privateChannels[e.ShortChannelID] = e.RemoteNode

	desc := privateDescFor(e.Update, local, e.RemoteNode)

	existing, known := r.st.privateUpdates[desc]
	if known && e.Update.Timestamp <= existing.Timestamp {
		return ErrOutdatedUpdate
	}

	r.st.privateUpdates[desc] = e.Update
	installEdge(r.st, desc, e.Update)

	r.cfg.Notifier.SendUpdate(ChannelUpdateReceived{Update: e.Update})

	return nil
}

// applyPublicLocalUpdate runs one of our own updates through the normal
// public gossip path, keyed by the accepted announcement's endpoints.
func (r *ChannelRouter) applyPublicLocalUpdate(ann *lnwire.ChannelAnnouncement, u *lnwire.ChannelUpdate) error {
	node1, err1 := route.NewVertexFromBytes(ann.NodeID1[:])
	node2, err2 := route.NewVertexFromBytes(ann.NodeID2[:])
	if err1 != nil || err2 != nil {
		return ErrUnknownChannel
	}
	return r.applyChannelUpdate(r.localNodeID(), u, node1, node2)
}

// handleLocalChannelDown retires a private channel's edges and
// bookkeeping entirely.
func (r *ChannelRouter) handleLocalChannelDown(e *localChannelDownEvent) error {
	remote, ok := r.st.privateChannels[e.ShortChannelID]
	if !ok {
		return ErrUnknownChannel
	}
	delete(r.st.privateChannels, e.ShortChannelID)

	local := r.localNodeID()

	for _, pair := range [][2]route.Vertex{{local, remote}, {remote, local}} {
		desc := route.ChannelDesc{ShortChannelID: e.ShortChannelID, A: pair[0], B: pair[1]}
		if _, ok := r.st.privateUpdates[desc]; ok {
			delete(r.st.privateUpdates, desc)
			removeEdge(r.st, desc)
		}
	}

	r.cfg.Notifier.SendUpdate(ChannelLost{ShortChannelID: e.ShortChannelID})

	return nil
}

// handleExternalFundingSpent removes a channel whose funding output was
// observed spent on-chain, independent of gossip. It applies uniformly
// to public and private channels.
func (r *ChannelRouter) handleExternalFundingSpent(e *externalFundingSpentEvent) error {
	if ann, ok := r.st.channels.Get(e.ShortChannelID); ok {
		r.removePublicChannel(e.ShortChannelID, ann)
		return nil
	}

	if _, ok := r.st.privateChannels[e.ShortChannelID]; ok {
		return r.handleLocalChannelDown(&localChannelDownEvent{
			gossipReply:    newGossipReply(),
			ShortChannelID: e.ShortChannelID,
		})
	}

	return ErrUnknownChannel
}

// forgetIgnoredChannels synthesizes a funding-spent removal for every
// channel a route request asked to ignore: by the time the payment
// layer blacklists a channel it has concluded the channel is dead, so
// there's no point keeping it in the graph.
func (r *ChannelRouter) forgetIgnoredChannels(ids map[lnwire.ShortChannelID]struct{}) {
	for scid := range ids {
		ev := &externalFundingSpentEvent{
			gossipReply:    newGossipReply(),
			ShortChannelID: scid,
		}
		if err := r.handleExternalFundingSpent(ev); err != nil && err != ErrUnknownChannel {
			log.Warnf("Unable to forget ignored channel %v: %v", scid, err)
		}
	}
}
