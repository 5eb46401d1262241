package routing

import (
	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
)

// handleChannelAnnouncement implements the cheap, synchronous half of
// channel announcement ingestion: chain hash and duplicate
// checks happen immediately; signature verification is dispatched to a
// background goroutine that reports back via
// channelAnnouncementValidatedEvent, since it's the one gossip check
// expensive enough to be worth keeping off the single event loop.
func (r *ChannelRouter) handleChannelAnnouncement(e *channelAnnouncementEvent) error {
	ann := e.Ann

	if ann.ChainHash != r.cfg.ChainHash {
		return &ProtocolViolation{Peer: e.Peer, Reason: "unknown chain hash"}
	}
	if ann.ShortChannelID.IsPeerID() {
		return &ProtocolViolation{Peer: e.Peer, Reason: "synthetic short channel id in announcement"}
	}

	scid := ann.ShortChannelID

	if _, ok := r.st.channels.Get(scid); ok {
		return ErrChannelDuplicate
	}

	if entry, ok := r.st.awaiting[scid]; ok {
		entry.origins = append(entry.origins, e.Peer)
		return nil
	}

	r.st.awaiting[scid] = &awaitingEntry{ann: ann, origins: []PeerID{e.Peer}}

	go func() {
		err := r.cfg.Validator.ValidateChannelAnnouncement(ann)

		ev := &channelAnnouncementValidatedEvent{
			gossipReply:    newGossipReply(),
			ShortChannelID: scid,
			Ann:            ann,
			Err:            err,
		}

		select {
		case r.events <- ev:
		case <-r.quit:
		}
	}()

	return nil
}

// handleChannelAnnouncementValidated finishes the job handleChannelAnnouncement
// started: on success the channel enters the graph and any updates
// stashed while validation was in flight are replayed in arrival order;
// on failure the channel is dropped from awaiting together with any
// gossip stashed for it, and nothing else is mutated.
func (r *ChannelRouter) handleChannelAnnouncementValidated(e *channelAnnouncementValidatedEvent) error {
	entry, ok := r.st.awaiting[e.ShortChannelID]
	if !ok {
		return nil
	}
	delete(r.st.awaiting, e.ShortChannelID)

	if e.Err != nil {
		r.metrics.ChannelAnnouncementsRejected++
		log.Warnf("Rejecting channel announcement %v: %v", e.ShortChannelID, e.Err)

		// Gossip stashed for the rejected channel has nothing left to
		// wait for.
		delete(r.st.stashUpdates, e.ShortChannelID)
		for v := range r.st.stashNodes {
			if !r.awaitingReferences(v) {
				delete(r.st.stashNodes, v)
			}
		}
		return e.Err
	}
	r.metrics.ChannelAnnouncementsAccepted++

	ann := entry.ann

	r.st.channels.Put(ann)
	if err := r.cfg.Store.AddChannel(ann); err != nil {
		log.Errorf("Unable to persist channel %v: %v", e.ShortChannelID, err)
	}

	// A channel accepted publicly supersedes any private record we held
	// for the same funding output.
	if remote, ok := r.st.privateChannels[e.ShortChannelID]; ok {
		delete(r.st.privateChannels, e.ShortChannelID)

		local := r.localNodeID()
		for _, desc := range []route.ChannelDesc{
			{ShortChannelID: e.ShortChannelID, A: local, B: remote},
			{ShortChannelID: e.ShortChannelID, A: remote, B: local},
		} {
			if _, ok := r.st.privateUpdates[desc]; ok {
				delete(r.st.privateUpdates, desc)
				removeEdge(r.st, desc)
			}
		}
	}

	node1, err1 := route.NewVertexFromBytes(ann.NodeID1[:])
	node2, err2 := route.NewVertexFromBytes(ann.NodeID2[:])
	if err1 != nil || err2 != nil {
		return nil
	}

	r.noteNode(node1)
	r.noteNode(node2)

	r.drainStashedUpdates(e.ShortChannelID, node1, node2)

	return nil
}

// noteNode marks v as named by an accepted channel announcement and
// replays any NodeAnnouncement that was stashed awaiting exactly this.
func (r *ChannelRouter) noteNode(v route.Vertex) {
	r.st.knownNodes[v] = struct{}{}

	if stashed, ok := r.st.stashNodes[v]; ok {
		delete(r.st.stashNodes, v)
		r.applyNodeAnnouncement(stashed.ann)
	}
}

// drainStashedUpdates replays, in arrival order, every ChannelUpdate
// that arrived for scid before its ChannelAnnouncement was validated.
func (r *ChannelRouter) drainStashedUpdates(scid lnwire.ShortChannelID, node1, node2 route.Vertex) {
	stashed, ok := r.st.stashUpdates[scid]
	if !ok {
		return
	}
	delete(r.st.stashUpdates, scid)

	for _, su := range stashed {
		var origin PeerID
		for peer := range su.senders {
			origin = peer
			break
		}
		if err := r.applyChannelUpdate(origin, su.update, node1, node2); err != nil {
			log.Debugf("Stashed update for %v dropped on replay: %v", scid, err)
		}
	}
}

// handleChannelUpdate classifies and applies an inbound channel update.
// An update for an accepted channel is applied directly; one whose
// channel is still under validation is stashed until the announcement
// clears; one for a locally known private channel is applied against
// privateUpdates; anything else references a channel we've never seen
// and is dropped.
func (r *ChannelRouter) handleChannelUpdate(e *channelUpdateEvent) error {
	u := e.Update

	if u.ChainHash != r.cfg.ChainHash {
		return &ProtocolViolation{Peer: e.Peer, Reason: "unknown chain hash"}
	}

	scid := u.ShortChannelID

	if ann, ok := r.st.channels.Get(scid); ok {
		node1, err1 := route.NewVertexFromBytes(ann.NodeID1[:])
		node2, err2 := route.NewVertexFromBytes(ann.NodeID2[:])
		if err1 != nil || err2 != nil {
			return ErrUnknownChannel
		}
		return r.applyChannelUpdate(e.Peer, u, node1, node2)
	}

	if _, ok := r.st.awaiting[scid]; ok {
		r.stashUpdate(e.Peer, u)
		return nil
	}

	if remote, ok := r.st.privateChannels[scid]; ok {
		return r.applyPrivateChannelUpdate(e.Peer, u, remote)
	}

	return ErrUnknownChannel
}

// stashUpdate records u as pending the arrival of its channel
// announcement, tracking every distinct peer that delivered it. On
// replay one of those peers is passed on as the update's origin.
func (r *ChannelRouter) stashUpdate(peer PeerID, u *lnwire.ChannelUpdate) {
	scid := u.ShortChannelID
	for _, su := range r.st.stashUpdates[scid] {
		if su.update.Timestamp == u.Timestamp && su.update.ChannelFlags == u.ChannelFlags {
			su.senders[peer] = struct{}{}
			return
		}
	}
	r.st.stashUpdates[scid] = append(r.st.stashUpdates[scid], &stashedUpdate{
		update:  u,
		senders: map[PeerID]struct{}{peer: {}},
	})
}

// applyChannelUpdate validates and installs u as the current policy for
// its (channel, direction). A non-newer update is
// rejected without mutating state; a newer one replaces the stored
// update, updates the graph edge, persists, and fans out
// ChannelUpdateReceived.
func (r *ChannelRouter) applyChannelUpdate(peer PeerID, u *lnwire.ChannelUpdate, node1, node2 route.Vertex) error {
	desc := descFor(u, node1, node2)
	signer := desc.A

	existing, known := r.st.updates[desc]
	isNew := !known

	// The timestamp check comes first: a replayed or reordered update is
	// not worth a signature verification.
	if known && u.Timestamp <= existing.Timestamp {
		r.metrics.ChannelUpdatesRejected++
		return ErrOutdatedUpdate
	}

	if err := r.cfg.Validator.ValidateChannelUpdate(u, signer); err != nil {
		r.metrics.ChannelUpdatesRejected++
		return &ProtocolViolation{Peer: peer, Reason: "invalid channel update signature"}
	}
	r.metrics.ChannelUpdatesAccepted++

	r.st.updates[desc] = u
	installEdge(r.st, desc, u)

	if isNew {
		if err := r.cfg.Store.AddChannelUpdate(u, signer); err != nil {
			log.Errorf("Unable to persist channel update for %v: %v", desc.ShortChannelID, err)
		}
	} else {
		if err := r.cfg.Store.UpdateChannelUpdate(u, signer); err != nil {
			log.Errorf("Unable to persist channel update for %v: %v", desc.ShortChannelID, err)
		}
	}

	r.cfg.Notifier.SendUpdate(ChannelUpdateReceived{Update: u})

	return nil
}

// applyPrivateChannelUpdate validates and installs a gossip-delivered
// update for one of our own unannounced channels: the
// known (local, remote) pair orients the desc, and the same timestamp /
// signature / replace-or-insert logic runs against privateUpdates.
func (r *ChannelRouter) applyPrivateChannelUpdate(peer PeerID, u *lnwire.ChannelUpdate, remote route.Vertex) error {
	desc := privateDescFor(u, r.localNodeID(), remote)

	if existing, ok := r.st.privateUpdates[desc]; ok && u.Timestamp <= existing.Timestamp {
		r.metrics.ChannelUpdatesRejected++
		return ErrOutdatedUpdate
	}

	if err := r.cfg.Validator.ValidateChannelUpdate(u, desc.A); err != nil {
		r.metrics.ChannelUpdatesRejected++
		return &ProtocolViolation{Peer: peer, Reason: "invalid channel update signature"}
	}
	r.metrics.ChannelUpdatesAccepted++

	r.st.privateUpdates[desc] = u
	installEdge(r.st, desc, u)

	r.cfg.Notifier.SendUpdate(ChannelUpdateReceived{Update: u})

	return nil
}

// handleNodeAnnouncement ingests a node announcement: accepted immediately if the node is named by an accepted
// channel, stashed if its only channel is still under validation, and
// dropped (clearing any stale persisted record) otherwise.
func (r *ChannelRouter) handleNodeAnnouncement(e *nodeAnnouncementEvent) error {
	n := e.Ann

	signer, err := route.NewVertexFromBytes(n.NodeID[:])
	if err != nil {
		return &ProtocolViolation{Peer: e.Peer, Reason: "malformed node id"}
	}

	// Already waiting on its channel: just record the extra origin.
	if stashed, ok := r.st.stashNodes[signer]; ok {
		stashed.senders[e.Peer] = struct{}{}
		return nil
	}

	if existing, ok := r.st.nodes[signer]; ok && existing.Timestamp >= n.Timestamp {
		r.metrics.NodeAnnouncementsRejected++
		return ErrOutdatedUpdate
	}

	if err := r.cfg.Validator.ValidateNodeAnnouncement(n); err != nil {
		r.metrics.NodeAnnouncementsRejected++
		return &ProtocolViolation{Peer: e.Peer, Reason: "invalid node announcement signature"}
	}

	if _, known := r.st.knownNodes[signer]; known {
		return r.applyNodeAnnouncement(n)
	}

	if r.awaitingReferences(signer) {
		r.st.stashNodes[signer] = &stashedNode{
			ann:     n,
			senders: map[PeerID]struct{}{e.Peer: {}},
		}
		return nil
	}

	// No accepted or pending channel names this node. Drop the
	// announcement, clearing whatever record an earlier life of the node
	// may have left behind in the store.
	if err := r.cfg.Store.RemoveNode(signer); err != nil {
		log.Debugf("Unable to remove stale node record %v: %v", signer, err)
	}

	return nil
}

// awaitingReferences reports whether any channel currently under
// validation names v as an endpoint.
func (r *ChannelRouter) awaitingReferences(v route.Vertex) bool {
	for _, entry := range r.st.awaiting {
		if entry.ann.NodeID1 == [33]byte(v) || entry.ann.NodeID2 == [33]byte(v) {
			return true
		}
	}
	return false
}

// applyNodeAnnouncement installs n as the current record for its node,
// rejecting it if a newer one is already stored.
func (r *ChannelRouter) applyNodeAnnouncement(n *lnwire.NodeAnnouncement) error {
	signer, err := route.NewVertexFromBytes(n.NodeID[:])
	if err != nil {
		return err
	}

	existing, known := r.st.nodes[signer]
	if known && n.Timestamp <= existing.Timestamp {
		r.metrics.NodeAnnouncementsRejected++
		return ErrOutdatedUpdate
	}
	r.metrics.NodeAnnouncementsAccepted++

	r.st.nodes[signer] = n

	if known {
		if err := r.cfg.Store.UpdateNode(n); err != nil {
			log.Errorf("Unable to persist node %v: %v", signer, err)
		}
		r.cfg.Notifier.SendUpdate(NodeUpdated{Node: signer})
	} else {
		if err := r.cfg.Store.AddNode(n); err != nil {
			log.Errorf("Unable to persist node %v: %v", signer, err)
		}
		r.cfg.Notifier.SendUpdate(NodeDiscovered{Node: signer})
	}

	return nil
}
