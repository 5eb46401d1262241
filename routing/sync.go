package routing

import (
	"math"
	"time"

	"github.com/breez/lnrouter/lnwire"
)

// handleSendChannelQuery opens the sync handshake: ask a newly
// connected peer for every channel it knows of, from genesis through
// the largest representable block count, so a channel mined after our
// last sync is never missed.
func (r *ChannelRouter) handleSendChannelQuery(e *sendChannelQueryEvent) error {
	query := &lnwire.QueryChannelRange{
		ChainHash:        r.cfg.ChainHash,
		FirstBlockHeight: 0,
		NumBlocks:        math.MaxUint32,
	}

	return r.deliverQuery(e.Peer, query)
}

// sendQueryAttempt is published on the event bus when no PeerNotifier
// is wired in (tests, for one); a subscriber bridges it to its peer
// connection. This keeps the event loop off the network path either way.
type sendQueryAttempt struct {
	Peer  PeerID
	Query interface{}
}

func (r *ChannelRouter) highestKnownBlock() uint32 {
	var highest uint32
	r.st.channels.Ascend(func(ann *lnwire.ChannelAnnouncement) bool {
		highest = ann.ShortChannelID.BlockHeight
		return true
	})
	return highest
}

// handleQueryChannelRange serves the inbound side of the handshake:
// answer a peer's QueryChannelRange with every locally known short
// channel id in the requested block window, as a single complete reply.
// Real chunking to stay under the wire message size limit is a
// transport concern left to the PeerNotifier implementation.
func (r *ChannelRouter) handleQueryChannelRange(e *queryChannelRangeEvent) error {
	q := e.Query
	if q.ChainHash != r.cfg.ChainHash {
		return &ProtocolViolation{Peer: e.Peer, Reason: "unknown chain hash"}
	}

	lastHeight := q.FirstBlockHeight + q.NumBlocks

	var ids []lnwire.ShortChannelID
	r.st.channels.Ascend(func(ann *lnwire.ChannelAnnouncement) bool {
		h := ann.ShortChannelID.BlockHeight
		if h < q.FirstBlockHeight {
			return true
		}
		if h > lastHeight {
			return false
		}
		ids = append(ids, ann.ShortChannelID)
		return true
	})

	reply := &lnwire.ReplyChannelRange{
		QueryChannelRange: *q,
		Complete:          1,
		ShortChanIDs:      ids,
	}

	return r.sendQueryReply(e.Peer, reply)
}

// handleReplyChannelRange continues the outbound flow: diff the peer's
// advertised channel set against our own ids in the same block window,
// and request the full announcement/update set for every short channel
// id we're missing. A channel we hold but consider stale doesn't count
// as ours: the peer's copy may come with fresher updates, so we ask for
// it again.
func (r *ChannelRouter) handleReplyChannelRange(e *replyChannelRangeEvent) error {
	reply := e.Reply
	if reply.ChainHash != r.cfg.ChainHash {
		return &ProtocolViolation{Peer: e.Peer, Reason: "unknown chain hash"}
	}

	firstHeight := reply.FirstBlockHeight
	lastHeight := reply.FirstBlockHeight + reply.NumBlocks
	bestHeight := r.highestKnownBlock()
	now := time.Now().Unix()

	var missing []lnwire.ShortChannelID
	for _, id := range reply.ShortChanIDs {
		if id.IsPeerID() {
			continue
		}
		if id.BlockHeight < firstHeight || id.BlockHeight > lastHeight {
			continue
		}
		if ann, ok := r.st.channels.Get(id); ok {
			if !r.isStaleChannel(ann, bestHeight, now) {
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return nil
	}

	query := &lnwire.QueryShortChannelID{
		ChainHash:    r.cfg.ChainHash,
		ShortChanIDs: missing,
	}

	return r.deliverQuery(e.Peer, query)
}

// handleQueryShortChanIDs serves the final leg: a peer asked us for
// the full gossip payload of a specific set of channels. We answer with
// every announcement and update we hold for them, as one batch
// terminated by ReplyShortChanIDsEnd.
func (r *ChannelRouter) handleQueryShortChanIDs(e *queryShortChanIDsEvent) error {
	q := e.Query
	if q.ChainHash != r.cfg.ChainHash {
		return &ProtocolViolation{Peer: e.Peer, Reason: "unknown chain hash"}
	}

	var payload []interface{}
	for _, id := range q.ShortChanIDs {
		ann, ok := r.st.channels.Get(id)
		if !ok {
			continue
		}
		payload = append(payload, ann)

		for _, desc := range r.descsFor(ann) {
			if u, ok := r.st.updates[desc]; ok {
				payload = append(payload, u)
			}
		}
	}

	payload = append(payload, &lnwire.ReplyShortChanIDsEnd{
		ChainHash: r.cfg.ChainHash,
		Complete:  1,
	})

	return r.sendQueryReply(e.Peer, payload)
}
