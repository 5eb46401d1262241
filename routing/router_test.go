package routing

import (
	"testing"
	"time"

	"github.com/breez/lnrouter/chanstore"
	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
)

// noopValidator accepts every gossip message without checking a
// signature; test messages are crafted by hand rather than actually
// signed.
type noopValidator struct{}

func (noopValidator) ValidateChannelAnnouncement(*lnwire.ChannelAnnouncement) error { return nil }
func (noopValidator) ValidateChannelUpdate(*lnwire.ChannelUpdate, route.Vertex) error {
	return nil
}
func (noopValidator) ValidateNodeAnnouncement(*lnwire.NodeAnnouncement) error { return nil }

// gateValidator blocks channel announcement validation until release is
// closed, letting tests hold a channel in the awaiting set while other
// gossip arrives for it.
type gateValidator struct {
	noopValidator
	release chan struct{}
}

func (g *gateValidator) ValidateChannelAnnouncement(*lnwire.ChannelAnnouncement) error {
	<-g.release
	return nil
}

func vertex(b byte) route.Vertex {
	var v route.Vertex
	v[0] = 0x02
	v[32] = b
	return v
}

func scid(height uint32) lnwire.ShortChannelID {
	return lnwire.ShortChannelID{BlockHeight: height, TxIndex: 0, TxPosition: 0}
}

func newTestRouter(t *testing.T, opts ...func(*Config)) *ChannelRouter {
	t.Helper()

	cfg := Config{
		ChainHash: chainhash.Hash{},
		NodeID:    vertex(0xAA),
		Store:     chanstore.NewMemStore(),
		Validator: noopValidator{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r, err := NewChannelRouter(cfg)
	if err != nil {
		t.Fatalf("NewChannelRouter: %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { r.Stop() })

	return r
}

// waitFor polls cond until it returns true or the deadline passes,
// needed because channel announcement validation happens on a
// background goroutine (see gossip.go).
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition never became true")
}

func waitForChannels(t *testing.T, r *ChannelRouter, count int) {
	t.Helper()

	waitFor(t, func() bool {
		st, err := r.GetRoutingState()
		return err == nil && st.ChannelCount == count
	})
}

func testAnnouncement(id lnwire.ShortChannelID, node1, node2 route.Vertex) *lnwire.ChannelAnnouncement {
	return &lnwire.ChannelAnnouncement{
		ShortChannelID: id,
		NodeID1:        node1,
		NodeID2:        node2,
		BitcoinKey1:    node1,
		BitcoinKey2:    node2,
	}
}

func testUpdate(id lnwire.ShortChannelID, direction uint8, base, rate uint32, timestamp uint32) *lnwire.ChannelUpdate {
	var flags lnwire.ChanUpdateChanFlags
	if direction == 1 {
		flags = lnwire.ChanUpdateDirection
	}
	return &lnwire.ChannelUpdate{
		ShortChannelID: id,
		ChannelFlags:   flags,
		Timestamp:      timestamp,
		BaseFee:        base,
		FeeRate:        rate,
	}
}

// announceChannel feeds a channel announcement plus a direction-0 update
// into the router and waits for both to land.
func announceChannel(t *testing.T, r *ChannelRouter, id lnwire.ShortChannelID, node1, node2 route.Vertex, base, rate uint32) {
	t.Helper()

	before, err := r.GetRoutingState()
	if err != nil {
		t.Fatalf("GetRoutingState: %v", err)
	}

	if err := r.ProcessChannelAnnouncement(vertex(0xF0), testAnnouncement(id, node1, node2)); err != nil {
		t.Fatalf("ProcessChannelAnnouncement: %v", err)
	}
	waitForChannels(t, r, before.ChannelCount+1)

	if err := r.ProcessChannelUpdate(vertex(0xF0), testUpdate(id, 0, base, rate, 1)); err != nil {
		t.Fatalf("ProcessChannelUpdate: %v", err)
	}
}

func TestChannelAnnouncementAcceptedAndDeduped(t *testing.T) {
	r := newTestRouter(t)

	a, b := vertex(1), vertex(2)
	id := scid(1000)
	ann := testAnnouncement(id, a, b)

	if err := r.ProcessChannelAnnouncement(vertex(0xF0), ann); err != nil {
		t.Fatalf("ProcessChannelAnnouncement: %v", err)
	}
	waitForChannels(t, r, 1)

	if err := r.ProcessChannelAnnouncement(vertex(0xF1), ann); err != ErrChannelDuplicate {
		t.Fatalf("expected ErrChannelDuplicate, got %v", err)
	}
}

func TestChannelUpdateAppliesEdgeWeight(t *testing.T) {
	r := newTestRouter(t)

	a, b := vertex(1), vertex(2)
	announceChannel(t, r, scid(2000), a, b, 1000, 100)

	resp, err := r.FindRoute(a, b, 10_000_000, nil, nil, nil)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	if len(resp.Hops) != 1 {
		t.Fatalf("expected 1 hop, got %s", spew.Sdump(resp.Hops))
	}
	if resp.Hops[0].Update.BaseFee != 1000 {
		t.Fatalf("unexpected hop update: %s", spew.Sdump(resp.Hops[0].Update))
	}

	// 1000 + (100 * 10_000_000) / 1_000_000 = 2000
	r.Stop()
	edges := r.st.graph.EdgesFrom(a)
	if len(edges) != 1 || edges[0].Weight != 2000 {
		t.Fatalf("expected one edge of weight 2000, got %s", spew.Sdump(edges))
	}
}

func TestRoutingStateSnapshotCarriesUpdates(t *testing.T) {
	r := newTestRouter(t)

	a, b := vertex(1), vertex(2)
	id := scid(2050)
	announceChannel(t, r, id, a, b, 1000, 100)

	st, err := r.GetRoutingState()
	if err != nil {
		t.Fatalf("GetRoutingState: %v", err)
	}
	if len(st.Updates) != 1 {
		t.Fatalf("expected 1 update in snapshot, got %d", len(st.Updates))
	}
	desc := route.ChannelDesc{ShortChannelID: id, A: a, B: b}
	u, ok := st.UpdatesMap[desc]
	if !ok {
		t.Fatalf("snapshot updates map missing %v", desc)
	}
	if u.BaseFee != 1000 {
		t.Fatalf("unexpected snapshot update: %s", spew.Sdump(u))
	}
}

func TestOutdatedChannelUpdateRejected(t *testing.T) {
	r := newTestRouter(t)

	a, b := vertex(1), vertex(2)
	id := scid(2100)
	announceChannel(t, r, id, a, b, 1000, 100)

	if err := r.ProcessChannelUpdate(vertex(0xF0), testUpdate(id, 0, 9999, 0, 1)); err != ErrOutdatedUpdate {
		t.Fatalf("expected ErrOutdatedUpdate for equal timestamp, got %v", err)
	}
	if err := r.ProcessChannelUpdate(vertex(0xF0), testUpdate(id, 0, 9999, 0, 0)); err != ErrOutdatedUpdate {
		t.Fatalf("expected ErrOutdatedUpdate for older timestamp, got %v", err)
	}

	resp, err := r.FindRoute(a, b, 1000, nil, nil, nil)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	if resp.Hops[0].Update.BaseFee != 1000 {
		t.Fatalf("stale update must not replace the stored policy, got %s",
			spew.Sdump(resp.Hops[0].Update))
	}
}

func TestChannelUpdateStashedWhileAwaitingValidation(t *testing.T) {
	gate := &gateValidator{release: make(chan struct{})}
	r := newTestRouter(t, func(cfg *Config) { cfg.Validator = gate })

	a, b := vertex(1), vertex(2)
	id := scid(3000)

	if err := r.ProcessChannelAnnouncement(vertex(0xF0), testAnnouncement(id, a, b)); err != nil {
		t.Fatalf("ProcessChannelAnnouncement: %v", err)
	}

	// The update arrives while validation is still in flight; it must be
	// stashed and replayed once the announcement clears.
	if err := r.ProcessChannelUpdate(vertex(0xF0), testUpdate(id, 0, 500, 50, 1)); err != nil {
		t.Fatalf("ProcessChannelUpdate: %v", err)
	}

	close(gate.release)

	waitFor(t, func() bool {
		_, err := r.FindRoute(a, b, 1000, nil, nil, nil)
		return err == nil
	})
}

func TestChannelUpdateForUnknownChannelDiscarded(t *testing.T) {
	r := newTestRouter(t)

	if err := r.ProcessChannelUpdate(vertex(0xF0), testUpdate(scid(3100), 0, 500, 50, 1)); err != ErrUnknownChannel {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestRouteNotFoundBetweenDisconnectedNodes(t *testing.T) {
	r := newTestRouter(t)

	a, c := vertex(1), vertex(9)
	if _, err := r.FindRoute(a, c, 1000, nil, nil, nil); err != ErrRouteNotFound {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestCannotRouteToSelf(t *testing.T) {
	r := newTestRouter(t)

	a, b := vertex(1), vertex(2)

	// Against an empty graph the endpoint check wins: a is not a known
	// vertex, so this is a routing miss rather than a self-payment.
	if _, err := r.FindRoute(a, a, 1000, nil, nil, nil); err != ErrRouteNotFound {
		t.Fatalf("expected ErrRouteNotFound on empty graph, got %v", err)
	}

	announceChannel(t, r, scid(1500), a, b, 1000, 0)

	if _, err := r.FindRoute(a, a, 1000, nil, nil, nil); err != ErrCannotRouteToSelf {
		t.Fatalf("expected ErrCannotRouteToSelf, got %v", err)
	}
}

func TestAssistedRouteOverlay(t *testing.T) {
	r := newTestRouter(t)

	a, b, c, d := vertex(1), vertex(2), vertex(3), vertex(4)
	announceChannel(t, r, scid(10), a, b, 5000, 0)
	announceChannel(t, r, scid(11), b, c, 3000, 0)

	hints := [][]HopHint{{{
		NodeID:          c,
		ShortChannelID:  scid(99),
		FeeBaseMsat:     2,
		CLTVExpiryDelta: 9,
	}}}

	resp, err := r.FindRoute(a, d, 1000, hints, nil, nil)
	if err != nil {
		t.Fatalf("FindRoute with hints: %v", err)
	}
	if len(resp.Hops) != 3 {
		t.Fatalf("expected 3 hops, got %s", spew.Sdump(resp.Hops))
	}
	last := resp.Hops[2]
	if last.A != c || last.B != d {
		t.Fatalf("expected final hop c->d, got %s", spew.Sdump(last))
	}

	// The overlay must not leak into the base graph.
	if _, err := r.FindRoute(a, d, 1000, nil, nil, nil); err != ErrRouteNotFound {
		t.Fatalf("expected ErrRouteNotFound without hints, got %v", err)
	}
}

func TestIgnoreNodesBlacklistsAllTouchingChannels(t *testing.T) {
	r := newTestRouter(t)

	a, b, c := vertex(1), vertex(2), vertex(3)
	announceChannel(t, r, scid(10), a, b, 5000, 0)
	announceChannel(t, r, scid(11), b, c, 3000, 0)

	ignore := map[route.Vertex]struct{}{b: {}}
	if _, err := r.FindRoute(a, c, 1000, nil, ignore, nil); err != ErrRouteNotFound {
		t.Fatalf("expected ErrRouteNotFound with b ignored, got %v", err)
	}

	// Without the blacklist the path still exists.
	if _, err := r.FindRoute(a, c, 1000, nil, nil, nil); err != nil {
		t.Fatalf("FindRoute without blacklist: %v", err)
	}
}

func TestIgnoreChannelsForgetsChannel(t *testing.T) {
	r := newTestRouter(t)

	a, b := vertex(1), vertex(2)
	id := scid(10)
	announceChannel(t, r, id, a, b, 1000, 0)

	ignore := map[lnwire.ShortChannelID]struct{}{id: {}}
	if _, err := r.FindRoute(a, b, 1000, nil, nil, ignore); err != ErrRouteNotFound {
		t.Fatalf("expected ErrRouteNotFound with channel ignored, got %v", err)
	}

	// The ignored channel is treated as spent and dropped outright.
	waitForChannels(t, r, 0)
}

func TestExcludeChannelRemovesFromPathFinding(t *testing.T) {
	r := newTestRouter(t)

	a, b := vertex(1), vertex(2)
	id := scid(4000)
	announceChannel(t, r, id, a, b, 1000, 100)

	desc := route.ChannelDesc{ShortChannelID: id, A: a, B: b}
	if err := r.ExcludeChannel(desc); err != nil {
		t.Fatalf("ExcludeChannel: %v", err)
	}

	if _, err := r.FindRoute(a, b, 1000, nil, nil, nil); err != ErrRouteNotFound {
		t.Fatalf("expected ErrRouteNotFound after exclusion, got %v", err)
	}

	if err := r.LiftChannelExclusion(desc); err != nil {
		t.Fatalf("LiftChannelExclusion: %v", err)
	}
	if _, err := r.FindRoute(a, b, 1000, nil, nil, nil); err != nil {
		t.Fatalf("FindRoute after lift: %v", err)
	}
}

func TestExclusionLiftsAutomatically(t *testing.T) {
	r := newTestRouter(t, func(cfg *Config) {
		cfg.ChannelExcludeDuration = 100 * time.Millisecond
	})

	a, b := vertex(1), vertex(2)
	id := scid(4100)
	announceChannel(t, r, id, a, b, 1000, 100)

	desc := route.ChannelDesc{ShortChannelID: id, A: a, B: b}
	if err := r.ExcludeChannel(desc); err != nil {
		t.Fatalf("ExcludeChannel: %v", err)
	}
	if _, err := r.FindRoute(a, b, 1000, nil, nil, nil); err != ErrRouteNotFound {
		t.Fatalf("expected ErrRouteNotFound right after exclusion, got %v", err)
	}

	waitFor(t, func() bool {
		_, err := r.FindRoute(a, b, 1000, nil, nil, nil)
		return err == nil
	})
}

func TestLocalChannelUpdateAndDown(t *testing.T) {
	r := newTestRouter(t)

	local := r.cfg.NodeID
	remote := vertex(7)
	id := scid(5000)

	u := testUpdate(id, 0, 200, 20, 1)
	if err := r.UpdateLocalChannel(id, remote, nil, u); err != nil {
		t.Fatalf("UpdateLocalChannel: %v", err)
	}

	resp, err := r.FindRoute(local, remote, 1000, nil, nil, nil)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	if len(resp.Hops) != 1 {
		t.Fatalf("expected 1 hop, got %d", len(resp.Hops))
	}

	if err := r.RemoveLocalChannel(id); err != nil {
		t.Fatalf("RemoveLocalChannel: %v", err)
	}
	if _, err := r.FindRoute(local, remote, 1000, nil, nil, nil); err != ErrRouteNotFound {
		t.Fatalf("expected ErrRouteNotFound after RemoveLocalChannel, got %v", err)
	}
}

func TestPublicAnnouncementSupersedesPrivateChannel(t *testing.T) {
	r := newTestRouter(t)

	local := r.cfg.NodeID
	remote := vertex(7)
	id := scid(5100)

	if err := r.UpdateLocalChannel(id, remote, nil, testUpdate(id, 0, 200, 20, 1)); err != nil {
		t.Fatalf("UpdateLocalChannel: %v", err)
	}

	if err := r.ProcessChannelAnnouncement(vertex(0xF0), testAnnouncement(id, local, remote)); err != nil {
		t.Fatalf("ProcessChannelAnnouncement: %v", err)
	}
	waitForChannels(t, r, 1)

	r.Stop()
	if len(r.st.privateChannels) != 0 {
		t.Fatalf("expected private channel record removed, got %d entries",
			len(r.st.privateChannels))
	}
	if len(r.st.privateUpdates) != 0 {
		t.Fatalf("expected private updates removed, got %d entries",
			len(r.st.privateUpdates))
	}
}

func TestLocalUpdateForAwaitingChannelStaysPublic(t *testing.T) {
	gate := &gateValidator{release: make(chan struct{})}
	r := newTestRouter(t, func(cfg *Config) { cfg.Validator = gate })

	local := r.cfg.NodeID
	remote := vertex(7)
	id := scid(5200)
	ann := testAnnouncement(id, local, remote)

	if err := r.ProcessChannelAnnouncement(vertex(0xF0), ann); err != nil {
		t.Fatalf("ProcessChannelAnnouncement: %v", err)
	}

	// The local update arrives while the announcement is still under
	// validation: it must join the public track, not fork a private
	// channel record.
	if err := r.UpdateLocalChannel(id, remote, ann, testUpdate(id, 0, 200, 20, 1)); err != nil {
		t.Fatalf("UpdateLocalChannel: %v", err)
	}

	close(gate.release)
	waitForChannels(t, r, 1)

	waitFor(t, func() bool {
		_, err := r.FindRoute(local, remote, 1000, nil, nil, nil)
		return err == nil
	})

	r.Stop()
	if len(r.st.privateChannels) != 0 {
		t.Fatalf("awaiting channel forked into a private record, got %d entries",
			len(r.st.privateChannels))
	}
	if len(r.st.privateUpdates) != 0 {
		t.Fatalf("awaiting channel's update landed in privateUpdates, got %d entries",
			len(r.st.privateUpdates))
	}
	desc := route.ChannelDesc{ShortChannelID: id, A: local, B: remote}
	if _, ok := r.st.updates[desc]; !ok {
		t.Fatalf("stashed local update never reached the public update set")
	}
}

func TestNodeAnnouncementLifecycle(t *testing.T) {
	r := newTestRouter(t)

	a, b := vertex(1), vertex(2)

	nodeAnn := func(v route.Vertex, ts uint32) *lnwire.NodeAnnouncement {
		return &lnwire.NodeAnnouncement{NodeID: v, Timestamp: ts}
	}

	// No channel names a yet: the announcement is dropped.
	if err := r.ProcessNodeAnnouncement(vertex(0xF0), nodeAnn(a, 1)); err != nil {
		t.Fatalf("ProcessNodeAnnouncement: %v", err)
	}
	st, _ := r.GetRoutingState()
	if st.NodeCount != 0 {
		t.Fatalf("expected no nodes before any channel, got %d", st.NodeCount)
	}

	announceChannel(t, r, scid(6000), a, b, 1000, 0)

	if err := r.ProcessNodeAnnouncement(vertex(0xF0), nodeAnn(a, 2)); err != nil {
		t.Fatalf("ProcessNodeAnnouncement: %v", err)
	}
	st, _ = r.GetRoutingState()
	if st.NodeCount != 1 {
		t.Fatalf("expected 1 node after channel accepted, got %d", st.NodeCount)
	}

	if err := r.ProcessNodeAnnouncement(vertex(0xF0), nodeAnn(a, 2)); err != ErrOutdatedUpdate {
		t.Fatalf("expected ErrOutdatedUpdate for replayed announcement, got %v", err)
	}
	if err := r.ProcessNodeAnnouncement(vertex(0xF0), nodeAnn(a, 3)); err != nil {
		t.Fatalf("newer node announcement rejected: %v", err)
	}
}

func TestNodeAnnouncementStashedWhileChannelAwaiting(t *testing.T) {
	gate := &gateValidator{release: make(chan struct{})}
	r := newTestRouter(t, func(cfg *Config) { cfg.Validator = gate })

	a, b := vertex(1), vertex(2)

	if err := r.ProcessChannelAnnouncement(vertex(0xF0), testAnnouncement(scid(6100), a, b)); err != nil {
		t.Fatalf("ProcessChannelAnnouncement: %v", err)
	}

	if err := r.ProcessNodeAnnouncement(vertex(0xF0), &lnwire.NodeAnnouncement{NodeID: a, Timestamp: 1}); err != nil {
		t.Fatalf("ProcessNodeAnnouncement: %v", err)
	}

	close(gate.release)

	waitFor(t, func() bool {
		st, err := r.GetRoutingState()
		return err == nil && st.NodeCount == 1
	})
}

func TestPruneStaleChannel(t *testing.T) {
	r := newTestRouter(t)

	a, b := vertex(1), vertex(2)
	id := scid(100)
	if err := r.ProcessChannelAnnouncement(vertex(0xF0), testAnnouncement(id, a, b)); err != nil {
		t.Fatalf("ProcessChannelAnnouncement: %v", err)
	}
	waitForChannels(t, r, 1)

	// One block short of the threshold: nothing to prune.
	if err := r.TickPruneStaleChannels(100 + staleBlockThreshold); err != nil {
		t.Fatalf("TickPruneStaleChannels: %v", err)
	}
	st, _ := r.GetRoutingState()
	if st.ChannelCount != 1 {
		t.Fatalf("channel pruned before its funding aged out")
	}

	if err := r.TickPruneStaleChannels(100 + staleBlockThreshold + 1); err != nil {
		t.Fatalf("TickPruneStaleChannels: %v", err)
	}

	st, err := r.GetRoutingState()
	if err != nil {
		t.Fatalf("GetRoutingState: %v", err)
	}
	if st.ChannelCount != 0 {
		t.Fatalf("expected channel to be pruned, count=%d", st.ChannelCount)
	}
}

func TestRecentUpdateKeepsOldChannelAlive(t *testing.T) {
	r := newTestRouter(t)

	a, b := vertex(1), vertex(2)
	id := scid(100)
	if err := r.ProcessChannelAnnouncement(vertex(0xF0), testAnnouncement(id, a, b)); err != nil {
		t.Fatalf("ProcessChannelAnnouncement: %v", err)
	}
	waitForChannels(t, r, 1)

	u := testUpdate(id, 0, 1000, 0, uint32(time.Now().Unix()))
	if err := r.ProcessChannelUpdate(vertex(0xF0), u); err != nil {
		t.Fatalf("ProcessChannelUpdate: %v", err)
	}

	if err := r.TickPruneStaleChannels(100 + staleBlockThreshold + 1); err != nil {
		t.Fatalf("TickPruneStaleChannels: %v", err)
	}

	st, _ := r.GetRoutingState()
	if st.ChannelCount != 1 {
		t.Fatalf("fresh update must keep an old channel alive")
	}
}

func TestSyncDiffRequestsMissingChannels(t *testing.T) {
	r := newTestRouter(t)

	a, b := vertex(1), vertex(2)
	for _, height := range []uint32{1, 2, 3, 5} {
		if err := r.ProcessChannelAnnouncement(vertex(0xF0), testAnnouncement(scid(height), a, b)); err != nil {
			t.Fatalf("ProcessChannelAnnouncement: %v", err)
		}
	}
	waitForChannels(t, r, 4)

	client, err := r.cfg.Notifier.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer client.Cancel()

	reply := &lnwire.ReplyChannelRange{
		QueryChannelRange: lnwire.QueryChannelRange{
			ChainHash:        r.cfg.ChainHash,
			FirstBlockHeight: 0,
			NumBlocks:        10,
		},
		Complete:     1,
		ShortChanIDs: []lnwire.ShortChannelID{scid(2), scid(4), scid(5), scid(7)},
	}
	if err := r.ProcessReplyChannelRange(vertex(0xF0), reply); err != nil {
		t.Fatalf("ProcessReplyChannelRange: %v", err)
	}

	select {
	case ev := <-client.Updates():
		attempt, ok := ev.(sendQueryAttempt)
		if !ok {
			t.Fatalf("expected sendQueryAttempt, got %T", ev)
		}
		query, ok := attempt.Query.(*lnwire.QueryShortChannelID)
		if !ok {
			t.Fatalf("expected QueryShortChannelID, got %T", attempt.Query)
		}
		want := []lnwire.ShortChannelID{scid(4), scid(7)}
		if len(query.ShortChanIDs) != len(want) {
			t.Fatalf("expected ids %v, got %v", want, query.ShortChanIDs)
		}
		for i, id := range want {
			if query.ShortChanIDs[i] != id {
				t.Fatalf("expected ids %v, got %v", want, query.ShortChanIDs)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no QueryShortChannelID emitted")
	}
}

// recordingPeerNotifier captures every message the router sends towards
// a peer transport.
type recordingPeerNotifier struct {
	sent chan interface{}
}

func (p *recordingPeerNotifier) SendMessage(peer PeerID, msg interface{}) error {
	p.sent <- msg
	return nil
}

func TestPeerNotifierCarriesOutboundQueries(t *testing.T) {
	peers := &recordingPeerNotifier{sent: make(chan interface{}, 4)}
	r := newTestRouter(t, func(cfg *Config) { cfg.PeerNotifier = peers })

	if err := r.SendChannelQuery(vertex(0xF0)); err != nil {
		t.Fatalf("SendChannelQuery: %v", err)
	}

	select {
	case msg := <-peers.sent:
		if _, ok := msg.(*lnwire.QueryChannelRange); !ok {
			t.Fatalf("expected QueryChannelRange, got %T", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no QueryChannelRange sent to peer notifier")
	}

	reply := &lnwire.ReplyChannelRange{
		QueryChannelRange: lnwire.QueryChannelRange{
			ChainHash: r.cfg.ChainHash,
			NumBlocks: 10,
		},
		Complete:     1,
		ShortChanIDs: []lnwire.ShortChannelID{scid(4)},
	}
	if err := r.ProcessReplyChannelRange(vertex(0xF0), reply); err != nil {
		t.Fatalf("ProcessReplyChannelRange: %v", err)
	}

	select {
	case msg := <-peers.sent:
		query, ok := msg.(*lnwire.QueryShortChannelID)
		if !ok {
			t.Fatalf("expected QueryShortChannelID, got %T", msg)
		}
		if len(query.ShortChanIDs) != 1 || query.ShortChanIDs[0] != scid(4) {
			t.Fatalf("unexpected ids: %v", query.ShortChanIDs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no QueryShortChannelID sent to peer notifier")
	}
}

func TestRouterShuttingDownRejectsEvents(t *testing.T) {
	r := newTestRouter(t)
	r.Stop()

	if _, err := r.GetRoutingState(); err != ErrRouterShuttingDown {
		t.Fatalf("expected ErrRouterShuttingDown, got %v", err)
	}
}
