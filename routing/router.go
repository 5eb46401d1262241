package routing

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
	"github.com/go-errors/errors"
	"golang.org/x/time/rate"
)

// defaultMaxUndelayedQueryReplies and defaultDelayedQueryReplyInterval
// govern the query-reply rate limiter: a small free burst per peer,
// then one delayed reply per interval.
const (
	defaultMaxUndelayedQueryReplies  = 5
	defaultDelayedQueryReplyInterval = 5 * time.Second
)

// eventBacklog bounds the router's inbound event channel. A mobile-
// profile node processes gossip far slower than it arrives over a
// handful of peer connections; this just keeps a burst from blocking
// the callers synchronously before the event loop catches up.
const eventBacklog = 100

// ChannelRouter is a single-consumer state machine that ingests gossip,
// maintains a directed channel graph, answers path-finding queries, and
// serves peer channel-range/short-channel-id sync requests. Every method
// below constructs a routerEvent, hands it to the single internal event
// loop goroutine, and waits for the loop's reply.
type ChannelRouter struct {
	started int32
	stopped int32

	cfg Config

	st      *state
	metrics Metrics

	// queryLimiters throttles how quickly we reply to gossip queries
	// from each peer, guarding against a peer spamming us with range or
	// short-channel-id queries.
	queryLimiters map[PeerID]*rate.Limiter

	events chan routerEvent
	quit   chan struct{}
	wg     sync.WaitGroup
}

// NewChannelRouter creates a ChannelRouter from cfg. Call Start before
// submitting any events.
func NewChannelRouter(cfg Config) (*ChannelRouter, error) {
	cfg.setDefaults()

	if cfg.Store == nil {
		return nil, errors.New("routing: Config.Store is required")
	}
	if cfg.Validator == nil {
		return nil, errors.New("routing: Config.Validator is required")
	}

	return &ChannelRouter{
		cfg:           cfg,
		st:            newState(),
		queryLimiters: make(map[PeerID]*rate.Limiter),
		events:        make(chan routerEvent, eventBacklog),
		quit:          make(chan struct{}),
	}, nil
}

// Start loads the persisted graph (unless disabled) and launches the
// event loop.
func (r *ChannelRouter) Start() error {
	if !atomic.CompareAndSwapInt32(&r.started, 0, 1) {
		return nil
	}

	if err := r.cfg.Notifier.Start(); err != nil {
		return err
	}

	if !r.cfg.NoGraphUpdatingOnStartup {
		if err := r.loadGraph(); err != nil {
			return err
		}
	}

	r.wg.Add(1)
	go r.eventLoop()

	log.Infof("Channel router started, %d channels, %d nodes",
		r.st.channels.Len(), len(r.st.nodes))

	return nil
}

// Stop signals the event loop to exit and waits for it to finish. Any
// event submitted after Stop returns ErrRouterShuttingDown.
func (r *ChannelRouter) Stop() error {
	if !atomic.CompareAndSwapInt32(&r.stopped, 0, 1) {
		return nil
	}

	close(r.quit)
	r.wg.Wait()

	return r.cfg.Notifier.Stop()
}

// loadGraph rebuilds the in-memory graph and node set from the
// persistence store. Node announcements
// are intentionally not restored: the store only keeps the latest one
// per node for introspection, and the graph itself carries no
// node-level weight, so omitting them here costs nothing but a slower
// first NodeDiscovered fan-out once gossip resumes.
func (r *ChannelRouter) loadGraph() error {
	channels, err := r.cfg.Store.ListChannels()
	if err != nil {
		return err
	}
	for _, ann := range channels {
		r.st.channels.Put(ann)

		if node1, err := route.NewVertexFromBytes(ann.NodeID1[:]); err == nil {
			r.st.knownNodes[node1] = struct{}{}
		}
		if node2, err := route.NewVertexFromBytes(ann.NodeID2[:]); err == nil {
			r.st.knownNodes[node2] = struct{}{}
		}
	}

	updates, err := r.cfg.Store.ListChannelUpdates()
	if err != nil {
		return err
	}
	for _, u := range updates {
		ann, ok := r.st.channels.Get(u.ShortChannelID)
		if !ok {
			continue
		}
		node1, err := route.NewVertexFromBytes(ann.NodeID1[:])
		if err != nil {
			continue
		}
		node2, err := route.NewVertexFromBytes(ann.NodeID2[:])
		if err != nil {
			continue
		}
		desc := descFor(u, node1, node2)
		r.st.updates[desc] = u
		r.st.graph.AddEdge(desc, u)
	}

	return nil
}

// submit hands ev to the event loop and waits for its error reply. It is
// the synchronous half of every public method below.
func (r *ChannelRouter) submit(ev routerEvent, errChan chan error) error {
	select {
	case r.events <- ev:
	case <-r.quit:
		return ErrRouterShuttingDown
	}

	select {
	case err := <-errChan:
		return err
	case <-r.quit:
		return ErrRouterShuttingDown
	}
}

func (r *ChannelRouter) eventLoop() {
	defer r.wg.Done()

	for {
		select {
		case ev := <-r.events:
			r.handleEvent(ev)

		case <-r.quit:
			return
		}
	}
}

func (r *ChannelRouter) handleEvent(ev routerEvent) {
	switch e := ev.(type) {
	case *channelAnnouncementEvent:
		e.errChan <- r.handleChannelAnnouncement(e)
	case *channelUpdateEvent:
		e.errChan <- r.handleChannelUpdate(e)
	case *nodeAnnouncementEvent:
		e.errChan <- r.handleNodeAnnouncement(e)
	case *localChannelUpdateEvent:
		e.errChan <- r.handleLocalChannelUpdate(e)
	case *localChannelDownEvent:
		e.errChan <- r.handleLocalChannelDown(e)
	case *externalFundingSpentEvent:
		e.errChan <- r.handleExternalFundingSpent(e)
	case *tickBroadcastEvent:
		e.errChan <- nil
	case *tickPruneStaleChannelsEvent:
		e.errChan <- r.handlePruneStaleChannels(e)
	case *excludeChannelEvent:
		r.st.excludedChannels[e.Desc] = struct{}{}
		r.scheduleExclusionLift(e.Desc)
		e.errChan <- nil
	case *liftChannelExclusionEvent:
		delete(r.st.excludedChannels, e.Desc)
		e.errChan <- nil
	case *routeRequestEvent:
		resp, err := r.handleRouteRequest(e)
		if err != nil {
			r.metrics.RouteRequestsFailed++
		} else {
			r.metrics.RouteRequestsServed++
		}
		e.reply <- routeReply{Response: resp, Err: err}
		r.forgetIgnoredChannels(e.IgnoreChannels)
		e.errChan <- nil
	case *getRoutingStateEvent:
		e.reply <- r.snapshotState()
		e.errChan <- nil
	case *sendChannelQueryEvent:
		e.errChan <- r.handleSendChannelQuery(e)
	case *queryChannelRangeEvent:
		e.errChan <- r.handleQueryChannelRange(e)
	case *replyChannelRangeEvent:
		e.errChan <- r.handleReplyChannelRange(e)
	case *queryShortChanIDsEvent:
		e.errChan <- r.handleQueryShortChanIDs(e)
	case *channelAnnouncementValidatedEvent:
		e.errChan <- r.handleChannelAnnouncementValidated(e)
	case *getMetricsEvent:
		e.reply <- r.metrics
		e.errChan <- nil
	default:
		log.Errorf("unhandled router event %T", ev)
	}
}

// ProcessChannelAnnouncement feeds an inbound ChannelAnnouncement from
// peer into the router.
func (r *ChannelRouter) ProcessChannelAnnouncement(peer PeerID, ann *lnwire.ChannelAnnouncement) error {
	ev := &channelAnnouncementEvent{gossipReply: newGossipReply(), Peer: peer, Ann: ann}
	return r.submit(ev, ev.errChan)
}

// ProcessChannelUpdate feeds an inbound public ChannelUpdate into the
// router.
func (r *ChannelRouter) ProcessChannelUpdate(peer PeerID, u *lnwire.ChannelUpdate) error {
	ev := &channelUpdateEvent{gossipReply: newGossipReply(), Peer: peer, Update: u}
	return r.submit(ev, ev.errChan)
}

// ProcessNodeAnnouncement feeds an inbound NodeAnnouncement into the
// router.
func (r *ChannelRouter) ProcessNodeAnnouncement(peer PeerID, ann *lnwire.NodeAnnouncement) error {
	ev := &nodeAnnouncementEvent{gossipReply: newGossipReply(), Peer: peer, Ann: ann}
	return r.submit(ev, ev.errChan)
}

// UpdateLocalChannel installs or refreshes the forwarding policy for one
// of our own channels. ann is optional: when the channel has (or is
// validating) a public announcement, passing it keeps the update on the
// public track instead of creating a private record.
func (r *ChannelRouter) UpdateLocalChannel(scid lnwire.ShortChannelID, remote route.Vertex, ann *lnwire.ChannelAnnouncement, u *lnwire.ChannelUpdate) error {
	ev := &localChannelUpdateEvent{
		gossipReply:    newGossipReply(),
		ShortChannelID: scid,
		RemoteNode:     remote,
		Ann:            ann,
		Update:         u,
	}
	return r.submit(ev, ev.errChan)
}

// RemoveLocalChannel retires a private channel.
func (r *ChannelRouter) RemoveLocalChannel(scid lnwire.ShortChannelID) error {
	ev := &localChannelDownEvent{gossipReply: newGossipReply(), ShortChannelID: scid}
	return r.submit(ev, ev.errChan)
}

// NotifyFundingSpent reports an on-chain spend of a channel's funding
// output, independent of gossip.
func (r *ChannelRouter) NotifyFundingSpent(scid lnwire.ShortChannelID) error {
	ev := &externalFundingSpentEvent{gossipReply: newGossipReply(), ShortChannelID: scid}
	return r.submit(ev, ev.errChan)
}

// TickBroadcast drives the router's periodic broadcast tick.
func (r *ChannelRouter) TickBroadcast() error {
	ev := &tickBroadcastEvent{gossipReply: newGossipReply()}
	return r.submit(ev, ev.errChan)
}

// TickPruneStaleChannels drives one staleness sweep as of bestHeight.
func (r *ChannelRouter) TickPruneStaleChannels(bestHeight uint32) error {
	ev := &tickPruneStaleChannelsEvent{gossipReply: newGossipReply(), BestHeight: bestHeight}
	return r.submit(ev, ev.errChan)
}

// ExcludeChannel temporarily removes desc from path-finding consideration.
func (r *ChannelRouter) ExcludeChannel(desc route.ChannelDesc) error {
	ev := &excludeChannelEvent{gossipReply: newGossipReply(), Desc: desc}
	return r.submit(ev, ev.errChan)
}

// LiftChannelExclusion reverses a prior ExcludeChannel.
func (r *ChannelRouter) LiftChannelExclusion(desc route.ChannelDesc) error {
	ev := &liftChannelExclusionEvent{gossipReply: newGossipReply(), Desc: desc}
	return r.submit(ev, ev.errChan)
}

// FindRoute computes a path from source to target, honoring the caller's
// assisted routes, ignoreNodes and ignoreChannels. amountMsat is carried
// on the request but does not affect path selection: edge weights are
// the fee for a fixed reference amount.
// Ignored channels are additionally dropped from the graph outright:
// the payment layer only blacklists a channel once it has concluded
// the channel is dead.
func (r *ChannelRouter) FindRoute(
	source, target route.Vertex,
	amountMsat int64,
	assistedRoutes [][]HopHint,
	ignoreNodes map[route.Vertex]struct{},
	ignoreChannels map[lnwire.ShortChannelID]struct{},
) (*RouteResponse, error) {

	ev := &routeRequestEvent{
		gossipReply:    newGossipReply(),
		Source:         source,
		Target:         target,
		AmountMsat:     amountMsat,
		AssistedRoutes: assistedRoutes,
		IgnoreNodes:    ignoreNodes,
		IgnoreChannels: ignoreChannels,
		reply:          make(chan routeReply, 1),
	}

	if err := r.submit(ev, ev.errChan); err != nil {
		return nil, err
	}

	rep := <-ev.reply
	return rep.Response, rep.Err
}

// GetRoutingState returns a snapshot of the router's current graph size
// and membership.
func (r *ChannelRouter) GetRoutingState() (*RoutingState, error) {
	ev := &getRoutingStateEvent{gossipReply: newGossipReply(), reply: make(chan *RoutingState, 1)}
	if err := r.submit(ev, ev.errChan); err != nil {
		return nil, err
	}
	return <-ev.reply, nil
}

// SendChannelQuery asks the router to emit a QueryChannelRange towards a
// newly connected peer.
func (r *ChannelRouter) SendChannelQuery(peer PeerID) error {
	ev := &sendChannelQueryEvent{gossipReply: newGossipReply(), Peer: peer}
	return r.submit(ev, ev.errChan)
}

// ProcessQueryChannelRange handles an inbound QueryChannelRange from
// peer.
func (r *ChannelRouter) ProcessQueryChannelRange(peer PeerID, q *lnwire.QueryChannelRange) error {
	ev := &queryChannelRangeEvent{gossipReply: newGossipReply(), Peer: peer, Query: q}
	return r.submit(ev, ev.errChan)
}

// ProcessReplyChannelRange handles an inbound ReplyChannelRange from a
// peer we previously queried.
func (r *ChannelRouter) ProcessReplyChannelRange(peer PeerID, reply *lnwire.ReplyChannelRange) error {
	ev := &replyChannelRangeEvent{gossipReply: newGossipReply(), Peer: peer, Reply: reply}
	return r.submit(ev, ev.errChan)
}

// ProcessQueryShortChanIDs handles an inbound QueryShortChannelID from
// peer.
func (r *ChannelRouter) ProcessQueryShortChanIDs(peer PeerID, q *lnwire.QueryShortChannelID) error {
	ev := &queryShortChanIDsEvent{gossipReply: newGossipReply(), Peer: peer, Query: q}
	return r.submit(ev, ev.errChan)
}

// scheduleExclusionLift arranges for desc's exclusion to be lifted
// after the configured ban duration. Fire-and-forget: a restart drops
// pending lifts along with the exclusions themselves.
func (r *ChannelRouter) scheduleExclusionLift(desc route.ChannelDesc) {
	go func() {
		select {
		case <-time.After(r.cfg.ChannelExcludeDuration):
		case <-r.quit:
			return
		}

		ev := &liftChannelExclusionEvent{gossipReply: newGossipReply(), Desc: desc}
		select {
		case r.events <- ev:
		case <-r.quit:
		}
	}()
}

// limiterFor returns peer's query-reply rate limiter, creating one with
// the default budget on first use.
func (r *ChannelRouter) limiterFor(peer PeerID) *rate.Limiter {
	l, ok := r.queryLimiters[peer]
	if !ok {
		l = rate.NewLimiter(
			rate.Every(defaultDelayedQueryReplyInterval),
			defaultMaxUndelayedQueryReplies,
		)
		r.queryLimiters[peer] = l
	}
	return l
}

// deliverQuery hands msg to the peer transport when one is wired in,
// falling back to publishing a sendQueryAttempt on the event bus for
// deployments that bridge outbound queries themselves.
func (r *ChannelRouter) deliverQuery(peer PeerID, msg interface{}) error {
	if r.cfg.PeerNotifier != nil {
		return r.cfg.PeerNotifier.SendMessage(peer, msg)
	}
	return r.cfg.Notifier.SendUpdate(sendQueryAttempt{Peer: peer, Query: msg})
}

// sendQueryReply delivers msg towards peer, delaying the delivery if
// peer has exceeded its query-reply budget. The delay runs off the
// event loop goroutine since msg is already fully built and both
// delivery paths are safe for concurrent use.
func (r *ChannelRouter) sendQueryReply(peer PeerID, msg interface{}) error {
	reservation := r.limiterFor(peer).Reserve()
	delay := reservation.Delay()

	if delay <= 0 {
		return r.deliverQuery(peer, msg)
	}

	log.Debugf("rate limiting gossip reply to %v, responding in %s", peer, delay)

	go func() {
		select {
		case <-time.After(delay):
		case <-r.quit:
			return
		}
		r.deliverQuery(peer, msg)
	}()

	return nil
}

func (r *ChannelRouter) snapshotState() *RoutingState {
	st := &RoutingState{
		NodeCount:    len(r.st.nodes),
		ChannelCount: r.st.channels.Len(),
		Nodes:        make([]route.Vertex, 0, len(r.st.nodes)),
		Channels:     make([]lnwire.ShortChannelID, 0, r.st.channels.Len()),
		Updates:      make([]*lnwire.ChannelUpdate, 0, len(r.st.updates)),
		UpdatesMap:   make(map[route.ChannelDesc]*lnwire.ChannelUpdate, len(r.st.updates)),
	}
	for v := range r.st.nodes {
		st.Nodes = append(st.Nodes, v)
	}
	r.st.channels.Ascend(func(ann *lnwire.ChannelAnnouncement) bool {
		st.Channels = append(st.Channels, ann.ShortChannelID)
		return true
	})
	for desc, u := range r.st.updates {
		st.Updates = append(st.Updates, u)
		st.UpdatesMap[desc] = u
	}
	return st
}
