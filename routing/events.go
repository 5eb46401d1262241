package routing

import (
	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
)

// routerEvent is the sum type carried over the router's single event
// channel. Every public method on ChannelRouter constructs one of these,
// sends it, and blocks on a reply channel embedded in the event.
type routerEvent interface {
	isRouterEvent()
}

// gossipReply is embedded in every event that expects a result back from
// the event loop.
type gossipReply struct {
	errChan chan error
}

func newGossipReply() gossipReply {
	return gossipReply{errChan: make(chan error, 1)}
}

// channelAnnouncementEvent carries an inbound ChannelAnnouncement plus
// the peer that delivered it.
type channelAnnouncementEvent struct {
	gossipReply
	Peer PeerID
	Ann  *lnwire.ChannelAnnouncement
}

func (*channelAnnouncementEvent) isRouterEvent() {}

// channelUpdateEvent carries an inbound public ChannelUpdate.
type channelUpdateEvent struct {
	gossipReply
	Peer   PeerID
	Update *lnwire.ChannelUpdate
}

func (*channelUpdateEvent) isRouterEvent() {}

// nodeAnnouncementEvent carries an inbound NodeAnnouncement.
type nodeAnnouncementEvent struct {
	gossipReply
	Peer PeerID
	Ann  *lnwire.NodeAnnouncement
}

func (*nodeAnnouncementEvent) isRouterEvent() {}

// localChannelUpdateEvent installs or refreshes the forwarding policy
// for one of our own channels. Ann, when non-nil, is the channel's own
// announcement: it ties the update to the public track even while the
// announcement is still under validation, so the channel never forks
// into a duplicate private record.
type localChannelUpdateEvent struct {
	gossipReply
	ShortChannelID lnwire.ShortChannelID
	RemoteNode     route.Vertex
	Ann            *lnwire.ChannelAnnouncement
	Update         *lnwire.ChannelUpdate
}

func (*localChannelUpdateEvent) isRouterEvent() {}

// localChannelDownEvent retires a private channel edge, e.g. on peer
// disconnect or cooperative close.
type localChannelDownEvent struct {
	gossipReply
	ShortChannelID lnwire.ShortChannelID
}

func (*localChannelDownEvent) isRouterEvent() {}

// externalFundingSpentEvent reports that a channel's funding output was
// spent on-chain, independent of gossip.
type externalFundingSpentEvent struct {
	gossipReply
	ShortChannelID lnwire.ShortChannelID
}

func (*externalFundingSpentEvent) isRouterEvent() {}

// tickBroadcastEvent is the periodic, currently no-op broadcast tick;
// it exists so an owning process can drive the router's
// clock without reaching into its internals.
type tickBroadcastEvent struct {
	gossipReply
}

func (*tickBroadcastEvent) isRouterEvent() {}

// tickPruneStaleChannelsEvent triggers one staleness sweep.
type tickPruneStaleChannelsEvent struct {
	gossipReply
	BestHeight uint32
}

func (*tickPruneStaleChannelsEvent) isRouterEvent() {}

// excludeChannelEvent temporarily removes a channel from path-finding
// consideration.
type excludeChannelEvent struct {
	gossipReply
	Desc route.ChannelDesc
}

func (*excludeChannelEvent) isRouterEvent() {}

// liftChannelExclusionEvent reverses a prior excludeChannelEvent.
type liftChannelExclusionEvent struct {
	gossipReply
	Desc route.ChannelDesc
}

func (*liftChannelExclusionEvent) isRouterEvent() {}

// HopHint is one hop of an assisted route: the private channel policy a
// payee shares so a route can bridge its unannounced final legs. NodeID
// is the hop's entry node; the hop's exit node is the next hint's
// NodeID, or the route target for the last hint.
type HopHint struct {
	NodeID                    route.Vertex
	ShortChannelID            lnwire.ShortChannelID
	FeeBaseMsat               uint32
	FeeProportionalMillionths uint32
	CLTVExpiryDelta           uint16
}

// routeRequestEvent asks the router to compute a path.
type routeRequestEvent struct {
	gossipReply
	Source, Target route.Vertex
	AmountMsat     int64
	AssistedRoutes [][]HopHint
	IgnoreNodes    map[route.Vertex]struct{}
	IgnoreChannels map[lnwire.ShortChannelID]struct{}
	reply          chan routeReply
}

func (*routeRequestEvent) isRouterEvent() {}

type routeReply struct {
	Response *RouteResponse
	Err      error
}

// RouteResponse is the successful result of a route request: the hop
// sequence plus the caller's own blacklists echoed back for retry
// bookkeeping.
type RouteResponse struct {
	Hops           []route.Hop
	IgnoreNodes    map[route.Vertex]struct{}
	IgnoreChannels map[lnwire.ShortChannelID]struct{}
}

// RoutingState is the point-in-time snapshot returned by GetRoutingState:
// the public node and channel sets plus the current forwarding policies,
// both as a flat list and keyed by directional descriptor. The update
// pointers are shared with live router state and must be treated as
// read-only.
type RoutingState struct {
	NodeCount    int
	ChannelCount int
	Nodes        []route.Vertex
	Channels     []lnwire.ShortChannelID
	Updates      []*lnwire.ChannelUpdate
	UpdatesMap   map[route.ChannelDesc]*lnwire.ChannelUpdate
}

// getRoutingStateEvent asks for an introspection snapshot.
type getRoutingStateEvent struct {
	gossipReply
	reply chan *RoutingState
}

func (*getRoutingStateEvent) isRouterEvent() {}

// sendChannelQueryEvent asks the router to emit a QueryChannelRange to a
// newly connected peer.
type sendChannelQueryEvent struct {
	gossipReply
	Peer PeerID
}

func (*sendChannelQueryEvent) isRouterEvent() {}

// queryChannelRangeEvent carries an inbound QueryChannelRange request
// from a peer.
type queryChannelRangeEvent struct {
	gossipReply
	Peer  PeerID
	Query *lnwire.QueryChannelRange
}

func (*queryChannelRangeEvent) isRouterEvent() {}

// replyChannelRangeEvent carries an inbound ReplyChannelRange from a
// peer we previously queried.
type replyChannelRangeEvent struct {
	gossipReply
	Peer  PeerID
	Reply *lnwire.ReplyChannelRange
}

func (*replyChannelRangeEvent) isRouterEvent() {}

// queryShortChanIDsEvent carries an inbound QueryShortChannelID request.
type queryShortChanIDsEvent struct {
	gossipReply
	Peer  PeerID
	Query *lnwire.QueryShortChannelID
}

func (*queryShortChanIDsEvent) isRouterEvent() {}

// channelAnnouncementValidatedEvent is posted back onto the event loop
// by the background goroutine handleChannelAnnouncement spawns to run
// signature verification off the loop.
type channelAnnouncementValidatedEvent struct {
	gossipReply
	ShortChannelID lnwire.ShortChannelID
	Ann            *lnwire.ChannelAnnouncement
	Err            error
}

func (*channelAnnouncementValidatedEvent) isRouterEvent() {}
