package routing

import (
	"github.com/breez/lnrouter/graph"
	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
	"github.com/google/btree"
)

// btreeDegree is the fan-out of the ordered channel index; 32 keeps
// the tree shallow for the channel counts a mobile-profile node
// carries.
const btreeDegree = 32

// channelItem adapts a ChannelAnnouncement into a btree.Item ordered by
// the unsigned 64-bit short-channel-id, so that channels iterate in
// ascending unsigned order.
type channelItem struct {
	id  lnwire.ShortChannelID
	ann *lnwire.ChannelAnnouncement
}

// Less implements btree.Item.
func (c channelItem) Less(than btree.Item) bool {
	return c.id.ToUint64() < than.(channelItem).id.ToUint64()
}

// channelIndex is the ordered channel map: short channel id to
// ChannelAnnouncement, iterable in ascending unsigned order.
type channelIndex struct {
	tree *btree.BTree
	// byID mirrors the tree's contents for O(1) point lookups; the tree
	// itself only offers ordered iteration and O(log n) membership.
	byID map[lnwire.ShortChannelID]*lnwire.ChannelAnnouncement
}

func newChannelIndex() *channelIndex {
	return &channelIndex{
		tree: btree.New(btreeDegree),
		byID: make(map[lnwire.ShortChannelID]*lnwire.ChannelAnnouncement),
	}
}

func (c *channelIndex) Get(id lnwire.ShortChannelID) (*lnwire.ChannelAnnouncement, bool) {
	ann, ok := c.byID[id]
	return ann, ok
}

func (c *channelIndex) Put(ann *lnwire.ChannelAnnouncement) {
	c.byID[ann.ShortChannelID] = ann
	c.tree.ReplaceOrInsert(channelItem{id: ann.ShortChannelID, ann: ann})
}

func (c *channelIndex) Delete(id lnwire.ShortChannelID) {
	delete(c.byID, id)
	c.tree.Delete(channelItem{id: id})
}

func (c *channelIndex) Len() int {
	return len(c.byID)
}

// Ascend calls fn for every channel in ascending unsigned short-channel-id
// order, stopping early if fn returns false.
func (c *channelIndex) Ascend(fn func(ann *lnwire.ChannelAnnouncement) bool) {
	c.tree.Ascend(func(i btree.Item) bool {
		return fn(i.(channelItem).ann)
	})
}

// stashedUpdate pairs a stashed ChannelUpdate with the set of peers who
// independently delivered it.
type stashedUpdate struct {
	update  *lnwire.ChannelUpdate
	senders map[PeerID]struct{}
}

// stashedNode pairs a stashed NodeAnnouncement with its origin set.
type stashedNode struct {
	ann     *lnwire.NodeAnnouncement
	senders map[PeerID]struct{}
}

// awaitingEntry records a ChannelAnnouncement under validation along
// with the ordered list of peers that delivered it; the first entry is
// the originator. Every delivery is acknowledged when its own event is
// handled, not when validation completes.
type awaitingEntry struct {
	ann     *lnwire.ChannelAnnouncement
	origins []PeerID
}

// state is the router's single mutable record. All reads and
// writes happen from the event loop goroutine; nothing here is
// synchronized internally.
type state struct {
	nodes map[route.Vertex]*lnwire.NodeAnnouncement

	// knownNodes is the set of node public keys named by at least one
	// accepted channel announcement, independent of whether that
	// channel currently has any enabled edge in the graph. A
	// NodeAnnouncement is only ever applied directly for a node in this
	// set; otherwise it's stashed while a channel under validation names
	// the node, and dropped if none does.
	knownNodes map[route.Vertex]struct{}

	channels *channelIndex

	updates map[route.ChannelDesc]*lnwire.ChannelUpdate

	awaiting map[lnwire.ShortChannelID]*awaitingEntry

	stashUpdates map[lnwire.ShortChannelID][]*stashedUpdate
	stashNodes   map[route.Vertex]*stashedNode

	privateChannels map[lnwire.ShortChannelID]route.Vertex
	privateUpdates  map[route.ChannelDesc]*lnwire.ChannelUpdate

	excludedChannels map[route.ChannelDesc]struct{}

	graph *graph.Graph
}

func newState() *state {
	return &state{
		nodes:            make(map[route.Vertex]*lnwire.NodeAnnouncement),
		knownNodes:       make(map[route.Vertex]struct{}),
		channels:         newChannelIndex(),
		updates:          make(map[route.ChannelDesc]*lnwire.ChannelUpdate),
		awaiting:         make(map[lnwire.ShortChannelID]*awaitingEntry),
		stashUpdates:     make(map[lnwire.ShortChannelID][]*stashedUpdate),
		stashNodes:       make(map[route.Vertex]*stashedNode),
		privateChannels:  make(map[lnwire.ShortChannelID]route.Vertex),
		privateUpdates:   make(map[route.ChannelDesc]*lnwire.ChannelUpdate),
		excludedChannels: make(map[route.ChannelDesc]struct{}),
		graph:            graph.New(),
	}
}

// descFor derives the ChannelDesc for a public ChannelUpdate given the
// channel's two announced node keys: direction bit 0 means node1 is the
// originator (desc.A), direction bit 1 means node2 is.
func descFor(u *lnwire.ChannelUpdate, node1, node2 route.Vertex) route.ChannelDesc {
	if u.Direction() == 0 {
		return route.ChannelDesc{ShortChannelID: u.ShortChannelID, A: node1, B: node2}
	}
	return route.ChannelDesc{ShortChannelID: u.ShortChannelID, A: node2, B: node1}
}

// privateDescFor derives the ChannelDesc for a private ChannelUpdate
// given the known (local, remote) pair.
func privateDescFor(u *lnwire.ChannelUpdate, local, remote route.Vertex) route.ChannelDesc {
	if u.Direction() == 0 {
		return route.ChannelDesc{ShortChannelID: u.ShortChannelID, A: local, B: remote}
	}
	return route.ChannelDesc{ShortChannelID: u.ShortChannelID, A: remote, B: local}
}

// descsFor returns the two possible directional descriptors for a
// channel announcement's endpoints.
func (r *ChannelRouter) descsFor(ann *lnwire.ChannelAnnouncement) []route.ChannelDesc {
	node1, err1 := route.NewVertexFromBytes(ann.NodeID1[:])
	node2, err2 := route.NewVertexFromBytes(ann.NodeID2[:])
	if err1 != nil || err2 != nil {
		return nil
	}
	return []route.ChannelDesc{
		{ShortChannelID: ann.ShortChannelID, A: node1, B: node2},
		{ShortChannelID: ann.ShortChannelID, A: node2, B: node1},
	}
}
