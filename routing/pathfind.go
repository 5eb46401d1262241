package routing

import (
	"container/heap"

	"github.com/breez/lnrouter/graph"
	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
)

// handleRouteRequest answers a route query: synthesize any assisted-route
// overlay edges, assemble the exclusion blacklist, clone the graph only
// when either is non-empty (so the common case pays nothing for
// isolation), and run Dijkstra from source to target.
func (r *ChannelRouter) handleRouteRequest(e *routeRequestEvent) (*RouteResponse, error) {
	blacklist := r.assembleBlacklist(e.IgnoreNodes, e.IgnoreChannels)

	g := r.st.graph
	if len(e.AssistedRoutes) > 0 || len(blacklist) > 0 {
		g = g.Clone()

		// Overlays beat existing edges: remove any real edge for the
		// desc before installing the synthetic one.
		for _, hints := range e.AssistedRoutes {
			for _, overlay := range r.overlayEdges(hints, e.Target) {
				g.RemoveEdge(overlay.desc)
				g.AddEdge(overlay.desc, overlay.update)
			}
		}

		for desc := range blacklist {
			g.RemoveEdge(desc)
		}
	}

	// Absent endpoints outrank a degenerate source == target request: a
	// query against an empty working graph is a routing miss, not a
	// self-payment attempt.
	if !g.HasVertex(e.Source) || !g.HasVertex(e.Target) {
		return nil, ErrRouteNotFound
	}

	if e.Source == e.Target {
		return nil, ErrCannotRouteToSelf
	}

	hops, err := shortestPath(g, e.Source, e.Target)
	if err != nil {
		return nil, err
	}

	return &RouteResponse{
		Hops:           hops,
		IgnoreNodes:    e.IgnoreNodes,
		IgnoreChannels: e.IgnoreChannels,
	}, nil
}

// overlayEdge pairs a synthetic desc with its unsigned hint update.
type overlayEdge struct {
	desc   route.ChannelDesc
	update *lnwire.ChannelUpdate
}

// overlayEdges converts one assisted route into synthetic directional
// edges: each hint's node pairs with the next hint's node, and the
// last with the route target. Hint updates are unsigned and always
// enabled.
func (r *ChannelRouter) overlayEdges(hints []HopHint, target route.Vertex) []overlayEdge {
	out := make([]overlayEdge, 0, len(hints))
	for i, h := range hints {
		next := target
		if i+1 < len(hints) {
			next = hints[i+1].NodeID
		}
		out = append(out, overlayEdge{
			desc: route.ChannelDesc{
				ShortChannelID: h.ShortChannelID,
				A:              h.NodeID,
				B:              next,
			},
			update: &lnwire.ChannelUpdate{
				ChainHash:      r.cfg.ChainHash,
				ShortChannelID: h.ShortChannelID,
				BaseFee:        h.FeeBaseMsat,
				FeeRate:        h.FeeProportionalMillionths,
				TimeLockDelta:  h.CLTVExpiryDelta,
			},
		})
	}
	return out
}

// assembleBlacklist merges the router's standing exclusions with both
// directional descriptors of every per-request ignored channel, and
// every descriptor touching an ignored node.
func (r *ChannelRouter) assembleBlacklist(
	ignoreNodes map[route.Vertex]struct{},
	ignoreChannels map[lnwire.ShortChannelID]struct{},
) map[route.ChannelDesc]struct{} {

	if len(r.st.excludedChannels) == 0 && len(ignoreChannels) == 0 && len(ignoreNodes) == 0 {
		return nil
	}

	blacklist := make(map[route.ChannelDesc]struct{})
	for desc := range r.st.excludedChannels {
		blacklist[desc] = struct{}{}
	}

	for scid := range ignoreChannels {
		for _, desc := range r.channelDescs(scid) {
			blacklist[desc] = struct{}{}
		}
	}

	if len(ignoreNodes) > 0 {
		collect := func(desc route.ChannelDesc) {
			if _, ok := ignoreNodes[desc.A]; ok {
				blacklist[desc] = struct{}{}
				return
			}
			if _, ok := ignoreNodes[desc.B]; ok {
				blacklist[desc] = struct{}{}
			}
		}
		for desc := range r.st.updates {
			collect(desc)
		}
		for desc := range r.st.privateUpdates {
			collect(desc)
		}
	}

	return blacklist
}

// channelDescs returns both directional descriptors of a channel known
// to the router, public or private, or nil for an unknown id.
func (r *ChannelRouter) channelDescs(scid lnwire.ShortChannelID) []route.ChannelDesc {
	if ann, ok := r.st.channels.Get(scid); ok {
		return r.descsFor(ann)
	}
	if remote, ok := r.st.privateChannels[scid]; ok {
		local := r.localNodeID()
		return []route.ChannelDesc{
			{ShortChannelID: scid, A: local, B: remote},
			{ShortChannelID: scid, A: remote, B: local},
		}
	}
	return nil
}

// pathEntry is one slot of the Dijkstra priority queue.
type pathEntry struct {
	vertex route.Vertex
	dist   int64
	index  int
}

type pathQueue []*pathEntry

func (q pathQueue) Len() int            { return len(q) }
func (q pathQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q pathQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *pathQueue) Push(x interface{}) {
	e := x.(*pathEntry)
	e.index = len(*q)
	*q = append(*q, e)
}
func (q *pathQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// shortestPath runs Dijkstra over g from source to target, minimizing
// the sum of edge weights, and reconstructs the resulting hop sequence.
func shortestPath(g *graph.Graph, source, target route.Vertex) ([]route.Hop, error) {
	dist := map[route.Vertex]int64{source: 0}
	prev := map[route.Vertex]*graph.Edge{}
	visited := map[route.Vertex]bool{}

	pq := &pathQueue{{vertex: source, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*pathEntry)
		if visited[cur.vertex] {
			continue
		}
		visited[cur.vertex] = true

		if cur.vertex == target {
			break
		}

		for _, edge := range g.EdgesFrom(cur.vertex) {
			next := edge.Desc.B
			if visited[next] {
				continue
			}

			alt := cur.dist + edge.Weight
			best, known := dist[next]
			if !known || alt < best {
				dist[next] = alt
				prev[next] = edge
				heap.Push(pq, &pathEntry{vertex: next, dist: alt})
			}
		}
	}

	if _, ok := dist[target]; !ok {
		return nil, ErrRouteNotFound
	}

	var hops []route.Hop
	v := target
	for v != source {
		edge, ok := prev[v]
		if !ok {
			return nil, ErrRouteNotFound
		}
		hops = append([]route.Hop{{A: edge.Desc.A, B: edge.Desc.B, Update: edge.Update}}, hops...)
		v = edge.Desc.A
	}

	return hops, nil
}
