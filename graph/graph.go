// Package graph implements the in-memory directed weighted multigraph
// that backs path finding: one vertex per node public key, one edge per
// currently enabled directional channel update.
package graph

import (
	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
)

// referenceAmountMsat is the fixed payment amount, in millisatoshi, used
// to turn a channel update's fee schedule into a single edge weight. Real
// per-amount weighting (and the downstream cumulative fee/cltv it
// implies) is left to higher layers.
const referenceAmountMsat = 10_000_000

// Edge is one directed, weighted connection between two vertices.
type Edge struct {
	Desc   route.ChannelDesc
	Update *lnwire.ChannelUpdate
	Weight int64
}

// edgeWeight computes the fee, in millisatoshi, to forward
// referenceAmountMsat under u's fee schedule.
func edgeWeight(u *lnwire.ChannelUpdate) int64 {
	prop := (int64(u.FeeRate) * referenceAmountMsat) / 1_000_000
	return int64(u.BaseFee) + prop
}

// Graph is a directed weighted multigraph keyed by route.Vertex. Multiple
// edges may exist between the same ordered pair of vertices (e.g. a
// real update and a routing-hint overlay never coexist for the same desc,
// but distinct short channel ids between the same two nodes do).
type Graph struct {
	adjacency map[route.Vertex][]*Edge
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[route.Vertex][]*Edge),
	}
}

// ensureVertex makes sure v has an (possibly empty) adjacency entry.
func (g *Graph) ensureVertex(v route.Vertex) {
	if _, ok := g.adjacency[v]; !ok {
		g.adjacency[v] = nil
	}
}

// HasVertex reports whether v is currently known to the graph.
func (g *Graph) HasVertex(v route.Vertex) bool {
	_, ok := g.adjacency[v]
	return ok
}

// AddEdge inserts a new edge for desc/u if u is enabled. Disabled updates
// add no edge. Both endpoint vertices are created if
// needed.
func (g *Graph) AddEdge(desc route.ChannelDesc, u *lnwire.ChannelUpdate) {
	if u.IsDisabled() {
		return
	}

	g.ensureVertex(desc.A)
	g.ensureVertex(desc.B)

	edge := &Edge{
		Desc:   desc,
		Update: u,
		Weight: edgeWeight(u),
	}
	g.adjacency[desc.A] = append(g.adjacency[desc.A], edge)

	log.Tracef("Added edge %v: %v -> %v, weight %d", desc.ShortChannelID,
		desc.A, desc.B, edge.Weight)
}

// RemoveEdge removes, among the edges from desc.A to desc.B, the one
// carrying desc. Vertices are never reclaimed (cleanup is best-effort).
func (g *Graph) RemoveEdge(desc route.ChannelDesc) {
	edges, ok := g.adjacency[desc.A]
	if !ok {
		return
	}

	for i, e := range edges {
		if e.Desc == desc {
			g.adjacency[desc.A] = append(edges[:i], edges[i+1:]...)
			return
		}
	}
}

// EdgesFrom returns the edges leaving v. The returned slice must not be
// mutated by the caller.
func (g *Graph) EdgesFrom(v route.Vertex) []*Edge {
	return g.adjacency[v]
}

// Clone returns a deep-enough copy of g: the adjacency lists and the edge
// slices are copied so that AddEdge/RemoveEdge on the clone never touch
// g, but the *lnwire.ChannelUpdate pointers are shared (they're treated
// as immutable once installed). Used by path finding when overlays or
// blacklists apply.
func (g *Graph) Clone() *Graph {
	clone := New()
	for v, edges := range g.adjacency {
		cp := make([]*Edge, len(edges))
		copy(cp, edges)
		clone.adjacency[v] = cp
	}
	return clone
}

// NumVertexes returns the number of vertices currently known to the
// graph. Exposed for introspection/metrics.
func (g *Graph) NumVertexes() int {
	return len(g.adjacency)
}
