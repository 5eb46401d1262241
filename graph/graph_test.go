package graph

import (
	"testing"

	"github.com/breez/lnrouter/lnwire"
	"github.com/breez/lnrouter/route"
)

func vertex(b byte) route.Vertex {
	var v route.Vertex
	v[0] = b
	return v
}

func TestAddEdgeWeight(t *testing.T) {
	g := New()

	a, b := vertex(1), vertex(2)
	desc := route.ChannelDesc{A: a, B: b}
	update := &lnwire.ChannelUpdate{
		BaseFee: 1000,
		FeeRate: 100,
	}

	g.AddEdge(desc, update)

	edges := g.EdgesFrom(a)
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}

	// 1000 + (100 * 10_000_000) / 1_000_000 = 2000
	if edges[0].Weight != 2000 {
		t.Fatalf("expected weight 2000, got %d", edges[0].Weight)
	}

	if !g.HasVertex(a) || !g.HasVertex(b) {
		t.Fatal("expected both endpoints to be present")
	}
}

func TestAddEdgeDisabledIsNoop(t *testing.T) {
	g := New()

	desc := route.ChannelDesc{A: vertex(1), B: vertex(2)}
	update := &lnwire.ChannelUpdate{
		ChannelFlags: lnwire.ChanUpdateDisabled,
	}

	g.AddEdge(desc, update)

	if g.HasVertex(desc.A) {
		t.Fatal("disabled update must not create vertices or edges")
	}
}

func TestRemoveEdge(t *testing.T) {
	g := New()

	desc := route.ChannelDesc{A: vertex(1), B: vertex(2)}
	g.AddEdge(desc, &lnwire.ChannelUpdate{})

	g.RemoveEdge(desc)

	if len(g.EdgesFrom(desc.A)) != 0 {
		t.Fatal("expected edge to be removed")
	}
	// Vertex cleanup is best-effort; the vertex may remain.
}

func TestClone(t *testing.T) {
	g := New()
	desc := route.ChannelDesc{A: vertex(1), B: vertex(2)}
	g.AddEdge(desc, &lnwire.ChannelUpdate{})

	clone := g.Clone()
	clone.RemoveEdge(desc)

	if len(g.EdgesFrom(desc.A)) != 1 {
		t.Fatal("mutating a clone must not affect the original graph")
	}
	if len(clone.EdgesFrom(desc.A)) != 0 {
		t.Fatal("expected edge removed from clone")
	}
}
