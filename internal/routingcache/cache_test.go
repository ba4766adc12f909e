package routingcache

import (
	"testing"

	"github.com/okdaichi/sdnctl/internal/topofile"
	"github.com/okdaichi/sdnctl/internal/topology"
)

func lineGraph(n int, edges ...topofile.Edge) *topology.Graph {
	tmpl := &topofile.Template{N: n, Neighbors: make(map[int][]topofile.Edge, n)}
	for i := 0; i < n; i++ {
		tmpl.Neighbors[i] = nil
	}
	for _, e := range edges {
		tmpl.Neighbors[e.A] = append(tmpl.Neighbors[e.A], e)
		tmpl.Neighbors[e.B] = append(tmpl.Neighbors[e.B], topofile.Edge{A: e.B, B: e.A, Cost: e.Cost})
	}
	alive := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		alive[i] = true
	}
	return topology.BuildEffective(tmpl, alive, nil)
}

func TestCache_FirstCallRecomputes(t *testing.T) {
	var c Cache
	g := lineGraph(2, topofile.Edge{A: 0, B: 1, Cost: 1})

	_, recomputed := c.GetRoutes(g)
	if !recomputed {
		t.Fatal("expected first call to recompute")
	}
}

func TestCache_SameTopologyHitsCache(t *testing.T) {
	var c Cache
	g1 := lineGraph(2, topofile.Edge{A: 0, B: 1, Cost: 1})
	g2 := lineGraph(2, topofile.Edge{A: 0, B: 1, Cost: 1})

	routes1, _ := c.GetRoutes(g1)
	routes2, recomputed := c.GetRoutes(g2)

	if recomputed {
		t.Error("identical topology should not trigger a recompute")
	}
	if len(routes1) != len(routes2) {
		t.Errorf("cached routes differ in length: %d vs %d", len(routes1), len(routes2))
	}
}

func TestCache_ChangedTopologyRecomputes(t *testing.T) {
	var c Cache
	g1 := lineGraph(3, topofile.Edge{A: 0, B: 1, Cost: 1})
	g2 := lineGraph(3, topofile.Edge{A: 0, B: 1, Cost: 1}, topofile.Edge{A: 1, B: 2, Cost: 1})

	c.GetRoutes(g1)
	_, recomputed := c.GetRoutes(g2)
	if !recomputed {
		t.Error("expected recompute after topology change")
	}
}

func TestCache_CostChangeRecomputes(t *testing.T) {
	var c Cache
	g1 := lineGraph(2, topofile.Edge{A: 0, B: 1, Cost: 1})
	g2 := lineGraph(2, topofile.Edge{A: 0, B: 1, Cost: 2})

	c.GetRoutes(g1)
	_, recomputed := c.GetRoutes(g2)
	if !recomputed {
		t.Error("expected recompute after cost change, got cache hit")
	}
}

func TestCache_ClearForcesRecompute(t *testing.T) {
	var c Cache
	g := lineGraph(2, topofile.Edge{A: 0, B: 1, Cost: 1})

	c.GetRoutes(g)
	c.Clear()
	_, recomputed := c.GetRoutes(g)
	if !recomputed {
		t.Error("expected recompute after Clear")
	}
}

func TestFingerprint_StableAcrossIdenticalGraphs(t *testing.T) {
	g1 := lineGraph(4, topofile.Edge{A: 0, B: 1, Cost: 1}, topofile.Edge{A: 1, B: 2, Cost: 1}, topofile.Edge{A: 2, B: 3, Cost: 1})
	g2 := lineGraph(4, topofile.Edge{A: 0, B: 1, Cost: 1}, topofile.Edge{A: 1, B: 2, Cost: 1}, topofile.Edge{A: 2, B: 3, Cost: 1})

	if fingerprint(g1) != fingerprint(g2) {
		t.Error("fingerprint should be deterministic for identical graphs")
	}
}

func TestFingerprint_DiffersWhenEdgeRemoved(t *testing.T) {
	g1 := lineGraph(3, topofile.Edge{A: 0, B: 1, Cost: 1}, topofile.Edge{A: 1, B: 2, Cost: 1})
	g2 := lineGraph(3, topofile.Edge{A: 0, B: 1, Cost: 1})

	if fingerprint(g1) == fingerprint(g2) {
		t.Error("fingerprint collided across topologies with a removed edge")
	}
}
