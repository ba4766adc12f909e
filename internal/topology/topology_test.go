package topology

import (
	"testing"

	"github.com/okdaichi/sdnctl/internal/topofile"
)

func lineTemplate(n int, edges ...topofile.Edge) *topofile.Template {
	tmpl := &topofile.Template{N: n, Neighbors: make(map[int][]topofile.Edge, n)}
	for i := 0; i < n; i++ {
		tmpl.Neighbors[i] = nil
	}
	for _, e := range edges {
		tmpl.Neighbors[e.A] = append(tmpl.Neighbors[e.A], e)
		tmpl.Neighbors[e.B] = append(tmpl.Neighbors[e.B], topofile.Edge{A: e.B, B: e.A, Cost: e.Cost})
	}
	return tmpl
}

func allAlive(n int) map[int]bool {
	m := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		m[i] = true
	}
	return m
}

func findEntry(entries []RoutingEntry, src, dst int) RoutingEntry {
	for _, e := range entries {
		if e.Src == src && e.Dst == dst {
			return e
		}
	}
	return RoutingEntry{Src: -99}
}

func TestRoutingTable_Line4ColdStart(t *testing.T) {
	tmpl := lineTemplate(4,
		topofile.Edge{A: 0, B: 1, Cost: 1},
		topofile.Edge{A: 1, B: 2, Cost: 1},
		topofile.Edge{A: 2, B: 3, Cost: 1},
	)
	g := BuildEffective(tmpl, allAlive(4), nil)
	entries := RoutingTable(g)

	want := []RoutingEntry{
		{Src: 0, Dst: 0, NextHop: 0, Distance: 0},
		{Src: 0, Dst: 1, NextHop: 1, Distance: 1},
		{Src: 0, Dst: 2, NextHop: 1, Distance: 2},
		{Src: 0, Dst: 3, NextHop: 1, Distance: 3},
	}
	for _, w := range want {
		got := findEntry(entries, w.Src, w.Dst)
		if got != w {
			t.Errorf("route %d->%d: got %+v, want %+v", w.Src, w.Dst, got, w)
		}
	}
}

func TestRoutingTable_DeadSwitchNoOutgoingRoutes(t *testing.T) {
	tmpl := lineTemplate(4,
		topofile.Edge{A: 0, B: 1, Cost: 1},
		topofile.Edge{A: 1, B: 2, Cost: 1},
		topofile.Edge{A: 2, B: 3, Cost: 1},
	)
	alive := allAlive(4)
	alive[2] = false
	g := BuildEffective(tmpl, alive, nil)
	entries := RoutingTable(g)

	for _, e := range entries {
		if e.Src == 2 {
			t.Errorf("expected no entries with src=2 (dead switch), got %+v", e)
		}
	}

	got := findEntry(entries, 0, 3)
	if got.NextHop != UnreachableHop || got.Distance != UnreachableDistance {
		t.Errorf("0->3 via dead switch 2: got %+v", got)
	}
	got = findEntry(entries, 1, 3)
	if got.NextHop != UnreachableHop || got.Distance != UnreachableDistance {
		t.Errorf("1->3 via dead switch 2: got %+v", got)
	}
}

func TestBuildEffective_UnilateralLinkDeathRemovesEdge(t *testing.T) {
	tmpl := lineTemplate(4,
		topofile.Edge{A: 0, B: 1, Cost: 1},
		topofile.Edge{A: 1, B: 2, Cost: 1},
		topofile.Edge{A: 2, B: 3, Cost: 1},
	)
	reported := map[int]map[int]bool{
		1: {2: false}, // switch 1 declares 2 dead; 2 still reports 1 alive
	}
	g := BuildEffective(tmpl, allAlive(4), reported)
	entries := RoutingTable(g)

	if got := findEntry(entries, 0, 2); got.NextHop != UnreachableHop {
		t.Errorf("0->2 should be unreachable after unilateral link death, got %+v", got)
	}
	if got := findEntry(entries, 0, 3); got.NextHop != UnreachableHop {
		t.Errorf("0->3 should be unreachable after unilateral link death, got %+v", got)
	}
	if got := findEntry(entries, 3, 0); got.NextHop != UnreachableHop {
		t.Errorf("3->0 should be unreachable after unilateral link death, got %+v", got)
	}
}

func TestBuildEffective_ReportedDefaultIsAlive(t *testing.T) {
	tmpl := lineTemplate(2, topofile.Edge{A: 0, B: 1, Cost: 1})
	g := BuildEffective(tmpl, allAlive(2), nil) // no TOPOLOGY_UPDATE has arrived yet
	entries := RoutingTable(g)

	got := findEntry(entries, 0, 1)
	if got.NextHop != 1 || got.Distance != 1 {
		t.Errorf("expected reachable direct edge before first report, got %+v", got)
	}
}

func TestRoutingTable_EqualCostTieBreak(t *testing.T) {
	// 0-1-3 and 0-2-3, all cost 1: 0->3 must pick next_hop=1 (smaller id).
	tmpl := lineTemplate(4,
		topofile.Edge{A: 0, B: 1, Cost: 1},
		topofile.Edge{A: 1, B: 3, Cost: 1},
		topofile.Edge{A: 0, B: 2, Cost: 1},
		topofile.Edge{A: 2, B: 3, Cost: 1},
	)
	g := BuildEffective(tmpl, allAlive(4), nil)
	entries := RoutingTable(g)

	got := findEntry(entries, 0, 3)
	if got.NextHop != 1 || got.Distance != 2 {
		t.Errorf("expected tie-break next_hop=1, got %+v", got)
	}
}

func TestRoutingTable_DisconnectedComponent(t *testing.T) {
	tmpl := lineTemplate(4, topofile.Edge{A: 0, B: 1, Cost: 1})
	// switches 2 and 3 have no edges at all: disconnected from 0/1.
	g := BuildEffective(tmpl, allAlive(4), nil)
	entries := RoutingTable(g)

	for _, pair := range [][2]int{{0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 0}, {3, 1}} {
		got := findEntry(entries, pair[0], pair[1])
		if got.NextHop != UnreachableHop || got.Distance != UnreachableDistance {
			t.Errorf("%d->%d should be unreachable, got %+v", pair[0], pair[1], got)
		}
	}
}
