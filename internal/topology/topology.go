// Package topology computes deterministic all-pairs shortest-path routing
// tables over a weighted undirected graph of switch ids.
package topology

import "github.com/okdaichi/sdnctl/internal/topofile"

// UnreachableDistance and UnreachableHop are the sentinel values emitted
// for a destination with no path from a given source.
const (
	UnreachableDistance = 9999
	UnreachableHop      = -1
)

// Edge is a directed adjacency entry used while building the effective
// graph: neighbor id plus edge cost.
type Edge struct {
	To   int
	Cost int
}

// Graph is an adjacency-list view of the switch network for one
// recomputation. Each switch's edge list must be sorted ascending by
// (To, Cost) for shortest-path selection to be deterministic.
type Graph struct {
	N     int
	Edges map[int][]Edge // keyed by switch id; only live switches need a key
}

// RoutingEntry is one row of a routing table: src's route to dst.
type RoutingEntry struct {
	Src, Dst, NextHop, Distance int
}

// BuildEffective derives the effective topology from the immutable
// template, the switch-alive map, and each switch's reported view of its
// neighbors. A missing entry in aliveMap or a reported view defaults to:
// absent alive -> dead, absent reported-neighbor entry -> alive (the
// switch hasn't reported yet).
func BuildEffective(tmpl *topofile.Template, alive map[int]bool, reported map[int]map[int]bool) *Graph {
	g := &Graph{N: tmpl.N, Edges: make(map[int][]Edge)}

	for sid, edges := range tmpl.Neighbors {
		if !alive[sid] {
			continue
		}
		var live []Edge
		for _, e := range edges {
			if !alive[e.B] {
				continue
			}
			aSeesB := reportedAlive(reported, sid, e.B)
			bSeesA := reportedAlive(reported, e.B, sid)
			if aSeesB && bSeesA {
				live = append(live, Edge{To: e.B, Cost: e.Cost})
			}
		}
		g.Edges[sid] = sortedEdges(live)
	}

	return g
}

func reportedAlive(reported map[int]map[int]bool, from, to int) bool {
	view, ok := reported[from]
	if !ok {
		return true // default is all-alive until the first report arrives.
	}
	v, ok := view[to]
	if !ok {
		return true
	}
	return v
}

func sortedEdges(edges []Edge) []Edge {
	// Small per-node degree in this domain; insertion sort keeps it simple
	// and avoids importing sort for a handful of elements.
	for i := 1; i < len(edges); i++ {
		for j := i; j > 0 && edgeLess(edges[j], edges[j-1]); j-- {
			edges[j], edges[j-1] = edges[j-1], edges[j]
		}
	}
	return edges
}

func edgeLess(a, b Edge) bool {
	if a.To != b.To {
		return a.To < b.To
	}
	return a.Cost < b.Cost
}

// RoutingTable computes routing entries for every (src, dst) pair over the
// effective graph, for switches 0..g.N-1. A switch absent from g.Edges is
// dead: it is never a source, and is unreachable as a destination unless a
// live path via another switch happens to reach it (it will not, since a
// dead switch has no edges and no other switch's edge list should retain
// one to it once alive maps agree — the Controller additionally filters
// rows by its alive map before broadcasting).
func RoutingTable(g *Graph) []RoutingEntry {
	entries := make([]RoutingEntry, 0, g.N*g.N)
	for src := 0; src < g.N; src++ {
		if _, ok := g.Edges[src]; !ok {
			continue // dead source: no entries at all.
		}
		dist, nextHop := shortestPaths(g, src)
		for dst := 0; dst < g.N; dst++ {
			if dst == src {
				entries = append(entries, RoutingEntry{Src: src, Dst: dst, NextHop: src, Distance: 0})
				continue
			}
			d, ok := dist[dst]
			if !ok {
				entries = append(entries, RoutingEntry{Src: src, Dst: dst, NextHop: UnreachableHop, Distance: UnreachableDistance})
				continue
			}
			entries = append(entries, RoutingEntry{Src: src, Dst: dst, NextHop: nextHop[dst], Distance: d})
		}
	}
	return entries
}
