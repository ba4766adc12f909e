package topology

import "container/heap"

// shortestPaths runs Dijkstra from src over g, returning each reachable
// destination's distance and its next hop from src (the first switch after
// src on the chosen path, found by walking the predecessor chain). Ties
// between equal-cost candidates are broken by the smaller node id, via
// both the priority queue's tie-break and the pre-sorted edge lists.
func shortestPaths(g *Graph, src int) (dist map[int]int, nextHop map[int]int) {
	dist = map[int]int{src: 0}
	prev := map[int]int{}

	pq := &pqueue{{node: src, dist: 0}}
	heap.Init(pq)

	visited := make(map[int]bool, g.N)
	for pq.Len() > 0 {
		top := heap.Pop(pq).(pqItem)
		u := top.node
		if visited[u] {
			continue
		}
		visited[u] = true

		for _, e := range g.Edges[u] {
			alt := dist[u] + e.Cost
			if d, ok := dist[e.To]; !ok || alt < d {
				dist[e.To] = alt
				prev[e.To] = u
				heap.Push(pq, pqItem{node: e.To, dist: alt})
			}
		}
	}

	nextHop = make(map[int]int, len(dist))
	for dst := range dist {
		if dst == src {
			continue
		}
		node := dst
		for prev[node] != src {
			node = prev[node]
		}
		nextHop[dst] = node
	}
	return dist, nextHop
}

type pqItem struct {
	node int
	dist int
}

// pqueue is a min-heap ordered by (dist, node) so that equal-cost
// candidates pop in ascending node-id order, matching the deterministic
// tie-break rule.
type pqueue []pqItem

func (q pqueue) Len() int { return len(q) }
func (q pqueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].node < q[j].node
}
func (q pqueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *pqueue) Push(x any)   { *q = append(*q, x.(pqItem)) }
func (q *pqueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
