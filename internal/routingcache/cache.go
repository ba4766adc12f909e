// Package routingcache implements a single-slot routing-table memoizer:
// recompute only when the effective topology's canonical fingerprint
// changes.
package routingcache

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/okdaichi/sdnctl/internal/topology"
)

// Cache memoizes the last RoutingTable computed for a given effective
// topology, keyed by a content hash. Safe for concurrent use, though
// callers in this module already serialize access under the Controller's
// single state lock.
type Cache struct {
	mu        sync.Mutex
	have      bool
	fingerprt uint64
	routes    []topology.RoutingEntry
}

// GetRoutes returns the cached routing table if the graph's fingerprint
// matches the last computation, else recomputes, stores, and returns the
// new table. The second return value reports whether a recompute occurred.
func (c *Cache) GetRoutes(g *topology.Graph) ([]topology.RoutingEntry, bool) {
	fp := fingerprint(g)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.have && c.fingerprt == fp {
		return c.routes, false
	}

	c.routes = topology.RoutingTable(g)
	c.fingerprt = fp
	c.have = true
	return c.routes, true
}

// Clear invalidates the cache, forcing the next GetRoutes call to recompute
// regardless of fingerprint.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.have = false
	c.routes = nil
}

// fingerprint canonicalizes the graph (sort switch ids; within each
// switch's list, sort by (neighbor_id, cost) — already guaranteed by
// topology.BuildEffective) and hashes the result with xxhash, so that
// adjacency-list ordering never produces a spurious cache miss.
func fingerprint(g *topology.Graph) uint64 {
	h := xxhash.New()

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(g.N))
	h.Write(buf[:])

	ids := sortedKeys(g.Edges)
	for _, sid := range ids {
		binary.BigEndian.PutUint64(buf[:], uint64(int64(sid)))
		h.Write(buf[:])
		for _, e := range g.Edges[sid] {
			binary.BigEndian.PutUint64(buf[:], uint64(int64(e.To)))
			h.Write(buf[:])
			binary.BigEndian.PutUint64(buf[:], uint64(int64(e.Cost)))
			h.Write(buf[:])
		}
		// Sentinel separating switches so {1:[(2,3)]} can't collide with
		// {1:[(2,),(3,)]}-shaped re-groupings.
		h.Write([]byte{0xFF})
	}

	return h.Sum64()
}

func sortedKeys(m map[int][]topology.Edge) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
