// Package controller implements the Controller state core: the
// registered-switch directory, per-switch liveness, per-switch reported
// neighbor view, and the recompute/broadcast cycle that reacts to both
// inbound datagrams and the periodic liveness sweep.
package controller

import (
	"context"
	"log/slog"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/okdaichi/sdnctl/internal/eventlog"
	"github.com/okdaichi/sdnctl/internal/routingcache"
	"github.com/okdaichi/sdnctl/internal/topofile"
	"github.com/okdaichi/sdnctl/internal/topology"
	"github.com/okdaichi/sdnctl/internal/wire"
)

const localhost = "127.0.0.1"

// SwitchInfo is the directory's view of one switch's reachable address.
type SwitchInfo struct {
	Host string
	Port int
}

// Sender is the narrow interface the Controller needs to emit datagrams;
// satisfied by *net.UDPConn, and fakeable in tests.
type Sender interface {
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
}

// Controller holds the single mutex-protected state bundle: directory,
// alive map, last-heard map, reported-neighbor view, and the routing
// cache.
type Controller struct {
	tmpl        *topofile.Template
	n           int
	updateDelay time.Duration
	timeout     time.Duration
	now         func() time.Time

	conn   Sender
	log    *eventlog.Writer
	logger *slog.Logger
	cache  routingcache.Cache

	mu        sync.Mutex
	directory map[int]SwitchInfo
	alive     map[int]bool
	lastHeard map[int]time.Time
	reported  map[int]map[int]bool
}

// New constructs a Controller over the immutable topology template.
func New(tmpl *topofile.Template, conn Sender, log *eventlog.Writer, logger *slog.Logger, updateDelay, timeout time.Duration) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		tmpl:        tmpl,
		n:           tmpl.N,
		updateDelay: updateDelay,
		timeout:     timeout,
		now:         time.Now,
		conn:        conn,
		log:         log,
		logger:      logger,
		directory:   make(map[int]SwitchInfo),
		alive:       make(map[int]bool),
		lastHeard:   make(map[int]time.Time),
		reported:    make(map[int]map[int]bool),
	}
}

// HandleDatagram dispatches one inbound datagram from addr to the right
// operation. Decode failures and message types the Controller never
// receives are dropped, not propagated.
func (c *Controller) HandleDatagram(data []byte, addr *net.UDPAddr) {
	typ, err := wire.PeekType(data)
	if err != nil {
		c.logger.Warn("dropping undecodable datagram", "error", err, "from", addr)
		return
	}

	switch typ {
	case wire.TypeRegisterRequest:
		m, err := wire.DecodeRegisterRequest(data)
		if err != nil {
			c.logger.Warn("dropping malformed REGISTER_REQUEST", "error", err, "from", addr)
			return
		}
		c.OnRegisterRequest(addr, int(m.SwitchID), int(m.Port))
	case wire.TypeTopologyUpdate:
		m, err := wire.DecodeTopologyUpdate(data)
		if err != nil {
			c.logger.Warn("dropping malformed TOPOLOGY_UPDATE", "error", err, "from", addr)
			return
		}
		c.OnTopologyUpdate(addr, int(m.SenderSwitchID), m.Neighbors)
	default:
		c.logger.Warn("dropping unexpected message type at controller", "type", typ.String(), "from", addr)
	}
}

// OnRegisterRequest handles both first-time registration and
// re-registration after a restart.
func (c *Controller) OnRegisterRequest(addr *net.UDPAddr, switchID, port int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.directory[switchID] = SwitchInfo{Host: addr.IP.String(), Port: port}
	c.lastHeard[switchID] = c.now()
	if c.log != nil {
		c.log.RegisterRequestReceived(switchID)
	}

	wasDead := false
	if v, ok := c.alive[switchID]; ok && !v {
		wasDead = true
	}
	c.alive[switchID] = true
	if wasDead {
		if c.log != nil {
			c.log.SwitchAlive(switchID)
		}
		c.logger.Info("switch alive", "switch_id", switchID)
	}

	seeded := make(map[int]bool, len(c.tmpl.Neighbors[switchID]))
	for _, e := range c.tmpl.Neighbors[switchID] {
		seeded[e.B] = true
	}
	c.reported[switchID] = seeded

	resp := c.buildRegisterResponse(switchID)
	c.sendRegisterResponse(resp, switchID)
	if c.log != nil {
		c.log.RegisterResponseSent(switchID)
	}

	c.recomputeAndBroadcastLocked()
	c.sendSwitchSliceLocked(switchID)

	registeredSwitches.Set(float64(len(c.directory)))
	c.updateAliveGaugeLocked()
}

// buildRegisterResponse composes the REGISTER_RESPONSE body for switchID,
// reporting each template neighbor's current directory address and alive
// flag; unregistered neighbors report the documented defaults.
func (c *Controller) buildRegisterResponse(switchID int) wire.RegisterResponse {
	edges := c.tmpl.Neighbors[switchID]
	neighbors := make([]wire.Neighbor, 0, len(edges))
	for _, e := range edges {
		nid := e.B
		info, ok := c.directory[nid]
		host := localhost
		port := 0
		if ok {
			host = info.Host
			port = info.Port
		}
		neighbors = append(neighbors, wire.Neighbor{
			ID:    int32(nid),
			Alive: c.alive[nid],
			Port:  int32(port),
			Host:  host,
		})
	}
	return wire.RegisterResponse{Neighbors: neighbors}
}

func (c *Controller) sendRegisterResponse(resp wire.RegisterResponse, switchID int) {
	info, ok := c.directory[switchID]
	if !ok {
		return
	}
	data, err := wire.EncodeRegisterResponse(resp)
	if err != nil {
		c.logger.Warn("failed to encode REGISTER_RESPONSE", "error", err, "switch_id", switchID)
		return
	}
	c.sendTo(data, info)
}

// OnTopologyUpdate handles a periodic (or keep-alive-triggered) report from
// a switch of its view of each template neighbor's liveness. neighborStatus
// is consumed in wire order so that when a single datagram reports more
// than one true->false transition, the resulting Link Dead log records are
// emitted in a deterministic order instead of Go's randomized map order.
func (c *Controller) OnTopologyUpdate(addr *net.UDPAddr, senderID int, neighborStatus []wire.NeighborStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.directory[senderID] = SwitchInfo{Host: addr.IP.String(), Port: addr.Port}
	c.lastHeard[senderID] = c.now()

	wasDead := false
	if v, ok := c.alive[senderID]; ok && !v {
		wasDead = true
	}
	c.alive[senderID] = true
	if wasDead {
		if c.log != nil {
			c.log.SwitchAlive(senderID)
		}
		c.logger.Info("switch alive", "switch_id", senderID)
	}

	old := c.reported[senderID]
	next := make(map[int]bool, len(neighborStatus))
	for _, ns := range neighborStatus {
		nid := int(ns.NeighborID)
		wasAlive := true
		if old != nil {
			if v, ok := old[nid]; ok {
				wasAlive = v
			}
		}
		if wasAlive && !ns.Alive {
			if c.log != nil {
				c.log.LinkDead(senderID, nid)
			}
			linkDeadEvents.Inc()
		}
		next[nid] = ns.Alive
	}
	c.reported[senderID] = next

	c.recomputeAndBroadcastLocked()
	c.updateAliveGaugeLocked()
}

// PeriodicLivenessScan runs one liveness sweep: any alive switch whose
// last-heard timestamp has aged past the timeout is marked dead.
func (c *Controller) PeriodicLivenessScan() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	changed := false
	for sid := range c.lastHeard {
		if c.alive[sid] && now.Sub(c.lastHeard[sid]) >= c.timeout {
			c.alive[sid] = false
			if c.log != nil {
				c.log.SwitchDead(sid)
			}
			c.logger.Info("switch dead", "switch_id", sid)
			switchDeadEvents.Inc()
			changed = true
		}
	}
	if changed {
		c.recomputeAndBroadcastLocked()
		c.updateAliveGaugeLocked()
	}
}

// RunLivenessSweeper launches a background goroutine that calls
// PeriodicLivenessScan every updateDelay until ctx is cancelled.
func (c *Controller) RunLivenessSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.updateDelay)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.PeriodicLivenessScan()
			}
		}
	}()
}

// recomputeAndBroadcastLocked rebuilds the effective topology, consults the
// cache, and — only on a genuine change — logs and broadcasts. Callers must
// already hold c.mu.
func (c *Controller) recomputeAndBroadcastLocked() {
	g := topology.BuildEffective(c.tmpl, c.alive, c.reported)
	routes, recomputed := c.cache.GetRoutes(g)
	if !recomputed {
		return
	}
	routingRecomputes.Inc()

	active := make([]topology.RoutingEntry, 0, len(routes))
	for _, r := range routes {
		if c.alive[r.Src] {
			active = append(active, r)
		}
	}

	if c.log != nil {
		entries := make([]eventlog.ControllerRoutingEntry, len(active))
		for i, r := range active {
			entries[i] = eventlog.ControllerRoutingEntry{Src: r.Src, Dst: r.Dst, NextHop: r.NextHop, Distance: r.Distance}
		}
		c.log.RoutingUpdate(entries)
	}

	bySwitch := make(map[int][]topology.RoutingEntry)
	for _, r := range active {
		bySwitch[r.Src] = append(bySwitch[r.Src], r)
	}
	for sid, entries := range bySwitch {
		info, ok := c.directory[sid]
		if !ok {
			continue
		}
		c.sendRoutingUpdate(info, entries)
	}
}

// sendSwitchSliceLocked sends switchID its own freshly-computed routing
// entries directly, independent of whether the broadcast above fired
// (a newly (re-)registered switch needs its table even on a cache hit).
func (c *Controller) sendSwitchSliceLocked(switchID int) {
	g := topology.BuildEffective(c.tmpl, c.alive, c.reported)
	routes, _ := c.cache.GetRoutes(g)
	info, ok := c.directory[switchID]
	if !ok {
		return
	}
	var mine []topology.RoutingEntry
	for _, r := range routes {
		if r.Src == switchID {
			mine = append(mine, r)
		}
	}
	c.sendRoutingUpdate(info, mine)
}

func (c *Controller) sendRoutingUpdate(info SwitchInfo, entries []topology.RoutingEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Dst < entries[j].Dst })
	wireEntries := make([]wire.RoutingEntry, len(entries))
	for i, e := range entries {
		wireEntries[i] = wire.RoutingEntry{Src: int32(e.Src), Dst: int32(e.Dst), NextHop: int32(e.NextHop), Distance: int32(e.Distance)}
	}
	data, err := wire.EncodeRoutingUpdate(wire.RoutingUpdate{Entries: wireEntries})
	if err != nil {
		c.logger.Warn("failed to encode ROUTING_UPDATE", "error", err)
		return
	}
	c.sendTo(data, info)
}

func (c *Controller) sendTo(data []byte, info SwitchInfo) {
	addr := &net.UDPAddr{IP: net.ParseIP(info.Host), Port: info.Port}
	if _, err := c.conn.WriteToUDP(data, addr); err != nil {
		c.logger.Warn("send failed", "error", err, "to", addr)
	}
}

func (c *Controller) updateAliveGaugeLocked() {
	n := 0
	for _, a := range c.alive {
		if a {
			n++
		}
	}
	aliveSwitches.Set(float64(n))
}

// Healthy reports whether the controller has every configured switch
// registered and alive, for use by a /healthz endpoint.
func (c *Controller) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sid := 0; sid < c.n; sid++ {
		if !c.alive[sid] {
			return false
		}
	}
	return true
}
