// Package switchd implements the Switch state core: the neighbor table,
// KEEP_ALIVE scheduling and neighbor-timeout detection, TOPOLOGY_UPDATE
// emission, and routing-table install.
package switchd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/okdaichi/sdnctl/internal/eventlog"
	"github.com/okdaichi/sdnctl/internal/wire"
)

// NoFailedNeighbor signals that -f was not given: no synthetic one-way
// failure is simulated.
const NoFailedNeighbor = -1

// NeighborInfo is this switch's view of one template neighbor.
type NeighborInfo struct {
	Host      string
	Port      int
	Alive     bool
	LastHeard time.Time
}

// Sender is the narrow interface Switch needs to emit datagrams.
type Sender interface {
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
}

// bootstrapConn is the subset of *net.UDPConn Bootstrap needs: send the
// request, then block for a reply with a bounded deadline per attempt.
type bootstrapConn interface {
	Sender
	SetReadDeadline(t time.Time) error
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
}

// Switch holds the mutex-protected neighbor table and locally-installed
// routing view for one switch process.
type Switch struct {
	ID             int
	controllerAddr *net.UDPAddr
	conn           Sender
	failedNeighbor int
	updateDelay    time.Duration
	timeout        time.Duration
	now            func() time.Time

	log    *eventlog.Writer
	logger *slog.Logger

	mu        sync.Mutex
	neighbors map[int]NeighborInfo
	routes    []wire.RoutingEntry
}

// New constructs a Switch. failedNeighbor is NoFailedNeighbor unless -f was
// given on the command line.
func New(id int, controllerAddr *net.UDPAddr, conn Sender, failedNeighbor int, log *eventlog.Writer, logger *slog.Logger, updateDelay, timeout time.Duration) *Switch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Switch{
		ID:             id,
		controllerAddr: controllerAddr,
		conn:           conn,
		failedNeighbor: failedNeighbor,
		updateDelay:    updateDelay,
		timeout:        timeout,
		now:            time.Now,
		log:            log,
		logger:         logger,
		neighbors:      make(map[int]NeighborInfo),
	}
}

// Bootstrap sends REGISTER_REQUEST to the controller and retries with
// exponential backoff until a REGISTER_RESPONSE arrives, then seeds the
// neighbor table (alive=true, last_heard=now for every entry).
func (s *Switch) Bootstrap(ctx context.Context, conn bootstrapConn, localPort int) error {
	req := wire.EncodeRegisterRequest(wire.RegisterRequest{SwitchID: int32(s.ID), Port: int32(localPort)})

	attempt := func() (wire.RegisterResponse, error) {
		if _, err := conn.WriteToUDP(req, s.controllerAddr); err != nil {
			return wire.RegisterResponse{}, fmt.Errorf("switchd: send REGISTER_REQUEST: %w", err)
		}
		if s.log != nil {
			s.log.RegisterRequestSent()
		}

		if err := conn.SetReadDeadline(s.now().Add(s.timeout)); err != nil {
			return wire.RegisterResponse{}, fmt.Errorf("switchd: set read deadline: %w", err)
		}
		buf := make([]byte, wire.MaxDatagramSize)
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			return wire.RegisterResponse{}, fmt.Errorf("switchd: read REGISTER_RESPONSE: %w", err)
		}

		typ, err := wire.PeekType(buf[:n])
		if err != nil || typ != wire.TypeRegisterResponse {
			return wire.RegisterResponse{}, fmt.Errorf("switchd: unexpected reply type during bootstrap")
		}
		return wire.DecodeRegisterResponse(buf[:n])
	}

	resp, err := backoff.Retry(ctx, attempt, backoff.WithMaxElapsedTime(0))
	if err != nil {
		return fmt.Errorf("switchd: bootstrap failed: %w", err)
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return fmt.Errorf("switchd: clear read deadline: %w", err)
	}
	if s.log != nil {
		s.log.RegisterResponseReceived()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, nbr := range resp.Neighbors {
		s.neighbors[int(nbr.ID)] = NeighborInfo{Host: nbr.Host, Port: int(nbr.Port), Alive: true, LastHeard: now}
	}
	return nil
}

// PeriodicTasks runs one round of timeout detection, KEEP_ALIVE fan-out,
// and TOPOLOGY_UPDATE emission.
func (s *Switch) PeriodicTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for nid, info := range s.neighbors {
		if info.Alive && now.Sub(info.LastHeard) >= s.timeout {
			info.Alive = false
			s.neighbors[nid] = info
			if s.log != nil {
				s.log.NeighborDead(nid)
			}
			s.logger.Info("neighbor dead", "neighbor_id", nid)
			neighborDeadEvents.Inc()
		}
	}
	s.updateAliveGaugeLocked()

	for nid, info := range s.neighbors {
		if !info.Alive {
			continue
		}
		if nid == s.failedNeighbor {
			continue
		}
		s.sendKeepAlive(nid, info)
	}

	s.sendTopologyUpdateLocked()
}

func (s *Switch) sendKeepAlive(nid int, info NeighborInfo) {
	data := wire.EncodeKeepAlive(wire.KeepAlive{SenderSwitchID: int32(s.ID)})
	addr := &net.UDPAddr{IP: net.ParseIP(info.Host), Port: info.Port}
	if _, err := s.conn.WriteToUDP(data, addr); err != nil {
		s.logger.Warn("keep-alive send failed", "error", err, "neighbor_id", nid)
	}
}

func (s *Switch) sendTopologyUpdateLocked() {
	statuses := make([]wire.NeighborStatus, 0, len(s.neighbors))
	ids := make([]int, 0, len(s.neighbors))
	for nid := range s.neighbors {
		ids = append(ids, nid)
	}
	sort.Ints(ids)
	for _, nid := range ids {
		statuses = append(statuses, wire.NeighborStatus{NeighborID: int32(nid), Alive: s.neighbors[nid].Alive})
	}

	data, err := wire.EncodeTopologyUpdate(wire.TopologyUpdate{SenderSwitchID: int32(s.ID), Neighbors: statuses})
	if err != nil {
		s.logger.Warn("failed to encode TOPOLOGY_UPDATE", "error", err)
		return
	}
	if _, err := s.conn.WriteToUDP(data, s.controllerAddr); err != nil {
		s.logger.Warn("topology update send failed", "error", err)
	}
}

// OnKeepAlive handles an inbound KEEP_ALIVE from senderID. Keep-alives from
// a switch not in the template neighbor set are discarded. If -f is
// suppressing this neighbor's traffic from being acted on, the datagram is
// still "received" but ignored.
func (s *Switch) OnKeepAlive(addr *net.UDPAddr, senderID int) {
	if senderID == s.failedNeighbor {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.neighbors[senderID]
	if !ok {
		return
	}

	wasDead := !info.Alive
	info.LastHeard = s.now()
	if wasDead {
		info.Alive = true
		info.Host = addr.IP.String()
		info.Port = addr.Port
		s.neighbors[senderID] = info
		if s.log != nil {
			s.log.NeighborAlive(senderID)
		}
		s.logger.Info("neighbor alive", "neighbor_id", senderID)
		neighborAliveEvents.Inc()
		s.updateAliveGaugeLocked()
		s.sendTopologyUpdateLocked()
		return
	}
	s.neighbors[senderID] = info
}

func (s *Switch) updateAliveGaugeLocked() {
	n := 0
	for _, info := range s.neighbors {
		if info.Alive {
			n++
		}
	}
	aliveNeighbors.Set(float64(n))
}

// OnRoutingUpdate installs the controller's freshly-sent routing entries
// and logs the record.
func (s *Switch) OnRoutingUpdate(entries []wire.RoutingEntry) {
	s.mu.Lock()
	s.routes = entries
	s.mu.Unlock()

	if s.log == nil {
		return
	}
	logEntries := make([]eventlog.SwitchRoutingEntry, len(entries))
	for i, e := range entries {
		logEntries[i] = eventlog.SwitchRoutingEntry{Src: int(e.Src), Dst: int(e.Dst), NextHop: int(e.NextHop)}
	}
	s.log.RoutingUpdateReceived(logEntries)
}

// HandleDatagram dispatches one inbound datagram by wire message type.
func (s *Switch) HandleDatagram(data []byte, addr *net.UDPAddr) {
	typ, err := wire.PeekType(data)
	if err != nil {
		s.logger.Warn("dropping undecodable datagram", "error", err, "from", addr)
		return
	}

	switch typ {
	case wire.TypeKeepAlive:
		m, err := wire.DecodeKeepAlive(data)
		if err != nil {
			s.logger.Warn("dropping malformed KEEP_ALIVE", "error", err, "from", addr)
			return
		}
		s.OnKeepAlive(addr, int(m.SenderSwitchID))
	case wire.TypeRoutingUpdate:
		m, err := wire.DecodeRoutingUpdate(data)
		if err != nil {
			s.logger.Warn("dropping malformed ROUTING_UPDATE", "error", err, "from", addr)
			return
		}
		s.OnRoutingUpdate(m.Entries)
	default:
		s.logger.Warn("dropping unexpected message type at switch", "type", typ.String(), "from", addr)
	}
}

// Routes returns a copy of the currently-installed routing entries.
func (s *Switch) Routes() []wire.RoutingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.RoutingEntry, len(s.routes))
	copy(out, s.routes)
	return out
}

// NeighborSnapshot returns a copy of the neighbor table, for diagnostics
// and tests.
func (s *Switch) NeighborSnapshot() map[int]NeighborInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]NeighborInfo, len(s.neighbors))
	for k, v := range s.neighbors {
		out[k] = v
	}
	return out
}
