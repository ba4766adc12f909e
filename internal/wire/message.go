// Package wire implements the binary datagram protocol exchanged between
// the Controller and Switch processes: five fixed message types, each a
// single UDP datagram with a one-byte type tag followed by a big-endian
// body.
package wire

import "fmt"

// Type identifies the five message kinds on the wire.
type Type byte

const (
	TypeRegisterRequest  Type = 1
	TypeRegisterResponse Type = 2
	TypeRoutingUpdate    Type = 3
	TypeKeepAlive        Type = 4
	TypeTopologyUpdate   Type = 5
)

func (t Type) String() string {
	switch t {
	case TypeRegisterRequest:
		return "REGISTER_REQUEST"
	case TypeRegisterResponse:
		return "REGISTER_RESPONSE"
	case TypeRoutingUpdate:
		return "ROUTING_UPDATE"
	case TypeKeepAlive:
		return "KEEP_ALIVE"
	case TypeTopologyUpdate:
		return "TOPOLOGY_UPDATE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(t))
	}
}

// MaxDatagramSize is the largest datagram the codec will encode or accept.
const MaxDatagramSize = 4096

// RegisterRequest is sent by a Switch to announce itself to the Controller.
//
//	i32 switch_id; i32 port
type RegisterRequest struct {
	SwitchID int32
	Port     int32
}

// Neighbor describes one template neighbor's current address and liveness,
// as reported in a REGISTER_RESPONSE.
type Neighbor struct {
	ID    int32
	Alive bool
	Port  int32
	Host  string
}

// RegisterResponse is sent by the Controller in reply to a REGISTER_REQUEST.
//
//	u16 N; N × { i32 neighbor_id; u8 alive; i32 port; C-string host }
type RegisterResponse struct {
	Neighbors []Neighbor
}

// RoutingEntry is one row of a routing table: src's route to dst.
//
//	i32 src; i32 dst; i32 next_hop; i32 distance
type RoutingEntry struct {
	Src      int32
	Dst      int32
	NextHop  int32
	Distance int32
}

// RoutingUpdate carries a set of routing entries for one or more switches.
//
//	u16 K; K × RoutingEntry
type RoutingUpdate struct {
	Entries []RoutingEntry
}

// KeepAlive is a liveness heartbeat exchanged directly between neighbor
// switches.
//
//	i32 sender_switch_id
type KeepAlive struct {
	SenderSwitchID int32
}

// NeighborStatus is one neighbor's liveness bit, as reported in a
// TOPOLOGY_UPDATE.
type NeighborStatus struct {
	NeighborID int32
	Alive      bool
}

// TopologyUpdate is sent periodically by a Switch to the Controller,
// summarizing its view of each template neighbor's liveness.
//
//	i32 sender_switch_id; u16 M; M × { i32 neighbor_id; u8 alive }
type TopologyUpdate struct {
	SenderSwitchID int32
	Neighbors      []NeighborStatus
}
