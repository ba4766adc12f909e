package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned when a datagram ends before a field it
// declared (via a count or fixed body length) can be fully read.
var ErrTruncated = errors.New("wire: truncated message")

// ErrUnterminatedHost is returned when a REGISTER_RESPONSE neighbor's
// host string has no terminating 0x00 byte before the datagram ends.
var ErrUnterminatedHost = errors.New("wire: unterminated host string")

// ErrOversized is returned when an encoded message, or a declared count
// field during decode, would exceed MaxDatagramSize.
var ErrOversized = errors.New("wire: message exceeds maximum datagram size")

// ErrUnknownType is returned when a datagram's leading type byte does not
// match any of the five known message types.
type ErrUnknownType struct{ Got byte }

func (e ErrUnknownType) Error() string {
	return fmt.Sprintf("wire: unknown message type %d", e.Got)
}

// EncodeRegisterRequest serializes a RegisterRequest.
func EncodeRegisterRequest(m RegisterRequest) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(TypeRegisterRequest)
	binary.BigEndian.PutUint32(buf[1:5], uint32(m.SwitchID))
	binary.BigEndian.PutUint32(buf[5:9], uint32(m.Port))
	return buf
}

// DecodeRegisterRequest parses a whole REGISTER_REQUEST datagram: data[0] is
// the type byte (PeekType reads it without consuming it) and the body starts
// at data[1].
func DecodeRegisterRequest(data []byte) (RegisterRequest, error) {
	if len(data) < 9 {
		return RegisterRequest{}, ErrTruncated
	}
	return RegisterRequest{
		SwitchID: int32(binary.BigEndian.Uint32(data[1:5])),
		Port:     int32(binary.BigEndian.Uint32(data[5:9])),
	}, nil
}

// EncodeRegisterResponse serializes a RegisterResponse. Returns
// ErrOversized if the result would not fit in a single datagram.
func EncodeRegisterResponse(m RegisterResponse) ([]byte, error) {
	if len(m.Neighbors) > 0xFFFF {
		return nil, ErrOversized
	}
	buf := make([]byte, 0, 3+len(m.Neighbors)*16)
	buf = append(buf, byte(TypeRegisterResponse))
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(m.Neighbors)))
	buf = append(buf, hdr[:]...)

	for _, n := range m.Neighbors {
		var fixed [9]byte
		binary.BigEndian.PutUint32(fixed[0:4], uint32(n.ID))
		if n.Alive {
			fixed[4] = 1
		}
		binary.BigEndian.PutUint32(fixed[5:9], uint32(n.Port))
		buf = append(buf, fixed[:]...)
		buf = append(buf, n.Host...)
		buf = append(buf, 0x00)
	}

	if len(buf) > MaxDatagramSize {
		return nil, ErrOversized
	}
	return buf, nil
}

// DecodeRegisterResponse parses a REGISTER_RESPONSE body.
func DecodeRegisterResponse(data []byte) (RegisterResponse, error) {
	if len(data) < 3 {
		return RegisterResponse{}, ErrTruncated
	}
	n := int(binary.BigEndian.Uint16(data[1:3]))
	if n > (MaxDatagramSize-3)/9 {
		return RegisterResponse{}, ErrOversized
	}

	offset := 3
	neighbors := make([]Neighbor, 0, n)
	for i := 0; i < n; i++ {
		if offset+9 > len(data) {
			return RegisterResponse{}, ErrTruncated
		}
		id := int32(binary.BigEndian.Uint32(data[offset : offset+4]))
		alive := data[offset+4] != 0
		port := int32(binary.BigEndian.Uint32(data[offset+5 : offset+9]))
		offset += 9

		end := -1
		for j := offset; j < len(data); j++ {
			if data[j] == 0x00 {
				end = j
				break
			}
		}
		if end == -1 {
			return RegisterResponse{}, ErrUnterminatedHost
		}
		host := string(data[offset:end])
		offset = end + 1

		neighbors = append(neighbors, Neighbor{ID: id, Alive: alive, Port: port, Host: host})
	}

	return RegisterResponse{Neighbors: neighbors}, nil
}

// EncodeRoutingUpdate serializes a RoutingUpdate.
func EncodeRoutingUpdate(m RoutingUpdate) ([]byte, error) {
	if len(m.Entries) > 0xFFFF {
		return nil, ErrOversized
	}
	buf := make([]byte, 3+len(m.Entries)*16)
	buf[0] = byte(TypeRoutingUpdate)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(m.Entries)))

	offset := 3
	for _, e := range m.Entries {
		binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(e.Src))
		binary.BigEndian.PutUint32(buf[offset+4:offset+8], uint32(e.Dst))
		binary.BigEndian.PutUint32(buf[offset+8:offset+12], uint32(e.NextHop))
		binary.BigEndian.PutUint32(buf[offset+12:offset+16], uint32(e.Distance))
		offset += 16
	}

	if len(buf) > MaxDatagramSize {
		return nil, ErrOversized
	}
	return buf, nil
}

// DecodeRoutingUpdate parses a ROUTING_UPDATE body.
func DecodeRoutingUpdate(data []byte) (RoutingUpdate, error) {
	if len(data) < 3 {
		return RoutingUpdate{}, ErrTruncated
	}
	k := int(binary.BigEndian.Uint16(data[1:3]))
	if k > (MaxDatagramSize-3)/16 {
		return RoutingUpdate{}, ErrOversized
	}
	if 3+k*16 > len(data) {
		return RoutingUpdate{}, ErrTruncated
	}

	entries := make([]RoutingEntry, k)
	offset := 3
	for i := 0; i < k; i++ {
		entries[i] = RoutingEntry{
			Src:      int32(binary.BigEndian.Uint32(data[offset : offset+4])),
			Dst:      int32(binary.BigEndian.Uint32(data[offset+4 : offset+8])),
			NextHop:  int32(binary.BigEndian.Uint32(data[offset+8 : offset+12])),
			Distance: int32(binary.BigEndian.Uint32(data[offset+12 : offset+16])),
		}
		offset += 16
	}
	return RoutingUpdate{Entries: entries}, nil
}

// EncodeKeepAlive serializes a KeepAlive.
func EncodeKeepAlive(m KeepAlive) []byte {
	buf := make([]byte, 5)
	buf[0] = byte(TypeKeepAlive)
	binary.BigEndian.PutUint32(buf[1:5], uint32(m.SenderSwitchID))
	return buf
}

// DecodeKeepAlive parses a KEEP_ALIVE body.
func DecodeKeepAlive(data []byte) (KeepAlive, error) {
	if len(data) < 5 {
		return KeepAlive{}, ErrTruncated
	}
	return KeepAlive{SenderSwitchID: int32(binary.BigEndian.Uint32(data[1:5]))}, nil
}

// EncodeTopologyUpdate serializes a TopologyUpdate.
func EncodeTopologyUpdate(m TopologyUpdate) ([]byte, error) {
	if len(m.Neighbors) > 0xFFFF {
		return nil, ErrOversized
	}
	buf := make([]byte, 7+len(m.Neighbors)*5)
	buf[0] = byte(TypeTopologyUpdate)
	binary.BigEndian.PutUint32(buf[1:5], uint32(m.SenderSwitchID))
	binary.BigEndian.PutUint16(buf[5:7], uint16(len(m.Neighbors)))

	offset := 7
	for _, n := range m.Neighbors {
		binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(n.NeighborID))
		if n.Alive {
			buf[offset+4] = 1
		}
		offset += 5
	}

	if len(buf) > MaxDatagramSize {
		return nil, ErrOversized
	}
	return buf, nil
}

// DecodeTopologyUpdate parses a TOPOLOGY_UPDATE body.
func DecodeTopologyUpdate(data []byte) (TopologyUpdate, error) {
	if len(data) < 7 {
		return TopologyUpdate{}, ErrTruncated
	}
	senderID := int32(binary.BigEndian.Uint32(data[1:5]))
	m := int(binary.BigEndian.Uint16(data[5:7]))
	if m > (MaxDatagramSize-7)/5 {
		return TopologyUpdate{}, ErrOversized
	}
	if 7+m*5 > len(data) {
		return TopologyUpdate{}, ErrTruncated
	}

	neighbors := make([]NeighborStatus, m)
	offset := 7
	for i := 0; i < m; i++ {
		neighbors[i] = NeighborStatus{
			NeighborID: int32(binary.BigEndian.Uint32(data[offset : offset+4])),
			Alive:      data[offset+4] != 0,
		}
		offset += 5
	}
	return TopologyUpdate{SenderSwitchID: senderID, Neighbors: neighbors}, nil
}

// PeekType returns the message type of a raw datagram without fully
// decoding its body.
func PeekType(data []byte) (Type, error) {
	if len(data) < 1 {
		return 0, ErrTruncated
	}
	t := Type(data[0])
	switch t {
	case TypeRegisterRequest, TypeRegisterResponse, TypeRoutingUpdate, TypeKeepAlive, TypeTopologyUpdate:
		return t, nil
	default:
		return 0, ErrUnknownType{Got: data[0]}
	}
}
