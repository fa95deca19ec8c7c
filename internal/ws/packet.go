package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Engine.IO v4 / Socket.IO v4 text framing.
//
//	0{...}            open (server -> client, handshake data)
//	1                 close
//	2 / 3             ping / pong
//	40 / 40{...}      namespace connect (client request / server ack)
//	41                namespace disconnect
//	42["event",...]   event
//	44{...}           namespace connect error

var ErrBadPacket = errors.New("bad packet")

type PacketKind int

const (
	PacketOpen PacketKind = iota
	PacketClose
	PacketPing
	PacketPong
	PacketNoop
	PacketConnect
	PacketDisconnect
	PacketEvent
	PacketConnectError
)

var (
	FramePing    = []byte("2")
	FramePong    = []byte("3")
	FrameConnect = []byte("40")
)

type Packet struct {
	Kind  PacketKind
	Event string
	Args  []json.RawMessage
	Data  json.RawMessage // handshake payload for open / connect / connect error
}

// Handshake is the body of the open packet.
type Handshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"` // ms
	PingTimeout  int    `json:"pingTimeout"`  // ms
	MaxPayload   int    `json:"maxPayload"`
}

func DecodePacket(data []byte) (Packet, error) {
	if len(data) == 0 {
		return Packet{}, fmt.Errorf("%w: empty frame", ErrBadPacket)
	}

	switch data[0] {
	case '0':
		return Packet{Kind: PacketOpen, Data: json.RawMessage(data[1:])}, nil
	case '1':
		return Packet{Kind: PacketClose}, nil
	case '2':
		return Packet{Kind: PacketPing}, nil
	case '3':
		return Packet{Kind: PacketPong}, nil
	case '6':
		return Packet{Kind: PacketNoop}, nil
	case '4':
		return decodeMessage(data[1:])
	default:
		return Packet{}, fmt.Errorf("%w: engine type %q", ErrBadPacket, data[0])
	}
}

func decodeMessage(data []byte) (Packet, error) {
	if len(data) == 0 {
		return Packet{}, fmt.Errorf("%w: empty message", ErrBadPacket)
	}
	kind, rest := data[0], skipNamespaceAndAck(data[1:])

	switch kind {
	case '0':
		return Packet{Kind: PacketConnect, Data: json.RawMessage(rest)}, nil
	case '1':
		return Packet{Kind: PacketDisconnect}, nil
	case '4':
		return Packet{Kind: PacketConnectError, Data: json.RawMessage(rest)}, nil
	case '2':
		var parts []json.RawMessage
		if err := json.Unmarshal(rest, &parts); err != nil {
			return Packet{}, fmt.Errorf("%w: event body: %v", ErrBadPacket, err)
		}
		if len(parts) == 0 {
			return Packet{}, fmt.Errorf("%w: event without name", ErrBadPacket)
		}
		var name string
		if err := json.Unmarshal(parts[0], &name); err != nil {
			return Packet{}, fmt.Errorf("%w: event name: %v", ErrBadPacket, err)
		}
		return Packet{Kind: PacketEvent, Event: name, Args: parts[1:]}, nil
	default:
		return Packet{}, fmt.Errorf("%w: socket type %q", ErrBadPacket, kind)
	}
}

// skipNamespaceAndAck drops an optional "/nsp," prefix and ack id digits.
func skipNamespaceAndAck(b []byte) []byte {
	if len(b) > 0 && b[0] == '/' {
		if i := bytes.IndexByte(b, ','); i >= 0 {
			b = b[i+1:]
		} else {
			return nil
		}
	}
	for len(b) > 0 && b[0] >= '0' && b[0] <= '9' {
		b = b[1:]
	}
	return b
}

// EncodeEvent builds a 42["event", args...] frame.
func EncodeEvent(event string, args ...any) ([]byte, error) {
	parts := make([]any, 0, len(args)+1)
	parts = append(parts, event)
	parts = append(parts, args...)

	body, err := json.Marshal(parts)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return append([]byte("42"), body...), nil
}

func EncodeOpen(h Handshake) ([]byte, error) {
	body, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return append([]byte("0"), body...), nil
}

func EncodeConnectAck(sid string) ([]byte, error) {
	body, err := json.Marshal(struct {
		SID string `json:"sid"`
	}{SID: sid})
	if err != nil {
		return nil, err
	}
	return append([]byte("40"), body...), nil
}
