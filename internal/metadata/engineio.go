package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Engine.IO v4 packet types.
const (
	eioOpen    byte = '0'
	eioClose   byte = '1'
	eioPing    byte = '2'
	eioPong    byte = '3'
	eioMessage byte = '4'
	eioUpgrade byte = '5'
	eioNoop    byte = '6'
)

// Socket.IO v5 packet types (carried inside Engine.IO messages).
const (
	sioConnect      byte = '0'
	sioDisconnect   byte = '1'
	sioEvent        byte = '2'
	sioAck          byte = '3'
	sioConnectError byte = '4'
	sioBinaryEvent  byte = '5'
	sioBinaryAck    byte = '6'
)

var errEmptyPacket = errors.New("empty packet")

// Defaults used when the open packet omits ping settings.
const (
	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
)

type eioPacket struct {
	typ  byte
	data string
}

// openInfo is the JSON body of the Engine.IO open packet.
type openInfo struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"` // ms
	PingTimeout  int      `json:"pingTimeout"`  // ms
	MaxPayload   int      `json:"maxPayload"`
}

// readTimeout is how long to wait for the next frame before treating the
// connection as dead: one ping interval plus the ping timeout.
func (o openInfo) readTimeout() time.Duration {
	interval := time.Duration(o.PingInterval) * time.Millisecond
	if interval <= 0 {
		interval = defaultPingInterval
	}
	timeout := time.Duration(o.PingTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	return interval + timeout
}

func decodeEngine(frame string) (eioPacket, error) {
	if frame == "" {
		return eioPacket{}, errEmptyPacket
	}
	p := eioPacket{typ: frame[0], data: frame[1:]}
	if p.typ < eioOpen || p.typ > eioNoop {
		return eioPacket{}, fmt.Errorf("unknown engine.io packet type %q", p.typ)
	}
	return p, nil
}

func decodeOpen(data string) (openInfo, error) {
	var info openInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return openInfo{}, fmt.Errorf("decode open packet: %w", err)
	}
	return info, nil
}

type sioPacket struct {
	typ       byte
	namespace string
	ackID     int // -1 when absent
	data      json.RawMessage
}

// decodeSocket parses a Socket.IO packet: <type>[/<nsp>,][<ack id>][<json>].
// Binary packets are rejected; the metadata feed never sends attachments.
func decodeSocket(s string) (sioPacket, error) {
	if s == "" {
		return sioPacket{}, errEmptyPacket
	}
	p := sioPacket{typ: s[0], namespace: "/", ackID: -1}
	switch p.typ {
	case sioConnect, sioDisconnect, sioEvent, sioAck, sioConnectError:
	case sioBinaryEvent, sioBinaryAck:
		return sioPacket{}, errors.New("binary socket.io packets are not supported")
	default:
		return sioPacket{}, fmt.Errorf("unknown socket.io packet type %q", p.typ)
	}
	rest := s[1:]

	if strings.HasPrefix(rest, "/") {
		end := strings.IndexByte(rest, ',')
		if end < 0 {
			p.namespace = rest
			return p, nil
		}
		p.namespace = rest[:end]
		rest = rest[end+1:]
	}

	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i > 0 {
		id, err := strconv.Atoi(rest[:i])
		if err != nil {
			return sioPacket{}, fmt.Errorf("bad ack id: %w", err)
		}
		p.ackID = id
		rest = rest[i:]
	}

	if rest != "" {
		if !json.Valid([]byte(rest)) {
			return sioPacket{}, errors.New("socket.io payload is not valid JSON")
		}
		p.data = json.RawMessage(rest)
	}
	return p, nil
}

// decodeEvent splits an EVENT payload ["name", arg0, arg1...].
func decodeEvent(data json.RawMessage) (string, []json.RawMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return "", nil, fmt.Errorf("decode event: %w", err)
	}
	if len(parts) == 0 {
		return "", nil, errors.New("event without name")
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, fmt.Errorf("decode event name: %w", err)
	}
	return name, parts[1:], nil
}

// encodeConnect builds the Engine.IO message that joins namespace nsp.
func encodeConnect(nsp string) string {
	if nsp == "" || nsp == "/" {
		return string([]byte{eioMessage, sioConnect})
	}
	return string([]byte{eioMessage, sioConnect}) + nsp + ","
}

// encodeDisconnect builds the Engine.IO message that leaves namespace nsp.
func encodeDisconnect(nsp string) string {
	if nsp == "" || nsp == "/" {
		return string([]byte{eioMessage, sioDisconnect})
	}
	return string([]byte{eioMessage, sioDisconnect}) + nsp + ","
}
