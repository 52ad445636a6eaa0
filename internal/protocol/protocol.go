package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	MaxPlayers      = 32
	PlayerNameLen   = 16
	ProtocolVersion = 1

	// MaxDatagramSize bounds every encoded packet, a full snapshot included.
	MaxDatagramSize = 1200
)

type PacketType uint8

const (
	PacketTypeInput    PacketType = 0
	PacketTypeSnapshot PacketType = 1
	PacketTypeJoin     PacketType = 2
	PacketTypeWelcome  PacketType = 3
	PacketTypeRejected PacketType = 4
	PacketTypePing     PacketType = 5
	PacketTypeLeave    PacketType = 6
	PacketTypeHit      PacketType = 7
)

func (t PacketType) String() string {
	switch t {
	case PacketTypeInput:
		return "input"
	case PacketTypeSnapshot:
		return "snapshot"
	case PacketTypeJoin:
		return "join"
	case PacketTypeWelcome:
		return "welcome"
	case PacketTypeRejected:
		return "rejected"
	case PacketTypePing:
		return "ping"
	case PacketTypeLeave:
		return "leave"
	case PacketTypeHit:
		return "hit"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

type MoveFlags uint16

const (
	MoveForward MoveFlags = 1 << iota
	MoveBack
	MoveStrafeLeft
	MoveStrafeRight
	MoveTurnLeft
	MoveTurnRight
	MoveJump
	MoveSprint
	MoveShoot

	MoveFlagsMask = MoveForward | MoveBack | MoveStrafeLeft | MoveStrafeRight |
		MoveTurnLeft | MoveTurnRight | MoveJump | MoveSprint | MoveShoot
)

func (f MoveFlags) Has(flag MoveFlags) bool {
	return f&flag != 0
}

// Known reports whether only defined movement bits are set.
func (f MoveFlags) Known() bool {
	return f&^MoveFlagsMask == 0
}

type RejectReason uint8

const (
	RejectNameEmpty         RejectReason = 1
	RejectNameTaken         RejectReason = 2
	RejectNameInappropriate RejectReason = 3
	RejectServerFull        RejectReason = 4
	RejectNameInvalid       RejectReason = 5
	RejectBanned            RejectReason = 6
)

func (r RejectReason) String() string {
	switch r {
	case RejectNameEmpty:
		return "name empty"
	case RejectNameTaken:
		return "name taken"
	case RejectNameInappropriate:
		return "name inappropriate"
	case RejectServerFull:
		return "server full"
	case RejectNameInvalid:
		return "name invalid"
	case RejectBanned:
		return "banned"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

var (
	ErrMalformed     = errors.New("malformed packet")
	ErrUnknownPacket = errors.New("unknown packet type")
)

type Vector3f struct {
	X, Y, Z float32
}

func (v Vector3f) LengthSquared() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Packet is any message that can be put on the wire.
type Packet interface {
	Type() PacketType
	Write(w io.Writer) error
}

// SeqNewer reports whether a is newer than b on a wrapping u32 counter.
// Counters exactly 2^31 apart are not newer in either direction.
func SeqNewer(a, b uint32) bool {
	return int32(a-b) > 0
}

func ReadPacketType(data []byte) (PacketType, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("%w: packet too small", ErrMalformed)
	}
	return PacketType(data[0]), nil
}

// Decode parses one datagram. Every failure wraps ErrMalformed or ErrUnknownPacket.
func Decode(data []byte) (Packet, error) {
	packetType, err := ReadPacketType(data)
	if err != nil {
		return nil, err
	}

	var packet interface {
		Packet
		Read(data []byte) error
	}

	switch packetType {
	case PacketTypeInput:
		packet = &PacketInput{}
	case PacketTypeSnapshot:
		packet = &PacketSnapshot{}
	case PacketTypeJoin:
		packet = &PacketJoin{}
	case PacketTypeWelcome:
		packet = &PacketWelcome{}
	case PacketTypeRejected:
		packet = &PacketRejected{}
	case PacketTypePing:
		packet = &PacketPing{}
	case PacketTypeLeave:
		packet = &PacketLeave{}
	case PacketTypeHit:
		packet = &PacketHit{}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownPacket, uint8(packetType))
	}

	if err := packet.Read(data); err != nil {
		return nil, err
	}
	return packet, nil
}

func Marshal(packet Packet) ([]byte, error) {
	var buf bytes.Buffer
	if err := packet.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode %s packet: %w", packet.Type(), err)
	}
	if buf.Len() > MaxDatagramSize {
		return nil, fmt.Errorf("%s packet exceeds datagram size: %d bytes", packet.Type(), buf.Len())
	}
	return buf.Bytes(), nil
}

func IsFinite(values ...float32) bool {
	for _, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

func IsValidPosition(v Vector3f) bool {
	return IsFinite(v.X, v.Y, v.Z)
}
