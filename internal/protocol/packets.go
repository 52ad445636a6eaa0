package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
)

const (
	InputSize            = 23
	SnapshotHeaderSize   = 11
	SnapshotPlayerSize   = 32
	JoinHeaderSize       = 18
	WelcomeSize          = 29
	RejectedSize         = 18
	PingSize             = 5
	LeaveSize            = 5
	HitSize              = 16
	maxEncodedNameLength = math.MaxUint8
)

type PacketInput struct {
	ClientID  uint32
	Seq       uint32
	Flags     MoveFlags
	MouseDX   float32
	MouseDY   float32
	Timestamp float32
}

func (p *PacketInput) Type() PacketType { return PacketTypeInput }

func (p *PacketInput) Write(w io.Writer) error {
	buf := make([]byte, InputSize)
	buf[0] = uint8(PacketTypeInput)
	binary.LittleEndian.PutUint32(buf[1:5], p.ClientID)
	binary.LittleEndian.PutUint32(buf[5:9], p.Seq)
	binary.LittleEndian.PutUint16(buf[9:11], uint16(p.Flags))
	binary.LittleEndian.PutUint32(buf[11:15], math.Float32bits(p.MouseDX))
	binary.LittleEndian.PutUint32(buf[15:19], math.Float32bits(p.MouseDY))
	binary.LittleEndian.PutUint32(buf[19:23], math.Float32bits(p.Timestamp))
	_, err := w.Write(buf)
	return err
}

func (p *PacketInput) Read(data []byte) error {
	if len(data) != InputSize {
		return fmt.Errorf("%w: input packet is %d bytes, want %d", ErrMalformed, len(data), InputSize)
	}
	if PacketType(data[0]) != PacketTypeInput {
		return fmt.Errorf("%w: not an input packet", ErrMalformed)
	}
	p.ClientID = binary.LittleEndian.Uint32(data[1:5])
	p.Seq = binary.LittleEndian.Uint32(data[5:9])
	p.Flags = MoveFlags(binary.LittleEndian.Uint16(data[9:11]))
	p.MouseDX = math.Float32frombits(binary.LittleEndian.Uint32(data[11:15]))
	p.MouseDY = math.Float32frombits(binary.LittleEndian.Uint32(data[15:19]))
	p.Timestamp = math.Float32frombits(binary.LittleEndian.Uint32(data[19:23]))
	return nil
}

type PlayerSummary struct {
	ID       uint32
	Position Vector3f
	Velocity Vector3f
	Facing   float32
}

type PacketSnapshot struct {
	Tick    uint32
	MapID   uint32
	Players []PlayerSummary
}

func (p *PacketSnapshot) Type() PacketType { return PacketTypeSnapshot }

func (p *PacketSnapshot) Write(w io.Writer) error {
	if len(p.Players) > MaxPlayers {
		return fmt.Errorf("snapshot holds %d players, limit is %d", len(p.Players), MaxPlayers)
	}

	buf := make([]byte, SnapshotHeaderSize+len(p.Players)*SnapshotPlayerSize)
	buf[0] = uint8(PacketTypeSnapshot)
	binary.LittleEndian.PutUint32(buf[1:5], p.Tick)
	binary.LittleEndian.PutUint32(buf[5:9], p.MapID)
	binary.LittleEndian.PutUint16(buf[9:11], uint16(len(p.Players)))

	offset := SnapshotHeaderSize
	for _, pl := range p.Players {
		b := buf[offset : offset+SnapshotPlayerSize]
		binary.LittleEndian.PutUint32(b[0:4], pl.ID)
		putVector(b[4:16], pl.Position)
		putVector(b[16:28], pl.Velocity)
		binary.LittleEndian.PutUint32(b[28:32], math.Float32bits(pl.Facing))
		offset += SnapshotPlayerSize
	}

	_, err := w.Write(buf)
	return err
}

func (p *PacketSnapshot) Read(data []byte) error {
	if len(data) < SnapshotHeaderSize {
		return fmt.Errorf("%w: snapshot packet too small", ErrMalformed)
	}
	if PacketType(data[0]) != PacketTypeSnapshot {
		return fmt.Errorf("%w: not a snapshot packet", ErrMalformed)
	}

	count := int(binary.LittleEndian.Uint16(data[9:11]))
	if want := SnapshotHeaderSize + count*SnapshotPlayerSize; len(data) != want {
		return fmt.Errorf("%w: snapshot with %d players is %d bytes, want %d", ErrMalformed, count, len(data), want)
	}

	p.Tick = binary.LittleEndian.Uint32(data[1:5])
	p.MapID = binary.LittleEndian.Uint32(data[5:9])
	p.Players = make([]PlayerSummary, count)

	offset := SnapshotHeaderSize
	for i := range p.Players {
		b := data[offset : offset+SnapshotPlayerSize]
		p.Players[i] = PlayerSummary{
			ID:       binary.LittleEndian.Uint32(b[0:4]),
			Position: readVector(b[4:16]),
			Velocity: readVector(b[16:28]),
			Facing:   math.Float32frombits(binary.LittleEndian.Uint32(b[28:32])),
		}
		offset += SnapshotPlayerSize
	}
	return nil
}

// PacketJoin asks for a session. The nonce makes a resent join idempotent.
type PacketJoin struct {
	Nonce uuid.UUID
	Name  string
}

func (p *PacketJoin) Type() PacketType { return PacketTypeJoin }

func (p *PacketJoin) Write(w io.Writer) error {
	if len(p.Name) > maxEncodedNameLength {
		return fmt.Errorf("name too long: %d bytes", len(p.Name))
	}
	buf := make([]byte, JoinHeaderSize+len(p.Name))
	buf[0] = uint8(PacketTypeJoin)
	copy(buf[1:17], p.Nonce[:])
	buf[17] = uint8(len(p.Name))
	copy(buf[18:], p.Name)
	_, err := w.Write(buf)
	return err
}

func (p *PacketJoin) Read(data []byte) error {
	if len(data) < JoinHeaderSize {
		return fmt.Errorf("%w: join packet too small", ErrMalformed)
	}
	if PacketType(data[0]) != PacketTypeJoin {
		return fmt.Errorf("%w: not a join packet", ErrMalformed)
	}
	nameLen := int(data[17])
	if len(data) != JoinHeaderSize+nameLen {
		return fmt.Errorf("%w: join name length %d does not match packet", ErrMalformed, nameLen)
	}
	copy(p.Nonce[:], data[1:17])
	p.Name = string(data[18:])
	return nil
}

type PacketWelcome struct {
	Nonce    uuid.UUID
	ClientID uint32
	MapID    uint32
	Tick     uint32
}

func (p *PacketWelcome) Type() PacketType { return PacketTypeWelcome }

func (p *PacketWelcome) Write(w io.Writer) error {
	buf := make([]byte, WelcomeSize)
	buf[0] = uint8(PacketTypeWelcome)
	copy(buf[1:17], p.Nonce[:])
	binary.LittleEndian.PutUint32(buf[17:21], p.ClientID)
	binary.LittleEndian.PutUint32(buf[21:25], p.MapID)
	binary.LittleEndian.PutUint32(buf[25:29], p.Tick)
	_, err := w.Write(buf)
	return err
}

func (p *PacketWelcome) Read(data []byte) error {
	if len(data) != WelcomeSize {
		return fmt.Errorf("%w: welcome packet is %d bytes, want %d", ErrMalformed, len(data), WelcomeSize)
	}
	copy(p.Nonce[:], data[1:17])
	p.ClientID = binary.LittleEndian.Uint32(data[17:21])
	p.MapID = binary.LittleEndian.Uint32(data[21:25])
	p.Tick = binary.LittleEndian.Uint32(data[25:29])
	return nil
}

type PacketRejected struct {
	Nonce  uuid.UUID
	Reason RejectReason
}

func (p *PacketRejected) Type() PacketType { return PacketTypeRejected }

func (p *PacketRejected) Write(w io.Writer) error {
	buf := make([]byte, RejectedSize)
	buf[0] = uint8(PacketTypeRejected)
	copy(buf[1:17], p.Nonce[:])
	buf[17] = uint8(p.Reason)
	_, err := w.Write(buf)
	return err
}

func (p *PacketRejected) Read(data []byte) error {
	if len(data) != RejectedSize {
		return fmt.Errorf("%w: rejected packet is %d bytes, want %d", ErrMalformed, len(data), RejectedSize)
	}
	copy(p.Nonce[:], data[1:17])
	p.Reason = RejectReason(data[17])
	return nil
}

// PacketPing is the client heartbeat.
type PacketPing struct {
	ClientID uint32
}

func (p *PacketPing) Type() PacketType { return PacketTypePing }

func (p *PacketPing) Write(w io.Writer) error {
	return writeClientID(w, PacketTypePing, p.ClientID)
}

func (p *PacketPing) Read(data []byte) error {
	id, err := readClientID(data, PingSize, "ping")
	p.ClientID = id
	return err
}

type PacketLeave struct {
	ClientID uint32
}

func (p *PacketLeave) Type() PacketType { return PacketTypeLeave }

func (p *PacketLeave) Write(w io.Writer) error {
	return writeClientID(w, PacketTypeLeave, p.ClientID)
}

func (p *PacketLeave) Read(data []byte) error {
	id, err := readClientID(data, LeaveSize, "leave")
	p.ClientID = id
	return err
}

// PacketHit is broadcast when a shot lands. Health is what the target has left.
type PacketHit struct {
	Tick         uint32
	ShooterID    uint32
	TargetID     uint32
	Health       uint8
	ShooterScore uint16
}

func (p *PacketHit) Type() PacketType { return PacketTypeHit }

func (p *PacketHit) Killed() bool { return p.Health == 0 }

func (p *PacketHit) Write(w io.Writer) error {
	buf := make([]byte, HitSize)
	buf[0] = uint8(PacketTypeHit)
	binary.LittleEndian.PutUint32(buf[1:5], p.Tick)
	binary.LittleEndian.PutUint32(buf[5:9], p.ShooterID)
	binary.LittleEndian.PutUint32(buf[9:13], p.TargetID)
	buf[13] = p.Health
	binary.LittleEndian.PutUint16(buf[14:16], p.ShooterScore)
	_, err := w.Write(buf)
	return err
}

func (p *PacketHit) Read(data []byte) error {
	if len(data) != HitSize {
		return fmt.Errorf("%w: hit packet is %d bytes, want %d", ErrMalformed, len(data), HitSize)
	}
	p.Tick = binary.LittleEndian.Uint32(data[1:5])
	p.ShooterID = binary.LittleEndian.Uint32(data[5:9])
	p.TargetID = binary.LittleEndian.Uint32(data[9:13])
	p.Health = data[13]
	p.ShooterScore = binary.LittleEndian.Uint16(data[14:16])
	return nil
}

func writeClientID(w io.Writer, t PacketType, id uint32) error {
	buf := make([]byte, 5)
	buf[0] = uint8(t)
	binary.LittleEndian.PutUint32(buf[1:5], id)
	_, err := w.Write(buf)
	return err
}

func readClientID(data []byte, size int, name string) (uint32, error) {
	if len(data) != size {
		return 0, fmt.Errorf("%w: %s packet is %d bytes, want %d", ErrMalformed, name, len(data), size)
	}
	return binary.LittleEndian.Uint32(data[1:5]), nil
}

func putVector(b []byte, v Vector3f) {
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(v.Z))
}

func readVector(b []byte) Vector3f {
	return Vector3f{
		X: math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
		Z: math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
	}
}
