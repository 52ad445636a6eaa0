package player

import (
	"sort"
	"time"

	"github.com/siohaza/corridor/internal/protocol"

	"golang.org/x/text/cases"
)

const DefaultHealth = 100

// PlayerState is owned by the simulation loop; nothing else mutates it.
type PlayerState struct {
	ID       uint32
	Name     string
	Position protocol.Vector3f
	Velocity protocol.Vector3f
	Facing   float32
	Pitch    float32
	Health   uint8
	Alive    bool
	Score    int

	// ShotPending survives a newer input without the shoot flag arriving in the same tick.
	ShotPending  bool
	FireCooldown time.Duration
	RespawnIn    time.Duration

	LastSeq uint32
	HasSeq  bool

	// Held flags persist between inputs; mouse deltas apply once.
	Held    protocol.MoveFlags
	pending *protocol.PacketInput

	IdleTicks int
	Idle      bool
}

func New(id uint32, name string) *PlayerState {
	return &PlayerState{
		ID:     id,
		Name:   name,
		Health: DefaultHealth,
		Alive:  true,
	}
}

// Offer buffers in if its sequence is newer than both the applied and the buffered input.
// Older or equal sequences leave the player untouched.
func (p *PlayerState) Offer(in protocol.PacketInput) bool {
	if p.HasSeq && !protocol.SeqNewer(in.Seq, p.LastSeq) {
		return false
	}
	if p.pending != nil && !protocol.SeqNewer(in.Seq, p.pending.Seq) {
		return false
	}
	p.pending = &in
	if in.Flags&protocol.MoveShoot != 0 {
		p.ShotPending = true
	}
	return true
}

// TakePending returns the buffered input and marks its sequence applied.
func (p *PlayerState) TakePending() (protocol.PacketInput, bool) {
	if p.pending == nil {
		return protocol.PacketInput{}, false
	}
	in := *p.pending
	p.pending = nil
	p.LastSeq = in.Seq
	p.HasSeq = true
	return in, true
}

func (p *PlayerState) HasPending() bool {
	return p.pending != nil
}

func (p *PlayerState) Summary() protocol.PlayerSummary {
	return protocol.PlayerSummary{
		ID:       p.ID,
		Position: p.Position,
		Velocity: p.Velocity,
		Facing:   p.Facing,
	}
}

// Manager keeps players in id order. It is not safe for concurrent use.
type Manager struct {
	players map[uint32]*PlayerState
	names   map[string]uint32
	order   []uint32
	nextID  uint32
	fold    cases.Caser
}

func NewManager() *Manager {
	return &Manager{
		players: make(map[uint32]*PlayerState),
		names:   make(map[string]uint32),
		nextID:  1,
		fold:    cases.Fold(),
	}
}

// NextID hands out ids that are never reused while the process lives.
func (m *Manager) NextID() uint32 {
	id := m.nextID
	m.nextID++
	if m.nextID == 0 {
		m.nextID = 1
	}
	return id
}

func (m *Manager) Add(p *PlayerState) {
	if _, exists := m.players[p.ID]; !exists {
		idx := sort.Search(len(m.order), func(i int) bool { return m.order[i] >= p.ID })
		m.order = append(m.order, 0)
		copy(m.order[idx+1:], m.order[idx:])
		m.order[idx] = p.ID
	}
	m.players[p.ID] = p
	if p.Name != "" {
		m.names[m.nameKey(p.Name)] = p.ID
	}
}

func (m *Manager) Remove(id uint32) (*PlayerState, bool) {
	p, ok := m.players[id]
	if !ok {
		return nil, false
	}
	delete(m.players, id)
	if p.Name != "" {
		delete(m.names, m.nameKey(p.Name))
	}
	idx := sort.Search(len(m.order), func(i int) bool { return m.order[i] >= id })
	if idx < len(m.order) && m.order[idx] == id {
		m.order = append(m.order[:idx], m.order[idx+1:]...)
	}
	return p, true
}

func (m *Manager) Get(id uint32) (*PlayerState, bool) {
	p, ok := m.players[id]
	return p, ok
}

func (m *Manager) Count() int {
	return len(m.players)
}

// NameInUse compares names under Unicode case folding.
func (m *Manager) NameInUse(name string) bool {
	_, taken := m.names[m.nameKey(name)]
	return taken
}

func (m *Manager) ForEach(fn func(*PlayerState)) {
	for _, id := range m.order {
		fn(m.players[id])
	}
}

func (m *Manager) IDs() []uint32 {
	return append([]uint32(nil), m.order...)
}

func (m *Manager) nameKey(name string) string {
	return m.fold.String(name)
}
