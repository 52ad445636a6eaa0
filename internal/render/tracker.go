package render

import (
	"cmp"
	"slices"
	"time"

	"github.com/siohaza/corridor/internal/protocol"
)

// View is what the drawing side needs for one remote player this frame.
type View struct {
	ID       uint32
	Position protocol.Vector3f
	State    RenderState
}

// Tracker keeps one RenderState per remote player. It belongs to the render loop.
type Tracker struct {
	local  uint32
	states map[uint32]*RenderState
	seen   map[uint32]struct{}
}

func NewTracker(localID uint32) *Tracker {
	return &Tracker{
		local:  localID,
		states: make(map[uint32]*RenderState),
		seen:   make(map[uint32]struct{}),
	}
}

// Update advances every remote player by elapsed and forgets players missing
// from snap. Views come back in id order.
func (t *Tracker) Update(snap *protocol.PacketSnapshot, camera protocol.Vector3f, elapsed time.Duration) []View {
	if snap == nil {
		return nil
	}

	clear(t.seen)
	views := make([]View, 0, len(snap.Players))

	for _, p := range snap.Players {
		if p.ID == t.local {
			continue
		}
		t.seen[p.ID] = struct{}{}

		state, ok := t.states[p.ID]
		if !ok {
			state = &RenderState{}
			t.states[p.ID] = state
		}
		state.Update(p, camera, elapsed)
		views = append(views, View{ID: p.ID, Position: p.Position, State: *state})
	}

	for id := range t.states {
		if _, ok := t.seen[id]; !ok {
			delete(t.states, id)
		}
	}

	slices.SortFunc(views, func(a, b View) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return views
}

func (t *Tracker) Len() int {
	return len(t.states)
}
