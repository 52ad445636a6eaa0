package client

import (
	"sync/atomic"

	"github.com/siohaza/corridor/internal/protocol"
)

// SnapshotSlot holds the newest snapshot by tick. The receive path offers,
// the render loop loads once per frame; readers never see a partial value.
type SnapshotSlot struct {
	latest atomic.Pointer[protocol.PacketSnapshot]
}

// Offer stores snap if its tick is newer than the held one under wrapping comparison.
func (s *SnapshotSlot) Offer(snap *protocol.PacketSnapshot) bool {
	for {
		cur := s.latest.Load()
		if cur != nil && !protocol.SeqNewer(snap.Tick, cur.Tick) {
			return false
		}
		if s.latest.CompareAndSwap(cur, snap) {
			return true
		}
	}
}

func (s *SnapshotSlot) Load() *protocol.PacketSnapshot {
	return s.latest.Load()
}
