package server

import (
	"context"
	"math"

	"github.com/siohaza/corridor/internal/gamestate"
	"github.com/siohaza/corridor/internal/protocol"
)

type outboundDatagram struct {
	to       string
	data     []byte
	snapshot bool
}

// enqueue never blocks the simulation loop; a full queue drops the datagram.
func (s *Server) enqueue(to string, data []byte, snapshot bool) {
	select {
	case s.outbound <- outboundDatagram{to: to, data: data, snapshot: snapshot}:
	default:
		s.stats.OutboundDropped.Add(1)
	}
}

// broadcastSnapshot encodes once and shares the immutable bytes with every session.
func (s *Server) broadcastSnapshot() {
	if s.sessions.len() == 0 {
		return
	}

	data, err := protocol.Marshal(s.world.Snapshot())
	if err != nil {
		s.logger.Error("failed to encode snapshot", "tick", s.world.Tick, "error", err)
		return
	}

	for endpoint := range s.sessions.byEndpoint {
		s.enqueue(endpoint, data, true)
	}
}

// broadcastHits tells every session about each shot that landed this tick.
func (s *Server) broadcastHits(hits []gamestate.Hit) {
	for _, hit := range hits {
		s.stats.Hits.Add(1)
		if hit.Killed {
			s.stats.Kills.Add(1)
			s.logger.Info("player killed", "shooter", hit.ShooterID, "target", hit.TargetID, "score", hit.Score)
		}

		data, err := protocol.Marshal(&protocol.PacketHit{
			Tick:         s.world.Tick,
			ShooterID:    hit.ShooterID,
			TargetID:     hit.TargetID,
			Health:       hit.Health,
			ShooterScore: uint16(min(hit.Score, math.MaxUint16)),
		})
		if err != nil {
			s.logger.Error("failed to encode hit", "tick", s.world.Tick, "error", err)
			continue
		}
		for endpoint := range s.sessions.byEndpoint {
			s.enqueue(endpoint, data, false)
		}
	}
}

func (s *Server) write(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case out := <-s.outbound:
			if err := s.transport.SendTo(out.to, out.data); err != nil {
				s.stats.SendErrors.Add(1)
				s.logger.Debug("failed to send datagram", "to", out.to, "error", err)
				continue
			}
			if out.snapshot {
				s.stats.SnapshotsSent.Add(1)
			}
		}
	}
}
