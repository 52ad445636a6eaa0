package server

import (
	"context"
	"fmt"
	"time"

	"github.com/siohaza/corridor/internal/network"
	"github.com/siohaza/corridor/internal/protocol"
	"github.com/siohaza/corridor/internal/validation"

	"github.com/google/uuid"
)

// inboundMessage is a decoded datagram on its way to the simulation loop.
type inboundMessage struct {
	from   string
	closed bool
	packet protocol.Packet
}

// receive decodes datagrams and queues them. It never touches simulation state.
func (s *Server) receive(ctx context.Context) error {
	err := s.transport.Receive(ctx, s.accept)
	if err != nil {
		return fmt.Errorf("failed to receive: %w", err)
	}
	return nil
}

func (s *Server) accept(d network.Datagram) {
	msg := inboundMessage{from: d.From}

	switch d.Kind {
	case network.DatagramClosed:
		msg.closed = true
	default:
		packet, err := protocol.Decode(d.Data)
		if err != nil {
			s.stats.Malformed.Add(1)
			s.logger.Debug("dropped malformed datagram", "from", d.From, "len", len(d.Data), "error", err)
			return
		}
		msg.packet = packet
	}

	select {
	case s.inbound <- msg:
	default:
		s.stats.InboundDropped.Add(1)
	}
}

func (s *Server) drainInbound(now time.Time) {
	for n := len(s.inbound); n > 0; n-- {
		select {
		case msg := <-s.inbound:
			s.handleMessage(msg, now)
		default:
			return
		}
	}
}

func (s *Server) handleMessage(msg inboundMessage, now time.Time) {
	if msg.closed {
		if sess, ok := s.sessions.byFrom(msg.from); ok {
			s.removeSession(sess, "disconnected")
		}
		return
	}

	switch p := msg.packet.(type) {
	case *protocol.PacketJoin:
		s.handleJoin(msg.from, p, now)

	case *protocol.PacketInput:
		s.handleInput(msg.from, p, now)

	case *protocol.PacketPing:
		if sess, ok := s.sessions.bound(msg.from, p.ClientID); ok {
			sess.lastSeen = now
		} else {
			s.stats.UnknownClient.Add(1)
		}

	case *protocol.PacketLeave:
		if sess, ok := s.sessions.bound(msg.from, p.ClientID); ok {
			s.removeSession(sess, "left")
		} else {
			s.stats.UnknownClient.Add(1)
		}

	default:
		s.stats.Malformed.Add(1)
		s.logger.Debug("dropped server-bound packet of wrong direction", "from", msg.from, "type", msg.packet.Type())
	}
}

func (s *Server) handleInput(from string, in *protocol.PacketInput, now time.Time) {
	sess, ok := s.sessions.bound(from, in.ClientID)
	if !ok {
		s.stats.UnknownClient.Add(1)
		s.logger.Debug("dropped input from unbound endpoint", "from", from, "client", in.ClientID)
		return
	}

	if err := validation.ValidateInput(in); err != nil {
		s.stats.Malformed.Add(1)
		s.logger.Debug("dropped invalid input", "player", in.ClientID, "error", err)
		return
	}

	sess.lastSeen = now
	if !s.world.Offer(*in) {
		s.stats.InputsStale.Add(1)
		return
	}
	s.stats.InputsAccepted.Add(1)
}

func (s *Server) handleJoin(from string, join *protocol.PacketJoin, now time.Time) {
	if sess, ok := s.sessions.byFrom(from); ok {
		if sess.nonce == join.Nonce {
			sess.lastSeen = now
			s.enqueue(from, sess.welcome, false)
			return
		}
		s.removeSession(sess, "rejoined")
	}

	if ban, banned := s.bans.Check(from, join.Name); banned {
		s.logger.Info("banned client tried to join", "address", from, "name", join.Name, "reason", ban.Reason)
		s.reject(from, join.Nonce, protocol.RejectBanned)
		return
	}
	if err := validation.ValidateName(join.Name); err != nil {
		s.reject(from, join.Nonce, validation.RejectReason(err))
		return
	}
	if s.world.Players.NameInUse(join.Name) {
		s.reject(from, join.Nonce, protocol.RejectNameTaken)
		return
	}
	if s.world.Players.Count() >= s.config.Server.MaxPlayers {
		s.reject(from, join.Nonce, protocol.RejectServerFull)
		return
	}

	p := s.world.AddPlayer(join.Name)

	welcome, err := protocol.Marshal(&protocol.PacketWelcome{
		Nonce:    join.Nonce,
		ClientID: p.ID,
		MapID:    s.world.MapID,
		Tick:     s.world.Tick,
	})
	if err != nil {
		s.logger.Error("failed to encode welcome", "error", err)
		s.world.RemovePlayer(p.ID)
		return
	}

	sess := &session{
		endpoint: from,
		playerID: p.ID,
		nonce:    join.Nonce,
		welcome:  welcome,
		joinedAt: now,
		lastSeen: now,
	}
	s.sessions.add(sess)
	s.enqueue(from, welcome, false)
	s.stats.JoinsAccepted.Add(1)

	s.logger.Info("player joined", "player", p.ID, "name", p.Name, "address", from)
	s.updatePingServerInfo()
}

func (s *Server) reject(to string, nonce uuid.UUID, reason protocol.RejectReason) {
	s.stats.JoinsRejected.Add(1)
	s.logger.Info("join rejected", "address", to, "reason", reason.String())

	data, err := protocol.Marshal(&protocol.PacketRejected{Nonce: nonce, Reason: reason})
	if err != nil {
		s.logger.Error("failed to encode rejection", "error", err)
		return
	}
	s.enqueue(to, data, false)
}

func (s *Server) expireSessions(now time.Time) {
	timeout := s.config.ClientTimeout()
	for _, sess := range s.sessions.byEndpoint {
		if sess.expired(now, timeout) {
			s.stats.Timeouts.Add(1)
			s.removeSession(sess, "timed out")
		}
	}
}

func (s *Server) removeSession(sess *session, reason string) {
	s.sessions.remove(sess)
	s.world.RemovePlayer(sess.playerID)
	s.transport.Disconnect(sess.endpoint)

	s.logger.Info("player removed", "player", sess.playerID, "address", sess.endpoint, "reason", reason)
	s.updatePingServerInfo()
}
