package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codecat/go-enet"
)

const (
	enetServicePeriod = 2 * time.Millisecond
	enetEventBudget   = 100
	enetOutboxSize    = 1024
)

var ErrOutboxFull = errors.New("enet outbox full")

type enetCommand struct {
	endpoint   string
	data       []byte
	disconnect bool
}

// ENetServer carries datagrams as unsequenced ENet packets. The host is owned
// by the Receive loop; SendTo and Disconnect hand work to it through a queue.
type ENetServer struct {
	port     uint16
	maxPeers int
	logger   *slog.Logger

	host   enet.Host
	outbox chan enetCommand

	mu        sync.Mutex
	receiving bool
	stopped   bool
	stop      chan struct{}
	done      chan struct{}
}

func NewENetServer(port int, maxPeers int, logger *slog.Logger) *ENetServer {
	if logger == nil {
		logger = slog.Default()
	}

	return &ENetServer{
		port:     uint16(port),
		maxPeers: maxPeers,
		logger:   logger,
		outbox:   make(chan enetCommand, enetOutboxSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *ENetServer) Start() error {
	address := enet.NewListenAddress(s.port)

	host, err := enet.NewHost(address, uint64(s.maxPeers), 1, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to create ENet host: %w", err)
	}

	if err := host.CompressWithRangeCoder(); err != nil {
		host.Destroy()
		return fmt.Errorf("failed to setup range coder compression: %w", err)
	}

	s.host = host
	s.logger.Info("enet transport started", "port", s.port, "max_peers", s.maxPeers)
	return nil
}

func (s *ENetServer) Receive(ctx context.Context, handle func(Datagram)) error {
	s.mu.Lock()
	if s.host == nil || s.stopped {
		s.mu.Unlock()
		return ErrNotStarted
	}
	if s.receiving {
		s.mu.Unlock()
		return fmt.Errorf("enet transport already receiving")
	}
	s.receiving = true
	s.mu.Unlock()

	defer close(s.done)
	defer s.host.Destroy()

	peers := make(map[string]enet.Peer)
	ticker := time.NewTicker(enetServicePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case cmd := <-s.outbox:
			s.execute(peers, cmd)
		case <-ticker.C:
			s.service(peers, handle)
		}
	}
}

func (s *ENetServer) execute(peers map[string]enet.Peer, cmd enetCommand) {
	peer, ok := peers[cmd.endpoint]
	if !ok {
		return
	}

	if cmd.disconnect {
		peer.DisconnectLater(0)
		delete(peers, cmd.endpoint)
		return
	}

	packet, err := enet.NewPacket(cmd.data, enet.PacketFlagUnsequenced)
	if err != nil {
		s.logger.Error("failed to create packet", "error", err)
		return
	}
	if err := peer.SendPacket(packet, 0); err != nil {
		s.logger.Debug("failed to send packet", "endpoint", cmd.endpoint, "error", err)
	}
}

func (s *ENetServer) service(peers map[string]enet.Peer, handle func(Datagram)) {
	for i := 0; i < enetEventBudget; i++ {
		ev := s.host.Service(0)
		if ev == nil || ev.GetType() == enet.EventNone {
			return
		}

		peer := ev.GetPeer()
		endpoint := peerEndpoint(peer)

		switch ev.GetType() {
		case enet.EventConnect:
			peers[endpoint] = peer
			s.logger.Debug("peer connected", "peer", endpoint)

		case enet.EventDisconnect:
			delete(peers, endpoint)
			s.logger.Debug("peer disconnected", "peer", endpoint)
			handle(Datagram{From: endpoint, Kind: DatagramClosed})

		case enet.EventReceive:
			packet := ev.GetPacket()
			if packet == nil {
				continue
			}
			data := packet.GetData()
			packet.Destroy()
			handle(Datagram{From: endpoint, Kind: DatagramData, Data: data})
		}
	}
}

func peerEndpoint(peer enet.Peer) string {
	addr := peer.GetAddress()
	return fmt.Sprintf("%s:%d", addr.String(), addr.GetPort())
}

func (s *ENetServer) SendTo(endpoint string, data []byte) error {
	select {
	case s.outbox <- enetCommand{endpoint: endpoint, data: data}:
		return nil
	default:
		return ErrOutboxFull
	}
}

func (s *ENetServer) Disconnect(endpoint string) {
	select {
	case s.outbox <- enetCommand{endpoint: endpoint, disconnect: true}:
	default:
		s.logger.Warn("dropped disconnect request", "endpoint", endpoint)
	}
}

func (s *ENetServer) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	receiving := s.receiving
	close(s.stop)
	s.mu.Unlock()

	if receiving {
		<-s.done
	} else if s.host != nil {
		s.host.Destroy()
	}
	s.logger.Info("enet transport stopped")
}
