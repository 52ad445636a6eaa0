package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/siohaza/corridor/internal/protocol"
)

// UDPServer is a connectionless transport. Endpoints are "ip:port" strings.
type UDPServer struct {
	address string
	logger  *slog.Logger

	mu   sync.RWMutex
	conn *net.UDPConn
}

func NewUDPServer(address string, logger *slog.Logger) *UDPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &UDPServer{address: address, logger: logger}
}

func (s *UDPServer) Start() error {
	addr, err := net.ResolveUDPAddr("udp", s.address)
	if err != nil {
		return fmt.Errorf("failed to resolve udp address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on udp: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.logger.Info("udp transport started", "address", conn.LocalAddr().String())
	return nil
}

// Addr returns the bound local address, useful when listening on port 0.
func (s *UDPServer) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return ""
	}
	return s.conn.LocalAddr().String()
}

func (s *UDPServer) Receive(ctx context.Context, handle func(Datagram)) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return ErrNotStarted
	}

	buf := make([]byte, protocol.MaxDatagramSize+1)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Debug("udp read error", "error", err)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		handle(Datagram{From: from.String(), Kind: DatagramData, Data: data})
	}
}

func (s *UDPServer) SendTo(endpoint string, data []byte) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return ErrNotStarted
	}

	addr, err := netip.ParseAddrPort(endpoint)
	if err != nil {
		return fmt.Errorf("failed to parse endpoint %q: %w", endpoint, err)
	}
	if _, err := conn.WriteToUDPAddrPort(data, addr); err != nil {
		return fmt.Errorf("failed to send datagram: %w", err)
	}
	return nil
}

// Disconnect is a no-op; UDP has no link to tear down.
func (s *UDPServer) Disconnect(endpoint string) {}

func (s *UDPServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
		s.logger.Info("udp transport stopped")
	}
}
