package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/codecat/go-enet"

	"github.com/siohaza/corridor/internal/protocol"
)

const pollInterval = 50 * time.Millisecond

var ErrClosed = errors.New("connection closed")

// Conn is a datagram link to one server.
type Conn interface {
	Send(data []byte) error
	Receive(ctx context.Context, handle func(data []byte)) error
	Close() error
}

type UDPConn struct {
	conn *net.UDPConn
}

func DialUDP(address string) (*UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve server address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial server: %w", err)
	}
	return &UDPConn{conn: conn}, nil
}

func (c *UDPConn) Send(data []byte) error {
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("failed to send datagram: %w", err)
	}
	return nil
}

func (c *UDPConn) Receive(ctx context.Context, handle func(data []byte)) error {
	buf := make([]byte, protocol.MaxDatagramSize+1)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, err := c.conn.Read(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			// ICMP unreachable surfaces here while the server is down.
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		handle(data)
	}
}

func (c *UDPConn) Close() error {
	return c.conn.Close()
}

// ENetConn owns its host from the Receive loop; Send queues packets for it.
type ENetConn struct {
	host   enet.Host
	peer   enet.Peer
	outbox chan []byte
	logger *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// DialENet connects and waits for the handshake before returning.
func DialENet(address string, timeout time.Duration, logger *slog.Logger) (*ENetConn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	hostname, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server address: %w", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server port: %w", err)
	}

	host, err := enet.NewHost(nil, 1, 1, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create host: %w", err)
	}
	if err := host.CompressWithRangeCoder(); err != nil {
		host.Destroy()
		return nil, fmt.Errorf("failed to setup range coder compression: %w", err)
	}

	peer, err := host.Connect(enet.NewAddress(hostname, uint16(port)), 1, 0)
	if err != nil {
		host.Destroy()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ev := host.Service(uint32(pollInterval.Milliseconds()))
		if ev == nil || ev.GetType() != enet.EventConnect {
			continue
		}
		logger.Debug("enet connected", "address", address)
		return &ENetConn{
			host:   host,
			peer:   peer,
			outbox: make(chan []byte, 256),
			logger: logger,
			closed: make(chan struct{}),
		}, nil
	}

	host.Destroy()
	return nil, fmt.Errorf("failed to connect to %s: timed out", address)
}

func (c *ENetConn) Send(data []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	case c.outbox <- data:
		return nil
	default:
		return fmt.Errorf("enet outbox full")
	}
}

func (c *ENetConn) Receive(ctx context.Context, handle func(data []byte)) error {
	defer c.host.Destroy()

	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.disconnect()
			return nil

		case <-c.closed:
			c.disconnect()
			return nil

		case data := <-c.outbox:
			packet, err := enet.NewPacket(data, enet.PacketFlagUnsequenced)
			if err != nil {
				c.logger.Error("failed to create packet", "error", err)
				continue
			}
			if err := c.peer.SendPacket(packet, 0); err != nil {
				c.logger.Debug("failed to send packet", "error", err)
			}

		case <-ticker.C:
			for {
				ev := c.host.Service(0)
				if ev == nil || ev.GetType() == enet.EventNone {
					break
				}
				switch ev.GetType() {
				case enet.EventReceive:
					packet := ev.GetPacket()
					if packet == nil {
						continue
					}
					data := packet.GetData()
					packet.Destroy()
					handle(data)

				case enet.EventDisconnect:
					c.logger.Warn("disconnected by server")
					return ErrClosed
				}
			}
		}
	}
}

// disconnect flushes queued packets before the host goes away.
func (c *ENetConn) disconnect() {
	for drained := false; !drained; {
		select {
		case data := <-c.outbox:
			if packet, err := enet.NewPacket(data, enet.PacketFlagReliable); err == nil {
				c.peer.SendPacket(packet, 0)
			}
		default:
			drained = true
		}
	}
	c.peer.DisconnectLater(0)
	c.host.Service(0)
}

func (c *ENetConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}
