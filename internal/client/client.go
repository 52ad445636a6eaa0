package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/siohaza/corridor/internal/protocol"
)

const (
	DefaultJoinInterval      = 250 * time.Millisecond
	DefaultJoinTimeout       = 2 * time.Second
	DefaultHeartbeatInterval = time.Second
)

var ErrJoinTimeout = errors.New("join timed out")

// RejectedError carries the reason the server refused a join.
type RejectedError struct {
	Reason protocol.RejectReason
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("join rejected: %s", e.Reason)
}

type Config struct {
	Name              string
	JoinInterval      time.Duration
	JoinTimeout       time.Duration
	HeartbeatInterval time.Duration

	// OnHit runs on the receive goroutine for every hit the server reports.
	OnHit func(protocol.PacketHit)
}

func (c *Config) applyDefaults() {
	if c.JoinInterval == 0 {
		c.JoinInterval = DefaultJoinInterval
	}
	if c.JoinTimeout == 0 {
		c.JoinTimeout = DefaultJoinTimeout
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
}

type joinReply struct {
	welcome *protocol.PacketWelcome
	reason  protocol.RejectReason
}

type Client struct {
	conn   Conn
	cfg    Config
	logger *slog.Logger
	nonce  uuid.UUID
	start  time.Time
	slot   SnapshotSlot

	replies chan joinReply

	mu      sync.Mutex
	id      uint32
	mapID   uint32
	joined  bool
	seq     uint32
	cancel  context.CancelFunc
	group   *errgroup.Group
	stopped bool
}

func New(conn Conn, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &Client{
		conn:    conn,
		cfg:     cfg,
		logger:  logger,
		nonce:   uuid.New(),
		start:   time.Now(),
		replies: make(chan joinReply, 1),
	}
}

// Connect starts the receive loop and joins. Join is resent until the server
// answers or the join timeout passes; the heartbeat starts once welcomed.
func (c *Client) Connect(ctx context.Context) (*protocol.PacketWelcome, error) {
	runCtx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(runCtx)

	c.mu.Lock()
	c.cancel = cancel
	c.group = group
	c.mu.Unlock()

	group.Go(func() error {
		return c.conn.Receive(gctx, c.handle)
	})

	welcome, err := c.join(gctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.mu.Lock()
	c.id = welcome.ClientID
	c.mapID = welcome.MapID
	c.joined = true
	c.mu.Unlock()

	group.Go(func() error {
		return c.heartbeat(gctx)
	})

	c.logger.Info("joined server", "client", welcome.ClientID, "map", welcome.MapID, "tick", welcome.Tick)
	return welcome, nil
}

func (c *Client) join(ctx context.Context) (*protocol.PacketWelcome, error) {
	data, err := protocol.Marshal(&protocol.PacketJoin{Nonce: c.nonce, Name: c.cfg.Name})
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(c.cfg.JoinInterval)
	defer ticker.Stop()
	timeout := time.NewTimer(c.cfg.JoinTimeout)
	defer timeout.Stop()

	for {
		if err := c.conn.Send(data); err != nil {
			c.logger.Debug("failed to send join", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout.C:
			return nil, ErrJoinTimeout
		case reply := <-c.replies:
			if reply.welcome == nil {
				return nil, &RejectedError{Reason: reply.reason}
			}
			return reply.welcome, nil
		case <-ticker.C:
		}
	}
}

func (c *Client) heartbeat(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.send(&protocol.PacketPing{ClientID: c.ID()}); err != nil {
				c.logger.Debug("failed to send heartbeat", "error", err)
			}
		}
	}
}

func (c *Client) handle(data []byte) {
	packet, err := protocol.Decode(data)
	if err != nil {
		c.logger.Debug("dropped malformed datagram", "error", err)
		return
	}

	switch p := packet.(type) {
	case *protocol.PacketSnapshot:
		c.slot.Offer(p)

	case *protocol.PacketWelcome:
		if p.Nonce == c.nonce {
			c.reply(joinReply{welcome: p})
		}

	case *protocol.PacketRejected:
		if p.Nonce == c.nonce {
			c.reply(joinReply{reason: p.Reason})
		}

	case *protocol.PacketHit:
		if c.cfg.OnHit != nil {
			c.cfg.OnHit(*p)
		}
	}
}

// reply keeps only the first answer; resent joins produce duplicates.
func (c *Client) reply(r joinReply) {
	select {
	case c.replies <- r:
	default:
	}
}

func (c *Client) ID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *Client) MapID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mapID
}

// Latest is the newest snapshot received so far, or nil.
func (c *Client) Latest() *protocol.PacketSnapshot {
	return c.slot.Load()
}

// SendInput stamps the next sequence number and capture time.
func (c *Client) SendInput(flags protocol.MoveFlags, mouseDX, mouseDY float32) (uint32, error) {
	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return 0, fmt.Errorf("not joined")
	}
	c.seq++
	in := &protocol.PacketInput{
		ClientID:  c.id,
		Seq:       c.seq,
		Flags:     flags,
		MouseDX:   mouseDX,
		MouseDY:   mouseDY,
		Timestamp: float32(time.Since(c.start).Seconds()),
	}
	c.mu.Unlock()

	return in.Seq, c.send(in)
}

func (c *Client) send(p protocol.Packet) error {
	data, err := protocol.Marshal(p)
	if err != nil {
		return err
	}
	return c.conn.Send(data)
}

// Close sends Leave when joined, stops the loops and closes the link.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	joined, id := c.joined, c.id
	cancel, group := c.cancel, c.group
	c.mu.Unlock()

	if joined {
		if err := c.send(&protocol.PacketLeave{ClientID: id}); err != nil {
			c.logger.Debug("failed to send leave", "error", err)
		}
	}

	if cancel != nil {
		cancel()
	}
	var err error
	if group != nil {
		err = group.Wait()
	}
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
