package ping

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	pingRequest = "HELLO"
	pingReply   = "HI"
	infoRequest = "HELLOLAN"
)

// Handler answers discovery requests on a side port next to the game port.
type Handler struct {
	conn          *net.UDPConn
	logger        *slog.Logger
	stopChan      chan struct{}
	stopOnce      sync.Once
	done          chan struct{}
	listenAddress string

	mu         sync.RWMutex
	serverInfo ServerInfo
}

type ServerInfo struct {
	Name           string `json:"name"`
	PlayersCurrent int    `json:"players_current"`
	PlayersMax     int    `json:"players_max"`
	Map            uint32 `json:"map"`
	RoundState     string `json:"round_state"`
	GameVersion    string `json:"game_version"`
}

func NewHandler(address string, info ServerInfo, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		serverInfo:    info,
		logger:        logger,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
		listenAddress: address,
	}
}

func (h *Handler) Start() error {
	addr, err := net.ResolveUDPAddr("udp", h.listenAddress)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}

	h.conn = conn
	h.logger.Info("ping handler started", "address", conn.LocalAddr().String())

	go h.handlePackets()

	return nil
}

// Addr is the bound address, or "" before Start.
func (h *Handler) Addr() string {
	if h.conn == nil {
		return ""
	}
	return h.conn.LocalAddr().String()
}

func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
		if h.conn != nil {
			h.conn.Close()
			<-h.done
		}
		h.logger.Info("ping handler stopped")
	})
}

func (h *Handler) UpdateServerInfo(update func(info *ServerInfo)) {
	h.mu.Lock()
	update(&h.serverInfo)
	h.mu.Unlock()
}

func (h *Handler) Info() ServerInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.serverInfo
}

func (h *Handler) handlePackets() {
	defer close(h.done)
	buffer := make([]byte, 1024)

	for {
		n, addr, err := h.conn.ReadFromUDP(buffer)
		if err != nil {
			select {
			case <-h.stopChan:
				return
			default:
				h.logger.Error("failed to read UDP packet", "error", err)
				continue
			}
		}

		if n > 0 {
			h.handlePacket(buffer[:n], addr)
		}
	}
}

func (h *Handler) handlePacket(data []byte, addr *net.UDPAddr) {
	switch string(data) {
	case pingRequest:
		h.reply([]byte(pingReply), addr)
	case infoRequest:
		h.handleLANPing(addr)
	}
}

func (h *Handler) handleLANPing(addr *net.UDPAddr) {
	jsonData, err := json.Marshal(h.Info())
	if err != nil {
		h.logger.Error("failed to marshal server info", "error", err)
		return
	}
	h.reply(jsonData, addr)
}

func (h *Handler) reply(data []byte, addr *net.UDPAddr) {
	if _, err := h.conn.WriteToUDP(data, addr); err != nil {
		h.logger.Error("failed to send ping response", "error", err, "addr", addr)
		return
	}
	h.logger.Debug("sent ping response", "addr", addr, "bytes", len(data))
}
