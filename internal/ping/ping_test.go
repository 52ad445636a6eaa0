package ping

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"
)

func exchange(t *testing.T, addr string, request string) []byte {
	t.Helper()

	conn, err := net.Dial("udp", addr)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(request)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return buf[:n]
}

func TestHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler("127.0.0.1:0", ServerInfo{Name: "test", PlayersMax: 8, GameVersion: "dev"}, logger)
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer h.Stop()

	if got := string(exchange(t, h.Addr(), "HELLO")); got != "HI" {
		t.Fatalf("HELLO reply = %q, want HI", got)
	}

	h.UpdateServerInfo(func(info *ServerInfo) {
		info.PlayersCurrent = 3
		info.Map = 2
		info.RoundState = "in_round"
	})

	var info ServerInfo
	if err := json.Unmarshal(exchange(t, h.Addr(), "HELLOLAN"), &info); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := ServerInfo{Name: "test", PlayersCurrent: 3, PlayersMax: 8, Map: 2, RoundState: "in_round", GameVersion: "dev"}
	if info != want {
		t.Fatalf("info = %+v, want %+v", info, want)
	}
}

func TestHandlerStopTwice(t *testing.T) {
	h := NewHandler("127.0.0.1:0", ServerInfo{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.Stop()
	h.Stop()
}
