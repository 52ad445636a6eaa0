package network

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"
)

func TestUDPServerRoundTrip(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewUDPServer("127.0.0.1:0", logger)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer srv.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Datagram, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Receive(ctx, func(d Datagram) { received <- d })
	}()

	client, err := net.Dial("udp", srv.Addr())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte{5, 1, 0, 0, 0}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var d Datagram
	select {
	case d = <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("no datagram received")
	}
	if d.Kind != DatagramData || len(d.Data) != 5 || d.Data[0] != 5 {
		t.Fatalf("unexpected datagram %+v", d)
	}
	if d.From != client.LocalAddr().String() {
		t.Fatalf("From = %q, want %q", d.From, client.LocalAddr().String())
	}

	if err := srv.SendTo(d.From, []byte("reply")); err != nil {
		t.Fatalf("SendTo() error = %v", err)
	}
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(buf[:n]) != "reply" {
		t.Fatalf("reply = %q", buf[:n])
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Receive() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive did not return after cancel")
	}
}

func TestUDPServerNotStarted(t *testing.T) {
	srv := NewUDPServer("127.0.0.1:0", nil)
	if err := srv.SendTo("127.0.0.1:1", nil); err != ErrNotStarted {
		t.Fatalf("SendTo() error = %v, want ErrNotStarted", err)
	}
	if err := srv.Receive(context.Background(), func(Datagram) {}); err != ErrNotStarted {
		t.Fatalf("Receive() error = %v, want ErrNotStarted", err)
	}
}

func TestUDPServerBadEndpoint(t *testing.T) {
	srv := NewUDPServer("127.0.0.1:0", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer srv.Stop()

	if err := srv.SendTo("not-an-endpoint", []byte{1}); err == nil {
		t.Fatal("expected error for unparseable endpoint")
	}
}
