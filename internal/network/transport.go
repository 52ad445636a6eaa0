package network

//go:generate go tool mockgen -destination=./mocks/transport_mock.go -package=mocks . Transport

import (
	"context"
	"errors"
	"time"
)

var ErrNotStarted = errors.New("transport not started")

// pollInterval bounds how long a receive loop blocks before checking its context.
const pollInterval = 50 * time.Millisecond

type DatagramKind int

const (
	DatagramData DatagramKind = iota
	// DatagramClosed reports that the link to an endpoint went away.
	DatagramClosed
)

// Datagram is one inbound message tagged with its sender endpoint.
type Datagram struct {
	From string
	Kind DatagramKind
	Data []byte
}

// Transport moves opaque datagrams between the server and remote endpoints.
// Receive runs until ctx is done and is the only method that may block.
type Transport interface {
	Start() error
	Receive(ctx context.Context, handle func(Datagram)) error
	SendTo(endpoint string, data []byte) error
	Disconnect(endpoint string)
	Stop()
}
