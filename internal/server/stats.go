package server

import (
	"log/slog"
	"sync/atomic"
)

// Stats are written from the receive, writer and simulation goroutines.
type Stats struct {
	Ticks           atomic.Uint64
	InputsAccepted  atomic.Uint64
	InputsStale     atomic.Uint64
	Malformed       atomic.Uint64
	UnknownClient   atomic.Uint64
	InboundDropped  atomic.Uint64
	OutboundDropped atomic.Uint64
	SnapshotsSent   atomic.Uint64
	SendErrors      atomic.Uint64
	Timeouts        atomic.Uint64
	JoinsAccepted   atomic.Uint64
	JoinsRejected   atomic.Uint64
	Hits            atomic.Uint64
	Kills           atomic.Uint64
}

func (s *Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("ticks", s.Ticks.Load()),
		slog.Uint64("inputs_accepted", s.InputsAccepted.Load()),
		slog.Uint64("inputs_stale", s.InputsStale.Load()),
		slog.Uint64("malformed", s.Malformed.Load()),
		slog.Uint64("unknown_client", s.UnknownClient.Load()),
		slog.Uint64("inbound_dropped", s.InboundDropped.Load()),
		slog.Uint64("outbound_dropped", s.OutboundDropped.Load()),
		slog.Uint64("snapshots_sent", s.SnapshotsSent.Load()),
		slog.Uint64("send_errors", s.SendErrors.Load()),
		slog.Uint64("timeouts", s.Timeouts.Load()),
		slog.Uint64("joins_accepted", s.JoinsAccepted.Load()),
		slog.Uint64("joins_rejected", s.JoinsRejected.Load()),
		slog.Uint64("hits", s.Hits.Load()),
		slog.Uint64("kills", s.Kills.Load()),
	)
}
