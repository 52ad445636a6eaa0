package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/siohaza/corridor/internal/client"
	"github.com/siohaza/corridor/internal/logging"
	"github.com/siohaza/corridor/internal/protocol"
	"github.com/siohaza/corridor/internal/render"

	"github.com/spf13/cobra"
)

var (
	address     string
	transport   string
	name        string
	logLevel    string
	inputRate   int
	reportEvery time.Duration
	turnEvery   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "corridor-client",
	Short: "headless corridor client that walks a scripted path",
	Long: `corridor-client joins a corridor server, sends a scripted stream of movement
input, fires now and then, and logs what the render side would draw for each
remote player.`,
	RunE: runClient,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&address, "address", "a", "127.0.0.1:32900", "server address")
	flags.StringVarP(&transport, "transport", "t", "udp", "transport (udp, enet)")
	flags.StringVarP(&name, "name", "n", "walker", "player name")
	flags.StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.IntVar(&inputRate, "input-rate", 60, "inputs sent per second")
	flags.DurationVar(&reportEvery, "report", time.Second, "interval between render reports")
	flags.DurationVar(&turnEvery, "turn", 2*time.Second, "interval between direction changes")
}

func dial(logger *slog.Logger) (client.Conn, error) {
	switch transport {
	case "udp":
		return client.DialUDP(address)
	case "enet":
		return client.DialENet(address, 5*time.Second, logger)
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	logger, closer, err := logging.New(logging.Options{Level: logLevel})
	if err != nil {
		return err
	}
	defer closer.Close()

	if inputRate < 1 {
		return fmt.Errorf("input-rate must be positive")
	}

	conn, err := dial(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(conn, client.Config{
		Name: name,
		OnHit: func(h protocol.PacketHit) {
			logger.Info("hit",
				"tick", h.Tick,
				"shooter", h.ShooterID,
				"target", h.TargetID,
				"health", h.Health,
				"killed", h.Killed(),
				"score", h.ShooterScore,
			)
		},
	}, logger)
	welcome, err := c.Connect(ctx)
	if err != nil {
		var rejected *client.RejectedError
		if errors.As(err, &rejected) {
			return fmt.Errorf("server refused %q: %s", name, rejected.Reason)
		}
		return fmt.Errorf("failed to join: %w", err)
	}
	defer c.Close()

	tracker := render.NewTracker(welcome.ClientID)
	sheet := render.PlaceholderSheet(16, 32)

	inputTicker := time.NewTicker(time.Second / time.Duration(inputRate))
	defer inputTicker.Stop()
	reportTicker := time.NewTicker(reportEvery)
	defer reportTicker.Stop()
	turnTicker := time.NewTicker(turnEvery)
	defer turnTicker.Stop()

	script := []protocol.MoveFlags{
		protocol.MoveForward,
		protocol.MoveForward | protocol.MoveTurnRight,
		protocol.MoveForward | protocol.MoveSprint | protocol.MoveShoot,
		protocol.MoveStrafeLeft,
		0,
		protocol.MoveBack | protocol.MoveTurnLeft,
		protocol.MoveJump,
		protocol.MoveTurnLeft | protocol.MoveShoot,
	}
	step := 0
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			logger.Info("client stopping")
			return nil

		case <-turnTicker.C:
			step = (step + 1) % len(script)

		case <-inputTicker.C:
			if _, err := c.SendInput(script[step], 0, 0); err != nil {
				if errors.Is(err, client.ErrClosed) {
					return nil
				}
				logger.Warn("failed to send input", "error", err)
			}

		case now := <-reportTicker.C:
			elapsed := now.Sub(last)
			last = now

			snap := c.Latest()
			camera := localPosition(snap, welcome.ClientID)
			views := tracker.Update(snap, camera, elapsed)

			if snap != nil {
				logger.Info("snapshot", "tick", snap.Tick, "map", snap.MapID, "players", len(snap.Players))
			}
			for _, v := range views {
				key := v.State.Key()
				frame, err := sheet.Frame(key)
				if err != nil {
					logger.Warn("missing frame", "player", v.ID, "key", key, "error", err)
					continue
				}
				logger.Info("remote player",
					"player", v.ID,
					"x", v.Position.X,
					"y", v.Position.Y,
					"animation", v.State.Animation,
					"direction", v.State.Direction,
					"frame", v.State.Frame,
					"size", fmt.Sprintf("%dx%d", frame.Width, frame.Height),
				)
			}
		}
	}
}

func localPosition(snap *protocol.PacketSnapshot, id uint32) protocol.Vector3f {
	if snap == nil {
		return protocol.Vector3f{}
	}
	for _, p := range snap.Players {
		if p.ID == id {
			return p.Position
		}
	}
	return protocol.Vector3f{}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
