package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/siohaza/corridor/internal/logging"
	"github.com/siohaza/corridor/internal/network"
	"github.com/siohaza/corridor/internal/server"
	"github.com/siohaza/corridor/pkg/config"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	version    = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "corridor",
	Short: "Corridor - authoritative multiplayer shooter server",
	Long: `Corridor runs the fixed-tick simulation for a tile-map first-person shooter,
accepting player input and broadcasting world snapshots over UDP or ENet.`,
	Version: version,
	Run:     runServer,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Corridor server",
	Long:  "Start the Corridor dedicated server with the specified configuration",
	Run:   runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Corridor v%s\n", version)
		fmt.Printf("Protocol %s\n", server.GameVersion)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.toml", "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")

	withMapFlags(rootCmd)
	withMapFlags(startCmd)

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
}

// withMapFlags adds the map selection flags. Positional arguments are refused
// so a stray value such as "--random-map 20" fails instead of being dropped.
func withMapFlags(cmd *cobra.Command) *cobra.Command {
	cmd.Args = cobra.NoArgs

	flags := cmd.Flags()
	flags.Int("map", 0, "play a fixed premade map id every round")
	flags.Bool("random-map", false, "generate a new map each round")
	flags.Int("map-side", 0, "side of generated maps (default from config)")
	flags.Bool("random-premade", false, "draw a random premade map each round")
	flags.Bool("permanent-map", false, "keep the first selected map for every round")
	cmd.MarkFlagsMutuallyExclusive("map", "random-map", "random-premade")
	return cmd
}

// applyMapFlags overrides the round and map sections with whatever was set on the command line.
func applyMapFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("map") {
		id, err := flags.GetInt("map")
		if err != nil {
			return err
		}
		cfg.Round.Mode = "fixed"
		cfg.Round.Map = id
	}
	if random, _ := flags.GetBool("random-map"); random {
		cfg.Round.Mode = "random_generated"
		cfg.Round.Map = 0
	}
	if flags.Changed("map-side") {
		side, err := flags.GetInt("map-side")
		if err != nil {
			return err
		}
		cfg.Maps.GeneratedSide = side
	}
	if premade, _ := flags.GetBool("random-premade"); premade {
		cfg.Round.Mode = "random_premade"
		cfg.Round.Map = 0
	}
	if permanent, _ := flags.GetBool("permanent-map"); permanent {
		cfg.Round.Permanent = true
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(configPath); err == nil || cmd.Flags().Changed("config") {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if err := applyMapFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:      logLevel,
		ToFile:     cfg.Server.LogToFile,
		Dir:        cfg.Server.LogDir,
		FileName:   "corridor.log",
		MaxSizeMB:  cfg.Server.LogMaxSizeMB,
		MaxBackups: cfg.Server.LogMaxBackups,
		MaxAgeDays: cfg.Server.LogMaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	logger.Info("starting corridor server", "version", version)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var transport network.Transport
	switch cfg.Server.Transport {
	case config.TransportENet:
		transport = network.NewENetServer(cfg.Server.Port, cfg.Server.MaxPlayers, logger)
	default:
		transport = network.NewUDPServer(fmt.Sprintf(":%d", cfg.Server.Port), logger)
	}

	srv, err := server.New(cfg, transport, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	logger.Info("server running",
		"name", cfg.Server.Name,
		"address", fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port),
		"transport", cfg.Server.Transport,
		"mode", cfg.Round.Mode,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("shutting down server")

	srv.Stop()
	logger.Info("server stopped successfully")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
