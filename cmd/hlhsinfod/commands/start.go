package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hlhsinfo/hlhsinfo-backend/internal/api"
	"github.com/hlhsinfo/hlhsinfo-backend/internal/broker"
	"github.com/hlhsinfo/hlhsinfo-backend/internal/keyring"
	"github.com/hlhsinfo/hlhsinfo-backend/internal/logger"
	"github.com/hlhsinfo/hlhsinfo-backend/internal/portal"
	"github.com/hlhsinfo/hlhsinfo-backend/internal/token"
	"github.com/hlhsinfo/hlhsinfo-backend/pkg/config"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the HLHSInfo backend server",
	Long: `Start the HLHSInfo backend server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location inside the data directory ($HLHSINFO_DATA_DIR, falling
back to the user config directory).

Examples:
  # Start with default config location
  hlhsinfod start

  # Start with custom config file
  hlhsinfod start --config /etc/hlhsinfo/config.yaml

  # Start with environment variable overrides
  HLHSINFO_LOGGING_LEVEL=DEBUG hlhsinfod start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if err := initLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("configuration loaded",
		"provider", cfg.Provider,
		"log_level", cfg.Logging.Level,
		"handshake_ttl", cfg.Auth.HandshakeTTL.String(),
		"session_ttl", cfg.Auth.SessionTTL.String(),
	)

	// A broken keyring is fatal: nothing downstream can compensate for an
	// unusable signing key.
	keys, err := keyring.Obtain(config.DataDir())
	if err != nil {
		return fmt.Errorf("failed to obtain signing keys: %w", err)
	}
	logger.Info("signing keys ready", "dir", config.DataDir())

	codec := token.NewCodec(keys, cfg.Auth.HandshakeTTL, cfg.Auth.SessionTTL)
	b := broker.New(portal.NewClient(), codec)

	var metrics *api.RequestMetrics
	if cfg.Metrics.Enabled {
		metrics = api.NewRequestMetrics(nil)
	}

	router := api.NewRouter(api.RouterConfig{
		Handler:        api.NewHandler(b, cfg.Provider),
		Codec:          codec,
		Metrics:        metrics,
		MetricsEnabled: cfg.Metrics.Enabled,
	})
	server := api.NewServer(cfg, router)

	// Translate SIGINT/SIGTERM into context cancellation for graceful
	// shutdown.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	return server.Start(ctx)
}
