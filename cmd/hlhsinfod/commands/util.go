package commands

import (
	"fmt"

	"github.com/hlhsinfo/hlhsinfo-backend/internal/logger"
	"github.com/hlhsinfo/hlhsinfo-backend/pkg/config"
)

// initLogger initializes the structured logger from configuration.
func initLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}
