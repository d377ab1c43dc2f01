package bootstrap

import (
	"context"
	"time"

	"go-amadeus/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Shutdown closes the session so no more events arrive, flushes buffered
// counters, then closes the database. Errors are logged; every step runs.
func Shutdown(c *Components) {
	logging.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if c.Session != nil {
		logging.Info("Closing Discord session...")
		if err := c.Session.Close(); err != nil {
			logging.Warn("Failed to close Discord session: %v", err)
		}
	}

	if c.Counter != nil {
		logging.Info("Flushing message stats...")
		if err := c.Counter.FlushAll(ctx); err != nil {
			logging.Error("Failed to flush message stats: %v", err)
		}
	}

	if c.Database != nil {
		logging.Info("Closing database...")
		if err := c.Database.Close(); err != nil {
			logging.Error("Failed to close database: %v", err)
		}
	}

	logging.Info("Graceful shutdown complete")
}
