package main

import (
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type stopper interface {
	Stop()
}

type httpServer interface {
	ShutdownWithTimeout(timeout time.Duration) error
}

// shutdown stops the workflow runner before the HTTP server so in-flight
// workflows are marked failed while the process is still alive.
func shutdown(runner stopper, server httpServer, log *zap.Logger) {
	log.Info("🛑 Shutting down server...")

	runner.Stop()

	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error("❌ Server forced to shutdown", zap.Error(err))
	}
}
