package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/bootstrap"
)

func main() {
	container := bootstrap.NewContainer()
	container.MustInit()
	defer container.Shutdown()

	if err := container.Start(); err != nil {
		container.Log.Fatal("Failed to start", "error", err)
	}

	// Wait for shutdown signal or a fatal component error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		container.Log.Infow("Received shutdown signal", "signal", sig.String())
	case <-container.Context.Done():
		container.Log.Warn("Application context cancelled")
	}
}
