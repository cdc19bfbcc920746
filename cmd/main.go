package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qazbilim/training-backend/internal/app"
	"github.com/qazbilim/training-backend/internal/observability"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.Init(ctx, a.Log, observability.Config{
		ServiceName: "training-backend",
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	})
	if shutdownTracing != nil {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				a.Log.Warn("Tracing shutdown failed", "error", err)
			}
		}()
	}

	a.Start(ctx)

	a.Log.Info("Training backend is running")
	<-ctx.Done()
	a.Log.Info("Shutting down")
}
