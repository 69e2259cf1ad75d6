package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := GetMainEngine()
	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	logrusLogger.WithField("addr", addr).Info("huddle gateway listening")
	if err := app.Listen(addr); err != nil {
		logrusLogger.Fatalf("server stopped: %v", err)
	}
}
