package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spotswitch/spotswitch/pkg/controller"
	"github.com/spotswitch/spotswitch/pkg/log"
	"github.com/spotswitch/spotswitch/pkg/prices"
	"github.com/spotswitch/spotswitch/pkg/shelly"

	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// optional .env for local development
	_ = godotenv.Load()

	// init packages
	dev := shelly.Configured()
	src := prices.Configured()
	agent := controller.Configured(dev, src)

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	log.SetDefaultLogLevel(level)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := dev.Validate(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid device configuration", "error", err)
		os.Exit(1)
	}
	if err := src.Validate(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid price source configuration", "error", err)
		os.Exit(1)
	}

	// Run blocks until the context is canceled or validation fails
	if err := agent.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "controller failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "controller exited cleanly")
}
