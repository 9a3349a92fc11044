package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/penguinencounter/cohost-randombot/cmd/randombot/commands"
	"github.com/penguinencounter/cohost-randombot/lib/serviceutil"
	"github.com/penguinencounter/cohost-randombot/lib/telemetry"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

func initSlog() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
}

func main() {
	ctx := serviceutil.SignalContext()

	// session cookie and friends live in .env, which is optional
	godotenv.Load()
	initSlog()

	t, err := telemetry.SetupFromEnv(ctx, "randombot")
	if err == nil {
		defer t.Shutdown(context.Background())
	} else if !os.IsNotExist(err) {
		slog.Error("failed to set up telemetry", "err", err)
		os.Exit(1)
	}

	commands.ExecuteContext(ctx)
}
