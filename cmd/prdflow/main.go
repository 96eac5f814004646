package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/prdflow/internal/app"
	"git.home.luguber.info/inful/prdflow/internal/config"
	"git.home.luguber.info/inful/prdflow/internal/version"
)

var CLI struct {
	EnvFile string `short:"e" help:"Explicit dotenv file to load before reading the environment"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve struct{} `cmd:"" default:"1" help:"Run the build orchestrator"`

	Version struct{} `cmd:"" help:"Print version and exit"`
}

func main() {
	kctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch kctx.Command() {
	case "version":
		kctx.Printf("%s", version.String())
		return
	default:
		if err := runServe(); err != nil {
			slog.Error("Orchestrator failed", "error", err)
			os.Exit(1)
		}
	}
}

func runServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(CLI.EnvFile)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}

	if err := a.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return a.Stop(shutdownCtx)
}
