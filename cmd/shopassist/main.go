package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tailored-agentic-units/shopassist/observability"
	"github.com/tailored-agentic-units/shopassist/server"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to server config JSON file (optional)")
		addr       = flag.String("addr", "", "Listen address (overrides config)")
		remoteURL  = flag.String("remote", "", "Remote assistant API base URL (overrides config and environment)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	cfg := server.DefaultConfig()
	if *configFile != "" {
		loaded, err := server.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}
	cfg.ApplyEnv()

	if *addr != "" {
		cfg.Addr = *addr
	}
	if *remoteURL != "" {
		cfg.Remote.BaseURL = *remoteURL
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))

	srv, err := server.New(&cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("proxy starting", "addr", cfg.Addr, "prefix", cfg.Prefix, "remote", cfg.Remote.BaseURL)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	logger.Info("proxy stopped")
}
