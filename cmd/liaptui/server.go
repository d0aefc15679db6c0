package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/coder/quartz"

	"github.com/liaptui/liaptui/internal/server"
)

// ServerCmd runs the WebSocket game server
type ServerCmd struct {
	Config   string `short:"c" default:"liaptui.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Server address to bind to (overrides config)"`
	Port     int    `short:"p" help:"Server port (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}

	logger := setupLogger(cfg.Server.LogLevel)
	logger.Info("Starting Liap Tui server",
		"addr", cfg.ListenAddr(),
		"win_threshold", cfg.Game.WinThreshold,
		"archive_dir", cfg.Server.ArchiveDir)

	srv, err := server.NewServer(cfg, logger, quartz.NewReal())
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Shutting down server...")
	return srv.Stop()
}
