package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/irctelegram/ircbridge/internal/conf"
	"github.com/irctelegram/ircbridge/internal/data"
	"github.com/irctelegram/ircbridge/internal/infra/telegram"
	"github.com/irctelegram/ircbridge/internal/logging"
	"github.com/irctelegram/ircbridge/internal/mcp"
)

const version = "v1.0.0"

// bridge-mcp serves the bridge's send path as MCP tools over stdio.
// It never receives chat updates, so it can run beside the bridge.
func main() {
	conf.LoadDotEnv()

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(2)
	}
	credential, err := cfg.Credential()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(2)
	}

	// Stdout carries MCP frames
	logger := logging.New(os.Stderr, &logging.Options{Level: logging.ParseLevel(cfg.Log.Level)})
	telegram.InstallLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connector, err := data.NewSendOnlyConnector(cfg, logger)
	if err != nil {
		logger.Error("failed to create connector", "component", "MCP", "error", err)
		os.Exit(1)
	}
	chat, err := connector.Connect(ctx, credential)
	if err != nil {
		logger.Error("failed to connect", "component", "MCP", "error", err)
		os.Exit(1)
	}
	defer chat.Close()

	server := mcp.NewServer(chat, cfg.Bridge.ParseMode, version, logger)
	logger.Info("serving tools", "component", "MCP", "backend", cfg.Bridge.Backend)
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server stopped", "component", "MCP", "error", err)
		chat.Close()
		os.Exit(1)
	}
}
