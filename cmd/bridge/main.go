package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/irctelegram/ircbridge/internal/conf"
	"github.com/irctelegram/ircbridge/internal/data"
	"github.com/irctelegram/ircbridge/internal/infra/telegram"
	"github.com/irctelegram/ircbridge/internal/logging"
	"github.com/irctelegram/ircbridge/internal/server"
	"github.com/irctelegram/ircbridge/internal/service"
)

func main() {
	// Load .env file
	conf.LoadDotEnv()

	// Load configuration
	cfg, err := conf.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(2)
	}

	// Stdout carries the IRC stream, logs go to stderr or a file
	logOut, closeLog, err := openLogOutput(cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(2)
	}
	defer closeLog()
	logger := logging.New(logOut, &logging.Options{
		Level: logging.ParseLevel(cfg.Log.Level),
		Color: cfg.Log.Color && cfg.Log.File == "",
	})
	slog.SetDefault(logger)
	telegram.InstallLogger(logger)

	connector, err := data.NewConnector(cfg, logger)
	if err != nil {
		logger.Error("failed to create connector", "component", "Bridge", "error", err)
		os.Exit(1)
	}

	profile := cfg.Profile
	session := service.NewSessionService(connector, os.Stdout, service.Options{
		ServerName:     cfg.Bridge.ServerName,
		Welcome:        profile.Welcome,
		ISupport:       profile.ISupport(),
		NoticePrefix:   profile.NoticePrefix,
		BatchType:      profile.MultilineBatchType,
		WaitingMessage: profile.WaitingMessage,
		ParseMode:      cfg.Bridge.ParseMode,
		SendDelay:      cfg.Bridge.SendDelay,
		Logger:         logger,
	})

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting bridge", "component", "Bridge", "backend", cfg.Bridge.Backend, "server", cfg.Bridge.ServerName)
	srv := server.NewLineServer(session, os.Stdin, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("bridge stopped", "component", "Bridge", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func openLogOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
