package data

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/irctelegram/ircbridge/internal/biz/repo"
	"github.com/irctelegram/ircbridge/internal/conf"
	"github.com/irctelegram/ircbridge/internal/infra/telegram"
)

// NewConnector selects the chat backend named in the configuration
func NewConnector(cfg *conf.Config, log *slog.Logger) (repo.ChatConnector, error) {
	return newConnector(cfg, log, true)
}

// NewSendOnlyConnector is NewConnector for one-shot tools that must not
// consume the bridge's inbound updates
func NewSendOnlyConnector(cfg *conf.Config, log *slog.Logger) (repo.ChatConnector, error) {
	return newConnector(cfg, log, false)
}

func newConnector(cfg *conf.Config, log *slog.Logger, receive bool) (repo.ChatConnector, error) {
	switch cfg.Bridge.Backend {
	case conf.BackendTelegram, "":
		// Long polls hold the connection open for PollTimeout seconds
		httpTimeout := time.Duration(cfg.Telegram.PollTimeout+15) * time.Second
		return NewTelegramConnector(telegram.Options{
			APIEndpoint:   cfg.Telegram.APIEndpoint,
			RatePerSecond: cfg.Telegram.RatePerSecond,
			PollTimeout:   cfg.Telegram.PollTimeout,
			HTTPClient:    &http.Client{Timeout: httpTimeout},
			Logger:        log,
		}, receive), nil
	case conf.BackendFeishu:
		return NewFeishuConnector(log, receive), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Bridge.Backend)
	}
}
