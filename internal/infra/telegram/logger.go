package telegram

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botLogger routes the library's internal logging into slog
type botLogger struct {
	log *slog.Logger
}

func (l botLogger) Println(v ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// InstallLogger replaces the library's global logger
func InstallLogger(log *slog.Logger) {
	_ = tgbotapi.SetLogger(botLogger{log: log.With("component", "Telegram")})
}
