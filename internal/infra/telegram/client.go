// Package telegram wraps the Telegram Bot API client with call pacing.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Options configures a Client
type Options struct {
	APIEndpoint   string  // Defaults to the public Bot API
	RatePerSecond float64 // Outbound API calls per second
	Burst         int
	PollTimeout   int // Long-poll timeout in seconds
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client is the Telegram Bot API client
type Client struct {
	bot         *tgbotapi.BotAPI
	limiter     *rate.Limiter
	pollTimeout int
	log         *slog.Logger

	stopOnce sync.Once
}

// NewClient creates a client and verifies the token with getMe
func NewClient(token string, opts Options) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("empty bot token")
	}
	if opts.APIEndpoint == "" {
		opts.APIEndpoint = tgbotapi.APIEndpoint
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 25
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	log := opts.Logger.With("component", "Telegram")

	bot, err := tgbotapi.NewBotAPIWithClient(token, opts.APIEndpoint, opts.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("telegram login failed: %w", err)
	}
	log.Info("authorized", "bot", bot.Self.UserName, "id", bot.Self.ID)

	return &Client{
		bot:         bot,
		limiter:     rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		pollTimeout: opts.PollTimeout,
		log:         log,
	}, nil
}

// Self returns the bot's own user
func (c *Client) Self() tgbotapi.User {
	return c.bot.Self
}

// Updates starts long polling. The channel is closed after Stop.
func (c *Client) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout
	u.AllowedUpdates = []string{"message", "channel_post", "inline_query", "chosen_inline_result", "callback_query"}
	return c.bot.GetUpdatesChan(u)
}

// Stop ends long polling
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		c.bot.StopReceivingUpdates()
		c.log.Info("polling stopped")
	})
}

// SendMessage sends a text message. chatID is numeric or an @channel name.
func (c *Client) SendMessage(ctx context.Context, chatID, text, parseMode string) (tgbotapi.Message, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	var msg tgbotapi.MessageConfig
	if strings.HasPrefix(chatID, "@") {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	} else {
		id, err := parseChatID(chatID)
		if err != nil {
			return tgbotapi.Message{}, err
		}
		msg = tgbotapi.NewMessage(id, text)
	}
	msg.ParseMode = parseMode

	sent, err := c.bot.Send(msg)
	if err != nil {
		return tgbotapi.Message{}, err
	}
	c.log.Debug("message sent", "chat", chatID, "message_id", sent.MessageID, "mode", parseMode)
	return sent, nil
}

// SendSticker sends a sticker by file id
func (c *Client) SendSticker(ctx context.Context, chatID, fileID string) (tgbotapi.Message, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	id, err := parseChatID(chatID)
	if err != nil {
		return tgbotapi.Message{}, err
	}
	return c.bot.Send(tgbotapi.NewSticker(id, tgbotapi.FileID(fileID)))
}

// EditInlineText replaces the text of a message sent via inline mode
func (c *Client) EditInlineText(ctx context.Context, inlineMessageID, text, parseMode string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	edit := tgbotapi.EditMessageTextConfig{
		BaseEdit:  tgbotapi.BaseEdit{InlineMessageID: inlineMessageID},
		Text:      text,
		ParseMode: parseMode,
	}
	_, err := c.bot.Request(edit)
	return err
}

// AnswerInlineQuery answers an inline query with article results
func (c *Client) AnswerInlineQuery(ctx context.Context, queryID string, results []interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.bot.Request(tgbotapi.InlineConfig{
		InlineQueryID: queryID,
		Results:       results,
		CacheTime:     0,
		IsPersonal:    true,
	})
	return err
}

// AnswerCallback acknowledges a callback query
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	return id, nil
}
