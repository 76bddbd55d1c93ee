package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
	"github.com/irctelegram/ircbridge/internal/biz/repo"
	"github.com/irctelegram/ircbridge/internal/infra/telegram"
)

// telegramAPI is the subset of the Telegram client the repo uses
type telegramAPI interface {
	Updates() tgbotapi.UpdatesChannel
	Stop()
	SendMessage(ctx context.Context, chatID, text, parseMode string) (tgbotapi.Message, error)
	SendSticker(ctx context.Context, chatID, fileID string) (tgbotapi.Message, error)
	EditInlineText(ctx context.Context, inlineMessageID, text, parseMode string) error
	AnswerInlineQuery(ctx context.Context, queryID string, results []interface{}) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// telegramRepo implements the chat repository over the Bot API
type telegramRepo struct {
	client telegramAPI
	events chan domain.Event
	log    *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
	pumpDone  chan struct{}
}

// NewTelegramConnector creates a connector that logs in with a bot token.
// Without receive the repo never polls and its event channel is closed.
func NewTelegramConnector(opts telegram.Options, receive bool) repo.ChatConnector {
	return repo.ConnectorFunc(func(ctx context.Context, token string) (repo.ChatRepo, error) {
		client, err := telegram.NewClient(strings.TrimSpace(token), opts)
		if err != nil {
			return nil, err
		}
		return newTelegramRepo(client, opts.Logger, receive), nil
	})
}

func newTelegramRepo(client telegramAPI, log *slog.Logger, receive bool) *telegramRepo {
	if log == nil {
		log = slog.Default()
	}
	r := &telegramRepo{
		client:   client,
		events:   make(chan domain.Event, 64),
		log:      log.With("component", "Telegram"),
		done:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	if !receive {
		close(r.events)
		close(r.pumpDone)
		return r
	}
	go r.pump(client.Updates())
	return r
}

func (r *telegramRepo) pump(updates tgbotapi.UpdatesChannel) {
	defer close(r.pumpDone)
	defer close(r.events)
	for {
		select {
		case <-r.done:
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			ev, ok := ConvertUpdate(upd)
			if !ok {
				continue
			}
			select {
			case r.events <- ev:
			case <-r.done:
				return
			}
		}
	}
}

// ConvertUpdate maps a Bot API update onto a domain event
func ConvertUpdate(upd tgbotapi.Update) (domain.Event, bool) {
	switch {
	case upd.Message != nil:
		return convertMessage(upd.Message)
	case upd.ChannelPost != nil:
		return convertMessage(upd.ChannelPost)
	case upd.InlineQuery != nil:
		q := upd.InlineQuery
		return domain.Event{
			Kind:    domain.EventInlineQuery,
			From:    convertUser(q.From),
			QueryID: q.ID,
			Text:    q.Query,
		}, true
	case upd.ChosenInlineResult != nil:
		res := upd.ChosenInlineResult
		if res.InlineMessageID == "" {
			return domain.Event{}, false
		}
		return domain.Event{
			Kind:         domain.EventInlineResultChosen,
			From:         convertUser(res.From),
			InlineHandle: res.InlineMessageID,
			Text:         res.Query,
		}, true
	case upd.CallbackQuery != nil:
		cb := upd.CallbackQuery
		return domain.Event{
			Kind:    domain.EventButtonPressed,
			From:    convertUser(cb.From),
			QueryID: cb.ID,
			Data:    cb.Data,
		}, true
	}
	return domain.Event{}, false
}

func convertMessage(m *tgbotapi.Message) (domain.Event, bool) {
	if m.Chat == nil {
		return domain.Event{}, false
	}
	ev := domain.Event{
		Chat: domain.Chat{
			ID:    strconv.FormatInt(m.Chat.ID, 10),
			Type:  domain.ParseChatType(m.Chat.Type),
			Title: m.Chat.Title,
		},
	}
	switch {
	case m.From != nil:
		ev.From = convertUser(m.From)
	case m.SenderChat != nil:
		// Channel posts are attributed to the channel itself
		ev.From = domain.ChatUser{
			ID:        strconv.FormatInt(m.SenderChat.ID, 10),
			Username:  m.SenderChat.UserName,
			FirstName: m.SenderChat.Title,
		}
	default:
		return domain.Event{}, false
	}
	if m.ForwardFrom != nil {
		fwd := convertUser(m.ForwardFrom)
		ev.ForwardFrom = &fwd
	}

	if m.Sticker != nil {
		ev.Kind = domain.EventSticker
		ev.StickerID = m.Sticker.FileID
		return ev, true
	}

	text := m.Text
	if text == "" {
		text = m.Caption
	}
	if text == "" {
		return domain.Event{}, false
	}
	ev.Kind = domain.EventText
	ev.Text = text
	return ev, true
}

func convertUser(u *tgbotapi.User) domain.ChatUser {
	if u == nil {
		return domain.ChatUser{}
	}
	return domain.ChatUser{
		ID:        strconv.FormatInt(u.ID, 10),
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// SendText sends a text message
func (r *telegramRepo) SendText(ctx context.Context, chatID, text, parseMode string) (string, error) {
	msg, err := r.client.SendMessage(ctx, chatID, text, parseMode)
	if err != nil {
		return "", mapTelegramError(err, parseMode)
	}
	return strconv.Itoa(msg.MessageID), nil
}

// SendSticker sends a sticker
func (r *telegramRepo) SendSticker(ctx context.Context, chatID, stickerID string) (string, error) {
	msg, err := r.client.SendSticker(ctx, chatID, stickerID)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(msg.MessageID), nil
}

// EditText edits an inline message
func (r *telegramRepo) EditText(ctx context.Context, inlineHandle, text, parseMode string) error {
	if err := r.client.EditInlineText(ctx, inlineHandle, text, parseMode); err != nil {
		return mapTelegramError(err, parseMode)
	}
	return nil
}

// AnswerInlineQuery offers article results. Each carries a button so the
// chosen message gets an inline message id that can later be edited.
func (r *telegramRepo) AnswerInlineQuery(ctx context.Context, queryID string, answers []repo.InlineAnswer) error {
	results := make([]interface{}, 0, len(answers))
	for _, a := range answers {
		article := tgbotapi.NewInlineQueryResultArticle(a.ID, a.Title, a.Text)
		article.Description = a.Description
		if a.ButtonText != "" {
			kb := tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(a.ButtonText, a.ButtonData)),
			)
			article.ReplyMarkup = &kb
		}
		results = append(results, article)
	}
	return r.client.AnswerInlineQuery(ctx, queryID, results)
}

// AnswerButton acknowledges a callback query
func (r *telegramRepo) AnswerButton(ctx context.Context, queryID, text string) error {
	return r.client.AnswerCallback(ctx, queryID, text)
}

// Events gets the inbound event channel
func (r *telegramRepo) Events() <-chan domain.Event {
	return r.events
}

// Close stops polling and waits for the event pump to exit
func (r *telegramRepo) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.client.Stop()
		<-r.pumpDone
		r.log.Info("client closed")
	})
	return nil
}

// mapTelegramError classifies markup rejections so callers can retry plain
func mapTelegramError(err error, parseMode string) error {
	var apiErr *tgbotapi.Error
	if parseMode != "" && errors.As(err, &apiErr) && apiErr.Code == 400 {
		desc := strings.ToLower(apiErr.Message)
		if strings.Contains(desc, "parse") || strings.Contains(desc, "entit") {
			return fmt.Errorf("%w: %s", repo.ErrFormattingRejected, apiErr.Message)
		}
	}
	return err
}
