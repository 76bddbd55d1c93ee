package data

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
	"github.com/irctelegram/ircbridge/internal/biz/repo"
)

type fakeTelegram struct {
	mu      sync.Mutex
	updates chan tgbotapi.Update
	sendErr error
	texts   []string
	results []interface{}
	stopped bool
}

func newFakeTelegram() *fakeTelegram {
	return &fakeTelegram{updates: make(chan tgbotapi.Update, 8)}
}

func (f *fakeTelegram) Updates() tgbotapi.UpdatesChannel { return f.updates }

func (f *fakeTelegram) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTelegram) SendMessage(ctx context.Context, chatID, text, parseMode string) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.texts = append(f.texts, text)
	return tgbotapi.Message{MessageID: 11}, nil
}

func (f *fakeTelegram) SendSticker(ctx context.Context, chatID, fileID string) (tgbotapi.Message, error) {
	return tgbotapi.Message{MessageID: 12}, nil
}

func (f *fakeTelegram) EditInlineText(ctx context.Context, inlineMessageID, text, parseMode string) error {
	return f.sendErr
}

func (f *fakeTelegram) AnswerInlineQuery(ctx context.Context, queryID string, results []interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = results
	return nil
}

func (f *fakeTelegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return nil
}

func TestConvertUpdate_GroupText(t *testing.T) {
	upd := tgbotapi.Update{Message: &tgbotapi.Message{
		Text: "hello",
		Chat: &tgbotapi.Chat{ID: 100, Type: "supergroup"},
		From: &tgbotapi.User{ID: 42, UserName: "bob", FirstName: "Bob"},
	}}
	ev, ok := ConvertUpdate(upd)
	if !ok {
		t.Fatal("expected event")
	}
	if ev.Kind != domain.EventText || ev.Text != "hello" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Chat.ID != "100" || ev.Chat.Type != domain.ChatTypeSupergroup {
		t.Errorf("unexpected chat %+v", ev.Chat)
	}
	if ev.From.ID != "42" || ev.From.Username != "bob" {
		t.Errorf("unexpected user %+v", ev.From)
	}
}

func TestConvertUpdate_StickerAndForward(t *testing.T) {
	upd := tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:        &tgbotapi.Chat{ID: 5, Type: "private"},
		From:        &tgbotapi.User{ID: 5, FirstName: "Ann"},
		ForwardFrom: &tgbotapi.User{ID: 6, UserName: "carl"},
		Sticker:     &tgbotapi.Sticker{FileID: "CAAD"},
	}}
	ev, ok := ConvertUpdate(upd)
	if !ok || ev.Kind != domain.EventSticker || ev.StickerID != "CAAD" {
		t.Fatalf("unexpected event %+v (%v)", ev, ok)
	}
	if ev.ForwardFrom == nil || ev.ForwardFrom.Username != "carl" {
		t.Errorf("expected forward origin, got %+v", ev.ForwardFrom)
	}
}

func TestConvertUpdate_ChannelPost(t *testing.T) {
	upd := tgbotapi.Update{ChannelPost: &tgbotapi.Message{
		Text:       "news",
		Chat:       &tgbotapi.Chat{ID: -1001, Type: "channel"},
		SenderChat: &tgbotapi.Chat{ID: -1001, Title: "News", UserName: "newsfeed"},
	}}
	ev, ok := ConvertUpdate(upd)
	if !ok || ev.From.Username != "newsfeed" || ev.Chat.Type != domain.ChatTypeChannel {
		t.Errorf("unexpected event %+v (%v)", ev, ok)
	}
}

func TestConvertUpdate_InlineAndCallback(t *testing.T) {
	from := &tgbotapi.User{ID: 1, UserName: "u"}

	ev, ok := ConvertUpdate(tgbotapi.Update{InlineQuery: &tgbotapi.InlineQuery{ID: "q1", From: from, Query: "hi"}})
	if !ok || ev.Kind != domain.EventInlineQuery || ev.QueryID != "q1" || ev.Text != "hi" {
		t.Errorf("unexpected inline query event %+v", ev)
	}

	ev, ok = ConvertUpdate(tgbotapi.Update{ChosenInlineResult: &tgbotapi.ChosenInlineResult{
		ResultID: "r", From: from, InlineMessageID: "AAE", Query: "hi",
	}})
	if !ok || ev.Kind != domain.EventInlineResultChosen || ev.InlineHandle != "AAE" {
		t.Errorf("unexpected chosen result event %+v", ev)
	}

	if _, ok := ConvertUpdate(tgbotapi.Update{ChosenInlineResult: &tgbotapi.ChosenInlineResult{From: from}}); ok {
		t.Error("expected chosen result without inline message id to be dropped")
	}

	ev, ok = ConvertUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "cb", From: from, Data: "x"}})
	if !ok || ev.Kind != domain.EventButtonPressed || ev.QueryID != "cb" {
		t.Errorf("unexpected callback event %+v", ev)
	}
}

func TestConvertUpdate_EmptyMessageDropped(t *testing.T) {
	upd := tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 1, Type: "group"},
		From: &tgbotapi.User{ID: 2},
	}}
	if _, ok := ConvertUpdate(upd); ok {
		t.Error("expected message without text to be dropped")
	}
}

func TestMapTelegramError(t *testing.T) {
	parseErr := &tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities: unexpected end tag"}
	if err := mapTelegramError(parseErr, "HTML"); !errors.Is(err, repo.ErrFormattingRejected) {
		t.Errorf("expected formatting rejection, got %v", err)
	}
	if err := mapTelegramError(parseErr, ""); errors.Is(err, repo.ErrFormattingRejected) {
		t.Error("expected plain send errors to pass through")
	}
	notFound := &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}
	if err := mapTelegramError(notFound, "HTML"); errors.Is(err, repo.ErrFormattingRejected) {
		t.Error("expected unrelated 400 to pass through")
	}
}

func TestTelegramRepo_EventsAndClose(t *testing.T) {
	api := newFakeTelegram()
	r := newTelegramRepo(api, nil, true)

	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		Text: "hi",
		Chat: &tgbotapi.Chat{ID: 1, Type: "group"},
		From: &tgbotapi.User{ID: 2, UserName: "z"},
	}}

	select {
	case ev := <-r.Events():
		if ev.Text != "hi" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := <-r.Events(); ok {
		t.Error("expected events channel closed")
	}
	if !api.stopped {
		t.Error("expected polling stopped")
	}
	_ = r.Close()
}

func TestTelegramRepo_SendTextMapsRejection(t *testing.T) {
	api := newFakeTelegram()
	api.sendErr = &tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities"}
	r := newTelegramRepo(api, nil, true)
	defer r.Close()

	if _, err := r.SendText(context.Background(), "1", "<b>", "HTML"); !errors.Is(err, repo.ErrFormattingRejected) {
		t.Errorf("expected ErrFormattingRejected, got %v", err)
	}
}

func TestTelegramRepo_AnswerInlineQueryAddsButton(t *testing.T) {
	api := newFakeTelegram()
	r := newTelegramRepo(api, nil, true)
	defer r.Close()

	err := r.AnswerInlineQuery(context.Background(), "q", []repo.InlineAnswer{{
		ID: "1", Title: "hi", Text: "hi", ButtonText: "...", ButtonData: "noop",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	article, ok := api.results[0].(tgbotapi.InlineQueryResultArticle)
	if !ok {
		t.Fatalf("unexpected result type %T", api.results[0])
	}
	if article.ReplyMarkup == nil || len(article.ReplyMarkup.InlineKeyboard) != 1 {
		t.Errorf("expected a keyboard row, got %+v", article.ReplyMarkup)
	}
}

func TestTelegramRepo_SendOnlyNeverPolls(t *testing.T) {
	api := newFakeTelegram()
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		Text: "for the bridge",
		Chat: &tgbotapi.Chat{ID: 1, Type: "group"},
		From: &tgbotapi.User{ID: 2},
	}}
	r := newTelegramRepo(api, nil, false)

	if _, ok := <-r.Events(); ok {
		t.Error("expected closed event channel")
	}
	if len(api.updates) != 1 {
		t.Error("expected pending update left unread")
	}
	if _, err := r.SendText(context.Background(), "1", "hi", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
