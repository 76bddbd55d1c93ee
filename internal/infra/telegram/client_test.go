package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeBotAPI serves the few Bot API methods the client calls
type fakeBotAPI struct {
	mu    sync.Mutex
	calls []map[string]string
	fail  string // description returned for sendMessage when set
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	params := map[string]string{"method": method}
	for k := range r.Form {
		params[k] = r.Form.Get(k)
	}
	f.mu.Lock()
	f.calls = append(f.calls, params)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Bridge","username":"bridge_bot"}}`)
	case "sendMessage":
		if f.fail != "" {
			fmt.Fprintf(w, `{"ok":false,"error_code":400,"description":%q}`, f.fail)
			return
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":100,"type":"supergroup"}}}`)
	default:
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}
}

func (f *fakeBotAPI) last() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func newTestClient(t *testing.T, api *fakeBotAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := NewClient("123:abc", Options{APIEndpoint: srv.URL + "/bot%s/%s", RatePerSecond: 1000})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClient_Login(t *testing.T) {
	c := newTestClient(t, &fakeBotAPI{})
	if c.Self().UserName != "bridge_bot" {
		t.Errorf("expected bot username, got %q", c.Self().UserName)
	}
}

func TestClient_SendMessage(t *testing.T) {
	api := &fakeBotAPI{}
	c := newTestClient(t, api)

	msg, err := c.SendMessage(context.Background(), "100", "<b>hi</b>", "HTML")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.MessageID != 7 {
		t.Errorf("expected message id 7, got %d", msg.MessageID)
	}
	got := api.last()
	if got["method"] != "sendMessage" || got["chat_id"] != "100" || got["text"] != "<b>hi</b>" || got["parse_mode"] != "HTML" {
		t.Errorf("unexpected request %v", got)
	}
}

func TestClient_SendMessageAPIError(t *testing.T) {
	c := newTestClient(t, &fakeBotAPI{fail: "Bad Request: can't parse entities"})

	_, err := c.SendMessage(context.Background(), "100", "<b>", "HTML")
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *tgbotapi.Error, got %T %v", err, err)
	}
	if apiErr.Code != 400 {
		t.Errorf("expected code 400, got %d", apiErr.Code)
	}
}

func TestClient_InvalidChatID(t *testing.T) {
	c := newTestClient(t, &fakeBotAPI{})
	if _, err := c.SendSticker(context.Background(), "not-a-number", "CAAD"); err == nil {
		t.Error("expected error for non-numeric chat id")
	}
}

func TestClient_AnswerCallback(t *testing.T) {
	api := &fakeBotAPI{}
	c := newTestClient(t, api)

	if err := c.AnswerCallback(context.Background(), "cb1", ""); err != nil {
		t.Fatalf("AnswerCallback: %v", err)
	}
	if got := api.last(); got["method"] != "answerCallbackQuery" || got["callback_query_id"] != "cb1" {
		t.Errorf("unexpected request %v", got)
	}
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	c := newTestClient(t, &fakeBotAPI{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.SendMessage(ctx, "100", "x", ""); err == nil {
		t.Error("expected canceled context to abort the call")
	}
}
