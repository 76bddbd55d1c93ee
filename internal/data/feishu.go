package data

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
	"github.com/irctelegram/ircbridge/internal/biz/repo"
	"github.com/irctelegram/ircbridge/internal/infra/feishu"
)

// feishuAPI is the subset of the Feishu client the repo uses
type feishuAPI interface {
	SendText(ctx context.Context, chatID, text string) (string, error)
	SendPost(ctx context.Context, chatID string, paragraphs [][]feishu.PostElement) (string, error)
	SendSticker(ctx context.Context, chatID, fileKey string) (string, error)
	UpdateText(ctx context.Context, messageID, text string) error
	UpdatePost(ctx context.Context, messageID string, paragraphs [][]feishu.PostElement) error
}

// feishuRepo implements the chat repository over Feishu
type feishuRepo struct {
	client feishuAPI
	events chan domain.Event
	log    *slog.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	sending   sync.RWMutex

	// Redelivered websocket events carry a message id already seen
	seenMu sync.Mutex
	seen   map[string]time.Time
}

// seenTTL bounds how long a message id is remembered
const seenTTL = 5 * time.Minute

// NewFeishuConnector creates a connector taking an "appID:appSecret" credential.
// Without receive the websocket is never opened.
func NewFeishuConnector(log *slog.Logger, receive bool) repo.ChatConnector {
	return repo.ConnectorFunc(func(ctx context.Context, credential string) (repo.ChatRepo, error) {
		appID, appSecret, ok := strings.Cut(strings.TrimSpace(credential), ":")
		if !ok || appID == "" || appSecret == "" {
			return nil, fmt.Errorf("feishu credential must be appID:appSecret")
		}
		client := feishu.NewClient(appID, appSecret, log)
		r := newFeishuRepo(client, log)
		if !receive {
			return r, nil
		}
		client.OnMessage(r.onMessage)

		runCtx, cancel := context.WithCancel(context.Background())
		r.cancel = cancel
		go func() {
			if err := client.Start(runCtx); err != nil && runCtx.Err() == nil {
				r.log.Error("websocket stopped", "error", err)
			}
		}()
		return r, nil
	})
}

func newFeishuRepo(client feishuAPI, log *slog.Logger) *feishuRepo {
	if log == nil {
		log = slog.Default()
	}
	return &feishuRepo{
		client: client,
		events: make(chan domain.Event, 64),
		log:    log.With("component", "Feishu"),
		cancel: func() {},
		done:   make(chan struct{}),
		seen:   make(map[string]time.Time),
	}
}

// markSeen records msgID and reports whether it was already processed
func (r *feishuRepo) markSeen(msgID string) bool {
	if msgID == "" {
		return false
	}
	r.seenMu.Lock()
	defer r.seenMu.Unlock()
	if _, ok := r.seen[msgID]; ok {
		return true
	}
	now := time.Now()
	r.seen[msgID] = now

	cutoff := now.Add(-seenTTL)
	for id, ts := range r.seen {
		if ts.Before(cutoff) {
			delete(r.seen, id)
		}
	}
	return false
}

func (r *feishuRepo) onMessage(msg *feishu.Message) {
	ev, ok := ConvertFeishuMessage(msg)
	if !ok {
		return
	}
	if r.markSeen(msg.MsgID) {
		r.log.Debug("duplicate message skipped", "msg", msg.MsgID)
		return
	}
	r.sending.RLock()
	defer r.sending.RUnlock()
	select {
	case <-r.done:
		return
	default:
	}
	select {
	case <-r.done:
	case r.events <- ev:
	}
}

// ConvertFeishuMessage maps a received Feishu message onto a domain event
func ConvertFeishuMessage(msg *feishu.Message) (domain.Event, bool) {
	if msg == nil || msg.ChatID == "" {
		return domain.Event{}, false
	}
	ev := domain.Event{
		Chat: domain.Chat{ID: msg.ChatID, Type: domain.ParseChatType(msg.ChatType)},
	}
	if msg.Sender != nil {
		ev.From = domain.ChatUser{ID: msg.Sender.OpenID, FirstName: msg.Sender.Name}
	}
	switch {
	case msg.StickerKey != "":
		ev.Kind = domain.EventSticker
		ev.StickerID = msg.StickerKey
	case msg.Content != "":
		ev.Kind = domain.EventText
		ev.Text = msg.Content
	default:
		return domain.Event{}, false
	}
	return ev, true
}

// SendText sends text, rendering HTML and Markdown modes as post messages
func (r *feishuRepo) SendText(ctx context.Context, chatID, text, parseMode string) (string, error) {
	if parseMode == "" {
		return r.client.SendText(ctx, chatID, text)
	}
	post, err := PostFromMarkup(text, parseMode)
	if err != nil {
		return "", err
	}
	return r.client.SendPost(ctx, chatID, post)
}

// SendSticker sends a sticker by file key
func (r *feishuRepo) SendSticker(ctx context.Context, chatID, stickerID string) (string, error) {
	return r.client.SendSticker(ctx, chatID, stickerID)
}

// EditText updates a message previously sent by the bot
func (r *feishuRepo) EditText(ctx context.Context, messageID, text, parseMode string) error {
	if parseMode == "" {
		return r.client.UpdateText(ctx, messageID, text)
	}
	post, err := PostFromMarkup(text, parseMode)
	if err != nil {
		return err
	}
	return r.client.UpdatePost(ctx, messageID, post)
}

// AnswerInlineQuery is not available on Feishu
func (r *feishuRepo) AnswerInlineQuery(ctx context.Context, queryID string, answers []repo.InlineAnswer) error {
	return repo.ErrUnsupported
}

// AnswerButton is not available on Feishu
func (r *feishuRepo) AnswerButton(ctx context.Context, queryID, text string) error {
	return repo.ErrUnsupported
}

// Events gets the inbound event channel
func (r *feishuRepo) Events() <-chan domain.Event {
	return r.events
}

// Close closes the event channel. The SDK websocket ignores cancellation
// and stays open until the process exits; events it still delivers are dropped.
func (r *feishuRepo) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.cancel()
		// in-flight senders observe done and release the lock
		r.sending.Lock()
		close(r.events)
		r.sending.Unlock()
		r.log.Info("client closed")
	})
	return nil
}

// PostFromMarkup converts HTML or Markdown text into post paragraphs.
// Unsupported modes and tags are reported as ErrFormattingRejected.
func PostFromMarkup(text, parseMode string) ([][]feishu.PostElement, error) {
	switch strings.ToLower(parseMode) {
	case "html":
		return postFromHTML(text)
	case "markdown", "markdownv2":
		var paras [][]feishu.PostElement
		for _, line := range strings.Split(text, "\n") {
			paras = append(paras, []feishu.PostElement{{Tag: "md", Text: line}})
		}
		return paras, nil
	default:
		return nil, fmt.Errorf("%w: unsupported parse mode %q", repo.ErrFormattingRejected, parseMode)
	}
}

var htmlStyles = map[string]string{
	"b":      "bold",
	"strong": "bold",
	"i":      "italic",
	"em":     "italic",
	"u":      "underline",
	"ins":    "underline",
	"s":      "lineThrough",
	"strike": "lineThrough",
	"del":    "lineThrough",
}

func postFromHTML(text string) ([][]feishu.PostElement, error) {
	z := html.NewTokenizer(strings.NewReader(text))
	paras := [][]feishu.PostElement{nil}
	open := map[string]int{}

	emit := func(s string) {
		var style []string
		for _, name := range []string{"bold", "italic", "underline", "lineThrough"} {
			if open[name] > 0 {
				style = append(style, name)
			}
		}
		for i, part := range strings.Split(s, "\n") {
			if i > 0 {
				paras = append(paras, nil)
			}
			if part == "" {
				continue
			}
			last := len(paras) - 1
			paras[last] = append(paras[last], feishu.PostElement{Tag: "text", Text: part, Style: style})
		}
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				for name, n := range open {
					if n != 0 {
						return nil, fmt.Errorf("%w: unclosed %s", repo.ErrFormattingRejected, name)
					}
				}
				return paras, nil
			}
			return nil, fmt.Errorf("%w: %v", repo.ErrFormattingRejected, z.Err())
		case html.TextToken:
			emit(string(z.Text()))
		case html.StartTagToken, html.EndTagToken:
			tok := z.Token()
			style, ok := htmlStyles[tok.Data]
			if !ok {
				return nil, fmt.Errorf("%w: unsupported tag <%s>", repo.ErrFormattingRejected, tok.Data)
			}
			if tok.Type == html.StartTagToken {
				open[style]++
			} else if open[style] > 0 {
				open[style]--
			} else {
				return nil, fmt.Errorf("%w: unexpected </%s>", repo.ErrFormattingRejected, tok.Data)
			}
		}
	}
}
