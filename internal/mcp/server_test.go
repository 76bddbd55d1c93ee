package mcp

import (
	"context"
	"sort"
	"sync"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
	"github.com/irctelegram/ircbridge/internal/biz/repo"
)

type recordingChat struct {
	mu       sync.Mutex
	sent     []string
	modes    []string
	edits    []string
	stickers []string
}

func (c *recordingChat) SendText(ctx context.Context, chatID, text, parseMode string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, chatID+":"+text)
	c.modes = append(c.modes, parseMode)
	return "m1", nil
}

func (c *recordingChat) SendSticker(ctx context.Context, chatID, stickerID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stickers = append(c.stickers, chatID+":"+stickerID)
	return "m2", nil
}

func (c *recordingChat) EditText(ctx context.Context, inlineHandle, text, parseMode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edits = append(c.edits, inlineHandle+":"+text)
	return nil
}

func (c *recordingChat) AnswerInlineQuery(ctx context.Context, queryID string, answers []repo.InlineAnswer) error {
	return repo.ErrUnsupported
}

func (c *recordingChat) AnswerButton(ctx context.Context, queryID, text string) error {
	return repo.ErrUnsupported
}

func (c *recordingChat) Events() <-chan domain.Event { return nil }

func (c *recordingChat) Close() error { return nil }

func TestSendMessage_UsesDefaultMode(t *testing.T) {
	chat := &recordingChat{}
	s := NewServer(chat, "IRC", "test", nil)

	_, out, err := s.handleSendMessage(context.Background(), nil, SendMessageInput{Target: "#-100", Text: "\x02hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.MessageID != "m1" {
		t.Errorf("expected message id m1, got %q", out.MessageID)
	}
	if len(chat.sent) != 1 || chat.sent[0] != "-100:<b>hi</b>" || chat.modes[0] != "HTML" {
		t.Errorf("unexpected sends %q modes %q", chat.sent, chat.modes)
	}
}

func TestSendMessage_PlainOverride(t *testing.T) {
	chat := &recordingChat{}
	s := NewServer(chat, "IRC", "test", nil)

	if _, _, err := s.handleSendMessage(context.Background(), nil, SendMessageInput{Target: "&42", Text: "\x02hi", ParseMode: "plain"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chat.sent[0] != "42:\x02hi" || chat.modes[0] != "" {
		t.Errorf("expected untouched plain text, got %q mode %q", chat.sent[0], chat.modes[0])
	}
}

func TestSendMessage_InlineTargetEdits(t *testing.T) {
	chat := &recordingChat{}
	s := NewServer(chat, "", "test", nil)

	_, out, err := s.handleSendMessage(context.Background(), nil, SendMessageInput{Target: "!i:bob@AgAD", Text: "done"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.MessageID != "AgAD" || len(chat.edits) != 1 || chat.edits[0] != "AgAD:done" {
		t.Errorf("unexpected edit %q (ref %q)", chat.edits, out.MessageID)
	}
}

func TestSendSticker(t *testing.T) {
	chat := &recordingChat{}
	s := NewServer(chat, "", "test", nil)

	if _, _, err := s.handleSendSticker(context.Background(), nil, SendStickerInput{Target: "+55", StickerID: "CAAD"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chat.stickers) != 1 || chat.stickers[0] != "55:CAAD" {
		t.Errorf("unexpected stickers %q", chat.stickers)
	}
	if _, _, err := s.handleSendSticker(context.Background(), nil, SendStickerInput{Target: "+55"}); err == nil {
		t.Error("expected error for empty sticker id")
	}
}

func TestTranslateMarkup(t *testing.T) {
	s := NewServer(&recordingChat{}, "", "test", nil)

	_, out, err := s.handleTranslateMarkup(context.Background(), nil, TranslateInput{Text: "a<\x02b", ParseMode: "IRC"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Body != "a&lt;<b>b</b>" || out.APIMode != "HTML" {
		t.Errorf("unexpected translation %+v", out)
	}
}

func TestServer_ToolsOverTransport(t *testing.T) {
	ctx := context.Background()
	s := NewServer(&recordingChat{}, "", "test", nil)

	clientTransport, serverTransport := sdk.NewInMemoryTransports()
	serverSession, err := s.server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := []string{"bridge_send_message", "bridge_send_sticker", "bridge_translate_markup"}
	if len(names) != len(want) {
		t.Fatalf("expected tools %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("tool %d = %q, want %q", i, names[i], want[i])
		}
	}

	// Missing text fails schema validation or the handler check
	res, err := session.CallTool(ctx, &sdk.CallToolParams{
		Name:      "bridge_send_message",
		Arguments: map[string]any{"target": "#1"},
	})
	if err == nil && !res.IsError {
		t.Error("expected missing text to be rejected")
	}
}
