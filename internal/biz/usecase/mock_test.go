package usecase

import (
	"context"
	"sync"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
	"github.com/irctelegram/ircbridge/internal/biz/repo"
)

// Mock implementations

type sentText struct {
	chatID string
	text   string
	mode   string
}

type mockChatRepo struct {
	mu       sync.Mutex
	sent     []sentText
	edits    []sentText
	stickers []string
	// sendErrs is consumed one entry per SendText/EditText call
	sendErrs []error
}

func (m *mockChatRepo) nextErr() error {
	if len(m.sendErrs) == 0 {
		return nil
	}
	err := m.sendErrs[0]
	m.sendErrs = m.sendErrs[1:]
	return err
}

func (m *mockChatRepo) SendText(ctx context.Context, chatID, text, parseMode string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.nextErr(); err != nil {
		return "", err
	}
	m.sent = append(m.sent, sentText{chatID, text, parseMode})
	return "msg", nil
}

func (m *mockChatRepo) SendSticker(ctx context.Context, chatID, stickerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stickers = append(m.stickers, chatID+":"+stickerID)
	return "sticker", nil
}

func (m *mockChatRepo) EditText(ctx context.Context, inlineHandle, text, parseMode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.nextErr(); err != nil {
		return err
	}
	m.edits = append(m.edits, sentText{inlineHandle, text, parseMode})
	return nil
}

func (m *mockChatRepo) AnswerInlineQuery(ctx context.Context, queryID string, answers []repo.InlineAnswer) error {
	return nil
}

func (m *mockChatRepo) AnswerButton(ctx context.Context, queryID, text string) error {
	return nil
}

func (m *mockChatRepo) Events() <-chan domain.Event {
	return nil
}

func (m *mockChatRepo) Close() error {
	return nil
}
