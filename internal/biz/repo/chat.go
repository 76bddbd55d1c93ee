package repo

import (
	"context"
	"errors"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
)

var (
	// ErrFormattingRejected is returned when the chat service refuses the
	// markup of a formatted send. Callers may retry without a parse mode.
	ErrFormattingRejected = errors.New("formatting rejected")

	// ErrNotConnected is returned when no chat client is attached
	ErrNotConnected = errors.New("chat client not connected")

	// ErrUnsupported is returned for operations a backend cannot perform
	ErrUnsupported = errors.New("operation not supported by backend")
)

// InlineAnswer is a single suggestion offered in reply to an inline query
type InlineAnswer struct {
	ID          string
	Title       string
	Text        string
	Description string
	ButtonText  string
	ButtonData  string
}

// ChatRepo is the chat-service client interface
// All sends return the chat service's message reference
type ChatRepo interface {
	// SendText sends a text message, parseMode "" means plain text
	SendText(ctx context.Context, chatID, text, parseMode string) (string, error)

	// SendSticker sends a sticker by its opaque id
	SendSticker(ctx context.Context, chatID, stickerID string) (string, error)

	// EditText replaces the text of an inline message
	EditText(ctx context.Context, inlineHandle, text, parseMode string) error

	// AnswerInlineQuery offers suggestions for an inline query
	AnswerInlineQuery(ctx context.Context, queryID string, answers []InlineAnswer) error

	// AnswerButton acknowledges a button press
	AnswerButton(ctx context.Context, queryID, text string) error

	// Events gets the inbound event channel, closed when the client stops
	Events() <-chan domain.Event

	// Close stops event intake and releases the client
	Close() error
}

// ChatConnector initializes a chat client from a credential
type ChatConnector interface {
	Connect(ctx context.Context, credential string) (ChatRepo, error)
}

// ConnectorFunc adapts a function to ChatConnector
type ConnectorFunc func(ctx context.Context, credential string) (ChatRepo, error)

// Connect calls f
func (f ConnectorFunc) Connect(ctx context.Context, credential string) (ChatRepo, error) {
	return f(ctx, credential)
}
