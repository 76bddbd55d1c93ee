package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
	"github.com/irctelegram/ircbridge/internal/biz/repo"
)

// DeliveryUsecase sends outbound messages with the markup fallback policy
type DeliveryUsecase struct {
	chat repo.ChatRepo
	log  *slog.Logger
}

// NewDeliveryUsecase creates a new delivery usecase
func NewDeliveryUsecase(chat repo.ChatRepo, log *slog.Logger) *DeliveryUsecase {
	if log == nil {
		log = slog.Default()
	}
	return &DeliveryUsecase{chat: chat, log: log}
}

// SendText sends text under the session markup mode. A rejected formatted
// send is retried once as plain text with the rejection appended.
func (uc *DeliveryUsecase) SendText(ctx context.Context, chatID, text, mode string) (string, error) {
	body, apiMode := Render(mode, text)
	ref, err := uc.chat.SendText(ctx, chatID, body, apiMode)
	if err == nil {
		return ref, nil
	}
	if apiMode == "" || !errors.Is(err, repo.ErrFormattingRejected) {
		return "", &domain.DeliveryError{Op: "send text", ChatID: chatID, Err: err}
	}

	uc.log.Warn("formatted send rejected, retrying plain", "chat", chatID, "mode", apiMode, "error", err)
	ref, err2 := uc.chat.SendText(ctx, chatID, PlainFallback(mode, text, err), "")
	if err2 != nil {
		return "", &domain.DeliveryError{Op: "send plain text", ChatID: chatID, Err: err2}
	}
	return ref, nil
}

// EditInline replaces the text of an inline message with the same fallback
func (uc *DeliveryUsecase) EditInline(ctx context.Context, handle, text, mode string) error {
	body, apiMode := Render(mode, text)
	err := uc.chat.EditText(ctx, handle, body, apiMode)
	if err == nil {
		return nil
	}
	if apiMode == "" || !errors.Is(err, repo.ErrFormattingRejected) {
		return &domain.DeliveryError{Op: "edit inline", ChatID: handle, Err: err}
	}

	uc.log.Warn("formatted edit rejected, retrying plain", "handle", handle, "mode", apiMode, "error", err)
	if err2 := uc.chat.EditText(ctx, handle, PlainFallback(mode, text, err), ""); err2 != nil {
		return &domain.DeliveryError{Op: "edit inline plain", ChatID: handle, Err: err2}
	}
	return nil
}

// SendToTarget sends text to a prefixed IRC target. An inline target
// edits that message and its handle is returned as the reference.
func (uc *DeliveryUsecase) SendToTarget(ctx context.Context, target, text, mode string) (string, error) {
	if _, handle, ok := domain.ParseInlineTarget(target); ok {
		if err := uc.EditInline(ctx, handle, text, mode); err != nil {
			return "", err
		}
		return handle, nil
	}
	return uc.SendText(ctx, domain.ChatIDFromTarget(target), text, mode)
}

// SendSticker sends a sticker, stickers have no fallback
func (uc *DeliveryUsecase) SendSticker(ctx context.Context, chatID, stickerID string) (string, error) {
	if stickerID == "" {
		return "", &domain.DeliveryError{Op: "send sticker", ChatID: chatID, Err: fmt.Errorf("empty sticker id")}
	}
	ref, err := uc.chat.SendSticker(ctx, chatID, stickerID)
	if err != nil {
		return "", &domain.DeliveryError{Op: "send sticker", ChatID: chatID, Err: err}
	}
	return ref, nil
}
