package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
	"github.com/irctelegram/ircbridge/internal/biz/repo"
)

func TestDelivery_FormattedSend(t *testing.T) {
	chat := &mockChatRepo{}
	uc := NewDeliveryUsecase(chat, nil)

	if _, err := uc.SendText(context.Background(), "100", "\x02hi", "IRC"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chat.sent) != 1 || chat.sent[0].text != "<b>hi</b>" || chat.sent[0].mode != "HTML" {
		t.Errorf("unexpected send %+v", chat.sent)
	}
}

func TestDelivery_RejectedMarkupRetriesPlain(t *testing.T) {
	rejected := fmt.Errorf("%w: can't parse entities", repo.ErrFormattingRejected)
	chat := &mockChatRepo{sendErrs: []error{rejected}}
	uc := NewDeliveryUsecase(chat, nil)

	if _, err := uc.SendText(context.Background(), "100", "\x02hi", "IRC"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chat.sent) != 1 {
		t.Fatalf("expected one successful send, got %d", len(chat.sent))
	}
	got := chat.sent[0]
	if got.mode != "" {
		t.Errorf("expected plain retry, got mode %q", got.mode)
	}
	if !strings.HasPrefix(got.text, "hi\n\n(Error: ") {
		t.Errorf("expected stripped text with annotation, got %q", got.text)
	}
}

func TestDelivery_SecondFailureSurfaces(t *testing.T) {
	rejected := fmt.Errorf("%w: bad", repo.ErrFormattingRejected)
	chat := &mockChatRepo{sendErrs: []error{rejected, errors.New("network down")}}
	uc := NewDeliveryUsecase(chat, nil)

	_, err := uc.SendText(context.Background(), "100", "x", "Markdown")
	var de *domain.DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if len(chat.sendErrs) != 0 {
		t.Error("expected exactly two attempts")
	}
}

func TestDelivery_PlainFailureNotRetried(t *testing.T) {
	chat := &mockChatRepo{sendErrs: []error{errors.New("forbidden")}}
	uc := NewDeliveryUsecase(chat, nil)

	if _, err := uc.SendText(context.Background(), "100", "x", ""); err == nil {
		t.Fatal("expected error")
	}
	if len(chat.sent) != 0 {
		t.Errorf("expected no retry, got %+v", chat.sent)
	}
}

func TestDelivery_EditInline(t *testing.T) {
	chat := &mockChatRepo{}
	uc := NewDeliveryUsecase(chat, nil)

	if err := uc.EditInline(context.Background(), "AAE", "done", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chat.edits) != 1 || chat.edits[0].chatID != "AAE" {
		t.Errorf("unexpected edits %+v", chat.edits)
	}
}

func TestDelivery_SendToTarget(t *testing.T) {
	chat := &mockChatRepo{}
	uc := NewDeliveryUsecase(chat, nil)
	ctx := context.Background()

	if _, err := uc.SendToTarget(ctx, "#-100123", "hello", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	ref, err := uc.SendToTarget(ctx, "!i:bob@AgAAA", "edited", "")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	if len(chat.sent) != 1 || chat.sent[0].chatID != "-100123" {
		t.Errorf("unexpected sends %+v", chat.sent)
	}
	if ref != "AgAAA" || len(chat.edits) != 1 || chat.edits[0].chatID != "AgAAA" {
		t.Errorf("unexpected edit ref %q edits %+v", ref, chat.edits)
	}
}
