package usecase

import (
	"context"
	"strings"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
)

// DefaultBatchType is the client batch type the bridge coalesces
const DefaultBatchType = "draft/multiline"

// FlushFunc delivers the accumulated text of a batch
type FlushFunc func(ctx context.Context, chatID, text string) error

// BatchUsecase coalesces consecutive lines to one target into a single send
type BatchUsecase struct {
	state     *domain.BatchState
	batchType string
	flush     FlushFunc
}

// NewBatchUsecase creates a new batch usecase over the session's batch state
func NewBatchUsecase(state *domain.BatchState, batchType string, flush FlushFunc) *BatchUsecase {
	if batchType == "" {
		batchType = DefaultBatchType
	}
	return &BatchUsecase{state: state, batchType: batchType, flush: flush}
}

// BatchType returns the reserved batch type
func (uc *BatchUsecase) BatchType() string {
	return uc.batchType
}

// Active reports whether a bridged batch is open
func (uc *BatchUsecase) Active() bool {
	return uc.state.Active
}

// Begin opens a batch. A batch still open is flushed first. Only the
// reserved batch type is bridged, other types are accepted inertly.
func (uc *BatchUsecase) Begin(ctx context.Context, ref, batchType, target string) error {
	err := uc.flushPending(ctx)
	uc.state.Reset()
	if !strings.EqualFold(batchType, uc.batchType) {
		return err
	}
	uc.state.Active = true
	uc.state.Ref = ref
	if target != "" {
		uc.state.TargetChatID = domain.ChatIDFromTarget(target)
	}
	return err
}

// Append adds a text line for chatID. It reports false when no batch is
// open and the caller must send the line itself. A different target
// flushes what has accumulated before the new line starts a fresh run.
func (uc *BatchUsecase) Append(ctx context.Context, chatID, text string) (bool, error) {
	if !uc.state.Active {
		return false, nil
	}
	var err error
	if uc.state.TargetChatID != chatID {
		err = uc.flushPending(ctx)
		uc.state.TargetChatID = chatID
	}
	uc.state.Append(text)
	return true, err
}

// Break flushes pending text and keeps the batch open.
// Stickers are never merged into a batch.
func (uc *BatchUsecase) Break(ctx context.Context) error {
	return uc.flushPending(ctx)
}

// End flushes whatever has accumulated and clears the batch, open or not
func (uc *BatchUsecase) End(ctx context.Context) error {
	err := uc.flushPending(ctx)
	uc.state.Reset()
	return err
}

func (uc *BatchUsecase) flushPending(ctx context.Context) error {
	if !uc.state.HasPending() {
		uc.state.PendingText = ""
		return nil
	}
	chatID, text := uc.state.Take()
	return uc.flush(ctx, chatID, text)
}
