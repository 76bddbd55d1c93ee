package service

import (
	"context"
	"errors"
	"strings"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
	"github.com/irctelegram/ircbridge/internal/biz/repo"
	"github.com/irctelegram/ircbridge/internal/irc"
)

// pumpEvents renders inbound chat events until the chat client closes its channel
func (s *SessionService) pumpEvents(ctx context.Context, chat repo.ChatRepo, done chan struct{}) {
	defer close(done)
	for ev := range chat.Events() {
		s.HandleEvent(ctx, ev)
	}
	s.log.Debug("event pump stopped")
}

// HandleEvent turns one inbound chat event into IRC lines
func (s *SessionService) HandleEvent(ctx context.Context, ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase == domain.PhaseClosed {
		return
	}
	s.log.Debug("event", "kind", ev.Kind.String(), "chat", ev.Chat.ID)

	switch ev.Kind {
	case domain.EventText:
		s.relayText(ev)
	case domain.EventSticker:
		s.relaySticker(ev)
	case domain.EventInlineQuery:
		s.answerInlineQuery(ctx, ev)
	case domain.EventInlineResultChosen:
		s.relayInlineResult(ev)
	case domain.EventButtonPressed:
		if s.chat != nil {
			if err := s.chat.AnswerButton(ctx, ev.QueryID, ""); err != nil && !errors.Is(err, repo.ErrUnsupported) {
				s.log.Warn("button answer failed", "error", err)
				s.emitError("Unable to answer button; " + err.Error())
			}
		}
	}
}

// announce emits the synthetic JOIN the first time id speaks in target
func (s *SessionService) announce(id domain.Identity, target string) {
	if line, ok := s.presence.See(id, target, s.state.HasCap(CapExtendedJoin)); ok {
		s.emit(line)
	}
}

func (s *SessionService) relayText(ev domain.Event) {
	target := domain.TargetFor(ev.Chat)
	id := domain.NewIdentity(ev.From)
	s.announce(id, target)

	var forwarded string
	if ev.ForwardFrom != nil {
		forwarded = "Forwarded from " + domain.NewIdentity(*ev.ForwardFrom).Nick + ": "
	}
	prefix := id.FullAddress(s.opts.ServerName)
	for _, line := range splitLines(ev.Text) {
		s.emit(irc.Encode(prefix, irc.CmdPrivmsg, target, forwarded+line))
	}
}

func (s *SessionService) relaySticker(ev domain.Event) {
	target := domain.TargetFor(ev.Chat)
	id := domain.NewIdentity(ev.From)
	s.announce(id, target)
	s.emit(irc.Encode(id.FullAddress(s.opts.ServerName), irc.CmdPrivmsg, target, stickerPrefix+ev.StickerID+irc.CTCPDelim))
}

// answerInlineQuery offers the typed text back as the only suggestion.
// Choosing it creates a message the IRC side can then edit.
func (s *SessionService) answerInlineQuery(ctx context.Context, ev domain.Event) {
	query := strings.TrimSpace(ev.Text)
	if query == "" || s.chat == nil {
		return
	}
	answers := []repo.InlineAnswer{{
		ID:          "1",
		Title:       query,
		Text:        query,
		Description: "Send through " + s.state.Nick(),
		ButtonText:  "…",
		ButtonData:  "pending",
	}}
	s.work++
	if err := s.chat.AnswerInlineQuery(ctx, ev.QueryID, answers); err != nil && !errors.Is(err, repo.ErrUnsupported) {
		s.log.Warn("inline answer failed", "error", err)
		s.emitError("Unable to answer inline query; " + err.Error())
	}
}

// relayInlineResult emits a single PRIVMSG with no JOIN, since !i: targets are not channels
func (s *SessionService) relayInlineResult(ev domain.Event) {
	id := domain.NewIdentity(ev.From)
	target := domain.InlineTarget(id.Account, ev.InlineHandle)
	text := ev.Text
	if lines := splitLines(text); len(lines) > 0 {
		text = lines[0]
	}
	s.emit(irc.Encode(id.FullAddress(s.opts.ServerName), irc.CmdPrivmsg, target, text))
}

// splitLines splits chat text into non-empty IRC lines
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
