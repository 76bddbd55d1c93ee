package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
	"github.com/irctelegram/ircbridge/internal/biz/usecase"
	"github.com/irctelegram/ircbridge/internal/irc"
)

// Payload markers inside PRIVMSG text
const (
	actionPrefix  = irc.CTCPDelim + "ACTION "
	stickerPrefix = irc.CTCPDelim + "STICKER "
)

func (s *SessionService) commandTable() map[string]commandHandler {
	inert := func(context.Context, irc.Line) bool { return false }
	return map[string]commandHandler{
		irc.CmdPass:    s.handlePass,
		irc.CmdNick:    s.handleNick,
		irc.CmdTDelay:  s.handleTDelay,
		irc.CmdTParse:  s.handleTParseMode,
		irc.CmdBatch:   s.handleBatch,
		irc.CmdPrivmsg: s.handlePrivmsg,
		irc.CmdNotice:  s.handleNotice,
		irc.CmdPing:    s.handlePing,
		irc.CmdPong:    inert,
		irc.CmdCap:     s.handleCap,
		irc.CmdQuit:    s.handleQuit,
		irc.CmdUser:    inert,
		irc.CmdJoin:    inert,
		irc.CmdPart:    inert,
		irc.CmdMode:    inert,
		irc.CmdWho:     inert,
	}
}

func (s *SessionService) needParams(line irc.Line, n int) bool {
	if len(line.Args) >= n {
		return false
	}
	s.reject(&domain.ProtocolError{Command: line.Command, Numeric: irc.ErrNeedMoreParams, Message: "Not enough parameters"})
	return true
}

func (s *SessionService) handlePass(ctx context.Context, line irc.Line) bool {
	if s.needParams(line, 1) {
		return false
	}
	if s.chat != nil {
		return false
	}

	s.state.Phase = domain.PhaseAuthenticating
	chat, err := s.connector.Connect(ctx, line.Args[0])
	if err != nil {
		s.state.Phase = domain.PhaseAwaitingAuth
		s.log.Error("chat client login failed", "error", err)
		s.emitError("Unable to connect; " + err.Error())
		return false
	}

	s.chat = chat
	s.delivery = usecase.NewDeliveryUsecase(chat, s.opts.Logger)
	s.state.Phase = domain.PhaseConnected
	s.work++
	s.log.Info("chat client connected")

	s.pumpDone = make(chan struct{})
	go s.pumpEvents(context.WithoutCancel(ctx), chat, s.pumpDone)
	return false
}

func (s *SessionService) handleNick(ctx context.Context, line irc.Line) bool {
	if s.needParams(line, 1) {
		return false
	}
	s.state.BotNick = line.Args[0]
	if s.state.Welcomed {
		return false
	}
	s.state.Welcomed = true

	nick := s.state.BotNick
	s.reply(irc.RplWelcome, nick, s.opts.Welcome)
	isupport := append([]string{nick}, s.opts.ISupport...)
	s.reply(irc.RplISupport, append(isupport, "are supported by this server")...)
	s.reply(irc.ErrNoMOTD, nick, "No MOTD")
	return false
}

func (s *SessionService) handleTDelay(ctx context.Context, line irc.Line) bool {
	if len(line.Args) > 0 {
		delay, ok := domain.ParseDelay(line.Args[0])
		if !ok {
			s.reject(&domain.ProtocolError{Command: line.Command, Numeric: irc.ErrNeedMoreParams, Message: "Delay must be a non-negative number"})
			return false
		}
		s.state.SendDelay = delay
	}
	s.reply(irc.RplSendDelay, strconv.FormatFloat(s.state.SendDelay.Seconds(), 'f', -1, 64))
	return false
}

func (s *SessionService) handleTParseMode(ctx context.Context, line irc.Line) bool {
	if len(line.Args) > 0 {
		s.state.SetParseMode(line.Args[0])
	}
	s.reply(irc.RplParseMode, s.state.ParseModeName())
	return false
}

func (s *SessionService) handleBatch(ctx context.Context, line irc.Line) bool {
	if s.needParams(line, 1) {
		return false
	}
	ref := line.Args[0]
	var err error
	switch {
	case strings.HasPrefix(ref, "+"):
		err = s.batch.Begin(ctx, ref[1:], line.Arg(1), line.Arg(2))
	case strings.HasPrefix(ref, "-"):
		err = s.batch.End(ctx)
	default:
		s.reject(&domain.ProtocolError{Command: line.Command, Numeric: irc.ErrNeedMoreParams, Message: "Batch reference must start with + or -"})
		return false
	}
	if err != nil {
		s.reportDeliveryError(err)
	}
	return false
}

func (s *SessionService) handlePrivmsg(ctx context.Context, line irc.Line) bool {
	if s.needParams(line, 2) || !s.requireChat() {
		return false
	}
	target, text := line.Args[0], line.Args[1]

	if id, ok := parseSticker(text); ok {
		if err := s.batch.Break(ctx); err != nil {
			s.reportDeliveryError(err)
		}
		if _, _, inline := domain.ParseInlineTarget(target); inline {
			s.emitError("Unable to send message; inline messages take text only")
			return false
		}
		s.work++
		if _, err := s.delivery.SendSticker(ctx, domain.ChatIDFromTarget(target), id); err != nil {
			s.reportDeliveryError(err)
		}
		return false
	}

	text = unwrapAction(text)

	if _, handle, ok := domain.ParseInlineTarget(target); ok {
		s.editInline(ctx, handle, text)
		return false
	}

	chatID := domain.ChatIDFromTarget(target)
	if s.inBatch(line) {
		batched, err := s.batch.Append(ctx, chatID, text)
		if err != nil {
			s.reportDeliveryError(err)
		}
		if batched {
			return false
		}
	}
	s.sendText(ctx, chatID, text)
	return false
}

func (s *SessionService) handleNotice(ctx context.Context, line irc.Line) bool {
	if s.needParams(line, 2) || !s.requireChat() {
		return false
	}
	target, text := line.Args[0], s.opts.NoticePrefix+unwrapAction(line.Args[1])

	// Notices are never batched, but must not overtake queued lines
	if err := s.batch.Break(ctx); err != nil {
		s.reportDeliveryError(err)
	}
	if _, handle, ok := domain.ParseInlineTarget(target); ok {
		s.editInline(ctx, handle, text)
		return false
	}
	s.sendText(ctx, domain.ChatIDFromTarget(target), text)
	return false
}

func (s *SessionService) handlePing(ctx context.Context, line irc.Line) bool {
	s.reply(irc.CmdPong, s.opts.ServerName, line.Arg(0))
	return false
}

func (s *SessionService) handleQuit(ctx context.Context, line irc.Line) bool {
	if err := s.batch.End(ctx); err != nil {
		s.reportDeliveryError(err)
	}
	s.emitError("Quit: " + line.Arg(0))
	return true
}

func (s *SessionService) handleUnknown(ctx context.Context, line irc.Line) bool {
	s.reply(irc.ErrUnknownCommand, line.Command, "Unknown command")
	return false
}

// requireChat reports whether PASS has attached a chat client, replying 451 otherwise
func (s *SessionService) requireChat() bool {
	if s.chat != nil {
		return true
	}
	s.reject(&domain.ProtocolError{Numeric: irc.ErrNotRegistered, Message: "You have not registered"})
	return false
}

// inBatch reports whether a line belongs to the open bridged batch.
// Lines tagged with another batch reference are sent directly.
func (s *SessionService) inBatch(line irc.Line) bool {
	if !s.batch.Active() {
		return false
	}
	ref, tagged := line.Tag("batch")
	return !tagged || ref == s.state.Batch.Ref
}

func (s *SessionService) sendText(ctx context.Context, chatID, text string) {
	s.work++
	if _, err := s.delivery.SendText(ctx, chatID, text, s.state.ParseMode); err != nil {
		s.reportDeliveryError(err)
	}
}

func (s *SessionService) editInline(ctx context.Context, handle, text string) {
	s.work++
	if err := s.delivery.EditInline(ctx, handle, text, s.state.ParseMode); err != nil {
		s.reportDeliveryError(err)
	}
}

// parseSticker extracts the id from "\x01STICKER <id>\x01"; the closing byte is optional
func parseSticker(text string) (string, bool) {
	rest, ok := strings.CutPrefix(text, stickerPrefix)
	if !ok {
		return "", false
	}
	id := strings.TrimSpace(strings.TrimSuffix(rest, irc.CTCPDelim))
	return id, id != ""
}

// unwrapAction turns "\x01ACTION waves\x01" into " * waves"
func unwrapAction(text string) string {
	rest, ok := strings.CutPrefix(text, actionPrefix)
	if !ok {
		return text
	}
	return " * " + strings.TrimRight(rest, irc.CTCPDelim)
}
