package service

import (
	"context"
	"strings"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
	"github.com/irctelegram/ircbridge/internal/irc"
)

// Capability names
const (
	CapBatch        = "batch"
	CapMultiline    = "draft/multiline"
	CapExtendedJoin = "extended-join"
)

// SupportedCaps lists the capabilities offered in CAP LS, in order
var SupportedCaps = []string{CapBatch, CapMultiline, CapExtendedJoin}

func isSupportedCap(name string) bool {
	for _, c := range SupportedCaps {
		if c == name {
			return true
		}
	}
	return false
}

func (s *SessionService) handleCap(ctx context.Context, line irc.Line) bool {
	if s.needParams(line, 1) {
		return false
	}
	nick := s.state.Nick()
	sub := strings.ToUpper(line.Args[0])

	switch sub {
	case "LS":
		s.reply(irc.CmdCap, nick, "LS", strings.Join(SupportedCaps, " "))
	case "LIST":
		s.reply(irc.CmdCap, nick, "LIST", strings.Join(s.state.EnabledCaps(SupportedCaps), " "))
	case "REQ":
		requested := line.Arg(1)
		if s.requestCaps(requested) {
			s.reply(irc.CmdCap, nick, "ACK", requested)
		} else {
			s.reply(irc.CmdCap, nick, "NAK", requested)
		}
	case "END":
	default:
		s.reject(&domain.ProtocolError{Command: line.Args[0], Numeric: irc.ErrInvalidCapCmd, Message: "Invalid CAP command"})
	}
	return false
}

// requestCaps applies a CAP REQ atomically: either every entry is a
// supported capability and all are applied, or nothing changes.
// A leading '-' disables the capability.
func (s *SessionService) requestCaps(requested string) bool {
	fields := strings.Fields(requested)
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !isSupportedCap(strings.ToLower(strings.TrimPrefix(f, "-"))) {
			return false
		}
	}
	for _, f := range fields {
		name := strings.ToLower(strings.TrimPrefix(f, "-"))
		if strings.HasPrefix(f, "-") {
			delete(s.state.Caps, name)
		} else {
			s.state.Caps[name] = true
		}
	}
	return true
}
