package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Phase is the connection phase of a bridge session
type Phase int

const (
	PhaseAwaitingAuth Phase = iota
	PhaseAuthenticating
	PhaseConnected
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingAuth:
		return "awaiting_auth"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseConnected:
		return "connected"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Parse modes with special meaning
const (
	ParseModeIRC   = "IRC"
	ParseModePlain = "Plain"
)

// maxDelaySeconds is the largest delay a time.Duration can hold
const maxDelaySeconds = float64(math.MaxInt64) / float64(time.Second)

// ParseDelay parses a non-negative, finite delay in fractional seconds
func ParseDelay(val string) (time.Duration, bool) {
	secs, err := strconv.ParseFloat(val, 64)
	if err != nil || math.IsNaN(secs) || secs < 0 || secs >= maxDelaySeconds {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// Session is the state of the single IRC-side connection
type Session struct {
	Phase     Phase
	BotNick   string
	Welcomed  bool
	Caps      map[string]bool
	ParseMode string
	SendDelay time.Duration
	Batch     BatchState
	Presence  *PresenceTable
}

// NewSession creates a session awaiting authentication
func NewSession(parseMode string, delay time.Duration) *Session {
	s := &Session{
		Phase:     PhaseAwaitingAuth,
		Caps:      make(map[string]bool),
		SendDelay: delay,
		Presence:  NewPresenceTable(),
	}
	s.SetParseMode(parseMode)
	return s
}

// SetParseMode sets the markup mode; "Plain" (any case) disables markup
func (s *Session) SetParseMode(mode string) {
	if strings.EqualFold(mode, ParseModePlain) {
		mode = ""
	}
	s.ParseMode = mode
}

// ParseModeName returns the mode for display, "Plain" when disabled
func (s *Session) ParseModeName() string {
	if s.ParseMode == "" {
		return ParseModePlain
	}
	return s.ParseMode
}

// HasCap checks if a capability was negotiated
func (s *Session) HasCap(name string) bool {
	return s.Caps[strings.ToLower(name)]
}

// EnabledCaps returns the negotiated capabilities in the given order
func (s *Session) EnabledCaps(order []string) []string {
	var out []string
	for _, c := range order {
		if s.Caps[c] {
			out = append(out, c)
		}
	}
	return out
}

// Nick returns the bot nick or "*" before NICK
func (s *Session) Nick() string {
	if s.BotNick == "" {
		return "*"
	}
	return s.BotNick
}
