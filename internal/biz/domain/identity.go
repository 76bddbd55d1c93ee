package domain

import (
	"strings"
	"unicode"
)

// Target prefixes
const (
	PrefixGroup   = "#"
	PrefixChannel = "+"
	PrefixPrivate = "&"

	// InlinePrefix marks the synthetic target of a chosen inline result
	InlinePrefix = "!i:"
)

// Identity is the IRC-side view of a chat user
type Identity struct {
	Nick      string
	NumericID string
	Account   string
	FirstName string
	LastName  string
	Username  string
}

// NewIdentity derives the IRC identity of a chat user
func NewIdentity(u ChatUser) Identity {
	account := u.Username
	if account == "" {
		account = u.ID
	}
	return Identity{
		Nick:      displayNick(u),
		NumericID: u.ID,
		Account:   SafeName(account),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}

// FullAddress returns nick!numericId@account.serverName
func (id Identity) FullAddress(serverName string) string {
	return id.Nick + "!" + id.NumericID + "@" + id.Account + "." + serverName
}

// RealName returns the full name for extended-join, or "" when absent
func (id Identity) RealName() string {
	return strings.TrimSpace(id.FirstName + " " + id.LastName)
}

// SafeName keeps the first line of s and replaces whitespace with '_'
func SafeName(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, s)
}

func displayNick(u ChatUser) string {
	if u.Username != "" {
		return SafeName(u.Username)
	}
	first, last := u.FirstName, u.LastName
	if first == "" {
		first = "_"
	}
	if last == "" {
		last = "_"
	}
	nick := strings.Trim(SafeName(first+"_"+last), "_")
	if nick == "" {
		return "_"
	}
	return nick
}

// TargetFor maps a chat to its prefixed IRC target
func TargetFor(c Chat) string {
	switch c.Type {
	case ChatTypeChannel:
		return PrefixChannel + c.ID
	case ChatTypeGroup, ChatTypeSupergroup:
		return PrefixGroup + c.ID
	default:
		return PrefixPrivate + c.ID
	}
}

// ChatIDFromTarget strips one leading target prefix. Unprefixed
// targets pass through unchanged.
func ChatIDFromTarget(target string) string {
	if target == "" {
		return target
	}
	switch target[:1] {
	case PrefixGroup, PrefixChannel, PrefixPrivate:
		return target[1:]
	}
	return target
}

// InlineTarget builds the synthetic target for an inline message handle
func InlineTarget(account, handle string) string {
	return InlinePrefix + account + "@" + handle
}

// ParseInlineTarget splits a synthetic inline target. The handle is
// everything after the first '@'.
func ParseInlineTarget(target string) (account, handle string, ok bool) {
	rest, found := strings.CutPrefix(target, InlinePrefix)
	if !found {
		return "", "", false
	}
	account, handle, found = strings.Cut(rest, "@")
	if !found || handle == "" {
		return "", "", false
	}
	return account, handle, true
}
