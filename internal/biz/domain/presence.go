package domain

import "strings"

// PresenceTable records which nicks have been announced in which targets.
// Entries are never removed within a session.
type PresenceTable struct {
	seen map[string]map[string]struct{}
}

// NewPresenceTable creates an empty table
func NewPresenceTable() *PresenceTable {
	return &PresenceTable{seen: make(map[string]map[string]struct{})}
}

// Mark records nick in target and reports whether it was new
func (p *PresenceTable) Mark(target, nick string) bool {
	target, nick = strings.ToLower(target), strings.ToLower(nick)
	nicks, ok := p.seen[target]
	if !ok {
		nicks = make(map[string]struct{})
		p.seen[target] = nicks
	}
	if _, dup := nicks[nick]; dup {
		return false
	}
	nicks[nick] = struct{}{}
	return true
}

// Members returns the number of nicks recorded for target
func (p *PresenceTable) Members(target string) int {
	return len(p.seen[strings.ToLower(target)])
}
