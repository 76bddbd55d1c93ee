package usecase

import (
	"github.com/irctelegram/ircbridge/internal/biz/domain"
	"github.com/irctelegram/ircbridge/internal/irc"
)

// PresenceUsecase announces chat users with synthetic JOIN lines
type PresenceUsecase struct {
	table      *domain.PresenceTable
	serverName string
}

// NewPresenceUsecase creates a new presence usecase
func NewPresenceUsecase(table *domain.PresenceTable, serverName string) *PresenceUsecase {
	return &PresenceUsecase{table: table, serverName: serverName}
}

// See returns the JOIN line for id in target the first time id is seen there.
// With extendedJoin the line carries the account ("*" without a username)
// and the real name.
func (uc *PresenceUsecase) See(id domain.Identity, target string, extendedJoin bool) (string, bool) {
	if !uc.table.Mark(target, id.Nick) {
		return "", false
	}
	prefix := id.FullAddress(uc.serverName)
	if !extendedJoin {
		return irc.Encode(prefix, irc.CmdJoin, target), true
	}
	account := id.Username
	if account == "" {
		account = "*"
	} else {
		account = domain.SafeName(account)
	}
	return irc.Encode(prefix, irc.CmdJoin, target, account, id.RealName()), true
}
