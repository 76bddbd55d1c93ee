package irc

// Command names understood by the bridge.
const (
	CmdPass    = "PASS"
	CmdNick    = "NICK"
	CmdUser    = "USER"
	CmdTDelay  = "TDELAY"
	CmdTParse  = "TPARSEMODE"
	CmdBatch   = "BATCH"
	CmdPrivmsg = "PRIVMSG"
	CmdNotice  = "NOTICE"
	CmdPing    = "PING"
	CmdPong    = "PONG"
	CmdCap     = "CAP"
	CmdQuit    = "QUIT"
	CmdJoin    = "JOIN"
	CmdPart    = "PART"
	CmdMode    = "MODE"
	CmdWho     = "WHO"
	CmdError   = "X"
)

// Numeric replies.
const (
	RplWelcome        = "001"
	RplISupport       = "005"
	RplParseMode      = "300"
	RplSendDelay      = "301"
	ErrInvalidCapCmd  = "410"
	ErrUnknownCommand = "421"
	ErrNoMOTD         = "422"
	ErrNotRegistered  = "451"
	ErrNeedMoreParams = "461"
)

// CTCPDelim frames CTCP payloads such as ACTION.
const CTCPDelim = "\x01"
