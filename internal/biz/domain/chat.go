package domain

import "strings"

// ChatType represents the kind of chat-service conversation
type ChatType string

const (
	ChatTypePrivate    ChatType = "private"
	ChatTypeGroup      ChatType = "group"
	ChatTypeSupergroup ChatType = "supergroup"
	ChatTypeChannel    ChatType = "channel"
)

// ParseChatType maps a backend chat type name onto ChatType.
// Feishu's "p2p" is a private chat.
func ParseChatType(s string) ChatType {
	switch strings.ToLower(s) {
	case "group":
		return ChatTypeGroup
	case "supergroup":
		return ChatTypeSupergroup
	case "channel":
		return ChatTypeChannel
	default:
		return ChatTypePrivate
	}
}

// Chat describes a chat-service conversation (value object)
type Chat struct {
	ID    string
	Type  ChatType
	Title string
}

// ChatUser describes a chat-service user (value object)
type ChatUser struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
}
