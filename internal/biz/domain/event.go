package domain

// EventKind discriminates inbound chat-service events
type EventKind int

const (
	EventText EventKind = iota
	EventSticker
	EventInlineQuery
	EventInlineResultChosen
	EventButtonPressed
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventSticker:
		return "sticker"
	case EventInlineQuery:
		return "inline_query"
	case EventInlineResultChosen:
		return "inline_result_chosen"
	case EventButtonPressed:
		return "button_pressed"
	default:
		return "unknown"
	}
}

// Event is one inbound chat-service event.
// Which fields are set depends on Kind:
//   - EventText: Chat, From, Text, ForwardFrom (optional)
//   - EventSticker: Chat, From, StickerID
//   - EventInlineQuery: From, QueryID, Text
//   - EventInlineResultChosen: From, InlineHandle, Text
//   - EventButtonPressed: From, QueryID, Data
type Event struct {
	Kind         EventKind
	Chat         Chat
	From         ChatUser
	ForwardFrom  *ChatUser
	Text         string
	StickerID    string
	QueryID      string
	InlineHandle string
	Data         string
}
