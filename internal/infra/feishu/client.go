// Package feishu wraps the Feishu (Lark) open platform SDK.
package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
)

// Message represents a received Feishu message
type Message struct {
	ChatID     string
	MsgID      string
	MsgType    string // text, post, sticker
	ChatType   string // p2p (private), group
	Content    string // Text content (extracted from text and post messages)
	StickerKey string // file_key of a sticker message
	Sender     *Sender
}

// Sender represents the message sender
type Sender struct {
	OpenID     string
	SenderType string // user, app
	Name       string // Resolved from the chat member list, may be empty
}

// ChatMember represents a member in a chat
type ChatMember struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
}

// PostElement is one inline element of a post paragraph
type PostElement struct {
	Tag   string   `json:"tag"` // text, md
	Text  string   `json:"text"`
	Style []string `json:"style,omitempty"`
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	log       *slog.Logger

	mu    sync.Mutex
	names map[string]map[string]string // chatID -> open_id -> name
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		log:       log.With("component", "Feishu"),
		names:     make(map[string]map[string]string),
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// Start connects via WebSocket and blocks while receiving events.
// The SDK never returns after a successful connect, even when ctx is done.
func (c *Client) Start(ctx context.Context) error {
	// Must return quickly so the SDK can ACK, otherwise Feishu redelivers
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelWarn),
	)

	c.log.Info("starting websocket connection")
	return c.wsCli.Start(ctx)
}

// handleMessage converts an incoming event and hands it to the handler
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	if event.Event == nil || event.Event.Message == nil {
		return
	}
	rawMsg := event.Event.Message

	// Skip the bot's own messages
	if event.Event.Sender != nil && derefString(event.Event.Sender.SenderType) == "app" {
		return
	}

	msg := &Message{
		ChatID:   derefString(rawMsg.ChatId),
		MsgID:    derefString(rawMsg.MessageId),
		MsgType:  derefString(rawMsg.MessageType),
		ChatType: derefString(rawMsg.ChatType),
		Sender:   &Sender{},
	}
	if s := event.Event.Sender; s != nil {
		if s.SenderId != nil {
			msg.Sender.OpenID = derefString(s.SenderId.OpenId)
		}
		msg.Sender.SenderType = derefString(s.SenderType)
	}

	mentions := make(map[string]string)
	for _, m := range rawMsg.Mentions {
		if m.Key != nil && m.Name != nil {
			mentions[*m.Key] = *m.Name
		}
	}

	content := derefString(rawMsg.Content)
	switch msg.MsgType {
	case "text":
		msg.Content = ParseTextContent(content, mentions)
	case "post":
		msg.Content = ParsePostContent(content, mentions)
	case "sticker":
		msg.StickerKey = parseFileKey(content)
	default:
		c.log.Debug("unsupported message type", "type", msg.MsgType, "chat", msg.ChatID)
		return
	}

	if msg.ChatType == "group" {
		msg.Sender.Name = c.ResolveName(context.Background(), msg.ChatID, msg.Sender.OpenID)
	}

	c.log.Debug("received", "type", msg.MsgType, "chat_type", msg.ChatType, "chat", msg.ChatID)
	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// ParseTextContent extracts text from a text message, replacing
// mention placeholders (@_user_1) with real names
func ParseTextContent(content string, mentions map[string]string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return replaceMentions(parsed.Text, mentions)
}

// ParsePostContent flattens a rich text message to lines of text
func ParsePostContent(content string, mentions map[string]string) string {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag    string `json:"tag"`
			Text   string `json:"text,omitempty"`
			UserID string `json:"user_id,omitempty"`
			Href   string `json:"href,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}

	var lines []string
	if parsed.Title != "" {
		lines = append(lines, parsed.Title)
	}
	for _, para := range parsed.Content {
		var b strings.Builder
		for _, elem := range para {
			switch elem.Tag {
			case "text", "md":
				b.WriteString(elem.Text)
			case "a":
				b.WriteString(elem.Text)
				if elem.Href != "" && elem.Href != elem.Text {
					b.WriteString(" (" + elem.Href + ")")
				}
			case "at":
				if name, ok := mentions[elem.UserID]; ok {
					b.WriteString("@" + name)
				} else if elem.UserID != "" {
					b.WriteString("@" + elem.UserID)
				}
			}
		}
		if b.Len() > 0 {
			lines = append(lines, b.String())
		}
	}
	return replaceMentions(strings.Join(lines, "\n"), mentions)
}

func parseFileKey(content string) string {
	var parsed struct {
		FileKey string `json:"file_key"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return parsed.FileKey
}

// replaceMentions replaces mention placeholders with real names
func replaceMentions(text string, mentions map[string]string) string {
	for key, name := range mentions {
		text = strings.ReplaceAll(text, key, "@"+name)
	}
	return text
}

// SendText sends a text message to a chat and returns its message id
func (c *Client) SendText(ctx context.Context, chatID, text string) (string, error) {
	contentJSON, _ := json.Marshal(map[string]string{"text": text})
	return c.create(ctx, chatID, larkim.MsgTypeText, string(contentJSON))
}

// SendPost sends a rich text (post) message built from paragraphs
func (c *Client) SendPost(ctx context.Context, chatID string, paragraphs [][]PostElement) (string, error) {
	contentJSON, err := PostContent(paragraphs)
	if err != nil {
		return "", err
	}
	return c.create(ctx, chatID, larkim.MsgTypePost, contentJSON)
}

// SendSticker sends a sticker by file key
func (c *Client) SendSticker(ctx context.Context, chatID, fileKey string) (string, error) {
	contentJSON, _ := json.Marshal(map[string]string{"file_key": fileKey})
	return c.create(ctx, chatID, "sticker", string(contentJSON))
}

// UpdateText replaces the content of a message the bot sent with text
func (c *Client) UpdateText(ctx context.Context, messageID, text string) error {
	contentJSON, _ := json.Marshal(map[string]string{"text": text})
	return c.update(ctx, messageID, larkim.MsgTypeText, string(contentJSON))
}

// UpdatePost replaces the content of a message the bot sent with a post
func (c *Client) UpdatePost(ctx context.Context, messageID string, paragraphs [][]PostElement) error {
	contentJSON, err := PostContent(paragraphs)
	if err != nil {
		return err
	}
	return c.update(ctx, messageID, larkim.MsgTypePost, contentJSON)
}

func (c *Client) update(ctx context.Context, messageID, msgType, content string) error {
	req := larkim.NewUpdateMessageReqBuilder().
		MessageId(messageID).
		Body(larkim.NewUpdateMessageReqBodyBuilder().
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Update(ctx, req)
	if err != nil {
		return fmt.Errorf("update message failed: %w", err)
	}
	if !resp.Success() {
		return &APIError{Code: resp.Code, Msg: resp.Msg}
	}
	return nil
}

func (c *Client) create(ctx context.Context, chatID, msgType, content string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("send %s failed: %w", msgType, err)
	}
	if !resp.Success() {
		return "", &APIError{Code: resp.Code, Msg: resp.Msg}
	}

	c.log.Debug("sent", "type", msgType, "chat", chatID)
	if resp.Data != nil {
		return derefString(resp.Data.MessageId), nil
	}
	return "", nil
}

// PostContent encodes paragraphs as post message content
func PostContent(paragraphs [][]PostElement) (string, error) {
	post := map[string]interface{}{
		"zh_cn": map[string]interface{}{
			"title":   "",
			"content": paragraphs,
		},
	}
	b, err := json.Marshal(post)
	if err != nil {
		return "", fmt.Errorf("encode post: %w", err)
	}
	return string(b), nil
}

// ResolveName returns the display name of a chat member, cached per chat
func (c *Client) ResolveName(ctx context.Context, chatID, openID string) string {
	c.mu.Lock()
	names, ok := c.names[chatID]
	c.mu.Unlock()
	if ok {
		return names[openID]
	}

	members, err := c.GetChatMembers(ctx, chatID)
	if err != nil {
		c.log.Warn("member lookup failed", "chat", chatID, "error", err)
		return ""
	}
	names = make(map[string]string, len(members))
	for _, m := range members {
		names[m.MemberID] = m.Name
	}
	c.mu.Lock()
	c.names[chatID] = names
	c.mu.Unlock()
	return names[openID]
}

// GetChatMembers retrieves all members of a chat, following pagination
func (c *Client) GetChatMembers(ctx context.Context, chatID string) ([]*ChatMember, error) {
	var members []*ChatMember
	var pageToken string

	for {
		reqBuilder := larkim.NewGetChatMembersReqBuilder().
			MemberIdType("open_id").
			ChatId(chatID).
			PageSize(100)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.ChatMembers.Get(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("get chat members failed: %w", err)
		}
		if !resp.Success() {
			return nil, &APIError{Code: resp.Code, Msg: resp.Msg}
		}

		for _, item := range resp.Data.Items {
			members = append(members, &ChatMember{
				MemberID: derefString(item.MemberId),
				Name:     derefString(item.Name),
			})
		}

		if resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}
	return members, nil
}

// APIError is a non-success response from the open platform
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feishu api error %d: %s", e.Code, e.Msg)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
