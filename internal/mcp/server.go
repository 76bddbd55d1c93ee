package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
	"github.com/irctelegram/ircbridge/internal/biz/repo"
	"github.com/irctelegram/ircbridge/internal/biz/usecase"
)

// Server exposes one-shot bridge sends as MCP tools
type Server struct {
	server    *sdk.Server
	delivery  *usecase.DeliveryUsecase
	parseMode string
	log       *slog.Logger
}

// NewServer creates the tool server over a connected chat client.
// parseMode is the default markup mode for send_message.
func NewServer(chat repo.ChatRepo, parseMode, version string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		server: sdk.NewServer(&sdk.Implementation{
			Name:    "ircbridge-tools",
			Version: version,
		}, nil),
		delivery:  usecase.NewDeliveryUsecase(chat, log),
		parseMode: parseMode,
		log:       log.With("component", "MCP"),
	}
	s.registerTools()
	return s
}

// Run serves over stdin/stdout until the client disconnects or ctx ends
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "bridge_send_message",
		Description: "Send text to a bridged chat. Targets use the IRC form: #id for groups, +id for channels, &id for private chats, !i:account@handle to edit an inline message.",
	}, s.handleSendMessage)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "bridge_send_sticker",
		Description: "Send a sticker by file id to a bridged chat.",
	}, s.handleSendSticker)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "bridge_translate_markup",
		Description: "Show what a message becomes under a parse mode: the body and the mode handed to the chat service.",
	}, s.handleTranslateMarkup)
}

// SendMessageInput is the input for bridge_send_message
type SendMessageInput struct {
	Target    string `json:"target" jsonschema:"IRC-style target such as #-100123 or &42"`
	Text      string `json:"text" jsonschema:"message text, may contain IRC formatting codes"`
	ParseMode string `json:"parse_mode,omitempty" jsonschema:"IRC, HTML, Markdown or Plain; defaults to the configured mode"`
}

// SendMessageOutput is the output for bridge_send_message
type SendMessageOutput struct {
	MessageID string `json:"message_id"`
}

func (s *Server) handleSendMessage(ctx context.Context, req *sdk.CallToolRequest, in SendMessageInput) (*sdk.CallToolResult, SendMessageOutput, error) {
	if in.Target == "" || in.Text == "" {
		return nil, SendMessageOutput{}, fmt.Errorf("target and text are required")
	}
	mode := s.parseMode
	if in.ParseMode != "" {
		mode = in.ParseMode
	}
	if strings.EqualFold(mode, domain.ParseModePlain) {
		mode = ""
	}

	ref, err := s.delivery.SendToTarget(ctx, in.Target, in.Text, mode)
	if err != nil {
		s.log.Warn("send failed", "target", in.Target, "error", err)
		return nil, SendMessageOutput{}, err
	}
	s.log.Info("message sent", "target", in.Target, "ref", ref)
	return nil, SendMessageOutput{MessageID: ref}, nil
}

// SendStickerInput is the input for bridge_send_sticker
type SendStickerInput struct {
	Target    string `json:"target" jsonschema:"IRC-style target such as #-100123"`
	StickerID string `json:"sticker_id" jsonschema:"sticker file id"`
}

func (s *Server) handleSendSticker(ctx context.Context, req *sdk.CallToolRequest, in SendStickerInput) (*sdk.CallToolResult, SendMessageOutput, error) {
	if in.Target == "" {
		return nil, SendMessageOutput{}, fmt.Errorf("target is required")
	}
	ref, err := s.delivery.SendSticker(ctx, domain.ChatIDFromTarget(in.Target), in.StickerID)
	if err != nil {
		return nil, SendMessageOutput{}, err
	}
	return nil, SendMessageOutput{MessageID: ref}, nil
}

// TranslateInput is the input for bridge_translate_markup
type TranslateInput struct {
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode" jsonschema:"IRC, HTML, Markdown or Plain"`
}

// TranslateOutput is the output for bridge_translate_markup
type TranslateOutput struct {
	Body    string `json:"body"`
	APIMode string `json:"api_mode"`
}

func (s *Server) handleTranslateMarkup(ctx context.Context, req *sdk.CallToolRequest, in TranslateInput) (*sdk.CallToolResult, TranslateOutput, error) {
	mode := in.ParseMode
	if strings.EqualFold(mode, domain.ParseModePlain) {
		mode = ""
	}
	body, apiMode := usecase.Render(mode, in.Text)
	return nil, TranslateOutput{Body: body, APIMode: apiMode}, nil
}
