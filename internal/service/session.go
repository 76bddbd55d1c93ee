package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
	"github.com/irctelegram/ircbridge/internal/biz/repo"
	"github.com/irctelegram/ircbridge/internal/biz/usecase"
	"github.com/irctelegram/ircbridge/internal/irc"
)

// Options configures a SessionService
type Options struct {
	ServerName     string
	Welcome        string
	ISupport       []string
	NoticePrefix   string
	BatchType      string
	WaitingMessage string
	ParseMode      string
	SendDelay      time.Duration
	Logger         *slog.Logger
}

func (o *Options) fillDefaults() {
	if o.ServerName == "" {
		o.ServerName = "irctelegram.bridge"
	}
	if o.Welcome == "" {
		o.Welcome = "Welcome to Telegram"
	}
	if o.ISupport == nil {
		o.ISupport = []string{"NETWORK=Telegram", "CASEMAPPING=ascii", "CHANTYPES=#&!+", "TPARSEMODE=IRC,HTML,Markdown", "NICKLEN=500"}
	}
	if o.NoticePrefix == "" {
		o.NoticePrefix = "Notice: "
	}
	if o.WaitingMessage == "" {
		o.WaitingMessage = "Waiting for PASS with bot token"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Outcome tells the line server what a dispatched command did
type Outcome struct {
	Visible bool // Output was written or the chat service was called
	Quit    bool
}

type commandHandler func(ctx context.Context, line irc.Line) (quit bool)

// SessionService is the bridge protocol engine for one IRC connection.
// Command dispatch and inbound chat events are serialized by one mutex.
type SessionService struct {
	mu        sync.Mutex
	opts      Options
	out       io.Writer
	connector repo.ChatConnector
	log       *slog.Logger

	state    *domain.Session
	chat     repo.ChatRepo
	delivery *usecase.DeliveryUsecase
	batch    *usecase.BatchUsecase
	presence *usecase.PresenceUsecase
	pumpDone chan struct{}

	// work counts lines written and chat calls made, for Outcome.Visible
	work     int
	handlers map[string]commandHandler
}

// NewSessionService creates a session writing IRC lines to out
func NewSessionService(connector repo.ChatConnector, out io.Writer, opts Options) *SessionService {
	opts.fillDefaults()
	s := &SessionService{
		opts:      opts,
		out:       out,
		connector: connector,
		log:       opts.Logger.With("component", "Session"),
		state:     domain.NewSession(opts.ParseMode, opts.SendDelay),
	}
	s.batch = usecase.NewBatchUsecase(&s.state.Batch, opts.BatchType, s.flushBatch)
	s.presence = usecase.NewPresenceUsecase(s.state.Presence, opts.ServerName)
	s.handlers = s.commandTable()
	return s
}

// Greet writes the line announcing that the bridge waits for credentials
func (s *SessionService) Greet() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitError(s.opts.WaitingMessage)
}

// HandleLine decodes and dispatches one raw inbound line
func (s *SessionService) HandleLine(ctx context.Context, raw string) Outcome {
	line, err := irc.Decode(raw)
	if err != nil {
		s.log.Warn("malformed line", "error", err)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.reply(irc.ErrUnknownCommand, "*", "Malformed line")
		return Outcome{Visible: true}
	}
	return s.Dispatch(ctx, line)
}

// Dispatch routes a decoded command
func (s *SessionService) Dispatch(ctx context.Context, line irc.Line) Outcome {
	if line.Empty() {
		return Outcome{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase == domain.PhaseClosed {
		return Outcome{Quit: true}
	}

	before := s.work
	handler, ok := s.handlers[strings.ToUpper(line.Command)]
	if !ok {
		handler = s.handleUnknown
	}
	s.log.Debug("command", "cmd", line.Command, "args", len(line.Args))
	quit := handler(ctx, line)
	return Outcome{Visible: s.work != before, Quit: quit}
}

// SendDelay returns the inter-send delay currently in effect
func (s *SessionService) SendDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SendDelay
}

// Phase returns the connection phase
func (s *SessionService) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Phase
}

// Fatal writes a terminal error line such as "Interrupted"
func (s *SessionService) Fatal(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase == domain.PhaseClosed {
		return
	}
	s.emitError(reason)
}

// Shutdown flushes any open batch, releases the chat client and waits
// for the inbound event pump to exit
func (s *SessionService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Phase == domain.PhaseClosed && s.chat == nil {
		s.mu.Unlock()
		return nil
	}
	// Flushing must not be cut short by the caller's cancellation
	if err := s.batch.End(context.WithoutCancel(ctx)); err != nil {
		s.reportDeliveryError(err)
	}
	s.state.Phase = domain.PhaseClosed
	chat, pumpDone := s.chat, s.pumpDone
	s.chat = nil
	s.mu.Unlock()

	if chat == nil {
		return nil
	}
	err := chat.Close()
	if pumpDone != nil {
		select {
		case <-pumpDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.log.Info("session closed")
	return err
}

// emit writes one encoded line. Callers hold s.mu.
func (s *SessionService) emit(line string) {
	s.work++
	if _, err := io.WriteString(s.out, line+"\n"); err != nil {
		s.log.Error("write failed", "error", err)
	}
}

// reject answers a refused command with its numeric
func (s *SessionService) reject(e *domain.ProtocolError) {
	s.log.Debug("command rejected", "error", e)
	args := []string{s.state.Nick()}
	if e.Command != "" {
		args = append(args, e.Command)
	}
	s.reply(e.Numeric, append(args, e.Message)...)
}

// reply writes a line from the bridge's server name
func (s *SessionService) reply(command string, args ...string) {
	s.emit(irc.Encode(s.opts.ServerName, command, args...))
}

// emitError writes an "X :<text>" status line
func (s *SessionService) emitError(text string) {
	s.emit(irc.Encode("", irc.CmdError, text))
}

func (s *SessionService) reportDeliveryError(err error) {
	detail := err.Error()
	var de *domain.DeliveryError
	if errors.As(err, &de) && de.Err != nil {
		detail = de.Err.Error()
	}
	s.log.Warn("delivery failed", "error", err)
	s.emitError("Unable to send message; " + detail)
}

// flushBatch is the Batch Aggregator's send callback. Callers hold s.mu.
func (s *SessionService) flushBatch(ctx context.Context, chatID, text string) error {
	if s.delivery == nil {
		return repo.ErrNotConnected
	}
	s.work++
	s.log.Debug("batch flushed", "chat", chatID, "text", text)
	_, err := s.delivery.SendText(ctx, chatID, text, s.state.ParseMode)
	return err
}
