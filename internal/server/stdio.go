package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/irctelegram/ircbridge/internal/service"
)

const (
	maxLineBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// LineServer feeds a line stream into the session and paces visible work
type LineServer struct {
	session *service.SessionService
	in      io.Reader
	log     *slog.Logger
}

// NewLineServer creates a server reading IRC lines from in
func NewLineServer(session *service.SessionService, in io.Reader, log *slog.Logger) *LineServer {
	if log == nil {
		log = slog.Default()
	}
	return &LineServer{
		session: session,
		in:      in,
		log:     log.With("component", "Server"),
	}
}

type readResult struct {
	line string
	err  error
	eof  bool
}

// Run serves until QUIT, end of input, a read error or ctx cancellation.
// Every exit path flushes the open batch and releases the chat client.
func (srv *LineServer) Run(ctx context.Context) error {
	srv.session.Greet()

	stop := make(chan struct{})
	defer close(stop)
	lines := srv.readLines(stop)

	for {
		select {
		case <-ctx.Done():
			srv.log.Info("interrupted")
			srv.session.Fatal("Interrupted")
			return srv.shutdown(ctx, nil)

		case r := <-lines:
			switch {
			case r.err != nil:
				srv.log.Error("read failed", "error", r.err)
				srv.session.Fatal("Error")
				return srv.shutdown(ctx, r.err)
			case r.eof:
				srv.log.Info("input closed")
				return srv.shutdown(ctx, nil)
			}

			out, err := srv.dispatch(ctx, r.line)
			if err != nil {
				srv.log.Error("command failed", "error", err)
				srv.session.Fatal("Error")
				return srv.shutdown(ctx, err)
			}
			if out.Quit {
				return srv.shutdown(ctx, nil)
			}
			if out.Visible {
				sleep(ctx, srv.session.SendDelay())
			}
		}
	}
}

// readLines scans the input on its own goroutine so cancellation is not
// blocked by a pending read
func (srv *LineServer) readLines(stop <-chan struct{}) <-chan readResult {
	ch := make(chan readResult)
	go func() {
		scanner := bufio.NewScanner(srv.in)
		scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
		for scanner.Scan() {
			select {
			case ch <- readResult{line: scanner.Text()}:
			case <-stop:
				return
			}
		}
		final := readResult{eof: true}
		if err := scanner.Err(); err != nil {
			final = readResult{err: err}
		}
		select {
		case ch <- final:
		case <-stop:
		}
	}()
	return ch
}

// dispatch runs one line, converting a panic into an error
func (srv *LineServer) dispatch(ctx context.Context, raw string) (out service.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic handling line: %v", r)
		}
	}()
	return srv.session.HandleLine(ctx, raw), nil
}

func (srv *LineServer) shutdown(ctx context.Context, cause error) error {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.session.Shutdown(sctx); err != nil {
		srv.log.Warn("shutdown incomplete", "error", err)
	}
	return cause
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
