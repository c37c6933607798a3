// Package transport accepts TCP clients and turns the lines they send into commands.
//
// Every connection is a session with its own id. The server greets a new client with
// "session <id>", answers every line with "ok" or "error: <reason>", and emits a synthetic leave
// command when the connection closes without the client leaving first.
package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"

	"github.com/argus-labs/tickworld/pkg/config"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	replyOK  = "ok"
	replyBye = "bye"
)

// Server serves line-oriented client sessions.
type Server struct {
	opts     ServerOptions
	logger   zerolog.Logger
	listener net.Listener

	mu    sync.Mutex
	conns map[uuid.UUID]net.Conn // Open connections, closed on shutdown
}

// NewServer creates a server from the environment configuration merged with opts. It does not
// listen until Listen or Serve is called.
func NewServer(opts ServerOptions) (*Server, error) {
	options, err := config.Load("transport", opts)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if options.Logger != nil {
		logger = *options.Logger
	}

	return &Server{
		opts:   options,
		logger: logger,
		conns:  make(map[uuid.UUID]net.Conn),
	}, nil
}

// Listen binds the listen address. Serve calls it if it hasn't been called yet.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.opts.ListenAddr)
	if err != nil {
		return eris.Wrapf(err, "failed to listen on %s", s.opts.ListenAddr)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts clients until ctx is cancelled, then closes every connection and waits for their
// sessions to end. Returns nil after a cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.logger.Info().Str("addr", s.listener.Addr().String()).Msg("transport listening")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		_ = s.listener.Close()
		s.closeAll()
		return nil
	})

	g.Go(func() error {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return eris.Wrap(err, "failed to accept connection")
			}
			g.Go(func() error {
				s.serveConn(ctx, conn)
				return nil
			})
		}
	})

	return g.Wait()
}

// serveConn runs one client session until the client leaves, disconnects, or the server stops.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	session := uuid.New()
	logger := s.logger.With().Str("session", session.String()).Logger()

	if !s.track(session, conn) {
		_ = conn.Close()
		return
	}
	defer s.untrack(session)

	logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("client connected")

	w := bufio.NewWriter(conn)
	reply := func(line string) bool {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return false
		}
		return w.Flush() == nil
	}

	left := false
	defer func() {
		if !left {
			if err := s.opts.Handler(Command{Session: session, Op: OpLeave}); err != nil {
				logger.Warn().Err(err).Msg("synthetic leave failed")
			}
		}
		logger.Debug().Bool("left", left).Msg("client disconnected")
	}()

	if !reply("session " + session.String()) {
		return
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, min(s.opts.MaxLineBytes, bufio.MaxScanTokenSize)), s.opts.MaxLineBytes)
	for scanner.Scan() {
		op, args, err := ParseLine(scanner.Bytes())
		if errors.Is(err, ErrEmptyLine) {
			continue
		}
		if err != nil {
			if !reply("error: " + err.Error()) {
				return
			}
			continue
		}

		// The scanner reuses its buffer, so args must be copied before leaving this iteration.
		cmd := Command{Session: session, Op: op, Args: append([]byte(nil), args...)}
		if len(args) == 0 {
			cmd.Args = nil
		}
		if err := s.opts.Handler(cmd); err != nil {
			if !reply("error: " + err.Error()) {
				return
			}
			continue
		}

		if op == OpLeave {
			left = true
			reply(replyBye)
			return
		}
		if !reply(replyOK) {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
		logger.Warn().Err(err).Msg("failed to read from client")
	}
}

// track registers an open connection. Returns false once the server is shutting down.
func (s *Server) track(session uuid.UUID, conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[session] = conn
	return true
}

func (s *Server) untrack(session uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn, ok := s.conns[session]; ok {
		_ = conn.Close()
		delete(s.conns, session)
	}
}

// closeAll closes every open connection and stops tracking new ones.
func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = nil
}
