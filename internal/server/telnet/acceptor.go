// Package telnet provides the line-oriented transport for the roll
// server: a TCP acceptor, a Telnet-aware connection wrapper that
// filters IAC sequences, and ANSI helpers for colored output.
package telnet

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/r2/internal/config"
)

// SessionHandler handles a single client session. The handler owns the
// connection for the duration of the call; the acceptor closes it when
// the handler returns.
type SessionHandler interface {
	Handle(conn *Conn, sessionID string)
}

// SessionHandlerFunc adapts a function to the SessionHandler interface.
type SessionHandlerFunc func(conn *Conn, sessionID string)

func (f SessionHandlerFunc) Handle(conn *Conn, sessionID string) { f(conn, sessionID) }

// Acceptor listens for TCP connections and dispatches each accepted
// connection to a SessionHandler on its own goroutine.
type Acceptor struct {
	cfg     config.ServerConfig
	handler SessionHandler
	logger  *zap.Logger
	newID   func() string

	mu       sync.Mutex
	listener net.Listener
	running  bool
	stopped  bool
	wg       sync.WaitGroup
}

// NewAcceptor creates an Acceptor for the given configuration.
//
// Precondition: handler must not be nil; newID must not be nil.
// Postcondition: Returns an Acceptor ready for ListenAndServe.
func NewAcceptor(cfg config.ServerConfig, handler SessionHandler, newID func() string, logger *zap.Logger) *Acceptor {
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		newID:   newID,
	}
}

// ListenAndServe binds the configured address and accepts connections
// until Stop is called. It blocks until the listener is closed. When
// Stop was already called it returns nil without listening.
//
// Postcondition: Returns nil after Stop, or the bind error.
func (a *Acceptor) ListenAndServe() error {
	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("telnet: listen on %s: %w", a.cfg.Addr(), err)
	}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		_ = listener.Close()
		return nil
	}
	a.listener = listener
	a.running = true
	a.mu.Unlock()

	a.logger.Info("telnet acceptor listening", zap.String("addr", listener.Addr().String()))

	for {
		raw, err := listener.Accept()
		if err != nil {
			if !a.IsRunning() {
				break
			}
			a.logger.Warn("accept failed", zap.Error(err))
			continue
		}

		a.wg.Add(1)
		go a.handleConn(raw)
	}

	a.wg.Wait()
	return nil
}

func (a *Acceptor) handleConn(raw net.Conn) {
	defer a.wg.Done()

	sessionID := a.newID()
	conn := NewConn(raw, a.cfg.ReadTimeout, a.cfg.WriteTimeout)
	defer conn.Close()

	a.logger.Info("session opened",
		zap.String("session_id", sessionID),
		zap.String("remote", conn.RemoteAddr()))

	if err := conn.Negotiate(); err != nil {
		a.logger.Warn("telnet negotiation failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}

	a.handler.Handle(conn, sessionID)

	a.logger.Info("session closed", zap.String("session_id", sessionID))
}

// Stop closes the listener and waits for in-flight sessions to finish.
// Sessions end when their clients disconnect or time out; Stop does not
// sever live connections. Stopping before ListenAndServe prevents it
// from ever serving.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.running = false
	listener := a.listener
	a.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
	}
	a.wg.Wait()
}

// Addr returns the bound listener address, or empty before ListenAndServe.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// IsRunning reports whether the acceptor is accepting connections.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
