package shell

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"

	"github.com/ziutek/telnet"
	"go.uber.org/zap"
)

const (
	DefaultPort         = 23
	defaultLoginTimeout = 3 * time.Second

	loginPrompt    = "login: "
	passwordPrompt = "Password: "
)

// Session is one telnet connection to the camera shell. Commands are
// serialized: a write is always followed by a blocking read up to the
// next prompt before another command may be issued.
type Session struct {
	host    string
	dialect Dialect

	mu        sync.Mutex
	conn      *telnet.Conn
	connected bool
}

type sessionOptions struct {
	port           int
	loginTimeout   time.Duration
	commandTimeout time.Duration
}

type SessionOptioner func(o *sessionOptions)

func WithPort(port int) SessionOptioner {
	return func(o *sessionOptions) {
		o.port = port
	}
}

func WithLoginTimeout(d time.Duration) SessionOptioner {
	return func(o *sessionOptions) {
		o.loginTimeout = d
	}
}

// WithCommandTimeout overrides the dialect's per-command read timeout.
func WithCommandTimeout(d time.Duration) SessionOptioner {
	return func(o *sessionOptions) {
		o.commandTimeout = d
	}
}

// Open dials the shell and performs the dialect's login handshake. Any
// failure before the first prompt is a hard ErrConnectionFailure.
func Open(ctx context.Context, host string, dialect Dialect, options ...SessionOptioner) (*Session, error) {
	opts := &sessionOptions{
		port:         DefaultPort,
		loginTimeout: defaultLoginTimeout,
	}
	for _, o := range options {
		o(opts)
	}
	if opts.commandTimeout > 0 {
		dialect.CommandTimeout = opts.commandTimeout
	}

	if err := ctx.Err(); err != nil {
		return nil, custerror.Wrap(custerror.ErrConnectionFailure, "%s: %s", host, err)
	}

	addr := net.JoinHostPort(host, strconv.Itoa(opts.port))
	conn, err := telnet.DialTimeout("tcp", addr, opts.loginTimeout)
	if err != nil {
		logger.SDebug("shell dial failed",
			zap.String("addr", addr),
			zap.Error(err))
		return nil, custerror.Wrap(custerror.ErrConnectionFailure, "dial %s: %s", addr, err)
	}

	s := &Session{
		host:    host,
		dialect: dialect,
		conn:    conn,
	}
	if err := s.login(ctx, opts.loginTimeout); err != nil {
		conn.Close()
		logger.SDebug("shell login failed",
			zap.String("addr", addr),
			zap.String("dialect", dialect.Kind.String()),
			zap.Error(err))
		return nil, custerror.Wrap(custerror.ErrConnectionFailure, "login %s: %s", addr, err)
	}
	s.connected = true

	s.Run(ctx, "stty -echo")
	if dialect.ResetWorkdir {
		s.Run(ctx, "cd /")
	}
	if !s.Connected() {
		return nil, custerror.Wrap(custerror.ErrConnectionFailure, "%s: no prompt after login", addr)
	}

	logger.SInfo("shell session opened",
		zap.String("host", host),
		zap.String("dialect", dialect.Kind.String()))
	return s, nil
}

func (s *Session) login(ctx context.Context, timeout time.Duration) error {
	if _, err := s.readUntil(ctx, timeout, loginPrompt); err != nil {
		return fmt.Errorf("waiting for login prompt: %w", err)
	}
	if err := s.write(ctx, s.dialect.Login+"\n"); err != nil {
		return err
	}
	if s.dialect.AskPassword {
		if _, err := s.readUntil(ctx, timeout, passwordPrompt); err != nil {
			return fmt.Errorf("waiting for password prompt: %w", err)
		}
		if err := s.write(ctx, s.dialect.Password+"\n"); err != nil {
			return err
		}
	}
	if _, err := s.readUntil(ctx, timeout, s.dialect.PromptSuffix); err != nil {
		return fmt.Errorf("waiting for shell prompt: %w", err)
	}
	return nil
}

func (s *Session) Host() string {
	return s.host
}

func (s *Session) Dialect() Dialect {
	return s.dialect
}

// Connected is false once the session was closed or a command lost its
// prompt. Such a session has to be reopened.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Run executes one command and returns its output with the prompt suffix
// stripped from both ends. A timeout yields an empty string.
func (s *Session) Run(ctx context.Context, command string) string {
	return s.RunWithTimeout(ctx, command, s.dialect.CommandTimeout)
}

// RunWithTimeout is Run with a read bound other than the dialect's, for
// commands known to outlast it such as downloads.
func (s *Session) RunWithTimeout(ctx context.Context, command string, timeout time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.exchange(ctx, command+"\n", s.dialect.framing(), 1, timeout)
	if err != nil {
		logger.SDebug("shell command got no prompt",
			zap.String("host", s.host),
			zap.String("command", command),
			zap.Error(err))
		return ""
	}
	return s.trimPrompt(raw)
}

// exchange writes the payload and drains the given number of prompts.
// A failed exchange leaves an unknown amount of output in flight, so the
// session is dropped and must be reopened. Callers hold s.mu.
func (s *Session) exchange(ctx context.Context, payload string, delim string, prompts int, timeout time.Duration) (string, error) {
	if !s.connected {
		return "", custerror.Wrap(custerror.ErrConnectionFailure, "%s: session closed", s.host)
	}
	if err := s.write(ctx, payload); err != nil {
		s.desync(err)
		return "", err
	}
	var sb strings.Builder
	for i := 0; i < prompts; i++ {
		chunk, err := s.readUntil(ctx, timeout, delim)
		sb.WriteString(chunk)
		if err != nil {
			s.desync(err)
			return sb.String(), err
		}
	}
	return sb.String(), nil
}

// desync closes a session whose framing can no longer be trusted.
// Callers hold s.mu.
func (s *Session) desync(cause error) {
	if !s.connected {
		return
	}
	s.connected = false
	s.conn.Close()
	logger.SWarn("shell session lost prompt framing, closing",
		zap.String("host", s.host),
		zap.Error(cause))
}

func (s *Session) trimPrompt(raw string) string {
	suffix := s.dialect.PromptSuffix
	out := strings.TrimSuffix(raw, suffix)
	out = strings.TrimSuffix(out, "\r\n")
	out = strings.TrimPrefix(out, suffix)
	return out
}

func (s *Session) write(ctx context.Context, payload string) error {
	s.conn.SetWriteDeadline(s.deadline(ctx, s.dialect.CommandTimeout))
	if _, err := s.conn.Write([]byte(payload)); err != nil {
		return custerror.Wrap(custerror.ErrConnectionFailure, "write: %s", err)
	}
	return nil
}

func (s *Session) readUntil(ctx context.Context, timeout time.Duration, delim string) (string, error) {
	s.conn.SetReadDeadline(s.deadline(ctx, timeout))
	data, err := s.conn.ReadUntil(delim)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return string(data), custerror.Wrap(custerror.ErrCommandTimeout, "waiting for %q", delim)
		}
		return string(data), err
	}
	return string(data), nil
}

func (s *Session) deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil
	}
	s.connected = false
	logger.SDebug("shell session closed", zap.String("host", s.host))
	return s.conn.Close()
}
