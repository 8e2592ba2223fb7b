package uci

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"chessgpt-local/logging"
)

// ErrEngineExited is returned when the engine stopped producing output while
// a line was awaited.
var ErrEngineExited = errors.New("uci: engine exited")

// Option is one engine setting applied by Initialize.
type Option struct {
	Name  string
	Value string
}

// Session drives one engine instance: it owns the handle and the queue the
// handle's output is pushed into.
type Session struct {
	handle Handle
	queue  *LineQueue
	logger *log.Logger

	mu      sync.Mutex
	options map[string]string
}

// NewSession wraps h. All of h's output lines are queued from here on.
func NewSession(h Handle, logger *log.Logger) *Session {
	s := &Session{
		handle:  h,
		queue:   NewLineQueue(),
		logger:  logging.OrDiscard(logger),
		options: make(map[string]string),
	}
	h.AddMessageListener(s.queue.Put)
	go func() {
		<-h.Done()
		s.queue.Close()
	}()
	return s
}

// Send forwards a raw protocol command to the engine.
func (s *Session) Send(cmd string) error {
	s.logger.Debug(">>(engine)", "cmd", cmd)
	if err := s.handle.PostMessage(cmd); err != nil {
		return fmt.Errorf("send %q: %w", cmd, err)
	}
	return nil
}

// ReceiveOne waits for the next output line.
func (s *Session) ReceiveOne(ctx context.Context) (string, error) {
	line, err := s.queue.Get(ctx)
	if errors.Is(err, io.EOF) {
		return "", ErrEngineExited
	}
	if err != nil {
		return "", err
	}
	s.logger.Debug("<<(engine)", "line", line)
	return line, nil
}

// ReceiveUntil collects lines until pred holds for the latest one, which is
// included. It does not time out: an engine that never answers blocks the caller.
func (s *Session) ReceiveUntil(ctx context.Context, pred func(line string) bool) ([]string, error) {
	var lines []string
	for {
		line, err := s.ReceiveOne(ctx)
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
		if pred(line) {
			return lines, nil
		}
	}
}

// Initialize runs the uci handshake, applies opts in order and waits until
// the engine is ready.
func (s *Session) Initialize(ctx context.Context, opts []Option) error {
	if err := s.Send("uci"); err != nil {
		return err
	}
	if _, err := s.ReceiveUntil(ctx, equals("uciok")); err != nil {
		return fmt.Errorf("await uciok: %w", err)
	}
	for _, opt := range opts {
		if err := s.Send(fmt.Sprintf("setoption name %s value %s", opt.Name, opt.Value)); err != nil {
			return err
		}
	}
	if err := s.Send("isready"); err != nil {
		return err
	}
	if _, err := s.ReceiveUntil(ctx, equals("readyok")); err != nil {
		return fmt.Errorf("await readyok: %w", err)
	}

	s.mu.Lock()
	for _, opt := range opts {
		s.options[opt.Name] = opt.Value
	}
	s.mu.Unlock()
	return nil
}

// InitializeGame resets the engine for a new game.
func (s *Session) InitializeGame(ctx context.Context) error {
	if err := s.Send("ucinewgame"); err != nil {
		return err
	}
	if err := s.Send("isready"); err != nil {
		return err
	}
	if _, err := s.ReceiveUntil(ctx, equals("readyok")); err != nil {
		return fmt.Errorf("await readyok: %w", err)
	}
	return nil
}

// Option returns the last value applied for name by Initialize.
func (s *Session) Option(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.options[name]
	return v, ok
}

// Close shuts the engine down.
func (s *Session) Close() error {
	return s.handle.Close()
}

func equals(want string) func(string) bool {
	return func(line string) bool { return line == want }
}
