package uci

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"chessgpt-local/game"
	"chessgpt-local/logging"
)

// Dialer creates a new engine handle.
type Dialer func(ctx context.Context) (Handle, error)

// ProcessDialer starts the engine binary at path for every new session.
func ProcessDialer(path string, args ...string) Dialer {
	return func(context.Context) (Handle, error) {
		return StartProcess(path, args...)
	}
}

// Pool holds one lazily created session per player slot, so two engines can
// play each other at different strengths. Sessions live until Close.
type Pool struct {
	dial   Dialer
	logger *log.Logger

	mu       sync.Mutex
	sessions [2]*Session
	// turn serializes protocol exchanges per slot; the queue has a single consumer.
	turn [2]sync.Mutex
}

// NewPool creates an empty pool.
func NewPool(dial Dialer, logger *log.Logger) *Pool {
	return &Pool{dial: dial, logger: logging.OrDiscard(logger)}
}

// Session returns the session for slot, starting an engine on first use.
func (p *Pool) Session(ctx context.Context, slot game.Color) (*Session, error) {
	if slot != game.White && slot != game.Black {
		return nil, fmt.Errorf("invalid player slot %d", slot)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if s := p.sessions[slot]; s != nil {
		return s, nil
	}
	p.logger.Info("creating engine session", "slot", int(slot))
	h, err := p.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("start engine: %w", err)
	}
	s := NewSession(h, p.logger.With("slot", int(slot)))
	p.sessions[slot] = s
	return s, nil
}

// Close shuts down every started engine.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for i, s := range p.sessions {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close engine %d: %w", i, err))
		}
		p.sessions[i] = nil
	}
	return errors.Join(errs...)
}
