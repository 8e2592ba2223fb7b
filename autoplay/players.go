package autoplay

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"chessgpt-local/engine"
	"chessgpt-local/engine/llm"
	"chessgpt-local/engine/uci"
	"chessgpt-local/game"
)

var (
	errNoEngine  = errors.New("no chess engine configured")
	errNoBackend = errors.New("no language model backend configured (set OPENAI_API_KEY)")
)

// Players builds move sources from descriptors. Engine sources share the
// pool's per-slot sessions; model sources share one backend.
type Players struct {
	Engines  *uci.Pool
	Threads  int
	MoveTime time.Duration

	Backend      llm.Backend
	SystemPrompt string
	UserPrompt   string

	Random *engine.RandomSource
	Logger *log.Logger
}

var _ engine.Resolver = (*Players)(nil)

// Source returns the move source d describes for the given slot.
func (p *Players) Source(d engine.Descriptor, slot game.Color) (engine.Source, error) {
	switch d.Kind {
	case engine.KindRandom:
		if p.Random == nil {
			return engine.NewRandomSource(), nil
		}
		return p.Random, nil
	case engine.KindEngine:
		if p.Engines == nil {
			return nil, errNoEngine
		}
		return &uci.Source{
			Pool:     p.Engines,
			Slot:     slot,
			Level:    d.Level,
			Threads:  p.Threads,
			MoveTime: p.MoveTime,
		}, nil
	case engine.KindLanguageModel:
		if p.Backend == nil {
			return nil, errNoBackend
		}
		src := llm.NewSource(p.Backend, d, p.Logger)
		if p.SystemPrompt != "" {
			src.SystemPrompt = p.SystemPrompt
		}
		if p.UserPrompt != "" {
			src.UserPrompt = p.UserPrompt
		}
		return src, nil
	}
	return nil, fmt.Errorf("unsupported source %s", d)
}
