package uci

import (
	"strings"
	"sync"
)

// fakeEngine is an in-memory Handle. respond maps a command to the lines the
// engine prints back.
type fakeEngine struct {
	mu        sync.Mutex
	sent      []string
	listeners []func(string)
	done      chan struct{}
	closeOnce sync.Once
	respond   func(cmd string) []string
}

func newFakeEngine(bestmove string) *fakeEngine {
	f := &fakeEngine{done: make(chan struct{})}
	f.respond = func(cmd string) []string {
		switch {
		case cmd == "uci":
			return []string{"id name Fakefish", "option name Skill Level type spin default 20 min 0 max 20", "uciok"}
		case cmd == "isready":
			return []string{"readyok"}
		case strings.HasPrefix(cmd, "go"):
			return []string{"info depth 1 score cp 13", "info depth 2 score cp 20", "bestmove " + bestmove + " ponder e7e5"}
		}
		return nil
	}
	return f
}

func (f *fakeEngine) PostMessage(cmd string) error {
	f.mu.Lock()
	f.sent = append(f.sent, cmd)
	listeners := append([]func(string){}, f.listeners...)
	respond := f.respond
	f.mu.Unlock()
	for _, line := range respond(cmd) {
		for _, fn := range listeners {
			fn(line)
		}
	}
	return nil
}

func (f *fakeEngine) AddMessageListener(fn func(string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *fakeEngine) Done() <-chan struct{} { return f.done }

func (f *fakeEngine) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

func (f *fakeEngine) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.sent...)
}

func (f *fakeEngine) count(cmd string) int {
	n := 0
	for _, c := range f.commands() {
		if c == cmd {
			n++
		}
	}
	return n
}
