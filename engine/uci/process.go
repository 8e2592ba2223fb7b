package uci

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Handle is the engine instance a Session drives. Commands go in through
// PostMessage; output lines arrive asynchronously at the registered listeners,
// in the order the engine printed them.
type Handle interface {
	PostMessage(cmd string) error
	AddMessageListener(fn func(line string))
	// Done is closed once the engine stops producing output.
	Done() <-chan struct{}
	Close() error
}

// Process is a Handle backed by an engine subprocess speaking UCI on stdin/stdout.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	mu        sync.Mutex
	listeners []func(string)
	readOnce  sync.Once
	done      chan struct{}
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// StartProcess launches the engine binary. Output is not read until the first
// listener is registered, so nothing printed at startup is lost.
func StartProcess(path string, args ...string) (*Process, error) {
	p := &Process{
		cmd:  exec.Command(path, args...),
		done: make(chan struct{}),
	}

	var err error
	p.stdin, err = p.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	p.stdout = bufio.NewReader(stdout)

	// Discard stderr to prevent blocking
	p.cmd.Stderr = nil

	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine %q: %w", path, err)
	}
	return p, nil
}

// PostMessage writes one command line to the engine.
func (p *Process) PostMessage(cmd string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if _, err := fmt.Fprintf(p.stdin, "%s\n", cmd); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

// AddMessageListener registers fn for every output line and starts reading.
func (p *Process) AddMessageListener(fn func(line string)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
	p.readOnce.Do(func() { go p.readLoop() })
}

// Done is closed when stdout reaches EOF or fails.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

func (p *Process) readLoop() {
	defer close(p.done)
	for {
		line, err := p.stdout.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			p.mu.Lock()
			listeners := append([]func(string){}, p.listeners...)
			p.mu.Unlock()
			for _, fn := range listeners {
				fn(line)
			}
		}
		if err != nil {
			return
		}
	}
}

// Close asks the engine to quit and waits for it to exit. Its output is
// drained first; Wait must not run while stdout is still being read.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.shutdown()
	})
	return p.closeErr
}

func (p *Process) shutdown() error {
	_ = p.PostMessage("quit")
	err := p.stdin.Close()
	if err != nil {
		err = fmt.Errorf("close stdin: %w", err)
	}
	p.readOnce.Do(func() { go p.readLoop() })
	<-p.done
	if werr := p.cmd.Wait(); werr != nil && err == nil {
		err = fmt.Errorf("wait for engine: %w", werr)
	}
	return err
}
