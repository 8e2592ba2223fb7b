package uci

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chessgpt-local/engine"
	"chessgpt-local/game"
)

const (
	// SkillOption is the engine option carrying the strength level.
	SkillOption   = "Skill Level"
	threadsOption = "Threads"

	DefaultThreads  = 2
	DefaultMoveTime = 1000 * time.Millisecond
)

// ErrNoBestMove is returned when the bestmove line carries no move token.
var ErrNoBestMove = errors.New("uci: no best move in engine output")

// ErrIllegalEngineMove means the engine answered with a move the rules reject.
// A conformant engine never does this; it is not retried.
var ErrIllegalEngineMove = errors.New("uci: engine returned an illegal move")

// ParseBestMove parses a compact move token: "e2e4" or "e7e8q".
func ParseBestMove(token string) (game.Move, error) {
	if len(token) != 4 && len(token) != 5 {
		return game.Move{}, fmt.Errorf("%w: %q", ErrNoBestMove, token)
	}
	m := game.Move{From: token[0:2], To: token[2:4]}
	if len(token) == 5 {
		m.Promotion = token[4:5]
	}
	return m, nil
}

// bestMoveToken extracts the move from the last line of a search ("bestmove e2e4 ponder e7e5").
func bestMoveToken(lines []string) (string, error) {
	if len(lines) == 0 {
		return "", ErrNoBestMove
	}
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) < 2 || fields[1] == "(none)" {
		return "", ErrNoBestMove
	}
	return fields[1], nil
}

// Source asks an engine session for its best move at a given strength.
type Source struct {
	Pool     *Pool
	Slot     game.Color
	Level    int
	Threads  int
	MoveTime time.Duration
}

var _ engine.Source = (*Source)(nil)

// NextMove runs the position/go exchange and validates the answer against g.
func (s *Source) NextMove(ctx context.Context, g *game.Game) (game.Move, error) {
	p := s.Pool
	p.turn[s.Slot].Lock()
	defer p.turn[s.Slot].Unlock()

	session, err := p.Session(ctx, s.Slot)
	if err != nil {
		return game.Move{}, err
	}

	level := strconv.Itoa(s.Level)
	if applied, _ := session.Option(SkillOption); applied != level {
		p.logger.Info("setting engine skill level", "slot", int(s.Slot), "level", level, "was", applied)
		opts := []Option{
			{Name: threadsOption, Value: strconv.Itoa(s.threads())},
			{Name: SkillOption, Value: level},
		}
		if err := session.Initialize(ctx, opts); err != nil {
			return game.Move{}, fmt.Errorf("initialize engine: %w", err)
		}
		if err := session.InitializeGame(ctx); err != nil {
			return game.Move{}, fmt.Errorf("initialize game: %w", err)
		}
	}

	if err := session.Send("position fen " + g.FEN()); err != nil {
		return game.Move{}, err
	}
	if err := session.Send("isready"); err != nil {
		return game.Move{}, err
	}
	if _, err := session.ReceiveUntil(ctx, equals("readyok")); err != nil {
		return game.Move{}, fmt.Errorf("await readyok: %w", err)
	}
	if err := session.Send(fmt.Sprintf("go movetime %d", s.moveTime().Milliseconds())); err != nil {
		return game.Move{}, err
	}
	lines, err := session.ReceiveUntil(ctx, func(line string) bool {
		return strings.HasPrefix(line, "bestmove")
	})
	if err != nil {
		return game.Move{}, fmt.Errorf("await bestmove: %w", err)
	}
	token, err := bestMoveToken(lines)
	if err != nil {
		return game.Move{}, err
	}
	p.logger.Debug("bestmove", "slot", int(s.Slot), "move", token)

	move, err := ParseBestMove(token)
	if err != nil {
		return game.Move{}, err
	}
	played, err := g.Clone().Apply(move)
	if err != nil {
		return game.Move{}, fmt.Errorf("%w: %s (%v)", ErrIllegalEngineMove, token, err)
	}
	return played, nil
}

func (s *Source) threads() int {
	if s.Threads > 0 {
		return s.Threads
	}
	return DefaultThreads
}

func (s *Source) moveTime() time.Duration {
	if s.MoveTime > 0 {
		return s.MoveTime
	}
	return DefaultMoveTime
}
