// Package autoplay drives a game between two move sources: it asks the side
// to move for a move, applies it, retries sources that answered with nothing
// usable, and hands finished games to an experiment director.
package autoplay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"chessgpt-local/engine"
	"chessgpt-local/game"
	"chessgpt-local/logging"
	"chessgpt-local/types"
)

// State is the autoplay loop state.
type State int

const (
	Idle State = iota
	Active
	AwaitingRetry
)

func (s State) String() string {
	switch s {
	case Active:
		return "Active"
	case AwaitingRetry:
		return "AwaitingRetry"
	}
	return "Idle"
}

const (
	// DefaultDelay is the pause between two loop iterations.
	DefaultDelay = 200 * time.Millisecond

	// FirstMoveRetryLimit applies while no move has been played; an empty
	// movetext makes invalid answers more likely.
	FirstMoveRetryLimit = 10
	RetryLimit          = 3
)

// Status messages shown to the user.
const (
	StatusGameOver       = "Game is over. Reset board to play again."
	StatusInvalidPGN     = "Invalid PGN provided"
	StatusExperimentsEnd = "All experiments completed."
)

// Director supplies the pairings of an experiment run and collects its results.
type Director interface {
	// Select returns the pair that should play the next move of g.
	// ok is false when every plan is complete.
	Select(g *game.Game) (pair engine.Pair, ok bool)
	// Record stores the finished game g. It returns false when no plan remains.
	Record(g *game.Game) (more bool)
}

// Snapshot is a consistent copy of the orchestrator state.
type Snapshot struct {
	State       State
	Players     engine.Pair
	Retries     int
	Status      string
	Experiments bool
	// GameID changes whenever the board is reset or a game is loaded.
	GameID  uint64
	History []string
	Board   *types.BoardState
}

// Orchestrator owns the game and runs turns against it.
type Orchestrator struct {
	resolver engine.Resolver
	logger   *log.Logger
	delay    time.Duration

	// turn serializes turn attempts from the loop and from manual requests.
	turn sync.Mutex

	mu         sync.Mutex
	game       *game.Game
	players    engine.Pair
	state      State
	retries    int
	status     string
	generation uint64
	gameID     uint64
	director   Director
	looping    bool

	moveCallbacks   []func(color game.Color, move game.Move, state *types.BoardState)
	endCallbacks    []func(outcome string, winner game.Winner)
	statusCallbacks []func(status string)
}

// New creates an idle orchestrator at the starting position.
func New(resolver engine.Resolver, players engine.Pair, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		resolver: resolver,
		logger:   logging.OrDiscard(logger),
		delay:    DefaultDelay,
		game:     game.New(),
		players:  players,
	}
}

// SetDelay changes the pause between loop iterations.
func (o *Orchestrator) SetDelay(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delay = d
}

// OnMove registers a callback for every applied move. state is a copy.
// Callbacks accumulate and run in registration order.
func (o *Orchestrator) OnMove(fn func(color game.Color, move game.Move, state *types.BoardState)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.moveCallbacks = append(o.moveCallbacks, fn)
}

// OnGameEnd registers a callback for when a move ends the game.
func (o *Orchestrator) OnGameEnd(fn func(outcome string, winner game.Winner)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.endCallbacks = append(o.endCallbacks, fn)
}

// OnStatus registers a callback for status changes, including resets and loads.
func (o *Orchestrator) OnStatus(fn func(status string)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statusCallbacks = append(o.statusCallbacks, fn)
}

// event carries notifications out of the lock.
type event struct {
	moved  bool
	color  game.Color
	move   game.Move
	board  *types.BoardState
	ended  bool
	result game.Winner
	status *string
}

// publish runs the callbacks for ev. Must be called without o.mu held.
func (o *Orchestrator) publish(ev event) {
	o.mu.Lock()
	onMove, onEnd, onStatus := o.moveCallbacks, o.endCallbacks, o.statusCallbacks
	o.mu.Unlock()

	if ev.moved {
		for _, fn := range onMove {
			fn(ev.color, ev.move, ev.board)
		}
	}
	if ev.ended {
		for _, fn := range onEnd {
			fn(ev.board.Outcome, ev.result)
		}
	}
	if ev.status != nil {
		for _, fn := range onStatus {
			fn(*ev.status)
		}
	}
}

func (o *Orchestrator) setStatusLocked(ev *event, status string) {
	o.status = status
	ev.status = &status
}

// haltLocked stops autoplay. The next run starts with a fresh retry budget.
func (o *Orchestrator) haltLocked(ev *event, status string) {
	o.state = Idle
	o.retries = 0
	o.setStatusLocked(ev, status)
	o.logger.Info("autoplay stopped", "reason", status)
}

// Start begins autoplay. The loop runs until the orchestrator halts or ctx ends.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	if o.state == Idle {
		o.state = Active
	}
	if o.looping {
		o.mu.Unlock()
		return
	}
	o.looping = true
	o.mu.Unlock()

	o.logger.Info("autoplay started")
	go o.run(ctx)
}

// Stop halts autoplay at the top of the next iteration. A request already in
// flight is not interrupted and its move is still applied.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Idle
	o.retries = 0
}

// Running returns true while autoplay is enabled.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state != Idle
}

func (o *Orchestrator) run(ctx context.Context) {
	for {
		o.mu.Lock()
		delay := o.delay
		o.mu.Unlock()

		select {
		case <-ctx.Done():
			o.mu.Lock()
			o.looping = false
			o.state = Idle
			o.mu.Unlock()
			return
		case <-time.After(delay):
		}

		if o.Step(ctx) {
			continue
		}
		// Start may have re-enabled autoplay while Step was returning.
		o.mu.Lock()
		if o.state == Idle {
			o.looping = false
			o.mu.Unlock()
			return
		}
		o.mu.Unlock()
	}
}

// Step runs one loop iteration and reports whether the loop should continue.
func (o *Orchestrator) Step(ctx context.Context) bool {
	o.turn.Lock()
	defer o.turn.Unlock()

	var ev event
	defer func() { o.publish(ev) }()

	o.mu.Lock()
	if o.state == Idle {
		o.mu.Unlock()
		return false
	}

	if o.game.Over() {
		defer o.mu.Unlock()
		if o.director == nil {
			o.haltLocked(&ev, StatusGameOver)
			return false
		}
		if !o.director.Record(o.game.Clone()) {
			o.director = nil
			o.haltLocked(&ev, StatusExperimentsEnd)
			return false
		}
		o.resetLocked(&ev)
		return true
	}

	if o.director != nil {
		pair, ok := o.director.Select(o.game)
		if !ok {
			o.director = nil
			o.haltLocked(&ev, StatusExperimentsEnd)
			o.mu.Unlock()
			return false
		}
		if pair != o.players {
			o.logger.Info("switching players", "white", pair.White, "black", pair.Black)
			o.players = pair
			o.mu.Unlock()
			return true
		}
	}

	limit := RetryLimit
	if o.game.HistoryLen() == 0 {
		limit = FirstMoveRetryLimit
	}
	slot := o.game.Turn()
	desc := o.players.For(slot)
	position := o.game.Clone()
	gen := o.generation
	o.mu.Unlock()

	move, err := o.request(ctx, desc, slot, position)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		o.logger.Info("discarding move for replaced game", "source", desc)
		return o.state != Idle
	}

	switch {
	case errors.Is(err, engine.ErrNoMove) && o.state == Idle:
		// Stopped while the request was in flight.
		return false
	case errors.Is(err, engine.ErrNoMove):
		o.retries++
		o.logger.Warn("invalid move, retrying", "source", desc, "retries", o.retries, "limit", limit)
		if o.retries < limit {
			if o.state == Active {
				o.state = AwaitingRetry
			}
			o.setStatusLocked(&ev, fmt.Sprintf("Retrying...%d", o.retries))
			return o.state != Idle
		}
		o.haltLocked(&ev, fmt.Sprintf("No/invalid move found by model (%s) after %d retries. AutoPlay stopped.", desc.Label(), o.retries))
		return false
	case err != nil:
		o.logger.Error("move request failed", "source", desc, "err", err)
		o.haltLocked(&ev, fmt.Sprintf("%s failed: %v. AutoPlay stopped.", desc.Label(), err))
		return false
	}

	if err := o.applyLocked(&ev, slot, move); err != nil {
		o.logger.Error("move rejected", "source", desc, "move", move.UCI(), "err", err)
		o.haltLocked(&ev, fmt.Sprintf("%s played an illegal move (%s). AutoPlay stopped.", desc.Label(), move.UCI()))
		return false
	}
	o.retries = 0
	if o.state == AwaitingRetry {
		o.state = Active
	}
	o.setStatusLocked(&ev, suggestion(desc, ev.move))
	return o.state != Idle
}

func (o *Orchestrator) request(ctx context.Context, desc engine.Descriptor, slot game.Color, position *game.Game) (game.Move, error) {
	src, err := o.resolver.Source(desc, slot)
	if err != nil {
		return game.Move{}, err
	}
	o.logger.Debug("requesting move", "source", desc, "color", slot, "fen", position.FEN())
	return src.NextMove(ctx, position)
}

// applyLocked plays move and fills ev. Must be called with o.mu held.
func (o *Orchestrator) applyLocked(ev *event, color game.Color, move game.Move) error {
	played, err := o.game.Apply(move)
	if err != nil {
		return err
	}
	o.logger.Info("move", "color", color, "san", played.SAN, "uci", played.UCI())
	ev.moved = true
	ev.color = color
	ev.move = played
	ev.board = o.game.State()
	if o.game.Over() {
		ev.ended = true
		ev.result = o.game.Winner()
		o.logger.Info("game over", "outcome", ev.board.Outcome, "winner", ev.result)
	}
	return nil
}

func suggestion(desc engine.Descriptor, move game.Move) string {
	switch desc.Kind {
	case engine.KindEngine:
		return fmt.Sprintf("Stockfish model suggests move: %s.", move.To)
	case engine.KindRandom:
		return fmt.Sprintf("Random move: %s.", move.To)
	}
	return fmt.Sprintf("Model suggests move: %s.", move.SAN)
}

// ForceMove asks the side to move's source for one move, without retries.
// It does not change the autoplay state.
func (o *Orchestrator) ForceMove(ctx context.Context) error {
	o.turn.Lock()
	defer o.turn.Unlock()

	var ev event
	defer func() { o.publish(ev) }()

	o.mu.Lock()
	if o.game.Over() {
		o.setStatusLocked(&ev, StatusGameOver)
		o.mu.Unlock()
		return nil
	}
	slot := o.game.Turn()
	desc := o.players.For(slot)
	position := o.game.Clone()
	gen := o.generation
	o.mu.Unlock()

	move, err := o.request(ctx, desc, slot, position)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return nil
	}
	if errors.Is(err, engine.ErrNoMove) {
		o.setStatusLocked(&ev, "No/invalid move found by model. Try again.")
		return nil
	}
	if err != nil {
		o.setStatusLocked(&ev, fmt.Sprintf("%s failed: %v", desc.Label(), err))
		return err
	}
	if err := o.applyLocked(&ev, slot, move); err != nil {
		o.setStatusLocked(&ev, fmt.Sprintf("%s played an illegal move (%s).", desc.Label(), move.UCI()))
		return err
	}
	o.setStatusLocked(&ev, suggestion(desc, ev.move))
	return nil
}

// PlayMove applies a move made by a person at the board. Autoplay stops, and
// unless the game ended, the side now to move replies in the background.
// A pawn reaching the last rank promotes to a queen unless told otherwise.
func (o *Orchestrator) PlayMove(ctx context.Context, move game.Move) error {
	if move.Promotion == "" {
		move.Promotion = "q"
	}

	var ev event
	o.mu.Lock()
	color := o.game.Turn()
	if err := o.applyLocked(&ev, color, move); err != nil {
		o.mu.Unlock()
		return err
	}
	o.state = Idle
	o.retries = 0
	o.generation++
	over := o.game.Over()
	if over {
		o.setStatusLocked(&ev, o.game.Describe())
	}
	o.mu.Unlock()
	o.publish(ev)

	if !over {
		go func() {
			if err := o.ForceMove(ctx); err != nil {
				o.logger.Error("reply failed", "err", err)
			}
		}()
	}
	return nil
}

// Reset starts a new game. Sources and the autoplay state are kept.
func (o *Orchestrator) Reset() {
	var ev event
	o.mu.Lock()
	o.resetLocked(&ev)
	o.mu.Unlock()
	o.publish(ev)
}

func (o *Orchestrator) resetLocked(ev *event) {
	o.game = game.New()
	o.generation++
	o.gameID++
	o.retries = 0
	if o.state == AwaitingRetry {
		o.state = Active
	}
	o.setStatusLocked(ev, "")
	o.logger.Info("board reset")
}

// LoadPGN replaces the game with one loaded from pgn.
func (o *Orchestrator) LoadPGN(pgn string) error {
	g, err := game.FromPGN(pgn)
	var ev event
	o.mu.Lock()
	if err != nil {
		o.setStatusLocked(&ev, StatusInvalidPGN)
		o.mu.Unlock()
		o.publish(ev)
		return err
	}
	o.game = g
	o.generation++
	o.gameID++
	o.retries = 0
	o.setStatusLocked(&ev, g.Describe())
	o.mu.Unlock()
	o.publish(ev)
	return nil
}

// SetPlayers chooses the sources for both sides.
func (o *Orchestrator) SetPlayers(p engine.Pair) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.players = p
}

// StartExperiments hands pairing control to d and starts autoplay.
func (o *Orchestrator) StartExperiments(ctx context.Context, d Director) {
	o.mu.Lock()
	o.director = d
	o.mu.Unlock()
	o.Start(ctx)
}

// StopExperiments returns pairing control to SetPlayers and stops autoplay.
func (o *Orchestrator) StopExperiments() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.director = nil
	o.state = Idle
	o.retries = 0
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		State:       o.state,
		Players:     o.players,
		Retries:     o.retries,
		Status:      o.status,
		Experiments: o.director != nil,
		GameID:      o.gameID,
		History:     o.game.History(),
		Board:       o.game.State(),
	}
}

// Game returns a copy of the current game.
func (o *Orchestrator) Game() *game.Game {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.game.Clone()
}
