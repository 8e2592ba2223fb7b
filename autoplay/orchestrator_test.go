package autoplay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chessgpt-local/engine"
	"chessgpt-local/game"
	"chessgpt-local/types"
)

// scripted returns queued results in order, then the last one forever.
type scripted struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (s *scripted) NextMove(ctx context.Context, g *game.Game) (game.Move, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	var err error
	if len(s.results) > 0 {
		if i >= len(s.results) {
			i = len(s.results) - 1
		}
		err = s.results[i]
	}
	s.mu.Unlock()
	if err != nil {
		return game.Move{}, err
	}
	return engine.NewRandomSource().NextMove(ctx, g)
}

type resolver map[engine.Descriptor]engine.Source

func (r resolver) Source(d engine.Descriptor, _ game.Color) (engine.Source, error) {
	if src, ok := r[d]; ok {
		return src, nil
	}
	return engine.NewRandomSource(), nil
}

var model = engine.LanguageModel("gpt-4", engine.ModeChat)

func started(o *Orchestrator) *Orchestrator {
	o.mu.Lock()
	o.state = Active
	o.mu.Unlock()
	return o
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Idle", Idle.String())
	assert.Equal(t, "Active", Active.String())
	assert.Equal(t, "AwaitingRetry", AwaitingRetry.String())
}

func TestStepIdleDoesNothing(t *testing.T) {
	o := New(resolver{}, engine.Pair{White: engine.Random(), Black: engine.Random()}, nil)
	assert.False(t, o.Step(context.Background()))
	assert.Empty(t, o.Snapshot().History)
}

func TestStepPlaysSideToMove(t *testing.T) {
	white := &scripted{}
	black := &scripted{}
	wd, bd := engine.Engine(1), engine.Engine(2)
	o := started(New(resolver{wd: white, bd: black}, engine.Pair{White: wd, Black: bd}, nil))

	var colors []game.Color
	o.OnMove(func(c game.Color, _ game.Move, _ *types.BoardState) { colors = append(colors, c) })

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.True(t, o.Step(ctx))
	}
	assert.Equal(t, 2, white.calls)
	assert.Equal(t, 2, black.calls)
	assert.Equal(t, []game.Color{game.White, game.Black, game.White, game.Black}, colors)
	assert.Len(t, o.Snapshot().History, 4)
	assert.Contains(t, o.Snapshot().Status, "Stockfish model suggests move: ")
}

func TestRetryLimitOnFirstMove(t *testing.T) {
	src := &scripted{results: []error{engine.ErrNoMove}}
	o := started(New(resolver{model: src}, engine.Pair{White: model, Black: engine.Random()}, nil))

	ctx := context.Background()
	for i := 1; i < FirstMoveRetryLimit; i++ {
		require.True(t, o.Step(ctx), "attempt %d", i)
		snap := o.Snapshot()
		assert.Equal(t, i, snap.Retries)
		assert.Equal(t, AwaitingRetry, snap.State)
	}
	assert.False(t, o.Step(ctx))

	snap := o.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, 0, snap.Retries)
	assert.Equal(t, "No/invalid move found by model (GPT-4) after 10 retries. AutoPlay stopped.", snap.Status)
	assert.Equal(t, FirstMoveRetryLimit, src.calls)
}

func TestRetryLimitAfterFirstMove(t *testing.T) {
	src := &scripted{results: []error{engine.ErrNoMove}}
	o := New(resolver{model: src}, engine.Pair{White: engine.Random(), Black: model}, nil)
	require.NoError(t, o.LoadPGN("1. e4 *"))
	started(o)

	ctx := context.Background()
	assert.True(t, o.Step(ctx))
	assert.True(t, o.Step(ctx))
	assert.False(t, o.Step(ctx))
	assert.Equal(t, "No/invalid move found by model (GPT-4) after 3 retries. AutoPlay stopped.", o.Snapshot().Status)
	assert.Equal(t, RetryLimit, src.calls)
}

func TestStopRestoresRetryBudget(t *testing.T) {
	src := &scripted{results: []error{engine.ErrNoMove}}
	o := New(resolver{model: src}, engine.Pair{White: engine.Random(), Black: model}, nil)
	require.NoError(t, o.LoadPGN("1. e4 *"))
	started(o)

	ctx := context.Background()
	require.True(t, o.Step(ctx))
	require.True(t, o.Step(ctx))
	assert.Equal(t, 2, o.Snapshot().Retries)

	o.Stop()
	assert.Equal(t, 0, o.Snapshot().Retries)
	started(o)

	assert.True(t, o.Step(ctx))
	snap := o.Snapshot()
	assert.Equal(t, 1, snap.Retries)
	assert.Equal(t, AwaitingRetry, snap.State)
	assert.True(t, o.Step(ctx))
	assert.False(t, o.Step(ctx))
	assert.Equal(t, 5, src.calls)
}

func TestStopExperimentsRestoresRetryBudget(t *testing.T) {
	src := &scripted{results: []error{engine.ErrNoMove}}
	o := started(New(resolver{model: src}, engine.Pair{White: model, Black: engine.Random()}, nil))

	ctx := context.Background()
	require.True(t, o.Step(ctx))
	o.StopExperiments()
	assert.Equal(t, 0, o.Snapshot().Retries)
}

func TestHaltRestoresRetryBudget(t *testing.T) {
	src := &scripted{results: []error{engine.ErrNoMove, errors.New("connection refused")}}
	o := started(New(resolver{model: src}, engine.Pair{White: model, Black: engine.Random()}, nil))

	ctx := context.Background()
	require.True(t, o.Step(ctx))
	assert.Equal(t, 1, o.Snapshot().Retries)
	assert.False(t, o.Step(ctx))

	snap := o.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, 0, snap.Retries)
}

func TestRetryCounterResetsOnSuccess(t *testing.T) {
	src := &scripted{results: []error{engine.ErrNoMove, engine.ErrNoMove, nil}}
	o := started(New(resolver{model: src}, engine.Pair{White: model, Black: engine.Random()}, nil))

	ctx := context.Background()
	o.Step(ctx)
	o.Step(ctx)
	assert.Equal(t, 2, o.Snapshot().Retries)
	require.True(t, o.Step(ctx))

	snap := o.Snapshot()
	assert.Equal(t, 0, snap.Retries)
	assert.Equal(t, Active, snap.State)
	assert.Len(t, snap.History, 1)
	assert.Contains(t, snap.Status, "Model suggests move: ")
}

func TestSourceErrorStopsAutoplay(t *testing.T) {
	src := &scripted{results: []error{errors.New("connection refused")}}
	o := started(New(resolver{model: src}, engine.Pair{White: model, Black: engine.Random()}, nil))

	var statuses []string
	o.OnStatus(func(s string) { statuses = append(statuses, s) })

	assert.False(t, o.Step(context.Background()))
	snap := o.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, "GPT-4 failed: connection refused. AutoPlay stopped.", snap.Status)
	assert.Equal(t, []string{snap.Status}, statuses)
}

func TestGameOverStopsWithoutExperiments(t *testing.T) {
	o := New(resolver{}, engine.Pair{White: engine.Random(), Black: engine.Random()}, nil)
	require.NoError(t, o.LoadPGN("1. f3 e5 2. g4 Qh4# 0-1"))
	started(o)

	assert.False(t, o.Step(context.Background()))
	assert.Equal(t, StatusGameOver, o.Snapshot().Status)
}

func TestGameEndCallback(t *testing.T) {
	o := New(resolver{}, engine.Pair{White: engine.Random(), Black: engine.Random()}, nil)
	require.NoError(t, o.LoadPGN("1. f3 e5 2. g4 *"))

	var outcome string
	var winner game.Winner
	o.OnGameEnd(func(out string, w game.Winner) { outcome, winner = out, w })
	require.NoError(t, o.PlayMove(context.Background(), game.Move{From: "d8", To: "h4"}))

	assert.Equal(t, "Checkmate! Black wins!", outcome)
	assert.Equal(t, game.WinnerBlack, winner)
	assert.Equal(t, "Checkmate! Black wins!", o.Snapshot().Status)
}

func TestResetDiscardsInFlightMove(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	slow := engine.SourceFunc(func(ctx context.Context, g *game.Game) (game.Move, error) {
		close(entered)
		<-release
		return engine.NewRandomSource().NextMove(ctx, g)
	})
	o := started(New(resolver{model: slow}, engine.Pair{White: model, Black: model}, nil))

	done := make(chan bool)
	go func() { done <- o.Step(context.Background()) }()
	<-entered
	o.Reset()
	close(release)
	<-done

	assert.Empty(t, o.Snapshot().History)
}

func TestStopDoesNotDiscardInFlightMove(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	slow := engine.SourceFunc(func(ctx context.Context, g *game.Game) (game.Move, error) {
		close(entered)
		<-release
		return engine.NewRandomSource().NextMove(ctx, g)
	})
	o := started(New(resolver{model: slow}, engine.Pair{White: model, Black: model}, nil))

	done := make(chan bool)
	go func() { done <- o.Step(context.Background()) }()
	<-entered
	o.Stop()
	close(release)
	assert.False(t, <-done)

	snap := o.Snapshot()
	assert.Len(t, snap.History, 1)
	assert.Equal(t, Idle, snap.State)
}

func TestNoMoveAfterStopIsNotCounted(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	failing := engine.SourceFunc(func(context.Context, *game.Game) (game.Move, error) {
		close(entered)
		<-release
		return game.Move{}, engine.ErrNoMove
	})
	o := started(New(resolver{model: failing}, engine.Pair{White: model, Black: model}, nil))

	done := make(chan bool)
	go func() { done <- o.Step(context.Background()) }()
	<-entered
	o.Stop()
	close(release)
	assert.False(t, <-done)

	snap := o.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, 0, snap.Retries)
}

func TestLoadPGNInvalid(t *testing.T) {
	o := New(resolver{}, engine.Pair{}, nil)
	err := o.LoadPGN("1. e5")
	assert.ErrorIs(t, err, game.ErrInvalidPGN)
	assert.Equal(t, StatusInvalidPGN, o.Snapshot().Status)
}

func TestPlayMoveRepliesAndStops(t *testing.T) {
	black := &scripted{}
	bd := engine.Engine(5)
	o := started(New(resolver{bd: black}, engine.Pair{White: engine.Random(), Black: bd}, nil))

	require.NoError(t, o.PlayMove(context.Background(), game.Move{From: "e2", To: "e4"}))
	assert.False(t, o.Running())
	require.Eventually(t, func() bool { return len(o.Snapshot().History) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "e4", o.Snapshot().History[0])

	err := o.PlayMove(context.Background(), game.Move{From: "e2", To: "e5"})
	assert.ErrorIs(t, err, game.ErrIllegalMove)
}

// director plays each pair for one game per entry.
type director struct {
	pairs    []engine.Pair
	recorded []game.Winner
}

func (d *director) Select(*game.Game) (engine.Pair, bool) {
	if len(d.recorded) >= len(d.pairs) {
		return engine.Pair{}, false
	}
	return d.pairs[len(d.recorded)], true
}

func (d *director) Record(g *game.Game) bool {
	d.recorded = append(d.recorded, g.Winner())
	return len(d.recorded) < len(d.pairs)
}

func TestExperimentsAdoptPairAndRecord(t *testing.T) {
	random := engine.Pair{White: engine.Random(), Black: engine.Random()}
	d := &director{pairs: []engine.Pair{random, random}}
	o := New(resolver{}, engine.Pair{White: model, Black: model}, nil)
	o.SetDelay(time.Millisecond)
	require.NoError(t, o.LoadPGN("1. f3 e5 2. g4 Qh4# 0-1"))

	o.mu.Lock()
	o.director = d
	o.state = Active
	o.mu.Unlock()

	ctx := context.Background()
	// finished game is recorded and the board reset
	require.True(t, o.Step(ctx))
	assert.Equal(t, []game.Winner{game.WinnerBlack}, d.recorded)
	assert.Empty(t, o.Snapshot().History)

	// the new pair is adopted without playing a move
	require.True(t, o.Step(ctx))
	snap := o.Snapshot()
	assert.Equal(t, random, snap.Players)
	assert.Empty(t, snap.History)
	assert.True(t, snap.Experiments)

	for o.Step(ctx) {
	}
	snap = o.Snapshot()
	assert.Len(t, d.recorded, 2)
	assert.Equal(t, StatusExperimentsEnd, snap.Status)
	assert.False(t, snap.Experiments)
	assert.Equal(t, Idle, snap.State)
}

func TestRunLoopStopsOnHalt(t *testing.T) {
	src := &scripted{results: []error{engine.ErrNoMove}}
	o := New(resolver{model: src}, engine.Pair{White: model, Black: model}, nil)
	o.SetDelay(time.Millisecond)

	o.Start(context.Background())
	require.Eventually(t, func() bool {
		o.mu.Lock()
		defer o.mu.Unlock()
		return !o.looping
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, FirstMoveRetryLimit, src.calls)
}

func TestCallbacksAccumulate(t *testing.T) {
	o := New(resolver{}, engine.Pair{White: engine.Random(), Black: engine.Random()}, nil)
	var order []string
	o.OnMove(func(game.Color, game.Move, *types.BoardState) { order = append(order, "first") })
	o.OnMove(func(game.Color, game.Move, *types.BoardState) { order = append(order, "second") })

	require.NoError(t, o.ForceMove(context.Background()))
	assert.Equal(t, []string{"first", "second"}, order)
}
