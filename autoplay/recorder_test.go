package autoplay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chessgpt-local/engine"
	"chessgpt-local/game"
	"chessgpt-local/pgn"
)

func sanSource(san string) engine.Source {
	return engine.SourceFunc(func(_ context.Context, g *game.Game) (game.Move, error) {
		return g.Clone().ApplySAN(san)
	})
}

func TestRecorderWritesFinishedGame(t *testing.T) {
	dir := t.TempDir()
	black := engine.Engine(1)
	o := New(resolver{black: sanSource("Qh4#")}, engine.Pair{White: engine.Random(), Black: black}, nil)
	rec := NewRecorder(dir, o, nil)
	rec.Attach()

	require.NoError(t, o.LoadPGN("1. f3 e5 2. g4 *"))
	require.NoError(t, o.ForceMove(context.Background()))
	assert.Empty(t, rec.Path(), "record is closed once the game ends")

	games, err := pgn.ListGames(dir)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "Random moves", games[0].White)
	assert.Equal(t, "Stockfish 1", games[0].Black)
	assert.Equal(t, pgn.BlackWins, games[0].Result)
	assert.Equal(t, 4, games[0].MoveCount)
}

func TestRecorderStartsNewFileAfterReset(t *testing.T) {
	dir := t.TempDir()
	o := New(resolver{}, engine.Pair{White: engine.Random(), Black: engine.Random()}, nil)
	rec := NewRecorder(dir, o, nil)
	rec.Attach()
	ctx := context.Background()

	require.NoError(t, o.ForceMove(ctx))
	first := rec.Path()
	require.NotEmpty(t, first)
	require.NoError(t, o.ForceMove(ctx))
	assert.Equal(t, first, rec.Path())

	o.Reset()
	require.NoError(t, o.ForceMove(ctx))
	assert.NotEqual(t, first, rec.Path())
	rec.Close()

	games, err := pgn.ListGames(dir)
	require.NoError(t, err)
	assert.Len(t, games, 2)
	for _, g := range games {
		assert.Equal(t, pgn.Unfinished, g.Result)
	}
}

func TestRecorderStartsNewFileAfterLoad(t *testing.T) {
	dir := t.TempDir()
	white := engine.Engine(1)
	o := New(resolver{white: sanSource("e4")}, engine.Pair{White: white, Black: engine.Random()}, nil)
	rec := NewRecorder(dir, o, nil)
	rec.Attach()
	ctx := context.Background()

	require.NoError(t, o.ForceMove(ctx))
	first := rec.Path()
	require.NotEmpty(t, first)

	require.NoError(t, o.LoadPGN("1. d4 d5 2. c4 *"))
	assert.Empty(t, rec.Path(), "loading a game finishes the previous record")
	require.NoError(t, o.ForceMove(ctx))
	assert.NotEqual(t, first, rec.Path())
	rec.Close()

	info, err := pgn.ParseHeader(first)
	require.NoError(t, err)
	assert.Equal(t, 1, info.MoveCount)

	games, err := pgn.ListGames(dir)
	require.NoError(t, err)
	require.Len(t, games, 2)
	var counts []int
	for _, g := range games {
		counts = append(counts, g.MoveCount)
	}
	assert.ElementsMatch(t, []int{1, 4}, counts)
}

func TestRecorderSkipsExperimentGames(t *testing.T) {
	dir := t.TempDir()
	o := New(resolver{}, engine.Pair{White: engine.Random(), Black: engine.Random()}, nil)
	rec := NewRecorder(dir, o, nil)
	rec.Attach()

	o.mu.Lock()
	o.director = &director{pairs: []engine.Pair{{White: engine.Random(), Black: engine.Random()}}}
	o.mu.Unlock()

	require.NoError(t, o.ForceMove(context.Background()))
	assert.Empty(t, rec.Path())
}
