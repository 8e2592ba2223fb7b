package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chessgpt-local/game"
)

func TestParseDescriptor(t *testing.T) {
	tests := []struct {
		id    string
		want  Descriptor
		label string
	}{
		{"random", Random(), "Random moves"},
		{"stockfish-1", Engine(1), "Stockfish 1"},
		{"stockfish-20", Engine(20), "Stockfish 20"},
		{"gpt-4", LanguageModel("gpt-4", ModeChat), "GPT-4"},
		{"gpt-3.5-turbo", LanguageModel("gpt-3.5-turbo", ModeChat), "GPT-3.5 Turbo"},
		{"gpt-3.5-turbo-instruct", LanguageModel("gpt-3.5-turbo-instruct", ModeCompletion), "GPT-3.5 Turbo Completions"},
		{"llama3:chat", LanguageModel("llama3", ModeChat), "llama3"},
		{"davinci-002:completion", LanguageModel("davinci-002", ModeCompletion), "davinci-002"},
		{"  random  ", Random(), "Random moves"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			d, err := ParseDescriptor(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
			assert.Equal(t, tt.label, d.Label())
		})
	}
}

func TestParseDescriptorErrors(t *testing.T) {
	for _, id := range []string{"", "stockfish-0", "stockfish-21", "stockfish-x", "gpt-5", "llama3:embed", ":chat"} {
		t.Run(id, func(t *testing.T) {
			_, err := ParseDescriptor(id)
			assert.Error(t, err)
		})
	}
}

func TestDescriptorStringRoundTrips(t *testing.T) {
	extra := []Descriptor{
		LanguageModel("llama3", ModeChat),
		LanguageModel("gpt-4", ModeCompletion),
	}
	for _, d := range append(Options(), extra...) {
		parsed, err := ParseDescriptor(d.String())
		require.NoError(t, err, d.String())
		assert.Equal(t, d, parsed)
	}
}

func TestOptions(t *testing.T) {
	opts := Options()
	assert.Len(t, opts, 3+1+MaxLevel)
	assert.Equal(t, "gpt-3.5-turbo-instruct", opts[0].String())
	assert.Equal(t, Random(), opts[3])
	assert.Equal(t, Engine(MaxLevel), opts[len(opts)-1])
}

func TestMustParsePanics(t *testing.T) {
	assert.Equal(t, Engine(3), MustParse("stockfish-3"))
	assert.Panics(t, func() { MustParse("nope") })
}

func TestPairFor(t *testing.T) {
	p := Pair{White: Random(), Black: Engine(4)}
	assert.Equal(t, Random(), p.For(game.White))
	assert.Equal(t, Engine(4), p.For(game.Black))
	assert.Equal(t, p, Pair{White: Random(), Black: Engine(4)})
	assert.NotEqual(t, p, Pair{White: Engine(4), Black: Random()})
}

func TestRandomSourceUsesPicker(t *testing.T) {
	g := game.New()
	legal := g.LegalMovesVerbose()

	var asked int
	src := &RandomSource{Intn: func(n int) int {
		asked = n
		return n - 1
	}}
	move, err := src.NextMove(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 20, asked)
	assert.Equal(t, legal[len(legal)-1], move)
	assert.Equal(t, 0, g.HistoryLen(), "source must not mutate the game")
}

func TestRandomSourcePlaysToTheEnd(t *testing.T) {
	g := game.New()
	src := NewRandomSource()
	ctx := context.Background()
	// The seventy-five move rule ends every game well before this.
	const maxPlies = 6000
	for i := 0; i < maxPlies && !g.Over(); i++ {
		move, err := src.NextMove(ctx, g)
		require.NoError(t, err)
		_, err = g.Apply(move)
		require.NoError(t, err)
	}
	require.True(t, g.Over(), "game still running after %d plies", g.HistoryLen())

	desc := g.Describe()
	terminal := desc == "Stalemate!" || strings.HasPrefix(desc, "Draw! ") || strings.HasPrefix(desc, "Checkmate! ")
	assert.True(t, terminal, "unexpected description %q", desc)
	assert.NotEqual(t, game.WinnerNone, g.Winner())

	_, err := src.NextMove(ctx, g)
	assert.ErrorIs(t, err, ErrNoMove)
}

func TestRandomSourceNoMoves(t *testing.T) {
	g, err := game.FromPGN("1. f3 e5 2. g4 Qh4# 0-1")
	require.NoError(t, err)
	_, err = NewRandomSource().NextMove(context.Background(), g)
	assert.ErrorIs(t, err, ErrNoMove)
}

func TestSourceFunc(t *testing.T) {
	var src Source = SourceFunc(func(context.Context, *game.Game) (game.Move, error) {
		return game.Move{}, ErrNoMove
	})
	_, err := src.NextMove(context.Background(), game.New())
	assert.ErrorIs(t, err, ErrNoMove)
}
