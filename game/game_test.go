package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func play(t *testing.T, g *Game, sans ...string) {
	t.Helper()
	for _, san := range sans {
		_, err := g.ApplySAN(san)
		require.NoError(t, err, san)
	}
}

func TestNewGame(t *testing.T) {
	g := New()
	assert.Equal(t, White, g.Turn())
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", g.FEN())
	assert.Len(t, g.LegalMoves(), 20)
	assert.Equal(t, "", g.Notation())
	assert.Equal(t, "White to move.", g.Describe())
	assert.Equal(t, WinnerNone, g.Winner())
	assert.Equal(t, "*", g.Result())
	_, ok := g.LastMove()
	assert.False(t, ok)
}

func TestNotation(t *testing.T) {
	g := New()
	play(t, g, "e4", "e5", "Nf3")
	assert.Equal(t, "1. e4 e5 2. Nf3", g.Notation())
	assert.Equal(t, []string{"e4", "e5", "Nf3"}, g.History())
	assert.Equal(t, 3, g.HistoryLen())
	assert.Equal(t, Black, g.Turn())
}

func TestFromPGNWithoutResultIsOngoing(t *testing.T) {
	g, err := FromPGN("1. e4 e5 2. Nf3")
	require.NoError(t, err)
	assert.False(t, g.Over())
	assert.Equal(t, "*", g.Result())
	assert.Equal(t, "1. e4 e5 2. Nf3", g.Notation())
	assert.Equal(t, Black, g.Turn())
}

func TestFromPGNKeepsSetupPosition(t *testing.T) {
	fen := "8/P6k/8/8/8/8/8/K7 w - - 0 1"
	g, err := FromPGN("[SetUp \"1\"]\n[FEN \"" + fen + "\"]\n\n1. a8=Q *")
	require.NoError(t, err)
	assert.Equal(t, fen, g.StartingFEN())
	assert.Equal(t, fen, g.Tag("FEN"))
	assert.Equal(t, 1, g.HistoryLen())
	assert.Equal(t, "q", g.State().Board[0][0].Kind)
}

func TestTags(t *testing.T) {
	g := New()
	assert.Equal(t, "", g.Tag("White"))
	g.SetTag("White", "GPT-4")
	g.SetTag("Black", "Stockfish 3")
	g.SetTag("White", "Random moves")
	assert.Equal(t, "Random moves", g.Tag("White"))

	c := g.Clone()
	c.SetTag("Black", "GPT-4")
	assert.Equal(t, "Stockfish 3", g.Tag("Black"), "clone tags are independent")
	c.ClearTags()
	assert.Equal(t, "", c.Tag("White"))
	assert.Equal(t, "Random moves", g.Tag("White"))
}

func TestPGNRoundTrip(t *testing.T) {
	g := New()
	g.SetTag("White", "a")
	play(t, g, "e4", "e5", "Qh5", "Nc6", "Bc4", "Nf6", "Qxf7#")

	text := g.PGN()
	assert.Contains(t, text, `[White "a"]`)
	assert.Contains(t, text, "1-0")

	loaded, err := FromPGN(text)
	require.NoError(t, err)
	assert.Equal(t, g.History(), loaded.History())
	assert.True(t, loaded.InCheckmate())
	assert.Equal(t, "a", loaded.Tag("White"))
}

func TestResignAndAgreeDraw(t *testing.T) {
	g := New()
	play(t, g, "e4")
	g.Resign(Black)
	assert.True(t, g.Over())
	assert.Equal(t, "1-0", g.Result())
	assert.Equal(t, WinnerWhite, g.Winner())
	assert.Equal(t, "White wins by resignation.", g.Describe())
	assert.Empty(t, g.LegalMoves())
	_, err := g.ApplySAN("e5")
	assert.ErrorIs(t, err, ErrIllegalMove)

	d := New()
	d.AgreeDraw()
	assert.True(t, d.InDraw())
	assert.Equal(t, "1/2-1/2", d.Result())
	assert.Equal(t, "Draw agreed.", d.Describe())

	mated := New()
	play(t, mated, "f3", "e5", "g4", "Qh4#")
	mated.AgreeDraw()
	mated.Resign(Black)
	assert.Equal(t, "0-1", mated.Result(), "a finished game keeps its result")
}

func TestApplyCoordinateMove(t *testing.T) {
	g := New()
	m, err := g.Apply(Move{From: "g1", To: "f3"})
	require.NoError(t, err)
	assert.Equal(t, Move{From: "g1", To: "f3", SAN: "Nf3"}, m)
	assert.Equal(t, "g1f3", m.UCI())

	last, ok := g.LastMove()
	require.True(t, ok)
	assert.Equal(t, m, last)
}

func TestApplySANOnly(t *testing.T) {
	g := New()
	m, err := g.Apply(Move{SAN: "d4"})
	require.NoError(t, err)
	assert.Equal(t, "d2", m.From)
	assert.Equal(t, "d4", m.To)
}

func TestApplyIgnoresPromotionOnNormalMove(t *testing.T) {
	g := New()
	m, err := g.Apply(Move{From: "e2", To: "e4", Promotion: "q"})
	require.NoError(t, err)
	assert.Equal(t, "", m.Promotion)
	assert.Equal(t, "e4", m.SAN)
}

func TestApplyPromotion(t *testing.T) {
	g, err := FromFEN("8/P6k/8/8/8/8/8/K7 w - - 0 1")
	require.NoError(t, err)

	under := g.Clone()
	m, err := under.Apply(Move{From: "a7", To: "a8", Promotion: "n"})
	require.NoError(t, err)
	assert.Equal(t, "n", m.Promotion)
	assert.Equal(t, "a8=N", m.SAN)

	m, err = g.Apply(Move{From: "a7", To: "a8", Promotion: "q"})
	require.NoError(t, err)
	assert.Equal(t, "q", m.Promotion)
	assert.Equal(t, "q", g.State().Board[0][0].Kind)
}

func TestIllegalMoves(t *testing.T) {
	g := New()
	_, err := g.Apply(Move{From: "e2", To: "e5"})
	assert.ErrorIs(t, err, ErrIllegalMove)
	_, err = g.ApplySAN("Ke2")
	assert.ErrorIs(t, err, ErrIllegalMove)
	_, err = g.ApplySAN("e4 ")
	assert.ErrorIs(t, err, ErrIllegalMove)
	assert.Equal(t, 0, g.HistoryLen())
}

func TestCheckmate(t *testing.T) {
	g := New()
	play(t, g, "f3", "e5", "g4", "Qh4#")
	assert.True(t, g.Over())
	assert.True(t, g.InCheckmate())
	assert.True(t, g.InCheck())
	assert.False(t, g.InDraw())
	assert.Equal(t, WinnerBlack, g.Winner())
	assert.Equal(t, "0-1", g.Result())
	assert.Equal(t, "Checkmate! Black wins!", g.Describe())
	assert.Empty(t, g.LegalMoves())

	_, err := g.Apply(Move{From: "a2", To: "a3"})
	assert.ErrorIs(t, err, ErrIllegalMove)

	state := g.State()
	assert.True(t, state.Finished())
	assert.Equal(t, "h4", state.LastMove.To)
}

func TestCheck(t *testing.T) {
	g := New()
	play(t, g, "e4", "f6", "Qh5+")
	assert.True(t, g.InCheck())
	assert.False(t, g.Over())
	assert.Equal(t, "Check. Black to move.", g.Describe())
}

func TestStalemate(t *testing.T) {
	g, err := FromFEN("7k/8/6Q1/8/8/8/8/K7 w - - 0 1")
	require.NoError(t, err)
	_, err = g.Apply(Move{From: "g6", To: "f7"})
	require.NoError(t, err)
	assert.True(t, g.InStalemate())
	assert.True(t, g.InDraw())
	assert.Equal(t, WinnerDraw, g.Winner())
	assert.Equal(t, "Stalemate!", g.Describe())
}

func TestInsufficientMaterial(t *testing.T) {
	g, err := FromFEN("8/8/8/8/5k2/8/6r1/7K w - - 0 1")
	require.NoError(t, err)
	_, err = g.ApplySAN("Kxg2")
	require.NoError(t, err)
	assert.True(t, g.InsufficientMaterial())
	assert.Equal(t, "Draw! Insufficient material.", g.Describe())
	assert.Equal(t, "1/2-1/2", g.Result())
}

func TestThreefoldRepetitionEndsGame(t *testing.T) {
	g := New()
	play(t, g, "Nf3", "Nf6", "Ng1", "Ng8", "Nf3", "Nf6", "Ng1", "Ng8")
	assert.True(t, g.Over())
	assert.True(t, g.InThreefoldRepetition())
	assert.Equal(t, "Draw! Threefold repetition.", g.Describe())
}

func TestFiftyMoveRuleEndsGame(t *testing.T) {
	g, err := FromFEN("7k/8/8/8/8/8/8/K6R w - - 99 80")
	require.NoError(t, err)
	_, err = g.ApplySAN("Rb1")
	require.NoError(t, err)
	assert.True(t, g.Over())
	assert.Equal(t, "Draw! 50 move rule.", g.Describe())
}

func TestFromPGN(t *testing.T) {
	g, err := FromPGN(`[Event "Casual"]
[White "a"]
[Black "b"]

1. e4 e5 2. Nf3 Nc6 *`)
	require.NoError(t, err)
	assert.Equal(t, 4, g.HistoryLen())
	assert.Equal(t, "1. e4 e5 2. Nf3 Nc6", g.Notation())

	g, err = FromPGN("1. d4 d5 *")
	require.NoError(t, err)
	assert.Equal(t, []string{"d4", "d5"}, g.History())
}

func TestFromPGNInvalid(t *testing.T) {
	for _, pgn := range []string{"", "   ", "1. e5 *", "1. Nf6 *"} {
		_, err := FromPGN(pgn)
		assert.ErrorIs(t, err, ErrInvalidPGN, pgn)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := New()
	play(t, g, "e4")
	c := g.Clone()
	play(t, c, "e5")
	assert.Equal(t, 1, g.HistoryLen())
	assert.Equal(t, 2, c.HistoryLen())
}

func TestState(t *testing.T) {
	g := New()
	play(t, g, "e4")
	s := g.State()
	assert.Equal(t, 8, s.Height())
	assert.Equal(t, 8, s.Width())
	assert.Equal(t, 1, s.MoveNumber)
	assert.Equal(t, int(Black), s.PlayerToMove)
	assert.Equal(t, "1. e4", s.Notation)
	assert.Equal(t, "e2", s.LastMove.From)
	assert.True(t, s.Board[4][4].White)
	assert.Equal(t, "p", s.Board[4][4].Kind)
	assert.True(t, s.Board[6][4].Empty())
	assert.Equal(t, "r", s.Board[0][0].Kind)
	assert.False(t, s.Board[0][0].White)
	assert.Equal(t, "playing", s.Phase)
}

func TestLegalMovesVerboseMatchesSAN(t *testing.T) {
	g := New()
	verbose := g.LegalMovesVerbose()
	san := g.LegalMoves()
	require.Len(t, verbose, len(san))
	for i := range san {
		assert.Equal(t, san[i], verbose[i].SAN)
	}
}

func TestColor(t *testing.T) {
	assert.Equal(t, "White", White.String())
	assert.Equal(t, "Black", Black.String())
	assert.Equal(t, Black, White.Opponent())
	assert.Equal(t, White, Black.Opponent())
}
