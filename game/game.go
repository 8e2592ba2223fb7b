// Package game adapts github.com/notnil/chess to the game-state operations the
// move sources and the autoplay loop need.
package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"chessgpt-local/types"
)

// algebraic encodes moves in SAN.
var algebraic chess.AlgebraicNotation

// StartFEN is the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrIllegalMove is returned when a move is not legal in the current position.
var ErrIllegalMove = errors.New("illegal move")

// ErrInvalidPGN is returned when a PGN string cannot be loaded.
var ErrInvalidPGN = errors.New("invalid PGN")

// Color identifies a side. It doubles as the player slot index (0=white, 1=black).
type Color int

const (
	White Color = 0
	Black Color = 1
)

func (c Color) String() string {
	if c == White {
		return "White"
	}
	return "Black"
}

// Winner classifies a finished game.
type Winner string

const (
	WinnerWhite Winner = "white"
	WinnerBlack Winner = "black"
	WinnerDraw  Winner = "draw"
	WinnerNone  Winner = ""
)

// Move is a move in verbose form. SAN is filled for moves produced by this
// package; callers may leave it empty when applying a coordinate move.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	SAN       string `json:"san,omitempty"`
}

// UCI returns the move in compact square-pair notation ("e2e4", "e7e8q").
func (m Move) UCI() string {
	return m.From + m.To + m.Promotion
}

// Game is the mutable game state. It is not safe for concurrent use.
type Game struct {
	g *chess.Game
}

// New creates a game at the standard starting position.
func New() *Game {
	return &Game{g: chess.NewGame()}
}

// FromFEN creates a game starting at the given position.
func FromFEN(fen string) (*Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &Game{g: chess.NewGame(opt)}, nil
}

// FromPGN loads a game from PGN text. Movetext without tag pairs is accepted.
// The moves are replayed on a fresh game, so the game's state comes from the
// position reached rather than from the result token.
func FromPGN(pgn string) (*Game, error) {
	pgn = strings.TrimSpace(pgn)
	if pgn == "" {
		return nil, ErrInvalidPGN
	}
	opt, err := chess.PGN(strings.NewReader(pgn))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPGN, err)
	}
	parsed := chess.NewGame(opt)
	start, err := chess.FEN(parsed.Positions()[0].String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPGN, err)
	}
	replayed := chess.NewGame(start, chess.TagPairs(copyTags(parsed.TagPairs())))
	for _, m := range parsed.Moves() {
		if err := replayed.Move(m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPGN, err)
		}
	}
	g := &Game{g: replayed}
	g.claimDraws()
	return g, nil
}

func copyTags(tags []*chess.TagPair) []*chess.TagPair {
	out := make([]*chess.TagPair, len(tags))
	for i, tp := range tags {
		out[i] = &chess.TagPair{Key: tp.Key, Value: tp.Value}
	}
	return out
}

// SetTag sets a PGN tag pair, replacing an existing value.
func (g *Game) SetTag(key, value string) {
	// Clones share tag pointers with their source, so never update in place.
	g.g.RemoveTagPair(key)
	g.g.AddTagPair(key, value)
}

// Tag returns the value of a PGN tag pair, or "".
func (g *Game) Tag(key string) string {
	if tp := g.g.GetTagPair(key); tp != nil {
		return tp.Value
	}
	return ""
}

// ClearTags removes all tag pairs.
func (g *Game) ClearTags() {
	for _, tp := range g.g.TagPairs() {
		g.g.RemoveTagPair(tp.Key)
	}
}

// StartingFEN returns the position the game started from.
func (g *Game) StartingFEN() string {
	return g.g.Positions()[0].String()
}

// PGN returns the game as PGN text: tag pairs, movetext and result.
func (g *Game) PGN() string {
	return g.g.String()
}

// Resign ends an unfinished game as lost for c.
func (g *Game) Resign(c Color) {
	if c == White {
		g.g.Resign(chess.White)
	} else {
		g.g.Resign(chess.Black)
	}
}

// AgreeDraw ends an unfinished game as drawn.
func (g *Game) AgreeDraw() {
	if !g.Over() {
		_ = g.g.Draw(chess.DrawOffer)
	}
}

// Clone returns an independent copy of the game.
func (g *Game) Clone() *Game {
	return &Game{g: g.g.Clone()}
}

// Turn returns the side to move.
func (g *Game) Turn() Color {
	if g.g.Position().Turn() == chess.White {
		return White
	}
	return Black
}

// FEN returns the current position.
func (g *Game) FEN() string {
	return g.g.Position().String()
}

// HistoryLen returns the number of plies played.
func (g *Game) HistoryLen() int {
	return len(g.g.Moves())
}

// History returns the played moves in SAN.
func (g *Game) History() []string {
	positions := g.g.Positions()
	moves := g.g.Moves()
	san := make([]string, len(moves))
	for i, m := range moves {
		san[i] = algebraic.Encode(positions[i], m)
	}
	return san
}

// Notation returns the move list as numbered movetext, e.g. "1. e4 e5 2. Nf3".
// Moves are numbered from the first ply played.
func (g *Game) Notation() string {
	if len(g.g.Moves()) == 0 {
		return ""
	}
	// The encoded PGN ends with the movetext line; drop its result token.
	encoded := g.g.String()
	fields := strings.Fields(encoded[strings.LastIndex(encoded, "\n")+1:])
	if n := len(fields); n > 0 && isResult(fields[n-1]) {
		fields = fields[:n-1]
	}
	return strings.Join(fields, " ")
}

func isResult(tok string) bool {
	switch tok {
	case "1-0", "0-1", "1/2-1/2", "*":
		return true
	}
	return false
}

// LegalMoves returns the legal moves in SAN. A finished game has none.
func (g *Game) LegalMoves() []string {
	if g.Over() {
		return nil
	}
	pos := g.g.Position()
	valid := g.g.ValidMoves()
	moves := make([]string, len(valid))
	for i, m := range valid {
		moves[i] = algebraic.Encode(pos, m)
	}
	return moves
}

// LegalMovesVerbose returns the legal moves with their squares.
func (g *Game) LegalMovesVerbose() []Move {
	if g.Over() {
		return nil
	}
	pos := g.g.Position()
	valid := g.g.ValidMoves()
	moves := make([]Move, len(valid))
	for i, m := range valid {
		moves[i] = verbose(pos, m)
	}
	return moves
}

// ApplySAN plays a move given in SAN. The string must match a legal move exactly.
func (g *Game) ApplySAN(san string) (Move, error) {
	if g.Over() {
		return Move{}, fmt.Errorf("%w: game is over", ErrIllegalMove)
	}
	pos := g.g.Position()
	for _, m := range g.g.ValidMoves() {
		if algebraic.Encode(pos, m) == san {
			return g.play(pos, m)
		}
	}
	return Move{}, fmt.Errorf("%w: %q", ErrIllegalMove, san)
}

// Apply plays a move. Coordinate moves are preferred; a move with only SAN set
// is applied via ApplySAN. A promotion on a non-promoting move is ignored.
func (g *Game) Apply(move Move) (Move, error) {
	if move.From == "" && move.SAN != "" {
		return g.ApplySAN(move.SAN)
	}
	if g.Over() {
		return Move{}, fmt.Errorf("%w: game is over", ErrIllegalMove)
	}
	pos := g.g.Position()
	promo := pieceType(move.Promotion)
	var fallback *chess.Move
	for _, m := range g.g.ValidMoves() {
		if m.S1().String() != move.From || m.S2().String() != move.To {
			continue
		}
		if m.Promo() == promo {
			return g.play(pos, m)
		}
		if m.Promo() == chess.NoPieceType {
			fallback = m
		}
	}
	if fallback != nil {
		return g.play(pos, fallback)
	}
	return Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, move.UCI())
}

func (g *Game) play(pos *chess.Position, m *chess.Move) (Move, error) {
	played := verbose(pos, m)
	if err := g.g.Move(m); err != nil {
		return Move{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	g.claimDraws()
	return played, nil
}

// claimDraws ends the game on threefold repetition or the fifty-move rule,
// which the rules library only reports as claimable.
func (g *Game) claimDraws() {
	if g.g.Outcome() != chess.NoOutcome {
		return
	}
	for _, method := range g.g.EligibleDraws() {
		if method == chess.ThreefoldRepetition || method == chess.FiftyMoveRule {
			_ = g.g.Draw(method)
			return
		}
	}
}

// LastMove returns the last played move, if any.
func (g *Game) LastMove() (Move, bool) {
	moves := g.g.Moves()
	if len(moves) == 0 {
		return Move{}, false
	}
	positions := g.g.Positions()
	return verbose(positions[len(moves)-1], moves[len(moves)-1]), true
}

// Over returns true if the game has ended.
func (g *Game) Over() bool {
	return g.g.Outcome() != chess.NoOutcome
}

// InCheck returns true if the side to move is in check.
func (g *Game) InCheck() bool {
	moves := g.g.Moves()
	if len(moves) == 0 {
		return false
	}
	return moves[len(moves)-1].HasTag(chess.Check)
}

// InDraw returns true if the game ended drawn.
func (g *Game) InDraw() bool {
	return g.g.Outcome() == chess.Draw
}

// InStalemate returns true if the game ended in stalemate.
func (g *Game) InStalemate() bool {
	return g.g.Method() == chess.Stalemate
}

// InCheckmate returns true if the game ended by checkmate.
func (g *Game) InCheckmate() bool {
	return g.g.Method() == chess.Checkmate
}

// InThreefoldRepetition returns true if the game ended by repetition.
func (g *Game) InThreefoldRepetition() bool {
	m := g.g.Method()
	return m == chess.ThreefoldRepetition || m == chess.FivefoldRepetition
}

// InsufficientMaterial returns true if the game ended for lack of mating material.
func (g *Game) InsufficientMaterial() bool {
	return g.g.Method() == chess.InsufficientMaterial
}

// Winner returns the result of a finished game, or WinnerNone while it is running.
func (g *Game) Winner() Winner {
	switch g.g.Outcome() {
	case chess.WhiteWon:
		return WinnerWhite
	case chess.BlackWon:
		return WinnerBlack
	case chess.Draw:
		return WinnerDraw
	}
	return WinnerNone
}

func (g *Game) winnerColor() Color {
	if g.g.Outcome() == chess.BlackWon {
		return Black
	}
	return White
}

// Result returns the PGN result token ("1-0", "0-1", "1/2-1/2", "*").
func (g *Game) Result() string {
	return g.g.Outcome().String()
}

// Describe returns a human-readable status line for the position.
func (g *Game) Describe() string {
	if g.Over() {
		switch {
		case g.InStalemate():
			return "Stalemate!"
		case g.InDraw():
			if g.InThreefoldRepetition() {
				return "Draw! Threefold repetition."
			} else if g.InsufficientMaterial() {
				return "Draw! Insufficient material."
			} else if g.g.Method() == chess.DrawOffer {
				return "Draw agreed."
			}
			return "Draw! 50 move rule."
		case g.g.Method() == chess.Resignation:
			return fmt.Sprintf("%s wins by resignation.", g.winnerColor())
		default:
			return fmt.Sprintf("Checkmate! %s wins!", g.winnerColor())
		}
	}
	status := ""
	if g.InCheck() {
		status = "Check. "
	}
	return fmt.Sprintf("%s%s to move.", status, g.Turn())
}

// State returns a snapshot of the game for display.
func (g *Game) State() *types.BoardState {
	state := types.NewBoardState()
	board := g.g.Position().Board()
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			sq := chess.NewSquare(chess.File(x), chess.Rank(7-y))
			p := board.Piece(sq)
			if p == chess.NoPiece {
				continue
			}
			state.Board[y][x] = types.Piece{
				Kind:  pieceName(p.Type()),
				White: p.Color() == chess.White,
			}
		}
	}
	state.FEN = g.FEN()
	state.Notation = g.Notation()
	state.MoveNumber = g.HistoryLen()
	state.PlayerToMove = int(g.Turn())
	state.InCheck = g.InCheck()
	state.Outcome = g.Describe()
	if g.Over() {
		state.Phase = "finished"
	}
	if last, ok := g.LastMove(); ok {
		state.LastMove.From = last.From
		state.LastMove.To = last.To
	}
	return state
}

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func verbose(pos *chess.Position, m *chess.Move) Move {
	return Move{
		From:      m.S1().String(),
		To:        m.S2().String(),
		Promotion: pieceName(m.Promo()),
		SAN:       algebraic.Encode(pos, m),
	}
}

func pieceName(t chess.PieceType) string {
	switch t {
	case chess.King:
		return "k"
	case chess.Queen:
		return "q"
	case chess.Rook:
		return "r"
	case chess.Bishop:
		return "b"
	case chess.Knight:
		return "n"
	case chess.Pawn:
		return "p"
	}
	return ""
}

func pieceType(name string) chess.PieceType {
	switch strings.ToLower(name) {
	case "q":
		return chess.Queen
	case "r":
		return chess.Rook
	case "b":
		return chess.Bishop
	case "n":
		return chess.Knight
	}
	return chess.NoPieceType
}
