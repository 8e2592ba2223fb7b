// Package types contains shared data structures for chessgpt-local.
package types

import "encoding/json"

// Piece is one occupied or empty square of a board snapshot.
// Kind is one of "k", "q", "r", "b", "n", "p", or "" for an empty square.
type Piece struct {
	Kind  string `json:"kind"`
	White bool   `json:"white"`
}

// Empty returns true if no piece stands on the square.
func (p Piece) Empty() bool {
	return p.Kind == ""
}

// Glyph returns the unicode chess symbol for the piece, or 0 for an empty square.
func (p Piece) Glyph() rune {
	white := map[string]rune{"k": '♔', "q": '♕', "r": '♖', "b": '♗', "n": '♘', "p": '♙'}
	black := map[string]rune{"k": '♚', "q": '♛', "r": '♜', "b": '♝', "n": '♞', "p": '♟'}
	if p.White {
		return white[p.Kind]
	}
	return black[p.Kind]
}

// BoardState represents a snapshot of a chess game.
// Board is indexed as Board[y][x] where y=0 is rank 8 and x=0 is file a.
type BoardState struct {
	FEN          string    `json:"fen"`
	Notation     string    `json:"pgn"`
	MoveNumber   int       `json:"move_number"`    // plies played
	PlayerToMove int       `json:"player_to_move"` // 0=white, 1=black
	Phase        string    `json:"phase"`          // "playing", "finished"
	Board        [][]Piece `json:"board"`
	Outcome      string    `json:"outcome"`
	InCheck      bool      `json:"in_check"`
	LastMove     struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"last_move"`
}

// Finished returns true if the game is over.
func (b *BoardState) Finished() bool {
	return b.Phase == "finished"
}

// Height returns the board height.
func (b *BoardState) Height() int {
	return len(b.Board)
}

// Width returns the board width.
func (b *BoardState) Width() int {
	if b.Height() == 0 {
		return 0
	}
	return len(b.Board[0])
}

// BoardPos represents a position on the board.
type BoardPos struct {
	X int
	Y int
}

// Square returns the algebraic name of the position ("a8" for 0,0).
func (p BoardPos) Square() string {
	return string(rune('a'+p.X)) + string(rune('8'-p.Y))
}

// PosFromSquare converts an algebraic square name to a board position.
// ok is false for malformed names.
func PosFromSquare(sq string) (BoardPos, bool) {
	if len(sq) != 2 || sq[0] < 'a' || sq[0] > 'h' || sq[1] < '1' || sq[1] > '8' {
		return BoardPos{}, false
	}
	return BoardPos{X: int(sq[0] - 'a'), Y: int('8' - sq[1])}, true
}

// UnmarshalJSON allows BoardPos to be unmarshaled from a JSON array [x, y]
// or from a square name such as "e4".
func (p *BoardPos) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		pos, ok := PosFromSquare(name)
		if !ok {
			return &json.UnsupportedValueError{Str: name}
		}
		*p = pos
		return nil
	}
	var v []float64
	err := json.Unmarshal(data, &v)
	if err != nil {
		return err
	}
	if len(v) != 2 {
		return &json.UnsupportedValueError{Str: string(data)}
	}
	p.X = int(v[0])
	p.Y = int(v[1])
	return nil
}

// NewBoardState creates an empty 8x8 board snapshot.
func NewBoardState() *BoardState {
	board := make([][]Piece, 8)
	for i := range board {
		board[i] = make([]Piece, 8)
	}
	return &BoardState{
		PlayerToMove: 0, // White plays first
		Phase:        "playing",
		Board:        board,
	}
}
