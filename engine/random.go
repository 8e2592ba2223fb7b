package engine

import (
	"context"

	"lukechampine.com/frand"

	"chessgpt-local/game"
)

// RandomSource plays a uniformly random legal move.
type RandomSource struct {
	// Intn returns a value in [0, n). Defaults to frand.Intn.
	Intn func(n int) int
}

// NewRandomSource creates a random mover backed by frand.
func NewRandomSource() *RandomSource {
	return &RandomSource{Intn: frand.Intn}
}

// NextMove picks one of the legal moves.
func (r *RandomSource) NextMove(_ context.Context, g *game.Game) (game.Move, error) {
	moves := g.LegalMovesVerbose()
	if len(moves) == 0 {
		return game.Move{}, ErrNoMove
	}
	intn := r.Intn
	if intn == nil {
		intn = frand.Intn
	}
	return moves[intn(len(moves))], nil
}
