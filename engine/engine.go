// Package engine defines the move sources that can play a side of a game.
package engine

import (
	"context"
	"errors"

	"chessgpt-local/game"
)

// ErrNoMove is returned by a Source that produced no usable move, e.g. a
// language model answering with something that is not a legal move.
// It is expected and drives the autoplay retry counter.
var ErrNoMove = errors.New("no usable move")

// Source proposes moves for the side to move.
type Source interface {
	// NextMove returns a move for the side to move in g. The game must not be
	// mutated; callers pass a clone. Returns ErrNoMove when nothing usable was produced.
	NextMove(ctx context.Context, g *game.Game) (game.Move, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, g *game.Game) (game.Move, error)

// NextMove calls f(ctx, g).
func (f SourceFunc) NextMove(ctx context.Context, g *game.Game) (game.Move, error) {
	return f(ctx, g)
}

// Pair holds the sources selected for both sides.
type Pair struct {
	White Descriptor
	Black Descriptor
}

// For returns the descriptor playing the given side.
func (p Pair) For(c game.Color) Descriptor {
	if c == game.White {
		return p.White
	}
	return p.Black
}

// Resolver turns a descriptor into a Source for a player slot.
type Resolver interface {
	Source(d Descriptor, slot game.Color) (Source, error)
}
