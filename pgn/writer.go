// Package pgn writes and reads chess game records in PGN for the history directory.
package pgn

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chessgpt-local/game"
)

// Result tokens.
const (
	WhiteWins  = "1-0"
	BlackWins  = "0-1"
	Drawn      = "1/2-1/2"
	Unfinished = "*"
)

// GameRecord tracks a game in progress and writes it as PGN.
type GameRecord struct {
	FilePath string
	White    string
	Black    string
	Date     string
	Result   string
	game     *game.Game
	file     *os.File
}

// NewGameRecord creates a new PGN file in dir and writes the tag section.
func NewGameRecord(dir, white, black string) (*GameRecord, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	now := time.Now()
	base := fmt.Sprintf("%s_%s-vs-%s", now.Format("2006-01-02_150405"), slug(white), slug(black))
	f, path, err := createUnique(dir, base)
	if err != nil {
		return nil, err
	}

	rec := &GameRecord{
		FilePath: path,
		White:    white,
		Black:    black,
		Date:     now.Format("2006.01.02"),
		Result:   Unfinished,
		game:     game.New(),
		file:     f,
	}
	if err := rec.flush(); err != nil {
		f.Close()
		return nil, err
	}
	return rec, nil
}

// createUnique opens base.pgn, or base-2.pgn, base-3.pgn ... if taken.
// Games between fast sources can finish within the same second.
func createUnique(dir, base string) (*os.File, string, error) {
	for i := 1; i < 1000; i++ {
		name := base + ".pgn"
		if i > 1 {
			name = fmt.Sprintf("%s-%d.pgn", base, i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create pgn file: %w", err)
		}
	}
	return nil, "", fmt.Errorf("create pgn file: too many games named %s", base)
}

// slug turns a player label into a file name fragment: "Stockfish 3" -> "stockfish-3".
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// AddMove appends a move in SAN to the record.
func (r *GameRecord) AddMove(san string) error {
	if r.file == nil {
		return errClosed
	}
	if _, err := r.game.ApplySAN(san); err != nil {
		return err
	}
	return r.flush()
}

// SetGame replaces the recorded game, e.g. after loading a PGN.
func (r *GameRecord) SetGame(g *game.Game) error {
	r.game = g.Clone()
	return r.flush()
}

// Moves returns the number of plies recorded.
func (r *GameRecord) Moves() int {
	return r.game.HistoryLen()
}

// SetResult sets the Result tag. Accepts PGN tokens as well as status lines
// like "Checkmate! White wins!" or "Stalemate!".
func (r *GameRecord) SetResult(outcome string) error {
	r.Result = parseResult(outcome)
	return r.flush()
}

// Close performs a final flush and closes the file handle.
func (r *GameRecord) Close() {
	if r.file == nil {
		return
	}
	r.flush()
	r.file.Close()
	r.file = nil
}

var errClosed = errors.New("file already closed")

// flush rewrites the complete PGN file from scratch.
func (r *GameRecord) flush() error {
	if r.file == nil {
		return errClosed
	}

	g := r.game.Clone()
	g.ClearTags()
	if !g.Over() {
		conclude(g, r.Result)
	}
	result := r.Result
	if g.Over() {
		result = g.Result()
	}
	g.SetTag("Event", "chessgpt-local")
	g.SetTag("Site", "local")
	g.SetTag("Date", r.Date)
	g.SetTag("Round", "-")
	g.SetTag("White", r.White)
	g.SetTag("Black", r.Black)
	g.SetTag("Result", result)
	if fen := g.StartingFEN(); fen != game.StartFEN {
		g.SetTag("SetUp", "1")
		g.SetTag("FEN", fen)
	}

	if _, err := r.file.Seek(0, 0); err != nil {
		return err
	}
	if err := r.file.Truncate(0); err != nil {
		return err
	}
	if _, err := r.file.WriteString(g.PGN() + "\n"); err != nil {
		return err
	}
	return r.file.Sync()
}

// conclude ends an unfinished game the way an adjudicated result says it ended.
func conclude(g *game.Game, result string) {
	switch result {
	case WhiteWins:
		g.Resign(game.Black)
	case BlackWins:
		g.Resign(game.White)
	case Drawn:
		g.AgreeDraw()
	}
}

// WriteGame saves a finished game as a new record and returns its path.
func WriteGame(dir, white, black string, g *game.Game) (string, error) {
	rec, err := NewGameRecord(dir, white, black)
	if err != nil {
		return "", err
	}
	defer rec.Close()
	if err := rec.SetGame(g); err != nil {
		return "", err
	}
	if err := rec.SetResult(g.Result()); err != nil {
		return "", err
	}
	return rec.FilePath, nil
}

// parseResult converts the outcome formats used in the app to a PGN result token.
func parseResult(outcome string) string {
	o := strings.TrimSpace(outcome)
	switch o {
	case WhiteWins, BlackWins, Drawn, Unfinished:
		return o
	}

	low := strings.ToLower(o)
	switch {
	case strings.Contains(low, "white wins"):
		return WhiteWins
	case strings.Contains(low, "black wins"):
		return BlackWins
	case strings.HasPrefix(low, "draw"), strings.HasPrefix(low, "stalemate"):
		return Drawn
	}
	return Unfinished
}
