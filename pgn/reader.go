package pgn

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chessgpt-local/game"
)

// GameInfo holds metadata parsed from a PGN file's tag section.
type GameInfo struct {
	FilePath  string
	FileName  string
	White     string
	Black     string
	Date      string
	Result    string
	MoveCount int // plies
}

// ParseHeader reads a PGN file and extracts its tags.
func ParseHeader(filePath string) (*GameInfo, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	g, err := game.FromPGN(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(filePath), err)
	}
	info := &GameInfo{
		FilePath:  filePath,
		FileName:  filepath.Base(filePath),
		White:     g.Tag("White"),
		Black:     g.Tag("Black"),
		Date:      g.Tag("Date"),
		Result:    g.Tag("Result"),
		MoveCount: g.HistoryLen(),
	}
	if info.Result == "" {
		info.Result = g.Result()
	}
	return info, nil
}

// ReplayToEnd loads a PGN file and plays all of its moves.
func ReplayToEnd(filePath string) (*game.Game, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	g, err := game.FromPGN(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(filePath), err)
	}
	return g, nil
}

// ListGames scans a directory for .pgn files and returns their parsed headers,
// sorted newest-first (by filename, which contains timestamps).
func ListGames(dir string) ([]GameInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history dir: %w", err)
	}

	var games []GameInfo
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pgn") {
			continue
		}
		info, err := ParseHeader(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		games = append(games, *info)
	}
	return games, nil
}
