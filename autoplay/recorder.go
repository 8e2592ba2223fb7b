package autoplay

import (
	"sync"

	"github.com/charmbracelet/log"

	"chessgpt-local/game"
	"chessgpt-local/logging"
	"chessgpt-local/pgn"
	"chessgpt-local/types"
)

// Recorder keeps a PGN file in dir up to date with the orchestrator's game.
// Experiment games are skipped; the experiment harness stores those itself.
type Recorder struct {
	mu     sync.Mutex
	dir    string
	orch   *Orchestrator
	logger *log.Logger
	rec    *pgn.GameRecord
	gameID uint64
}

// NewRecorder creates a recorder writing to dir. Nothing is recorded until
// Attach is called.
func NewRecorder(dir string, o *Orchestrator, logger *log.Logger) *Recorder {
	return &Recorder{dir: dir, orch: o, logger: logging.OrDiscard(logger)}
}

// Attach subscribes the recorder to moves, game ends and board changes.
func (r *Recorder) Attach() {
	r.orch.OnMove(r.onMove)
	r.orch.OnGameEnd(r.onGameEnd)
	r.orch.OnStatus(r.onStatus)
}

func (r *Recorder) onMove(game.Color, game.Move, *types.BoardState) {
	snap := r.orch.Snapshot()
	if snap.Experiments {
		return
	}
	g := r.orch.Game()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeStaleLocked(snap.GameID)
	if r.rec == nil {
		rec, err := pgn.NewGameRecord(r.dir, snap.Players.White.Label(), snap.Players.Black.Label())
		if err != nil {
			r.logger.Error("create game record", "err", err)
			return
		}
		r.logger.Info("recording game", "file", rec.FilePath)
		r.rec = rec
		r.gameID = snap.GameID
	}
	if err := r.rec.SetGame(g); err != nil {
		r.logger.Error("write game record", "file", r.rec.FilePath, "err", err)
	}
}

// onStatus finishes the record as soon as the board is reset or replaced.
func (r *Recorder) onStatus(string) {
	id := r.orch.Snapshot().GameID
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeStaleLocked(id)
}

func (r *Recorder) closeStaleLocked(id uint64) {
	if r.rec != nil && r.gameID != id {
		r.rec.Close()
		r.rec = nil
	}
}

func (r *Recorder) onGameEnd(outcome string, _ game.Winner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec == nil {
		return
	}
	if err := r.rec.SetResult(outcome); err != nil {
		r.logger.Error("write game result", "file", r.rec.FilePath, "err", err)
	}
	r.rec.Close()
	r.rec = nil
}

// Path returns the file of the game being recorded, or "".
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec == nil {
		return ""
	}
	return r.rec.FilePath
}

// Close finishes the current record, leaving its result unfinished.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec != nil {
		r.rec.Close()
		r.rec = nil
	}
}
