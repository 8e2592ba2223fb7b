package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"chessgpt-local/engine"
	"chessgpt-local/game"
	"chessgpt-local/logging"
	"chessgpt-local/pgn"
)

// Harness runs plans in order. It is the autoplay loop's experiment director.
type Harness struct {
	mu       sync.Mutex
	plans    []*Plan
	current  int
	runID    string
	started  time.Time
	dir      string
	logger   *log.Logger
	planDone func(p Plan)
}

// NewHarness creates a harness over plans. When historyDir is not empty every
// finished game is saved there as PGN and a JSON report is kept up to date.
func NewHarness(plans []*Plan, historyDir string, logger *log.Logger) *Harness {
	return &Harness{
		plans:   plans,
		runID:   uuid.NewString(),
		started: time.Now(),
		dir:     historyDir,
		logger:  logging.OrDiscard(logger),
	}
}

// OnPlanDone registers a callback for completed plans.
func (h *Harness) OnPlanDone(fn func(p Plan)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.planDone = fn
}

// RunID identifies this run in reports.
func (h *Harness) RunID() string {
	return h.runID
}

// Current returns the plan being played, or nil when all are complete.
func (h *Harness) Current() *Plan {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active()
}

func (h *Harness) active() *Plan {
	if h.current >= len(h.plans) {
		return nil
	}
	return h.plans[h.current]
}

// Plans returns copies of all plans.
func (h *Harness) Plans() []Plan {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Plan, len(h.plans))
	for i, p := range h.plans {
		out[i] = *p
		out[i].Played = append([]GameResult(nil), p.Played...)
	}
	return out
}

// Select returns the current plan's pair for g.
func (h *Harness) Select(g *game.Game) (engine.Pair, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	plan := h.active()
	if plan == nil {
		return engine.Pair{}, false
	}
	return plan.Select(g), true
}

// Record adds the finished game g to the current plan and advances to the
// next plan once the target game count is reached.
func (h *Harness) Record(g *game.Game) bool {
	h.mu.Lock()
	plan := h.active()
	if plan == nil {
		h.mu.Unlock()
		return false
	}

	res := GameResult{
		PGN:         strings.TrimSpace(g.Notation() + " " + g.Result()),
		Description: g.Describe(),
		Winner:      g.Winner(),
	}
	if h.dir != "" {
		pair := plan.Select(g)
		path, err := pgn.WriteGame(h.dir, pair.White.Label(), pair.Black.Label(), g)
		if err != nil {
			h.logger.Error("failed to save game", "plan", plan.Name, "err", err)
		}
		res.File = path
	}
	plan.Played = append(plan.Played, res)
	h.logger.Info(fmt.Sprintf("Game %d of %d completed", len(plan.Played), plan.Games),
		"plan", plan.Name, "winner", res.Winner, "description", res.Description)

	var done *Plan
	if len(plan.Played) >= plan.Games {
		agg := Tally(plan.Played)
		plan.Result = &agg
		plan.Done = true
		h.current++
		done = plan
		h.logger.Info(fmt.Sprintf("Completed %s! Results: %s", plan.Name, agg.Summary), "run_id", h.runID)
		if h.dir != "" {
			if _, err := h.writeReportLocked(h.dir); err != nil {
				h.logger.Error("failed to write report", "err", err)
			}
		}
	}
	more := h.current < len(h.plans)
	if next := h.active(); done != nil && next != nil {
		h.logger.Info("Starting experiment: " + next.Name)
	}
	callback := h.planDone
	h.mu.Unlock()

	if done != nil && callback != nil {
		callback(*done)
	}
	return more
}

// Report is the JSON layout of a run report.
type Report struct {
	RunID   string    `json:"run_id"`
	Started time.Time `json:"started"`
	Updated time.Time `json:"updated"`
	Plans   []*Plan   `json:"plans"`
}

// WriteReport writes the run report to dir and returns its path.
func (h *Harness) WriteReport(dir string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.writeReportLocked(dir)
}

func (h *Harness) writeReportLocked(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	report := Report{RunID: h.runID, Started: h.started, Updated: time.Now(), Plans: h.plans}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("experiment-%s_%s.json", h.started.Format("2006-01-02_150405"), h.runID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
