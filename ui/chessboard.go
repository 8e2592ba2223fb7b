// Package ui specifies custom controls for tview to assist in playing chess in the terminal.
package ui

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"chessgpt-local/autoplay"
	"chessgpt-local/config"
	"chessgpt-local/game"
	"chessgpt-local/types"
)

// cellWidth is the number of terminal columns per square.
const cellWidth = 3

type ChessBoardUI struct {
	Box        *tview.Box
	BoardState *types.BoardState
	hint       *tview.TextView
	cfg        *config.Config
	selX       int
	selY       int
	picked     *types.BoardPos
	app        *tview.Application
	orch       *autoplay.Orchestrator
	ctx        context.Context
	styles     []tcell.Color
	infoPanel  *GameInfoPanel
	focusMode  bool
}

// ToggleFocusMode toggles focus mode and returns the new state.
func (g *ChessBoardUI) ToggleFocusMode() bool {
	g.focusMode = !g.focusMode
	g.refreshHint()
	return g.focusMode
}

// IsFocusMode returns true if focus mode is enabled.
func (g *ChessBoardUI) IsFocusMode() bool {
	return g.focusMode
}

func (g *ChessBoardUI) SelectedTile() *types.BoardPos {
	if g.selX == -1 && g.selY == -1 {
		return nil
	}
	return &types.BoardPos{X: g.selX, Y: g.selY}
}

// PickedTile returns the square a piece was lifted from, if any.
func (g *ChessBoardUI) PickedTile() *types.BoardPos {
	return g.picked
}

func (g *ChessBoardUI) MoveSelection(h, v int) {
	if g.BoardState.Finished() {
		g.ResetSelection()
		return
	}
	if g.SelectedTile() == nil {
		if pos, ok := types.PosFromSquare(g.BoardState.LastMove.To); ok {
			g.selX, g.selY = pos.X, pos.Y
			return
		}
		// No previous move made, start on the side to move's king pawn
		g.selX, g.selY = 4, 6
		if g.BoardState.PlayerToMove == int(game.Black) {
			g.selY = 1
		}
		return
	}
	if g.selX+h < 0 || g.selX+h >= g.BoardState.Width() {
		return
	}
	if g.selY+v < 0 || g.selY+v >= g.BoardState.Height() {
		return
	}
	g.selX += h
	g.selY += v
}

// ResetSelection drops the lifted piece first, then the cursor.
func (g *ChessBoardUI) ResetSelection() {
	if g.picked != nil {
		g.picked = nil
		g.refreshHint()
		return
	}
	g.selX = -1
	g.selY = -1
}

func NewChessBoard(app *tview.Application, c *config.Config, hint *tview.TextView) *ChessBoardUI {
	board := &ChessBoardUI{
		Box:        tview.NewBox(),
		BoardState: types.NewBoardState(),
		hint:       hint,
		app:        app,
		ctx:        context.Background(),
		selX:       -1,
		selY:       -1,
	}
	board.SetConfig(c)
	board.Box.SetDrawFunc(func(screen tcell.Screen, x int, y int, width int, height int) (int, int, int, int) {
		state := board.BoardState
		if state == nil || state.Width() == 0 {
			return x, y, 1, 1
		}
		boardW, boardH := state.Width()*cellWidth, state.Height()
		left := x + 3

		lastFrom, _ := types.PosFromSquare(state.LastMove.From)
		lastTo, hasLast := types.PosFromSquare(state.LastMove.To)

		for by := 0; by < state.Height(); by++ {
			for bx := 0; bx < state.Width(); bx++ {
				piece := state.Board[by][bx]
				bg := board.styles[0]
				if (bx+by)%2 == 1 {
					bg = board.styles[1]
				}
				pos := types.BoardPos{X: bx, Y: by}
				isCursor := bx == board.selX && by == board.selY
				switch {
				case board.picked != nil && *board.picked == pos:
					bg = board.styles[5]
				case isCursor && board.cfg.Theme.DrawCursorBackground:
					bg = board.styles[4]
				case hasLast && board.cfg.Theme.DrawLastMoveBackground && (pos == lastFrom || pos == lastTo):
					bg = board.styles[6]
				}

				drawRune := board.cfg.Theme.Symbols.EmptySquare
				fg := board.styles[7]
				if !piece.Empty() {
					drawRune = piece.Glyph()
					fg = board.styles[3]
					if piece.White {
						fg = board.styles[2]
					}
				} else if isCursor && !board.cfg.Theme.DrawCursorBackground {
					drawRune = board.cfg.Theme.Symbols.Cursor
				}
				drawSquare(screen, tcell.StyleDefault.Background(bg).Foreground(fg), drawRune, bx, by, left, y)
			}
		}
		if board.cfg.Theme.ShowCoordinates {
			drawCoordinates(screen, x, y, board)
		}
		return x, y, boardW + 3, boardH + 2
	})
	return board
}

// ConnectOrchestrator attaches the board to the game driver.
func (g *ChessBoardUI) ConnectOrchestrator(ctx context.Context, o *autoplay.Orchestrator) {
	g.orch = o
	g.ctx = ctx

	o.OnMove(func(_ game.Color, _ game.Move, state *types.BoardState) {
		g.BoardState = state
		g.refreshHint()
		// Spawn goroutine to avoid deadlock when called from main thread
		go func() {
			g.app.QueueUpdateDraw(func() {})
		}()
	})

	o.OnGameEnd(func(string, game.Winner) {
		g.picked = nil
		g.refreshHint()
		go func() {
			g.app.QueueUpdateDraw(func() {})
		}()
	})

	o.OnStatus(func(string) {
		g.Refresh()
	})

	g.BoardState = o.Snapshot().Board
	g.refreshHint()
}

// Refresh reloads the board from the orchestrator and redraws.
func (g *ChessBoardUI) Refresh() {
	if g.orch == nil {
		return
	}
	g.BoardState = g.orch.Snapshot().Board
	g.refreshHint()
	go func() {
		g.app.QueueUpdateDraw(func() {})
	}()
}

// Activate lifts the piece under the cursor, or drops the lifted piece there.
func (g *ChessBoardUI) Activate() {
	sel := g.SelectedTile()
	if sel == nil || g.orch == nil || g.BoardState.Finished() {
		return
	}
	if g.picked == nil {
		piece := g.BoardState.Board[sel.Y][sel.X]
		if piece.Empty() || piece.White != (g.BoardState.PlayerToMove == int(game.White)) {
			return
		}
		g.picked = sel
		g.refreshHint()
		return
	}
	from := *g.picked
	g.picked = nil
	if from == *sel {
		g.refreshHint()
		return
	}
	move := game.Move{From: from.Square(), To: sel.Square()}
	if err := g.orch.PlayMove(g.ctx, move); err != nil {
		g.hint.SetText(fmt.Sprintf("  Illegal move: %s%s\n\n  hjkl/↑↓←→ move   ⏎ pick/drop", move.From, move.To))
		return
	}
}

// ToggleAutoplay starts or stops the autoplay loop.
func (g *ChessBoardUI) ToggleAutoplay() {
	if g.orch == nil {
		return
	}
	if g.orch.Running() {
		g.orch.Stop()
	} else {
		g.orch.Start(g.ctx)
	}
	g.refreshHint()
}

// ForceMove asks the side to move for one move in the background.
func (g *ChessBoardUI) ForceMove() {
	if g.orch == nil {
		return
	}
	go g.orch.ForceMove(g.ctx)
}

// ToggleExperiments runs the plans built by newDirector, or stops a run in progress.
func (g *ChessBoardUI) ToggleExperiments(newDirector func() autoplay.Director) {
	if g.orch == nil {
		return
	}
	if g.orch.Snapshot().Experiments {
		g.orch.StopExperiments()
	} else {
		g.picked = nil
		g.orch.Reset()
		g.orch.StartExperiments(g.ctx, newDirector())
	}
	g.Refresh()
}

// Reset starts a new game.
func (g *ChessBoardUI) Reset() {
	if g.orch == nil {
		return
	}
	g.picked = nil
	g.orch.Reset()
}

// Close stops autoplay.
func (g *ChessBoardUI) Close() {
	if g.orch == nil {
		return
	}
	g.orch.Stop()
}

func (g *ChessBoardUI) SetConfig(c *config.Config) {
	g.styles = []tcell.Color{
		tcell.PaletteColor(c.Theme.Colors.LightSquare), // 0
		tcell.PaletteColor(c.Theme.Colors.DarkSquare),  // 1
		tcell.PaletteColor(c.Theme.Colors.WhitePiece),  // 2
		tcell.PaletteColor(c.Theme.Colors.BlackPiece),  // 3
		tcell.PaletteColor(c.Theme.Colors.CursorBG),    // 4
		tcell.PaletteColor(c.Theme.Colors.SelectedBG),  // 5
		tcell.PaletteColor(c.Theme.Colors.LastMoveBG),  // 6
		tcell.PaletteColor(c.Theme.Colors.Coordinates), // 7
	}
	g.cfg = c
}

func (g *ChessBoardUI) refreshHint() {
	var snap autoplay.Snapshot
	if g.orch != nil {
		snap = g.orch.Snapshot()
	}
	if g.infoPanel != nil {
		g.infoPanel.Update(snap, g.BoardState)
	}

	if g.focusMode {
		g.hint.SetText("  f to toggle")
		return
	}

	var statusLine, turnLine, controlsLine string
	if g.BoardState.Finished() {
		statusLine = "───────── Game Complete ─────────\n\n"
		turnLine = fmt.Sprintf("  Result: %s\n", g.BoardState.Outcome)
		controlsLine = "\n  r new game   e experiments   q menu"
	} else {
		if snap.State != autoplay.Idle {
			statusLine = "  ▶ Autoplay\n\n"
		}
		if g.picked != nil {
			turnLine = fmt.Sprintf("  Moving from %s\n", g.picked.Square())
		} else {
			turnLine = fmt.Sprintf("  %s\n", g.BoardState.Outcome)
		}
		controlsLine = `
  hjkl/↑↓←→ move   ⏎ pick/drop
  a autoplay   n next move   r reset
  e experiments   f focus   q quit`
	}
	g.hint.SetText(fmt.Sprintf("%s%s%s", statusLine, turnLine, controlsLine))
}

// IsFinished returns true if the game is over.
func (g *ChessBoardUI) IsFinished() bool {
	return g.BoardState.Finished()
}

// drawSquare draws one square, cellWidth characters wide, piece centered.
func drawSquare(s tcell.Screen, c tcell.Style, r rune, x, y, l, t int) {
	s.SetContent(l+x*cellWidth, t+y, ' ', nil, c)
	s.SetContent(l+x*cellWidth+1, t+y, r, nil, c)
	s.SetContent(l+x*cellWidth+2, t+y, ' ', nil, c)
}

func drawCoordinates(s tcell.Screen, x, y int, ui *ChessBoardUI) {
	w, h := ui.BoardState.Width(), ui.BoardState.Height()
	style := tcell.StyleDefault.Foreground(ui.styles[7])
	highlight := tcell.StyleDefault.Background(ui.styles[4])

	for ix := 0; ix < w; ix++ {
		_style := style
		if ix == ui.selX {
			_style = highlight
		}
		s.SetContent(x+3+ix*cellWidth+1, y+h, rune('a'+ix), nil, _style)
	}
	for iy := 0; iy < h; iy++ {
		_style := style
		if iy == ui.selY {
			_style = highlight
		}
		// Row 0 is rank 8
		s.SetContent(x+1, y+iy, rune('8'-iy), nil, _style)
	}
}
