package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"chessgpt-local/autoplay"
	"chessgpt-local/types"
)

// GameInfoPanel displays players, status and move history alongside the board.
type GameInfoPanel struct {
	box        *tview.TextView
	boardState *types.BoardState
	snap       autoplay.Snapshot
}

// NewGameInfoPanel creates a new game info panel.
func NewGameInfoPanel() *GameInfoPanel {
	panel := &GameInfoPanel{
		box: tview.NewTextView(),
	}

	panel.box.SetDynamicColors(true)
	panel.box.SetBorder(false)
	panel.box.SetTextAlign(tview.AlignLeft)
	panel.box.SetWordWrap(true)

	return panel
}

// Box returns the underlying tview component.
func (p *GameInfoPanel) Box() *tview.TextView {
	return p.box
}

// Update refreshes the panel from an orchestrator snapshot.
func (p *GameInfoPanel) Update(snap autoplay.Snapshot, state *types.BoardState) {
	p.snap = snap
	p.boardState = state
	p.refresh()
}

// refresh updates the panel text.
func (p *GameInfoPanel) refresh() {
	if p.boardState == nil {
		p.box.SetText("")
		return
	}

	var text string

	text += "[white::b]Game Info[-:-:-]\n"
	text += "[dimgray]──────────────────────[-:-:-]\n"
	text += fmt.Sprintf("[white]White:[-:-:-] %s\n", p.snap.Players.White.Label())
	text += fmt.Sprintf("[white]Black:[-:-:-] %s\n", p.snap.Players.Black.Label())
	text += fmt.Sprintf("[white]Ply:[-:-:-] %d\n", p.boardState.MoveNumber)

	mode := "manual"
	if p.snap.State != autoplay.Idle {
		mode = "autoplay"
	}
	if p.snap.Experiments {
		mode = "experiments"
	}
	text += fmt.Sprintf("[white]Mode:[-:-:-] %s\n", mode)
	if p.snap.Retries > 0 {
		text += fmt.Sprintf("[yellow]Retrying...%d[-]\n", p.snap.Retries)
	}
	if p.snap.Status != "" {
		text += fmt.Sprintf("\n[dimgray]%s[-]\n", tview.Escape(p.snap.Status))
	}

	moves := p.snap.History
	if len(moves) > 0 {
		text += "\n[white::b]Moves[-:-:-]\n"
		text += "[dimgray]──────────────────────[-:-:-]\n"

		// One row per full move; show the last rows that fit
		rows := (len(moves) + 1) / 2
		maxVisible := 12
		start := 0
		if rows > maxVisible {
			start = rows - maxVisible
		}
		for row := start; row < rows; row++ {
			white := moves[row*2]
			black := ""
			if row*2+1 < len(moves) {
				black = moves[row*2+1]
			}
			marker := " "
			if row == rows-1 {
				marker = "[white]>[-]"
			}
			text += fmt.Sprintf("%s[dimgray]%3d.[-] %-7s %s\n", marker, row+1, white, black)
		}
		if start > 0 {
			text += fmt.Sprintf("[dimgray]  ··· %d earlier[-]\n", start)
		}
	}

	p.box.SetText(text)
}

// CreateGameLayout creates the main game layout with board and side panel.
func CreateGameLayout(board *ChessBoardUI, hint *tview.TextView) *tview.Flex {
	mainFlex := tview.NewFlex()
	RebuildNormalLayout(mainFlex, board, hint)
	return mainFlex
}

// CreateCenteredForm creates a centered form container for the setup screen.
func CreateCenteredForm(form tview.Primitive, maxWidth int) *tview.Flex {
	centered := tview.NewFlex().SetDirection(tview.FlexColumn)
	centered.AddItem(nil, 0, 1, false)        // Left spacer
	centered.AddItem(form, maxWidth, 0, true) // Form with max width
	centered.AddItem(nil, 0, 1, false)        // Right spacer

	return centered
}

// RebuildNormalLayout restores the normal game layout with board, info panel, and hint.
func RebuildNormalLayout(gameFrame *tview.Flex, board *ChessBoardUI, hint *tview.TextView) {
	gameFrame.Clear()

	infoPanel := NewGameInfoPanel()
	board.infoPanel = infoPanel
	board.refreshHint()

	// Create horizontal flex: board | info panel
	boardRow := tview.NewFlex().SetDirection(tview.FlexColumn)
	boardRow.AddItem(board.Box, 0, 1, true)
	boardRow.AddItem(infoPanel.Box(), 30, 0, false)

	gameFrame.SetDirection(tview.FlexRow)
	gameFrame.AddItem(boardRow, 0, 1, true)
	gameFrame.AddItem(hint, 6, 0, false)
}

// BuildFocusLayout builds the focus mode layout with just the centered board.
func BuildFocusLayout(gameFrame *tview.Flex, board *ChessBoardUI) {
	gameFrame.Clear()

	boardWidth := 8*cellWidth + 3 // + rank labels
	boardHeight := 8 + 2          // + file labels

	gameFrame.SetDirection(tview.FlexRow)
	gameFrame.AddItem(nil, 0, 1, false) // top spacer

	centerRow := tview.NewFlex().SetDirection(tview.FlexColumn)
	centerRow.AddItem(nil, 0, 1, false)
	centerRow.AddItem(board.Box, boardWidth, 0, true)
	centerRow.AddItem(nil, 0, 1, false)

	gameFrame.AddItem(centerRow, boardHeight, 0, true)
	gameFrame.AddItem(nil, 0, 1, false) // bottom spacer
}
