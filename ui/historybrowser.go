package ui

import (
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"chessgpt-local/pgn"
	"chessgpt-local/types"
)

// HistoryBrowserUI provides a screen for browsing saved PGN game history.
type HistoryBrowserUI struct {
	flex     *tview.Flex
	gameList *tview.List
	preview  *tview.Box
	hint     *tview.TextView
	dir      string
	games    []pgn.GameInfo
	boards   map[int]*types.BoardState // cached final positions
	selected int
	onDone   func()
	onLoad   func(content string)
}

// NewHistoryBrowser creates a new history browser screen over dir.
// onLoad receives the PGN text of a game the user chose to continue.
func NewHistoryBrowser(dir string, onDone func(), onLoad func(content string)) *HistoryBrowserUI {
	hb := &HistoryBrowserUI{
		dir:    dir,
		onDone: onDone,
		onLoad: onLoad,
		boards: make(map[int]*types.BoardState),
	}

	// Game list (left panel)
	hb.gameList = tview.NewList()
	hb.gameList.SetBorder(true)
	hb.gameList.SetTitle(" Game History ")
	hb.gameList.ShowSecondaryText(false)
	hb.gameList.SetHighlightFullLine(true)
	hb.gameList.SetMainTextStyle(tcell.StyleDefault.Foreground(MenuColors.Label))
	hb.gameList.SetSelectedStyle(tcell.StyleDefault.
		Foreground(MenuColors.ButtonText).
		Background(MenuColors.ButtonFocus))

	// Preview box (right panel)
	hb.preview = tview.NewBox()
	hb.preview.SetBorder(true)
	hb.preview.SetTitle(" Preview ")
	hb.preview.SetDrawFunc(hb.drawPreview)

	hb.hint = tview.NewTextView()
	hb.hint.SetDynamicColors(true)
	hb.hint.SetBorder(false)
	hb.hint.SetText("  [dimgray]l[-] load  [dimgray]d[-] delete  [dimgray]q[-] back")

	hb.gameList.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		hb.selected = index
	})
	hb.gameList.SetInputCapture(hb.handleInput)

	// Layout: list left, preview right, hint bottom
	topRow := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(hb.gameList, 46, 0, true).
		AddItem(hb.preview, 0, 1, false)

	hb.flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 1, true).
		AddItem(hb.hint, 1, 0, false)

	hb.loadGames()
	return hb
}

// Flex returns the flex container for this UI.
func (hb *HistoryBrowserUI) Flex() *tview.Flex {
	return hb.flex
}

// Refresh reloads the game list from disk.
func (hb *HistoryBrowserUI) Refresh() {
	hb.boards = make(map[int]*types.BoardState)
	hb.loadGames()
}

// loadGames scans the history directory for PGN files.
func (hb *HistoryBrowserUI) loadGames() {
	hb.gameList.Clear()
	hb.games = nil
	hb.selected = 0

	games, err := pgn.ListGames(hb.dir)
	if err != nil || len(games) == 0 {
		hb.gameList.AddItem("[dimgray]No games found[-]", "", 0, nil)
		return
	}

	hb.games = games
	for _, g := range games {
		result := g.Result
		if result == "" || result == pgn.Unfinished {
			result = "..."
		}
		label := fmt.Sprintf("%s  %s  %s", g.Date, result, tview.Escape(g.White+" - "+g.Black))
		hb.gameList.AddItem(label, "", 0, nil)
	}
}

func (hb *HistoryBrowserUI) handleInput(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape:
		if hb.onDone != nil {
			hb.onDone()
		}
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q':
			if hb.onDone != nil {
				hb.onDone()
			}
			return nil
		case 'd':
			hb.deleteSelected()
			return nil
		case 'l':
			hb.loadSelected()
			return nil
		}
	}
	return event
}

// deleteSelected removes the currently selected game file.
func (hb *HistoryBrowserUI) deleteSelected() {
	if hb.selected < 0 || hb.selected >= len(hb.games) {
		return
	}
	os.Remove(hb.games[hb.selected].FilePath)

	hb.boards = make(map[int]*types.BoardState)
	hb.loadGames()
}

func (hb *HistoryBrowserUI) loadSelected() {
	if hb.onLoad == nil || hb.selected < 0 || hb.selected >= len(hb.games) {
		return
	}
	data, err := os.ReadFile(hb.games[hb.selected].FilePath)
	if err != nil {
		hb.hint.SetText(fmt.Sprintf("  [red]%s[-]", tview.Escape(err.Error())))
		return
	}
	hb.onLoad(string(data))
}

// drawPreview renders a mini board preview and game metadata.
func (hb *HistoryBrowserUI) drawPreview(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	if hb.selected < 0 || hb.selected >= len(hb.games) {
		return x, y, width, height
	}

	info := hb.games[hb.selected]

	// Lazy-load and cache the final position
	board, ok := hb.boards[hb.selected]
	if !ok {
		if g, err := pgn.ReplayToEnd(info.FilePath); err == nil {
			board = g.State()
			hb.boards[hb.selected] = board
		}
	}

	startX := x + 2
	startY := y + 1
	infoY := startY
	if board != nil && width >= 2*8+4 && height >= 8+6 {
		lightStyle := tcell.StyleDefault.Background(tcell.PaletteColor(180)).Foreground(tcell.PaletteColor(232))
		darkStyle := tcell.StyleDefault.Background(tcell.PaletteColor(137)).Foreground(tcell.PaletteColor(232))
		for by := 0; by < board.Height(); by++ {
			for bx := 0; bx < board.Width(); bx++ {
				style := lightStyle
				if (bx+by)%2 == 1 {
					style = darkStyle
				}
				ch := ' '
				if p := board.Board[by][bx]; !p.Empty() {
					ch = p.Glyph()
				}
				screen.SetContent(startX+bx*2, startY+by, ch, nil, style)
				screen.SetContent(startX+bx*2+1, startY+by, ' ', nil, style)
			}
		}
		infoY = startY + board.Height() + 1
	}

	infoStyle := tcell.StyleDefault.Foreground(tcell.PaletteColor(250))
	dimStyle := tcell.StyleDefault.Foreground(tcell.PaletteColor(245))

	drawText(screen, startX, infoY, info.Date, infoStyle)
	drawText(screen, startX+len(info.Date)+1, infoY, fmt.Sprintf("| %d plies", info.MoveCount), dimStyle)
	infoY++
	drawText(screen, startX, infoY, fmt.Sprintf("W: %s", info.White), dimStyle)
	infoY++
	drawText(screen, startX, infoY, fmt.Sprintf("B: %s", info.Black), dimStyle)
	infoY++
	result := info.Result
	if result == "" || result == pgn.Unfinished {
		result = "Unfinished"
	}
	if board != nil && board.Finished() {
		result += "  " + board.Outcome
	}
	resultStyle := tcell.StyleDefault.Foreground(tcell.PaletteColor(109))
	drawText(screen, startX, infoY, fmt.Sprintf("Result: %s", result), resultStyle)

	return x, y, width, height
}

// drawText writes a string to the screen at the given position.
func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	i := 0
	for _, ch := range text {
		screen.SetContent(x+i, y, ch, nil, style)
		i++
	}
}
