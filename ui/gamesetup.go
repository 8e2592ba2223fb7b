// Package ui provides terminal UI components for chessgpt-local.
package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"chessgpt-local/engine"
)

// GameSetupUI provides a form for choosing the players of a new game.
type GameSetupUI struct {
	form      *tview.Form
	flex      *tview.Flex
	options   []engine.Descriptor
	players   engine.Pair
	pgnInput  string
	onStart   func(players engine.Pair, pgn string)
	onHistory func()
	onCancel  func()
}

func indexOf(options []engine.Descriptor, d engine.Descriptor) int {
	for i, o := range options {
		if o == d {
			return i
		}
	}
	return 0
}

// NewGameSetup creates a new game setup form preselecting players.
// onStart receives the chosen players and an optional PGN to continue from.
func NewGameSetup(players engine.Pair, onStart func(engine.Pair, string), onHistory func(), onCancel func()) *GameSetupUI {
	setup := &GameSetupUI{
		options:   engine.Options(),
		players:   players,
		onStart:   onStart,
		onHistory: onHistory,
		onCancel:  onCancel,
	}

	labels := make([]string, len(setup.options))
	for i, o := range setup.options {
		labels[i] = o.Label()
	}

	form := tview.NewForm()

	form.AddDropDown("White", labels, indexOf(setup.options, players.White), func(option string, index int) {
		if index >= 0 {
			setup.players.White = setup.options[index]
		}
	})

	form.AddDropDown("Black", labels, indexOf(setup.options, players.Black), func(option string, index int) {
		if index >= 0 {
			setup.players.Black = setup.options[index]
		}
	})

	form.AddInputField("PGN (optional)", "", 0, nil, func(text string) {
		setup.pgnInput = text
	})

	form.AddButton("Start Game", func() {
		onStart(setup.players, setup.pgnInput)
	})

	form.AddButton("History", func() {
		if onHistory != nil {
			onHistory()
		}
	})

	form.AddButton("Quit", func() {
		onCancel()
	})

	form.SetBorder(true)
	form.SetTitle(" New Game ")
	form.SetTitleAlign(tview.AlignCenter)
	form.SetButtonBackgroundColor(MenuColors.ButtonBG)
	form.SetButtonTextColor(MenuColors.ButtonText)
	form.SetBorderColor(MenuColors.Border)
	form.SetTitleColor(MenuColors.Title)
	form.SetLabelColor(MenuColors.Label)
	form.SetFieldBackgroundColor(MenuColors.FieldBG)

	helpText := tview.NewTextView().
		SetText("Tab/Shift+Tab: navigate fields  |  Arrow keys: change dropdown  |  Enter: confirm").
		SetTextAlign(tview.AlignCenter)
	helpText.SetTextColor(MenuColors.Hint)

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(form, 0, 1, true).
		AddItem(helpText, 1, 0, false)

	setup.form = form
	setup.flex = flex
	return setup
}

// Form returns the flex container with form and help text.
func (s *GameSetupUI) Form() *tview.Flex {
	return s.flex
}

// Players returns the current selection.
func (s *GameSetupUI) Players() engine.Pair {
	return s.players
}

// SetInputCapture sets the input capture function for the form.
func (s *GameSetupUI) SetInputCapture(capture func(event *tcell.EventKey) *tcell.EventKey) {
	s.form.SetInputCapture(capture)
}
