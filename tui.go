package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"chessgpt-local/autoplay"
	"chessgpt-local/config"
	"chessgpt-local/engine"
	"chessgpt-local/experiment"
	"chessgpt-local/ui"
)

type tuiOptions struct {
	white    string
	black    string
	pgn      string
	plans    string
	autoplay bool
	focus    bool
}

var app *tview.Application
var rootPage *tview.Pages
var gameBoard *ui.ChessBoardUI
var gameFrame *tview.Flex
var gameHint *tview.TextView
var orch *autoplay.Orchestrator

// startPlayers resolves the configured players, overridden by --white/--black.
func startPlayers(cfg *config.Config, opts *tuiOptions) (engine.Pair, error) {
	players, err := cfg.Players()
	if err != nil {
		return engine.Pair{}, err
	}
	if opts.white != "" {
		if players.White, err = engine.ParseDescriptor(opts.white); err != nil {
			return engine.Pair{}, fmt.Errorf("--white: %w", err)
		}
	}
	if opts.black != "" {
		if players.Black, err = engine.ParseDescriptor(opts.black); err != nil {
			return engine.Pair{}, fmt.Errorf("--black: %w", err)
		}
	}
	return players, nil
}

func runTUI(ctx context.Context, rt *runtime, opts *tuiOptions) error {
	players, err := startPlayers(rt.cfg, opts)
	if err != nil {
		return err
	}
	var startPGN string
	if opts.pgn != "" {
		data, err := os.ReadFile(opts.pgn)
		if err != nil {
			return fmt.Errorf("read pgn: %w", err)
		}
		startPGN = string(data)
	}
	plans, err := rt.plans(opts.plans)
	if err != nil {
		return err
	}

	orch, err = rt.orchestrator(players)
	if err != nil {
		return err
	}
	defer orch.Stop()
	recorder := autoplay.NewRecorder(config.HistoryDir(), orch, rt.logger)
	recorder.Attach()
	defer recorder.Close()

	newDirector := func() autoplay.Director {
		// Plans carry their progress, so every run gets fresh copies.
		fresh := experiment.DefaultPlans()
		if opts.plans != "" {
			fresh = copyPlans(plans)
		}
		return experiment.NewHarness(fresh, config.HistoryDir(), rt.logger)
	}

	quickStart := opts.white != "" || opts.black != "" || opts.pgn != "" || opts.autoplay || opts.focus

	app = tview.NewApplication()
	rootPage = tview.NewPages()
	rootPage.SetBorder(true).SetTitle(" ♞ chessgpt-local ")

	// Game view setup
	gameHint = tview.NewTextView()
	gameHint.SetBorder(true)
	gameHint.SetBorderPadding(0, 0, 1, 1)
	gameHint.SetTitle(" Status ")
	gameHint.SetTitleAlign(tview.AlignLeft)
	gameBoard = ui.NewChessBoard(app, rt.cfg, gameHint)
	gameBoard.ConnectOrchestrator(ctx, orch)

	gameFrame = ui.CreateGameLayout(gameBoard, gameHint)

	gameBoard.Box.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune && event.Rune() == 'q' {
			if gameBoard.PickedTile() != nil {
				gameBoard.ResetSelection()
			} else {
				gameBoard.Close()
				rootPage.SwitchToPage("setup")
			}
			return nil
		}
		switch event.Key() {
		case tcell.KeyUp:
			gameBoard.MoveSelection(0, -1)
		case tcell.KeyDown:
			gameBoard.MoveSelection(0, 1)
		case tcell.KeyLeft:
			gameBoard.MoveSelection(-1, 0)
		case tcell.KeyRight:
			gameBoard.MoveSelection(1, 0)
		case tcell.KeyEnter:
			gameBoard.Activate()
		case tcell.KeyRune:
			switch event.Rune() {
			case 'h':
				gameBoard.MoveSelection(-1, 0)
			case 'j':
				gameBoard.MoveSelection(0, 1)
			case 'k':
				gameBoard.MoveSelection(0, -1)
			case 'l':
				gameBoard.MoveSelection(1, 0)
			case 'a':
				gameBoard.ToggleAutoplay()
			case 'n':
				gameBoard.ForceMove()
			case 'r':
				gameBoard.Reset()
			case 'e':
				gameBoard.ToggleExperiments(newDirector)
			case 'f':
				if gameBoard.ToggleFocusMode() {
					ui.BuildFocusLayout(gameFrame, gameBoard)
				} else {
					ui.RebuildNormalLayout(gameFrame, gameBoard, gameHint)
				}
			}
		}
		return event
	})

	startGame := func(players engine.Pair, pgnText string, autostart bool) {
		orch.Stop()
		orch.StopExperiments()
		orch.SetPlayers(players)
		orch.Reset()
		if pgnText != "" {
			if err := orch.LoadPGN(pgnText); err != nil {
				rt.logger.Warn("load pgn", "err", err)
				showError(autoplay.StatusInvalidPGN)
				return
			}
		}
		gameBoard.ResetSelection()
		gameBoard.Refresh()
		rootPage.SwitchToPage("gameview")
		app.SetFocus(gameBoard.Box)
		if autostart {
			orch.Start(ctx)
		}
	}

	var setupUI *ui.GameSetupUI
	history := ui.NewHistoryBrowser(config.HistoryDir(),
		func() {
			rootPage.SwitchToPage("setup")
		},
		func(content string) {
			startGame(setupUI.Players(), content, false)
		},
	)

	setupUI = ui.NewGameSetup(players,
		func(p engine.Pair, pgnText string) {
			startGame(p, pgnText, false)
		},
		func() {
			history.Refresh()
			rootPage.SwitchToPage("history")
		},
		func() {
			app.Stop()
		},
	)

	rootPage.AddPage("setup", ui.CreateCenteredForm(setupUI.Form(), 70), true, !quickStart)
	rootPage.AddPage("gameview", gameFrame, true, quickStart)
	rootPage.AddPage("history", history.Flex(), true, false)

	if quickStart {
		startGame(players, startPGN, opts.autoplay)
		if opts.focus {
			gameBoard.ToggleFocusMode()
			ui.BuildFocusLayout(gameFrame, gameBoard)
		}
	}

	go func() {
		<-ctx.Done()
		app.Stop()
	}()

	rt.logger.Info("starting terminal UI", "white", players.White.String(), "black", players.Black.String())
	return app.SetRoot(rootPage, true).Run()
}

// showError shows a dismissable modal over the current page.
func showError(text string) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			rootPage.RemovePage("error")
		})
	rootPage.AddPage("error", modal, true, true)
}

func copyPlans(plans []*experiment.Plan) []*experiment.Plan {
	out := make([]*experiment.Plan, len(plans))
	for i, p := range plans {
		out[i] = &experiment.Plan{Name: p.Name, Select: p.Select, Games: p.Games}
	}
	return out
}
