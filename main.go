// chessgpt-local is a terminal application to play chess against language
// models, a local UCI engine, or random moves.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"chessgpt-local/autoplay"
	"chessgpt-local/config"
	"chessgpt-local/engine"
	"chessgpt-local/engine/llm"
	"chessgpt-local/engine/uci"
	"chessgpt-local/experiment"
	"chessgpt-local/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	debug      bool
}

// runtime holds everything a command needs to drive games.
type runtime struct {
	cfg     *config.Config
	logs    *logging.RuntimeLogger
	logger  *log.Logger
	pool    *uci.Pool
	players *autoplay.Players
}

func newRuntime(flags *globalFlags) (*runtime, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.Load(flags.configPath)
	} else {
		cfg, err = config.InitConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := log.InfoLevel
	if flags.debug {
		level = log.DebugLevel
	}
	logs, err := logging.New(level)
	if err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}
	logger := logs.Logger

	moveTime, err := cfg.MoveTime()
	if err != nil {
		return nil, err
	}
	pool := uci.NewPool(uci.ProcessDialer(cfg.Engine.Path, cfg.Engine.Args...), logger)

	players := &autoplay.Players{
		Engines:      pool,
		Threads:      cfg.Engine.Threads,
		MoveTime:     moveTime,
		SystemPrompt: cfg.OpenAI.SystemPrompt,
		UserPrompt:   cfg.OpenAI.UserPrompt,
		Random:       engine.NewRandomSource(),
		Logger:       logger,
	}
	if cfg.OpenAI.APIKey != "" {
		players.Backend = llm.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	} else {
		logger.Warn("no OpenAI API key configured; language model players are unavailable")
	}

	return &runtime{
		cfg:     cfg,
		logs:    logs,
		logger:  logger,
		pool:    pool,
		players: players,
	}, nil
}

// orchestrator builds the game driver with the configured delay.
func (r *runtime) orchestrator(players engine.Pair) (*autoplay.Orchestrator, error) {
	o := autoplay.New(r.players, players, r.logger)
	delay, err := r.cfg.AutoplayDelay()
	if err != nil {
		return nil, err
	}
	o.SetDelay(delay)
	return o, nil
}

// plans returns the plans from a YAML file, or the built-in set.
func (r *runtime) plans(path string) ([]*experiment.Plan, error) {
	if path == "" {
		return experiment.DefaultPlans(), nil
	}
	return experiment.LoadPlans(path)
}

func (r *runtime) Close() {
	if err := r.pool.Close(); err != nil {
		r.logger.Error("close engines", "err", err)
	}
	if err := r.logs.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close logger: %v\n", err)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	tuiFlags := &tuiOptions{}

	root := &cobra.Command{
		Use:           "chessgpt-local",
		Short:         "Play chess against language models, Stockfish, or random moves",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.Close()
			return runTUI(cmd.Context(), rt, tuiFlags)
		},
	}
	root.SetVersionTemplate("chessgpt-local {{.Version}}\n")

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default: XDG config dir)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "log engine and model traffic")

	root.Flags().StringVar(&tuiFlags.white, "white", "", "white player, e.g. gpt-4, stockfish-5, random")
	root.Flags().StringVar(&tuiFlags.black, "black", "", "black player")
	root.Flags().StringVar(&tuiFlags.pgn, "pgn", "", "start from the PGN in this file")
	root.Flags().BoolVar(&tuiFlags.autoplay, "autoplay", false, "start autoplay immediately")
	root.Flags().BoolVar(&tuiFlags.focus, "focus", false, "start in focus mode (fullscreen board)")
	root.Flags().StringVar(&tuiFlags.plans, "plans", "", "experiment plans YAML used by the e key")

	root.AddCommand(
		newExperimentCommand(flags),
		newServeCommand(flags),
		newHistoryCommand(),
	)
	return root
}
