package main

import (
	"context"
	"fmt"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"chessgpt-local/autoplay"
	"chessgpt-local/config"
	"chessgpt-local/experiment"
	"chessgpt-local/game"
	"chessgpt-local/pgn"
	"chessgpt-local/server"
)

func newExperimentCommand(flags *globalFlags) *cobra.Command {
	var plansPath string
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Run experiment plans headless and print the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			plans, err := rt.plans(plansPath)
			if err != nil {
				return err
			}
			harness := experiment.NewHarness(plans, config.HistoryDir(), rt.logger)
			harness.OnPlanDone(func(p experiment.Plan) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p.Name, p.Result.Summary)
			})

			pair, _ := harness.Select(game.New())
			o, err := rt.orchestrator(pair)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d plans\n", harness.RunID(), len(plans))
			status := runUntilHalted(cmd.Context(), o, func(ctx context.Context) {
				o.StartExperiments(ctx, harness)
			})
			fmt.Fprintln(cmd.OutOrStdout(), status)
			if status != autoplay.StatusExperimentsEnd {
				return fmt.Errorf("experiments stopped early")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&plansPath, "plans", "", "YAML file with experiment plans (default: built-in plans)")
	return cmd
}

// runUntilHalted starts the loop and blocks until it goes idle or ctx ends.
// It returns the last status line.
func runUntilHalted(ctx context.Context, o *autoplay.Orchestrator, start func(context.Context)) string {
	halted := make(chan struct{})
	var once sync.Once
	o.OnStatus(func(string) {
		if !o.Running() {
			once.Do(func() { close(halted) })
		}
	})
	start(ctx)
	select {
	case <-halted:
	case <-ctx.Done():
		o.Stop()
	}
	return o.Snapshot().Status
}

func newServeCommand(flags *globalFlags) *cobra.Command {
	var (
		addr      string
		plansPath string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the game over a local HTTP and WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			players, err := rt.cfg.Players()
			if err != nil {
				return err
			}
			o, err := rt.orchestrator(players)
			if err != nil {
				return err
			}
			recorder := autoplay.NewRecorder(config.HistoryDir(), o, rt.logger)
			recorder.Attach()
			defer recorder.Close()

			experiments := func() autoplay.Director {
				plans, err := rt.plans(plansPath)
				if err != nil {
					rt.logger.Error("load plans, using built-in set", "err", err)
					plans = experiment.DefaultPlans()
				}
				return experiment.NewHarness(plans, config.HistoryDir(), rt.logger)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "listening on http://%s\n", addr)
			return server.New(o, experiments, rt.logger).ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&plansPath, "plans", "", "YAML file with experiment plans")
	return cmd
}

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List saved games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			games, err := pgn.ListGames(config.HistoryDir())
			if err != nil {
				return err
			}
			if len(games) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved games.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tWHITE\tBLACK\tRESULT\tMOVES\tFILE")
			for _, g := range games {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", g.Date, g.White, g.Black, g.Result, g.MoveCount, g.FileName)
			}
			return w.Flush()
		},
	}
}
