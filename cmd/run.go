package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/strandsim/strand/manager"
	"github.com/strandsim/strand/sim"
)

var runCmd = &cobra.Command{
	Use:   "run <experiment.yaml>",
	Short: "Run an experiment file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exp, err := LoadExperiment(args[0])
		if err != nil {
			return err
		}

		if p := viper.GetInt("parallelism"); p > 0 {
			exp.Parallelism = p
		}

		configs, err := buildRuns(exp)
		if err != nil {
			return err
		}

		builder := manager.MakeBuilder().
			WithLogger(logrus.StandardLogger()).
			WithTracing()
		if exp.Output != "" {
			builder = builder.WithRunStore(exp.Output)
		}

		m := builder.Build()
		defer m.Close()

		handles := make([]*manager.RunHandle, 0, len(configs))
		for _, cfg := range configs {
			handles = append(handles, m.NewRun(cfg))
		}

		// Ctrl-C aborts between events; process states stay frozen.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		logrus.WithFields(logrus.Fields{
			"experiment":   exp.Name,
			"scenario":     exp.Scenario,
			"replications": exp.Replications,
			"parallelism":  exp.Parallelism,
		}).Info("starting experiment")

		snapshots := m.RunAll(ctx, handles, exp.Parallelism)

		printSummary(snapshots)

		return nil
	},
}

func init() {
	runCmd.Flags().Int("parallelism", 0,
		"number of runs to execute at once (overrides the experiment file)")
	_ = viper.BindPFlag("parallelism", runCmd.Flags().Lookup("parallelism"))

	rootCmd.AddCommand(runCmd)
}

func printSummary(snapshots []manager.TerminalSnapshot) {
	bold := color.New(color.Bold)
	bold.Printf("%-24s %-10s %-10s %12s %10s\n",
		"RUN", "SEED", "OUTCOME", "CLOCK", "EVENTS")

	for _, snap := range snapshots {
		outcome := snap.Outcome.String()
		switch snap.Outcome {
		case sim.OutcomeCompleted:
			outcome = color.GreenString(outcome)
		case sim.OutcomeExhausted:
			outcome = color.YellowString(outcome)
		case sim.OutcomeAborted:
			outcome = color.RedString(outcome)
		}

		fmt.Printf("%-24s %-10d %-10s %12.4f %10d\n",
			snap.Name, snap.Seed, outcome,
			float64(snap.FinalClock), snap.EventCount)
	}
}
