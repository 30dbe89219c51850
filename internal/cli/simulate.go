package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"printwatch/internal/config"
	"printwatch/internal/simulator"
)

func simulateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "Write synthetic printer telemetry to stdout",
		Long: `Emits one JSON telemetry record per line at the configured tick rate,
with scripted fault episodes so the watch stage has something to find.
Stops on SIGINT/SIGTERM or when the downstream consumer goes away.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			schedule, err := buildSchedule(cfg.Simulator.Schedule)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sim := simulator.New(cfg.Simulator.TickHz, schedule, cfg.Simulator.Seed, os.Stdout, log)
			log.WithFields(logrus.Fields{
				"tick_hz": cfg.Simulator.TickHz,
				"windows": len(schedule),
			}).Info("simulator starting")
			return sim.Run(ctx)
		},
	}
}

func buildSchedule(windows []config.FaultWindow) (simulator.Schedule, error) {
	schedule := make(simulator.Schedule, 0, len(windows))
	for _, w := range windows {
		faults := make([]simulator.Fault, 0, len(w.Faults))
		for _, name := range w.Faults {
			f, err := simulator.ParseFault(name)
			if err != nil {
				return nil, err
			}
			faults = append(faults, f)
		}
		schedule = append(schedule, simulator.Window{Start: w.StartSec, End: w.EndSec, Faults: faults})
	}
	return schedule, nil
}
