package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"printwatch/internal/alerting"
	"printwatch/internal/anomaly"
	"printwatch/internal/config"
	"printwatch/internal/telemetry"
)

func watchCmd(opts *options) *cobra.Command {
	var inputPath string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Read telemetry from stdin and write anomaly events to stdout",
		Long: `Tracks each configured signal against its own adaptive baseline and
emits WARN/ALERT events as JSON lines. An ALERT on a critical signal is
followed by a PAUSE_PRINT advisory line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}

			in := os.Stdin
			if inputPath != "" {
				f, err := os.Open(inputPath)
				if err != nil {
					return fmt.Errorf("opening input: %w", err)
				}
				defer f.Close()
				in = f
			}

			signals, err := buildSignals(cfg.Engine.Signals)
			if err != nil {
				return err
			}
			params := anomaly.Params{
				Alpha:       cfg.Engine.Alpha,
				Epsilon:     cfg.Engine.Epsilon,
				WarnZ:       cfg.Engine.WarnZ,
				AlertZ:      cfg.Engine.AlertZ,
				RunLenAlert: cfg.Engine.RunLenAlert,
				Cooldown:    time.Duration(cfg.Engine.CooldownSec * float64(time.Second)),
				TrendWindow: cfg.Engine.TrendWindow,
			}

			emitter := alerting.NewEmitter(os.Stdout)
			engine := anomaly.NewEngine(params, signals, cfg.Engine.CriticalSignals, emitter, log)
			decoder := telemetry.NewDecoder(in, log)

			log.WithField("signals", len(signals)).Info("watch starting")
			err = engine.Run(decoder)
			if errors.Is(err, alerting.ErrStreamClosed) {
				log.WithError(err).Info("output closed, stopping")
				err = nil
			}
			if dropped := decoder.Dropped(); dropped > 0 {
				log.WithField("lines", dropped).Warn("dropped malformed telemetry lines")
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "read telemetry from a file instead of stdin")
	return cmd
}

func buildSignals(configs []config.SignalConfig) ([]anomaly.Signal, error) {
	signals := make([]anomaly.Signal, 0, len(configs))
	for _, sc := range configs {
		class, err := anomaly.ParseSignalClass(sc.Class)
		if err != nil {
			return nil, err
		}
		signals = append(signals, anomaly.Signal{Name: sc.Name, Class: class})
	}
	return signals, nil
}
