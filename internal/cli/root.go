// Package cli wires configuration, logging, and signal handling around the
// printwatch subcommands. Every subcommand keeps stdout for data and sends
// diagnostics to stderr so the stages compose with shell pipes.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"printwatch/internal/config"
)

// options carries the persistent flag values shared by the subcommands.
type options struct {
	configPath string
	logLevel   string
}

// New builds the printwatch root command.
func New() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "printwatch",
		Short: "Anomaly watch for 3D-printer telemetry",
		Long: `printwatch is a pipeline of three line-oriented stages:

  printwatch simulate | printwatch watch
  printwatch simulate | printwatch bridge

simulate writes synthetic printer telemetry to stdout, watch reads
telemetry from stdin and writes anomaly events to stdout, and bridge
fans stdin out to WebSocket listeners. Each stage also runs on its own
against real data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "diagnostic log level (overrides config)")

	cmd.AddCommand(simulateCmd(opts))
	cmd.AddCommand(watchCmd(opts))
	cmd.AddCommand(bridgeCmd(opts))
	return cmd
}

// setup loads configuration and builds the diagnostic logger.
func (o *options) setup() (*config.Config, *logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(o.configPath, log)
	if err != nil {
		return nil, nil, err
	}

	levelName := cfg.Log.Level
	if o.logLevel != "" {
		levelName = o.logLevel
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", levelName, err)
	}
	log.SetLevel(level)
	return cfg, log, nil
}
