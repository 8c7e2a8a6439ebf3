// Command shardfec plans, simulates and runs FEC-protected video transport
// over QUIC datagrams.
package main

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/shardfec/shardfec/internal/config"
)

var log = logging.Logger("shardfec")

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "shardfec",
		Short:         "Reed-Solomon protected video frames over QUIC datagrams",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	root.AddCommand(
		newPlanCmd(opts),
		newSimulateCmd(opts),
		newServeCmd(opts),
		newSendCmd(opts),
	)
	return root
}

func (o *options) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	level, err := logging.LevelFromString(cfg.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "log level %q", cfg.LogLevel)
	}
	logging.SetAllLoggers(level)
	o.cfg = cfg
	return nil
}

// redundancyFlag registers --redundancy and applies it to the loaded config
// when set.
func redundancyFlag(cmd *cobra.Command, o *options) func() error {
	var pct int
	cmd.Flags().IntVar(&pct, "redundancy", 0, "parity percentage (defaults to the config value)")
	return func() error {
		if cmd.Flags().Changed("redundancy") {
			o.cfg.Redundancy = pct
		}
		return o.cfg.Validate()
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
