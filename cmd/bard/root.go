package main

import (
	"io"

	"codeberg.org/mutker/bard/internal/config"
	"codeberg.org/mutker/bard/internal/logger"
	"github.com/spf13/cobra"
)

// app carries state shared by the subcommands after flag parsing.
type app struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "bard",
		Short: "Desktop status bar daemon",
		Long: `bard runs a daemon that reports volume, brightness, bluetooth, battery,
memory and fan profile state over a local socket. The same binary queries and
changes that state, or listens for live JSON snapshots.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	config.Flags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newDaemonCmd(a),
		newGetCmd(a),
		newSetCmd(a),
		newListenCmd(a),
	)

	return rootCmd
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.stdout = cmd.OutOrStdout()
	a.stderr = cmd.ErrOrStderr()

	level, _ := logger.ParseLevel(cfg.LogLevel)
	if cmd.Name() == "daemon" {
		logger.Init(level, logger.IsService())
	} else {
		// client output goes to stdout, keep it clean
		logger.InitWithWriter(a.stderr, level, false)
	}
	logger.Debug().Str("socket", cfg.Socket).Msg("Config loaded")

	return nil
}
