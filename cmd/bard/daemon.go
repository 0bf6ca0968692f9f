package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/bard/internal/daemon"
	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/logger"
	"github.com/spf13/cobra"
)

func newDaemonCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "daemon",
		Aliases: []string{"dae", "d"},
		Short:   "Run the daemon in the foreground",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := daemon.New(a.cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go handleSignals(ctx, cancel)

			if err := d.Run(ctx); err != nil {
				logFailure(err)
				return err
			}

			logger.Info().Msg("Exiting...")

			return nil
		},
	}
}

// logFailure logs err with its error code when it carries one.
func logFailure(err error) {
	var coded errors.Error
	if errors.As(err, &coded) {
		logger.ErrorWithCode(coded).Msg("Daemon failed")
		return
	}

	logger.Error().Err(err).Msg("Daemon failed")
}

func handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		logger.Info().Msg("Received termination signal.")
		cancel()
	case <-ctx.Done():
	}
}
