package main

import (
	"context"
	"fmt"

	"codeberg.org/mutker/bard/internal/client"
	"github.com/spf13/cobra"
)

func newListenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "listen",
		Aliases: []string{"lis", "l"},
		Short:   "Print a JSON snapshot line whenever the daemon pushes one",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go handleSignals(ctx, cancel)

			return client.New(a.cfg.Socket).Listen(ctx, func(line []byte) error {
				_, err := fmt.Fprintln(a.stdout, string(line))
				return err
			})
		},
	}
}
