package main

import (
	"github.com/spf13/cobra"

	"github.com/listenupapp/doujinshelf/internal/di/providers"
	"github.com/listenupapp/doujinshelf/internal/errors"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [path...]",
		Short: "Add galleries as they appear in watched folders",
		Long: `Watch follows the given folders, or the library root when none are given,
and ingests every gallery created or moved into them until interrupted.
Removing files never deletes galleries.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			roots := args
			if len(roots) == 0 {
				if cfg.Library.Root == "" {
					return errors.Validation("no folders given and library.root is not set")
				}
				roots = []string{cfg.Library.Root}
			}

			h, err := invoke[*providers.FileWatcherHandle](ctx)
			if err != nil {
				return err
			}
			return h.Run(cmd.Context(), roots)
		},
	}
}
