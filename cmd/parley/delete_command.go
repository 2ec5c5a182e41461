package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/config"
	"parley/internal/store"
)

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a recording with its transcript and speakers",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				rec, err := st.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if rec.Status.IsProcessing() && !force {
					return fmt.Errorf("recording %s is %s; use --force to delete it anyway", shortID(rec.ID), rec.Status)
				}
				deleted, err := st.Delete(cmd.Context(), rec.ID)
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("recording %s not found", shortID(rec.ID))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", shortID(rec.ID), rec.Title)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Delete even if the recording appears to be processing")
	return cmd
}
