package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"parley/internal/config"
	"parley/internal/store"
)

func newRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Change a recording's title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				rec, err := st.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				title, err := store.ValidateTitle(strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				if err := st.UpdateTitle(cmd.Context(), rec.ID, title); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s %s\n", shortID(rec.ID), title)
				return nil
			})
		},
	}
}
