package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"parley/internal/config"
	"parley/internal/store"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add <file>...",
		Short: "Register audio files as pending recordings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) != "" && len(args) > 1 {
				return errors.New("--title can only be used with a single file")
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				svc, err := ctx.recordingService(cfg, st, false)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, path := range args {
					rec, err := svc.Add(cmd.Context(), path, title)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Added %s %s\n", shortID(rec.ID), rec.Title)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Recording title (defaults to the file name)")
	return cmd
}
