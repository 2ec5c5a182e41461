package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/config"
	"parley/internal/dialog"
	"parley/internal/store"
)

type showPayload struct {
	Recording  *store.Recording  `json:"recording"`
	Transcript *store.Transcript `json:"transcript"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a recording's reconciled dialog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				rec, err := st.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				tr, err := st.Transcript(cmd.Context(), rec.ID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, showPayload{Recording: rec, Transcript: tr})
				}
				if tr == nil {
					return fmt.Errorf("recording %s has no transcript (status %s)", shortID(rec.ID), rec.Status)
				}
				out := cmd.OutOrStdout()
				if raw {
					fmt.Fprintln(out, tr.Transcription)
					return nil
				}
				text := dialog.Format(tr.Turns)
				if text == "" {
					text = tr.Dialog
				}
				fmt.Fprintln(out, text)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output recording and transcript as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the raw transcription without speaker labels")
	cmd.MarkFlagsMutuallyExclusive("json", "raw")
	return cmd
}
