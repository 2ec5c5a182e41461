package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"parley/internal/config"
	"parley/internal/store"
)

func newSpeakersCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "speakers <id>",
		Short: "Show a recording's final speaker reference set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				rec, err := st.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				refs, err := st.SpeakerEmbeddings(cmd.Context(), rec.ID)
				if err != nil {
					return err
				}
				if asJSON {
					if refs == nil {
						refs = []store.Speaker{}
					}
					return writeJSON(cmd, refs)
				}
				out := cmd.OutOrStdout()
				if len(refs) == 0 {
					fmt.Fprintf(out, "No speakers stored for %s (status %s)\n", shortID(rec.ID), rec.Status)
					return nil
				}
				rows := make([][]string, 0, len(refs))
				for _, ref := range refs {
					rows = append(rows, []string{
						ref.Label,
						strconv.Itoa(ref.FirstChunk + 1),
						strconv.Itoa(ref.Embedding.Dim()),
						strconv.FormatFloat(ref.Embedding.Norm(), 'f', 3, 64),
					})
				}
				writeTable(out,
					[]string{"Label", "First chunk", "Dim", "Norm"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
				)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output speakers and embeddings as JSON")
	return cmd
}
