package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"parley/internal/config"
	"parley/internal/store"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]store.Status, 0, len(statusFilters))
			for _, raw := range statusFilters {
				status := store.Status(strings.ToLower(strings.TrimSpace(raw)))
				if !status.Valid() {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				recs, err := st.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					if recs == nil {
						recs = []*store.Recording{}
					}
					return writeJSON(cmd, recs)
				}
				out := cmd.OutOrStdout()
				if len(recs) == 0 {
					fmt.Fprintln(out, "No recordings")
					return nil
				}
				rows := make([][]string, 0, len(recs))
				for _, rec := range recs {
					rows = append(rows, []string{
						shortID(rec.ID),
						rec.Title,
						string(rec.Status),
						strconv.Itoa(rec.ChunkCount),
						formatDuration(rec.DurationSeconds),
						describeProgress(rec),
						formatTimestamp(rec.UpdatedAt),
					})
				}
				writeTable(out,
					[]string{"ID", "Title", "Status", "Chunks", "Duration", "Progress", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFilters, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
