package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"parley/internal/config"
	"parley/internal/deps"
	"parley/internal/preflight"
	"parley/internal/store"
)

type statusReport struct {
	Dependencies []deps.Status      `json:"dependencies"`
	Checks       []preflight.Result `json:"checks"`
	Database     *store.Health      `json:"database,omitempty"`
	DatabaseErr  string             `json:"database_error,omitempty"`
}

func (r statusReport) failures() int {
	count := len(preflight.Failed(r.Checks))
	for _, dep := range r.Dependencies {
		if !dep.Available && !dep.Optional {
			count++
		}
	}
	if r.DatabaseErr != "" || (r.Database != nil && !r.Database.Integrity) {
		count++
	}
	return count
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check dependencies, directories, the endpoint, and the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				report := collectStatus(cmd, ctx, cfg, st)
				if asJSON {
					if err := writeJSON(cmd, report); err != nil {
						return err
					}
				} else {
					printStatus(cmd, report)
				}
				if n := report.failures(); n > 0 {
					return fmt.Errorf("%d status check(s) failed", n)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func collectStatus(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, st *store.Store) statusReport {
	report := statusReport{Dependencies: preflight.CheckSystemDeps(cfg)}

	client, err := ctx.endpointClient(cfg)
	if err != nil {
		report.Checks = preflight.RunAll(cmd.Context(), cfg, nil)
		report.Checks = append(report.Checks, preflight.Result{Name: "Diarization endpoint", Detail: err.Error()})
	} else {
		report.Checks = preflight.RunAll(cmd.Context(), cfg, client)
	}

	health, err := st.CheckHealth(cmd.Context())
	if err != nil {
		report.DatabaseErr = err.Error()
	} else {
		report.Database = &health
	}
	return report
}

func printStatus(cmd *cobra.Command, report statusReport) {
	out := cmd.OutOrStdout()
	colorize := isTerminal(out)

	var lines []string
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	lines = append(lines, dependencyLines(report.Dependencies, colorize)...)
	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Preflight", colorize)...)
	lines = append(lines, preflightLines(report.Checks, colorize)...)
	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Database", colorize)...)
	lines = append(lines, databaseLines(report, colorize)...)

	fmt.Fprintln(out, strings.Join(lines, "\n"))
}

func databaseLines(report statusReport, colorize bool) []string {
	if report.DatabaseErr != "" {
		return []string{renderStatusLine("Database", statusError, report.DatabaseErr, colorize)}
	}
	h := report.Database
	if h == nil {
		return []string{renderStatusLine("Database", statusError, "no health report", colorize)}
	}
	integrity := statusOK
	if !h.Integrity {
		integrity = statusError
	}
	lines := []string{
		renderStatusLine("Path", statusInfo, h.Path, colorize),
		renderStatusLine("Schema version", statusInfo, fmt.Sprintf("%d", h.SchemaVersion), colorize),
		renderStatusLine("Integrity", integrity, yesNo(h.Integrity), colorize),
		renderStatusLine("Recordings", statusInfo, fmt.Sprintf("%d", h.Recordings), colorize),
	}
	statuses := make([]string, 0, len(h.ByStatus))
	for status := range h.ByStatus {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		lines = append(lines, renderStatusLine("  "+status, statusInfo, fmt.Sprintf("%d", h.ByStatus[store.Status(status)]), colorize))
	}
	return lines
}
