package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"parley/internal/store"
)

const shortIDLength = 8

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func describeProgress(rec *store.Recording) string {
	switch rec.Status {
	case store.StatusFailed:
		if rec.FailedChunk != nil {
			return fmt.Sprintf("failed at chunk %d/%d", *rec.FailedChunk+1, rec.ChunkCount)
		}
		return "failed"
	case store.StatusCompleted:
		return "done"
	}
	if msg := strings.TrimSpace(rec.ProgressMessage); msg != "" {
		return fmt.Sprintf("%s (%.0f%%)", msg, rec.ProgressPercent)
	}
	return "-"
}

// writeJSON prints v to stdout for the --json flags.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
