package recording

import (
	"fmt"
	"time"
)

// chunkProgress turns orchestrator chunk transitions into the progress line
// stored on a recording. Remaining time is extrapolated from the mean time
// per finished chunk.
type chunkProgress struct {
	started time.Time
	now     func() time.Time
}

func newChunkProgress(now func() time.Time) *chunkProgress {
	if now == nil {
		now = time.Now
	}
	return &chunkProgress{started: now(), now: now}
}

// update reports the line and percentage for chunk (zero-based) of total
// starting now.
func (p *chunkProgress) update(chunk, total int) (string, float64) {
	message := fmt.Sprintf("chunk %d/%d", chunk+1, total)
	percent := float64(chunk) / float64(total) * 100
	if chunk > 0 {
		perChunk := p.now().Sub(p.started) / time.Duration(chunk)
		message += ", " + formatETA(perChunk*time.Duration(total-chunk))
	}
	return message, percent
}

func formatETA(remaining time.Duration) string {
	remaining = remaining.Round(time.Second)
	switch {
	case remaining <= 0:
		return "almost done"
	case remaining < time.Minute:
		return fmt.Sprintf("~%ds left", int(remaining.Seconds()))
	case remaining < time.Hour:
		return fmt.Sprintf("~%dm %ds left", int(remaining.Minutes()), int(remaining.Seconds())%60)
	default:
		return fmt.Sprintf("~%dh %dm left", int(remaining.Hours()), int(remaining.Minutes())%60)
	}
}
