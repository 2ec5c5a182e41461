package dialog

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Turn is one consolidated speaker turn.
type Turn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

var turnPattern = regexp.MustCompile(`(?i)^(SPEAKER_\d+|Interviewer|Respondent\d*|Speaker\s*\d*|Unknown):\s*(?:\[[^\]]*\])?\s*(.*)$`)

// Parse splits diarized text into turns. Consecutive turns by the same
// speaker are merged, and turns with no text are dropped.
func Parse(text string) []Turn {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var turns []Turn
	var current *Turn
	flush := func() {
		if current != nil && current.Text != "" {
			turns = append(turns, *current)
		}
	}

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := turnPattern.FindStringSubmatch(line); m != nil {
			flush()
			current = &Turn{Speaker: NormalizeSpeaker(m[1]), Text: strings.TrimSpace(m[2])}
			continue
		}
		if current != nil {
			current.Text = strings.TrimSpace(current.Text + " " + line)
		}
	}
	flush()

	return Consolidate(turns)
}

// NormalizeSpeaker maps raw diarizer labels onto display labels. SPEAKER_00
// and SPEAKER_01 become Interviewer and Respondent; role and speaker labels
// are title-cased; any other SPEAKER_NN label is kept as is.
func NormalizeSpeaker(raw string) string {
	raw = strings.TrimSpace(raw)
	switch strings.ToUpper(raw) {
	case "SPEAKER_00":
		return "Interviewer"
	case "SPEAKER_01":
		return "Respondent"
	}
	if strings.HasPrefix(strings.ToUpper(raw), "SPEAKER_") {
		return raw
	}
	return cases.Title(language.Und).String(raw)
}

// Consolidate merges consecutive turns by the same speaker.
func Consolidate(turns []Turn) []Turn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]Turn, 0, len(turns))
	current := turns[0]
	for _, turn := range turns[1:] {
		if turn.Speaker == current.Speaker {
			current.Text = joinText(current.Text, turn.Text)
			continue
		}
		out = append(out, current)
		current = turn
	}
	return append(out, current)
}

// Format renders turns back into "Speaker: text" lines.
func Format(turns []Turn) string {
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(turn.Speaker)
		b.WriteString(": ")
		b.WriteString(turn.Text)
	}
	return b.String()
}

func joinText(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
