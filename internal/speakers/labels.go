package speakers

import (
	"fmt"
	"strconv"
	"strings"
)

// UnknownLabel marks a dialog speaker that could not be tied to a voice. It
// is never stored in a ReferenceSet.
const UnknownLabel = "Unknown"

// LabelPolicy maps canonical label ordinals (0, 1, 2, ... in first-seen
// order) to label strings and back. Label and Ordinal must be inverses.
type LabelPolicy interface {
	Name() string
	Label(ordinal int) string
	Ordinal(label string) (int, bool)
}

var (
	// InterviewLabels yields Interviewer, Respondent, Respondent1, Respondent2, ...
	InterviewLabels LabelPolicy = interviewLabels{}
	// NumberedLabels yields Speaker1, Speaker2, ...
	NumberedLabels LabelPolicy = numberedLabels{}
)

// PolicyByName resolves a configured labeling policy.
func PolicyByName(name string) (LabelPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "interview":
		return InterviewLabels, nil
	case "numbered":
		return NumberedLabels, nil
	default:
		return nil, fmt.Errorf("unknown labeling policy %q", name)
	}
}

type interviewLabels struct{}

func (interviewLabels) Name() string { return "interview" }

func (interviewLabels) Label(ordinal int) string {
	switch {
	case ordinal <= 0:
		return "Interviewer"
	case ordinal == 1:
		return "Respondent"
	default:
		return "Respondent" + strconv.Itoa(ordinal-1)
	}
}

func (interviewLabels) Ordinal(label string) (int, bool) {
	switch label {
	case "Interviewer":
		return 0, true
	case "Respondent":
		return 1, true
	}
	n, ok := numericSuffix(label, "Respondent")
	if !ok || n < 1 {
		return 0, false
	}
	return n + 1, true
}

type numberedLabels struct{}

func (numberedLabels) Name() string { return "numbered" }

func (numberedLabels) Label(ordinal int) string {
	if ordinal < 0 {
		ordinal = 0
	}
	return "Speaker" + strconv.Itoa(ordinal+1)
}

func (numberedLabels) Ordinal(label string) (int, bool) {
	n, ok := numericSuffix(label, "Speaker")
	if !ok || n < 1 {
		return 0, false
	}
	return n - 1, true
}

// numericSuffix parses "<prefix><digits>" without leading zeros.
func numericSuffix(label, prefix string) (int, bool) {
	digits, ok := strings.CutPrefix(label, prefix)
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || strconv.Itoa(n) != digits {
		return 0, false
	}
	return n, true
}
