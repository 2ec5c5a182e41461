package dialog

import "strings"

// Speakers returns the raw speaker labels that open turns in text, in order
// of first appearance.
func Speakers(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		m := turnPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		label := strings.TrimSpace(m[1])
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

// Relabel rewrites the label that opens each line according to mapping. All
// labels are swapped in one pass, so a mapping such as A->B, B->A is safe.
// Labels absent from mapping, and text after the label, are left untouched.
func Relabel(text string, mapping map[string]string) string {
	if len(mapping) == 0 || text == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		head := line[:colon]
		label := strings.TrimSpace(head)
		replacement, ok := mapping[label]
		if !ok || replacement == label {
			continue
		}
		indent := head[:len(head)-len(strings.TrimLeft(head, " \t"))]
		lines[i] = indent + replacement + line[colon:]
	}
	return strings.Join(lines, "\n")
}

// Merge joins per-chunk dialog text with newlines, skipping empty parts.
func Merge(parts ...string) string {
	return joinNonEmpty(parts, "\n")
}

// MergeTranscripts joins per-chunk raw transcriptions with spaces, skipping
// empty parts.
func MergeTranscripts(parts ...string) string {
	return joinNonEmpty(parts, " ")
}

func joinNonEmpty(parts []string, sep string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// AlignLabels respells turn labels that match one of labels case-insensitively
// so they match it exactly. A label with an exact match, or with more than
// one case-insensitive match, is left alone.
func AlignLabels(text string, labels []string) string {
	if text == "" || len(labels) == 0 {
		return text
	}
	exact := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		exact[l] = struct{}{}
	}
	mapping := make(map[string]string)
	for _, raw := range Speakers(text) {
		if _, ok := exact[raw]; ok {
			continue
		}
		match := ""
		for _, l := range labels {
			if !strings.EqualFold(raw, l) {
				continue
			}
			if match != "" {
				match = ""
				break
			}
			match = l
		}
		if match != "" {
			mapping[raw] = match
		}
	}
	return Relabel(text, mapping)
}
