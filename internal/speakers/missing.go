package speakers

import (
	"fmt"
	"strings"
)

// MissingPolicy decides the canonical label for a speaker that appears in a
// chunk's dialog but has no usable embedding (too little speech, or a
// degenerate vector).
type MissingPolicy string

const (
	// MissingPassthrough keeps the local label when it already names a
	// canonical speaker not claimed by another voice in the same chunk, and
	// falls back to UnknownLabel otherwise.
	MissingPassthrough MissingPolicy = "passthrough"
	// MissingUnknown always labels such speakers UnknownLabel.
	MissingUnknown MissingPolicy = "unknown"
)

// ParseMissingPolicy resolves a configured policy name.
func ParseMissingPolicy(name string) (MissingPolicy, error) {
	switch MissingPolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", MissingPassthrough:
		return MissingPassthrough, nil
	case MissingUnknown:
		return MissingUnknown, nil
	default:
		return "", fmt.Errorf("unknown missing-embedding policy %q", name)
	}
}

// Resolve labels every speaker in locals, none of which has an embedding.
// mapping holds the assignments already made for the chunk and is not
// modified. The result never introduces a label absent from refs, so no
// later chunk can mint a colliding label.
func (p MissingPolicy) Resolve(locals []string, refs *ReferenceSet, mapping map[string]string) map[string]string {
	out := make(map[string]string, len(locals))
	if len(locals) == 0 {
		return out
	}
	claimed := make(map[string]struct{}, len(mapping))
	for _, canonical := range mapping {
		claimed[canonical] = struct{}{}
	}
	for _, local := range locals {
		label := UnknownLabel
		if p != MissingUnknown && refs != nil && refs.Has(local) {
			if _, taken := claimed[local]; !taken {
				label = local
				claimed[local] = struct{}{}
			}
		}
		out[local] = label
	}
	return out
}
