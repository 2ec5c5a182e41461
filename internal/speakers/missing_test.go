package speakers_test

import (
	"reflect"
	"testing"

	"parley/internal/speakers"
)

func TestMissingPassthroughKeepsUnclaimedKnownLabel(t *testing.T) {
	refs := seedTwo(t)
	// Respondent's embedding was reconciled onto Interviewer; the speaker
	// labelled Interviewer by the endpoint produced no embedding.
	mapping := map[string]string{"Respondent": "Interviewer"}
	got := speakers.MissingPassthrough.Resolve([]string{"Interviewer"}, refs, mapping)
	if got["Interviewer"] != speakers.UnknownLabel {
		t.Fatalf("claimed label must not be reused, got %v", got)
	}

	mapping = map[string]string{"Interviewer": "Interviewer"}
	got = speakers.MissingPassthrough.Resolve([]string{"Respondent", "Respondent4"}, refs, mapping)
	want := map[string]string{"Respondent": "Respondent", "Respondent4": speakers.UnknownLabel}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Resolve = %v, want %v", got, want)
	}
	if refs.Len() != 2 {
		t.Fatalf("missing policy must not grow the set")
	}
	if len(mapping) != 1 {
		t.Fatalf("Resolve must not modify the mapping")
	}
}

func TestMissingUnknownAlwaysUnknown(t *testing.T) {
	refs := seedTwo(t)
	got := speakers.MissingUnknown.Resolve([]string{"Interviewer", "Respondent"}, refs, nil)
	for local, label := range got {
		if label != speakers.UnknownLabel {
			t.Fatalf("expected %s to be Unknown, got %s", local, label)
		}
	}
}

func TestParseMissingPolicy(t *testing.T) {
	if p, err := speakers.ParseMissingPolicy(""); err != nil || p != speakers.MissingPassthrough {
		t.Fatalf("expected passthrough default, got %v %v", p, err)
	}
	if p, err := speakers.ParseMissingPolicy("Unknown"); err != nil || p != speakers.MissingUnknown {
		t.Fatalf("expected unknown, got %v %v", p, err)
	}
	if _, err := speakers.ParseMissingPolicy("drop"); err == nil {
		t.Fatal("expected error")
	}
}
