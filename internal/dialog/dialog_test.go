package dialog_test

import (
	"reflect"
	"testing"

	"parley/internal/dialog"
)

func TestParseNormalizesAndConsolidates(t *testing.T) {
	text := `SPEAKER_00: [00:00:01] Hello there.
SPEAKER_01: [00:00:03] Hi.
  thanks for having me
respondent: I mean it.
SPEAKER_00: Let's begin.
Respondent1: Can I add something?
Unknown: mm-hmm

Interviewer:
Interviewer: Of course.`

	got := dialog.Parse(text)
	want := []dialog.Turn{
		{Speaker: "Interviewer", Text: "Hello there."},
		{Speaker: "Respondent", Text: "Hi. thanks for having me I mean it."},
		{Speaker: "Interviewer", Text: "Let's begin."},
		{Speaker: "Respondent1", Text: "Can I add something?"},
		{Speaker: "Unknown", Text: "mm-hmm"},
		{Speaker: "Interviewer", Text: "Of course."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse =\n%#v\nwant\n%#v", got, want)
	}
}

func TestParseIgnoresLeadingUnlabeledText(t *testing.T) {
	got := dialog.Parse("no label here\nSpeaker 2: hello")
	want := []dialog.Turn{{Speaker: "Speaker 2", Text: "hello"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse = %#v, want %#v", got, want)
	}
	if dialog.Parse("   \n ") != nil {
		t.Fatal("blank text should parse to nil")
	}
}

func TestNormalizeSpeaker(t *testing.T) {
	cases := map[string]string{
		"SPEAKER_00":  "Interviewer",
		"speaker_01":  "Respondent",
		"SPEAKER_07":  "SPEAKER_07",
		"INTERVIEWER": "Interviewer",
		"respondent2": "Respondent2",
		"speaker 3":   "Speaker 3",
	}
	for raw, want := range cases {
		if got := dialog.NormalizeSpeaker(raw); got != want {
			t.Fatalf("NormalizeSpeaker(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestSpeakersInFirstAppearanceOrder(t *testing.T) {
	text := "Respondent: a\nInterviewer: b\nRespondent: c\ncontinuation line\nRespondent1: d"
	got := dialog.Speakers(text)
	want := []string{"Respondent", "Interviewer", "Respondent1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Speakers = %v, want %v", got, want)
	}
}

func TestRelabelSwapsSimultaneously(t *testing.T) {
	text := "Interviewer: are you the Respondent: maybe?\nRespondent: yes\n  Interviewer: ok\nnote: untouched"
	got := dialog.Relabel(text, map[string]string{
		"Interviewer": "Respondent",
		"Respondent":  "Interviewer",
	})
	want := "Respondent: are you the Respondent: maybe?\nInterviewer: yes\n  Respondent: ok\nnote: untouched"
	if got != want {
		t.Fatalf("Relabel =\n%q\nwant\n%q", got, want)
	}
}

func TestRelabelNoMappingReturnsInput(t *testing.T) {
	text := "Interviewer: hi"
	if got := dialog.Relabel(text, nil); got != text {
		t.Fatalf("expected passthrough, got %q", got)
	}
}

func TestMergeSkipsEmptyParts(t *testing.T) {
	if got := dialog.Merge("Interviewer: a", "", "  ", "Respondent: b"); got != "Interviewer: a\nRespondent: b" {
		t.Fatalf("Merge = %q", got)
	}
	if got := dialog.MergeTranscripts("hello", "", "world"); got != "hello world" {
		t.Fatalf("MergeTranscripts = %q", got)
	}
}

func TestFormatRoundTripsParse(t *testing.T) {
	turns := []dialog.Turn{{Speaker: "Interviewer", Text: "a"}, {Speaker: "Respondent", Text: "b"}}
	if got := dialog.Parse(dialog.Format(turns)); !reflect.DeepEqual(got, turns) {
		t.Fatalf("Parse(Format) = %#v", got)
	}
}

func TestAlignLabels(t *testing.T) {
	text := "INTERVIEWER: hi\n  respondent: hello\nSpeaker 2: other\nInterviewer: ok"
	got := dialog.AlignLabels(text, []string{"Interviewer", "Respondent"})
	want := "Interviewer: hi\n  Respondent: hello\nSpeaker 2: other\nInterviewer: ok"
	if got != want {
		t.Fatalf("AlignLabels = %q, want %q", got, want)
	}

	ambiguous := "speaker_00: hi"
	if got := dialog.AlignLabels(ambiguous, []string{"SPEAKER_00", "Speaker_00"}); got != ambiguous {
		t.Fatalf("ambiguous match must be left alone, got %q", got)
	}
}
