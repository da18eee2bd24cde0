package services

import (
	"strings"
	"testing"
)

func TestLabelSpeakersFirstSpeakerIsPro(t *testing.T) {
	raw := &RawTranscript{
		Segments: []RawSegment{
			{Speaker: 3, StartSec: 0, EndSec: 25, Text: "We should ban homework."},
			{Speaker: 0, StartSec: 26, EndSec: 50, Text: "Homework builds discipline."},
			{Speaker: 3, StartSec: 51, EndSec: 75, Text: "Discipline comes from sport too."},
		},
		DurationSec: 75,
	}

	labeled := LabelSpeakers(raw)

	if len(labeled.Segments) != 3 {
		t.Fatalf("got %d segments", len(labeled.Segments))
	}
	// The opening statement always belongs to Pro, whatever the provider's
	// speaker id happens to be.
	wantRoles := []string{"Pro", "Con", "Pro"}
	for i, seg := range labeled.Segments {
		if seg.Role != wantRoles[i] {
			t.Errorf("segment %d role = %s, want %s", i, seg.Role, wantRoles[i])
		}
	}

	if !strings.Contains(labeled.ProText, "ban homework") || !strings.Contains(labeled.ProText, "sport") {
		t.Fatalf("pro text = %q", labeled.ProText)
	}
	if labeled.ConText != "Homework builds discipline." {
		t.Fatalf("con text = %q", labeled.ConText)
	}
	if labeled.DurationSec != 75 {
		t.Fatalf("duration = %v", labeled.DurationSec)
	}

	if !strings.Contains(labeled.FullText, "[Pro @ 0:00] We should ban homework.") {
		t.Fatalf("full text missing labeled line:\n%s", labeled.FullText)
	}
	if !strings.Contains(labeled.FullText, "[Con @ 0:26] Homework builds discipline.") {
		t.Fatalf("full text missing con line:\n%s", labeled.FullText)
	}
}

func TestLabelSpeakersEmpty(t *testing.T) {
	labeled := LabelSpeakers(nil)
	if labeled == nil || len(labeled.Segments) != 0 || labeled.FullText != "" {
		t.Fatalf("empty input produced %+v", labeled)
	}

	labeled = LabelSpeakers(&RawTranscript{})
	if len(labeled.Segments) != 0 {
		t.Fatal("no segments expected")
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{9.7, "0:09"},
		{65, "1:05"},
		{600, "10:00"},
	}
	for _, tc := range cases {
		if got := formatTimestamp(tc.in); got != tc.want {
			t.Errorf("formatTimestamp(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
