package services

import (
	"testing"

	"podium/models"
)

func TestCleanModelOutput(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  {\"a\":1}  ", "{\"a\":1}"},
	}
	for _, tc := range cases {
		if got := cleanModelOutput(tc.in); got != tc.want {
			t.Errorf("cleanModelOutput(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeSideScores(t *testing.T) {
	s := models.SideScores{Coherence: 90, Engagement: 80, Evidence: 70, Overall: 0}
	normalizeSideScores(&s)
	if s.Overall != 80 {
		t.Fatalf("overall = %d, want 80", s.Overall)
	}

	// Missing sub-scores default to neutral instead of dragging the mean.
	s = models.SideScores{Coherence: 0, Engagement: 0, Evidence: 0}
	normalizeSideScores(&s)
	if s.Coherence != 50 || s.Overall != 50 {
		t.Fatalf("neutral fill = %+v", s)
	}

	// Out-of-range model output gets clamped before averaging.
	s = models.SideScores{Coherence: 150, Engagement: 100, Evidence: 100}
	normalizeSideScores(&s)
	if s.Coherence != 100 || s.Overall != 100 {
		t.Fatalf("clamp = %+v", s)
	}
}

func TestNeutralFallbacks(t *testing.T) {
	q := NeutralQualitative()
	if q.Pro.Overall != 50 || q.Con.Overall != 50 {
		t.Fatalf("neutral overall = %d/%d", q.Pro.Overall, q.Con.Overall)
	}

	p := NoStrikes()
	if p.ProStrikes.Any() || p.ConStrikes.Any() {
		t.Fatal("fallback procedural analysis must not flag violations")
	}
}
