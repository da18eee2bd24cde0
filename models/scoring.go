package models

import "time"

// Strike reasons detected by the procedural analysis.
const (
	StrikeAdHominem          = "ad_hominem"
	StrikeSlurs              = "slurs"
	StrikeExcessiveProfanity = "excessive_profanity"
	StrikeNonParticipation   = "non_participation"
)

// StrikeFlags holds the binary violation flags for one side.
type StrikeFlags struct {
	AdHominem          bool `bson:"adHominem" json:"ad_hominem"`
	Slurs              bool `bson:"slurs" json:"slurs"`
	ExcessiveProfanity bool `bson:"excessiveProfanity" json:"excessive_profanity"`
	NonParticipation   bool `bson:"nonParticipation" json:"non_participation"`
}

// Any reports whether any violation was flagged.
func (f StrikeFlags) Any() bool {
	return f.AdHominem || f.Slurs || f.ExcessiveProfanity || f.NonParticipation
}

// Reasons returns the flagged violation reasons.
func (f StrikeFlags) Reasons() []string {
	var reasons []string
	if f.AdHominem {
		reasons = append(reasons, StrikeAdHominem)
	}
	if f.Slurs {
		reasons = append(reasons, StrikeSlurs)
	}
	if f.ExcessiveProfanity {
		reasons = append(reasons, StrikeExcessiveProfanity)
	}
	if f.NonParticipation {
		reasons = append(reasons, StrikeNonParticipation)
	}
	return reasons
}

// FlaggedMoment pins a violation to a spot in the transcript.
type FlaggedMoment struct {
	Timestamp  string  `bson:"timestamp" json:"timestamp"`
	Speaker    string  `bson:"speaker" json:"speaker"`
	Type       string  `bson:"type" json:"type"`
	Confidence float64 `bson:"confidence" json:"confidence"`
	Excerpt    string  `bson:"excerpt,omitempty" json:"transcript_excerpt,omitempty"`
}

// ProceduralAnalysis is the strike-detection result. Flags are emitted
// conservatively: false negatives are preferred over false positives.
type ProceduralAnalysis struct {
	ProStrikes     StrikeFlags     `bson:"proStrikes" json:"pro_strikes"`
	ConStrikes     StrikeFlags     `bson:"conStrikes" json:"con_strikes"`
	FlaggedMoments []FlaggedMoment `bson:"flaggedMoments" json:"flagged_moments"`
	Notes          string          `bson:"notes,omitempty" json:"notes,omitempty"`
}

// SideScores holds the qualitative sub-scores for one side, each 0-100.
// Overall is the arithmetic mean of the three dimensions.
type SideScores struct {
	Coherence    int      `bson:"coherence" json:"coherence"`
	Engagement   int      `bson:"engagement" json:"engagement"`
	Evidence     int      `bson:"evidence" json:"evidence"`
	Overall      int      `bson:"overall" json:"overall_quality"`
	Strengths    []string `bson:"strengths,omitempty" json:"strengths,omitempty"`
	Improvements []string `bson:"improvements,omitempty" json:"areas_for_improvement,omitempty"`
}

// NotableMoment is a highlight surfaced by the qualitative analysis.
type NotableMoment struct {
	Timestamp   string `bson:"timestamp" json:"timestamp"`
	Description string `bson:"description" json:"description"`
}

// QualitativeAnalysis is the feedback-oriented scoring result.
type QualitativeAnalysis struct {
	Pro            SideScores      `bson:"pro" json:"pro_player"`
	Con            SideScores      `bson:"con" json:"con_player"`
	Summary        string          `bson:"summary,omitempty" json:"debate_summary,omitempty"`
	NotableMoments []NotableMoment `bson:"notableMoments,omitempty" json:"notable_moments,omitempty"`
}

// Strike is one confirmed-by-AI procedural violation awaiting admin review.
// Strikes are never applied as a penalty without human action.
type Strike struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	Offender      Owner     `bson:"offender" json:"offender"`
	DebateID      string    `bson:"debateId" json:"debateId"`
	Reason        string    `bson:"reason" json:"reason"`
	AIConfidence  float64   `bson:"aiConfidence" json:"aiConfidence"`
	Excerpt       string    `bson:"excerpt,omitempty" json:"excerpt,omitempty"`
	AdminReviewed bool      `bson:"adminReviewed" json:"adminReviewed"`
	AdminDecision string    `bson:"adminDecision" json:"adminDecision"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}
