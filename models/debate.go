package models

import "time"

// Debate session statuses.
const (
	StatusPrematch       = "prematch"
	StatusInProgress     = "in_progress"
	StatusCompleted      = "completed"
	StatusForfeiting     = "forfeiting"
	StatusForfeited      = "forfeited"
	StatusPipelineFailed = "pipeline_failed"
)

// Debate phases, in canonical order. Pro always opens and always closes
// last, so the order is fixed.
const (
	PhasePrematch   = "prematch"
	PhaseOpeningPro = "opening_pro"
	PhaseOpeningCon = "opening_con"
	PhaseFreeflow   = "freeflow"
	PhaseClosingCon = "closing_con"
	PhaseClosingPro = "closing_pro"
	PhaseEnded      = "ended"
)

// PhaseOrder is the canonical sequence of debate phases.
var PhaseOrder = []string{
	PhasePrematch,
	PhaseOpeningPro,
	PhaseOpeningCon,
	PhaseFreeflow,
	PhaseClosingCon,
	PhaseClosingPro,
	PhaseEnded,
}

// PreviousPhase returns the phase that must be current before advancing to
// target, and whether target is a valid non-initial phase.
func PreviousPhase(target string) (string, bool) {
	for i, p := range PhaseOrder {
		if p == target {
			if i == 0 {
				return "", false
			}
			return PhaseOrder[i-1], true
		}
	}
	return "", false
}

// ValidPhase reports whether p is a member of the canonical phase order.
func ValidPhase(p string) bool {
	for _, known := range PhaseOrder {
		if known == p {
			return true
		}
	}
	return false
}

// Debate sides and winner values.
const (
	SidePro    = "pro"
	SideCon    = "con"
	WinnerDraw = "draw"
)

// Winner sources. An AI-derived winner is feedback only and is superseded by
// the community vote tally once votes exist.
const (
	WinnerSourceForfeit   = "forfeit"
	WinnerSourceAI        = "ai"
	WinnerSourceCommunity = "community"
)

// OtherSide returns the opposing side.
func OtherSide(side string) string {
	if side == SidePro {
		return SideCon
	}
	return SidePro
}

// TranscriptSegment is one diarized utterance with its assigned debate role.
type TranscriptSegment struct {
	Speaker  int     `bson:"speaker" json:"speaker"`
	Role     string  `bson:"role" json:"role"`
	StartSec float64 `bson:"startSec" json:"startSec"`
	EndSec   float64 `bson:"endSec" json:"endSec"`
	Text     string  `bson:"text" json:"text"`
}

// Transcript is the speaker-labeled transcript of a finished debate.
type Transcript struct {
	Segments    []TranscriptSegment `bson:"segments" json:"segments"`
	FullText    string              `bson:"fullText" json:"fullText"`
	ProText     string              `bson:"proText" json:"proText"`
	ConText     string              `bson:"conText" json:"conText"`
	DurationSec float64             `bson:"durationSec" json:"durationSec"`
}

// DebateSession is the authoritative record of one matched debate. It is
// created by a successful match, mutated only through guarded conditional
// updates, and retained as a historical record.
type DebateSession struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	TopicID   string `bson:"topicId,omitempty" json:"topicId,omitempty"`
	Pro       Owner  `bson:"pro" json:"pro"`
	Con       Owner  `bson:"con" json:"con"`
	TimeLimit int    `bson:"timeLimit" json:"timeLimit"`
	Ranked    bool   `bson:"ranked" json:"ranked"`

	Status string `bson:"status" json:"status"`
	Phase  string `bson:"phase" json:"phase"`

	RoomName    string `bson:"roomName,omitempty" json:"roomName,omitempty"`
	RoomURL     string `bson:"roomUrl,omitempty" json:"roomUrl,omitempty"`
	RecordingID string `bson:"recordingId,omitempty" json:"recordingId,omitempty"`
	AudioURL    string `bson:"audioUrl,omitempty" json:"audioUrl,omitempty"`

	Transcript       *Transcript `bson:"transcript,omitempty" json:"transcript,omitempty"`
	TranscriptStatus string      `bson:"transcriptStatus,omitempty" json:"transcriptStatus,omitempty"`
	ScoringStatus    string      `bson:"scoringStatus,omitempty" json:"scoringStatus,omitempty"`

	Procedural      *ProceduralAnalysis  `bson:"procedural,omitempty" json:"procedural,omitempty"`
	Qualitative     *QualitativeAnalysis `bson:"qualitative,omitempty" json:"qualitative,omitempty"`
	ProQualityScore int                  `bson:"proQualityScore,omitempty" json:"proQualityScore,omitempty"`
	ConQualityScore int                  `bson:"conQualityScore,omitempty" json:"conQualityScore,omitempty"`

	Winner       string `bson:"winner,omitempty" json:"winner,omitempty"`
	WinnerSource string `bson:"winnerSource,omitempty" json:"winnerSource,omitempty"`

	PipelineState *PipelineState `bson:"pipelineState,omitempty" json:"pipelineState,omitempty"`

	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	StartedAt   *time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// OwnerForSide returns the owner occupying the given side.
func (d *DebateSession) OwnerForSide(side string) Owner {
	if side == SidePro {
		return d.Pro
	}
	return d.Con
}

// HasParticipant reports whether the owner occupies either side.
func (d *DebateSession) HasParticipant(o Owner) bool {
	return d.Pro.Same(o) || d.Con.Same(o)
}
