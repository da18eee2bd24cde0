package models

import "time"

// Pipeline step statuses.
const (
	StepPending   = "pending"
	StepRunning   = "running"
	StepCompleted = "completed"
	StepFailed    = "failed"
	StepSkipped   = "skipped"
)

// StepName identifies one pipeline step. The set of names is closed; the
// orchestrator iterates PipelineSteps in declared order.
type StepName string

const (
	StepRecording     StepName = "recording"
	StepTranscription StepName = "transcription"
	StepScoring       StepName = "scoring"
	StepStrikes       StepName = "strikes"
	StepUserStats     StepName = "user_stats"
	StepNotifications StepName = "notifications"
	StepCleanup       StepName = "cleanup"
)

// PipelineSteps is the fixed execution order of the post-debate pipeline.
var PipelineSteps = []StepName{
	StepRecording,
	StepTranscription,
	StepScoring,
	StepStrikes,
	StepUserStats,
	StepNotifications,
	StepCleanup,
}

// StepState tracks one step's progress across pipeline runs.
type StepState struct {
	Status   string `bson:"status" json:"status"`
	Attempts int    `bson:"attempts" json:"attempts"`
	Error    string `bson:"error,omitempty" json:"error,omitempty"`
}

// PipelineState is the persisted progress of the post-debate pipeline for
// one session. One field per step keeps invalid step names unrepresentable.
type PipelineState struct {
	Recording     StepState `bson:"recording" json:"recording"`
	Transcription StepState `bson:"transcription" json:"transcription"`
	Scoring       StepState `bson:"scoring" json:"scoring"`
	Strikes       StepState `bson:"strikes" json:"strikes"`
	UserStats     StepState `bson:"userStats" json:"user_stats"`
	Notifications StepState `bson:"notifications" json:"notifications"`
	Cleanup       StepState `bson:"cleanup" json:"cleanup"`

	StartedAt   time.Time  `bson:"startedAt" json:"startedAt"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// NewPipelineState returns a fresh state with every step pending.
func NewPipelineState() *PipelineState {
	ps := &PipelineState{StartedAt: time.Now()}
	for _, name := range PipelineSteps {
		ps.Step(name).Status = StepPending
	}
	return ps
}

// Step returns the state record for the named step.
func (ps *PipelineState) Step(name StepName) *StepState {
	switch name {
	case StepRecording:
		return &ps.Recording
	case StepTranscription:
		return &ps.Transcription
	case StepScoring:
		return &ps.Scoring
	case StepStrikes:
		return &ps.Strikes
	case StepUserStats:
		return &ps.UserStats
	case StepNotifications:
		return &ps.Notifications
	case StepCleanup:
		return &ps.Cleanup
	}
	panic("unknown pipeline step: " + string(name))
}

// FailedSteps returns the names of steps currently in failed status, in
// declared order.
func (ps *PipelineState) FailedSteps() []StepName {
	var failed []StepName
	for _, name := range PipelineSteps {
		if ps.Step(name).Status == StepFailed {
			failed = append(failed, name)
		}
	}
	return failed
}

// ResetFailed flips every failed step back to pending and clears its error,
// along with the overall completion timestamp. Completed steps are left
// untouched so their side effects never repeat.
func (ps *PipelineState) ResetFailed() {
	for _, name := range PipelineSteps {
		step := ps.Step(name)
		if step.Status == StepFailed {
			step.Status = StepPending
			step.Error = ""
		}
	}
	ps.CompletedAt = nil
}
