package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"podium/internal/realtime"
	"podium/models"
	"podium/store"
)

// ErrNoPipelineState is returned when a retry is requested for a session the
// pipeline has never run on.
var ErrNoPipelineState = errors.New("no pipeline state found, run the full pipeline first")

// errSkipStep marks a step as skipped instead of completed or failed.
var errSkipStep = errors.New("step skipped")

// PipelineResult summarizes one pipeline run.
type PipelineResult struct {
	FailedSteps []models.StepName
	State       *models.PipelineState
}

// Orchestrator runs the post-debate pipeline: stop recording, transcribe,
// score, record strikes, update stats, notify, clean up. Steps run in order
// but fail independently; state is persisted after every step so a crashed
// or failed run can resume without repeating completed side effects.
type Orchestrator struct {
	store   store.Store
	rooms   RoomProvider
	stt     Transcriber
	analyst Analyst
	events  realtime.Publisher

	pollAttempts int
	pollInterval time.Duration
	budget       time.Duration

	jobs chan pipelineJob
}

type pipelineJob struct {
	debateID    string
	forfeitSide string
}

func NewOrchestrator(st store.Store, rooms RoomProvider, stt Transcriber, analyst Analyst, events realtime.Publisher) *Orchestrator {
	return &Orchestrator{
		store:        st,
		rooms:        rooms,
		stt:          stt,
		analyst:      analyst,
		events:       events,
		pollAttempts: 30,
		pollInterval: 10 * time.Second,
		budget:       10 * time.Minute,
		jobs:         make(chan pipelineJob, 64),
	}
}

// Start launches the worker goroutine. Jobs run one at a time under a
// wall-clock budget; the budget context is detached from ctx so an in-flight
// run finishes even during shutdown.
func (o *Orchestrator) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-o.jobs:
				runCtx, cancel := context.WithTimeout(context.Background(), o.budget)
				if j.forfeitSide != "" {
					o.resolveForfeit(runCtx, j.debateID, j.forfeitSide)
				} else if _, err := o.Process(runCtx, j.debateID); err != nil {
					log.Printf("pipeline run failed for debate %s: %v", j.debateID, err)
				}
				cancel()
			}
		}
	}()
}

// Enqueue schedules a completed debate for processing. Never blocks the
// caller: the lifecycle transition must not wait on pipeline backpressure.
func (o *Orchestrator) Enqueue(debateID string) {
	o.enqueue(pipelineJob{debateID: debateID})
}

// EnqueueForfeit schedules forfeit resolution for a forfeiting debate.
func (o *Orchestrator) EnqueueForfeit(debateID, forfeitingSide string) {
	o.enqueue(pipelineJob{debateID: debateID, forfeitSide: forfeitingSide})
}

func (o *Orchestrator) enqueue(j pipelineJob) {
	select {
	case o.jobs <- j:
	default:
		go func() { o.jobs <- j }()
	}
}

// Process runs the pipeline for one debate, resuming from persisted state
// when present. Completed steps never re-run.
func (o *Orchestrator) Process(ctx context.Context, debateID string) (*PipelineResult, error) {
	d, err := o.store.GetDebate(ctx, debateID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: failed to load debate: %w", err)
	}

	log.Printf("pipeline: processing debate %s", debateID)

	ps := d.PipelineState
	if ps == nil {
		ps = models.NewPipelineState()
	}
	o.saveState(ctx, debateID, ps)

	// Carried between steps; re-seeded from the record so a resumed run can
	// pick up after a crash mid-pipeline.
	audioURL := d.AudioURL
	transcriptText := ""
	if d.Transcript != nil {
		transcriptText = d.Transcript.FullText
	}
	procedural := d.Procedural
	qualitative := d.Qualitative

	// Step 1: stop the recording and wait for the download link.
	if d.RoomName == "" {
		o.skipStep(ctx, debateID, ps, models.StepRecording)
	} else {
		o.runStep(ctx, debateID, ps, models.StepRecording, func() error {
			recordingID := d.RecordingID
			if recordingID == "" {
				id, err := o.rooms.StopRecording(ctx, d.RoomName)
				if err != nil {
					return err
				}
				if id == "" {
					return errSkipStep
				}
				recordingID = id
				if err := o.store.SetRecordingID(ctx, debateID, recordingID); err != nil {
					return err
				}
				if err := o.store.SetTranscriptStatus(ctx, debateID, "processing"); err != nil {
					return err
				}
			}

			url := o.pollForRecording(ctx, recordingID)
			if url == "" {
				return errors.New("recording not available after polling timeout")
			}
			audioURL = url
			return o.store.SetAudioURL(ctx, debateID, audioURL)
		})
	}

	// Step 2: transcribe and label speakers.
	if audioURL == "" {
		o.skipStep(ctx, debateID, ps, models.StepTranscription)
	} else {
		ok := o.runStep(ctx, debateID, ps, models.StepTranscription, func() error {
			raw, err := o.stt.Transcribe(ctx, audioURL)
			if err != nil {
				return err
			}
			labeled := LabelSpeakers(raw)
			transcriptText = labeled.FullText
			return o.store.SetTranscript(ctx, debateID, labeled, "completed")
		})
		if !ok && ps.Transcription.Status == models.StepFailed {
			if err := o.store.SetTranscriptStatus(ctx, debateID, "failed"); err != nil {
				log.Printf("pipeline: failed to record transcript status: %v", err)
			}
		}
	}

	// Step 3: two-tier scoring. Each tier falls back to neutral defaults on
	// its own; the step only fails when both tiers fail.
	topicTitle := "Unknown topic"
	if d.TopicID != "" {
		if topic, err := o.store.GetTopic(ctx, d.TopicID); err == nil {
			topicTitle = topic.Title
		}
	}
	if transcriptText == "" {
		transcriptText = "[Transcript unavailable]"
	}

	o.runStep(ctx, debateID, ps, models.StepScoring, func() error {
		if err := o.store.SetScoringStatus(ctx, debateID, "processing"); err != nil {
			return err
		}

		proc, procErr := o.analyst.AnalyzeProcedural(ctx, topicTitle, transcriptText)
		if procErr != nil {
			log.Printf("pipeline: procedural analysis failed for debate %s: %v", debateID, procErr)
			proc = NoStrikes()
		}
		qual, qualErr := o.analyst.AnalyzeQualitative(ctx, topicTitle, transcriptText, d.TimeLimit)
		if qualErr != nil {
			log.Printf("pipeline: qualitative analysis failed for debate %s: %v", debateID, qualErr)
			qual = NeutralQualitative()
		}
		if procErr != nil && qualErr != nil {
			return fmt.Errorf("both analysis tiers failed: %v; %v", procErr, qualErr)
		}

		procedural = proc
		qualitative = qual

		if err := o.store.SetScores(ctx, debateID, proc, qual, qual.Pro.Overall, qual.Con.Overall); err != nil {
			return err
		}
		return o.store.SetScoringStatus(ctx, debateID, "completed")
	})
	if ps.Scoring.Status == models.StepFailed {
		if err := o.store.SetScoringStatus(ctx, debateID, "failed"); err != nil {
			log.Printf("pipeline: failed to record scoring status: %v", err)
		}
	}

	// Step 4: persist strike records for admin review.
	if procedural == nil {
		o.skipStep(ctx, debateID, ps, models.StepStrikes)
	} else {
		o.runStep(ctx, debateID, ps, models.StepStrikes, func() error {
			return o.recordStrikes(ctx, d, procedural)
		})
	}

	// Step 5: quality averages and debate counts.
	if qualitative == nil {
		o.skipStep(ctx, debateID, ps, models.StepUserStats)
	} else {
		o.runStep(ctx, debateID, ps, models.StepUserStats, func() error {
			return o.updateParticipantStats(ctx, d, qualitative.Pro.Overall, qualitative.Con.Overall)
		})
	}

	// Step 6: tell the participants, even when scoring failed. The body
	// degrades, the notification does not.
	o.runStep(ctx, debateID, ps, models.StepNotifications, func() error {
		return o.notifyParticipants(ctx, d, qualitative)
	})

	// Step 7: tear down the room.
	if d.RoomName == "" {
		o.skipStep(ctx, debateID, ps, models.StepCleanup)
	} else {
		o.runStep(ctx, debateID, ps, models.StepCleanup, func() error {
			return o.rooms.DeleteRoom(ctx, d.RoomName)
		})
	}

	now := time.Now().UTC()
	ps.CompletedAt = &now
	o.saveState(ctx, debateID, ps)

	failed := ps.FailedSteps()
	if len(failed) > 0 {
		log.Printf("pipeline: debate %s completed with failures: %v", debateID, failed)
		if err := o.store.SetDebateStatus(ctx, debateID, models.StatusPipelineFailed); err != nil {
			log.Printf("pipeline: failed to mark debate %s pipeline_failed: %v", debateID, err)
		}
	} else {
		log.Printf("pipeline: debate %s processing complete", debateID)
		if d.Status == models.StatusPipelineFailed {
			if err := o.store.SetDebateStatus(ctx, debateID, models.StatusCompleted); err != nil {
				log.Printf("pipeline: failed to restore debate %s status: %v", debateID, err)
			}
		}
	}

	return &PipelineResult{FailedSteps: failed, State: ps}, nil
}

// RetryFailedSteps resumes the pipeline for a debate whose earlier run left
// failed steps. Completed steps keep their status, so their side effects are
// never repeated.
func (o *Orchestrator) RetryFailedSteps(ctx context.Context, debateID string) (*PipelineResult, error) {
	d, err := o.store.GetDebate(ctx, debateID)
	if err != nil {
		return nil, err
	}
	if d.PipelineState == nil {
		return nil, ErrNoPipelineState
	}

	d.PipelineState.ResetFailed()
	o.saveState(ctx, debateID, d.PipelineState)

	return o.Process(ctx, debateID)
}

func (o *Orchestrator) saveState(ctx context.Context, debateID string, ps *models.PipelineState) {
	if err := o.store.SavePipelineState(ctx, debateID, ps); err != nil {
		log.Printf("pipeline: failed to persist state for debate %s: %v", debateID, err)
	}
}

// runStep executes one step with error isolation. Already-completed steps
// are not re-run. Returns whether the step is (now) completed.
func (o *Orchestrator) runStep(ctx context.Context, debateID string, ps *models.PipelineState, name models.StepName, fn func() error) bool {
	step := ps.Step(name)
	if step.Status == models.StepCompleted {
		return true
	}

	step.Status = models.StepRunning
	step.Attempts++
	o.saveState(ctx, debateID, ps)

	err := fn()
	switch {
	case err == nil:
		step.Status = models.StepCompleted
		step.Error = ""
	case errors.Is(err, errSkipStep):
		step.Status = models.StepSkipped
		step.Error = ""
	default:
		step.Status = models.StepFailed
		step.Error = err.Error()
		log.Printf("pipeline step %q failed for debate %s: %v", name, debateID, err)
	}
	o.saveState(ctx, debateID, ps)
	return err == nil
}

func (o *Orchestrator) skipStep(ctx context.Context, debateID string, ps *models.PipelineState, name models.StepName) {
	step := ps.Step(name)
	if step.Status == models.StepCompleted {
		return
	}
	step.Status = models.StepSkipped
	o.saveState(ctx, debateID, ps)
}

// pollForRecording waits for the provider to finish processing the
// recording. Returns "" on timeout or context cancellation.
func (o *Orchestrator) pollForRecording(ctx context.Context, recordingID string) string {
	for i := 0; i < o.pollAttempts; i++ {
		url, err := o.rooms.GetRecordingLink(ctx, recordingID)
		if err != nil {
			log.Printf("pipeline: recording link check failed: %v", err)
		} else if url != "" {
			return url
		}

		select {
		case <-ctx.Done():
			return ""
		case <-time.After(o.pollInterval):
		}
	}
	log.Printf("pipeline: recording %s not available after %d attempts", recordingID, o.pollAttempts)
	return ""
}

// recordStrikes writes one strike per flagged violation. Strikes only queue
// for admin review; no penalty applies without a human decision.
func (o *Orchestrator) recordStrikes(ctx context.Context, d *models.DebateSession, procedural *models.ProceduralAnalysis) error {
	sides := []struct {
		flags   models.StrikeFlags
		speaker string
		owner   models.Owner
	}{
		{procedural.ProStrikes, "Pro", d.Pro},
		{procedural.ConStrikes, "Con", d.Con},
	}

	for _, side := range sides {
		for _, reason := range side.flags.Reasons() {
			confidence := 0.9
			excerpt := ""
			for _, m := range procedural.FlaggedMoments {
				if m.Type == reason && m.Speaker == side.speaker {
					confidence = m.Confidence
					excerpt = m.Excerpt
					break
				}
			}

			strike := &models.Strike{
				ID:            uuid.NewString(),
				Offender:      side.owner,
				DebateID:      d.ID,
				Reason:        reason,
				AIConfidence:  confidence,
				Excerpt:       excerpt,
				AdminDecision: "pending",
				CreatedAt:     time.Now().UTC(),
			}
			if err := o.store.InsertStrike(ctx, strike); err != nil {
				return fmt.Errorf("failed to record strike: %w", err)
			}
		}
	}
	return nil
}

// updateParticipantStats folds the new quality scores into each registered
// user's rolling average and bumps debate counts. Guests only get their
// session debate count bumped.
func (o *Orchestrator) updateParticipantStats(ctx context.Context, d *models.DebateSession, proScore, conScore int) error {
	participants := []struct {
		owner models.Owner
		score int
	}{
		{d.Pro, proScore},
		{d.Con, conScore},
	}

	for _, p := range participants {
		if !p.owner.Registered() {
			if err := o.store.IncrementGuestDebates(ctx, p.owner.SessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("failed to bump guest debate count: %w", err)
			}
			continue
		}

		user, err := o.store.GetUser(ctx, p.owner.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		newAvg := NextQualityScore(user.QualityScoreAvg, user.TotalDebates, p.score)
		if err := o.store.ApplyDebateQuality(ctx, user.ID, newAvg); err != nil {
			return fmt.Errorf("failed to update quality score: %w", err)
		}
	}
	return nil
}

// NextQualityScore folds a debate's score into the rolling average:
// 80% history, 20% new result, clamped to [0, 100]. A user's first debate
// takes the raw score.
func NextQualityScore(oldAvg, totalDebates, score int) int {
	if totalDebates == 0 {
		return ClampScore(score)
	}
	next := int(math.Round(float64(oldAvg)*0.8 + float64(score)*0.2))
	return ClampScore(next)
}

// notifyParticipants sends the scored notification to registered users and
// a realtime event to everyone. Runs regardless of scoring outcome; the
// body just says less when no analysis exists.
func (o *Orchestrator) notifyParticipants(ctx context.Context, d *models.DebateSession, qualitative *models.QualitativeAnalysis) error {
	participants := []struct {
		owner models.Owner
		side  string
	}{
		{d.Pro, models.SidePro},
		{d.Con, models.SideCon},
	}

	for _, p := range participants {
		if !p.owner.Registered() {
			continue
		}

		body := "Your debate results are in. View the full breakdown."
		data := map[string]string{"debateId": d.ID}
		if qualitative != nil {
			score := qualitative.Pro.Overall
			if p.side == models.SideCon {
				score = qualitative.Con.Overall
			}
			body = fmt.Sprintf("Overall quality: %d/100. View the full breakdown.", score)
			data["overallScore"] = fmt.Sprintf("%d", score)
		}

		n := &models.Notification{
			ID:        uuid.NewString(),
			UserID:    p.owner.UserID,
			Type:      models.NotifyDebateScored,
			Title:     "Your debate has been scored!",
			Body:      body,
			Data:      data,
			CreatedAt: time.Now().UTC(),
		}
		if err := o.store.InsertNotification(ctx, n); err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
	}

	event, err := realtime.NewEvent(realtime.EventDebateScored,
		[]string{d.Pro.Key(), d.Con.Key()},
		realtime.DebateScoredPayload{DebateID: d.ID})
	if err == nil {
		if err := o.events.Publish(ctx, event); err != nil {
			log.Printf("pipeline: failed to publish scored event: %v", err)
		}
	}
	return nil
}

// resolveForfeit finishes a forfeiting session: award the win, update
// records, tear down the room. Guarded on forfeiting so a duplicate job
// resolves nothing twice.
func (o *Orchestrator) resolveForfeit(ctx context.Context, debateID, forfeitingSide string) {
	d, err := o.store.GetDebate(ctx, debateID)
	if err != nil {
		log.Printf("forfeit: failed to load debate %s: %v", debateID, err)
		return
	}

	winner := models.OtherSide(forfeitingSide)
	now := time.Now().UTC()
	applied, err := o.store.TransitionDebate(ctx, debateID, models.StatusForfeiting, "", store.DebateTransition{
		Status:       models.StatusForfeited,
		Phase:        models.PhaseEnded,
		Winner:       winner,
		WinnerSource: models.WinnerSourceForfeit,
		CompletedAt:  &now,
	})
	if err != nil {
		log.Printf("forfeit: failed to resolve debate %s: %v", debateID, err)
		return
	}
	if !applied {
		return
	}

	winnerOwner := d.OwnerForSide(winner)
	loserOwner := d.OwnerForSide(forfeitingSide)
	o.bumpRecord(ctx, winnerOwner, 1, 0)
	o.bumpRecord(ctx, loserOwner, 0, 1)

	if d.RoomName != "" {
		if _, err := o.rooms.StopRecording(ctx, d.RoomName); err != nil {
			log.Printf("forfeit: recording stop failed for debate %s: %v", debateID, err)
		}
		if err := o.rooms.DeleteRoom(ctx, d.RoomName); err != nil {
			log.Printf("forfeit: room cleanup failed for debate %s: %v", debateID, err)
		}
	}

	event, err := realtime.NewEvent(realtime.EventPhaseChanged,
		[]string{d.Pro.Key(), d.Con.Key()},
		realtime.PhaseChangedPayload{DebateID: debateID, Phase: models.PhaseEnded, Status: models.StatusForfeited})
	if err == nil {
		if err := o.events.Publish(ctx, event); err != nil {
			log.Printf("forfeit: failed to publish event: %v", err)
		}
	}
}

func (o *Orchestrator) bumpRecord(ctx context.Context, owner models.Owner, wins, losses int) {
	if !owner.Registered() {
		if err := o.store.IncrementGuestDebates(ctx, owner.SessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Printf("forfeit: failed to bump guest debates: %v", err)
		}
		return
	}
	if err := o.store.IncrementUserRecord(ctx, owner.UserID, wins, losses, 0, 1); err != nil {
		log.Printf("forfeit: failed to update record for user %s: %v", owner.UserID, err)
	}
}
