package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"podium/internal/realtime"
	"podium/models"
	"podium/store"
)

func newOrchestratorForTest(st *store.Memory, rooms *fakeRooms, stt *fakeTranscriber, analyst *fakeAnalyst) *Orchestrator {
	o := NewOrchestrator(st, rooms, stt, analyst, realtime.NopPublisher{})
	o.pollAttempts = 2
	o.pollInterval = time.Millisecond
	return o
}

func seedCompletedDebate(t *testing.T, st *store.Memory) *models.DebateSession {
	t.Helper()
	st.AddUser(&models.User{ID: "u1", Username: "alice", QualityScoreAvg: 60, TotalDebates: 3})
	st.AddUser(&models.User{ID: "u2", Username: "bob", QualityScoreAvg: 70, TotalDebates: 5})
	st.AddTopic(&models.Topic{ID: "t1", Title: "Remote work beats the office", IsOfficial: true})
	return seedDebateWithTopic(t, st, "t1")
}

func seedDebateWithTopic(t *testing.T, st *store.Memory, topicID string) *models.DebateSession {
	t.Helper()
	now := time.Now()
	d := &models.DebateSession{
		ID:          "d1",
		TopicID:     topicID,
		Pro:         models.RegisteredOwner("u1"),
		Con:         models.RegisteredOwner("u2"),
		TimeLimit:   15,
		Status:      models.StatusCompleted,
		Phase:       models.PhaseEnded,
		RoomName:    "debate-d1",
		RoomURL:     "https://example.daily.co/debate-d1",
		CreatedAt:   now,
		CompletedAt: &now,
	}
	if err := st.InsertDebate(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestPipelineFullRun(t *testing.T) {
	st := store.NewMemory()
	seedCompletedDebate(t, st)
	rooms := newFakeRooms()
	stt := &fakeTranscriber{}
	analyst := newFakeAnalyst()
	o := newOrchestratorForTest(st, rooms, stt, analyst)
	ctx := context.Background()

	res, err := o.Process(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.FailedSteps) != 0 {
		t.Fatalf("failed steps: %v", res.FailedSteps)
	}

	d, _ := st.GetDebate(ctx, "d1")
	for _, name := range models.PipelineSteps {
		if got := d.PipelineState.Step(name).Status; got != models.StepCompleted {
			t.Fatalf("step %s = %s, want completed", name, got)
		}
	}
	if d.PipelineState.CompletedAt == nil {
		t.Fatal("pipeline CompletedAt not set")
	}

	if d.RecordingID != "rec-1" || d.AudioURL == "" {
		t.Fatalf("recording not captured: id=%q url=%q", d.RecordingID, d.AudioURL)
	}
	if d.Transcript == nil || d.TranscriptStatus != "completed" {
		t.Fatal("transcript not recorded")
	}
	if d.ProQualityScore != 80 || d.ConQualityScore != 60 {
		t.Fatalf("scores = %d/%d, want 80/60", d.ProQualityScore, d.ConQualityScore)
	}
	if d.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", d.Status)
	}

	// Rolling averages: 60*0.8+80*0.2 = 64, 70*0.8+60*0.2 = 68.
	u1, _ := st.GetUser(ctx, "u1")
	u2, _ := st.GetUser(ctx, "u2")
	if u1.QualityScoreAvg != 64 || u2.QualityScoreAvg != 68 {
		t.Fatalf("averages = %d/%d, want 64/68", u1.QualityScoreAvg, u2.QualityScoreAvg)
	}
	if u1.TotalDebates != 4 || u2.TotalDebates != 6 {
		t.Fatalf("debate counts = %d/%d", u1.TotalDebates, u2.TotalDebates)
	}

	if n := len(st.Notifications()); n != 2 {
		t.Fatalf("got %d notifications, want 2", n)
	}
	if rooms.roomsDeleted != 1 {
		t.Fatal("room not cleaned up")
	}
}

// Both analysis tiers failing fails the scoring step, skips strikes and
// stats, but still notifies participants and tears down the room.
func TestPipelineScoringFailureIsolated(t *testing.T) {
	st := store.NewMemory()
	seedCompletedDebate(t, st)
	rooms := newFakeRooms()
	analyst := newFakeAnalyst()
	analyst.proceduralErr = errProvider
	analyst.qualitativeErr = errProvider
	o := newOrchestratorForTest(st, rooms, &fakeTranscriber{}, analyst)
	ctx := context.Background()

	res, err := o.Process(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.FailedSteps) != 1 || res.FailedSteps[0] != models.StepScoring {
		t.Fatalf("failed steps = %v, want [scoring]", res.FailedSteps)
	}

	d, _ := st.GetDebate(ctx, "d1")
	if d.PipelineState.Scoring.Status != models.StepFailed {
		t.Fatalf("scoring = %s", d.PipelineState.Scoring.Status)
	}
	if d.PipelineState.Strikes.Status != models.StepSkipped {
		t.Fatalf("strikes = %s, want skipped", d.PipelineState.Strikes.Status)
	}
	if d.PipelineState.UserStats.Status != models.StepSkipped {
		t.Fatalf("user_stats = %s, want skipped", d.PipelineState.UserStats.Status)
	}
	if d.PipelineState.Notifications.Status != models.StepCompleted {
		t.Fatalf("notifications = %s, want completed", d.PipelineState.Notifications.Status)
	}
	if d.ScoringStatus != "failed" {
		t.Fatalf("scoring status = %s", d.ScoringStatus)
	}
	if d.Status != models.StatusPipelineFailed {
		t.Fatalf("status = %s, want pipeline_failed", d.Status)
	}

	// Participants still hear about it, with a degraded body.
	if n := len(st.Notifications()); n != 2 {
		t.Fatalf("got %d notifications, want 2", n)
	}
	if rooms.roomsDeleted != 1 {
		t.Fatal("room not cleaned up")
	}
}

// One tier failing falls back to neutral defaults and the step completes.
func TestPipelineSingleTierFallback(t *testing.T) {
	st := store.NewMemory()
	seedCompletedDebate(t, st)
	analyst := newFakeAnalyst()
	analyst.proceduralErr = errProvider
	o := newOrchestratorForTest(st, newFakeRooms(), &fakeTranscriber{}, analyst)
	ctx := context.Background()

	res, err := o.Process(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.FailedSteps) != 0 {
		t.Fatalf("failed steps: %v", res.FailedSteps)
	}

	d, _ := st.GetDebate(ctx, "d1")
	if d.Procedural == nil || d.Procedural.ProStrikes.Any() || d.Procedural.ConStrikes.Any() {
		t.Fatal("procedural fallback should report no violations")
	}
	if d.ProQualityScore != 80 {
		t.Fatalf("qualitative tier should still run: score %d", d.ProQualityScore)
	}
	if len(st.Strikes()) != 0 {
		t.Fatal("fallback produced strikes")
	}
}

func TestPipelineRecordsStrikes(t *testing.T) {
	st := store.NewMemory()
	seedCompletedDebate(t, st)
	analyst := newFakeAnalyst()
	analyst.procedural = &models.ProceduralAnalysis{
		ProStrikes: models.StrikeFlags{AdHominem: true},
		FlaggedMoments: []models.FlaggedMoment{
			{Timestamp: "02:13", Speaker: "Pro", Type: models.StrikeAdHominem, Confidence: 0.97, Excerpt: "you are a fool"},
		},
	}
	o := newOrchestratorForTest(st, newFakeRooms(), &fakeTranscriber{}, analyst)

	if _, err := o.Process(context.Background(), "d1"); err != nil {
		t.Fatal(err)
	}

	strikes := st.Strikes()
	if len(strikes) != 1 {
		t.Fatalf("got %d strikes, want 1", len(strikes))
	}
	s := strikes[0]
	if s.Offender.UserID != "u1" || s.Reason != models.StrikeAdHominem {
		t.Fatalf("strike = %+v", s)
	}
	if s.AIConfidence != 0.97 || s.Excerpt != "you are a fool" {
		t.Fatalf("flagged moment not carried over: %+v", s)
	}
	if s.AdminReviewed || s.AdminDecision != "pending" {
		t.Fatal("strike must await admin review")
	}
}

// A failed step re-runs on retry; completed steps keep their side effects.
func TestPipelineRetryResumesFromFailure(t *testing.T) {
	st := store.NewMemory()
	seedCompletedDebate(t, st)
	rooms := newFakeRooms()
	stt := &fakeTranscriber{err: errProvider}
	analyst := newFakeAnalyst()
	o := newOrchestratorForTest(st, rooms, stt, analyst)
	ctx := context.Background()

	res, err := o.Process(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.FailedSteps) != 1 || res.FailedSteps[0] != models.StepTranscription {
		t.Fatalf("failed steps = %v, want [transcription]", res.FailedSteps)
	}

	d, _ := st.GetDebate(ctx, "d1")
	if d.TranscriptStatus != "failed" {
		t.Fatalf("transcript status = %s", d.TranscriptStatus)
	}
	if d.Status != models.StatusPipelineFailed {
		t.Fatalf("status = %s, want pipeline_failed", d.Status)
	}

	// Provider recovers; retry re-runs only the failed step.
	stt.err = nil
	res, err = o.RetryFailedSteps(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.FailedSteps) != 0 {
		t.Fatalf("failed steps after retry: %v", res.FailedSteps)
	}

	d, _ = st.GetDebate(ctx, "d1")
	if d.Transcript == nil || d.TranscriptStatus != "completed" {
		t.Fatal("transcription did not recover")
	}
	if d.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed after clean retry", d.Status)
	}
	if d.PipelineState.Transcription.Attempts != 2 {
		t.Fatalf("transcription attempts = %d, want 2", d.PipelineState.Transcription.Attempts)
	}

	// Completed steps never re-ran.
	if rooms.recordingStops != 1 {
		t.Fatalf("recording stopped %d times, want 1", rooms.recordingStops)
	}
	if analyst.qualitativeCalls != 1 {
		t.Fatalf("qualitative analysis ran %d times, want 1", analyst.qualitativeCalls)
	}
	if n := len(st.Notifications()); n != 2 {
		t.Fatalf("notifications re-sent: %d", n)
	}

	// Quality averages were applied exactly once.
	u1, _ := st.GetUser(ctx, "u1")
	if u1.TotalDebates != 4 {
		t.Fatalf("u1 debates = %d, want 4", u1.TotalDebates)
	}
}

// Retrying with scoring already completed must re-run the failed downstream
// steps against the persisted analyses, not skip them.
func TestPipelineRetryUsesPersistedAnalyses(t *testing.T) {
	st := store.NewMemory()
	seedCompletedDebate(t, st)
	ctx := context.Background()

	// A previous run got through scoring and persisted both analyses, then
	// failed writing strikes and stats.
	proc := &models.ProceduralAnalysis{
		ProStrikes: models.StrikeFlags{AdHominem: true},
		FlaggedMoments: []models.FlaggedMoment{
			{Timestamp: "02:13", Speaker: "Pro", Type: models.StrikeAdHominem, Confidence: 0.97, Excerpt: "you are a fool"},
		},
	}
	qual := &models.QualitativeAnalysis{
		Pro: models.SideScores{Coherence: 80, Engagement: 70, Evidence: 90, Overall: 80},
		Con: models.SideScores{Coherence: 60, Engagement: 60, Evidence: 60, Overall: 60},
	}
	if err := st.SetScores(ctx, "d1", proc, qual, 80, 60); err != nil {
		t.Fatal(err)
	}
	ps := models.NewPipelineState()
	for _, name := range []models.StepName{
		models.StepRecording, models.StepTranscription, models.StepScoring,
		models.StepNotifications, models.StepCleanup,
	} {
		ps.Step(name).Status = models.StepCompleted
		ps.Step(name).Attempts = 1
	}
	for _, name := range []models.StepName{models.StepStrikes, models.StepUserStats} {
		ps.Step(name).Status = models.StepFailed
		ps.Step(name).Attempts = 1
		ps.Step(name).Error = "store write failed"
	}
	if err := st.SavePipelineState(ctx, "d1", ps); err != nil {
		t.Fatal(err)
	}
	if err := st.SetDebateStatus(ctx, "d1", models.StatusPipelineFailed); err != nil {
		t.Fatal(err)
	}

	rooms := newFakeRooms()
	analyst := newFakeAnalyst()
	o := newOrchestratorForTest(st, rooms, &fakeTranscriber{}, analyst)

	res, err := o.RetryFailedSteps(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.FailedSteps) != 0 {
		t.Fatalf("failed steps after retry: %v", res.FailedSteps)
	}

	d, _ := st.GetDebate(ctx, "d1")
	if got := d.PipelineState.Strikes.Status; got != models.StepCompleted {
		t.Fatalf("strikes = %s, want completed", got)
	}
	if got := d.PipelineState.UserStats.Status; got != models.StepCompleted {
		t.Fatalf("user_stats = %s, want completed", got)
	}

	strikes := st.Strikes()
	if len(strikes) != 1 {
		t.Fatalf("got %d strikes after retry, want 1", len(strikes))
	}
	if strikes[0].Offender.UserID != "u1" || strikes[0].Reason != models.StrikeAdHominem {
		t.Fatalf("strike = %+v", strikes[0])
	}

	u1, _ := st.GetUser(ctx, "u1")
	u2, _ := st.GetUser(ctx, "u2")
	if u1.QualityScoreAvg != 64 || u1.TotalDebates != 4 {
		t.Fatalf("u1 = avg %d / %d debates, want 64/4", u1.QualityScoreAvg, u1.TotalDebates)
	}
	if u2.QualityScoreAvg != 68 || u2.TotalDebates != 6 {
		t.Fatalf("u2 = avg %d / %d debates, want 68/6", u2.QualityScoreAvg, u2.TotalDebates)
	}

	if d.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed after clean retry", d.Status)
	}

	// Completed steps never re-ran: no provider calls, no re-notification.
	if analyst.proceduralCalls != 0 || analyst.qualitativeCalls != 0 {
		t.Fatalf("analyst re-ran: %d/%d calls", analyst.proceduralCalls, analyst.qualitativeCalls)
	}
	if rooms.recordingStops != 0 {
		t.Fatalf("recording stopped %d times, want 0", rooms.recordingStops)
	}
	if n := len(st.Notifications()); n != 0 {
		t.Fatalf("notifications re-sent: %d", n)
	}
}

func TestPipelineRetryWithoutState(t *testing.T) {
	st := store.NewMemory()
	seedCompletedDebate(t, st)
	o := newOrchestratorForTest(st, newFakeRooms(), &fakeTranscriber{}, newFakeAnalyst())

	if _, err := o.RetryFailedSteps(context.Background(), "d1"); !errors.Is(err, ErrNoPipelineState) {
		t.Fatalf("got %v, want ErrNoPipelineState", err)
	}
}

func TestPipelineSkipsRecordingWithoutRoom(t *testing.T) {
	st := store.NewMemory()
	st.AddUser(&models.User{ID: "u1"})
	st.AddUser(&models.User{ID: "u2"})
	now := time.Now()
	if err := st.InsertDebate(context.Background(), &models.DebateSession{
		ID:        "d2",
		Pro:       models.RegisteredOwner("u1"),
		Con:       models.RegisteredOwner("u2"),
		TimeLimit: 15,
		Status:    models.StatusCompleted,
		Phase:     models.PhaseEnded,
		CreatedAt: now, CompletedAt: &now,
	}); err != nil {
		t.Fatal(err)
	}
	o := newOrchestratorForTest(st, newFakeRooms(), &fakeTranscriber{}, newFakeAnalyst())

	res, err := o.Process(context.Background(), "d2")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.FailedSteps) != 0 {
		t.Fatalf("failed steps: %v", res.FailedSteps)
	}
	if res.State.Recording.Status != models.StepSkipped {
		t.Fatalf("recording = %s, want skipped", res.State.Recording.Status)
	}
	if res.State.Transcription.Status != models.StepSkipped {
		t.Fatalf("transcription = %s, want skipped", res.State.Transcription.Status)
	}
	// Scoring still runs against the unavailable-transcript placeholder.
	if res.State.Scoring.Status != models.StepCompleted {
		t.Fatalf("scoring = %s, want completed", res.State.Scoring.Status)
	}
}

func TestResolveForfeit(t *testing.T) {
	st := store.NewMemory()
	st.AddUser(&models.User{ID: "u1", Wins: 2, Losses: 1, TotalDebates: 3})
	st.AddUser(&models.User{ID: "u2", Wins: 1, Losses: 2, TotalDebates: 3})
	now := time.Now()
	if err := st.InsertDebate(context.Background(), &models.DebateSession{
		ID:        "d1",
		Pro:       models.RegisteredOwner("u1"),
		Con:       models.RegisteredOwner("u2"),
		TimeLimit: 15,
		Status:    models.StatusForfeiting,
		Phase:     models.PhaseFreeflow,
		RoomName:  "debate-d1",
		CreatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}
	rooms := newFakeRooms()
	o := newOrchestratorForTest(st, rooms, &fakeTranscriber{}, newFakeAnalyst())
	ctx := context.Background()

	o.resolveForfeit(ctx, "d1", models.SidePro)

	d, _ := st.GetDebate(ctx, "d1")
	if d.Status != models.StatusForfeited || d.Phase != models.PhaseEnded {
		t.Fatalf("got %s/%s", d.Status, d.Phase)
	}
	if d.Winner != models.SideCon || d.WinnerSource != models.WinnerSourceForfeit {
		t.Fatalf("winner = %s/%s", d.Winner, d.WinnerSource)
	}
	if d.CompletedAt == nil {
		t.Fatal("CompletedAt not set")
	}

	u1, _ := st.GetUser(ctx, "u1")
	u2, _ := st.GetUser(ctx, "u2")
	if u1.Losses != 2 || u1.TotalDebates != 4 {
		t.Fatalf("forfeiter record = %d losses / %d debates", u1.Losses, u1.TotalDebates)
	}
	if u2.Wins != 2 || u2.TotalDebates != 4 {
		t.Fatalf("winner record = %d wins / %d debates", u2.Wins, u2.TotalDebates)
	}
	if rooms.roomsDeleted != 1 {
		t.Fatal("room not torn down")
	}

	// Duplicate resolution is a no-op: records unchanged.
	o.resolveForfeit(ctx, "d1", models.SidePro)
	u1, _ = st.GetUser(ctx, "u1")
	if u1.Losses != 2 || u1.TotalDebates != 4 {
		t.Fatal("duplicate forfeit resolution mutated records")
	}
}

func TestNextQualityScore(t *testing.T) {
	cases := []struct {
		oldAvg, debates, score, want int
	}{
		{60, 5, 90, 66},
		{60, 3, 80, 64},
		{0, 0, 75, 75},     // first debate takes the raw score
		{95, 10, 200, 100}, // clamped high
		{5, 10, -50, 0},    // clamped low
		{50, 1, 50, 50},
	}
	for _, tc := range cases {
		if got := NextQualityScore(tc.oldAvg, tc.debates, tc.score); got != tc.want {
			t.Errorf("NextQualityScore(%d, %d, %d) = %d, want %d",
				tc.oldAvg, tc.debates, tc.score, got, tc.want)
		}
	}
}
