package store

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"podium/models"

	"github.com/google/uuid"
)

// Memory is an in-memory Store with the same conditional-update semantics as
// the Mongo implementation. It backs the test suites and local development.
type Memory struct {
	mu sync.Mutex

	queue         map[string]*models.QueueEntry
	debates       map[string]*models.DebateSession
	users         map[string]*models.User
	guestSessions map[string]*models.GuestSession
	strikes       []*models.Strike
	notifications []*models.Notification
	votes         map[string]*models.Vote // keyed by debateID+"/"+voterID
	topics        map[string]*models.Topic
	challenges    map[string]*models.Challenge
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		queue:         make(map[string]*models.QueueEntry),
		debates:       make(map[string]*models.DebateSession),
		users:         make(map[string]*models.User),
		guestSessions: make(map[string]*models.GuestSession),
		votes:         make(map[string]*models.Vote),
		topics:        make(map[string]*models.Topic),
		challenges:    make(map[string]*models.Challenge),
	}
}

// ---- Queue entries ----

func (m *Memory) FindWaitingEntry(ctx context.Context, owner models.Owner) (*models.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.queue {
		if e.Status == models.QueueWaiting && e.Owner.Same(owner) {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *Memory) GetQueueEntry(ctx context.Context, id string) (*models.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.queue[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (m *Memory) InsertQueueEntry(ctx context.Context, entry *models.QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	copied := *entry
	m.queue[entry.ID] = &copied
	return nil
}

func (m *Memory) ExpireStaleEntries(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.queue {
		if e.Status == models.QueueWaiting && e.ExpiresAt.Before(now) {
			e.Status = models.QueueExpired
			n++
		}
	}
	return n, nil
}

func (m *Memory) ListCandidates(ctx context.Context, q CandidateQuery) ([]models.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.QueueEntry
	for _, e := range m.queue {
		if e.Status != models.QueueWaiting || e.ID == q.ExcludeID {
			continue
		}
		if e.TimeLimit != q.TimeLimit || e.Ranked != q.Ranked || e.Category != q.Category {
			continue
		}
		if e.ExpiresAt.Before(q.Now) {
			continue
		}
		if len(q.Stances) > 0 && !contains(q.Stances, e.Stance) {
			continue
		}
		if q.TopicID != "" && q.Category != models.CategoryQuick &&
			e.TopicID != "" && e.TopicID != q.TopicID {
			continue
		}
		out = append(out, *e)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) ClaimQueueEntry(ctx context.Context, id, matchedWith, debateID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.queue[id]
	if !ok || e.Status != models.QueueWaiting {
		return false, nil
	}
	e.Status = models.QueueMatched
	e.MatchedWith = matchedWith
	e.DebateID = debateID
	return true, nil
}

func (m *Memory) ReleaseQueueEntry(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.queue[id]
	if !ok || e.Status != models.QueueMatched {
		return false, nil
	}
	e.Status = models.QueueWaiting
	e.MatchedWith = ""
	e.DebateID = ""
	return true, nil
}

func (m *Memory) ExpireQueueEntry(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.queue[id]
	if !ok || e.Status != models.QueueWaiting {
		return false, nil
	}
	e.Status = models.QueueExpired
	return true, nil
}

// ---- Debate sessions ----

func (m *Memory) InsertDebate(ctx context.Context, d *models.DebateSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	copied := *d
	m.debates[d.ID] = &copied
	return nil
}

func (m *Memory) GetDebate(ctx context.Context, id string) (*models.DebateSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *Memory) SetDebateRoom(ctx context.Context, id, roomName, roomURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return ErrNotFound
	}
	d.RoomName = roomName
	d.RoomURL = roomURL
	return nil
}

func (m *Memory) TransitionDebate(ctx context.Context, id, expectStatus, expectPhase string, next DebateTransition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return false, nil
	}
	if d.Status != expectStatus {
		return false, nil
	}
	if expectPhase != "" && d.Phase != expectPhase {
		return false, nil
	}
	if next.Status != "" {
		d.Status = next.Status
	}
	if next.Phase != "" {
		d.Phase = next.Phase
	}
	if next.Winner != "" {
		d.Winner = next.Winner
	}
	if next.WinnerSource != "" {
		d.WinnerSource = next.WinnerSource
	}
	if next.StartedAt != nil {
		d.StartedAt = next.StartedAt
	}
	if next.CompletedAt != nil {
		d.CompletedAt = next.CompletedAt
	}
	return true, nil
}

func (m *Memory) SwapDebateSides(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok || d.Phase != models.PhasePrematch {
		return false, nil
	}
	d.Pro, d.Con = d.Con, d.Pro
	return true, nil
}

func (m *Memory) SetDebateStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = status
	return nil
}

func (m *Memory) SetRecordingID(ctx context.Context, id, recordingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return ErrNotFound
	}
	d.RecordingID = recordingID
	return nil
}

func (m *Memory) SetAudioURL(ctx context.Context, id, audioURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return ErrNotFound
	}
	d.AudioURL = audioURL
	return nil
}

func (m *Memory) SetTranscript(ctx context.Context, id string, t *models.Transcript, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return ErrNotFound
	}
	d.Transcript = t
	d.TranscriptStatus = status
	return nil
}

func (m *Memory) SetTranscriptStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return ErrNotFound
	}
	d.TranscriptStatus = status
	return nil
}

func (m *Memory) SetScores(ctx context.Context, id string, proc *models.ProceduralAnalysis, qual *models.QualitativeAnalysis, proScore, conScore int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return ErrNotFound
	}
	d.Procedural = proc
	d.Qualitative = qual
	d.ProQualityScore = proScore
	d.ConQualityScore = conScore
	d.ScoringStatus = "completed"
	return nil
}

func (m *Memory) SetScoringStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return ErrNotFound
	}
	d.ScoringStatus = status
	return nil
}

func (m *Memory) SavePipelineState(ctx context.Context, id string, ps *models.PipelineState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return ErrNotFound
	}
	copied := *ps
	d.PipelineState = &copied
	return nil
}

func (m *Memory) SetWinner(ctx context.Context, id, winner, source string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok || d.Status != models.StatusCompleted {
		return false, nil
	}
	d.Winner = winner
	d.WinnerSource = source
	return true, nil
}

// ---- Users and guest sessions ----

// AddUser seeds a user record (test helper).
func (m *Memory) AddUser(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	copied := *u
	m.users[u.ID] = &copied
}

// AddGuestSession seeds a guest session record (test helper).
func (m *Memory) AddGuestSession(s *models.GuestSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	copied := *s
	m.guestSessions[s.ID] = &copied
}

// AddTopic seeds a topic record (test helper).
func (m *Memory) AddTopic(t *models.Topic) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	copied := *t
	m.topics[t.ID] = &copied
}

// Strikes returns all recorded strikes (test helper).
func (m *Memory) Strikes() []models.Strike {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Strike, 0, len(m.strikes))
	for _, s := range m.strikes {
		out = append(out, *s)
	}
	return out
}

// Notifications returns all recorded notifications (test helper).
func (m *Memory) Notifications() []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		out = append(out, *n)
	}
	return out
}

func (m *Memory) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *Memory) ApplyDebateQuality(ctx context.Context, id string, newAvg int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.QualityScoreAvg = newAvg
	u.TotalDebates++
	return nil
}

func (m *Memory) IncrementUserRecord(ctx context.Context, id string, wins, losses, draws, totalDebates int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Wins += wins
	u.Losses += losses
	u.Draws += draws
	u.TotalDebates += totalDebates
	return nil
}

func (m *Memory) GetGuestSession(ctx context.Context, id string) (*models.GuestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.guestSessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *Memory) IncrementGuestDebates(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.guestSessions[id]
	if !ok {
		return ErrNotFound
	}
	s.DebateCount++
	return nil
}

// ---- Pipeline outputs and community flows ----

func (m *Memory) InsertStrike(ctx context.Context, s *models.Strike) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	copied := *s
	m.strikes = append(m.strikes, &copied)
	return nil
}

func (m *Memory) InsertNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	copied := *n
	m.notifications = append(m.notifications, &copied)
	return nil
}

func (m *Memory) UpsertVote(ctx context.Context, v *models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := v.DebateID + "/" + v.VoterID
	if existing, ok := m.votes[key]; ok {
		existing.WinnerChoice = v.WinnerChoice
		existing.BetterArguments = v.BetterArguments
		existing.MoreRespectful = v.MoreRespectful
		existing.ChangedMind = v.ChangedMind
		return nil
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	copied := *v
	m.votes[key] = &copied
	return nil
}

func (m *Memory) TallyVotes(ctx context.Context, debateID string) (models.VoteTally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tally models.VoteTally
	for _, v := range m.votes {
		if v.DebateID != debateID {
			continue
		}
		switch v.WinnerChoice {
		case models.SidePro:
			tally.Pro++
		case models.SideCon:
			tally.Con++
		case models.WinnerDraw:
			tally.Draw++
		}
	}
	return tally, nil
}

// ---- Topics ----

func (m *Memory) GetTopic(ctx context.Context, id string) (*models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topics[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *Memory) RandomOfficialTopic(ctx context.Context, category string) (*models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pool []*models.Topic
	for _, t := range m.topics {
		if !t.IsOfficial {
			continue
		}
		if category != "" && category != models.CategoryQuick && t.Category != category {
			continue
		}
		pool = append(pool, t)
	}
	if len(pool) == 0 {
		return nil, ErrNotFound
	}
	copied := *pool[rand.Intn(len(pool))]
	return &copied, nil
}

func (m *Memory) IncrementTopicDebates(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topics[id]
	if !ok {
		return ErrNotFound
	}
	t.DebateCount++
	return nil
}

// ---- Challenges ----

func (m *Memory) FindPendingChallenge(ctx context.Context, challengerID, targetID string) (*models.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.challenges {
		if c.ChallengerID == challengerID && c.TargetID == targetID && c.Status == models.ChallengePending {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *Memory) InsertChallenge(ctx context.Context, c *models.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	copied := *c
	m.challenges[c.ID] = &copied
	return nil
}

func (m *Memory) ResolveChallenge(ctx context.Context, id, status string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[id]
	if !ok || c.Status != models.ChallengePending {
		return false, nil
	}
	c.Status = status
	return true, nil
}

func (m *Memory) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
