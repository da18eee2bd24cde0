package store

import (
	"context"
	"errors"
	"time"

	"podium/models"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("store: not found")

// CandidateQuery selects waiting, non-expired queue entries compatible with
// a joining entry. Results are FIFO by creation time, id ascending on ties.
type CandidateQuery struct {
	TimeLimit int
	Ranked    bool
	Category  string
	// TopicID, when set, restricts candidates to the same topic or no topic
	// preference. Ignored for the quick category.
	TopicID string
	// Stances the candidate may have requested.
	Stances []string
	// ExcludeID removes the joining entry itself from the results.
	ExcludeID string
	Now       time.Time
}

// DebateTransition describes the target state of a guarded session update.
// Zero-valued fields are left unchanged.
type DebateTransition struct {
	Status       string
	Phase        string
	Winner       string
	WinnerSource string
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Store is the persistence surface for the matchmaking queue, debate
// sessions, and everything the post-debate pipeline writes. Methods that
// return (bool, error) are conditional updates: false with a nil error means
// the guard did not match, which callers treat as "someone else got there
// first", never as a failure.
type Store interface {
	// Queue entries. Find methods return (nil, nil) when nothing matches;
	// Get methods return ErrNotFound.
	FindWaitingEntry(ctx context.Context, owner models.Owner) (*models.QueueEntry, error)
	GetQueueEntry(ctx context.Context, id string) (*models.QueueEntry, error)
	InsertQueueEntry(ctx context.Context, entry *models.QueueEntry) error
	ExpireStaleEntries(ctx context.Context, now time.Time) (int64, error)
	ListCandidates(ctx context.Context, q CandidateQuery) ([]models.QueueEntry, error)
	// ClaimQueueEntry marks a waiting entry matched and links it to its
	// opponent entry and session. The waiting guard makes the claim the
	// atomic commit point of a match: only one concurrent matcher wins.
	ClaimQueueEntry(ctx context.Context, id, matchedWith, debateID string) (bool, error)
	// ReleaseQueueEntry undoes a claim (matched back to waiting, links
	// cleared) when the rest of the match could not be committed.
	ReleaseQueueEntry(ctx context.Context, id string) (bool, error)
	// ExpireQueueEntry marks a waiting entry expired (explicit leave).
	ExpireQueueEntry(ctx context.Context, id string) (bool, error)

	// Debate sessions.
	InsertDebate(ctx context.Context, d *models.DebateSession) error
	GetDebate(ctx context.Context, id string) (*models.DebateSession, error)
	SetDebateRoom(ctx context.Context, id, roomName, roomURL string) error
	// TransitionDebate applies next only while the session still matches
	// expectStatus (and expectPhase, unless empty).
	TransitionDebate(ctx context.Context, id, expectStatus, expectPhase string, next DebateTransition) (bool, error)
	// SwapDebateSides exchanges the pro/con owners, guarded on prematch.
	SwapDebateSides(ctx context.Context, id string) (bool, error)
	SetDebateStatus(ctx context.Context, id, status string) error
	SetRecordingID(ctx context.Context, id, recordingID string) error
	SetAudioURL(ctx context.Context, id, audioURL string) error
	SetTranscript(ctx context.Context, id string, t *models.Transcript, status string) error
	SetTranscriptStatus(ctx context.Context, id, status string) error
	SetScores(ctx context.Context, id string, proc *models.ProceduralAnalysis, qual *models.QualitativeAnalysis, proScore, conScore int) error
	SetScoringStatus(ctx context.Context, id, status string) error
	SavePipelineState(ctx context.Context, id string, ps *models.PipelineState) error
	// SetWinner records a community-derived winner, guarded on the session
	// still being completed.
	SetWinner(ctx context.Context, id, winner, source string) (bool, error)

	// Users and guest sessions.
	GetUser(ctx context.Context, id string) (*models.User, error)
	// ApplyDebateQuality records the outcome of one scored debate: sets the
	// new rolling quality average and increments totalDebates by one.
	ApplyDebateQuality(ctx context.Context, id string, newAvg int) error
	IncrementUserRecord(ctx context.Context, id string, wins, losses, draws, totalDebates int) error
	GetGuestSession(ctx context.Context, id string) (*models.GuestSession, error)
	IncrementGuestDebates(ctx context.Context, id string) error

	// Pipeline outputs and community flows.
	InsertStrike(ctx context.Context, s *models.Strike) error
	InsertNotification(ctx context.Context, n *models.Notification) error
	UpsertVote(ctx context.Context, v *models.Vote) error
	TallyVotes(ctx context.Context, debateID string) (models.VoteTally, error)

	// Topics.
	GetTopic(ctx context.Context, id string) (*models.Topic, error)
	RandomOfficialTopic(ctx context.Context, category string) (*models.Topic, error)
	IncrementTopicDebates(ctx context.Context, id string) error

	// Challenges.
	FindPendingChallenge(ctx context.Context, challengerID, targetID string) (*models.Challenge, error)
	InsertChallenge(ctx context.Context, c *models.Challenge) error
	// ResolveChallenge moves a pending challenge to accepted/declined.
	ResolveChallenge(ctx context.Context, id, status string) (bool, error)
	GetChallenge(ctx context.Context, id string) (*models.Challenge, error)
}
