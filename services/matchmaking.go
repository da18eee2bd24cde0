package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"podium/internal/realtime"
	"podium/models"
	"podium/store"
)

// Validation and precondition failures surfaced to the transport layer.
var (
	ErrMissingOwner     = errors.New("a user id or guest session id is required")
	ErrMissingCategory  = errors.New("category is required")
	ErrInvalidTimeLimit = errors.New("time limit must be 5, 15, or 45 minutes")
	ErrInvalidStance    = errors.New("stance must be pro, con, or either")
	ErrRankedGuest      = errors.New("ranked debates require a registered account")
	ErrGuestLimit       = errors.New("guest debate limit reached, register to keep debating")
)

// queueEntryTTL bounds how long an untouched entry stays matchable.
const queueEntryTTL = 2 * time.Minute

// maxClaimRetries bounds how many times a match attempt re-searches the
// queue after losing a claim race.
const maxClaimRetries = 3

// QueueRequest is a request to join the matchmaking queue.
type QueueRequest struct {
	Owner     models.Owner
	Category  string
	TopicID   string
	TimeLimit int
	Stance    string
	Ranked    bool
}

// MatchSide carries one participant's view of a fresh match, including the
// meeting token only that participant may use.
type MatchSide struct {
	QueueID string       `json:"queueId"`
	Owner   models.Owner `json:"owner"`
	Label   string       `json:"label"`
	Token   string       `json:"token"`
}

// Match describes a committed pairing.
type Match struct {
	DebateID string    `json:"debateId"`
	TopicID  string    `json:"topicId,omitempty"`
	RoomName string    `json:"roomName"`
	RoomURL  string    `json:"roomUrl"`
	Pro      MatchSide `json:"pro"`
	Con      MatchSide `json:"con"`
}

// QueueResult is the outcome of a queue join: the caller's entry, plus the
// match if one was committed immediately.
type QueueResult struct {
	Entry         *models.QueueEntry `json:"entry"`
	AlreadyQueued bool               `json:"alreadyQueued"`
	Match         *Match             `json:"match,omitempty"`
}

// MatchmakingService pairs queued participants into debate sessions. All
// mutations go through conditional updates on the store, so any number of
// concurrent joins can race safely.
type MatchmakingService struct {
	store  store.Store
	rooms  RoomProvider
	events realtime.Publisher
}

func NewMatchmakingService(st store.Store, rooms RoomProvider, events realtime.Publisher) *MatchmakingService {
	return &MatchmakingService{store: st, rooms: rooms, events: events}
}

// EnterQueue validates the request, inserts a waiting entry, and immediately
// attempts a match. Joining while already queued returns the existing entry
// instead of creating a duplicate.
func (ms *MatchmakingService) EnterQueue(ctx context.Context, req QueueRequest) (*QueueResult, error) {
	if req.Stance == "" {
		req.Stance = models.StanceEither
	}
	if err := ms.validate(ctx, req); err != nil {
		return nil, err
	}

	existing, err := ms.store.FindWaitingEntry(ctx, req.Owner)
	if err != nil {
		return nil, fmt.Errorf("failed to check queue state: %w", err)
	}
	if existing != nil {
		return &QueueResult{Entry: existing, AlreadyQueued: true}, nil
	}

	now := time.Now().UTC()
	entry := &models.QueueEntry{
		ID:        uuid.NewString(),
		Owner:     req.Owner,
		Category:  req.Category,
		TopicID:   req.TopicID,
		TimeLimit: req.TimeLimit,
		Stance:    req.Stance,
		Ranked:    req.Ranked,
		Status:    models.QueueWaiting,
		CreatedAt: now,
		ExpiresAt: now.Add(queueEntryTTL),
	}
	if err := ms.store.InsertQueueEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("queue insert failed: %w", err)
	}

	// Sweep stale entries before searching so they cannot be matched.
	if _, err := ms.store.ExpireStaleEntries(ctx, now); err != nil {
		log.Printf("stale queue sweep failed: %v", err)
	}

	match, err := ms.findMatch(ctx, entry)
	if err != nil {
		// The entry stays in the queue; a later join can still pick it up.
		return nil, err
	}
	return &QueueResult{Entry: entry, Match: match}, nil
}

func (ms *MatchmakingService) validate(ctx context.Context, req QueueRequest) error {
	if req.Owner.Zero() {
		return ErrMissingOwner
	}
	if req.Category == "" {
		return ErrMissingCategory
	}
	if !models.ValidTimeLimit(req.TimeLimit) {
		return ErrInvalidTimeLimit
	}
	if !models.ValidStance(req.Stance) {
		return ErrInvalidStance
	}
	if req.Ranked && !req.Owner.Registered() {
		return ErrRankedGuest
	}
	if !req.Owner.Registered() {
		gs, err := ms.store.GetGuestSession(ctx, req.Owner.SessionID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to load guest session: %w", err)
		}
		if gs != nil && gs.DebateCount >= models.GuestDebateLimit {
			return ErrGuestLimit
		}
	}
	return nil
}

// findMatch searches for a compatible opponent and, if one exists, claims
// both queue entries before committing the session. The two claims are the
// linearization point: each flips a waiting entry to matched, so a rival
// matcher can win at most one side and the loser backs off cleanly.
func (ms *MatchmakingService) findMatch(ctx context.Context, entry *models.QueueEntry) (*Match, error) {
	for attempt := 0; attempt < maxClaimRetries; attempt++ {
		q := store.CandidateQuery{
			TimeLimit: entry.TimeLimit,
			Ranked:    entry.Ranked,
			Category:  entry.Category,
			Stances:   compatibleStances(entry.Stance),
			ExcludeID: entry.ID,
			Now:       time.Now().UTC(),
		}
		if entry.Category != models.CategoryQuick {
			q.TopicID = entry.TopicID
		}

		candidates, err := ms.store.ListCandidates(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("queue search failed: %w", err)
		}

		var opponent *models.QueueEntry
		for i := range candidates {
			if !candidates[i].Owner.Same(entry.Owner) {
				opponent = &candidates[i]
				break
			}
		}
		if opponent == nil {
			return nil, nil
		}

		debateID := uuid.NewString()

		claimed, err := ms.store.ClaimQueueEntry(ctx, opponent.ID, entry.ID, debateID)
		if err != nil {
			return nil, fmt.Errorf("failed to claim opponent entry: %w", err)
		}
		if !claimed {
			// Opponent got matched by a rival in the meantime. Search again.
			continue
		}

		claimed, err = ms.store.ClaimQueueEntry(ctx, entry.ID, opponent.ID, debateID)
		if err != nil {
			ms.releaseEntry(ctx, opponent.ID)
			return nil, fmt.Errorf("failed to claim own entry: %w", err)
		}
		if !claimed {
			// A rival matched us while we held the opponent. Their session
			// stands; put the opponent back for the next searcher.
			ms.releaseEntry(ctx, opponent.ID)
			return nil, nil
		}

		return ms.commitMatch(ctx, entry, opponent, debateID)
	}
	return nil, nil
}

// commitMatch creates the session and room for two claimed entries. On any
// failure past the claims, both entries are released back to waiting.
func (ms *MatchmakingService) commitMatch(ctx context.Context, entry, opponent *models.QueueEntry, debateID string) (*Match, error) {
	proEntry, conEntry := assignSides(entry, opponent)

	topicID := entry.TopicID
	if topicID == "" {
		topicID = opponent.TopicID
	}
	if topicID == "" {
		category := entry.Category
		if category == models.CategoryQuick {
			category = ""
		}
		topic, err := ms.store.RandomOfficialTopic(ctx, category)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Printf("random topic selection failed: %v", err)
		}
		if topic != nil {
			topicID = topic.ID
		}
	}

	session := &models.DebateSession{
		ID:        debateID,
		TopicID:   topicID,
		Pro:       proEntry.Owner,
		Con:       conEntry.Owner,
		TimeLimit: entry.TimeLimit,
		Ranked:    entry.Ranked,
		Status:    models.StatusPrematch,
		Phase:     models.PhasePrematch,
		CreatedAt: time.Now().UTC(),
	}
	if err := ms.store.InsertDebate(ctx, session); err != nil {
		ms.releaseEntry(ctx, entry.ID)
		ms.releaseEntry(ctx, opponent.ID)
		return nil, fmt.Errorf("debate creation failed: %w", err)
	}

	room, err := ms.rooms.CreateRoom(ctx, debateID, entry.TimeLimit)
	if err != nil {
		ms.releaseEntry(ctx, entry.ID)
		ms.releaseEntry(ctx, opponent.ID)
		return nil, fmt.Errorf("room creation failed: %w", err)
	}

	proLabel := ms.participantLabel(ctx, proEntry.Owner, "Pro")
	conLabel := ms.participantLabel(ctx, conEntry.Owner, "Con")

	proToken, err := ms.rooms.CreateToken(ctx, room.Name, proLabel, true)
	if err != nil {
		ms.releaseEntry(ctx, entry.ID)
		ms.releaseEntry(ctx, opponent.ID)
		return nil, fmt.Errorf("token creation failed: %w", err)
	}
	conToken, err := ms.rooms.CreateToken(ctx, room.Name, conLabel, false)
	if err != nil {
		ms.releaseEntry(ctx, entry.ID)
		ms.releaseEntry(ctx, opponent.ID)
		return nil, fmt.Errorf("token creation failed: %w", err)
	}

	if err := ms.store.SetDebateRoom(ctx, debateID, room.Name, room.URL); err != nil {
		return nil, fmt.Errorf("failed to record room info: %w", err)
	}

	if topicID != "" {
		if err := ms.store.IncrementTopicDebates(ctx, topicID); err != nil {
			log.Printf("failed to bump topic debate count: %v", err)
		}
	}

	match := &Match{
		DebateID: debateID,
		TopicID:  topicID,
		RoomName: room.Name,
		RoomURL:  room.URL,
		Pro: MatchSide{
			QueueID: proEntry.ID,
			Owner:   proEntry.Owner,
			Label:   proLabel,
			Token:   proToken,
		},
		Con: MatchSide{
			QueueID: conEntry.ID,
			Owner:   conEntry.Owner,
			Label:   conLabel,
			Token:   conToken,
		},
	}

	ms.announceMatch(ctx, match)
	return match, nil
}

func (ms *MatchmakingService) releaseEntry(ctx context.Context, id string) {
	if _, err := ms.store.ReleaseQueueEntry(ctx, id); err != nil {
		log.Printf("failed to release queue entry %s: %v", id, err)
	}
}

// announceMatch notifies both parties: persistent notifications for
// registered users, plus a realtime event per side so each client learns
// which side it is on. Delivery failures never fail the match.
func (ms *MatchmakingService) announceMatch(ctx context.Context, match *Match) {
	sides := []struct {
		side  string
		owner models.Owner
	}{
		{models.SidePro, match.Pro.Owner},
		{models.SideCon, match.Con.Owner},
	}

	for _, s := range sides {
		if s.owner.Registered() {
			n := &models.Notification{
				ID:     uuid.NewString(),
				UserID: s.owner.UserID,
				Type:   models.NotifyMatchFound,
				Title:  "Match found!",
				Body:   "Your debate is ready. Join now.",
				Data: map[string]string{
					"debateId": match.DebateID,
					"side":     s.side,
				},
				CreatedAt: time.Now().UTC(),
			}
			if err := ms.store.InsertNotification(ctx, n); err != nil {
				log.Printf("failed to insert match notification: %v", err)
			}
		}

		event, err := realtime.NewEvent(realtime.EventMatchFound, []string{s.owner.Key()}, realtime.MatchFoundPayload{
			DebateID: match.DebateID,
			TopicID:  match.TopicID,
			RoomName: match.RoomName,
			RoomURL:  match.RoomURL,
			Side:     s.side,
		})
		if err != nil {
			log.Printf("failed to build match event: %v", err)
			continue
		}
		if err := ms.events.Publish(ctx, event); err != nil {
			log.Printf("failed to publish match event: %v", err)
		}
	}
}

// LeaveQueue expires the owner's waiting entry. Leaving an already-matched
// entry is a no-op: a committed match can never be undone from here.
func (ms *MatchmakingService) LeaveQueue(ctx context.Context, owner models.Owner) (bool, error) {
	entry, err := ms.store.FindWaitingEntry(ctx, owner)
	if err != nil {
		return false, fmt.Errorf("failed to look up queue entry: %w", err)
	}
	if entry == nil {
		return false, nil
	}
	left, err := ms.store.ExpireQueueEntry(ctx, entry.ID)
	if err != nil {
		return false, fmt.Errorf("failed to leave queue: %w", err)
	}
	return left, nil
}

// StartExpirySweeper expires stale entries on a timer until ctx is canceled.
// Joins also sweep inline, so this only matters for an idle queue.
func (ms *MatchmakingService) StartExpirySweeper(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := ms.store.ExpireStaleEntries(ctx, time.Now().UTC())
				if err != nil {
					log.Printf("queue sweep failed: %v", err)
				} else if n > 0 {
					log.Printf("expired %d stale queue entries", n)
				}
			}
		}
	}()
}

// compatibleStances returns the stances an opponent may have requested.
// A nil slice means any stance.
func compatibleStances(stance string) []string {
	switch stance {
	case models.StancePro:
		return []string{models.StanceCon, models.StanceEither}
	case models.StanceCon:
		return []string{models.StancePro, models.StanceEither}
	default:
		return nil
	}
}

// assignSides resolves stance preferences into pro/con. Explicit preferences
// win; when both are flexible the assignment is random.
func assignSides(a, b *models.QueueEntry) (pro, con *models.QueueEntry) {
	switch {
	case a.Stance == models.StancePro:
		return a, b
	case b.Stance == models.StancePro:
		return b, a
	case a.Stance == models.StanceCon:
		return b, a
	case b.Stance == models.StanceCon:
		return a, b
	}
	if rand.Intn(2) == 0 {
		return a, b
	}
	return b, a
}

// participantLabel resolves the display name used inside the room.
func (ms *MatchmakingService) participantLabel(ctx context.Context, owner models.Owner, fallback string) string {
	if !owner.Registered() {
		return fallback
	}
	user, err := ms.store.GetUser(ctx, owner.UserID)
	if err != nil || user.Username == "" {
		return "Anonymous"
	}
	return user.Username
}
