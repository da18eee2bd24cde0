package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"podium/models"
	"podium/store"
)

// Challenge precondition failures.
var (
	ErrSelfChallenge      = errors.New("cannot challenge yourself")
	ErrDuplicateChallenge = errors.New("a pending challenge to this user already exists")
	ErrChallengeResolved  = errors.New("challenge not found or already resolved")
)

// ChallengeService handles direct debate invitations between registered
// users. Accepting a challenge drops both users into the matchmaking flow
// with a fixed topic.
type ChallengeService struct {
	store store.Store
}

func NewChallengeService(st store.Store) *ChallengeService {
	return &ChallengeService{store: st}
}

// CreateChallenge issues a challenge and notifies the target. At most one
// pending challenge may exist per challenger/target pair.
func (cs *ChallengeService) CreateChallenge(ctx context.Context, challengerID, targetID, topicID string, timeLimit int) (*models.Challenge, error) {
	if challengerID == targetID {
		return nil, ErrSelfChallenge
	}
	if timeLimit == 0 {
		timeLimit = 15
	}
	if !models.ValidTimeLimit(timeLimit) {
		return nil, ErrInvalidTimeLimit
	}

	existing, err := cs.store.FindPendingChallenge(ctx, challengerID, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending challenges: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateChallenge
	}

	challenge := &models.Challenge{
		ID:           uuid.NewString(),
		ChallengerID: challengerID,
		TargetID:     targetID,
		TopicID:      topicID,
		TimeLimit:    timeLimit,
		Status:       models.ChallengePending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := cs.store.InsertChallenge(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	n := &models.Notification{
		ID:     uuid.NewString(),
		UserID: targetID,
		Type:   models.NotifyChallengeReceived,
		Title:  "New challenge!",
		Body:   "Someone has challenged you to a debate.",
		Data: map[string]string{
			"challengeId":  challenge.ID,
			"challengerId": challengerID,
			"topicId":      topicID,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := cs.store.InsertNotification(ctx, n); err != nil {
		log.Printf("failed to notify challenge target: %v", err)
	}

	return challenge, nil
}

// ResolveChallenge accepts or declines a pending challenge. The pending
// guard makes double resolution impossible.
func (cs *ChallengeService) ResolveChallenge(ctx context.Context, challengeID string, accept bool) (*models.Challenge, error) {
	challenge, err := cs.store.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	status := models.ChallengeDeclined
	if accept {
		status = models.ChallengeAccepted
	}

	applied, err := cs.store.ResolveChallenge(ctx, challengeID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve challenge: %w", err)
	}
	if !applied {
		return nil, ErrChallengeResolved
	}
	challenge.Status = status

	body := "Your challenge was declined."
	if accept {
		body = "Your challenge was accepted. Get ready to debate!"
	}
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    challenge.ChallengerID,
		Type:      models.NotifyChallengeReceived,
		Title:     fmt.Sprintf("Challenge %s!", status),
		Body:      body,
		Data:      map[string]string{"challengeId": challenge.ID},
		CreatedAt: time.Now().UTC(),
	}
	if err := cs.store.InsertNotification(ctx, n); err != nil {
		log.Printf("failed to notify challenger: %v", err)
	}

	return challenge, nil
}
