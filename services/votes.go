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

// Voting precondition failures.
var (
	ErrInvalidWinnerChoice = errors.New("winner choice must be pro, con, or draw")
	ErrDebateNotVotable    = errors.New("debate is not completed")
	ErrOwnDebateVote       = errors.New("cannot vote on your own debate")
)

// voteMarginPct is the lead, in percentage points of the total, one side
// needs before the community verdict names a winner instead of a draw.
const voteMarginPct = 5.0

// VoteResult is the outcome of a cast vote: the refreshed tally and the
// community verdict derived from it.
type VoteResult struct {
	Tally  models.VoteTally `json:"tally"`
	Winner string           `json:"winner"`
}

// VoteService handles community voting on completed debates. Votes are
// unweighted and replace on re-vote; the derived winner is recomputed after
// every cast and supersedes the AI verdict.
type VoteService struct {
	store store.Store
}

func NewVoteService(st store.Store) *VoteService {
	return &VoteService{store: st}
}

// CastVote records or replaces the voter's verdict and refreshes the
// community winner.
func (vs *VoteService) CastVote(ctx context.Context, vote *models.Vote) (*VoteResult, error) {
	if vote.WinnerChoice != models.SidePro && vote.WinnerChoice != models.SideCon && vote.WinnerChoice != models.WinnerDraw {
		return nil, ErrInvalidWinnerChoice
	}

	d, err := vs.store.GetDebate(ctx, vote.DebateID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.StatusCompleted {
		return nil, ErrDebateNotVotable
	}
	if d.HasParticipant(models.RegisteredOwner(vote.VoterID)) {
		return nil, ErrOwnDebateVote
	}

	if vote.ID == "" {
		vote.ID = uuid.NewString()
	}
	vote.CreatedAt = time.Now().UTC()
	if err := vs.store.UpsertVote(ctx, vote); err != nil {
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	tally, err := vs.store.TallyVotes(ctx, vote.DebateID)
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}

	winner := DeriveWinner(tally)

	// Guarded on completed: if the session moved on (pipeline_failed or a
	// concurrent transition), the verdict write is a no-op.
	applied, err := vs.store.SetWinner(ctx, vote.DebateID, winner, models.WinnerSourceCommunity)
	if err != nil {
		return nil, fmt.Errorf("failed to record winner: %w", err)
	}
	if applied {
		vs.reconcileRecords(ctx, d, winner)
	}

	return &VoteResult{Tally: tally, Winner: winner}, nil
}

// GetTally returns the current vote counts for a debate.
func (vs *VoteService) GetTally(ctx context.Context, debateID string) (models.VoteTally, error) {
	return vs.store.TallyVotes(ctx, debateID)
}

// DeriveWinner converts a tally into the community verdict. A side must
// lead by more than voteMarginPct of all votes; anything closer is a draw,
// as is an empty tally.
func DeriveWinner(tally models.VoteTally) string {
	total := tally.Total()
	if total == 0 {
		return models.WinnerDraw
	}

	proPct := float64(tally.Pro) / float64(total) * 100
	conPct := float64(tally.Con) / float64(total) * 100

	diff := proPct - conPct
	if diff > voteMarginPct {
		return models.SidePro
	}
	if diff < -voteMarginPct {
		return models.SideCon
	}
	return models.WinnerDraw
}

// reconcileRecords moves participants' W/L/D records from the previous
// community verdict to the new one. Applying only the delta keeps records
// stable however many votes arrive.
func (vs *VoteService) reconcileRecords(ctx context.Context, d *models.DebateSession, newWinner string) {
	oldWinner := ""
	if d.WinnerSource == models.WinnerSourceCommunity {
		oldWinner = d.Winner
	}
	if oldWinner == newWinner {
		return
	}

	if oldWinner != "" {
		vs.applyOutcome(ctx, d, oldWinner, -1)
	}
	vs.applyOutcome(ctx, d, newWinner, 1)
}

func (vs *VoteService) applyOutcome(ctx context.Context, d *models.DebateSession, winner string, sign int) {
	type delta struct {
		owner               models.Owner
		wins, losses, draws int
	}

	var deltas []delta
	if winner == models.WinnerDraw {
		deltas = []delta{
			{owner: d.Pro, draws: sign},
			{owner: d.Con, draws: sign},
		}
	} else {
		deltas = []delta{
			{owner: d.OwnerForSide(winner), wins: sign},
			{owner: d.OwnerForSide(models.OtherSide(winner)), losses: sign},
		}
	}

	for _, dl := range deltas {
		if !dl.owner.Registered() {
			continue
		}
		if err := vs.store.IncrementUserRecord(ctx, dl.owner.UserID, dl.wins, dl.losses, dl.draws, 0); err != nil {
			log.Printf("failed to adjust record for user %s: %v", dl.owner.UserID, err)
		}
	}
}
