package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"podium/models"
	"podium/store"
)

func seedVotableDebate(t *testing.T, st *store.Memory) {
	t.Helper()
	st.AddUser(&models.User{ID: "u1"})
	st.AddUser(&models.User{ID: "u2"})
	now := time.Now()
	if err := st.InsertDebate(context.Background(), &models.DebateSession{
		ID:          "d1",
		Pro:         models.RegisteredOwner("u1"),
		Con:         models.RegisteredOwner("u2"),
		TimeLimit:   15,
		Status:      models.StatusCompleted,
		Phase:       models.PhaseEnded,
		CreatedAt:   now,
		CompletedAt: &now,
	}); err != nil {
		t.Fatal(err)
	}
}

func castBallots(t *testing.T, vs *VoteService, choice string, count int, prefix string) *VoteResult {
	t.Helper()
	var res *VoteResult
	var err error
	for i := 0; i < count; i++ {
		res, err = vs.CastVote(context.Background(), &models.Vote{
			DebateID:     "d1",
			VoterID:      fmt.Sprintf("%s-%d", prefix, i),
			WinnerChoice: choice,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return res
}

func TestCastVotePreconditions(t *testing.T) {
	st := store.NewMemory()
	seedVotableDebate(t, st)
	vs := NewVoteService(st)
	ctx := context.Background()

	if _, err := vs.CastVote(ctx, &models.Vote{DebateID: "d1", VoterID: "v1", WinnerChoice: "neither"}); !errors.Is(err, ErrInvalidWinnerChoice) {
		t.Fatalf("got %v, want ErrInvalidWinnerChoice", err)
	}
	if _, err := vs.CastVote(ctx, &models.Vote{DebateID: "d1", VoterID: "u1", WinnerChoice: models.SidePro}); !errors.Is(err, ErrOwnDebateVote) {
		t.Fatalf("got %v, want ErrOwnDebateVote", err)
	}
	if _, err := vs.CastVote(ctx, &models.Vote{DebateID: "missing", VoterID: "v1", WinnerChoice: models.SidePro}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}

	// A debate still in progress cannot be voted on.
	if err := st.InsertDebate(ctx, &models.DebateSession{
		ID: "d2", Pro: models.RegisteredOwner("u1"), Con: models.RegisteredOwner("u2"),
		Status: models.StatusInProgress, Phase: models.PhaseFreeflow, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := vs.CastVote(ctx, &models.Vote{DebateID: "d2", VoterID: "v1", WinnerChoice: models.SidePro}); !errors.Is(err, ErrDebateNotVotable) {
		t.Fatalf("got %v, want ErrDebateNotVotable", err)
	}
}

func TestCastVoteDerivesWinnerByMargin(t *testing.T) {
	st := store.NewMemory()
	seedVotableDebate(t, st)
	vs := NewVoteService(st)
	ctx := context.Background()

	// 6 pro vs 4 con: 20-point lead, pro wins.
	castBallots(t, vs, models.SidePro, 6, "p")
	res := castBallots(t, vs, models.SideCon, 4, "c")
	if res.Winner != models.SidePro {
		t.Fatalf("winner = %s, want pro", res.Winner)
	}

	d, _ := st.GetDebate(ctx, "d1")
	if d.Winner != models.SidePro || d.WinnerSource != models.WinnerSourceCommunity {
		t.Fatalf("recorded winner = %s/%s", d.Winner, d.WinnerSource)
	}

	u1, _ := st.GetUser(ctx, "u1")
	u2, _ := st.GetUser(ctx, "u2")
	if u1.Wins != 1 || u2.Losses != 1 {
		t.Fatalf("records = %d wins / %d losses", u1.Wins, u2.Losses)
	}
}

func TestCastVoteCloseTallyIsDraw(t *testing.T) {
	st := store.NewMemory()
	seedVotableDebate(t, st)
	vs := NewVoteService(st)

	// 10 pro vs 10 con: dead even, draw.
	castBallots(t, vs, models.SidePro, 10, "p")
	res := castBallots(t, vs, models.SideCon, 10, "c")
	if res.Winner != models.WinnerDraw {
		t.Fatalf("winner = %s, want draw", res.Winner)
	}

	u1, _ := st.GetUser(context.Background(), "u1")
	u2, _ := st.GetUser(context.Background(), "u2")
	if u1.Draws != 1 || u2.Draws != 1 {
		t.Fatalf("draw records = %d/%d", u1.Draws, u2.Draws)
	}
}

// Later votes flip the verdict; records carry only the latest outcome.
func TestCastVoteRecordsFollowVerdictChanges(t *testing.T) {
	st := store.NewMemory()
	seedVotableDebate(t, st)
	vs := NewVoteService(st)
	ctx := context.Background()

	castBallots(t, vs, models.SidePro, 3, "p")

	u1, _ := st.GetUser(ctx, "u1")
	if u1.Wins != 1 {
		t.Fatalf("u1 wins = %d, want 1", u1.Wins)
	}

	// A con surge flips the verdict: the earlier win is rolled back.
	castBallots(t, vs, models.SideCon, 9, "c")

	u1, _ = st.GetUser(ctx, "u1")
	u2, _ := st.GetUser(ctx, "u2")
	if u1.Wins != 0 || u1.Losses != 1 {
		t.Fatalf("u1 record = %d wins / %d losses, want 0/1", u1.Wins, u1.Losses)
	}
	if u2.Wins != 1 || u2.Losses != 0 {
		t.Fatalf("u2 record = %d wins / %d losses, want 1/0", u2.Wins, u2.Losses)
	}
}

func TestCastVoteReplacesEarlierVote(t *testing.T) {
	st := store.NewMemory()
	seedVotableDebate(t, st)
	vs := NewVoteService(st)
	ctx := context.Background()

	if _, err := vs.CastVote(ctx, &models.Vote{DebateID: "d1", VoterID: "v1", WinnerChoice: models.SidePro}); err != nil {
		t.Fatal(err)
	}
	res, err := vs.CastVote(ctx, &models.Vote{DebateID: "d1", VoterID: "v1", WinnerChoice: models.SideCon})
	if err != nil {
		t.Fatal(err)
	}
	if res.Tally.Total() != 1 {
		t.Fatalf("total = %d, want 1 after re-vote", res.Tally.Total())
	}
	if res.Tally.Con != 1 || res.Tally.Pro != 0 {
		t.Fatalf("tally = %+v", res.Tally)
	}
}

func TestDeriveWinner(t *testing.T) {
	cases := []struct {
		tally models.VoteTally
		want  string
	}{
		{models.VoteTally{}, models.WinnerDraw},
		{models.VoteTally{Pro: 1}, models.SidePro},
		{models.VoteTally{Con: 1}, models.SideCon},
		{models.VoteTally{Pro: 10, Con: 10}, models.WinnerDraw},
		// 52.5% vs 47.5%: exactly a 5-point lead is still a draw.
		{models.VoteTally{Pro: 21, Con: 19}, models.WinnerDraw},
		{models.VoteTally{Pro: 22, Con: 18}, models.SidePro},
		{models.VoteTally{Pro: 2, Con: 3, Draw: 15}, models.WinnerDraw},
	}
	for _, tc := range cases {
		if got := DeriveWinner(tc.tally); got != tc.want {
			t.Errorf("DeriveWinner(%+v) = %s, want %s", tc.tally, got, tc.want)
		}
	}
}
