package services

import (
	"context"
	"errors"
	"testing"

	"podium/models"
	"podium/store"
)

func TestCreateChallenge(t *testing.T) {
	st := store.NewMemory()
	cs := NewChallengeService(st)
	ctx := context.Background()

	if _, err := cs.CreateChallenge(ctx, "u1", "u1", "t1", 15); !errors.Is(err, ErrSelfChallenge) {
		t.Fatalf("got %v, want ErrSelfChallenge", err)
	}
	if _, err := cs.CreateChallenge(ctx, "u1", "u2", "t1", 7); !errors.Is(err, ErrInvalidTimeLimit) {
		t.Fatalf("got %v, want ErrInvalidTimeLimit", err)
	}

	c, err := cs.CreateChallenge(ctx, "u1", "u2", "t1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != models.ChallengePending {
		t.Fatalf("status = %s", c.Status)
	}
	if c.TimeLimit != 15 {
		t.Fatalf("default time limit = %d, want 15", c.TimeLimit)
	}

	// The target is notified.
	notes := st.Notifications()
	if len(notes) != 1 || notes[0].UserID != "u2" || notes[0].Type != models.NotifyChallengeReceived {
		t.Fatalf("notifications = %+v", notes)
	}

	// A second pending challenge to the same target is rejected.
	if _, err := cs.CreateChallenge(ctx, "u1", "u2", "t1", 15); !errors.Is(err, ErrDuplicateChallenge) {
		t.Fatalf("got %v, want ErrDuplicateChallenge", err)
	}

	// The reverse direction is a different pair and is allowed.
	if _, err := cs.CreateChallenge(ctx, "u2", "u1", "t1", 15); err != nil {
		t.Fatal(err)
	}
}

func TestResolveChallenge(t *testing.T) {
	st := store.NewMemory()
	cs := NewChallengeService(st)
	ctx := context.Background()

	c, err := cs.CreateChallenge(ctx, "u1", "u2", "t1", 15)
	if err != nil {
		t.Fatal(err)
	}

	resolved, err := cs.ResolveChallenge(ctx, c.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != models.ChallengeAccepted {
		t.Fatalf("status = %s", resolved.Status)
	}

	// Resolving twice misses the pending guard.
	if _, err := cs.ResolveChallenge(ctx, c.ID, false); !errors.Is(err, ErrChallengeResolved) {
		t.Fatalf("got %v, want ErrChallengeResolved", err)
	}

	// The challenger heard back.
	var challengerNotes int
	for _, n := range st.Notifications() {
		if n.UserID == "u1" {
			challengerNotes++
		}
	}
	if challengerNotes != 1 {
		t.Fatalf("challenger notifications = %d, want 1", challengerNotes)
	}

	// Declining a fresh challenge.
	c2, err := cs.CreateChallenge(ctx, "u3", "u4", "t1", 15)
	if err != nil {
		t.Fatal(err)
	}
	resolved, err = cs.ResolveChallenge(ctx, c2.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != models.ChallengeDeclined {
		t.Fatalf("status = %s", resolved.Status)
	}
}
