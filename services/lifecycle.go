package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"podium/internal/realtime"
	"podium/models"
	"podium/store"
)

// Lifecycle validation failures.
var (
	ErrInvalidPhase = errors.New("invalid target phase")
	ErrInvalidSide  = errors.New("side must be pro or con")
)

// PipelineTrigger hands finished debates to the post-debate pipeline.
// Implementations must not block.
type PipelineTrigger interface {
	Enqueue(debateID string)
	EnqueueForfeit(debateID, forfeitingSide string)
}

// LifecycleService drives the debate state machine. Every transition is a
// guarded conditional update: when the guard misses because a concurrent
// caller already advanced the session, the call reports applied=false with
// a nil error. Both participants' clients fire timer events, so every
// transition arrives at least twice.
type LifecycleService struct {
	store    store.Store
	rooms    RoomProvider
	events   realtime.Publisher
	pipeline PipelineTrigger
}

func NewLifecycleService(st store.Store, rooms RoomProvider, events realtime.Publisher, pipeline PipelineTrigger) *LifecycleService {
	return &LifecycleService{store: st, rooms: rooms, events: events, pipeline: pipeline}
}

// StartDebate moves a prematch session into opening_pro and starts the
// room recording. Only the caller that wins the guard starts the recording;
// the provider tolerates duplicate starts anyway.
func (ls *LifecycleService) StartDebate(ctx context.Context, debateID string) (bool, error) {
	d, err := ls.store.GetDebate(ctx, debateID)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	applied, err := ls.store.TransitionDebate(ctx, debateID, models.StatusPrematch, models.PhasePrematch, store.DebateTransition{
		Status:    models.StatusInProgress,
		Phase:     models.PhaseOpeningPro,
		StartedAt: &now,
	})
	if err != nil {
		return false, fmt.Errorf("failed to start debate: %w", err)
	}
	if !applied {
		return false, nil
	}

	if d.RoomName != "" {
		if err := ls.rooms.StartRecording(ctx, d.RoomName); err != nil {
			log.Printf("recording start failed for debate %s: %v", debateID, err)
		}
	}

	ls.publishPhase(ctx, d, models.PhaseOpeningPro, models.StatusInProgress)
	return true, nil
}

// AdvancePhase moves the session to the target phase, guarded on the
// session still sitting in the immediately preceding phase. Advancing to
// ended also completes the session and triggers the pipeline; the guard
// guarantees the trigger fires exactly once no matter how many clients
// report the same timer expiry.
func (ls *LifecycleService) AdvancePhase(ctx context.Context, debateID, target string) (bool, error) {
	prev, ok := models.PreviousPhase(target)
	if !ok {
		return false, ErrInvalidPhase
	}

	d, err := ls.store.GetDebate(ctx, debateID)
	if err != nil {
		return false, err
	}

	next := store.DebateTransition{Phase: target}
	if target == models.PhaseEnded {
		now := time.Now().UTC()
		next.Status = models.StatusCompleted
		next.CompletedAt = &now
	}

	applied, err := ls.store.TransitionDebate(ctx, debateID, models.StatusInProgress, prev, next)
	if err != nil {
		return false, fmt.Errorf("phase transition failed: %w", err)
	}
	if !applied {
		return false, nil
	}

	status := models.StatusInProgress
	if target == models.PhaseEnded {
		status = models.StatusCompleted
		ls.pipeline.Enqueue(debateID)
	}
	ls.publishPhase(ctx, d, target, status)
	return true, nil
}

// CompleteDebate ends the session from whatever phase it is in. Used when
// the overall debate timer expires rather than an individual phase timer.
func (ls *LifecycleService) CompleteDebate(ctx context.Context, debateID string) (bool, error) {
	d, err := ls.store.GetDebate(ctx, debateID)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	applied, err := ls.store.TransitionDebate(ctx, debateID, models.StatusInProgress, "", store.DebateTransition{
		Status:      models.StatusCompleted,
		Phase:       models.PhaseEnded,
		CompletedAt: &now,
	})
	if err != nil {
		return false, fmt.Errorf("failed to complete debate: %w", err)
	}
	if !applied {
		return false, nil
	}

	ls.pipeline.Enqueue(debateID)
	ls.publishPhase(ctx, d, models.PhaseEnded, models.StatusCompleted)
	return true, nil
}

// ForfeitDebate marks the session forfeiting and hands resolution (winner,
// records, room teardown) to the pipeline worker. The intermediate status
// keeps a crashed resolver from leaving the session looking in progress.
func (ls *LifecycleService) ForfeitDebate(ctx context.Context, debateID, forfeitingSide string) (bool, error) {
	if forfeitingSide != models.SidePro && forfeitingSide != models.SideCon {
		return false, ErrInvalidSide
	}

	d, err := ls.store.GetDebate(ctx, debateID)
	if err != nil {
		return false, err
	}

	applied, err := ls.store.TransitionDebate(ctx, debateID, models.StatusInProgress, "", store.DebateTransition{
		Status: models.StatusForfeiting,
	})
	if err != nil {
		return false, fmt.Errorf("failed to forfeit debate: %w", err)
	}
	if !applied {
		// A no-show forfeit can arrive while the session is still prematch.
		applied, err = ls.store.TransitionDebate(ctx, debateID, models.StatusPrematch, "", store.DebateTransition{
			Status: models.StatusForfeiting,
		})
		if err != nil {
			return false, fmt.Errorf("failed to forfeit debate: %w", err)
		}
	}
	if !applied {
		return false, nil
	}

	ls.pipeline.EnqueueForfeit(debateID, forfeitingSide)
	ls.publishPhase(ctx, d, models.PhaseEnded, models.StatusForfeiting)
	return true, nil
}

// SwapSides exchanges pro and con while the session is still in the
// prematch lobby.
func (ls *LifecycleService) SwapSides(ctx context.Context, debateID string) (bool, error) {
	swapped, err := ls.store.SwapDebateSides(ctx, debateID)
	if err != nil {
		return false, fmt.Errorf("side swap failed: %w", err)
	}
	return swapped, nil
}

func (ls *LifecycleService) publishPhase(ctx context.Context, d *models.DebateSession, phase, status string) {
	event, err := realtime.NewEvent(realtime.EventPhaseChanged,
		[]string{d.Pro.Key(), d.Con.Key()},
		realtime.PhaseChangedPayload{DebateID: d.ID, Phase: phase, Status: status})
	if err != nil {
		log.Printf("failed to build phase event: %v", err)
		return
	}
	if err := ls.events.Publish(ctx, event); err != nil {
		log.Printf("failed to publish phase event: %v", err)
	}
}
