package controllers

import (
	"errors"
	"net/http"

	"podium/services"
	"podium/store"

	"github.com/gin-gonic/gin"
)

// Package-level service handles, wired once at startup.
var (
	matchmakingService *services.MatchmakingService
	lifecycleService   *services.LifecycleService
	voteService        *services.VoteService
	challengeService   *services.ChallengeService
	orchestrator       *services.Orchestrator
	dataStore          store.Store
)

// Setup wires the HTTP handlers to their services.
func Setup(st store.Store, ms *services.MatchmakingService, ls *services.LifecycleService, vs *services.VoteService, cs *services.ChallengeService, o *services.Orchestrator) {
	dataStore = st
	matchmakingService = ms
	lifecycleService = ls
	voteService = vs
	challengeService = cs
	orchestrator = o
}

// respondError maps service errors to HTTP statuses. Validation failures are
// 400, missing records 404, precondition conflicts 409.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrOwnDebateVote):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrGuestLimit),
		errors.Is(err, services.ErrDuplicateChallenge),
		errors.Is(err, services.ErrChallengeResolved),
		errors.Is(err, services.ErrDebateNotVotable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrMissingOwner),
		errors.Is(err, services.ErrMissingCategory),
		errors.Is(err, services.ErrInvalidTimeLimit),
		errors.Is(err, services.ErrInvalidStance),
		errors.Is(err, services.ErrRankedGuest),
		errors.Is(err, services.ErrInvalidPhase),
		errors.Is(err, services.ErrInvalidSide),
		errors.Is(err, services.ErrInvalidWinnerChoice),
		errors.Is(err, services.ErrSelfChallenge),
		errors.Is(err, services.ErrNoPipelineState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
