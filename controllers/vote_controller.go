package controllers

import (
	"net/http"

	"podium/models"

	"github.com/gin-gonic/gin"
)

// CastVoteHandler records a community vote on a completed debate and
// returns the refreshed tally and verdict.
func CastVoteHandler(c *gin.Context) {
	var body struct {
		DebateID        string `json:"debateId"`
		VoterID         string `json:"voterId"`
		WinnerChoice    string `json:"winnerChoice"`
		BetterArguments string `json:"betterArguments"`
		MoreRespectful  string `json:"moreRespectful"`
		ChangedMind     *bool  `json:"changedMind"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}
	if body.DebateID == "" || body.VoterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "debateId and voterId required"})
		return
	}

	result, err := voteService.CastVote(c.Request.Context(), &models.Vote{
		DebateID:        body.DebateID,
		VoterID:         body.VoterID,
		WinnerChoice:    body.WinnerChoice,
		BetterArguments: body.BetterArguments,
		MoreRespectful:  body.MoreRespectful,
		ChangedMind:     body.ChangedMind,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTallyHandler returns the current vote counts for a debate.
func GetTallyHandler(c *gin.Context) {
	tally, err := voteService.GetTally(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tally": tally, "total": tally.Total()})
}
