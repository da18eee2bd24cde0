package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDebateHandler returns the full session record.
func GetDebateHandler(c *gin.Context) {
	d, err := dataStore.GetDebate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// DebateActionHandler drives the session state machine. Guard misses are
// reported as applied=false with a 200: a lost race is a success, the
// losing client just refreshes.
//
// Body: { action: start|phase|complete|forfeit|swap, phase?, side? }
func DebateActionHandler(c *gin.Context) {
	debateID := c.Param("id")

	var body struct {
		Action string `json:"action"`
		Phase  string `json:"phase"`
		Side   string `json:"side"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	ctx := c.Request.Context()
	var applied bool
	var err error

	switch body.Action {
	case "start":
		applied, err = lifecycleService.StartDebate(ctx, debateID)
	case "phase":
		applied, err = lifecycleService.AdvancePhase(ctx, debateID, body.Phase)
	case "complete":
		applied, err = lifecycleService.CompleteDebate(ctx, debateID)
	case "forfeit":
		applied, err = lifecycleService.ForfeitDebate(ctx, debateID, body.Side)
	case "swap":
		applied, err = lifecycleService.SwapSides(ctx, debateID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action: " + body.Action})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applied": applied})
}
