package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TriggerScoringHandler schedules a pipeline run for a debate. The run is
// asynchronous; poll the session record for results.
func TriggerScoringHandler(c *gin.Context) {
	debateID := c.Param("id")
	if _, err := dataStore.GetDebate(c.Request.Context(), debateID); err != nil {
		respondError(c, err)
		return
	}

	orchestrator.Enqueue(debateID)
	c.JSON(http.StatusAccepted, gin.H{"scheduled": true})
}

// RetryScoringHandler re-runs only the failed pipeline steps, synchronously.
func RetryScoringHandler(c *gin.Context) {
	result, err := orchestrator.RetryFailedSteps(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"failedSteps":   result.FailedSteps,
		"pipelineState": result.State,
	})
}
