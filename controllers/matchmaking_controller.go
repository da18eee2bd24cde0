package controllers

import (
	"net/http"

	"podium/middlewares"
	"podium/services"

	"github.com/gin-gonic/gin"
)

// JoinQueueHandler puts the caller into the matchmaking queue and returns
// the match immediately if one commits.
func JoinQueueHandler(c *gin.Context) {
	owner, _ := middlewares.OwnerFrom(c)

	var body struct {
		Category  string `json:"category"`
		TopicID   string `json:"topicId"`
		TimeLimit int    `json:"timeLimit"`
		Stance    string `json:"stance"`
		Ranked    bool   `json:"ranked"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	result, err := matchmakingService.EnterQueue(c.Request.Context(), services.QueueRequest{
		Owner:     owner,
		Category:  body.Category,
		TopicID:   body.TopicID,
		TimeLimit: body.TimeLimit,
		Stance:    body.Stance,
		Ranked:    body.Ranked,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// LeaveQueueHandler removes the caller's waiting entry. Leaving after a
// match committed is a no-op.
func LeaveQueueHandler(c *gin.Context) {
	owner, _ := middlewares.OwnerFrom(c)

	left, err := matchmakingService.LeaveQueue(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"left": left})
}
