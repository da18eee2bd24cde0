package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateChallengeHandler issues a direct debate invitation.
func CreateChallengeHandler(c *gin.Context) {
	var body struct {
		ChallengerID string `json:"challengerId"`
		TargetID     string `json:"targetId"`
		TopicID      string `json:"topicId"`
		TimeLimit    int    `json:"timeLimit"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}
	if body.ChallengerID == "" || body.TargetID == "" || body.TopicID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "challengerId, targetId, and topicId are required"})
		return
	}

	challenge, err := challengeService.CreateChallenge(c.Request.Context(),
		body.ChallengerID, body.TargetID, body.TopicID, body.TimeLimit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"challenge": challenge})
}

// ResolveChallengeHandler accepts or declines a pending challenge.
func ResolveChallengeHandler(c *gin.Context) {
	var body struct {
		Action string `json:"action"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}
	if body.Action != "accept" && body.Action != "decline" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be accept or decline"})
		return
	}

	challenge, err := challengeService.ResolveChallenge(c.Request.Context(), c.Param("id"), body.Action == "accept")
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"challenge": challenge})
}
