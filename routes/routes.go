package routes

import (
	"podium/controllers"
	"podium/middlewares"

	"github.com/gin-gonic/gin"
)

// SetupMatchmakingRoutes mounts the queue endpoints. Both require a caller
// identity: registered header or guest session header.
func SetupMatchmakingRoutes(rg *gin.RouterGroup) {
	queue := rg.Group("/matchmaking", middlewares.RequireOwner())
	{
		queue.POST("/queue", controllers.JoinQueueHandler)
		queue.DELETE("/queue", controllers.LeaveQueueHandler)
	}
}

// SetupDebateRoutes mounts the session read and state-machine endpoints.
func SetupDebateRoutes(rg *gin.RouterGroup) {
	debates := rg.Group("/debates")
	{
		debates.GET("/:id", controllers.GetDebateHandler)
		debates.POST("/:id/action", controllers.DebateActionHandler)
		debates.GET("/:id/votes", controllers.GetTallyHandler)
	}
}

// SetupVoteRoutes mounts community voting.
func SetupVoteRoutes(rg *gin.RouterGroup) {
	rg.POST("/votes", controllers.CastVoteHandler)
}

// SetupScoringRoutes mounts the pipeline trigger and retry endpoints.
func SetupScoringRoutes(rg *gin.RouterGroup) {
	scoring := rg.Group("/scoring")
	{
		scoring.POST("/:id/trigger", controllers.TriggerScoringHandler)
		scoring.POST("/:id/retry", controllers.RetryScoringHandler)
	}
}

// SetupChallengeRoutes mounts direct challenges.
func SetupChallengeRoutes(rg *gin.RouterGroup) {
	challenges := rg.Group("/challenges")
	{
		challenges.POST("", controllers.CreateChallengeHandler)
		challenges.PATCH("/:id", controllers.ResolveChallengeHandler)
	}
}
