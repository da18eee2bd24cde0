package main

import (
	"context"
	"log"
	"strconv"
	"time"

	"podium/config"
	"podium/controllers"
	"podium/db"
	"podium/internal/realtime"
	"podium/middlewares"
	"podium/routes"
	"podium/services"
	"podium/store"
	"podium/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load the configuration from the specified YAML file
	cfg, err := config.LoadConfig("./config/config.prod.yml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to MongoDB using the URI from the configuration
	if err := db.ConnectMongoDB(cfg.Database.URI); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB")
	dataStore := store.NewMongo(db.MongoDatabase)

	hub := websocket.NewHub()

	// Realtime events ride Redis pub/sub so every instance's hub sees them.
	// Without Redis, events go straight to this instance's hub.
	var publisher realtime.Publisher
	var redisPub *realtime.RedisPublisher
	if cfg.Redis.Addr != "" {
		redisPub, err = realtime.NewRedisPublisher(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		publisher = redisPub
		log.Println("Connected to Redis")
	} else {
		publisher = websocket.NewLocalPublisher(hub)
		log.Println("Redis not configured, realtime events stay in-process")
	}

	rooms := services.NewDailyClient(cfg.Daily.ApiKey)
	transcriber := services.NewDeepgramClient(cfg.Deepgram.ApiKey)
	analyst, err := services.NewGeminiAnalyst(cfg.Gemini.ApiKey)
	if err != nil {
		log.Fatalf("Failed to initialize Gemini client: %v", err)
	}

	orchestrator := services.NewOrchestrator(dataStore, rooms, transcriber, analyst, publisher)
	matchmaking := services.NewMatchmakingService(dataStore, rooms, publisher)
	lifecycle := services.NewLifecycleService(dataStore, rooms, publisher, orchestrator)
	votesService := services.NewVoteService(dataStore)
	challengesService := services.NewChallengeService(dataStore)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orchestrator.Start(ctx)
	matchmaking.StartExpirySweeper(ctx, 30*time.Second)

	hub.Run(ctx, redisPub)

	controllers.Setup(dataStore, matchmaking, lifecycle, votesService, challengesService, orchestrator)

	router := setupRouter(hub)
	port := strconv.Itoa(cfg.Server.Port)
	log.Printf("Server starting on port %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRouter(hub *websocket.Hub) *gin.Engine {
	router := gin.Default()

	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-User-Id", "X-Session-Id"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	router.OPTIONS("/*path", func(c *gin.Context) { c.Status(204) })

	api := router.Group("/", middlewares.Identity())
	{
		routes.SetupMatchmakingRoutes(api)
		routes.SetupDebateRoutes(api)
		routes.SetupVoteRoutes(api)
		routes.SetupScoringRoutes(api)
		routes.SetupChallengeRoutes(api)
	}

	// Realtime event stream; identity comes from query parameters.
	router.GET("/ws", websocket.Handler(hub))

	return router
}
