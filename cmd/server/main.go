package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/marchlands/internal/auth"
	"github.com/freeeve/marchlands/internal/config"
	"github.com/freeeve/marchlands/internal/handler"
	"github.com/freeeve/marchlands/internal/logger"
	"github.com/freeeve/marchlands/internal/middleware"
	"github.com/freeeve/marchlands/internal/repository/postgres"
	redisrepo "github.com/freeeve/marchlands/internal/repository/redis"
	"github.com/freeeve/marchlands/internal/service"
)

func main() {
	logger.Init()
	cfg := config.Load()
	log.Info().Str("databaseURL", cfg.DatabaseURL).Float64("gameSpeed", cfg.GameSpeed).Msg("Config loaded")

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Enable Redis keyspace notifications for arrival timer expiry events.
	if err := redisClient.Underlying().ConfigSet(context.Background(), "notify-keyspace-events", "Ex").Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to set Redis keyspace notifications (arrival timers may not fire)")
	}

	store := postgres.NewStore(db)

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)
	googleOAuth := auth.NewGoogleOAuth(
		os.Getenv("GOOGLE_CLIENT_ID"),
		os.Getenv("GOOGLE_CLIENT_SECRET"),
		os.Getenv("GOOGLE_REDIRECT_URL"),
	)

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	clock := service.SystemClock{}
	villageSvc := service.NewVillageService(store, clock, cfg.GameSpeed)
	movementSvc := service.NewMovementService(store, clock, redisClient, cfg.GameSpeed)
	combatSvc := service.NewCombatService(store, clock, service.SystemRand{}, wsHub, cfg.GameSpeed)
	messageSvc := service.NewMessageService(store)
	playerSvc := service.NewPlayerService(store)

	// Timer listener (combat pass on arrival)
	timerListener := service.NewTimerListener(redisClient.Underlying(), combatSvc, cfg.CombatPollInterval)

	// Handlers
	authHandler := handler.NewAuthHandler(googleOAuth, jwtMgr, playerSvc)
	playerHandler := handler.NewPlayerHandler(playerSvc)
	villageHandler := handler.NewVillageHandler(villageSvc)
	movementHandler := handler.NewMovementHandler(movementSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	combatHandler := handler.NewCombatHandler(combatSvc, playerSvc)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth (public)
	mux.HandleFunc("GET /auth/google/login", authHandler.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)
	mux.HandleFunc("POST /auth/refresh", authHandler.RefreshToken)
	mux.HandleFunc("GET /auth/dev", authHandler.DevLogin)

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /players/me", playerHandler.GetMe)
	api.HandleFunc("GET /villages", villageHandler.ListVillages)
	api.HandleFunc("GET /villages/{id}", villageHandler.GetVillage)
	api.HandleFunc("PATCH /villages/{id}", villageHandler.RenameVillage)
	api.HandleFunc("GET /villages/{id}/overview", villageHandler.GetOverview)
	api.HandleFunc("GET /villages/{id}/buildings", villageHandler.AvailableBuildings)
	api.HandleFunc("POST /villages/{id}/buildings", villageHandler.ScheduleBuild)
	api.HandleFunc("GET /villages/{id}/buildings/queue", villageHandler.BuildingQueue)
	api.HandleFunc("GET /villages/{id}/units", villageHandler.AvailableUnits)
	api.HandleFunc("POST /villages/{id}/units", villageHandler.ScheduleTrain)
	api.HandleFunc("GET /villages/{id}/units/queue", villageHandler.TrainingQueue)
	api.HandleFunc("POST /villages/{id}/attacks", movementHandler.SendAttack)
	api.HandleFunc("POST /villages/{id}/support", movementHandler.SendSupport)
	api.HandleFunc("POST /villages/{id}/spies", movementHandler.SendSpy)
	api.HandleFunc("GET /villages/{id}/movements", movementHandler.ListMovements)
	api.HandleFunc("POST /villages/{id}/movements/{movementId}/return", movementHandler.CancelSupport)
	api.HandleFunc("GET /messages", messageHandler.ListMessages)
	api.HandleFunc("POST /messages/{id}/displayed", messageHandler.MarkDisplayed)
	api.HandleFunc("POST /combat/tick", combatHandler.TriggerTick)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Resolve anything that ripened while the server was down.
	if err := combatSvc.ProcessCombatTick(context.Background()); err != nil {
		log.Error().Err(err).Msg("Startup combat pass failed (non-fatal)")
	}

	// Start timer listener
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timerListener.Start(ctx)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
