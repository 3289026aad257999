package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mirelio/echodesk/config"
	"github.com/mirelio/echodesk/internal/api/handlers"
	"github.com/mirelio/echodesk/internal/api/middleware"
	"github.com/mirelio/echodesk/internal/api/routes"
	"github.com/mirelio/echodesk/internal/cache"
	"github.com/mirelio/echodesk/internal/hub"
	"github.com/mirelio/echodesk/internal/logger"
	"github.com/mirelio/echodesk/internal/pipeline"
	"github.com/mirelio/echodesk/internal/providers/respond"
	"github.com/mirelio/echodesk/internal/providers/sentiment"
	"github.com/mirelio/echodesk/internal/providers/speech"
	mongorepo "github.com/mirelio/echodesk/internal/repositories/mongo"
	pgrepo "github.com/mirelio/echodesk/internal/repositories/postgres"
	"github.com/mirelio/echodesk/internal/storage"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	ctx := context.Background()

	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	log.Info("PostgreSQL connected")

	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	log.Info("Redis connected")

	var traces mongorepo.StageTraceRepository
	if os.Getenv("MONGO_URI") != "" {
		if err := config.InitMongo(); err != nil {
			log.Fatalf("MongoDB init error: %v", err)
		}
		if err := config.EnsureMongoIndexes(); err != nil {
			log.Fatalf("MongoDB index error: %v", err)
		}
		traces = mongorepo.NewStageTraceRepo(config.MongoDatabase(), traceTTL())
		log.Info("MongoDB connected")
	} else {
		log.Warn("MONGO_URI not set, stage tracing disabled")
	}

	repo := pgrepo.NewFeedbackRepo(config.PostgresDB)

	// Sentiment is optional: the lexical fallback covers an unset analyzer.
	var analyzer sentiment.Provider
	if os.Getenv("GOOGLE_LANGUAGE_DISABLED") != "true" {
		a, err := sentiment.NewGoogleLanguage(ctx)
		if err != nil {
			log.WithError(err).Warn("Google Language unavailable, using lexical fallback only")
		} else {
			analyzer = a
		}
	}

	responder, err := respond.NewVertexGemini(ctx,
		os.Getenv("VERTEX_PROJECT_ID"),
		getenv("VERTEX_LOCATION", "us-central1"),
		os.Getenv("VERTEX_MODEL"))
	if err != nil {
		log.Fatalf("Vertex init error: %v", err)
	}

	// Synthesis and storage are optional as a pair: without both, feedback
	// completes without audio.
	var synth speech.Provider
	var store storage.Store
	if os.Getenv("TTS_DISABLED") != "true" {
		s, err := speech.NewGoogleTTS(ctx)
		if err != nil {
			log.WithError(err).Warn("Google TTS unavailable, audio synthesis disabled")
		} else {
			synth = s
			store, err = buildStore(ctx)
			if err != nil {
				log.Fatalf("storage init error: %v", err)
			}
		}
	}

	events := hub.New(hubBuffer(), heartbeatInterval(), log)
	defer events.Close()

	queue := &pipeline.StreamQueue{Redis: config.RedisClient}
	orch := &pipeline.Orchestrator{
		Repo:      repo,
		Traces:    traces,
		Sentiment: analyzer,
		Responder: responder,
		Synth:     synth,
		Store:     store,
		Queue:     queue,
		Publisher: events,
		Logger:    log,
	}

	pool := &pipeline.WorkerPool{
		Redis:      config.RedisClient,
		Pipeline:   orch,
		NumWorkers: numWorkers(),
		Logger:     log,
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("worker pool error: %v", err)
	}

	statsCache := cache.NewRedisCache(config.RedisClient, "cache:")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Feedback: handlers.NewFeedbackHandler(orch, repo, traces, statsCache),
		Audio:    handlers.NewAudioHandler(repo, store),
		Live:     handlers.NewLiveHandler(events),
		Health:   handlers.NewHealthHandler(config.PostgresDB, config.RedisClient),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func buildStore(ctx context.Context) (storage.Store, error) {
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		return storage.NewGCSStore(ctx, bucket)
	}
	return storage.NewLocalStore(getenv("AUDIO_DIR", "./data/audio"))
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func numWorkers() int {
	if n, err := strconv.Atoi(os.Getenv("PIPELINE_WORKERS")); err == nil && n > 0 {
		return n
	}
	return 4
}

func hubBuffer() int {
	if n, err := strconv.Atoi(os.Getenv("HUB_BUFFER")); err == nil && n > 0 {
		return n
	}
	return 16
}

func heartbeatInterval() time.Duration {
	if n, err := strconv.Atoi(os.Getenv("HEARTBEAT_SECONDS")); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return 15 * time.Second
}

func traceTTL() time.Duration {
	if n, err := strconv.Atoi(os.Getenv("TRACE_TTL_HOURS")); err == nil && n > 0 {
		return time.Duration(n) * time.Hour
	}
	return 7 * 24 * time.Hour
}
