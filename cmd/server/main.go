package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"github.com/The-Clarity-Projekt/chat-client/internal/client"
	"github.com/The-Clarity-Projekt/chat-client/internal/config"
	"github.com/The-Clarity-Projekt/chat-client/internal/handler"
	"github.com/The-Clarity-Projekt/chat-client/internal/middleware"
	"github.com/The-Clarity-Projekt/chat-client/internal/pipeline"
	"github.com/The-Clarity-Projekt/chat-client/internal/queue"
	"github.com/The-Clarity-Projekt/chat-client/internal/service"
	"github.com/The-Clarity-Projekt/chat-client/internal/source"
	"github.com/The-Clarity-Projekt/chat-client/internal/store"
	"github.com/The-Clarity-Projekt/chat-client/internal/transcode"
	ws "github.com/The-Clarity-Projekt/chat-client/internal/websocket"
	"github.com/The-Clarity-Projekt/chat-client/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	for _, key := range cfg.Missing() {
		log.Printf("Warning: %s is not set; ingest requests will be rejected until it is", key)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	// Completion store and sinks
	mongoCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	mongoStore, err := store.NewMongoStore(mongoCtx, &cfg.Mongo)
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoStore.Close(closeCtx)
	}()

	sink := store.MultiSink{mongoStore}

	// Initialize R2 client (optional - documents still land in MongoDB)
	var r2Client *client.R2Client
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2Client, err = client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		} else {
			sink = append(sink, r2Client)
		}
	} else {
		log.Println("Info: R2 storage not configured, documents are kept in MongoDB only")
	}

	// Initialize external clients
	groqClient := client.NewGroqClient(&cfg.Groq)
	audioClient := client.NewAudioClient(&cfg.Audio)

	var extractor source.AudioExtractor
	switch cfg.Audio.Mode {
	case "ffmpeg":
		log.Printf("Info: extracting audio locally with %s", cfg.Audio.FFmpegPath)
		extractor = transcode.NewFFmpegExtractor(cfg.Audio.FFmpegPath, cfg.Ingest.ScratchDir)
	default:
		extractor = audioClient
	}

	// Transcription queue shared by every batch in this process
	transcriptionQueue := queue.New(queue.Options{
		Concurrency: cfg.Ingest.Concurrency,
		MaxPending:  cfg.Ingest.MaxPending,
		TaskTimeout: cfg.Ingest.TranscriptionTimeout,
	})
	defer transcriptionQueue.Close()

	orchestrator := pipeline.New(mongoStore, sink, groqClient, transcriptionQueue, pipeline.Options{
		ScratchDir:           cfg.Ingest.ScratchDir,
		Fs:                   afero.NewOsFs(),
		VideoTimeout:         cfg.Ingest.VideoTimeout,
		IncludeCourseContent: cfg.Ingest.IncludeCourseContent,
	})

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize services
	jobStore := store.NewJobStore(redisClient)
	sources := service.NewSourceFactory(&cfg.Ingest, extractor)
	ingestService := service.NewIngestService(jobStore, asynqClient, sources, transcriptionQueue, groqClient)

	// Initialize handlers
	ingestHandler := handler.NewIngestHandler(ingestService, validate)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		pingCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"groq":  groqClient.IsConfigured(),
				"mongo": mongoStore.Ping(pingCtx) == nil,
				"redis": redisClient.Ping(pingCtx).Err() == nil,
				"r2":    r2Client != nil && r2Client.IsConfigured(),
				"audio": cfg.Audio.Mode == "ffmpeg" || audioClient.HealthCheck(pingCtx) == nil,
			},
		})
	})

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Ingest routes
	ingest := api.Group("/ingest")
	ingest.Post("/panopto", rateLimiter.IngestLimit(cfg.RateLimit.IngestPerHour), ingestHandler.Panopto)
	ingest.Post("/canvas", rateLimiter.IngestLimit(cfg.RateLimit.IngestPerHour), ingestHandler.Canvas)
	ingest.Get("/status/:jobId", ingestHandler.Status)
	ingest.Get("/queue", ingestHandler.Queue)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	ingestWorker := worker.NewIngestWorker(orchestrator, jobStore, sources, hub)
	workerServer := newWorkerServer(cfg, redisOpt)
	go func() {
		mux := asynq.NewServeMux()
		mux.HandleFunc(service.TaskTypeIngestPanopto, ingestWorker.ProcessTask)
		mux.HandleFunc(service.TaskTypeIngestCanvas, ingestWorker.ProcessTask)
		if err := workerServer.Run(mux); err != nil {
			log.Printf("Asynq worker error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		workerServer.Shutdown()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func newWorkerServer(cfg *config.Config, redisOpt asynq.RedisClientOpt) *asynq.Server {
	asynqLogLevel := asynq.InfoLevel
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug":
		asynqLogLevel = asynq.DebugLevel
	case "warn":
		asynqLogLevel = asynq.WarnLevel
	case "error":
		asynqLogLevel = asynq.ErrorLevel
	}

	concurrency := cfg.Ingest.BatchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			service.IngestQueue: 1,
		},
		LogLevel: asynqLogLevel,
	})
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
