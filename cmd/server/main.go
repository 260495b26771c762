package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/glamhair/patglam-agent/internal/api/handlers"
	"github.com/glamhair/patglam-agent/internal/archive"
	"github.com/glamhair/patglam-agent/internal/delivery"
	"github.com/glamhair/patglam-agent/internal/dialog"
	"github.com/glamhair/patglam-agent/internal/generation"
	"github.com/glamhair/patglam-agent/internal/store"
	"github.com/glamhair/patglam-agent/pkg/ai"
	"github.com/glamhair/patglam-agent/pkg/env"
	"github.com/glamhair/patglam-agent/pkg/logger"
	"github.com/glamhair/patglam-agent/pkg/middleware"
	"github.com/glamhair/patglam-agent/pkg/mongo"
	"github.com/glamhair/patglam-agent/pkg/otel"
)

func main() {
	cfg, err := env.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.AppEnv); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.OTELEnabled {
		shutdown, err := otel.InitTracing("patglam-agent", "1.0.0", cfg.OTELEndpoint)
		if err != nil {
			logger.Log.Warn("Failed to initialize OpenTelemetry", zap.Error(err))
		} else {
			defer shutdown()
			logger.Log.Info("OpenTelemetry tracing enabled", zap.String("endpoint", cfg.OTELEndpoint))
		}
	}

	logger.Log.Info("Starting voice agent",
		zap.String("env", cfg.AppEnv),
		zap.String("port", cfg.AppPort),
		zap.String("planner_mode", cfg.PlannerMode),
	)

	// Redis is optional; without it sessions live in process memory,
	// which is fine for a single instance.
	var redisClient *redis.Client
	var sessionStore store.Store = store.NewMemoryStore()
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatal("Failed to parse Redis URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opt)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		cancel()
		sessionStore = store.NewRedisStore(redisClient)
		logger.Log.Info("Redis session store initialized")
	} else {
		logger.Log.Warn("REDIS_URL not set, using in-memory session store")
	}

	// Mongo is optional; without it briefs are only delivered, not archived.
	var mongoClient *mongo.Client
	if cfg.MongoURI != "" {
		mongoClient, err = mongo.NewClient(cfg.MongoURI, cfg.DBName)
		if err != nil {
			logger.Log.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mongoClient.Disconnect(ctx); err != nil {
				logger.Log.Warn("Failed to disconnect MongoDB", zap.Error(err))
			}
		}()
		logger.Log.Info("MongoDB brief archive initialized")
	} else {
		logger.Log.Warn("MONGO_URI not set, brief archive disabled")
	}

	guard := buildGuard(cfg)

	planner := dialog.NewPlanner(cfg.MaxClarifyTries)

	var llmPlanner *dialog.LLMPlanner
	if cfg.PlannerMode == "llm" {
		if guard == nil {
			logger.Log.Warn("PLANNER_MODE=llm but no provider configured, using scripted planner")
		} else {
			match := dialog.MatchLoose
			if cfg.QuestionMatch == "exact" {
				match = dialog.MatchExact
			}
			llmPlanner = dialog.NewLLMPlanner(guard, planner, match, logger.Log)
		}
	}

	var summaryGen dialog.SummaryGenerator
	if guard != nil {
		summaryGen = guard
	}
	summarizer := dialog.NewSummarizer(summaryGen, logger.Log)

	var dispatcher delivery.Dispatcher
	if cfg.WhatsAppAPIURL != "" {
		dispatcher = delivery.NewWhatsAppDispatcher(cfg.WhatsAppAPIURL, cfg.WhatsAppAPIToken, cfg.DeliveryTimeout())
		logger.Log.Info("WhatsApp dispatcher initialized")
	} else {
		dispatcher = delivery.NewLogDispatcher(logger.Log)
		logger.Log.Warn("WHATSAPP_API_URL not set, briefs go to the log only")
	}

	handler := handlers.NewHandler(
		cfg,
		sessionStore,
		planner,
		llmPlanner,
		summarizer,
		dispatcher,
		archive.New(mongoClient),
		handlers.NewHub(logger.Log),
		logger.Log,
	)

	router := setupRouter(cfg, redisClient, handler)

	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("Voice agent listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}

// buildGuard assembles the provider chain. Returns nil when no provider has
// credentials; the call flow then runs fully scripted.
func buildGuard(cfg *env.Config) *generation.Guard {
	timeout := cfg.AITimeout()

	providers := []ai.Provider{}

	if cfg.OpenAIApiKey != "" {
		p := ai.NewOpenAIProvider(cfg.OpenAIApiKey, cfg.OpenAIModel, cfg.OpenAIMaxTokens, timeout, logger.Log)
		if p.IsAvailable() {
			providers = append(providers, p)
			logger.Log.Info("OpenAI provider initialized", zap.String("model", cfg.OpenAIModel))
		}
	}

	if cfg.AnthropicApiKey != "" {
		p := ai.NewAnthropicProvider(cfg.AnthropicApiKey, cfg.AnthropicModel, cfg.AnthropicMaxTokens, timeout, logger.Log)
		if p.IsAvailable() {
			providers = append(providers, p)
			logger.Log.Info("Anthropic provider initialized", zap.String("model", cfg.AnthropicModel))
		}
	}

	if len(providers) == 0 {
		logger.Log.Warn("No generation providers available")
		return nil
	}

	manager := ai.NewManager(providers, logger.Log)
	logger.Log.Info("Generation manager initialized",
		zap.Int("providers", len(providers)),
		zap.String("primary", manager.GetAvailableProvider().Name()),
	)
	return generation.NewGuard(manager, timeout)
}

func setupRouter(cfg *env.Config, redisClient *redis.Client, handler *handlers.Handler) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(1 << 20)) // 1 MB limit

	if cfg.OTELEnabled {
		router.Use(otel.GinMiddleware())
	}

	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] %s %s %d %s\n",
			param.TimeStamp.Format(time.RFC3339),
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
		)
	}))

	corsConfig := cors.DefaultConfig()
	if cfg.CORSAllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.CORSAllowedOrigins}
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", handler.HandleHealth)

	// Voice webhooks are authenticated by signature, not JWT.
	voice := router.Group("/voice")
	{
		voice.POST("/turn", handler.HandleTurn)
		voice.POST("/status", handler.HandleStatus)
	}

	loginLimiter := middleware.NewRateLimiter(redisClient, cfg.LoginRateLimitRPM)
	router.POST("/auth/login", loginLimiter.Middleware(), handler.HandleLogin)

	// Operator endpoints (JWT protected).
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		api.GET("/briefs", handler.HandleListBriefs)
		api.GET("/briefs/:call_sid", handler.HandleGetBrief)
		api.GET("/calls/:call_sid/live", handler.HandleMonitor)
	}

	router.GET("/metrics", middleware.AuthMiddleware(cfg.JWTSecret), handler.HandleMetrics)

	return router
}
