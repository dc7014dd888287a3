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

	"github.com/leadpilot/outreach-backend/internal/api/handlers"
	"github.com/leadpilot/outreach-backend/internal/sending"
	"github.com/leadpilot/outreach-backend/pkg/ai"
	"github.com/leadpilot/outreach-backend/pkg/auth"
	"github.com/leadpilot/outreach-backend/pkg/env"
	"github.com/leadpilot/outreach-backend/pkg/leadgen"
	"github.com/leadpilot/outreach-backend/pkg/logger"
	"github.com/leadpilot/outreach-backend/pkg/middleware"
	"github.com/leadpilot/outreach-backend/pkg/mongo"
	"github.com/leadpilot/outreach-backend/pkg/otel"
	"github.com/leadpilot/outreach-backend/pkg/resend"
)

// Server combines the API, the sender queue, and the email dispatch worker
type Server struct {
	cfg         *env.Config
	mongoClient *mongo.Client
	redisClient *redis.Client
	handler     *handlers.Handler
}

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
		shutdown, err := otel.InitTracing("outreach-server", "1.0.0", cfg.OTELEndpoint)
		if err != nil {
			logger.Log.Warn("Failed to initialize OpenTelemetry", zap.Error(err))
		} else {
			defer shutdown()
			logger.Log.Info("OpenTelemetry tracing enabled", zap.String("endpoint", cfg.OTELEndpoint))
		}
	}

	logger.Log.Info("Starting Outreach Server (API + sender queue + email dispatch)",
		zap.String("env", cfg.AppEnv),
		zap.String("port", cfg.AppPort),
	)

	// Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Log.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	redisClient := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// MongoDB
	mongoClient, err := mongo.NewClient(cfg.MongoURI, cfg.DBName)
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

	// Sending behavior settings
	settings, err := sending.SettingsFromConfig(cfg)
	if err != nil {
		logger.Log.Fatal("Invalid sending settings", zap.Error(err))
	}
	logger.Log.Info("Sending behavior configured",
		zap.Int("daily_limit", settings.DailyLimit),
		zap.Int("min_recontact_days", settings.DaysSinceLastContact),
		zap.String("window", settings.StartTime+"-"+settings.EndTime),
		zap.String("timezone", settings.Location.String()),
	)

	// Sending pipeline
	leadStore := sending.NewLeadStore(mongoClient)
	history := sending.NewHistoryStore(mongoClient)
	quota := sending.NewQuotaTracker(history)
	recontact := sending.NewRecontactPolicy(history, cfg.RecontactFailOpen, logger.Log)
	selector := sending.NewSelector(recontact, quota)
	control := sending.NewControlStore(mongoClient)
	claimTTL := time.Duration(cfg.SendClaimTTLMin) * time.Minute
	queue := sending.NewQueueService(leadStore, selector, redisClient, claimTTL, logger.Log)
	confirmer := sending.NewConfirmer(leadStore, history, control, quota, logger.Log)

	// AI providers
	var aiManager *ai.Manager
	if cfg.FeatureAI {
		timeout := time.Duration(cfg.AITimeoutMs) * time.Millisecond
		if timeout == 0 {
			timeout = 30 * time.Second
		}

		providers := []ai.Provider{}

		if cfg.OpenAIApiKey != "" {
			openAIProvider := ai.NewOpenAIProvider(
				cfg.OpenAIApiKey,
				cfg.OpenAIModel,
				cfg.OpenAIMaxTokens,
				timeout,
				logger.Log,
			)
			if openAIProvider.IsAvailable() {
				providers = append(providers, openAIProvider)
				logger.Log.Info("OpenAI provider initialized", zap.String("model", cfg.OpenAIModel))
			}
		}

		if cfg.AnthropicApiKey != "" {
			anthropicProvider := ai.NewAnthropicProvider(
				cfg.AnthropicApiKey,
				cfg.AnthropicModel,
				cfg.AnthropicMaxTokens,
				timeout,
				logger.Log,
			)
			if anthropicProvider.IsAvailable() {
				providers = append(providers, anthropicProvider)
				logger.Log.Info("Anthropic provider initialized", zap.String("model", cfg.AnthropicModel))
			}
		}

		if len(providers) > 0 {
			aiManager = ai.NewManager(providers, logger.Log)
			logger.Log.Info("AI manager initialized", zap.Int("providers", len(providers)))
		} else {
			logger.Log.Warn("No AI providers available - message generation will be disabled")
		}
	} else {
		logger.Log.Info("AI features are disabled")
	}

	resendClient := resend.NewClient(cfg.ResendApiKey, cfg.ResendFromEmail)
	if resendClient.IsConfigured() {
		logger.Log.Info("Resend email client initialized", zap.String("from", cfg.ResendFromEmail))
	}

	leadgenClient := leadgen.NewClient(cfg.LeadGenBaseURL, cfg.LeadGenApiKey)
	if leadgenClient.IsConfigured() {
		logger.Log.Info("Lead generation client initialized")
	}

	apiHandler := handlers.NewHandler(
		cfg, redisClient, mongoClient,
		aiManager, resendClient, leadgenClient,
		settings, leadStore, history, quota, control, queue, confirmer,
	)

	server := &Server{
		cfg:         cfg,
		mongoClient: mongoClient,
		redisClient: redisClient,
		handler:     apiHandler,
	}

	router := server.setupRouter()

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if cfg.EmailDispatchEnabled {
		go server.startEmailDispatchWorker(workerCtx)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("Outreach Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server...")
	stopWorker()

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}

func (s *Server) setupRouter() *gin.Engine {
	if s.cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(1 << 20)) // 1 MB limit

	if s.cfg.OTELEnabled {
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

	// CORS
	corsConfig := cors.DefaultConfig()
	if s.cfg.CORSAllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{s.cfg.CORSAllowedOrigins}
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	rateLimiter := middleware.NewRateLimiter(s.redisClient, s.cfg.APIRateLimitRPM)
	authLimiter := middleware.NewAuthRateLimiter(s.redisClient, 5, 300, 900)
	authed := middleware.AuthMiddleware(s.cfg.JWTSecret, s.cfg.SenderServiceToken)

	// Health and metrics
	router.GET("/health", s.handler.HealthCheck)
	router.GET("/metrics", s.handler.GetMetrics)
	router.GET("/metrics/prometheus", s.handler.GetPrometheusMetrics)

	// Auth endpoints
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authLimiter.Middleware(), s.handler.Login)
		authGroup.POST("/register", authLimiter.Middleware(), s.handler.Register)
		authGroup.POST("/refresh", s.handler.Refresh)
		authGroup.POST("/logout", authed, s.handler.Logout)
	}

	// Desktop sender endpoints. Service tokens and SDR/admin JWTs both work.
	sender := router.Group("/sender")
	sender.Use(authed)
	{
		sender.GET("/queue", s.handler.GetSenderQueue)
		sender.POST("/mark-sent", s.handler.MarkSent)
		sender.POST("/mark-failed", s.handler.MarkFailed)
	}

	// Admin sending diagnostics and control
	admin := router.Group("/admin")
	admin.Use(authed, middleware.RequireAdmin())
	{
		admin.GET("/sending/queue", s.handler.GetSendingQueueDiagnostics)
		admin.POST("/sending/control", s.handler.UpdateSendingControl)
		admin.GET("/sending/settings", s.handler.GetSendingSettings)
		admin.GET("/sending/live", s.handler.SendingLiveStream)
		admin.POST("/sending/dispatch-email", s.handler.TriggerEmailDispatch)
	}

	// SDR view of their own queue state
	sdr := router.Group("/sdr")
	sdr.Use(authed, middleware.RequireKinds(auth.KindSDR, auth.KindAdmin))
	{
		sdr.GET("/sending/queue", s.handler.GetSendingQueueDiagnostics)
	}

	// API endpoints (protected)
	api := router.Group("/api")
	api.Use(authed)
	api.Use(middleware.IdempotencyMiddleware(s.redisClient))
	api.Use(rateLimiter.Middleware())
	{
		leads := api.Group("/leads")
		{
			leads.POST("/import", s.handler.ImportLeads)
			leads.GET("/search", s.handler.SearchLeads)
			leads.GET("/:id", middleware.ValidateUUIDParam("id"), s.handler.GetLead)
			leads.GET("/:id/email-status", middleware.ValidateUUIDParam("id"), s.handler.GetLeadEmailStatus)
			leads.PUT("/:id", middleware.ValidateUUIDParam("id"), s.handler.UpdateLead)
			leads.DELETE("/:id", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), s.handler.DeleteLead)
		}

		campaigns := api.Group("/campaigns")
		{
			campaigns.POST("", middleware.RequireAdmin(), s.handler.CreateCampaign)
			campaigns.GET("", s.handler.ListCampaigns)
			campaigns.GET("/:id", middleware.ValidateUUIDParam("id"), s.handler.GetCampaign)
			campaigns.PUT("/:id", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), s.handler.UpdateCampaign)
			campaigns.POST("/:id/status", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), s.handler.SetCampaignStatus)
			campaigns.DELETE("/:id", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), s.handler.DeleteCampaign)
		}

		messages := api.Group("/messages")
		{
			messages.POST("/variations", s.handler.GenerateVariations)
			messages.POST("/assign", s.handler.AssignMessages)
		}

		analytics := api.Group("/analytics")
		{
			analytics.GET("/summary", s.handler.GetAnalyticsSummary)
			analytics.GET("/campaigns", s.handler.GetCampaignAnalytics)
		}

		prospecting := api.Group("/prospecting")
		{
			prospecting.GET("/companies", s.handler.SearchCompanies)
			prospecting.GET("/companies/:id", s.handler.GetCompanyDetail)
			prospecting.POST("/import", middleware.RequireAdmin(), s.handler.ImportCompanies)
		}

		users := api.Group("/users")
		{
			users.POST("", middleware.RequireAdmin(), s.handler.CreateUser)
			users.GET("", middleware.RequireAdmin(), s.handler.ListUsers)
			users.GET("/:id", middleware.ValidateUUIDParam("id"), s.handler.GetUser)
			users.PUT("/:id", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), s.handler.UpdateUser)
			users.DELETE("/:id", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), s.handler.DeleteUser)
			users.POST("/:id/activate", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), s.handler.ActivateUser)
			users.POST("/:id/deactivate", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), s.handler.DeactivateUser)
		}

		auditLogs := api.Group("/audit-logs")
		{
			auditLogs.GET("", middleware.RequireAdmin(), s.handler.ListAuditLogs)
		}
	}

	// Webhook endpoint (public, signature verified)
	router.POST("/webhooks/resend", s.handler.ResendWebhook)

	return router
}

// startEmailDispatchWorker drives the email channel through the same
// policy gates as the desktop sender, on a fixed interval
func (s *Server) startEmailDispatchWorker(ctx context.Context) {
	interval := time.Duration(s.cfg.EmailDispatchIntervalSec) * time.Second
	if interval <= 0 {
		interval = 2 * time.Minute
	}

	logger.Log.Info("Email dispatch worker started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			batchCtx, cancel := context.WithTimeout(ctx, interval)
			sent, failed, err := s.handler.DispatchEmailBatch(batchCtx)
			cancel()
			if err != nil {
				logger.Log.Error("Email dispatch cycle failed", zap.Error(err))
				continue
			}
			if sent > 0 || failed > 0 {
				logger.Log.Info("Email dispatch cycle complete",
					zap.Int("sent", sent),
					zap.Int("failed", failed),
				)
			}
		case <-ctx.Done():
			logger.Log.Info("Email dispatch worker stopped")
			return
		}
	}
}
