package test

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/internal/api/handlers"
	"github.com/leadpilot/outreach-backend/internal/sending"
	"github.com/leadpilot/outreach-backend/pkg/ai"
	"github.com/leadpilot/outreach-backend/pkg/auth"
	"github.com/leadpilot/outreach-backend/pkg/env"
	"github.com/leadpilot/outreach-backend/pkg/leadgen"
	"github.com/leadpilot/outreach-backend/pkg/middleware"
	"github.com/leadpilot/outreach-backend/pkg/mongo"
	"github.com/leadpilot/outreach-backend/pkg/resend"
)

// buildTestRouter creates a router for testing (simplified version of the server)
func buildTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	cfg := &env.Config{
		JWTSecret:          "test-secret",
		SenderServiceToken: "test-service-token",
		FeatureAI:          true,
		SendBatchLimit:     20,
	}
	mongoClient, _ := mongo.NewClient("mongodb://localhost:27017", "test")
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	logger := zap.NewNop()
	aiManager := ai.NewManager([]ai.Provider{}, logger)
	resendClient := resend.NewClient("", "")
	leadgenClient := leadgen.NewClient("", "")

	settings := sending.BehaviorSettings{
		DailyLimit:           50,
		DaysSinceLastContact: 7,
		StartTime:            "09:00",
		EndTime:              "18:00",
		BlockedWeekdays:      []time.Weekday{time.Sunday, time.Saturday},
		Location:             time.UTC,
	}

	leadStore := sending.NewLeadStore(mongoClient)
	history := sending.NewHistoryStore(mongoClient)
	quota := sending.NewQuotaTracker(history)
	recontact := sending.NewRecontactPolicy(history, true, logger)
	selector := sending.NewSelector(recontact, quota)
	control := sending.NewControlStore(mongoClient)
	queue := sending.NewQueueService(leadStore, selector, redisClient, 30*time.Minute, logger)
	confirmer := sending.NewConfirmer(leadStore, history, control, quota, logger)

	h := handlers.NewHandler(
		cfg, redisClient, mongoClient,
		aiManager, resendClient, leadgenClient,
		settings, leadStore, history, quota, control, queue, confirmer,
	)
	rateLimiter := middleware.NewRateLimiter(redisClient, 60)
	authRateLimiter := middleware.NewAuthRateLimiter(redisClient, 5, 900, 1800)
	authed := middleware.AuthMiddleware(cfg.JWTSecret, cfg.SenderServiceToken)

	// Register routes (matching server structure)
	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", h.GetMetrics)
	router.GET("/metrics/prometheus", h.GetPrometheusMetrics)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authRateLimiter.Middleware(), h.Login)
		authGroup.POST("/register", authRateLimiter.Middleware(), h.Register)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/logout", authed, h.Logout)
	}

	sender := router.Group("/sender")
	sender.Use(authed)
	{
		sender.GET("/queue", h.GetSenderQueue)
		sender.POST("/mark-sent", h.MarkSent)
		sender.POST("/mark-failed", h.MarkFailed)
	}

	admin := router.Group("/admin")
	admin.Use(authed, middleware.RequireAdmin())
	{
		admin.GET("/sending/queue", h.GetSendingQueueDiagnostics)
		admin.POST("/sending/control", h.UpdateSendingControl)
		admin.GET("/sending/settings", h.GetSendingSettings)
		admin.GET("/sending/live", h.SendingLiveStream)
		admin.POST("/sending/dispatch-email", h.TriggerEmailDispatch)
	}

	sdr := router.Group("/sdr")
	sdr.Use(authed, middleware.RequireKinds(auth.KindSDR, auth.KindAdmin))
	{
		sdr.GET("/sending/queue", h.GetSendingQueueDiagnostics)
	}

	api := router.Group("/api")
	api.Use(authed)
	api.Use(middleware.IdempotencyMiddleware(redisClient))
	api.Use(rateLimiter.Middleware())
	{
		leads := api.Group("/leads")
		{
			leads.POST("/import", h.ImportLeads)
			leads.GET("/search", h.SearchLeads)
			leads.GET("/:id", middleware.ValidateUUIDParam("id"), h.GetLead)
			leads.GET("/:id/email-status", middleware.ValidateUUIDParam("id"), h.GetLeadEmailStatus)
			leads.PUT("/:id", middleware.ValidateUUIDParam("id"), h.UpdateLead)
			leads.DELETE("/:id", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), h.DeleteLead)
		}

		campaigns := api.Group("/campaigns")
		{
			campaigns.POST("", middleware.RequireAdmin(), h.CreateCampaign)
			campaigns.GET("", h.ListCampaigns)
			campaigns.GET("/:id", middleware.ValidateUUIDParam("id"), h.GetCampaign)
			campaigns.PUT("/:id", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), h.UpdateCampaign)
			campaigns.POST("/:id/status", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), h.SetCampaignStatus)
			campaigns.DELETE("/:id", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), h.DeleteCampaign)
		}

		messages := api.Group("/messages")
		{
			messages.POST("/variations", h.GenerateVariations)
			messages.POST("/assign", h.AssignMessages)
		}

		analytics := api.Group("/analytics")
		{
			analytics.GET("/summary", h.GetAnalyticsSummary)
			analytics.GET("/campaigns", h.GetCampaignAnalytics)
		}

		prospecting := api.Group("/prospecting")
		{
			prospecting.GET("/companies", h.SearchCompanies)
			prospecting.GET("/companies/:id", h.GetCompanyDetail)
			prospecting.POST("/import", middleware.RequireAdmin(), h.ImportCompanies)
		}

		users := api.Group("/users")
		{
			users.POST("", middleware.RequireAdmin(), h.CreateUser)
			users.GET("", middleware.RequireAdmin(), h.ListUsers)
			users.GET("/:id", middleware.ValidateUUIDParam("id"), h.GetUser)
			users.PUT("/:id", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), h.UpdateUser)
			users.DELETE("/:id", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), h.DeleteUser)
			users.POST("/:id/activate", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), h.ActivateUser)
			users.POST("/:id/deactivate", middleware.ValidateUUIDParam("id"), middleware.RequireAdmin(), h.DeactivateUser)
		}

		auditLogs := api.Group("/audit-logs")
		{
			auditLogs.GET("", middleware.RequireAdmin(), h.ListAuditLogs)
		}
	}

	router.POST("/webhooks/resend", h.ResendWebhook)

	return router
}

// Expected routes from the server
var expectedRoutes = []struct {
	method string
	path   string
}{
	// Health & Metrics
	{"GET", "/health"},
	{"GET", "/metrics"},
	{"GET", "/metrics/prometheus"},

	// Auth
	{"POST", "/auth/login"},
	{"POST", "/auth/register"},
	{"POST", "/auth/refresh"},
	{"POST", "/auth/logout"},

	// Sender queue
	{"GET", "/sender/queue"},
	{"POST", "/sender/mark-sent"},
	{"POST", "/sender/mark-failed"},

	// Admin sending control
	{"GET", "/admin/sending/queue"},
	{"POST", "/admin/sending/control"},
	{"GET", "/admin/sending/settings"},
	{"GET", "/admin/sending/live"},
	{"POST", "/admin/sending/dispatch-email"},

	// SDR queue view
	{"GET", "/sdr/sending/queue"},

	// Leads
	{"POST", "/api/leads/import"},
	{"GET", "/api/leads/search"},
	{"GET", "/api/leads/:id"},
	{"GET", "/api/leads/:id/email-status"},
	{"PUT", "/api/leads/:id"},
	{"DELETE", "/api/leads/:id"},

	// Campaigns
	{"POST", "/api/campaigns"},
	{"GET", "/api/campaigns"},
	{"GET", "/api/campaigns/:id"},
	{"PUT", "/api/campaigns/:id"},
	{"POST", "/api/campaigns/:id/status"},
	{"DELETE", "/api/campaigns/:id"},

	// Messages
	{"POST", "/api/messages/variations"},
	{"POST", "/api/messages/assign"},

	// Analytics
	{"GET", "/api/analytics/summary"},
	{"GET", "/api/analytics/campaigns"},

	// Prospecting
	{"GET", "/api/prospecting/companies"},
	{"GET", "/api/prospecting/companies/:id"},
	{"POST", "/api/prospecting/import"},

	// Users
	{"POST", "/api/users"},
	{"GET", "/api/users"},
	{"GET", "/api/users/:id"},
	{"PUT", "/api/users/:id"},
	{"DELETE", "/api/users/:id"},
	{"POST", "/api/users/:id/activate"},
	{"POST", "/api/users/:id/deactivate"},

	// Audit Logs
	{"GET", "/api/audit-logs"},

	// Webhooks
	{"POST", "/webhooks/resend"},
}

func Test_Routes_Registered(t *testing.T) {
	r := buildTestRouter()
	routes := r.Routes()

	registered := make(map[string]bool)
	for _, rt := range routes {
		key := rt.Method + " " + rt.Path
		registered[key] = true
	}

	for _, expected := range expectedRoutes {
		key := expected.method + " " + expected.path
		if !registered[key] {
			t.Errorf("missing route: %s %s", expected.method, expected.path)
		}
	}
}

func Test_Routes_Count(t *testing.T) {
	r := buildTestRouter()
	routes := r.Routes()

	// May have more due to OPTIONS, etc.
	if len(routes) < len(expectedRoutes) {
		t.Errorf("expected at least %d routes, got %d", len(expectedRoutes), len(routes))
	}
}
