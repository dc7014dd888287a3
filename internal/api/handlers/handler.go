package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/internal/sending"
	"github.com/leadpilot/outreach-backend/pkg/ai"
	"github.com/leadpilot/outreach-backend/pkg/auth"
	"github.com/leadpilot/outreach-backend/pkg/env"
	"github.com/leadpilot/outreach-backend/pkg/leadgen"
	"github.com/leadpilot/outreach-backend/pkg/logger"
	"github.com/leadpilot/outreach-backend/pkg/middleware"
	"github.com/leadpilot/outreach-backend/pkg/mongo"
	"github.com/leadpilot/outreach-backend/pkg/resend"
)

type Handler struct {
	cfg         *env.Config
	redisClient *redis.Client
	mongoClient *mongo.Client
	logger      *zap.Logger
	aiManager   *ai.Manager
	resend      *resend.Client
	leadgen     *leadgen.Client

	settings  sending.BehaviorSettings
	leadStore *sending.LeadStore
	history   *sending.HistoryStore
	quota     *sending.QuotaTracker
	control   *sending.ControlStore
	queue     *sending.QueueService
	confirmer *sending.Confirmer
}

func NewHandler(
	cfg *env.Config,
	redisClient *redis.Client,
	mongoClient *mongo.Client,
	aiManager *ai.Manager,
	resendClient *resend.Client,
	leadgenClient *leadgen.Client,
	settings sending.BehaviorSettings,
	leadStore *sending.LeadStore,
	history *sending.HistoryStore,
	quota *sending.QuotaTracker,
	control *sending.ControlStore,
	queue *sending.QueueService,
	confirmer *sending.Confirmer,
) *Handler {
	return &Handler{
		cfg:         cfg,
		redisClient: redisClient,
		mongoClient: mongoClient,
		logger:      logger.Log,
		aiManager:   aiManager,
		resend:      resendClient,
		leadgen:     leadgenClient,
		settings:    settings,
		leadStore:   leadStore,
		history:     history,
		quota:       quota,
		control:     control,
		queue:       queue,
		confirmer:   confirmer,
	}
}

// middlewarePrincipal reads the Principal resolved by the auth middleware
func middlewarePrincipal(c *gin.Context) (auth.Principal, bool) {
	return middleware.GetPrincipal(c)
}

// Shared document accessors for map-based query results

func getString(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func getBool(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func getInt64(m map[string]interface{}, key string) int64 {
	if val, ok := m[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int32:
			return int64(v)
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
