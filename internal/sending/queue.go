package sending

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// candidateFetchLimit bounds how many dispatchable leads one poll
// examines. Leads beyond it wait for the next poll.
const candidateFetchLimit = 200

// QueueResponse is what a sender poll receives. Message explains an
// empty batch caused by a policy gate, so pollers can tell it apart
// from "no leads left".
type QueueResponse struct {
	Contacts []Lead
	Count    int
	Total    int64
	Message  string
}

// QueueService assembles sender queue batches. Each returned lead is
// claimed first: a Redis lease guards against two pollers dispatching
// the same lead within the lease TTL, and a conditional status update
// marks it queued in the store.
type QueueService struct {
	leads    *LeadStore
	selector *Selector
	redis    *redis.Client
	claimTTL time.Duration
	logger   *zap.Logger
}

func NewQueueService(leads *LeadStore, selector *Selector, redisClient *redis.Client, claimTTL time.Duration, logger *zap.Logger) *QueueService {
	return &QueueService{
		leads:    leads,
		selector: selector,
		redis:    redisClient,
		claimTTL: claimTTL,
		logger:   logger,
	}
}

func leaseKey(leadID string) string {
	return "sendlease:lead:" + leadID
}

// Fetch selects ready leads on the given channel and claims them for
// the caller
func (q *QueueService) Fetch(ctx context.Context, scope Scope, channel string, settings BehaviorSettings, now time.Time, batchLimit int) (QueueResponse, error) {
	total, err := q.leads.CountDispatchable(ctx, scope, channel)
	if err != nil {
		return QueueResponse{}, err
	}

	candidates, err := q.leads.Candidates(ctx, scope, channel, candidateFetchLimit)
	if err != nil {
		return QueueResponse{}, err
	}

	result, err := q.selector.SelectReady(ctx, candidates, settings, scope, now, batchLimit)
	if err != nil {
		return QueueResponse{}, err
	}

	if result.BlockMessage != "" {
		return QueueResponse{Contacts: []Lead{}, Total: total, Message: result.BlockMessage}, nil
	}

	claimed := make([]Lead, 0, len(result.Ready))
	for _, lead := range result.Ready {
		acquired, err := q.redis.SetNX(ctx, leaseKey(lead.ID), scope.Key(), q.claimTTL).Result()
		if err != nil {
			// Redis down: skip claiming rather than risk double dispatch
			q.logger.Warn("claim lease failed, skipping lead",
				zap.String("lead_id", lead.ID),
				zap.Error(err),
			)
			continue
		}
		if !acquired {
			continue
		}

		ok, err := q.leads.MarkQueued(ctx, lead.ID)
		if err != nil || !ok {
			q.redis.Del(ctx, leaseKey(lead.ID))
			if err != nil {
				q.logger.Warn("failed to mark lead queued",
					zap.String("lead_id", lead.ID),
					zap.Error(err),
				)
			}
			continue
		}

		claimed = append(claimed, lead)
	}

	return QueueResponse{Contacts: claimed, Count: len(claimed), Total: total}, nil
}

// ReleaseClaim drops a lead's dispatch lease, making it immediately
// re-claimable. Called after a confirmed or failed send.
func (q *QueueService) ReleaseClaim(ctx context.Context, leadID string) {
	if err := q.redis.Del(ctx, leaseKey(leadID)).Err(); err != nil {
		q.logger.Warn("failed to release claim lease",
			zap.String("lead_id", leadID),
			zap.Error(err),
		)
	}
}

// DiagnosticsReport is the read-only view served by the admin and SDR
// queue inspection endpoints.
type DiagnosticsReport struct {
	TotalPending   int64        `json:"total_pending"`
	ReadyToSend    int          `json:"ready_to_send"`
	Skipped        SkippedStats `json:"skipped"`
	DailyCount     int64        `json:"daily_count"`
	DailyLimit     int          `json:"daily_limit"`
	RemainingDaily int64        `json:"remaining_daily"`
	IsWeekend      bool         `json:"is_weekend"`
	IsWorkingHours bool         `json:"is_working_hours"`
	BlockMessage   string       `json:"block_message,omitempty"`
	ControlState   ControlState `json:"control_state"`
}

// Diagnostics runs a selection pass without claiming anything
func (q *QueueService) Diagnostics(ctx context.Context, scope Scope, settings BehaviorSettings, quota *QuotaTracker, control *ControlStore, now time.Time) (DiagnosticsReport, error) {
	total, err := q.leads.CountDispatchable(ctx, scope, "")
	if err != nil {
		return DiagnosticsReport{}, err
	}

	candidates, err := q.leads.Candidates(ctx, scope, "", candidateFetchLimit)
	if err != nil {
		return DiagnosticsReport{}, err
	}

	result, err := q.selector.SelectReady(ctx, candidates, settings, scope, now, 0)
	if err != nil {
		return DiagnosticsReport{}, err
	}

	dailyCount, err := quota.CountSentToday(ctx, scope, settings, now)
	if err != nil {
		return DiagnosticsReport{}, err
	}

	state, err := control.Get(ctx, scope, settings, now)
	if err != nil {
		return DiagnosticsReport{}, err
	}

	remaining := int64(settings.DailyLimit) - dailyCount
	if remaining < 0 {
		remaining = 0
	}

	return DiagnosticsReport{
		TotalPending:   total,
		ReadyToSend:    len(result.Ready),
		Skipped:        result.Skipped,
		DailyCount:     dailyCount,
		DailyLimit:     settings.DailyLimit,
		RemainingDaily: remaining,
		IsWeekend:      IsBlockedDay(settings, now),
		IsWorkingHours: IsWithinWindow(settings, now),
		BlockMessage:   result.BlockMessage,
		ControlState:   state,
	}, nil
}
