package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/internal/sending"
	"github.com/leadpilot/outreach-backend/pkg/audit"
	"github.com/leadpilot/outreach-backend/pkg/errors"
)

// GetSendingQueueDiagnostics serves the read-only queue inspection view
// for admins (any scope) and SDRs (their own scope).
func (h *Handler) GetSendingQueueDiagnostics(c *gin.Context) {
	scope := h.senderScope(c)
	now := time.Now()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	report, err := h.queue.Diagnostics(ctx, scope, h.settings, h.quota, h.control, now)
	if err != nil {
		h.logger.Error("Failed to build queue diagnostics", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, report)
}

type ControlRequest struct {
	Action string `json:"action" binding:"required"` // start | stop | pause | resume
}

// UpdateSendingControl starts, stops, pauses or resumes the scope's
// sending session.
func (h *Handler) UpdateSendingControl(c *gin.Context) {
	var req ControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, err.Error())
		return
	}

	scope := h.senderScope(c)
	now := time.Now()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var state sending.ControlState
	var err error
	var action audit.Action

	switch req.Action {
	case "start":
		state, err = h.control.SetRunning(ctx, scope, h.settings, true, now)
		action = audit.ActionActivate
	case "stop":
		state, err = h.control.SetRunning(ctx, scope, h.settings, false, now)
		action = audit.ActionDeactivate
	case "pause":
		state, err = h.control.SetPaused(ctx, scope, h.settings, true, now)
		action = audit.ActionPause
	case "resume":
		state, err = h.control.SetPaused(ctx, scope, h.settings, false, now)
		action = audit.ActionResume
	default:
		errors.BadRequest(c, "action must be one of: start, stop, pause, resume")
		return
	}

	if err != nil {
		h.logger.Error("Failed to update sending control", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	audit.LogAction(h.mongoClient, c, action, "sending_control", scope.Key(), nil)

	c.JSON(http.StatusOK, state)
}

// GetSendingSettings exposes the active behavior settings
func (h *Handler) GetSendingSettings(c *gin.Context) {
	blocked := make([]int, 0, len(h.settings.BlockedWeekdays))
	for _, d := range h.settings.BlockedWeekdays {
		blocked = append(blocked, int(d))
	}

	c.JSON(http.StatusOK, gin.H{
		"daily_limit":             h.settings.DailyLimit,
		"days_since_last_contact": h.settings.DaysSinceLastContact,
		"start_time":              h.settings.StartTime,
		"end_time":                h.settings.EndTime,
		"blocked_weekdays":        blocked,
		"timezone":                h.settings.Location.String(),
	})
}

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the CORS layer
	},
}

// SendingLiveStream pushes queue diagnostics over a websocket every few
// seconds, for dashboard widgets watching the sending loop.
func (h *Handler) SendingLiveStream(c *gin.Context) {
	scope := h.senderScope(c)

	conn, err := liveUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade live stream connection", zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain client frames so pings and close frames are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	send := func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		report, err := h.queue.Diagnostics(ctx, scope, h.settings, h.quota, h.control, time.Now())
		if err != nil {
			h.logger.Warn("Live stream diagnostics failed", zap.Error(err))
			return true
		}

		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(report); err != nil {
			return false
		}
		return true
	}

	if !send() {
		return
	}
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			if !send() {
				return
			}
		}
	}
}
