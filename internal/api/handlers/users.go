package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/pkg/audit"
	"github.com/leadpilot/outreach-backend/pkg/auth"
	"github.com/leadpilot/outreach-backend/pkg/errors"
	"github.com/leadpilot/outreach-backend/pkg/middleware"
	"github.com/leadpilot/outreach-backend/pkg/utils"
)

type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	IsActive    bool   `json:"is_active"`
	LastLoginAt string `json:"last_login_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
}

var validRoles = map[string]bool{
	auth.RoleAdmin: true,
	auth.RoleSDR:   true,
}

func userResponseFromDoc(u map[string]interface{}) UserResponse {
	return UserResponse{
		ID:          getString(u, "id"),
		Email:       getString(u, "email"),
		Name:        getString(u, "name"),
		Role:        getString(u, "role"),
		IsActive:    getBool(u, "is_active"),
		LastLoginAt: getString(u, "last_login_at"),
		CreatedAt:   getString(u, "created_at"),
	}
}

// CreateUser provisions an SDR (or admin) account. Admin only.
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, err.Error())
		return
	}

	role := req.Role
	if role == "" {
		role = auth.RoleSDR
	}
	if !validRoles[role] {
		errors.BadRequest(c, "invalid role")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	existing, err := h.mongoClient.NewQuery("users").
		Select("id").
		Eq("email", req.Email).
		FindOne(ctx)
	if err == nil && existing != nil {
		errors.Conflict(c, "email already registered")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		errors.InternalError(c, err, h.logger)
		return
	}

	userID := uuid.New().String()
	_, err = h.mongoClient.NewQuery("users").Insert(ctx, map[string]interface{}{
		"id":            userID,
		"email":         req.Email,
		"name":          middleware.SanitizeString(req.Name),
		"password_hash": passwordHash,
		"role":          role,
		"is_active":     true,
		"created_at":    time.Now().Format(time.RFC3339),
	})
	if err != nil {
		h.logger.Error("Failed to create user", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	audit.LogAction(h.mongoClient, c, audit.ActionCreate, "user", userID, map[string]interface{}{
		"email": req.Email,
		"role":  role,
	})

	c.JSON(http.StatusCreated, gin.H{"id": userID, "email": req.Email, "role": role})
}

func (h *Handler) ListUsers(c *gin.Context) {
	pagination := utils.ParsePagination(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	users, err := h.mongoClient.NewQuery("users").
		Select("id", "email", "name", "role", "is_active", "last_login_at", "created_at").
		Limit(int64(pagination.Limit)).
		Find(ctx)
	if err != nil {
		h.logger.Error("Failed to fetch users", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	userResponses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		userResponses = append(userResponses, userResponseFromDoc(u))
	}

	c.JSON(http.StatusOK, utils.PaginatedResponse{
		Data:  userResponses,
		Page:  pagination.Page,
		Limit: pagination.Limit,
		Count: len(userResponses),
	})
}

func (h *Handler) GetUser(c *gin.Context) {
	id, _ := c.Get("id")
	idStr := id.(string)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.mongoClient.NewQuery("users").
		Select("id", "email", "name", "role", "is_active", "last_login_at", "created_at").
		Eq("id", idStr).
		FindOne(ctx)
	if err != nil || user == nil {
		errors.NotFound(c, "user not found")
		return
	}

	c.JSON(http.StatusOK, userResponseFromDoc(user))
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, _ := c.Get("id")
	idStr := id.(string)

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Email != "" {
		updates["email"] = middleware.SanitizeString(req.Email)
	}
	if req.Name != "" {
		updates["name"] = middleware.SanitizeString(req.Name)
	}
	if req.Role != "" {
		if !validRoles[req.Role] {
			errors.BadRequest(c, "invalid role")
			return
		}
		updates["role"] = req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		errors.BadRequest(c, "no fields to update")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	_, err := h.mongoClient.NewQuery("users").
		Eq("id", idStr).
		UpdateOne(ctx, updates)
	if err != nil {
		h.logger.Error("Failed to update user", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	audit.LogAction(h.mongoClient, c, audit.ActionUpdate, "user", idStr, updates)

	c.JSON(http.StatusOK, gin.H{"message": "user updated"})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, _ := c.Get("id")
	idStr := id.(string)
	principal, _ := middlewarePrincipal(c)

	// Prevent self-deletion
	if idStr == principal.UserID {
		errors.BadRequest(c, "cannot delete your own account")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	_, err := h.mongoClient.NewQuery("users").
		Eq("id", idStr).
		DeleteOne(ctx)
	if err != nil {
		h.logger.Error("Failed to delete user", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	// Unassign the deleted SDR's leads so they become claimable again
	if _, err := h.mongoClient.NewQuery("leads").
		Eq("assigned_sdr_id", idStr).
		Update(ctx, map[string]interface{}{"assigned_sdr_id": ""}); err != nil {
		h.logger.Warn("Failed to unassign leads of deleted user", zap.Error(err))
	}

	audit.LogAction(h.mongoClient, c, audit.ActionDelete, "user", idStr, nil)

	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func (h *Handler) ActivateUser(c *gin.Context) {
	id, _ := c.Get("id")
	idStr := id.(string)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	_, err := h.mongoClient.NewQuery("users").
		Eq("id", idStr).
		UpdateOne(ctx, map[string]interface{}{"is_active": true})
	if err != nil {
		h.logger.Error("Failed to activate user", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	audit.LogAction(h.mongoClient, c, audit.ActionActivate, "user", idStr, nil)

	c.JSON(http.StatusOK, gin.H{"message": "user activated"})
}

func (h *Handler) DeactivateUser(c *gin.Context) {
	id, _ := c.Get("id")
	idStr := id.(string)
	principal, _ := middlewarePrincipal(c)

	// Prevent self-deactivation
	if idStr == principal.UserID {
		errors.BadRequest(c, "cannot deactivate your own account")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	_, err := h.mongoClient.NewQuery("users").
		Eq("id", idStr).
		UpdateOne(ctx, map[string]interface{}{"is_active": false})
	if err != nil {
		h.logger.Error("Failed to deactivate user", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	audit.LogAction(h.mongoClient, c, audit.ActionDeactivate, "user", idStr, nil)

	c.JSON(http.StatusOK, gin.H{"message": "user deactivated"})
}
