package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marmos91/dittodrive/internal/auth"
)

type AuthHandler struct {
	registry *auth.Registry
	secret   []byte
	tokenTTL time.Duration
	log      *zap.Logger
}

func NewAuthHandler(registry *auth.Registry, secret []byte, tokenTTL time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		registry: registry,
		secret:   secret,
		tokenTTL: tokenTTL,
		log:      log,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.registry.Authenticate(req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.log.Error("login failed", zap.String("username", req.Username), zap.Error(err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, h.secret, h.tokenTTL)
	if err != nil {
		h.log.Error("failed to generate token", zap.String("username", req.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
		},
	})
}
