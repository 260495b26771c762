package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/glamhair/patglam-agent/pkg/auth"
	"github.com/glamhair/patglam-agent/pkg/errors"
)

type loginRequest struct {
	Operator string `json:"operator" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// HandleLogin exchanges the operator password for a JWT used by the brief
// and monitor endpoints. POST /auth/login.
func (h *Handler) HandleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, "operator and password are required")
		return
	}

	if h.cfg.OperatorPasswordHash == "" {
		errors.ErrorResponse(c, http.StatusServiceUnavailable,
			"Login Disabled", "No operator credentials configured")
		return
	}

	if err := auth.VerifyPassword(h.cfg.OperatorPasswordHash, req.Password); err != nil {
		h.logger.Warn("Operator login rejected",
			zap.String("operator", req.Operator),
			zap.String("remote_addr", c.ClientIP()))
		errors.Unauthorized(c, "Invalid credentials")
		return
	}

	token, expiresAt, err := auth.GenerateOperatorToken(
		req.Operator, h.cfg.JWTSecret, h.cfg.JWTIssuer, h.cfg.TokenTTLMin)
	if err != nil {
		errors.InternalError(c, err, h.logger)
		return
	}

	h.logger.Info("Operator logged in", zap.String("operator", req.Operator))
	c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}
