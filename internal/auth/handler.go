package auth

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aspire-webinars/backend/config"
	"github.com/aspire-webinars/backend/pkg/response"
	"github.com/aspire-webinars/backend/pkg/utils"
)

// LoginRequest is the body for POST /admin/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the login response with the admin JWT.
type TokenResponse struct {
	Token string `json:"token"`
}

// Handler handles admin authentication. The admin principal lives in
// configuration, not the store.
type Handler struct {
	admin  config.AdminConfig
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(admin config.AdminConfig, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{admin: admin, jwt: jwt, logger: logger}
}

// Login handles POST /admin/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if !h.validCredentials(req.Username, req.Password) {
		h.logger.Warn("admin login rejected",
			zap.String("username", req.Username),
			zap.String("client_ip", c.ClientIP()),
		)
		response.Unauthorized(c, "invalid credentials")
		return
	}

	token, err := h.jwt.GenerateAdmin(req.Username)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	h.logger.Info("admin login", zap.String("username", req.Username), zap.String("client_ip", c.ClientIP()))
	response.OK(c, TokenResponse{Token: token})
}

func (h *Handler) validCredentials(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(h.admin.Username)) != 1 {
		return false
	}
	if h.admin.PasswordHash != "" {
		return utils.CheckPassword(password, h.admin.PasswordHash)
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(h.admin.Password)) == 1
}
