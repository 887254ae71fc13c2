package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-hall-booking/internal/middleware"
	"github.com/iliyamo/cinema-hall-booking/internal/utils"
)

// AuthConfig holds the single admin account and token settings.
type AuthConfig struct {
	AdminName         string
	AdminPasswordHash string
	JWTSecret         string
	AccessTTLMin      int
}

// AuthHandler issues admin access tokens.
type AuthHandler struct {
	cfg AuthConfig
}

func NewAuthHandler(cfg AuthConfig) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

type loginReq struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type tokenResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login handles POST /v1/auth/login.  Without ADMIN_PASSWORD_HASH every
// attempt is rejected.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	nameOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(req.Username)), []byte(h.cfg.AdminName)) == 1
	passOK := utils.VerifyPassword(h.cfg.AdminPasswordHash, req.Password)
	if !nameOK || !passOK {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.cfg.JWTSecret, h.cfg.AdminName, middleware.RoleAdmin, h.cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: access.Token, TokenType: "Bearer", ExpiresAt: access.Exp})
}
