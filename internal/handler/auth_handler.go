package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hr-attendance-api/internal/dto"
	"github.com/noah-isme/hr-attendance-api/internal/middleware"
	"github.com/noah-isme/hr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/hr-attendance-api/pkg/errors"
	"github.com/noah-isme/hr-attendance-api/pkg/response"
)

// DefaultDeviceHeader carries the client device identifier. It wins over the body field.
const DefaultDeviceHeader = "X-Device-ID"

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	LoginWithData(ctx context.Context, req models.LoginRequest) (*dto.LoginWithDataResponse, bool, error)
	Refresh(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error)
	RefreshWithData(ctx context.Context, req models.RefreshTokenRequest) (*dto.RefreshWithDataResponse, bool, error)
	Logout(ctx context.Context, principal *models.Principal, deviceID string, meta models.RequestMeta) error
	ValidateToken(ctx context.Context, bearer, deviceID string, meta models.RequestMeta) (*models.ValidateTokenResponse, error)
	ChangePassword(ctx context.Context, principal *models.Principal, req models.ChangePasswordRequest, meta models.RequestMeta) error
	Me(principal *models.Principal) (models.UserInfo, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service      authService
	deviceHeader string
}

// NewAuthHandler creates a new handler. An empty deviceHeader selects DefaultDeviceHeader.
func NewAuthHandler(svc authService, deviceHeader string) *AuthHandler {
	if deviceHeader == "" {
		deviceHeader = DefaultDeviceHeader
	}
	return &AuthHandler{service: svc, deviceHeader: deviceHeader}
}

// Login godoc
// @Summary Authenticate employee
// @Description Verify username and password and issue a device-bound token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param X-Device-ID header string false "Device identifier, overrides device_id in the body"
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	req := h.bindLogin(c)

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, "login successful", res)
}

// LoginWithData godoc
// @Summary Authenticate employee and load session data
// @Description Same as login, plus profile, office, face model, recent attendance, performance and news
// @Tags Authentication
// @Accept json
// @Produce json
// @Param X-Device-ID header string false "Device identifier, overrides device_id in the body"
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/login-with-data [post]
func (h *AuthHandler) LoginWithData(c *gin.Context) {
	req := h.bindLogin(c)

	res, cacheHit, err := h.service.LoginWithData(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, "login successful", res, middleware.ResponseMeta(c))
}

// Refresh godoc
// @Summary Rotate tokens
// @Description Exchange a refresh token bound to the device for a new token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param X-Device-ID header string false "Device identifier, overrides device_id in the body"
// @Param payload body models.RefreshTokenRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	req := h.bindRefresh(c)

	res, err := h.service.Refresh(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, "token refreshed", res)
}

// RefreshWithData godoc
// @Summary Rotate tokens and load session data
// @Description Same as refresh, plus the user and their session data
// @Tags Authentication
// @Accept json
// @Produce json
// @Param X-Device-ID header string false "Device identifier, overrides device_id in the body"
// @Param payload body models.RefreshTokenRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/refresh-with-data [post]
func (h *AuthHandler) RefreshWithData(c *gin.Context) {
	req := h.bindRefresh(c)

	res, cacheHit, err := h.service.RefreshWithData(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, "token refreshed", res, middleware.ResponseMeta(c))
}

// Logout godoc
// @Summary Logout current device
// @Description Revoke every access and refresh token of the caller on the device
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var payload struct {
		DeviceID string `json:"device_id"`
	}
	// The body is optional for logout.
	_ = c.ShouldBindJSON(&payload)

	meta := h.requestMeta(c, payload.DeviceID)
	if err := h.service.Logout(c.Request.Context(), middleware.PrincipalFrom(c), meta.DeviceID, meta); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, "logged out", nil)
}

// ValidateToken godoc
// @Summary Validate bearer token
// @Description Check that the bearer token is live and was issued to the requesting device
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/validate-token [get]
// @Router /auth/validate-token [post]
func (h *AuthHandler) ValidateToken(c *gin.Context) {
	var payload struct {
		DeviceID string `json:"device_id"`
	}
	if c.Request.Method == http.MethodPost {
		_ = c.ShouldBindJSON(&payload)
	}

	meta := h.requestMeta(c, payload.DeviceID)
	bearer := middleware.BearerToken(c.GetHeader("Authorization"))
	res, err := h.service.ValidateToken(c.Request.Context(), bearer, meta.DeviceID, meta)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, "token is valid", res)
}

// ChangePassword godoc
// @Summary Change password
// @Description Change the caller's password and revoke all of their sessions
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChangePasswordRequest true "Change password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	meta := h.requestMeta(c, "")
	if err := h.service.ChangePassword(c.Request.Context(), middleware.PrincipalFrom(c), req, meta); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, "password changed, please log in again", nil)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's info
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	info, err := h.service.Me(middleware.PrincipalFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, "ok", info)
}

func (h *AuthHandler) bindLogin(c *gin.Context) models.LoginRequest {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// An unreadable body still goes through device checks and throttling as an empty payload.
		req = models.LoginRequest{}
	}
	meta := h.requestMeta(c, req.DeviceID)
	req.DeviceID = meta.DeviceID
	req.IP = meta.IP
	req.UserAgent = meta.UserAgent
	return req
}

func (h *AuthHandler) bindRefresh(c *gin.Context) models.RefreshTokenRequest {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = models.RefreshTokenRequest{}
	}
	meta := h.requestMeta(c, req.DeviceID)
	req.DeviceID = meta.DeviceID
	req.IP = meta.IP
	req.UserAgent = meta.UserAgent
	return req
}
