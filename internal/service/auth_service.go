package service

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hr-attendance-api/internal/dto"
	"github.com/noah-isme/hr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/hr-attendance-api/pkg/errors"
)

type authUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

type credentialChecker interface {
	Verify(ctx context.Context, username, password string) (*models.User, error)
}

type accessTokenManager interface {
	Issue(ctx context.Context, user *models.User, deviceID string) (*IssuedAccessToken, error)
	Resolve(ctx context.Context, plaintext string) (*models.AccessToken, error)
}

type accessTokenRevoker interface {
	Touch(ctx context.Context, id string, ts time.Time) error
	DeleteByUserDevice(ctx context.Context, userID, deviceID string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type refreshTokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken, maxPerDevice int) (int, error)
	Consume(ctx context.Context, tokenHash, deviceID string, now time.Time) (*models.RefreshToken, error)
	DeleteByUserDevice(ctx context.Context, userID, deviceID string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// AuthConfig defines lifetimes and attempt limits for the session flows.
type AuthConfig struct {
	RefreshTokenTTL     time.Duration
	MaxRefreshPerDevice int
	LoginMaxAttempts    int
	RefreshMaxAttempts  int
	AttemptDecay        time.Duration
}

// AuthDeps groups the collaborators of AuthService.
type AuthDeps struct {
	Users         authUserRepository
	Credentials   credentialChecker
	Tokens        accessTokenManager
	AccessTokens  accessTokenRevoker
	RefreshTokens refreshTokenStore
	Limiter       *RateLimiter
	SessionData   SessionDataCollector
	Audit         AuditRecorder
}

// AuthService orchestrates login, refresh, logout and token validation per (user, device).
type AuthService struct {
	deps      AuthDeps
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(deps AuthDeps, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if deps.Audit == nil {
		deps.Audit = NopAuditRecorder{}
	}
	if config.RefreshTokenTTL <= 0 {
		config.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if config.MaxRefreshPerDevice <= 0 {
		config.MaxRefreshPerDevice = 5
	}
	if config.LoginMaxAttempts <= 0 {
		config.LoginMaxAttempts = 5
	}
	if config.RefreshMaxAttempts <= 0 {
		config.RefreshMaxAttempts = 5
	}
	if config.AttemptDecay <= 0 {
		config.AttemptDecay = time.Minute
	}
	return &AuthService{deps: deps, validator: validate, logger: logger, config: config, now: time.Now}
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Login authenticates username/password on a device and issues a token pair.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	resp, _, _, err := s.login(ctx, req, false)
	return resp, err
}

// LoginWithData performs Login and attaches the employee's session data.
// The boolean reports whether the session data was served from cache.
func (s *AuthService) LoginWithData(ctx context.Context, req models.LoginRequest) (*dto.LoginWithDataResponse, bool, error) {
	resp, data, cacheHit, err := s.login(ctx, req, true)
	if err != nil {
		return nil, false, err
	}
	return &dto.LoginWithDataResponse{LoginResponse: *resp, SessionData: data}, cacheHit, nil
}

func (s *AuthService) login(ctx context.Context, req models.LoginRequest, withData bool) (*models.LoginResponse, *dto.SessionData, bool, error) {
	deviceID, err := ValidateDeviceID(req.DeviceID)
	if err != nil {
		return nil, nil, false, err
	}
	req.DeviceID = deviceID

	event := models.AuditEvent{Username: req.Username, DeviceID: deviceID, IP: req.IP, UserAgent: req.UserAgent}
	key := LoginAttemptKey(req.Username, deviceID)

	if err := s.ensureNotLimited(ctx, key, s.config.LoginMaxAttempts); err != nil {
		if errors.Is(err, appErrors.ErrRateLimited) {
			s.record(ctx, event, models.AuditLoginRateLimited, "")
		}
		return nil, nil, false, err
	}
	s.record(ctx, event, models.AuditLoginAttempt, "")

	if err := s.validator.Struct(req); err != nil {
		s.hit(ctx, key)
		s.record(ctx, event, models.AuditLoginFailed, "validation")
		return nil, nil, false, validationError(err, "invalid login payload")
	}

	user, err := s.deps.Credentials.Verify(ctx, req.Username, req.Password)
	if err != nil {
		s.hit(ctx, key)
		if errors.Is(err, appErrors.ErrInvalidCredentials) {
			s.record(ctx, event, models.AuditLoginFailed, "invalid_credentials")
			return nil, nil, false, err
		}
		return nil, nil, false, s.internal(err, "verify credentials")
	}
	event.UserID = user.ID

	s.clear(ctx, key)

	pair, err := s.issuePair(ctx, user, deviceID)
	if err != nil {
		s.hit(ctx, key)
		return nil, nil, false, s.internal(err, "issue login tokens")
	}

	if err := s.deps.Users.UpdateLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	var data *dto.SessionData
	var cacheHit bool
	if withData {
		data, cacheHit, err = s.collect(ctx, user)
		if err != nil {
			s.hit(ctx, key)
			return nil, nil, false, s.internal(err, "collect session data")
		}
	}

	s.record(ctx, event, models.AuditLoginSucceeded, "")
	return &models.LoginResponse{TokenPair: *pair, User: user.Summary()}, data, cacheHit, nil
}

// Refresh rotates a refresh token. The presented token is consumed and every access token
// of the (user, device) pair is revoked before a new pair is issued.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	pair, _, _, _, err := s.refresh(ctx, req, false)
	if err != nil {
		return nil, err
	}
	return &models.RefreshTokenResponse{TokenPair: *pair}, nil
}

// RefreshWithData performs Refresh and attaches the user summary and session data.
func (s *AuthService) RefreshWithData(ctx context.Context, req models.RefreshTokenRequest) (*dto.RefreshWithDataResponse, bool, error) {
	pair, user, data, cacheHit, err := s.refresh(ctx, req, true)
	if err != nil {
		return nil, false, err
	}
	return &dto.RefreshWithDataResponse{TokenPair: *pair, User: user.Summary(), SessionData: data}, cacheHit, nil
}

func (s *AuthService) refresh(ctx context.Context, req models.RefreshTokenRequest, withData bool) (*models.TokenPair, *models.User, *dto.SessionData, bool, error) {
	deviceID, err := ValidateDeviceID(req.DeviceID)
	if err != nil {
		return nil, nil, nil, false, err
	}
	req.DeviceID = deviceID

	event := models.AuditEvent{DeviceID: deviceID, IP: req.IP, UserAgent: req.UserAgent}
	key := RefreshAttemptKey(deviceID)

	if err := s.ensureNotLimited(ctx, key, s.config.RefreshMaxAttempts); err != nil {
		if errors.Is(err, appErrors.ErrRateLimited) {
			s.record(ctx, event, models.AuditRefreshRateLimited, "")
		}
		return nil, nil, nil, false, err
	}

	if err := s.validator.Struct(req); err != nil {
		s.hit(ctx, key)
		s.record(ctx, event, models.AuditRefreshFailed, "validation")
		return nil, nil, nil, false, validationError(err, "invalid refresh payload")
	}

	stored, err := s.deps.RefreshTokens.Consume(ctx, HashToken(req.RefreshToken), deviceID, s.now().UTC())
	if err != nil {
		s.hit(ctx, key)
		if errors.Is(err, sql.ErrNoRows) {
			s.record(ctx, event, models.AuditRefreshFailed, "invalid_refresh_token")
			return nil, nil, nil, false, appErrors.ErrInvalidRefreshToken
		}
		return nil, nil, nil, false, s.internal(err, "consume refresh token")
	}
	event.UserID = stored.UserID

	user, err := s.deps.Users.FindByID(ctx, stored.UserID)
	if err != nil {
		s.hit(ctx, key)
		if errors.Is(err, sql.ErrNoRows) {
			s.record(ctx, event, models.AuditRefreshFailed, "user_not_found")
			return nil, nil, nil, false, orphanedTokenError()
		}
		return nil, nil, nil, false, s.internal(err, "load refresh token owner")
	}
	if !user.Active {
		s.hit(ctx, key)
		s.record(ctx, event, models.AuditRefreshFailed, "inactive_account")
		return nil, nil, nil, false, appErrors.ErrInvalidRefreshToken
	}
	event.Username = user.Username

	s.clear(ctx, key)

	if _, err := s.deps.AccessTokens.DeleteByUserDevice(ctx, user.ID, deviceID); err != nil {
		s.hit(ctx, key)
		return nil, nil, nil, false, s.internal(err, "revoke device access tokens")
	}

	pair, err := s.issuePair(ctx, user, deviceID)
	if err != nil {
		s.hit(ctx, key)
		return nil, nil, nil, false, s.internal(err, "issue refreshed tokens")
	}

	var data *dto.SessionData
	var cacheHit bool
	if withData {
		data, cacheHit, err = s.collect(ctx, user)
		if err != nil {
			s.hit(ctx, key)
			return nil, nil, nil, false, s.internal(err, "collect session data")
		}
	}

	s.record(ctx, event, models.AuditRefreshSucceeded, "")
	return pair, user, data, cacheHit, nil
}

// Logout revokes every access and refresh token of the caller on deviceID. Repeating it is harmless.
// The caller's token must be bound to deviceID.
func (s *AuthService) Logout(ctx context.Context, principal *models.Principal, deviceID string, meta models.RequestMeta) error {
	deviceID, err := ValidateDeviceID(deviceID)
	if err != nil {
		return err
	}
	if principal == nil || principal.User == nil {
		return appErrors.ErrUnauthenticated
	}
	userID := principal.User.ID
	if principal.Token != nil && principal.Token.DeviceID != deviceID {
		s.record(ctx, models.AuditEvent{UserID: userID, Username: principal.User.Username, DeviceID: deviceID, IP: meta.IP, UserAgent: meta.UserAgent,
			Metadata: map[string]string{"token_device_id": principal.Token.DeviceID}}, models.AuditDeviceChanged, "logout")
		return appErrors.ErrDeviceChanged.
			WithDetail("token_device_id", principal.Token.DeviceID).
			WithDetail("request_device_id", deviceID)
	}

	if _, err := s.deps.AccessTokens.DeleteByUserDevice(ctx, userID, deviceID); err != nil {
		return s.internal(err, "revoke access tokens on logout")
	}
	if _, err := s.deps.RefreshTokens.DeleteByUserDevice(ctx, userID, deviceID); err != nil {
		return s.internal(err, "revoke refresh tokens on logout")
	}

	s.record(ctx, models.AuditEvent{UserID: userID, Username: principal.User.Username, DeviceID: deviceID, IP: meta.IP, UserAgent: meta.UserAgent}, models.AuditLogout, "")
	return nil
}

// ValidateToken checks a bearer token against the requesting device.
// A device mismatch is reported without revoking the token.
func (s *AuthService) ValidateToken(ctx context.Context, bearer, deviceID string, meta models.RequestMeta) (*models.ValidateTokenResponse, error) {
	deviceID, err := ValidateDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	if bearer == "" {
		return nil, appErrors.ErrNoTokenProvided
	}

	token, err := s.deps.Tokens.Resolve(ctx, bearer)
	if err != nil {
		return nil, s.passthrough(err, "resolve access token")
	}

	user, err := s.deps.Users.FindByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, s.internal(err, "load token owner")
	}

	if token.DeviceID != deviceID {
		s.record(ctx, models.AuditEvent{UserID: user.ID, Username: user.Username, DeviceID: deviceID, IP: meta.IP, UserAgent: meta.UserAgent,
			Metadata: map[string]string{"token_device_id": token.DeviceID}}, models.AuditDeviceChanged, "")
		return nil, appErrors.ErrDeviceChanged.
			WithDetail("token_device_id", token.DeviceID).
			WithDetail("request_device_id", deviceID)
	}

	now := s.now().UTC()
	if err := s.deps.AccessTokens.Touch(ctx, token.ID, now); err != nil {
		s.logger.Warn("failed to touch access token", zap.String("token_id", token.ID), zap.Error(err))
	} else {
		token.LastUsedAt = &now
	}

	return &models.ValidateTokenResponse{
		IsValid: true,
		User:    user.Summary(),
		Token: models.TokenInfo{
			ID:         token.ID,
			ExpiresAt:  token.ExpiresAt,
			LastUsedAt: token.LastUsedAt,
			DeviceID:   token.DeviceID,
		},
	}, nil
}

// Authenticate resolves a bearer token into a principal for protected routes.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (*models.Principal, error) {
	if bearer == "" {
		return nil, appErrors.ErrUnauthenticated
	}
	token, err := s.deps.Tokens.Resolve(ctx, bearer)
	if err != nil {
		return nil, s.passthrough(err, "resolve access token")
	}
	user, err := s.deps.Users.FindByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnauthenticated
		}
		return nil, s.internal(err, "load token owner")
	}
	if !user.Active {
		return nil, appErrors.ErrUnauthenticated
	}

	now := s.now().UTC()
	if err := s.deps.AccessTokens.Touch(ctx, token.ID, now); err != nil {
		s.logger.Warn("failed to touch access token", zap.String("token_id", token.ID), zap.Error(err))
	} else {
		token.LastUsedAt = &now
	}
	return &models.Principal{User: user, Token: token}, nil
}

// ChangePassword replaces the caller's password and revokes all of their sessions on every device.
func (s *AuthService) ChangePassword(ctx context.Context, principal *models.Principal, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	if principal == nil || principal.User == nil {
		return appErrors.ErrUnauthenticated
	}
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid change password payload")
	}

	user, err := s.deps.Users.FindByID(ctx, principal.User.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrUnauthenticated
		}
		return s.internal(err, "load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "old password does not match")
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return s.internal(err, "hash password")
	}
	if err := s.deps.Users.UpdatePassword(ctx, user.ID, hash, s.now().UTC()); err != nil {
		return s.internal(err, "update password")
	}
	if _, err := s.deps.RefreshTokens.DeleteByUser(ctx, user.ID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens after password change", zap.Error(err))
	}
	if _, err := s.deps.AccessTokens.DeleteByUser(ctx, user.ID); err != nil {
		s.logger.Warn("failed to revoke access tokens after password change", zap.Error(err))
	}

	s.record(ctx, models.AuditEvent{UserID: user.ID, Username: user.Username, DeviceID: meta.DeviceID, IP: meta.IP, UserAgent: meta.UserAgent}, models.AuditPasswordChanged, "")
	return nil
}

// Me returns the caller's public profile.
func (s *AuthService) Me(principal *models.Principal) (models.UserInfo, error) {
	if principal == nil || principal.User == nil {
		return models.UserInfo{}, appErrors.ErrUnauthenticated
	}
	return principal.User.Summary(), nil
}

func (s *AuthService) issuePair(ctx context.Context, user *models.User, deviceID string) (*models.TokenPair, error) {
	access, err := s.deps.Tokens.Issue(ctx, user, deviceID)
	if err != nil {
		return nil, err
	}

	secret, err := GenerateRefreshSecret()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	refresh := &models.RefreshToken{
		UserID:    user.ID,
		DeviceID:  deviceID,
		TokenHash: HashToken(secret),
		ExpiresAt: now.Add(s.config.RefreshTokenTTL),
		CreatedAt: now,
	}
	evicted, err := s.deps.RefreshTokens.Create(ctx, refresh, s.config.MaxRefreshPerDevice)
	if err != nil {
		return nil, err
	}
	if evicted > 0 {
		s.logger.Debug("evicted oldest refresh tokens", zap.String("user_id", user.ID), zap.String("device_id", deviceID), zap.Int("count", evicted))
	}

	return &models.TokenPair{
		AccessToken:      access.Plaintext,
		RefreshToken:     secret,
		TokenType:        models.TokenTypeBearer,
		ExpiresAt:        access.Record.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

func (s *AuthService) collect(ctx context.Context, user *models.User) (*dto.SessionData, bool, error) {
	if s.deps.SessionData == nil {
		return dto.EmptySessionData(), false, nil
	}
	return s.deps.SessionData.Collect(ctx, user)
}

func (s *AuthService) ensureNotLimited(ctx context.Context, key string, max int) error {
	limited, err := s.deps.Limiter.TooManyAttempts(ctx, key, max)
	if err != nil {
		return s.internal(err, "check attempt limiter")
	}
	if !limited {
		return nil
	}
	wait, err := s.deps.Limiter.AvailableIn(ctx, key)
	if err != nil {
		wait = s.config.AttemptDecay
	}
	return appErrors.ErrRateLimited.WithDetail("retry_after", RetryAfterSeconds(wait))
}

func (s *AuthService) hit(ctx context.Context, key string) {
	if _, err := s.deps.Limiter.Hit(ctx, key, s.config.AttemptDecay); err != nil {
		s.logger.Warn("failed to record attempt", zap.String("key", key), zap.Error(err))
	}
}

func (s *AuthService) clear(ctx context.Context, key string) {
	if err := s.deps.Limiter.Clear(ctx, key); err != nil {
		s.logger.Warn("failed to clear attempts", zap.String("key", key), zap.Error(err))
	}
}

func (s *AuthService) record(ctx context.Context, event models.AuditEvent, name, reason string) {
	event.Event = name
	event.Reason = reason
	s.deps.Audit.Record(ctx, event)
}

// internal logs err and returns a 500 that keeps err as its cause.
func (s *AuthService) internal(err error, op string) error {
	s.logger.Error(op, zap.Error(err))
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Status >= 500 {
		return appErr
	}
	return appErrors.Internal(err, op)
}

// passthrough keeps typed client errors and turns everything else into a 500.
func (s *AuthService) passthrough(err error, op string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Status < 500 {
		return appErr
	}
	return s.internal(err, op)
}

func orphanedTokenError() *appErrors.Error {
	e := appErrors.Clone(appErrors.ErrUserNotFound, "refresh token owner no longer exists")
	e.Status = appErrors.ErrInvalidRefreshToken.Status
	return e
}

func validationError(err error, message string) error {
	e := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		e.Details = map[string]interface{}{"fields": fields}
	}
	return e
}
