package models

import "time"

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "Bearer"

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username  string `json:"username" validate:"required,max=100"`
	Password  string `json:"password" validate:"required,max=128"`
	DeviceID  string `json:"device_id"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RefreshTokenRequest exchanges a refresh token for a new token pair.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,min=64,max=128"`
	DeviceID     string `json:"device_id"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=128,nefield=OldPassword"`
}

// RequestMeta carries client attributes recorded with audit events.
type RequestMeta struct {
	DeviceID  string
	IP        string
	UserAgent string
}

// TokenPair is the credential bundle returned by login and refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	TokenPair
	User UserInfo `json:"user"`
}

// RefreshTokenResponse returns the rotated tokens.
type RefreshTokenResponse struct {
	TokenPair
}

// TokenInfo exposes access token metadata without the secret.
type TokenInfo struct {
	ID         string     `json:"id"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	DeviceID   string     `json:"device_id"`
}

// ValidateTokenResponse describes a successfully validated bearer token.
type ValidateTokenResponse struct {
	IsValid bool      `json:"is_valid"`
	User    UserInfo  `json:"user"`
	Token   TokenInfo `json:"token"`
}
