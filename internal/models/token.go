package models

import (
	"time"

	"github.com/lib/pq"
)

// Token abilities. Tokens issued at login carry AbilityAll.
const (
	AbilityAll            = "*"
	AbilityChangePassword = "password:change"
)

// AccessToken is the stored half of a bearer token. The plaintext is never persisted.
type AccessToken struct {
	ID         string         `db:"id" json:"id"`
	UserID     string         `db:"user_id" json:"user_id"`
	DeviceID   string         `db:"device_id" json:"device_id"`
	Name       string         `db:"name" json:"name"`
	Abilities  pq.StringArray `db:"abilities" json:"abilities"`
	TokenHash  string         `db:"token_hash" json:"-"`
	LastUsedAt *time.Time     `db:"last_used_at" json:"last_used_at,omitempty"`
	ExpiresAt  time.Time      `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// Expired reports whether the token is past its expiry at now.
func (t *AccessToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// RefreshToken represents a persisted, device-bound rotation credential.
type RefreshToken struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	DeviceID  string    `db:"device_id" json:"device_id"`
	TokenHash string    `db:"token_hash" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Principal is the authenticated caller resolved from a bearer token.
type Principal struct {
	User  *User
	Token *AccessToken
}
