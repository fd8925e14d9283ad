package models

import "time"

// Audit events emitted by the session flows.
const (
	AuditLoginAttempt       = "login_attempt"
	AuditLoginSucceeded     = "login_succeeded"
	AuditLoginFailed        = "login_failed"
	AuditLoginRateLimited   = "login_rate_limited"
	AuditRefreshSucceeded   = "refresh_succeeded"
	AuditRefreshFailed      = "refresh_failed"
	AuditRefreshRateLimited = "refresh_rate_limited"
	AuditLogout             = "logout"
	AuditDeviceChanged      = "token_device_changed"
	AuditPasswordChanged    = "password_changed"
)

// AuditEvent is a transition in a session's lifecycle.
type AuditEvent struct {
	Event     string
	UserID    string
	Username  string
	DeviceID  string
	IP        string
	UserAgent string
	Reason    string
	Metadata  map[string]string
}

// Succeeded reports whether the event represents a successful transition.
func (e AuditEvent) Succeeded() bool {
	switch e.Event {
	case AuditLoginSucceeded, AuditRefreshSucceeded, AuditLogout, AuditPasswordChanged:
		return true
	default:
		return false
	}
}

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
