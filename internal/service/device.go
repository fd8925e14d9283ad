package service

import (
	"regexp"
	"strings"

	appErrors "github.com/noah-isme/hr-attendance-api/pkg/errors"
)

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,255}$`)

// ResolveDeviceID prefers the header value and falls back to the body field.
func ResolveDeviceID(header, body string) string {
	if v := strings.TrimSpace(header); v != "" {
		return v
	}
	return strings.TrimSpace(body)
}

// ValidateDeviceID checks presence and format of a device identifier.
func ValidateDeviceID(deviceID string) (string, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return "", appErrors.ErrMissingDeviceID
	}
	if !deviceIDPattern.MatchString(deviceID) {
		return "", appErrors.ErrInvalidDeviceIDFormat
	}
	return deviceID, nil
}
