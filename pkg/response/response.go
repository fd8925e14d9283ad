package response

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/hr-attendance-api/pkg/errors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope represents the common response contract.
type Envelope struct {
	Status      string                 `json:"status"`
	Data        interface{}            `json:"data"`
	Error       *appErrors.Error       `json:"error"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
	LastUpdated string                 `json:"last_updated"`
	Message     string                 `json:"message"`
}

// JSON sends a success response with optional metadata.
func JSON(c *gin.Context, status int, message string, data interface{}, meta ...map[string]interface{}) {
	noStore(c)
	if data == nil {
		data = gin.H{}
	}
	envelope := Envelope{
		Status:      StatusSuccess,
		Data:        data,
		LastUpdated: timestamp(),
		Message:     message,
	}
	if len(meta) > 0 && len(meta[0]) > 0 {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Error sends an error response converting the error to the common structure.
// Server faults are attached to the gin context for reporting and reduced to the generic internal error.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
		appErr = appErrors.Clone(appErrors.ErrInternal, "")
	}
	noStore(c)

	envelope := Envelope{
		Status:      StatusError,
		Error:       appErr,
		LastUpdated: timestamp(),
		Message:     appErr.Message,
	}
	if retryAfter, ok := appErr.Details["retry_after"]; ok {
		envelope.Meta = map[string]interface{}{"retry_after": retryAfter}
		if seconds, ok := retryAfter.(int); ok {
			c.Header("Retry-After", strconv.Itoa(seconds))
		}
	}
	c.JSON(appErr.Status, envelope)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
