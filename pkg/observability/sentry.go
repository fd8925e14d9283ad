package observability

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/hr-attendance-api/pkg/middleware/requestid"
	"github.com/noah-isme/hr-attendance-api/pkg/response"
)

// InitSentry configures the global Sentry hub. An empty DSN leaves reporting disabled.
func InitSentry(dsn, environment string) (bool, error) {
	if dsn == "" {
		return false, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// FlushSentry waits briefly for buffered events to be delivered.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// Middleware reports server errors attached to the request and recovers panics.
func Middleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				sentry.WithScope(func(scope *sentry.Scope) {
					scope.SetTag("path", c.FullPath())
					scope.SetTag("request_id", requestid.Value(c))
					scope.SetExtra("panic", fmt.Sprint(rec))
					scope.SetExtra("stack", string(debug.Stack()))
					sentry.CaptureMessage("panic in request")
				})
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
				)
				c.Abort()
				response.Error(c, fmt.Errorf("panic: %v", rec))
			}
		}()

		c.Next()

		if c.Writer.Status() < http.StatusInternalServerError || len(c.Errors) == 0 {
			return
		}
		for _, ginErr := range c.Errors {
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("path", c.FullPath())
				scope.SetTag("method", c.Request.Method)
				scope.SetTag("request_id", requestid.Value(c))
				sentry.CaptureException(ginErr.Err)
			})
		}
	}
}
