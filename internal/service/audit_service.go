package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hr-attendance-api/internal/models"
	"github.com/noah-isme/hr-attendance-api/pkg/jobs"
	"github.com/noah-isme/hr-attendance-api/pkg/logger"
)

const (
	auditJobType  = "audit_log"
	auditResource = "session"
)

type auditLogStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

type auditQueue interface {
	TryEnqueue(job jobs.Job) error
}

// AuditRecorder is the sink session flows report lifecycle events to.
type AuditRecorder interface {
	Record(ctx context.Context, event models.AuditEvent)
}

// AuditService writes one structured log line and one counter increment per event, and
// hands the row to the job queue for persistence when a queue is configured.
type AuditService struct {
	logger  *zap.Logger
	metrics *MetricsService
	queue   auditQueue
	now     func() time.Time
}

// NewAuditService constructs the service. queue may be nil to skip persistence.
func NewAuditService(logger *zap.Logger, metrics *MetricsService, queue auditQueue) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{logger: logger.Named("audit"), metrics: metrics, queue: queue, now: time.Now}
}

// Record implements AuditRecorder. It never blocks on storage.
func (s *AuditService) Record(_ context.Context, event models.AuditEvent) {
	fields := []zap.Field{
		zap.String("event", event.Event),
		zap.String("device_id", event.DeviceID),
		zap.String("ip", event.IP),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.Username != "" {
		fields = append(fields, zap.String("username", logger.MaskIdentifier(event.Username)))
	}
	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}
	for k, v := range event.Metadata {
		fields = append(fields, zap.String(k, v))
	}

	if event.Succeeded() || event.Event == models.AuditLoginAttempt {
		s.logger.Info("auth event", fields...)
	} else {
		s.logger.Warn("auth event", fields...)
	}
	s.metrics.RecordAuthEvent(event.Event)

	if s.queue == nil {
		return
	}
	row, err := s.toLog(event)
	if err != nil {
		s.logger.Warn("encode audit row failed", zap.String("event", event.Event), zap.Error(err))
		return
	}
	if err := s.queue.TryEnqueue(jobs.Job{ID: row.ID, Type: auditJobType, Payload: row}); err != nil {
		s.metrics.RecordAuditDropped()
		s.logger.Warn("audit row dropped", zap.String("event", event.Event), zap.Error(err))
	}
}

func (s *AuditService) toLog(event models.AuditEvent) (*models.AuditLog, error) {
	values := map[string]string{}
	for k, v := range event.Metadata {
		values[k] = v
	}
	if event.Username != "" {
		values["username"] = logger.MaskIdentifier(event.Username)
	}
	if event.Reason != "" {
		values["reason"] = event.Reason
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}

	row := &models.AuditLog{
		ID:        uuid.NewString(),
		Action:    event.Event,
		Resource:  auditResource,
		NewValues: payload,
		IPAddress: event.IP,
		UserAgent: event.UserAgent,
		CreatedAt: s.now().UTC(),
	}
	if event.UserID != "" {
		userID := event.UserID
		row.UserID = &userID
	}
	if event.DeviceID != "" {
		deviceID := event.DeviceID
		row.ResourceID = &deviceID
	}
	return row, nil
}

// PersistAuditJob returns the queue handler that stores audit rows.
func PersistAuditJob(store auditLogStore) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		row, ok := job.Payload.(*models.AuditLog)
		if !ok {
			return fmt.Errorf("unexpected audit payload %T", job.Payload)
		}
		return store.Create(ctx, row)
	}
}

// NopAuditRecorder discards events.
type NopAuditRecorder struct{}

// Record implements AuditRecorder.
func (NopAuditRecorder) Record(context.Context, models.AuditEvent) {}
