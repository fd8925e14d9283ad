package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/hr-attendance-api/internal/models"
	"github.com/noah-isme/hr-attendance-api/pkg/jobs"
)

type captureQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *captureQueue) TryEnqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type captureAuditStore struct {
	rows []*models.AuditLog
}

func (s *captureAuditStore) Create(_ context.Context, log *models.AuditLog) error {
	s.rows = append(s.rows, log)
	return nil
}

func TestAuditRecordLogsCountsAndQueues(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	metrics := NewMetricsService()
	queue := &captureQueue{}
	svc := NewAuditService(zap.New(core), metrics, queue)

	svc.Record(context.Background(), models.AuditEvent{
		Event:    models.AuditLoginFailed,
		Username: "jdoe",
		DeviceID: "device-001",
		IP:       "10.0.0.1",
		Reason:   "invalid_credentials",
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "j**e", entries[0].ContextMap()["username"])
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.authEvents.WithLabelValues(models.AuditLoginFailed)))

	require.Len(t, queue.jobs, 1)
	row, ok := queue.jobs[0].Payload.(*models.AuditLog)
	require.True(t, ok)
	assert.Equal(t, models.AuditLoginFailed, row.Action)
	assert.Nil(t, row.UserID)
	require.NotNil(t, row.ResourceID)
	assert.Equal(t, "device-001", *row.ResourceID)

	var values map[string]string
	require.NoError(t, json.Unmarshal(row.NewValues, &values))
	assert.Equal(t, "invalid_credentials", values["reason"])
	assert.Equal(t, "j**e", values["username"])
}

func TestAuditRecordSuccessIsInfo(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	svc := NewAuditService(zap.New(core), nil, nil)

	svc.Record(context.Background(), models.AuditEvent{Event: models.AuditLoginSucceeded, UserID: "u1"})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.InfoLevel, logs.All()[0].Level)
}

func TestAuditRecordCountsDroppedRows(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewAuditService(zap.NewNop(), metrics, &captureQueue{err: jobs.ErrQueueFull})

	svc.Record(context.Background(), models.AuditEvent{Event: models.AuditLogout, UserID: "u1"})
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.auditDropped))
}

func TestPersistAuditJob(t *testing.T) {
	store := &captureAuditStore{}
	handler := PersistAuditJob(store)

	require.NoError(t, handler(context.Background(), jobs.Job{Payload: &models.AuditLog{ID: "a1"}}))
	assert.Len(t, store.rows, 1)

	err := handler(context.Background(), jobs.Job{Payload: "oops"})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, jobs.ErrQueueFull))
}
