package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/hr-attendance-api/internal/models"
	"github.com/noah-isme/hr-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/hr-attendance-api/pkg/errors"
)

type fakeEmployeeReader struct {
	profile      *models.EmployeeProfile
	office       *models.Office
	faceModel    *models.FaceModel
	attendance   []models.AttendanceRecord
	performance  []models.PerformanceRecord
	profileCalls int
	attendErr    error
	since        time.Time
}

func (f *fakeEmployeeReader) FindProfile(context.Context, string) (*models.EmployeeProfile, error) {
	f.profileCalls++
	if f.profile == nil {
		return nil, sql.ErrNoRows
	}
	return f.profile, nil
}

func (f *fakeEmployeeReader) FindOffice(context.Context, string) (*models.Office, error) {
	if f.office == nil {
		return nil, sql.ErrNoRows
	}
	return f.office, nil
}

func (f *fakeEmployeeReader) FindFaceModel(context.Context, string) (*models.FaceModel, error) {
	if f.faceModel == nil {
		return nil, sql.ErrNoRows
	}
	return f.faceModel, nil
}

func (f *fakeEmployeeReader) ListAttendance(_ context.Context, _ string, since time.Time) ([]models.AttendanceRecord, error) {
	f.since = since
	if f.attendErr != nil {
		return nil, f.attendErr
	}
	return f.attendance, nil
}

func (f *fakeEmployeeReader) ListPerformance(context.Context, string, time.Time) ([]models.PerformanceRecord, error) {
	return f.performance, nil
}

type fakeNewsReader struct {
	items []models.News
	calls int
}

func (f *fakeNewsReader) ListPublished(context.Context, time.Time, int) ([]models.News, error) {
	f.calls++
	return f.items, nil
}

func newCacheForTest(t *testing.T) *CacheService {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheService(repository.NewCacheRepository(client, zap.NewNop()), NewMetricsService(), time.Minute, zap.NewNop(), true)
}

func employeeUser(id string) *models.User {
	return &models.User{ID: "u1", Username: "jdoe", EmployeeID: &id}
}

func TestCollectWithoutEmployeeReturnsEmptyPayload(t *testing.T) {
	employees := &fakeEmployeeReader{}
	svc := NewSessionDataService(employees, &fakeNewsReader{}, nil, SessionDataConfig{}, zap.NewNop())

	data, hit, err := svc.Collect(context.Background(), &models.User{ID: "u1"})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, data.Profile)
	assert.NotNil(t, data.Attendance)
	assert.NotNil(t, data.News)
	assert.Zero(t, employees.profileCalls)
}

func TestCollectMissingProfileReturnsEmptyPayload(t *testing.T) {
	svc := NewSessionDataService(&fakeEmployeeReader{}, &fakeNewsReader{}, nil, SessionDataConfig{}, zap.NewNop())

	data, _, err := svc.Collect(context.Background(), employeeUser("EMP-404"))
	require.NoError(t, err)
	assert.Nil(t, data.Profile)
	assert.Empty(t, data.Attendance)
}

func TestCollectAggregatesAndCaches(t *testing.T) {
	officeID := "OF-1"
	employees := &fakeEmployeeReader{
		profile:     &models.EmployeeProfile{EmployeeID: "EMP-1", FullName: "Jane Doe", OfficeID: &officeID},
		office:      &models.Office{ID: officeID, Name: "HQ"},
		attendance:  []models.AttendanceRecord{{ID: "a1", Status: models.AttendanceStatusPresent}},
		performance: []models.PerformanceRecord{{ID: "p1", Score: 88}},
	}
	news := &fakeNewsReader{items: []models.News{{ID: "n1", Title: "Town hall"}}}
	svc := NewSessionDataService(employees, news, newCacheForTest(t), SessionDataConfig{ProfileTTL: time.Minute, NewsTTL: time.Minute}, zap.NewNop())
	fixed := time.Date(2024, 6, 30, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	data, hit, err := svc.Collect(context.Background(), employeeUser("EMP-1"))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "HQ", data.Office.Name)
	assert.Nil(t, data.FaceModel)
	assert.Len(t, data.Attendance, 1)
	assert.Len(t, data.News, 1)
	assert.Equal(t, fixed.AddDate(0, 0, -30), employees.since)

	data, hit, err = svc.Collect(context.Background(), employeeUser("EMP-1"))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Jane Doe", data.Profile.FullName)
	assert.Equal(t, 1, employees.profileCalls)
	assert.Equal(t, 1, news.calls)

	svc.cache.Invalidate(context.Background(), employeeCacheKey("EMP-1"))
	_, hit, err = svc.Collect(context.Background(), employeeUser("EMP-1"))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, employees.profileCalls)
}

func TestCollectSurfacesLegacyFailures(t *testing.T) {
	employees := &fakeEmployeeReader{
		profile:   &models.EmployeeProfile{EmployeeID: "EMP-1"},
		attendErr: errors.New("timeout"),
	}
	svc := NewSessionDataService(employees, &fakeNewsReader{}, nil, SessionDataConfig{}, zap.NewNop())

	_, _, err := svc.Collect(context.Background(), employeeUser("EMP-1"))
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
