package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hr-attendance-api/internal/dto"
	"github.com/noah-isme/hr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/hr-attendance-api/pkg/errors"
)

const (
	attendanceWindowDays   = 30
	performanceWindowMonth = 6
	newsLimit              = 10
	newsCacheKey           = "session:news"
)

type employeeReader interface {
	FindProfile(ctx context.Context, employeeID string) (*models.EmployeeProfile, error)
	FindOffice(ctx context.Context, officeID string) (*models.Office, error)
	FindFaceModel(ctx context.Context, employeeID string) (*models.FaceModel, error)
	ListAttendance(ctx context.Context, employeeID string, since time.Time) ([]models.AttendanceRecord, error)
	ListPerformance(ctx context.Context, employeeID string, since time.Time) ([]models.PerformanceRecord, error)
}

type newsReader interface {
	ListPublished(ctx context.Context, now time.Time, limit int) ([]models.News, error)
}

// SessionDataCollector builds the auxiliary payload of the "with data" flows.
type SessionDataCollector interface {
	Collect(ctx context.Context, user *models.User) (*dto.SessionData, bool, error)
}

// SessionDataConfig holds cache lifetimes.
type SessionDataConfig struct {
	ProfileTTL time.Duration
	NewsTTL    time.Duration
}

type employeeSnapshot struct {
	Profile   *models.EmployeeProfile `json:"profile"`
	Office    *models.Office          `json:"office"`
	FaceModel *models.FaceModel       `json:"face_model"`
}

// SessionDataService aggregates HR data from the legacy database.
type SessionDataService struct {
	employees employeeReader
	news      newsReader
	cache     *CacheService
	config    SessionDataConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionDataService constructs the aggregator. cache may be nil.
func NewSessionDataService(employees employeeReader, news newsReader, cache *CacheService, config SessionDataConfig, logger *zap.Logger) *SessionDataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionDataService{employees: employees, news: news, cache: cache, config: config, logger: logger, now: time.Now}
}

// Collect returns the session payload for user and whether every cacheable part was served from cache.
// Users without a linked employee record, or whose record is gone, get an empty payload.
func (s *SessionDataService) Collect(ctx context.Context, user *models.User) (*dto.SessionData, bool, error) {
	data := dto.EmptySessionData()
	if user == nil || user.EmployeeID == nil || *user.EmployeeID == "" {
		return data, false, nil
	}
	employeeID := *user.EmployeeID
	now := s.now().UTC()

	snapshot, snapHit, err := s.snapshot(ctx, employeeID)
	if err != nil {
		return nil, false, err
	}
	if snapshot.Profile == nil {
		return data, false, nil
	}
	data.Profile = snapshot.Profile
	data.Office = snapshot.Office
	data.FaceModel = snapshot.FaceModel

	attendance, err := s.employees.ListAttendance(ctx, employeeID, now.AddDate(0, 0, -attendanceWindowDays))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load attendance")
	}
	data.Attendance = attendance

	performance, err := s.employees.ListPerformance(ctx, employeeID, now.AddDate(0, -performanceWindowMonth, 0))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load performance")
	}
	data.Performance = performance

	news, newsHit, err := s.latestNews(ctx, now)
	if err != nil {
		return nil, false, err
	}
	data.News = news

	return data, snapHit && newsHit, nil
}

func (s *SessionDataService) snapshot(ctx context.Context, employeeID string) (*employeeSnapshot, bool, error) {
	key := employeeCacheKey(employeeID)
	var cached employeeSnapshot
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	snap := &employeeSnapshot{}
	profile, err := s.employees.FindProfile(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("user linked to missing employee record", zap.String("employee_id", employeeID))
			return snap, false, nil
		}
		return nil, false, appErrors.Internal(err, "failed to load employee profile")
	}
	snap.Profile = profile

	if profile.OfficeID != nil && *profile.OfficeID != "" {
		office, err := s.employees.FindOffice(ctx, *profile.OfficeID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Internal(err, "failed to load office")
		}
		snap.Office = office
	}

	faceModel, err := s.employees.FindFaceModel(ctx, employeeID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Internal(err, "failed to load face model")
	}
	snap.FaceModel = faceModel

	s.cache.Set(ctx, key, snap, s.config.ProfileTTL)
	return snap, false, nil
}

func (s *SessionDataService) latestNews(ctx context.Context, now time.Time) ([]models.News, bool, error) {
	var cached []models.News
	if s.cache.Get(ctx, newsCacheKey, &cached) {
		if cached == nil {
			cached = []models.News{}
		}
		return cached, true, nil
	}
	news, err := s.news.ListPublished(ctx, now, newsLimit)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load news")
	}
	s.cache.Set(ctx, newsCacheKey, news, s.config.NewsTTL)
	return news, false, nil
}

func employeeCacheKey(employeeID string) string {
	return "session:employee:" + employeeID
}
