package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hr-attendance-api/internal/models"
)

// EmployeeRepository reads HR records from the legacy database. It never writes.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository over the legacy connection.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// FindProfile returns the employee master record.
func (r *EmployeeRepository) FindProfile(ctx context.Context, employeeID string) (*models.EmployeeProfile, error) {
	const query = `SELECT employee_id, full_name, position, department, phone, photo_path, office_id, joined_at FROM employees WHERE employee_id = $1 LIMIT 1`
	var profile models.EmployeeProfile
	if err := r.db.GetContext(ctx, &profile, query, employeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find employee profile: %w", err)
	}
	return &profile, nil
}

// FindOffice returns an office by id.
func (r *EmployeeRepository) FindOffice(ctx context.Context, officeID string) (*models.Office, error) {
	const query = `SELECT id, name, address, latitude, longitude, radius_m, start_time, end_time FROM offices WHERE id = $1 LIMIT 1`
	var office models.Office
	if err := r.db.GetContext(ctx, &office, query, officeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find office: %w", err)
	}
	return &office, nil
}

// FindFaceModel returns the latest enrolled face model reference.
func (r *EmployeeRepository) FindFaceModel(ctx context.Context, employeeID string) (*models.FaceModel, error) {
	const query = `SELECT employee_id, model_path, version, updated_at FROM face_models WHERE employee_id = $1 ORDER BY version DESC LIMIT 1`
	var model models.FaceModel
	if err := r.db.GetContext(ctx, &model, query, employeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find face model: %w", err)
	}
	return &model, nil
}

// ListAttendance returns attendance rows on or after since, newest first.
func (r *EmployeeRepository) ListAttendance(ctx context.Context, employeeID string, since time.Time) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, employee_id, date, check_in, check_out, status, notes FROM attendances WHERE employee_id = $1 AND date >= $2 ORDER BY date DESC`
	records := []models.AttendanceRecord{}
	if err := r.db.SelectContext(ctx, &records, query, employeeID, since); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// ListPerformance returns performance rows on or after since, newest first.
func (r *EmployeeRepository) ListPerformance(ctx context.Context, employeeID string, since time.Time) ([]models.PerformanceRecord, error) {
	const query = `SELECT id, employee_id, period, score, grade, notes FROM performances WHERE employee_id = $1 AND period >= $2 ORDER BY period DESC`
	records := []models.PerformanceRecord{}
	if err := r.db.SelectContext(ctx, &records, query, employeeID, since); err != nil {
		return nil, fmt.Errorf("list performance: %w", err)
	}
	return records, nil
}
