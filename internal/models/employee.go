package models

import "time"

// AttendanceStatus represents the status of a daily check-in row in the legacy HR database.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusLeave   AttendanceStatus = "LEAVE"
	AttendanceStatusSick    AttendanceStatus = "SICK"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
)

// EmployeeProfile is the HR master record linked to a user.
type EmployeeProfile struct {
	EmployeeID string     `db:"employee_id" json:"employee_id"`
	FullName   string     `db:"full_name" json:"full_name"`
	Position   *string    `db:"position" json:"position,omitempty"`
	Department *string    `db:"department" json:"department,omitempty"`
	Phone      *string    `db:"phone" json:"phone,omitempty"`
	PhotoPath  *string    `db:"photo_path" json:"photo_path,omitempty"`
	OfficeID   *string    `db:"office_id" json:"office_id,omitempty"`
	JoinedAt   *time.Time `db:"joined_at" json:"joined_at,omitempty"`
}

// Office is the work location an employee checks in at.
type Office struct {
	ID        string   `db:"id" json:"id"`
	Name      string   `db:"name" json:"name"`
	Address   *string  `db:"address" json:"address,omitempty"`
	Latitude  *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64 `db:"longitude" json:"longitude,omitempty"`
	RadiusM   *int     `db:"radius_m" json:"radius_m,omitempty"`
	StartTime *string  `db:"start_time" json:"start_time,omitempty"`
	EndTime   *string  `db:"end_time" json:"end_time,omitempty"`
}

// FaceModel references the enrolled face template of an employee. The template itself lives in file storage.
type FaceModel struct {
	EmployeeID string    `db:"employee_id" json:"employee_id"`
	ModelPath  string    `db:"model_path" json:"model_path"`
	Version    int       `db:"version" json:"version"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord is one day of check-in/check-out.
type AttendanceRecord struct {
	ID         string           `db:"id" json:"id"`
	EmployeeID string           `db:"employee_id" json:"employee_id"`
	Date       time.Time        `db:"date" json:"date"`
	CheckIn    *time.Time       `db:"check_in" json:"check_in,omitempty"`
	CheckOut   *time.Time       `db:"check_out" json:"check_out,omitempty"`
	Status     AttendanceStatus `db:"status" json:"status"`
	Notes      *string          `db:"notes" json:"notes,omitempty"`
}

// PerformanceRecord is a monthly performance log entry.
type PerformanceRecord struct {
	ID         string    `db:"id" json:"id"`
	EmployeeID string    `db:"employee_id" json:"employee_id"`
	Period     time.Time `db:"period" json:"period"`
	Score      float64   `db:"score" json:"score"`
	Grade      *string   `db:"grade" json:"grade,omitempty"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
}

// News is a published company announcement.
type News struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Content     string     `db:"content" json:"content"`
	IsPinned    bool       `db:"is_pinned" json:"is_pinned"`
	PublishedAt time.Time  `db:"published_at" json:"published_at"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}
