package dto

import "github.com/noah-isme/hr-attendance-api/internal/models"

// SessionData is the auxiliary payload returned by the "with data" login and refresh variants.
type SessionData struct {
	Profile     *models.EmployeeProfile    `json:"profile"`
	Office      *models.Office             `json:"office"`
	FaceModel   *models.FaceModel          `json:"face_model"`
	Attendance  []models.AttendanceRecord  `json:"attendance"`
	Performance []models.PerformanceRecord `json:"performance"`
	News        []models.News              `json:"news"`
}

// EmptySessionData returns a payload with empty collections so clients never see null lists.
func EmptySessionData() *SessionData {
	return &SessionData{
		Attendance:  []models.AttendanceRecord{},
		Performance: []models.PerformanceRecord{},
		News:        []models.News{},
	}
}

// LoginWithDataResponse extends the login payload with session data.
type LoginWithDataResponse struct {
	models.LoginResponse
	*SessionData
}

// RefreshWithDataResponse extends the refresh payload with the user and session data.
type RefreshWithDataResponse struct {
	models.TokenPair
	User models.UserInfo `json:"user"`
	*SessionData
}
