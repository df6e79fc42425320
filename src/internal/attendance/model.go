package attendance

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Record is one check-in event. At most one record exists per
// (member, session) pair; the unique index enforces it.
type Record struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	MemberID      primitive.ObjectID `json:"memberId" bson:"member_id"`
	SessionID     primitive.ObjectID `json:"sessionId" bson:"session_id"`
	Status        string             `json:"status" bson:"status"`
	CheckedInAt   *time.Time         `json:"checkedInAt,omitempty" bson:"checked_in_at,omitempty"`
	Notes         string             `json:"notes,omitempty" bson:"notes,omitempty"`
	IsManualEntry bool               `json:"isManualEntry" bson:"is_manual_entry"`
	Latitude      *float64           `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude     *float64           `json:"longitude,omitempty" bson:"longitude,omitempty"`
	RecordedBy    primitive.ObjectID `json:"recordedBy,omitempty" bson:"recorded_by,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updated_at"`
}

// Attendance status constants
const (
	StatusPresent = "PRESENT"
	StatusLate    = "LATE"
	StatusAbsent  = "ABSENT"
	StatusExcused = "EXCUSED"
)

func IsValidStatus(status string) bool {
	switch status {
	case StatusPresent, StatusLate, StatusAbsent, StatusExcused:
		return true
	}
	return false
}

type ScanRequest struct {
	Token     string   `json:"token" binding:"required"`
	SessionID string   `json:"sessionId" binding:"required"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type ManualRequest struct {
	MemberID  string `json:"memberId" binding:"required"`
	SessionID string `json:"sessionId" binding:"required"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
}

type UpdateRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

type ListFilter struct {
	SessionID string `form:"sessionId"`
	MemberID  string `form:"memberId"`
	Status    string `form:"status"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

// MemberBrief and SessionBrief shape the joined details returned with a
// record.
type MemberBrief struct {
	ID           string  `json:"id"`
	MembershipID string  `json:"membershipId"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Email        *string `json:"email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
}

type SessionBrief struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SessionType string    `json:"sessionType"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

type RecordDetail struct {
	Record  *Record       `json:"record"`
	Member  *MemberBrief  `json:"member,omitempty"`
	Session *SessionBrief `json:"session,omitempty"`
}

type ListResponse struct {
	Records      []*RecordDetail `json:"attendance"`
	TotalRecords int64           `json:"totalRecords"`
	Page         int             `json:"page"`
	Limit        int             `json:"limit"`
	TotalPages   int             `json:"totalPages"`
}

// SessionStats summarizes one session's attendance.
type SessionStats struct {
	TotalAttendance int64   `json:"totalAttendance"`
	TotalPresent    int64   `json:"totalPresent"`
	TotalAbsent     int64   `json:"totalAbsent"`
	TotalLate       int64   `json:"totalLate"`
	AttendanceRate  float64 `json:"attendanceRate"`
}
