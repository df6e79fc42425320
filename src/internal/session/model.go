package session

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is a scheduled gathering members check in to.
type Session struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	SessionType string             `json:"sessionType" bson:"session_type"`
	StartTime   time.Time          `json:"startTime" bson:"start_time"`
	EndTime     time.Time          `json:"endTime" bson:"end_time"`
	Location    string             `json:"location,omitempty" bson:"location,omitempty"`
	MaxCapacity int                `json:"maxCapacity,omitempty" bson:"max_capacity,omitempty"`
	Status      string             `json:"status" bson:"status"`
	CreatedBy   primitive.ObjectID `json:"createdBy,omitempty" bson:"created_by,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
}

// Session status constants
const (
	StatusActive    = "ACTIVE"
	StatusClosed    = "CLOSED"
	StatusCancelled = "CANCELLED"
)

// Session type constants
const (
	TypeSundayService = "SUNDAY_SERVICE"
	TypePrayerMeeting = "PRAYER_MEETING"
	TypeBibleStudy    = "BIBLE_STUDY"
	TypeCellMeeting   = "CELL_MEETING"
	TypeSpecialEvent  = "SPECIAL_EVENT"
)

// IsOngoing reports whether now falls inside the session's time window.
func (s *Session) IsOngoing(now time.Time) bool {
	return !now.Before(s.StartTime) && !now.After(s.EndTime)
}

type ListFilter struct {
	Search    string `form:"search"`
	Type      string `form:"type"`
	Status    string `form:"status"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}

type CreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	SessionType string `json:"sessionType" binding:"required"`
	StartTime   string `json:"startTime" binding:"required"`
	EndTime     string `json:"endTime" binding:"required"`
	Location    string `json:"location"`
	MaxCapacity int    `json:"maxCapacity"`
}

type UpdateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SessionType string `json:"sessionType"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Location    string `json:"location"`
	MaxCapacity int    `json:"maxCapacity"`
	Status      string `json:"status"`
}

type ListResponse struct {
	Sessions      []*Session `json:"sessions"`
	TotalSessions int64      `json:"totalSessions"`
	Page          int        `json:"page"`
	Limit         int        `json:"limit"`
	TotalPages    int        `json:"totalPages"`
}
