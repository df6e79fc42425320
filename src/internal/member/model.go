package member

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Member struct {
	ID               primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	MembershipID     string              `json:"membershipId" bson:"membership_id"`
	FirstName        string              `json:"firstName" bson:"first_name"`
	LastName         string              `json:"lastName" bson:"last_name"`
	Email            *string             `json:"email,omitempty" bson:"email,omitempty"`
	Phone            *string             `json:"phone,omitempty" bson:"phone,omitempty"`
	DateOfBirth      *time.Time          `json:"dateOfBirth,omitempty" bson:"date_of_birth,omitempty"`
	Gender           string              `json:"gender,omitempty" bson:"gender,omitempty"`
	Address          string              `json:"address,omitempty" bson:"address,omitempty"`
	City             string              `json:"city,omitempty" bson:"city,omitempty"`
	State            string              `json:"state,omitempty" bson:"state,omitempty"`
	ZipCode          string              `json:"zipCode,omitempty" bson:"zip_code,omitempty"`
	MembershipStatus string              `json:"membershipStatus" bson:"membership_status"`
	JoinDate         time.Time           `json:"joinDate" bson:"join_date"`
	CellID           *primitive.ObjectID `json:"cellId,omitempty" bson:"cell_id,omitempty"`
	CreatedBy        primitive.ObjectID  `json:"createdBy,omitempty" bson:"created_by,omitempty"`
	CreatedAt        time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time           `json:"updatedAt" bson:"updated_at"`
}

// Membership status constants
const (
	StatusActive    = "ACTIVE"
	StatusInactive  = "INACTIVE"
	StatusPending   = "PENDING"
	StatusSuspended = "SUSPENDED"
)

// IsActive reports whether the member may check in to sessions.
func (m *Member) IsActive() bool {
	return m.MembershipStatus == StatusActive
}

// FullName returns the member's display name.
func (m *Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

// ListFilter is the typed filter for member listing. Each field is an
// explicit variant; an empty value means the field is not filtered on.
type ListFilter struct {
	Search    string `form:"search"`
	Status    string `form:"status"`
	CellID    string `form:"cellId"`
	Gender    string `form:"gender"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

type CreateRequest struct {
	FirstName        string  `json:"firstName" binding:"required"`
	LastName         string  `json:"lastName" binding:"required"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	DateOfBirth      *string `json:"dateOfBirth"`
	Gender           string  `json:"gender"`
	Address          string  `json:"address"`
	City             string  `json:"city"`
	State            string  `json:"state"`
	ZipCode          string  `json:"zipCode"`
	CellID           string  `json:"cellId"`
	MembershipStatus string  `json:"membershipStatus"`
	JoinDate         *string `json:"joinDate"`
}

type UpdateRequest struct {
	FirstName        string  `json:"firstName"`
	LastName         string  `json:"lastName"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	DateOfBirth      *string `json:"dateOfBirth"`
	Gender           string  `json:"gender"`
	Address          string  `json:"address"`
	City             string  `json:"city"`
	State            string  `json:"state"`
	ZipCode          string  `json:"zipCode"`
	CellID           *string `json:"cellId"`
	MembershipStatus string  `json:"membershipStatus"`
}

type ListResponse struct {
	Members      []*Member `json:"members"`
	TotalMembers int64     `json:"totalMembers"`
	Page         int       `json:"page"`
	Limit        int       `json:"limit"`
	TotalPages   int       `json:"totalPages"`
}

// AttendanceSummary is the slice of a member's attendance history shown
// on the member detail view. The attendance package provides the data
// through the AttendanceSource interface so this package stays free of
// a dependency on it.
type AttendanceSummary struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	CheckedInAt *time.Time `json:"checkedInAt,omitempty"`
	SessionName string     `json:"sessionName"`
	SessionType string     `json:"sessionType"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type AttendanceSource interface {
	RecentForMember(ctx context.Context, memberID primitive.ObjectID, limit int) ([]*AttendanceSummary, error)
}
