package dashboard

import (
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/member"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/qrtoken"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/session"
)

// Summary is the headline dashboard payload. It is recomputed per
// request and cached in Redis with a short TTL.
type Summary struct {
	TotalMembers          int64              `json:"totalMembers"`
	ActiveMembers         int64              `json:"activeMembers"`
	TotalSessions         int64              `json:"totalSessions"`
	ActiveSessions        int64              `json:"activeSessions"`
	TotalAttendance       int64              `json:"totalAttendance"`
	AverageAttendanceRate float64            `json:"averageAttendanceRate"`
	MemberGrowthRate      float64            `json:"memberGrowthRate"`
	TopAttendees          []*TopAttendee     `json:"topAttendees"`
	SessionsByType        map[string]int64   `json:"sessionsByType"`
	AttendanceByDay       map[string]int64   `json:"attendanceByDay"`
	MembersByStatus       map[string]int64   `json:"membersByStatus"`
	RecentSessions        []*session.Session `json:"recentSessions"`
	QRStats               *qrtoken.Stats     `json:"qrStats"`
	GeneratedAt           time.Time          `json:"generatedAt"`
}

type TopAttendee struct {
	MemberID     string `json:"memberId"`
	MembershipID string `json:"membershipId"`
	Name         string `json:"name"`
	Count        int64  `json:"attendanceCount"`
}

// Analytics period constants
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

type AnalyticsRequest struct {
	Period string `form:"period"`
	Days   int    `form:"days"`
}

type Analytics struct {
	Period           string           `json:"period"`
	Days             int              `json:"days"`
	AttendanceTrend  map[string]int64 `json:"attendanceTrend"`
	MembershipTrend  map[string]int64 `json:"membershipTrend"`
	SessionsByType   map[string]int64 `json:"sessionsByType"`
	AttendanceByCell map[string]int64 `json:"attendanceByCell"`
	Demographics     *Demographics    `json:"demographics"`
	GeneratedAt      time.Time        `json:"generatedAt"`
}

type Demographics struct {
	Gender    map[string]int64 `json:"gender"`
	AgeGroups map[string]int64 `json:"ageGroups"`
}

// MemberDashboard is the per-member attendance view: participation
// rates over the trailing 30 and 90 days plus recent records.
type MemberDashboard struct {
	Member           *member.Member              `json:"member"`
	Rate30Days       float64                     `json:"attendanceRate30Days"`
	Rate90Days       float64                     `json:"attendanceRate90Days"`
	Attended30Days   int64                       `json:"attended30Days"`
	Attended90Days   int64                       `json:"attended90Days"`
	Sessions30Days   int64                       `json:"sessionsHeld30Days"`
	Sessions90Days   int64                       `json:"sessionsHeld90Days"`
	RecentAttendance []*member.AttendanceSummary `json:"recentAttendance"`
}
