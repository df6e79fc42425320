package dashboard

import (
	"context"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/attendance"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/cell"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/member"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/qrtoken"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/session"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	topAttendeeWindow = 30 // days
	topAttendeeLimit  = 5
	recentSessions    = 5
	attendanceDays    = 7
	defaultTrendDays  = 30
	maxTrendDays      = 365
)

type Service interface {
	Summary(ctx context.Context) (*Summary, error)
	Analytics(ctx context.Context, req *AnalyticsRequest) (*Analytics, error)
	MemberDashboard(ctx context.Context, memberID string) (*MemberDashboard, error)
}

type service struct {
	memberRepository     member.Repository
	cellRepository       cell.Repository
	sessionRepository    session.Repository
	attendanceRepository attendance.Repository
	tokenRepository      qrtoken.Repository
	attendanceSource     member.AttendanceSource
}

func NewDashboardService(
	memberRepository member.Repository,
	cellRepository cell.Repository,
	sessionRepository session.Repository,
	attendanceRepository attendance.Repository,
	tokenRepository qrtoken.Repository,
	attendanceSource member.AttendanceSource,
) Service {
	return &service{
		memberRepository:     memberRepository,
		cellRepository:       cellRepository,
		sessionRepository:    sessionRepository,
		attendanceRepository: attendanceRepository,
		tokenRepository:      tokenRepository,
		attendanceSource:     attendanceSource,
	}
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	now := time.Now()

	totalMembers, err := s.memberRepository.Count(ctx)
	if err != nil {
		return nil, err
	}
	activeMembers, err := s.memberRepository.CountByStatus(ctx, member.StatusActive)
	if err != nil {
		return nil, err
	}

	totalSessions, err := s.sessionRepository.Count(ctx)
	if err != nil {
		return nil, err
	}
	activeSessions, err := s.sessionRepository.CountByStatus(ctx, session.StatusActive)
	if err != nil {
		return nil, err
	}

	since30 := now.AddDate(0, 0, -30)
	totalAttendance, err := s.attendanceRepository.CountSince(ctx, since30)
	if err != nil {
		return nil, err
	}

	sessionsHeld30, err := s.sessionRepository.CountActiveSince(ctx, since30)
	if err != nil {
		return nil, err
	}

	// Average rate over the last 30 days: recorded check-ins divided by
	// the attendance opportunities (sessions held x active members).
	averageRate := 0.0
	if sessionsHeld30 > 0 && activeMembers > 0 {
		averageRate = float64(totalAttendance) / float64(sessionsHeld30*activeMembers) * 100
		if averageRate > 100 {
			averageRate = 100
		}
	}

	joined30, err := s.memberRepository.CountJoinedSince(ctx, since30)
	if err != nil {
		return nil, err
	}
	growthRate := 0.0
	if totalMembers > joined30 {
		growthRate = float64(joined30) / float64(totalMembers-joined30) * 100
	} else if joined30 > 0 {
		growthRate = 100
	}

	topAttendees, err := s.topAttendees(ctx, now)
	if err != nil {
		return nil, err
	}

	sessionsByType, err := s.sessionRepository.CountByType(ctx)
	if err != nil {
		return nil, err
	}

	attendanceByDay, err := s.attendanceRepository.CountByDay(ctx, attendanceDays)
	if err != nil {
		return nil, err
	}

	membersByStatus, err := s.membersByStatus(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.sessionRepository.Recent(ctx, recentSessions)
	if err != nil {
		return nil, err
	}

	qrStats, err := s.tokenRepository.Stats(ctx, nil, now)
	if err != nil {
		return nil, err
	}

	return &Summary{
		TotalMembers:          totalMembers,
		ActiveMembers:         activeMembers,
		TotalSessions:         totalSessions,
		ActiveSessions:        activeSessions,
		TotalAttendance:       totalAttendance,
		AverageAttendanceRate: averageRate,
		MemberGrowthRate:      growthRate,
		TopAttendees:          topAttendees,
		SessionsByType:        sessionsByType,
		AttendanceByDay:       attendanceByDay,
		MembersByStatus:       membersByStatus,
		RecentSessions:        recent,
		QRStats:               qrStats,
		GeneratedAt:           now,
	}, nil
}

func (s *service) topAttendees(ctx context.Context, now time.Time) ([]*TopAttendee, error) {
	counts, err := s.attendanceRepository.TopAttendees(ctx, now.AddDate(0, 0, -topAttendeeWindow), topAttendeeLimit)
	if err != nil {
		return nil, err
	}

	attendees := make([]*TopAttendee, 0, len(counts))
	for _, row := range counts {
		attendee := &TopAttendee{
			MemberID: row.MemberID.Hex(),
			Count:    row.Count,
		}
		if m, err := s.memberRepository.GetByID(ctx, row.MemberID); err == nil {
			attendee.MembershipID = m.MembershipID
			attendee.Name = m.FullName()
		} else {
			logrus.WithField("member_id", row.MemberID.Hex()).Warn("Top attendee member not found")
		}
		attendees = append(attendees, attendee)
	}

	return attendees, nil
}

func (s *service) membersByStatus(ctx context.Context) (map[string]int64, error) {
	statuses := []string{member.StatusActive, member.StatusInactive, member.StatusPending, member.StatusSuspended}
	counts := make(map[string]int64, len(statuses))
	for _, status := range statuses {
		count, err := s.memberRepository.CountByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, nil
}

func (s *service) Analytics(ctx context.Context, req *AnalyticsRequest) (*Analytics, error) {
	period := req.Period
	if period == "" {
		period = PeriodDay
	}

	var format string
	switch period {
	case PeriodDay:
		format = "%Y-%m-%d"
	case PeriodWeek:
		format = "%Y-%U"
	case PeriodMonth:
		format = "%Y-%m"
	default:
		return nil, models.ErrInvalidParams
	}

	days := req.Days
	if days <= 0 {
		days = defaultTrendDays
	}
	if days > maxTrendDays {
		days = maxTrendDays
	}

	since := time.Now().AddDate(0, 0, -days)

	attendanceTrend, err := s.attendanceRepository.CountGrouped(ctx, since, format)
	if err != nil {
		return nil, err
	}

	membershipTrend, err := s.memberRepository.CountJoinedGrouped(ctx, since, format)
	if err != nil {
		return nil, err
	}

	sessionsByType, err := s.sessionRepository.CountByType(ctx)
	if err != nil {
		return nil, err
	}

	attendanceByCell, err := s.attendanceByCell(ctx, since)
	if err != nil {
		return nil, err
	}

	gender, err := s.memberRepository.CountByGender(ctx)
	if err != nil {
		return nil, err
	}
	ageGroups, err := s.memberRepository.CountByAgeGroup(ctx)
	if err != nil {
		return nil, err
	}

	return &Analytics{
		Period:           period,
		Days:             days,
		AttendanceTrend:  attendanceTrend,
		MembershipTrend:  membershipTrend,
		SessionsByType:   sessionsByType,
		AttendanceByCell: attendanceByCell,
		Demographics: &Demographics{
			Gender:    gender,
			AgeGroups: ageGroups,
		},
		GeneratedAt: time.Now(),
	}, nil
}

// attendanceByCell resolves the per-cell grouping to cell names.
// Check-ins by members outside any cell land under UNASSIGNED.
func (s *service) attendanceByCell(ctx context.Context, since time.Time) (map[string]int64, error) {
	rows, err := s.attendanceRepository.CountByCellSince(ctx, since)
	if err != nil {
		return nil, err
	}

	cells, err := s.cellRepository.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[primitive.ObjectID]string, len(cells))
	for _, c := range cells {
		names[c.ID] = c.Name
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		name := "UNASSIGNED"
		if row.CellID != nil {
			if n, ok := names[*row.CellID]; ok {
				name = n
			} else {
				name = row.CellID.Hex()
			}
		}
		counts[name] += row.Count
	}
	return counts, nil
}

func (s *service) MemberDashboard(ctx context.Context, memberID string) (*MemberDashboard, error) {
	objectID, err := primitive.ObjectIDFromHex(memberID)
	if err != nil {
		return nil, models.ErrMemberNotFound
	}

	m, err := s.memberRepository.GetByID(ctx, objectID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	attendedStatuses := []string{attendance.StatusPresent, attendance.StatusLate}

	attended30, sessions30, rate30, err := s.memberRate(ctx, objectID, now.AddDate(0, 0, -30), attendedStatuses)
	if err != nil {
		return nil, err
	}
	attended90, sessions90, rate90, err := s.memberRate(ctx, objectID, now.AddDate(0, 0, -90), attendedStatuses)
	if err != nil {
		return nil, err
	}

	recent, err := s.attendanceSource.RecentForMember(ctx, objectID, 10)
	if err != nil {
		logrus.WithError(err).Warn("Failed to load recent attendance for member dashboard")
	}

	return &MemberDashboard{
		Member:           m,
		Rate30Days:       rate30,
		Rate90Days:       rate90,
		Attended30Days:   attended30,
		Attended90Days:   attended90,
		Sessions30Days:   sessions30,
		Sessions90Days:   sessions90,
		RecentAttendance: recent,
	}, nil
}

func (s *service) memberRate(ctx context.Context, memberID primitive.ObjectID, since time.Time, statuses []string) (int64, int64, float64, error) {
	attended, err := s.attendanceRepository.CountForMemberSince(ctx, memberID, since, statuses)
	if err != nil {
		return 0, 0, 0, err
	}
	held, err := s.sessionRepository.CountActiveSince(ctx, since)
	if err != nil {
		return 0, 0, 0, err
	}

	rate := 0.0
	if held > 0 {
		rate = float64(attended) / float64(held) * 100
		if rate > 100 {
			rate = 100
		}
	}
	return attended, held, rate, nil
}
