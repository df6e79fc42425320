package attendance

import (
	"context"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/member"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/session"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// source adapts this package's repository to member.AttendanceSource so
// the member detail view can show recent check-ins without the member
// package importing attendance.
type source struct {
	attendanceRepository Repository
	sessionRepository    session.Repository
}

func NewMemberAttendanceSource(attendanceRepository Repository, sessionRepository session.Repository) member.AttendanceSource {
	return &source{
		attendanceRepository: attendanceRepository,
		sessionRepository:    sessionRepository,
	}
}

func (s *source) RecentForMember(ctx context.Context, memberID primitive.ObjectID, limit int) ([]*member.AttendanceSummary, error) {
	records, err := s.attendanceRepository.RecentForMember(ctx, memberID, limit)
	if err != nil {
		return nil, err
	}

	sessions := make(map[primitive.ObjectID]*session.Session)

	summaries := make([]*member.AttendanceSummary, 0, len(records))
	for _, record := range records {
		summary := &member.AttendanceSummary{
			ID:          record.ID.Hex(),
			Status:      record.Status,
			CheckedInAt: record.CheckedInAt,
			CreatedAt:   record.CreatedAt,
		}

		sess, ok := sessions[record.SessionID]
		if !ok {
			if loaded, err := s.sessionRepository.GetByID(ctx, record.SessionID); err == nil {
				sessions[record.SessionID] = loaded
				sess = loaded
			}
		}
		if sess != nil {
			summary.SessionName = sess.Name
			summary.SessionType = sess.SessionType
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}
