package export

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/attendance"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/cell"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/member"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/session"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// exportMemberLimit bounds the one-shot member/session fetches behind
// an export; real congregations are far below it.
const exportMemberLimit = 100000

type Service interface {
	ExportAttendance(ctx context.Context, req *Request) (*File, error)
	ExportMembers(ctx context.Context, req *Request) (*File, error)
	ExportSessions(ctx context.Context, req *Request) (*File, error)
	ExportReport(ctx context.Context, req *Request) (*File, error)
}

type service struct {
	attendanceRepository attendance.Repository
	memberRepository     member.Repository
	sessionRepository    session.Repository
	cellRepository       cell.Repository
}

func NewExportService(
	attendanceRepository attendance.Repository,
	memberRepository member.Repository,
	sessionRepository session.Repository,
	cellRepository cell.Repository,
) Service {
	return &service{
		attendanceRepository: attendanceRepository,
		memberRepository:     memberRepository,
		sessionRepository:    sessionRepository,
		cellRepository:       cellRepository,
	}
}

func (s *service) ExportAttendance(ctx context.Context, req *Request) (*File, error) {
	format, err := normalizeFormat(req.Format)
	if err != nil {
		return nil, err
	}

	records, err := s.attendanceRepository.FindAll(ctx, &attendance.ListFilter{
		SessionID: req.SessionID,
		Status:    req.Status,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		return nil, err
	}

	cellNames, err := s.cellNames(ctx)
	if err != nil {
		return nil, err
	}

	members := make(map[primitive.ObjectID]*member.Member)
	sessions := make(map[primitive.ObjectID]*session.Session)

	ds := &dataset{
		title: "attendance-export",
		headers: []string{
			"Member ID", "Member Name", "Email", "Phone", "Cell Group",
			"Session Name", "Session Type", "Session Start", "Session End",
			"Attendance Status", "Check-in Time", "Notes", "Manual Entry",
			"Recorded By", "Latitude", "Longitude", "Created At",
		},
	}

	for _, record := range records {
		m := s.cachedMember(ctx, members, record.MemberID)
		sess := s.cachedSession(ctx, sessions, record.SessionID)

		row := make([]string, 0, len(ds.headers))
		if m != nil {
			row = append(row, m.MembershipID, m.FullName(), stringOrEmpty(m.Email), stringOrEmpty(m.Phone), cellName(cellNames, m.CellID))
		} else {
			row = append(row, record.MemberID.Hex(), "", "", "", "")
		}
		if sess != nil {
			row = append(row, sess.Name, sess.SessionType,
				sess.StartTime.Format(time.RFC3339), sess.EndTime.Format(time.RFC3339))
		} else {
			row = append(row, record.SessionID.Hex(), "", "", "")
		}
		row = append(row,
			record.Status,
			timeOrEmpty(record.CheckedInAt),
			record.Notes,
			strconv.FormatBool(record.IsManualEntry),
			objectIDOrEmpty(record.RecordedBy),
			floatOrEmpty(record.Latitude),
			floatOrEmpty(record.Longitude),
			record.CreatedAt.Format(time.RFC3339),
		)

		ds.rows = append(ds.rows, row)
	}

	logrus.WithFields(logrus.Fields{
		"format": format,
		"rows":   len(ds.rows),
	}).Info("Attendance export generated")

	return render(ds, format)
}

func (s *service) ExportMembers(ctx context.Context, req *Request) (*File, error) {
	format, err := normalizeFormat(req.Format)
	if err != nil {
		return nil, err
	}

	members, _, err := s.memberRepository.List(ctx, &member.ListFilter{
		Status: req.Status,
		Page:   1,
		Limit:  exportMemberLimit,
	})
	if err != nil {
		return nil, err
	}

	cellNames, err := s.cellNames(ctx)
	if err != nil {
		return nil, err
	}

	ds := &dataset{
		title: "members-export",
		headers: []string{
			"Member ID", "First Name", "Last Name", "Email", "Phone",
			"Gender", "Date of Birth", "Address", "City", "State",
			"Membership Status", "Cell Group", "Join Date",
		},
	}

	for _, m := range members {
		ds.rows = append(ds.rows, []string{
			m.MembershipID, m.FirstName, m.LastName,
			stringOrEmpty(m.Email), stringOrEmpty(m.Phone),
			m.Gender, dateOrEmpty(m.DateOfBirth),
			m.Address, m.City, m.State,
			m.MembershipStatus, cellName(cellNames, m.CellID),
			m.JoinDate.Format("2006-01-02"),
		})
	}

	logrus.WithFields(logrus.Fields{
		"format": format,
		"rows":   len(ds.rows),
	}).Info("Members export generated")

	return render(ds, format)
}

func (s *service) ExportSessions(ctx context.Context, req *Request) (*File, error) {
	format, err := normalizeFormat(req.Format)
	if err != nil {
		return nil, err
	}

	sessions, _, err := s.sessionRepository.List(ctx, &session.ListFilter{
		Status:    req.Status,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Page:      1,
		Limit:     exportMemberLimit,
	})
	if err != nil {
		return nil, err
	}

	ds := &dataset{
		title: "sessions-export",
		headers: []string{
			"Session Name", "Session Type", "Description", "Location",
			"Start Time", "End Time", "Max Capacity", "Status",
			"Total Attendance", "Created At",
		},
	}

	for _, sess := range sessions {
		count, err := s.attendanceRepository.CountForSession(ctx, sess.ID)
		if err != nil {
			return nil, err
		}

		ds.rows = append(ds.rows, []string{
			sess.Name, sess.SessionType, sess.Description, sess.Location,
			sess.StartTime.Format(time.RFC3339), sess.EndTime.Format(time.RFC3339),
			strconv.Itoa(sess.MaxCapacity), sess.Status,
			strconv.FormatInt(count, 10),
			sess.CreatedAt.Format(time.RFC3339),
		})
	}

	logrus.WithFields(logrus.Fields{
		"format": format,
		"rows":   len(ds.rows),
	}).Info("Sessions export generated")

	return render(ds, format)
}

// ExportReport summarizes attendance per session over the requested
// window: counts per status and the participation rate.
func (s *service) ExportReport(ctx context.Context, req *Request) (*File, error) {
	format, err := normalizeFormat(req.Format)
	if err != nil {
		return nil, err
	}

	sessions, _, err := s.sessionRepository.List(ctx, &session.ListFilter{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Page:      1,
		Limit:     exportMemberLimit,
	})
	if err != nil {
		return nil, err
	}

	ds := &dataset{
		title: "attendance-report",
		headers: []string{
			"Session Name", "Session Type", "Session Date", "Status",
			"Total", "Present", "Late", "Absent", "Excused", "Attendance Rate",
		},
	}

	for _, sess := range sessions {
		records, err := s.attendanceRepository.BySession(ctx, sess.ID)
		if err != nil {
			return nil, err
		}

		var present, late, absent, excused int64
		for _, record := range records {
			switch record.Status {
			case attendance.StatusPresent:
				present++
			case attendance.StatusLate:
				late++
			case attendance.StatusAbsent:
				absent++
			case attendance.StatusExcused:
				excused++
			}
		}

		total := int64(len(records))
		rate := 0.0
		if total > 0 {
			rate = float64(present+late) / float64(total) * 100
		}

		ds.rows = append(ds.rows, []string{
			sess.Name, sess.SessionType,
			sess.StartTime.Format("2006-01-02"), sess.Status,
			strconv.FormatInt(total, 10),
			strconv.FormatInt(present, 10),
			strconv.FormatInt(late, 10),
			strconv.FormatInt(absent, 10),
			strconv.FormatInt(excused, 10),
			fmt.Sprintf("%.1f%%", rate),
		})
	}

	logrus.WithFields(logrus.Fields{
		"format": format,
		"rows":   len(ds.rows),
	}).Info("Attendance report generated")

	return render(ds, format)
}

func normalizeFormat(format string) (string, error) {
	switch format {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatExcel, FormatPDF, FormatJSON:
		return format, nil
	}
	return "", models.ErrInvalidParams
}

func (s *service) cellNames(ctx context.Context) (map[primitive.ObjectID]string, error) {
	cells, err := s.cellRepository.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[primitive.ObjectID]string, len(cells))
	for _, c := range cells {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (s *service) cachedMember(ctx context.Context, cache map[primitive.ObjectID]*member.Member, id primitive.ObjectID) *member.Member {
	if m, ok := cache[id]; ok {
		return m
	}
	m, err := s.memberRepository.GetByID(ctx, id)
	if err != nil {
		cache[id] = nil
		return nil
	}
	cache[id] = m
	return m
}

func (s *service) cachedSession(ctx context.Context, cache map[primitive.ObjectID]*session.Session, id primitive.ObjectID) *session.Session {
	if sess, ok := cache[id]; ok {
		return sess
	}
	sess, err := s.sessionRepository.GetByID(ctx, id)
	if err != nil {
		cache[id] = nil
		return nil
	}
	cache[id] = sess
	return sess
}

func cellName(names map[primitive.ObjectID]string, id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return names[*id]
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func dateOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func objectIDOrEmpty(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}
