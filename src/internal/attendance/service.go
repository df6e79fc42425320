package attendance

import (
	"context"
	"math"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/member"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/qrtoken"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/session"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service interface {
	Scan(ctx context.Context, req *ScanRequest, recordedBy string) (*RecordDetail, error)
	RecordManual(ctx context.Context, req *ManualRequest, recordedBy string) (*RecordDetail, error)
	List(ctx context.Context, filter *ListFilter) (*ListResponse, error)
	SessionAttendance(ctx context.Context, sessionID string) (*session.Session, []*RecordDetail, *SessionStats, error)
	Update(ctx context.Context, recordID string, req *UpdateRequest) (*Record, error)
	Delete(ctx context.Context, recordID string) error
}

type service struct {
	attendanceRepository Repository
	memberRepository     member.Repository
	sessionRepository    session.Repository
	tokenRepository      qrtoken.Repository
	cfg                  *config.Configuration
}

func NewAttendanceService(
	attendanceRepository Repository,
	memberRepository member.Repository,
	sessionRepository session.Repository,
	tokenRepository qrtoken.Repository,
	cfg *config.Configuration,
) Service {
	return &service{
		attendanceRepository: attendanceRepository,
		memberRepository:     memberRepository,
		sessionRepository:    sessionRepository,
		tokenRepository:      tokenRepository,
		cfg:                  cfg,
	}
}

// Scan records attendance from a scanned QR token. Checks run in a
// fixed order so the caller always sees the most specific failure:
// token lookup, expiry, prior use, member status, session lookup,
// session status, session time window, then duplicate attendance.
// Only after every check passes is the token consumed; consumption is
// a conditional update, so of two concurrent scans of the same token
// exactly one wins and the other gets ErrQRTokenUsed.
func (s *service) Scan(ctx context.Context, req *ScanRequest, recordedBy string) (*RecordDetail, error) {
	now := time.Now()

	token, err := s.tokenRepository.GetByToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if token.IsExpired(now) {
		return nil, models.ErrQRTokenExpired
	}
	if token.IsUsed() {
		return nil, models.ErrQRTokenUsed
	}

	m, err := s.memberRepository.GetByID(ctx, token.MemberID)
	if err != nil {
		return nil, err
	}
	if !m.IsActive() {
		return nil, models.ErrMemberInactive
	}

	sessionID, err := primitive.ObjectIDFromHex(req.SessionID)
	if err != nil {
		return nil, models.ErrSessionNotFound
	}
	sess, err := s.sessionRepository.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusActive {
		return nil, models.ErrSessionInactive
	}
	if !sess.IsOngoing(now) {
		return nil, models.ErrSessionClosed
	}

	exists, err := s.attendanceRepository.ExistsForMemberSession(ctx, m.ID, sess.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrAttendanceDuplicate
	}

	consumed, err := s.tokenRepository.Consume(ctx, req.Token, now)
	if err != nil {
		return nil, err
	}

	checkedInAt := now
	record := &Record{
		MemberID:    m.ID,
		SessionID:   sess.ID,
		Status:      StatusPresent,
		CheckedInAt: &checkedInAt,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	if recorder, err := primitive.ObjectIDFromHex(recordedBy); err == nil {
		record.RecordedBy = recorder
	}

	created, err := s.attendanceRepository.Create(ctx, record)
	if err != nil {
		// The token was consumed but the record never landed. Hand the
		// token back so the member can retry the scan.
		if releaseErr := s.tokenRepository.Release(ctx, consumed.ID); releaseErr != nil {
			logrus.WithError(releaseErr).WithField("token_id", consumed.ID.Hex()).
				Error("Failed to release QR token after attendance insert failure")
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"member_id":  m.ID.Hex(),
		"session_id": sess.ID.Hex(),
	}).Info("Attendance recorded via QR scan")

	return &RecordDetail{
		Record:  created,
		Member:  memberBrief(m),
		Session: sessionBrief(sess),
	}, nil
}

// RecordManual records attendance entered by a staff member, bypassing
// the QR flow. Manual entries may carry any status; checked_in_at is
// set only when the status is PRESENT.
func (s *service) RecordManual(ctx context.Context, req *ManualRequest, recordedBy string) (*RecordDetail, error) {
	memberID, err := primitive.ObjectIDFromHex(req.MemberID)
	if err != nil {
		return nil, models.ErrMemberNotFound
	}
	m, err := s.memberRepository.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	sessionID, err := primitive.ObjectIDFromHex(req.SessionID)
	if err != nil {
		return nil, models.ErrSessionNotFound
	}
	sess, err := s.sessionRepository.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = StatusPresent
	}
	if !IsValidStatus(status) {
		return nil, models.ErrInvalidParams
	}

	exists, err := s.attendanceRepository.ExistsForMemberSession(ctx, m.ID, sess.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrAttendanceDuplicate
	}

	record := &Record{
		MemberID:      m.ID,
		SessionID:     sess.ID,
		Status:        status,
		Notes:         req.Notes,
		IsManualEntry: true,
	}
	if status == StatusPresent {
		now := time.Now()
		record.CheckedInAt = &now
	}
	if recorder, err := primitive.ObjectIDFromHex(recordedBy); err == nil {
		record.RecordedBy = recorder
	}

	created, err := s.attendanceRepository.Create(ctx, record)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"member_id":  m.ID.Hex(),
		"session_id": sess.ID.Hex(),
		"status":     status,
	}).Info("Manual attendance recorded")

	return &RecordDetail{
		Record:  created,
		Member:  memberBrief(m),
		Session: sessionBrief(sess),
	}, nil
}

func (s *service) List(ctx context.Context, filter *ListFilter) (*ListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = s.cfg.Search.MinQueryLimit
	}
	if filter.Limit > s.cfg.Search.MaxQueryLimit {
		filter.Limit = s.cfg.Search.MaxQueryLimit
	}

	records, totalCount, err := s.attendanceRepository.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	details, err := s.attachDetails(ctx, records)
	if err != nil {
		return nil, err
	}

	return &ListResponse{
		Records:      details,
		TotalRecords: totalCount,
		Page:         filter.Page,
		Limit:        filter.Limit,
		TotalPages:   int(math.Ceil(float64(totalCount) / float64(filter.Limit))),
	}, nil
}

func (s *service) SessionAttendance(ctx context.Context, sessionID string) (*session.Session, []*RecordDetail, *SessionStats, error) {
	objectID, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil, nil, nil, models.ErrSessionNotFound
	}

	sess, err := s.sessionRepository.GetByID(ctx, objectID)
	if err != nil {
		return nil, nil, nil, err
	}

	records, err := s.attendanceRepository.BySession(ctx, objectID)
	if err != nil {
		return nil, nil, nil, err
	}

	details, err := s.attachDetails(ctx, records)
	if err != nil {
		return nil, nil, nil, err
	}

	stats := computeSessionStats(records)
	return sess, details, stats, nil
}

func computeSessionStats(records []*Record) *SessionStats {
	stats := &SessionStats{TotalAttendance: int64(len(records))}
	for _, record := range records {
		switch record.Status {
		case StatusPresent:
			stats.TotalPresent++
		case StatusAbsent:
			stats.TotalAbsent++
		case StatusLate:
			stats.TotalLate++
		}
	}
	if stats.TotalAttendance > 0 {
		stats.AttendanceRate = float64(stats.TotalPresent+stats.TotalLate) / float64(stats.TotalAttendance) * 100
	}
	return stats
}

// Update edits the status or notes of an existing record. Moving a
// record to PRESENT backfills checked_in_at if it was never set.
func (s *service) Update(ctx context.Context, recordID string, req *UpdateRequest) (*Record, error) {
	objectID, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return nil, models.ErrAttendanceNotFound
	}

	existing, err := s.attendanceRepository.GetByID(ctx, objectID)
	if err != nil {
		return nil, err
	}

	update := bson.M{}
	if req.Status != "" {
		if !IsValidStatus(req.Status) {
			return nil, models.ErrInvalidParams
		}
		update["status"] = req.Status
		if req.Status == StatusPresent && existing.CheckedInAt == nil {
			update["checked_in_at"] = time.Now()
		}
	}
	if req.Notes != nil {
		update["notes"] = *req.Notes
	}
	if len(update) == 0 {
		return existing, nil
	}

	return s.attendanceRepository.Update(ctx, objectID, update)
}

func (s *service) Delete(ctx context.Context, recordID string) error {
	objectID, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return models.ErrAttendanceNotFound
	}
	return s.attendanceRepository.Delete(ctx, objectID)
}

// attachDetails joins member and session briefs onto a page of records.
// Lookups are batched per unique ID to keep the join to two queries per
// entity kind at most.
func (s *service) attachDetails(ctx context.Context, records []*Record) ([]*RecordDetail, error) {
	details := make([]*RecordDetail, 0, len(records))

	memberCache := make(map[primitive.ObjectID]*member.Member)
	sessionCache := make(map[primitive.ObjectID]*session.Session)

	for _, record := range records {
		detail := &RecordDetail{Record: record}

		m, ok := memberCache[record.MemberID]
		if !ok {
			loaded, err := s.memberRepository.GetByID(ctx, record.MemberID)
			if err == nil {
				memberCache[record.MemberID] = loaded
				m = loaded
			}
		}
		if m != nil {
			detail.Member = memberBrief(m)
		}

		sess, ok := sessionCache[record.SessionID]
		if !ok {
			loaded, err := s.sessionRepository.GetByID(ctx, record.SessionID)
			if err == nil {
				sessionCache[record.SessionID] = loaded
				sess = loaded
			}
		}
		if sess != nil {
			detail.Session = sessionBrief(sess)
		}

		details = append(details, detail)
	}

	return details, nil
}

func memberBrief(m *member.Member) *MemberBrief {
	return &MemberBrief{
		ID:           m.ID.Hex(),
		MembershipID: m.MembershipID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Email:        m.Email,
		Phone:        m.Phone,
	}
}

func sessionBrief(sess *session.Session) *SessionBrief {
	return &SessionBrief{
		ID:          sess.ID.Hex(),
		Name:        sess.Name,
		SessionType: sess.SessionType,
		StartTime:   sess.StartTime,
		EndTime:     sess.EndTime,
	}
}
