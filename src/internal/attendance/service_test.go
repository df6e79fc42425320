package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/member"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/qrtoken"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeMemberRepo struct {
	member.Repository
	members map[primitive.ObjectID]*member.Member
}

func (f *fakeMemberRepo) GetByID(_ context.Context, id primitive.ObjectID) (*member.Member, error) {
	if m, ok := f.members[id]; ok {
		return m, nil
	}
	return nil, models.ErrMemberNotFound
}

type fakeSessionRepo struct {
	session.Repository
	sessions map[primitive.ObjectID]*session.Session
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*session.Session, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, models.ErrSessionNotFound
}

type fakeTokenRepo struct {
	qrtoken.Repository
	tokens   map[string]*qrtoken.Token
	released []primitive.ObjectID
}

func (f *fakeTokenRepo) GetByToken(_ context.Context, value string) (*qrtoken.Token, error) {
	if t, ok := f.tokens[value]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, models.ErrQRTokenNotFound
}

func (f *fakeTokenRepo) Consume(_ context.Context, value string, now time.Time) (*qrtoken.Token, error) {
	t, ok := f.tokens[value]
	if !ok || t.UsedAt != nil {
		return nil, models.ErrQRTokenUsed
	}
	t.UsedAt = &now
	copied := *t
	return &copied, nil
}

func (f *fakeTokenRepo) Release(_ context.Context, id primitive.ObjectID) error {
	f.released = append(f.released, id)
	for _, t := range f.tokens {
		if t.ID == id {
			t.UsedAt = nil
		}
	}
	return nil
}

type fakeAttendanceRepo struct {
	Repository
	records    map[primitive.ObjectID]*Record
	failInsert bool
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{records: make(map[primitive.ObjectID]*Record)}
}

func (f *fakeAttendanceRepo) Create(_ context.Context, record *Record) (*Record, error) {
	if f.failInsert {
		return nil, models.ErrDatabaseInsert
	}
	for _, existing := range f.records {
		if existing.MemberID == record.MemberID && existing.SessionID == record.SessionID {
			return nil, models.ErrAttendanceDuplicate
		}
	}
	record.ID = primitive.NewObjectID()
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	f.records[record.ID] = record
	return record, nil
}

func (f *fakeAttendanceRepo) GetByID(_ context.Context, id primitive.ObjectID) (*Record, error) {
	if r, ok := f.records[id]; ok {
		return r, nil
	}
	return nil, models.ErrAttendanceNotFound
}

func (f *fakeAttendanceRepo) ExistsForMemberSession(_ context.Context, memberID, sessionID primitive.ObjectID) (bool, error) {
	for _, r := range f.records {
		if r.MemberID == memberID && r.SessionID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAttendanceRepo) Update(_ context.Context, id primitive.ObjectID, update bson.M) (*Record, error) {
	r, ok := f.records[id]
	if !ok {
		return nil, models.ErrAttendanceNotFound
	}
	if status, ok := update["status"].(string); ok {
		r.Status = status
	}
	if notes, ok := update["notes"].(string); ok {
		r.Notes = notes
	}
	if checkedIn, ok := update["checked_in_at"].(time.Time); ok {
		r.CheckedInAt = &checkedIn
	}
	return r, nil
}

type fixture struct {
	service    Service
	members    *fakeMemberRepo
	sessions   *fakeSessionRepo
	tokens     *fakeTokenRepo
	attendance *fakeAttendanceRepo

	member  *member.Member
	session *session.Session
	token   *qrtoken.Token
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	m := &member.Member{
		ID:               primitive.NewObjectID(),
		MembershipID:     "NECF20260001",
		FirstName:        "Tendai",
		LastName:         "Moyo",
		MembershipStatus: member.StatusActive,
	}

	now := time.Now()
	sess := &session.Session{
		ID:          primitive.NewObjectID(),
		Name:        "Sunday Service",
		SessionType: session.TypeSundayService,
		StartTime:   now.Add(-time.Hour),
		EndTime:     now.Add(time.Hour),
		Status:      session.StatusActive,
	}

	token := &qrtoken.Token{
		ID:        primitive.NewObjectID(),
		Token:     "abc123",
		MemberID:  m.ID,
		Purpose:   qrtoken.PurposeCheckIn,
		ExpiresAt: now.Add(24 * time.Hour),
	}

	f := &fixture{
		members:    &fakeMemberRepo{members: map[primitive.ObjectID]*member.Member{m.ID: m}},
		sessions:   &fakeSessionRepo{sessions: map[primitive.ObjectID]*session.Session{sess.ID: sess}},
		tokens:     &fakeTokenRepo{tokens: map[string]*qrtoken.Token{token.Token: token}},
		attendance: newFakeAttendanceRepo(),
		member:     m,
		session:    sess,
		token:      token,
	}

	cfg := &config.Configuration{}
	cfg.Search.MinQueryLimit = 20
	cfg.Search.MaxQueryLimit = 100

	f.service = NewAttendanceService(f.attendance, f.members, f.sessions, f.tokens, cfg)
	return f
}

func (f *fixture) scan(t *testing.T) (*RecordDetail, error) {
	t.Helper()
	return f.service.Scan(context.Background(), &ScanRequest{
		Token:     f.token.Token,
		SessionID: f.session.ID.Hex(),
	}, primitive.NewObjectID().Hex())
}

func TestScanHappyPath(t *testing.T) {
	f := newFixture(t)

	detail, err := f.scan(t)
	require.NoError(t, err)

	assert.Equal(t, StatusPresent, detail.Record.Status)
	assert.NotNil(t, detail.Record.CheckedInAt)
	assert.False(t, detail.Record.IsManualEntry)
	assert.Equal(t, f.member.MembershipID, detail.Member.MembershipID)
	assert.Equal(t, f.session.Name, detail.Session.Name)

	assert.NotNil(t, f.tokens.tokens[f.token.Token].UsedAt, "token must be consumed")
	assert.Len(t, f.attendance.records, 1)
}

func TestScanUnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Scan(context.Background(), &ScanRequest{
		Token:     "does-not-exist",
		SessionID: f.session.ID.Hex(),
	}, "")
	assert.ErrorIs(t, err, models.ErrQRTokenNotFound)
}

func TestScanExpiredToken(t *testing.T) {
	f := newFixture(t)
	f.tokens.tokens[f.token.Token].ExpiresAt = time.Now().Add(-time.Minute)

	_, err := f.scan(t)
	assert.ErrorIs(t, err, models.ErrQRTokenExpired)
	assert.Empty(t, f.attendance.records)
}

// An expired token reports expiry even if it was also already used:
// the expiry check runs first.
func TestScanExpiredBeatsUsed(t *testing.T) {
	f := newFixture(t)
	used := time.Now().Add(-time.Hour)
	f.tokens.tokens[f.token.Token].ExpiresAt = time.Now().Add(-time.Minute)
	f.tokens.tokens[f.token.Token].UsedAt = &used

	_, err := f.scan(t)
	assert.ErrorIs(t, err, models.ErrQRTokenExpired)
}

func TestScanUsedToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.scan(t)
	require.NoError(t, err)

	_, err = f.scan(t)
	assert.ErrorIs(t, err, models.ErrQRTokenUsed)
	assert.Len(t, f.attendance.records, 1, "no second record may exist")
}

func TestScanInactiveMember(t *testing.T) {
	f := newFixture(t)
	f.member.MembershipStatus = member.StatusInactive

	_, err := f.scan(t)
	assert.ErrorIs(t, err, models.ErrMemberInactive)
}

func TestScanUnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Scan(context.Background(), &ScanRequest{
		Token:     f.token.Token,
		SessionID: primitive.NewObjectID().Hex(),
	}, "")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestScanClosedSession(t *testing.T) {
	f := newFixture(t)
	f.session.Status = session.StatusClosed

	_, err := f.scan(t)
	assert.ErrorIs(t, err, models.ErrSessionInactive)
}

func TestScanOutsideSessionWindow(t *testing.T) {
	f := newFixture(t)
	f.session.StartTime = time.Now().Add(time.Hour)
	f.session.EndTime = time.Now().Add(2 * time.Hour)

	_, err := f.scan(t)
	assert.ErrorIs(t, err, models.ErrSessionClosed)
	assert.Nil(t, f.tokens.tokens[f.token.Token].UsedAt, "token must not be consumed on rejection")
}

func TestScanAfterManualEntryConflicts(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.RecordManual(context.Background(), &ManualRequest{
		MemberID:  f.member.ID.Hex(),
		SessionID: f.session.ID.Hex(),
		Status:    StatusPresent,
	}, "")
	require.NoError(t, err)

	_, err = f.scan(t)
	assert.ErrorIs(t, err, models.ErrAttendanceDuplicate)
	assert.Nil(t, f.tokens.tokens[f.token.Token].UsedAt, "token survives a duplicate rejection")
	assert.Len(t, f.attendance.records, 1)
}

func TestScanReleasesTokenWhenInsertFails(t *testing.T) {
	f := newFixture(t)
	f.attendance.failInsert = true

	_, err := f.scan(t)
	assert.ErrorIs(t, err, models.ErrDatabaseInsert)

	assert.Len(t, f.tokens.released, 1)
	assert.Nil(t, f.tokens.tokens[f.token.Token].UsedAt, "token must be handed back for retry")
}

func TestManualEntryDefaultsToPresent(t *testing.T) {
	f := newFixture(t)

	detail, err := f.service.RecordManual(context.Background(), &ManualRequest{
		MemberID:  f.member.ID.Hex(),
		SessionID: f.session.ID.Hex(),
	}, "")
	require.NoError(t, err)

	assert.Equal(t, StatusPresent, detail.Record.Status)
	assert.True(t, detail.Record.IsManualEntry)
	assert.NotNil(t, detail.Record.CheckedInAt)
}

func TestManualEntryAbsentHasNoCheckIn(t *testing.T) {
	f := newFixture(t)

	detail, err := f.service.RecordManual(context.Background(), &ManualRequest{
		MemberID:  f.member.ID.Hex(),
		SessionID: f.session.ID.Hex(),
		Status:    StatusAbsent,
	}, "")
	require.NoError(t, err)

	assert.Equal(t, StatusAbsent, detail.Record.Status)
	assert.Nil(t, detail.Record.CheckedInAt)
}

func TestManualEntryInvalidStatus(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.RecordManual(context.Background(), &ManualRequest{
		MemberID:  f.member.ID.Hex(),
		SessionID: f.session.ID.Hex(),
		Status:    "SLEEPING",
	}, "")
	assert.ErrorIs(t, err, models.ErrInvalidParams)
}

func TestManualEntryDuplicate(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.RecordManual(context.Background(), &ManualRequest{
		MemberID:  f.member.ID.Hex(),
		SessionID: f.session.ID.Hex(),
	}, "")
	require.NoError(t, err)

	_, err = f.service.RecordManual(context.Background(), &ManualRequest{
		MemberID:  f.member.ID.Hex(),
		SessionID: f.session.ID.Hex(),
		Status:    StatusLate,
	}, "")
	assert.ErrorIs(t, err, models.ErrAttendanceDuplicate)
}

func TestUpdateToPresentBackfillsCheckIn(t *testing.T) {
	f := newFixture(t)

	detail, err := f.service.RecordManual(context.Background(), &ManualRequest{
		MemberID:  f.member.ID.Hex(),
		SessionID: f.session.ID.Hex(),
		Status:    StatusAbsent,
	}, "")
	require.NoError(t, err)
	require.Nil(t, detail.Record.CheckedInAt)

	updated, err := f.service.Update(context.Background(), detail.Record.ID.Hex(), &UpdateRequest{
		Status: StatusPresent,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPresent, updated.Status)
	assert.NotNil(t, updated.CheckedInAt)
}

func TestComputeSessionStats(t *testing.T) {
	records := []*Record{
		{Status: StatusPresent},
		{Status: StatusPresent},
		{Status: StatusLate},
		{Status: StatusAbsent},
	}

	stats := computeSessionStats(records)

	assert.Equal(t, int64(4), stats.TotalAttendance)
	assert.Equal(t, int64(2), stats.TotalPresent)
	assert.Equal(t, int64(1), stats.TotalLate)
	assert.Equal(t, int64(1), stats.TotalAbsent)
	assert.InDelta(t, 75.0, stats.AttendanceRate, 0.01)
}

func TestComputeSessionStatsEmpty(t *testing.T) {
	stats := computeSessionStats(nil)
	assert.Equal(t, int64(0), stats.TotalAttendance)
	assert.Equal(t, 0.0, stats.AttendanceRate)
}
