package session

import (
	"context"
	"testing"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeSessionRepo struct {
	Repository
	sessions map[primitive.ObjectID]*Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[primitive.ObjectID]*Session)}
}

func (f *fakeSessionRepo) Create(_ context.Context, session *Session) (*Session, error) {
	session.ID = primitive.NewObjectID()
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*Session, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, models.ErrSessionNotFound
}

func (f *fakeSessionRepo) Update(_ context.Context, id primitive.ObjectID, update bson.M) (*Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	if status, ok := update["status"].(string); ok {
		s.Status = status
	}
	if name, ok := update["name"].(string); ok {
		s.Name = name
	}
	return s, nil
}

func newTestService(repo *fakeSessionRepo) Service {
	cfg := &config.Configuration{}
	cfg.Search.MinQueryLimit = 20
	cfg.Search.MaxQueryLimit = 100
	return NewSessionService(repo, cfg)
}

func validCreateRequest() *CreateRequest {
	now := time.Now()
	return &CreateRequest{
		Name:        "Midweek Bible Study",
		SessionType: TypeBibleStudy,
		StartTime:   now.Format(time.RFC3339),
		EndTime:     now.Add(2 * time.Hour).Format(time.RFC3339),
		Location:    "Main Hall",
	}
}

func TestCreateSession(t *testing.T) {
	svc := newTestService(newFakeSessionRepo())

	created, err := svc.Create(context.Background(), validCreateRequest(), "")
	require.NoError(t, err)

	assert.Equal(t, StatusActive, created.Status, "new sessions start ACTIVE")
	assert.Equal(t, TypeBibleStudy, created.SessionType)
}

func TestCreateRejectsBadTimes(t *testing.T) {
	svc := newTestService(newFakeSessionRepo())

	req := validCreateRequest()
	req.StartTime = "yesterday-ish"
	_, err := svc.Create(context.Background(), req, "")
	assert.ErrorIs(t, err, models.ErrInvalidParams)

	req = validCreateRequest()
	req.EndTime = req.StartTime
	_, err = svc.Create(context.Background(), req, "")
	assert.ErrorIs(t, err, models.ErrInvalidParams, "end must be after start")
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc := newTestService(newFakeSessionRepo())

	req := validCreateRequest()
	req.SessionType = "CAR_WASH"
	_, err := svc.Create(context.Background(), req, "")
	assert.ErrorIs(t, err, models.ErrInvalidParams)
}

func TestCloseSession(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), validCreateRequest(), "")
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
}

func TestIsOngoing(t *testing.T) {
	now := time.Now()
	s := &Session{StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour)}

	assert.True(t, s.IsOngoing(now))
	assert.True(t, s.IsOngoing(s.StartTime), "window is inclusive at the edges")
	assert.True(t, s.IsOngoing(s.EndTime))
	assert.False(t, s.IsOngoing(s.StartTime.Add(-time.Second)))
	assert.False(t, s.IsOngoing(s.EndTime.Add(time.Second)))
}
