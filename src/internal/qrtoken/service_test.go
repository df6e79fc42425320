package qrtoken

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/member"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeTokenRepo struct {
	Repository
	tokens map[string]*Token
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*Token)}
}

func (f *fakeTokenRepo) Create(_ context.Context, token *Token) (*Token, error) {
	token.ID = primitive.NewObjectID()
	token.CreatedAt = time.Now()
	f.tokens[token.Token] = token
	return token, nil
}

func (f *fakeTokenRepo) GetByToken(_ context.Context, value string) (*Token, error) {
	if t, ok := f.tokens[value]; ok {
		return t, nil
	}
	return nil, models.ErrQRTokenNotFound
}

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

func (f *fakeMemberRepo) FindActiveByIDs(_ context.Context, ids []primitive.ObjectID) ([]*member.Member, error) {
	var active []*member.Member
	for _, id := range ids {
		if m, ok := f.members[id]; ok && m.IsActive() {
			active = append(active, m)
		}
	}
	return active, nil
}

// flakyRenderer fails for every member name in failFor.
type flakyRenderer struct {
	failFor map[string]bool
}

func (r *flakyRenderer) Render(payload []byte) (string, error) {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", err
	}
	if r.failFor[p.MemberName] {
		return "", models.ErrQRRenderFailed
	}
	return "data:image/png;base64,fake", nil
}

func testConfig() *config.Configuration {
	cfg := &config.Configuration{}
	cfg.QRCode.DefaultTTLHours = 24
	cfg.QRCode.BatchLimit = 100
	cfg.QRCode.ImageSize = 300
	return cfg
}

func activeMember(name string) *member.Member {
	return &member.Member{
		ID:               primitive.NewObjectID(),
		MembershipID:     "NECF20260001",
		FirstName:        name,
		LastName:         "Dube",
		MembershipStatus: member.StatusActive,
	}
}

func TestIssueHappyPath(t *testing.T) {
	m := activeMember("Rudo")
	tokens := newFakeTokenRepo()
	members := &fakeMemberRepo{members: map[primitive.ObjectID]*member.Member{m.ID: m}}
	svc := NewTokenService(tokens, members, &flakyRenderer{}, testConfig())

	issued, err := svc.Issue(context.Background(), m.ID.Hex(), 0, primitive.NewObjectID().Hex())
	require.NoError(t, err)

	assert.Len(t, issued.Token, 64, "32 random bytes hex encoded")
	assert.True(t, strings.HasPrefix(issued.QRCodeImage, "data:image/png;base64,"))
	assert.Equal(t, m.MembershipID, issued.Member.MembershipID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), issued.ExpiresAt, time.Minute)
}

func TestIssueInactiveMember(t *testing.T) {
	m := activeMember("Rudo")
	m.MembershipStatus = member.StatusSuspended
	members := &fakeMemberRepo{members: map[primitive.ObjectID]*member.Member{m.ID: m}}
	svc := NewTokenService(newFakeTokenRepo(), members, &flakyRenderer{}, testConfig())

	_, err := svc.Issue(context.Background(), m.ID.Hex(), 0, "")
	assert.ErrorIs(t, err, models.ErrMemberInactive)
}

func TestIssueUnknownMember(t *testing.T) {
	members := &fakeMemberRepo{members: map[primitive.ObjectID]*member.Member{}}
	svc := NewTokenService(newFakeTokenRepo(), members, &flakyRenderer{}, testConfig())

	_, err := svc.Issue(context.Background(), primitive.NewObjectID().Hex(), 0, "")
	assert.ErrorIs(t, err, models.ErrMemberNotFound)
}

func TestBatchIssueOverCap(t *testing.T) {
	cfg := testConfig()
	cfg.QRCode.BatchLimit = 2
	members := &fakeMemberRepo{members: map[primitive.ObjectID]*member.Member{}}
	svc := NewTokenService(newFakeTokenRepo(), members, &flakyRenderer{}, cfg)

	req := &BatchIssueRequest{MemberIDs: []string{
		primitive.NewObjectID().Hex(),
		primitive.NewObjectID().Hex(),
		primitive.NewObjectID().Hex(),
	}}
	_, err := svc.BatchIssue(context.Background(), req, "")
	assert.ErrorIs(t, err, models.ErrInvalidParams)
}

func TestBatchIssueRejectsInactiveMember(t *testing.T) {
	m1 := activeMember("Rudo")
	m2 := activeMember("Tariro")
	m2.MembershipStatus = member.StatusInactive

	members := &fakeMemberRepo{members: map[primitive.ObjectID]*member.Member{m1.ID: m1, m2.ID: m2}}
	svc := NewTokenService(newFakeTokenRepo(), members, &flakyRenderer{}, testConfig())

	req := &BatchIssueRequest{MemberIDs: []string{m1.ID.Hex(), m2.ID.Hex()}}
	_, err := svc.BatchIssue(context.Background(), req, "")
	assert.ErrorIs(t, err, models.ErrMemberInactive)
}

// A render failure for one member skips that member and keeps going:
// the batch reports partial success instead of failing outright.
func TestBatchIssuePartialRenderFailure(t *testing.T) {
	m1 := activeMember("Rudo")
	m2 := activeMember("Tariro")
	members := &fakeMemberRepo{members: map[primitive.ObjectID]*member.Member{m1.ID: m1, m2.ID: m2}}
	renderer := &flakyRenderer{failFor: map[string]bool{m2.FullName(): true}}
	svc := NewTokenService(newFakeTokenRepo(), members, renderer, testConfig())

	req := &BatchIssueRequest{MemberIDs: []string{m1.ID.Hex(), m2.ID.Hex()}}
	result, err := svc.BatchIssue(context.Background(), req, "")
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalRequested)
	assert.Equal(t, 1, result.TotalGenerated)
	assert.Len(t, result.QRCodes, 1)
	assert.Equal(t, m1.ID.Hex(), result.QRCodes[0].Member.ID)
}

func TestValidateChecksRunInOrder(t *testing.T) {
	m := activeMember("Rudo")
	tokens := newFakeTokenRepo()
	members := &fakeMemberRepo{members: map[primitive.ObjectID]*member.Member{m.ID: m}}
	svc := NewTokenService(tokens, members, &flakyRenderer{}, testConfig())

	_, _, err := svc.Validate(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrQRTokenNotFound)

	used := time.Now()
	tokens.tokens["t1"] = &Token{
		Token:     "t1",
		MemberID:  m.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
		UsedAt:    &used,
	}
	_, _, err = svc.Validate(context.Background(), "t1")
	assert.ErrorIs(t, err, models.ErrQRTokenExpired, "expiry must be reported before usage")

	tokens.tokens["t2"] = &Token{
		Token:     "t2",
		MemberID:  m.ID,
		ExpiresAt: time.Now().Add(time.Hour),
		UsedAt:    &used,
	}
	_, _, err = svc.Validate(context.Background(), "t2")
	assert.ErrorIs(t, err, models.ErrQRTokenUsed)

	tokens.tokens["t3"] = &Token{
		Token:     "t3",
		MemberID:  m.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	token, validated, err := svc.Validate(context.Background(), "t3")
	require.NoError(t, err)
	assert.Equal(t, "t3", token.Token)
	assert.Equal(t, m.ID, validated.ID)
}

func TestNewTokenValueIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		v := newTokenValue()
		assert.Len(t, v, 64)
		assert.False(t, seen[v], "token values must not repeat")
		seen[v] = true
	}
}

func TestPNGRendererProducesDataURL(t *testing.T) {
	renderer := NewPNGRenderer(128)

	image, err := renderer.Render([]byte(`{"token":"abc"}`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(image, "data:image/png;base64,"))
}
