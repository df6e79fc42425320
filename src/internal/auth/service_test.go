package auth

import (
	"context"
	"testing"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	users map[primitive.ObjectID]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *User) (*User, error) {
	for _, u := range f.users {
		if u.Email == user.Email {
			return nil, models.ErrEmailTaken
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, models.ErrUserNotFound
}

func (f *fakeUserRepo) Update(_ context.Context, id primitive.ObjectID, update bson.M) error {
	u, ok := f.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	if password, ok := update["password"].(string); ok {
		u.Password = password
	}
	if name, ok := update["first_name"].(string); ok {
		u.FirstName = name
	}
	if name, ok := update["last_name"].(string); ok {
		u.LastName = name
	}
	return nil
}

func (f *fakeUserRepo) RecordFailedLogin(_ context.Context, id primitive.ObjectID, lockedUntil *time.Time) error {
	u := f.users[id]
	u.LoginAttempts++
	if lockedUntil != nil {
		u.LockedUntil = lockedUntil
	}
	return nil
}

func (f *fakeUserRepo) RecordSuccessfulLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	u := f.users[id]
	u.LoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &at
	return nil
}

func testConfig() *config.Configuration {
	cfg := &config.Configuration{}
	cfg.Security.JwtKey = "test-secret"
	cfg.Security.TokenTTLHours = 168
	cfg.Security.BcryptCost = bcrypt.MinCost
	cfg.Security.MaxLoginRetries = 5
	cfg.Security.LockoutMinutes = 15
	return cfg
}

func seedUser(t *testing.T, repo *fakeUserRepo, password string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &User{
		ID:        primitive.NewObjectID(),
		Email:     "pastor@necf.org",
		Password:  string(hash),
		FirstName: "Farai",
		LastName:  "Ncube",
		Role:      RolePastor,
		IsActive:  true,
	}
	repo.users[user.ID] = user
	return user
}

func TestLoginHappyPath(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(t, repo, "correct horse")
	svc := NewAuthService(repo, testConfig())

	resp, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "Pastor@NECF.org",
		Password: "correct horse",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.Email, resp.User.Email)
	assert.NotNil(t, resp.User.LastLoginAt)

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, RolePastor, claims.Role)
	assert.WithinDuration(t, time.Now().Add(168*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(t, repo, "correct horse")
	svc := NewAuthService(repo, testConfig())

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    user.Email,
		Password: "wrong",
	})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Equal(t, 1, user.LoginAttempts)
}

func TestLoginUnknownEmailHidesExistence(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), testConfig())

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "nobody@necf.org",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(t, repo, "correct horse")
	svc := NewAuthService(repo, testConfig())

	for i := 0; i < 5; i++ {
		_, err := svc.Login(context.Background(), &LoginRequest{
			Email:    user.Email,
			Password: "wrong",
		})
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	}

	require.NotNil(t, user.LockedUntil)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), *user.LockedUntil, time.Minute)

	// Even the right password is rejected while locked
	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    user.Email,
		Password: "correct horse",
	})
	assert.ErrorIs(t, err, models.ErrAccountLocked)
}

func TestLoginSuccessResetsAttempts(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(t, repo, "correct horse")
	user.LoginAttempts = 3
	svc := NewAuthService(repo, testConfig())

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    user.Email,
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, repo.users[user.ID].LoginAttempts)
}

func TestLoginExpiredLockoutAdmits(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(t, repo, "correct horse")
	past := time.Now().Add(-time.Minute)
	user.LockedUntil = &past
	svc := NewAuthService(repo, testConfig())

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    user.Email,
		Password: "correct horse",
	})
	assert.NoError(t, err)
	assert.Nil(t, repo.users[user.ID].LockedUntil)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(t, repo, "correct horse")
	user.IsActive = false
	svc := NewAuthService(repo, testConfig())

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    user.Email,
		Password: "correct horse",
	})
	assert.ErrorIs(t, err, models.ErrAccountInactive)
}

func signToken(t *testing.T, user *User, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := &Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-168 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestRefreshAcceptsExpiredToken(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(t, repo, "pw")
	svc := NewAuthService(repo, testConfig())

	expired := signToken(t, user, "test-secret", time.Now().Add(-24*time.Hour))

	refreshed, err := svc.Refresh(context.Background(), expired)
	require.NoError(t, err)

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(refreshed, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.WithinDuration(t, time.Now().Add(168*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestRefreshRejectsForgedSignature(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(t, repo, "pw")
	svc := NewAuthService(repo, testConfig())

	forged := signToken(t, user, "attacker-secret", time.Now().Add(-24*time.Hour))

	_, err := svc.Refresh(context.Background(), forged)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestRefreshRejectsInactiveAccount(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(t, repo, "pw")
	user.IsActive = false
	svc := NewAuthService(repo, testConfig())

	valid := signToken(t, user, "test-secret", time.Now().Add(time.Hour))

	_, err := svc.Refresh(context.Background(), valid)
	assert.ErrorIs(t, err, models.ErrAccountInactive)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "pw")
	svc := NewAuthService(repo, testConfig())

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:     "pastor@necf.org",
		Password:  "another password",
		FirstName: "Second",
		LastName:  "Pastor",
	})
	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestRegisterDefaultsToUsher(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, testConfig())

	user, err := svc.Register(context.Background(), &RegisterRequest{
		Email:     "usher@necf.org",
		Password:  "long enough",
		FirstName: "Chipo",
		LastName:  "Marufu",
	})
	require.NoError(t, err)
	assert.Equal(t, RoleUsher, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "long enough", user.Password, "password must be hashed")
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), testConfig())

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:     "x@necf.org",
		Password:  "long enough",
		FirstName: "X",
		LastName:  "Y",
		Role:      "SUPERUSER",
	})
	assert.ErrorIs(t, err, models.ErrInvalidParams)
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(t, repo, "old password")
	svc := NewAuthService(repo, testConfig())

	err := svc.ChangePassword(context.Background(), user.ID.Hex(), &ChangePasswordRequest{
		CurrentPassword: "not the old one",
		NewPassword:     "new password",
	})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	err = svc.ChangePassword(context.Background(), user.ID.Hex(), &ChangePasswordRequest{
		CurrentPassword: "old password",
		NewPassword:     "new password",
	})
	require.NoError(t, err)

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[user.ID].Password), []byte("new password")))
}
