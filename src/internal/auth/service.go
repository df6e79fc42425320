package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	Register(ctx context.Context, req *RegisterRequest) (*User, error)
	Refresh(ctx context.Context, tokenString string) (string, error)
	Profile(ctx context.Context, userID string) (*User, error)
	UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*User, error)
	ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) error
}

type service struct {
	userRepository Repository
	cfg            *config.Configuration
}

func NewAuthService(userRepository Repository, cfg *config.Configuration) Service {
	return &service{
		userRepository: userRepository,
		cfg:            cfg,
	}
}

// Login verifies credentials and issues a JWT. Failed attempts are
// counted per account; hitting the retry cap locks the account for the
// configured cooldown. A successful login resets the counter.
func (s *service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepository.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now()
	if user.IsLocked(now) {
		logrus.WithField("email", email).Warn("Login attempt on locked account")
		return nil, models.ErrAccountLocked
	}
	if !user.IsActive {
		return nil, models.ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		var lockedUntil *time.Time
		if user.LoginAttempts+1 >= s.cfg.Security.MaxLoginRetries {
			until := now.Add(time.Duration(s.cfg.Security.LockoutMinutes) * time.Minute)
			lockedUntil = &until
			logrus.WithField("email", email).Warn("Account locked after repeated login failures")
		}
		if recordErr := s.userRepository.RecordFailedLogin(ctx, user.ID, lockedUntil); recordErr != nil {
			logrus.WithError(recordErr).Error("Failed to record login failure")
		}
		return nil, models.ErrInvalidCredentials
	}

	if err := s.userRepository.RecordSuccessfulLogin(ctx, user.ID, now); err != nil {
		logrus.WithError(err).Error("Failed to record successful login")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	lastLogin := now
	user.LastLoginAt = &lastLogin
	user.LoginAttempts = 0
	user.LockedUntil = nil

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID.Hex(),
		"email":   user.Email,
	}).Info("User logged in")

	return &LoginResponse{Token: token, User: user}, nil
}

func (s *service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.userRepository.GetByEmail(ctx, email); err == nil {
		return nil, models.ErrEmailTaken
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = RoleUsher
	}
	if !IsValidRole(role) {
		return nil, models.ErrInvalidParams
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.Security.BcryptCost)
	if err != nil {
		logrus.WithError(err).Error("Failed to hash password")
		return nil, err
	}

	user := &User{
		Email:     email,
		Password:  string(hash),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
		IsActive:  true,
	}

	created, err := s.userRepository.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": created.ID.Hex(),
		"role":    created.Role,
	}).Info("User registered")

	return created, nil
}

// Refresh re-signs the bearer's token. The signature must verify but
// expiry is ignored, so a client whose token lapsed can renew it
// without logging in again.
func (s *service) Refresh(ctx context.Context, tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, models.ErrInvalidToken
		}
		return []byte(s.cfg.Security.JwtKey), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !token.Valid {
		logrus.WithError(err).Warn("Token refresh failed signature verification")
		return "", models.ErrInvalidToken
	}

	user, err := s.getUser(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	if !user.IsActive {
		return "", models.ErrAccountInactive
	}
	return s.issueToken(user)
}

func (s *service) Profile(ctx context.Context, userID string) (*User, error) {
	return s.getUser(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	update := bson.M{}
	if req.FirstName != "" {
		update["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		update["last_name"] = req.LastName
	}
	if len(update) == 0 {
		return user, nil
	}

	if err := s.userRepository.Update(ctx, user.ID, update); err != nil {
		return nil, err
	}
	return s.userRepository.GetByID(ctx, user.ID)
}

func (s *service) ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return models.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cfg.Security.BcryptCost)
	if err != nil {
		logrus.WithError(err).Error("Failed to hash password")
		return err
	}

	if err := s.userRepository.Update(ctx, user.ID, bson.M{"password": string(hash)}); err != nil {
		return err
	}

	logrus.WithField("user_id", user.ID.Hex()).Info("Password changed")
	return nil
}

func (s *service) getUser(ctx context.Context, userID string) (*User, error) {
	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, models.ErrUserNotFound
	}
	return s.userRepository.GetByID(ctx, objectID)
}

func (s *service) issueToken(user *User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.cfg.Security.TokenTTLHours) * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Security.JwtKey))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign JWT")
		return "", err
	}
	return signed, nil
}
