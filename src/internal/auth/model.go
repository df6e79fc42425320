package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email         string             `json:"email" bson:"email"`
	Password      string             `json:"-" bson:"password"`
	FirstName     string             `json:"firstName" bson:"first_name"`
	LastName      string             `json:"lastName" bson:"last_name"`
	Role          string             `json:"role" bson:"role"`
	IsActive      bool               `json:"isActive" bson:"is_active"`
	LoginAttempts int                `json:"-" bson:"login_attempts"`
	LockedUntil   *time.Time         `json:"-" bson:"locked_until,omitempty"`
	LastLoginAt   *time.Time         `json:"lastLoginAt,omitempty" bson:"last_login_at,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updated_at"`
}

// User role constants
const (
	RoleAdmin  = "ADMIN"
	RolePastor = "PASTOR"
	RoleLeader = "LEADER"
	RoleUsher  = "USHER"
)

func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RolePastor, RoleLeader, RoleUsher:
		return true
	}
	return false
}

// IsLocked reports whether the account is inside a lockout window.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Role      string `json:"role"`
}

type UpdateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
