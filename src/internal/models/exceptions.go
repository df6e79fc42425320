package models

import "errors"

var (
	ErrRedisConnection = errors.New("redis connection error")
	ErrRedisGet        = errors.New("redis get error")
	ErrRedisSet        = errors.New("redis set error")
	ErrRedisDelete     = errors.New("redis delete error")
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is not active")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrEmailTaken         = errors.New("user already exists with this email")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

var (
	ErrMemberNotFound    = errors.New("member not found")
	ErrMembershipIDTaken = errors.New("membership number already assigned")
	ErrMemberInactive    = errors.New("member is not active")
	ErrCellNotFound      = errors.New("cell not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionInactive   = errors.New("session is not active")
	ErrSessionClosed     = errors.New("session is not currently active")
)

var (
	ErrQRTokenNotFound = errors.New("invalid QR code")
	ErrQRTokenExpired  = errors.New("QR code has expired")
	ErrQRTokenUsed     = errors.New("QR code has already been used")
	ErrQRRenderFailed  = errors.New("failed to generate QR code image")
)

var (
	ErrAttendanceNotFound  = errors.New("attendance record not found")
	ErrAttendanceDuplicate = errors.New("attendance already recorded for this session")
)

var (
	ErrDatabaseConnection = errors.New("database connection error")
	ErrDatabaseQuery      = errors.New("database query error")
	ErrDatabaseInsert     = errors.New("database insert error")
	ErrDatabaseUpdate     = errors.New("database update error")
	ErrDatabaseDelete     = errors.New("database delete error")
	ErrInvalidParams      = errors.New("invalid parameters")
)
