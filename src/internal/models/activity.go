package models

import "time"

type ActivityMessage struct {
	UserID      string            `json:"user_id"`
	MemberID    string            `json:"member_id,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
	ServiceName string            `json:"service_name"`
	Action      string            `json:"action"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Activity action constants
const (
	ActionLogin              = "login"
	ActionAttendanceRecorded = "attendance_recorded"
	ActionAttendanceManual   = "attendance_manual_entry"
	ActionQRTokenIssued      = "qr_token_issued"
	ActionQRTokenRevoked     = "qr_token_revoked"
)

// Service name constants
const (
	ServiceAuthLogin       = "attendance.handler.auth"
	ServiceAttendanceScan  = "attendance.handler.scan"
	ServiceAttendanceEntry = "attendance.handler.manual"
	ServiceQRTokenIssuer   = "attendance.handler.qrcode"
)
