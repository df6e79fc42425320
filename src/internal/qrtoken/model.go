package qrtoken

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Token is a single-use check-in credential. used_at transitions from
// null to a timestamp exactly once; expiry is checked at read time and
// never materialized as a state change.
type Token struct {
	ID        primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Token     string              `json:"token" bson:"token"`
	MemberID  primitive.ObjectID  `json:"memberId" bson:"member_id"`
	Purpose   string              `json:"purpose" bson:"purpose"`
	ExpiresAt time.Time           `json:"expiresAt" bson:"expires_at"`
	UsedAt    *time.Time          `json:"usedAt,omitempty" bson:"used_at,omitempty"`
	CreatedBy primitive.ObjectID  `json:"createdBy,omitempty" bson:"created_by,omitempty"`
	RevokedBy *primitive.ObjectID `json:"revokedBy,omitempty" bson:"revoked_by,omitempty"`
	CreatedAt time.Time           `json:"createdAt" bson:"created_at"`
}

const PurposeCheckIn = "CHECK_IN"

// IsExpired reports whether the token passed its expiry.
func (t *Token) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsUsed reports whether the token has been consumed or revoked.
func (t *Token) IsUsed() bool {
	return t.UsedAt != nil
}

// Payload is the JSON blob encoded into the QR image. Scanners post the
// token value back through the scan endpoint.
type Payload struct {
	Token        string `json:"token"`
	MemberID     string `json:"memberId"`
	MembershipID string `json:"membershipId"`
	MemberName   string `json:"memberName"`
	ExpiresAt    string `json:"expiresAt"`
}

// IssuedQRCode is one generated code with its rendered image.
type IssuedQRCode struct {
	ID          string      `json:"id"`
	Token       string      `json:"token"`
	QRCodeImage string      `json:"qrCodeImage"`
	Member      MemberBrief `json:"member"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type MemberBrief struct {
	ID           string `json:"id"`
	MembershipID string `json:"membershipId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
}

type BatchIssueRequest struct {
	MemberIDs       []string `json:"memberIds" binding:"required"`
	ExpirationHours int      `json:"expirationHours"`
}

type BatchIssueResult struct {
	QRCodes        []*IssuedQRCode `json:"qrCodes"`
	TotalRequested int             `json:"totalRequested"`
	TotalGenerated int             `json:"totalGenerated"`
	ExpiresAt      time.Time       `json:"expiresAt"`
}

type Stats struct {
	TotalGenerated int64   `json:"totalGenerated"`
	TotalUsed      int64   `json:"totalUsed"`
	TotalExpired   int64   `json:"totalExpired"`
	TotalActive    int64   `json:"totalActive"`
	UsageRate      float64 `json:"usageRate"`
}

type StatsWindow struct {
	StartDate *time.Time
	EndDate   *time.Time
}
