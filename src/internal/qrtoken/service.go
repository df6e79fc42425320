package qrtoken

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/member"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service interface {
	Issue(ctx context.Context, memberID string, ttlHours int, createdBy string) (*IssuedQRCode, error)
	BatchIssue(ctx context.Context, req *BatchIssueRequest, createdBy string) (*BatchIssueResult, error)
	Validate(ctx context.Context, tokenValue string) (*Token, *member.Member, error)
	Revoke(ctx context.Context, tokenID, revokedBy string) error
	ActiveForMember(ctx context.Context, memberID string) (*member.Member, []*Token, error)
	Stats(ctx context.Context, window *StatsWindow) (*Stats, error)
}

// ImageRenderer turns a QR payload into a renderable image string.
type ImageRenderer interface {
	Render(payload []byte) (string, error)
}

type pngRenderer struct {
	size int
}

// NewPNGRenderer renders payloads as base64 PNG data URLs.
func NewPNGRenderer(size int) ImageRenderer {
	return &pngRenderer{size: size}
}

func (r *pngRenderer) Render(payload []byte) (string, error) {
	png, err := qrcode.Encode(string(payload), qrcode.Medium, r.size)
	if err != nil {
		return "", models.ErrQRRenderFailed
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

type service struct {
	tokenRepository  Repository
	memberRepository member.Repository
	renderer         ImageRenderer
	cfg              *config.Configuration
}

func NewTokenService(tokenRepository Repository, memberRepository member.Repository, renderer ImageRenderer, cfg *config.Configuration) Service {
	return &service{
		tokenRepository:  tokenRepository,
		memberRepository: memberRepository,
		renderer:         renderer,
		cfg:              cfg,
	}
}

// Issue creates a single-use check-in token for an active member and
// renders it as a scannable code.
func (s *service) Issue(ctx context.Context, memberID string, ttlHours int, createdBy string) (*IssuedQRCode, error) {
	objectID, err := primitive.ObjectIDFromHex(memberID)
	if err != nil {
		return nil, models.ErrMemberNotFound
	}

	m, err := s.memberRepository.GetByID(ctx, objectID)
	if err != nil {
		return nil, err
	}
	if !m.IsActive() {
		return nil, models.ErrMemberInactive
	}

	if ttlHours <= 0 {
		ttlHours = s.cfg.QRCode.DefaultTTLHours
	}
	expiresAt := time.Now().Add(time.Duration(ttlHours) * time.Hour)

	token := &Token{
		Token:     newTokenValue(),
		MemberID:  m.ID,
		Purpose:   PurposeCheckIn,
		ExpiresAt: expiresAt,
	}
	if creator, err := primitive.ObjectIDFromHex(createdBy); err == nil {
		token.CreatedBy = creator
	}

	created, err := s.tokenRepository.Create(ctx, token)
	if err != nil {
		return nil, err
	}

	issued, err := s.render(created, m)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"member_id":  m.ID.Hex(),
		"expires_at": expiresAt,
	}).Info("QR token issued")

	return issued, nil
}

// BatchIssue generates tokens for up to the configured cap of members in
// one call. A member whose image fails to render is logged and skipped;
// the result reports the partial-success count.
func (s *service) BatchIssue(ctx context.Context, req *BatchIssueRequest, createdBy string) (*BatchIssueResult, error) {
	if len(req.MemberIDs) == 0 {
		return nil, models.ErrInvalidParams
	}
	if len(req.MemberIDs) > s.cfg.QRCode.BatchLimit {
		return nil, models.ErrInvalidParams
	}

	ids := make([]primitive.ObjectID, 0, len(req.MemberIDs))
	for _, raw := range req.MemberIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, models.ErrMemberNotFound
		}
		ids = append(ids, id)
	}

	members, err := s.memberRepository.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(members) != len(ids) {
		return nil, models.ErrMemberInactive
	}

	ttlHours := req.ExpirationHours
	if ttlHours <= 0 {
		ttlHours = s.cfg.QRCode.DefaultTTLHours
	}
	expiresAt := time.Now().Add(time.Duration(ttlHours) * time.Hour)

	var creator primitive.ObjectID
	if parsed, err := primitive.ObjectIDFromHex(createdBy); err == nil {
		creator = parsed
	}

	result := &BatchIssueResult{
		TotalRequested: len(req.MemberIDs),
		ExpiresAt:      expiresAt,
	}

	for _, m := range members {
		token := &Token{
			Token:     newTokenValue(),
			MemberID:  m.ID,
			Purpose:   PurposeCheckIn,
			ExpiresAt: expiresAt,
			CreatedBy: creator,
		}

		created, err := s.tokenRepository.Create(ctx, token)
		if err != nil {
			logrus.WithError(err).WithField("member_id", m.ID.Hex()).Error("Failed to persist QR token, skipping member")
			continue
		}

		issued, err := s.render(created, m)
		if err != nil {
			logrus.WithError(err).WithField("member_id", m.ID.Hex()).Error("Failed to generate QR code, skipping member")
			continue
		}

		result.QRCodes = append(result.QRCodes, issued)
	}

	result.TotalGenerated = len(result.QRCodes)

	logrus.WithFields(logrus.Fields{
		"requested": result.TotalRequested,
		"generated": result.TotalGenerated,
	}).Info("Batch QR generation completed")

	return result, nil
}

// Validate is the read-only preflight: it applies the same fail-fast
// check order as consumption without touching the token.
func (s *service) Validate(ctx context.Context, tokenValue string) (*Token, *member.Member, error) {
	token, err := s.tokenRepository.GetByToken(ctx, tokenValue)
	if err != nil {
		return nil, nil, err
	}

	if token.IsExpired(time.Now()) {
		return nil, nil, models.ErrQRTokenExpired
	}
	if token.IsUsed() {
		return nil, nil, models.ErrQRTokenUsed
	}

	m, err := s.memberRepository.GetByID(ctx, token.MemberID)
	if err != nil {
		return nil, nil, err
	}
	if !m.IsActive() {
		return nil, nil, models.ErrMemberInactive
	}

	return token, m, nil
}

func (s *service) Revoke(ctx context.Context, tokenID, revokedBy string) error {
	objectID, err := primitive.ObjectIDFromHex(tokenID)
	if err != nil {
		return models.ErrQRTokenNotFound
	}

	if _, err := s.tokenRepository.GetByID(ctx, objectID); err != nil {
		return err
	}

	var revoker primitive.ObjectID
	if parsed, err := primitive.ObjectIDFromHex(revokedBy); err == nil {
		revoker = parsed
	}

	if err := s.tokenRepository.Revoke(ctx, objectID, revoker, time.Now()); err != nil {
		return err
	}

	logrus.WithField("token_id", tokenID).Info("QR token revoked")
	return nil
}

func (s *service) ActiveForMember(ctx context.Context, memberID string) (*member.Member, []*Token, error) {
	objectID, err := primitive.ObjectIDFromHex(memberID)
	if err != nil {
		return nil, nil, models.ErrMemberNotFound
	}

	m, err := s.memberRepository.GetByID(ctx, objectID)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.tokenRepository.ActiveForMember(ctx, objectID, time.Now())
	if err != nil {
		return nil, nil, err
	}

	return m, tokens, nil
}

func (s *service) Stats(ctx context.Context, window *StatsWindow) (*Stats, error) {
	return s.tokenRepository.Stats(ctx, window, time.Now())
}

func (s *service) render(token *Token, m *member.Member) (*IssuedQRCode, error) {
	payload := Payload{
		Token:        token.Token,
		MemberID:     m.ID.Hex(),
		MembershipID: m.MembershipID,
		MemberName:   m.FullName(),
		ExpiresAt:    token.ExpiresAt.Format(time.RFC3339),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, models.ErrQRRenderFailed
	}

	image, err := s.renderer.Render(data)
	if err != nil {
		return nil, err
	}

	return &IssuedQRCode{
		ID:          token.ID.Hex(),
		Token:       token.Token,
		QRCodeImage: image,
		Member: MemberBrief{
			ID:           m.ID.Hex(),
			MembershipID: m.MembershipID,
			FirstName:    m.FirstName,
			LastName:     m.LastName,
		},
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	}, nil
}

// newTokenValue returns 32 random bytes hex encoded, 256 bits of
// entropy. Collisions are treated as negligible.
func newTokenValue() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
