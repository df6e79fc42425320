package member

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/cell"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service interface {
	Create(ctx context.Context, req *CreateRequest, createdBy string) (*Member, error)
	GetByID(ctx context.Context, id string) (*Member, error)
	List(ctx context.Context, filter *ListFilter) (*ListResponse, error)
	Update(ctx context.Context, id string, req *UpdateRequest) (*Member, error)
	Deactivate(ctx context.Context, id string) error
}

type service struct {
	memberRepository Repository
	cellRepository   cell.Repository
	cfg              *config.Configuration
}

func NewMemberService(memberRepository Repository, cellRepository cell.Repository, cfg *config.Configuration) Service {
	return &service{
		memberRepository: memberRepository,
		cellRepository:   cellRepository,
		cfg:              cfg,
	}
}

func (s *service) Create(ctx context.Context, req *CreateRequest, createdBy string) (*Member, error) {
	if req.Email != nil && *req.Email != "" {
		if _, err := s.memberRepository.GetByEmail(ctx, *req.Email); err == nil {
			return nil, models.ErrEmailTaken
		}
	}

	var cellID *primitive.ObjectID
	if req.CellID != "" {
		id, err := primitive.ObjectIDFromHex(req.CellID)
		if err != nil {
			return nil, models.ErrCellNotFound
		}
		if _, err := s.cellRepository.GetByID(ctx, id); err != nil {
			return nil, err
		}
		cellID = &id
	}

	membershipID, err := s.memberRepository.NextMembershipID(ctx)
	if err != nil {
		return nil, err
	}

	status := req.MembershipStatus
	if status == "" {
		status = StatusActive
	}
	if !isValidStatus(status) {
		return nil, models.ErrInvalidParams
	}

	joinDate := time.Now()
	if req.JoinDate != nil {
		if parsed, err := time.Parse(time.RFC3339, *req.JoinDate); err == nil {
			joinDate = parsed
		}
	}

	member := &Member{
		MembershipID:     membershipID,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		Gender:           req.Gender,
		Address:          req.Address,
		City:             req.City,
		State:            req.State,
		ZipCode:          req.ZipCode,
		MembershipStatus: status,
		JoinDate:         joinDate,
		CellID:           cellID,
	}

	if req.Email != nil && *req.Email != "" {
		email := strings.ToLower(*req.Email)
		member.Email = &email
	}

	if req.DateOfBirth != nil {
		if parsed, err := time.Parse(time.RFC3339, *req.DateOfBirth); err == nil {
			member.DateOfBirth = &parsed
		}
	}

	if creator, err := primitive.ObjectIDFromHex(createdBy); err == nil {
		member.CreatedBy = creator
	}

	created, err := s.memberRepository.Create(ctx, member)
	if errors.Is(err, models.ErrMembershipIDTaken) {
		// concurrent creates drew the same sequence number, draw again
		if member.MembershipID, err = s.memberRepository.NextMembershipID(ctx); err != nil {
			return nil, err
		}
		created, err = s.memberRepository.Create(ctx, member)
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"member_id":     created.ID.Hex(),
		"membership_id": created.MembershipID,
	}).Info("Member created")

	return created, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Member, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrMemberNotFound
	}
	return s.memberRepository.GetByID(ctx, objectID)
}

func (s *service) List(ctx context.Context, filter *ListFilter) (*ListResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = s.cfg.Search.MinQueryLimit
	}
	if filter.Limit > s.cfg.Search.MaxQueryLimit {
		filter.Limit = s.cfg.Search.MaxQueryLimit
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	if filter.Status != "" && !isValidStatus(filter.Status) {
		return nil, models.ErrInvalidParams
	}

	members, totalCount, err := s.memberRepository.List(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to get members from repository")
		return nil, err
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(filter.Limit)))

	return &ListResponse{
		Members:      members,
		TotalMembers: totalCount,
		Page:         filter.Page,
		Limit:        filter.Limit,
		TotalPages:   totalPages,
	}, nil
}

func (s *service) Update(ctx context.Context, id string, req *UpdateRequest) (*Member, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrMemberNotFound
	}

	existing, err := s.memberRepository.GetByID(ctx, objectID)
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
	if req.Email != nil && *req.Email != "" {
		email := strings.ToLower(*req.Email)
		if existing.Email == nil || email != *existing.Email {
			if conflict, err := s.memberRepository.GetByEmail(ctx, email); err == nil && conflict.ID != existing.ID {
				return nil, models.ErrEmailTaken
			}
		}
		update["email"] = email
	}
	if req.Phone != nil {
		update["phone"] = *req.Phone
	}
	if req.DateOfBirth != nil {
		if parsed, err := time.Parse(time.RFC3339, *req.DateOfBirth); err == nil {
			update["date_of_birth"] = parsed
		}
	}
	if req.Gender != "" {
		update["gender"] = req.Gender
	}
	if req.Address != "" {
		update["address"] = req.Address
	}
	if req.City != "" {
		update["city"] = req.City
	}
	if req.State != "" {
		update["state"] = req.State
	}
	if req.ZipCode != "" {
		update["zip_code"] = req.ZipCode
	}
	if req.CellID != nil {
		if *req.CellID == "" {
			update["cell_id"] = nil
		} else {
			cellID, err := primitive.ObjectIDFromHex(*req.CellID)
			if err != nil {
				return nil, models.ErrCellNotFound
			}
			if _, err := s.cellRepository.GetByID(ctx, cellID); err != nil {
				return nil, err
			}
			update["cell_id"] = cellID
		}
	}
	if req.MembershipStatus != "" {
		if !isValidStatus(req.MembershipStatus) {
			return nil, models.ErrInvalidParams
		}
		update["membership_status"] = req.MembershipStatus
	}

	updated, err := s.memberRepository.Update(ctx, objectID, update)
	if err != nil {
		return nil, err
	}

	logrus.WithField("member_id", updated.ID.Hex()).Info("Member updated")
	return updated, nil
}

// Deactivate soft-deletes a member: status flips to INACTIVE, the record
// is never removed.
func (s *service) Deactivate(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrMemberNotFound
	}

	if err := s.memberRepository.UpdateStatus(ctx, objectID, StatusInactive); err != nil {
		return err
	}

	logrus.WithField("member_id", id).Info("Member deactivated")
	return nil
}

func isValidStatus(status string) bool {
	validStatuses := []string{StatusActive, StatusInactive, StatusPending, StatusSuspended}
	for _, validStatus := range validStatuses {
		if validStatus == status {
			return true
		}
	}
	return false
}
