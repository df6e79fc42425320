package session

import (
	"context"
	"math"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service interface {
	Create(ctx context.Context, req *CreateRequest, createdBy string) (*Session, error)
	GetByID(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context, filter *ListFilter) (*ListResponse, error)
	Update(ctx context.Context, id string, req *UpdateRequest) (*Session, error)
	Close(ctx context.Context, id string) (*Session, error)
}

type service struct {
	sessionRepository Repository
	cfg               *config.Configuration
}

func NewSessionService(sessionRepository Repository, cfg *config.Configuration) Service {
	return &service{
		sessionRepository: sessionRepository,
		cfg:               cfg,
	}
}

func (s *service) Create(ctx context.Context, req *CreateRequest, createdBy string) (*Session, error) {
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, models.ErrInvalidParams
	}
	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return nil, models.ErrInvalidParams
	}
	if !endTime.After(startTime) {
		return nil, models.ErrInvalidParams
	}
	if !isValidType(req.SessionType) {
		return nil, models.ErrInvalidParams
	}

	session := &Session{
		Name:        req.Name,
		Description: req.Description,
		SessionType: req.SessionType,
		StartTime:   startTime,
		EndTime:     endTime,
		Location:    req.Location,
		MaxCapacity: req.MaxCapacity,
		Status:      StatusActive,
	}

	if creator, err := primitive.ObjectIDFromHex(createdBy); err == nil {
		session.CreatedBy = creator
	}

	created, err := s.sessionRepository.Create(ctx, session)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"session_id":   created.ID.Hex(),
		"session_type": created.SessionType,
	}).Info("Session created")

	return created, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Session, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrSessionNotFound
	}
	return s.sessionRepository.GetByID(ctx, objectID)
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

	sessions, totalCount, err := s.sessionRepository.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ListResponse{
		Sessions:      sessions,
		TotalSessions: totalCount,
		Page:          filter.Page,
		Limit:         filter.Limit,
		TotalPages:    int(math.Ceil(float64(totalCount) / float64(filter.Limit))),
	}, nil
}

func (s *service) Update(ctx context.Context, id string, req *UpdateRequest) (*Session, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrSessionNotFound
	}

	update := bson.M{}

	if req.Name != "" {
		update["name"] = req.Name
	}
	if req.Description != "" {
		update["description"] = req.Description
	}
	if req.SessionType != "" {
		if !isValidType(req.SessionType) {
			return nil, models.ErrInvalidParams
		}
		update["session_type"] = req.SessionType
	}
	if req.StartTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			return nil, models.ErrInvalidParams
		}
		update["start_time"] = parsed
	}
	if req.EndTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			return nil, models.ErrInvalidParams
		}
		update["end_time"] = parsed
	}
	if req.Location != "" {
		update["location"] = req.Location
	}
	if req.MaxCapacity > 0 {
		update["max_capacity"] = req.MaxCapacity
	}
	if req.Status != "" {
		if req.Status != StatusActive && req.Status != StatusClosed && req.Status != StatusCancelled {
			return nil, models.ErrInvalidParams
		}
		update["status"] = req.Status
	}

	return s.sessionRepository.Update(ctx, objectID, update)
}

func (s *service) Close(ctx context.Context, id string) (*Session, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrSessionNotFound
	}
	return s.sessionRepository.Update(ctx, objectID, bson.M{"status": StatusClosed})
}

func isValidType(sessionType string) bool {
	validTypes := []string{TypeSundayService, TypePrayerMeeting, TypeBibleStudy, TypeCellMeeting, TypeSpecialEvent}
	for _, validType := range validTypes {
		if validType == sessionType {
			return true
		}
	}
	return false
}
