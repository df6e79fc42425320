package cell

import (
	"context"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service interface {
	Create(ctx context.Context, req *CreateRequest) (*Cell, error)
	GetByID(ctx context.Context, cellID string) (*Cell, error)
	List(ctx context.Context) ([]*Cell, error)
}

type service struct {
	cellRepository Repository
}

func NewCellService(cellRepository Repository) Service {
	return &service{cellRepository: cellRepository}
}

func (s *service) Create(ctx context.Context, req *CreateRequest) (*Cell, error) {
	cell := &Cell{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
	}
	if req.LeaderID != "" {
		leaderID, err := primitive.ObjectIDFromHex(req.LeaderID)
		if err != nil {
			return nil, models.ErrInvalidParams
		}
		cell.LeaderID = &leaderID
	}

	created, err := s.cellRepository.Create(ctx, cell)
	if err != nil {
		return nil, err
	}

	logrus.WithField("cell_id", created.ID.Hex()).Info("Cell group created")
	return created, nil
}

func (s *service) GetByID(ctx context.Context, cellID string) (*Cell, error) {
	objectID, err := primitive.ObjectIDFromHex(cellID)
	if err != nil {
		return nil, models.ErrCellNotFound
	}
	return s.cellRepository.GetByID(ctx, objectID)
}

func (s *service) List(ctx context.Context) ([]*Cell, error) {
	return s.cellRepository.List(ctx)
}
