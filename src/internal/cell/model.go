package cell

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cell is a small home-group of members led by a cell leader.
type Cell struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Name        string              `json:"name" bson:"name"`
	Description string              `json:"description,omitempty" bson:"description,omitempty"`
	LeaderID    *primitive.ObjectID `json:"leaderId,omitempty" bson:"leader_id,omitempty"`
	Location    string              `json:"location,omitempty" bson:"location,omitempty"`
	CreatedAt   time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time           `json:"updatedAt" bson:"updated_at"`
}

type CreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	LeaderID    string `json:"leaderId"`
	Location    string `json:"location"`
}
