package entities

import (
	"time"

	"veriface.io/application/utils"
)

// FaceEmbedding is one enrolled reference vector for a user. A user may hold
// several embeddings per model type; verification takes the best match.
// Embeddings are immutable once written.
type FaceEmbedding struct {
	UserID    string    `bson:"userID" json:"userID"`
	ModelType string    `bson:"modelType" json:"modelType"`
	Vector    []float64 `bson:"vector" json:"-"`
	Validated bool      `bson:"validated" json:"validated"`

	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (model FaceEmbedding) ParseModel() any {
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
		model.ID = utils.GenerateULIDString()
	}
	model.UpdatedAt = now
	return &model
}
