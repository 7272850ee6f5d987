package repository

import (
	"sync"

	"veriface.io/entities"
	"veriface.io/infrastructure/database/connection/datastore"
	"veriface.io/infrastructure/database/repository/mongo"
)

var faceEmbeddingOnce = sync.Once{}

var faceEmbeddingRepository mongo.MongoRepository[entities.FaceEmbedding]

func FaceEmbeddingRepo() *mongo.MongoRepository[entities.FaceEmbedding] {
	faceEmbeddingOnce.Do(func() {
		faceEmbeddingRepository = mongo.MongoRepository[entities.FaceEmbedding]{Model: datastore.FaceEmbeddingModel}
	})
	return &faceEmbeddingRepository
}
