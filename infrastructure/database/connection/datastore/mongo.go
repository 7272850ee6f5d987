package datastore

import (
	"context"
	"os"
	"time"

	"veriface.io/infrastructure/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	FaceEmbeddingModel   *mongo.Collection
	VerificationLogModel *mongo.Collection

	mongoClient *mongo.Client
)

func ConnectToDatabase() {
	connectMongo()
}

func connectMongo() *context.CancelFunc {
	url := os.Getenv("DB_URL")

	if url == "" {
		logger.Error("mongo url missing")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)

	clientOpts := options.Client().ApplyURI(url)
	clientOpts.SetMinPoolSize(5)
	clientOpts.SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)

	if err != nil {
		logger.Warning("an error occured while starting the database", logger.LoggerOptions{Key: "error", Data: err})
		return &cancel
	}
	mongoClient = client

	db := client.Database(os.Getenv("DB_NAME"))
	setUpIndexes(ctx, db)

	logger.Info("connected to mongodb successfully")
	return &cancel
}

// Set up the indexes for the database
func setUpIndexes(ctx context.Context, db *mongo.Database) {
	FaceEmbeddingModel = db.Collection("FaceEmbeddings")
	FaceEmbeddingModel.Indexes().CreateMany(ctx, []mongo.IndexModel{{
		Keys:    bson.D{{Key: "userID", Value: 1}, {Key: "modelType", Value: 1}},
		Options: options.Index(),
	}})

	VerificationLogModel = db.Collection("VerificationLogs")
	VerificationLogModel.Indexes().CreateMany(ctx, []mongo.IndexModel{{
		Keys:    bson.D{{Key: "userID", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index(),
	}, {
		Keys:    bson.D{{Key: "correlationID", Value: 1}},
		Options: options.Index(),
	}})

	logger.Info("mongodb indexes set up successfully")
}

func CleanUp() {
	if mongoClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mongoClient.Disconnect(ctx); err != nil {
		logger.Error("error disconnecting from mongodb", logger.LoggerOptions{Key: "error", Data: err})
	}
}
