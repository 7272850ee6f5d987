package mongo

import (
	"context"
	"time"

	"veriface.io/infrastructure/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (repo *MongoRepository[T]) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 15*time.Second)
}

func (repo *MongoRepository[T]) CreateOne(ctx context.Context, payload T) (*T, error) {
	c, cancel := repo.requestContext(ctx)
	defer cancel()

	parsed := payload.ParseModel().(*T)
	_, err := repo.Model.InsertOne(c, parsed)
	if err != nil {
		logger.Error("mongo error occured while running CreateOne", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	return parsed, nil
}

func (repo *MongoRepository[T]) CreateBulk(ctx context.Context, payload []T) error {
	c, cancel := repo.requestContext(ctx)
	defer cancel()

	parsed := make([]interface{}, len(payload))
	for i, data := range payload {
		parsed[i] = data.ParseModel()
	}
	_, err := repo.Model.InsertMany(c, parsed)
	if err != nil {
		logger.Error("mongo error occured while running CreateBulk", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return err
	}
	return nil
}

func (repo *MongoRepository[T]) FindOneByFilter(ctx context.Context, filter map[string]interface{}) (*T, error) {
	c, cancel := repo.requestContext(ctx)
	defer cancel()

	var result T
	err := repo.Model.FindOne(c, filter).Decode(&result)
	if err != nil {
		if err.Error() == "mongo: no documents in result" {
			return nil, nil
		}
		logger.Error("mongo error occured while running FindOneByFilter", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	return &result, nil
}

func (repo *MongoRepository[T]) FindMany(ctx context.Context, filter map[string]interface{}, opts ...*FindOptions) ([]T, error) {
	c, cancel := repo.requestContext(ctx)
	defer cancel()

	findOpts := options.Find()
	if len(opts) != 0 && opts[0] != nil {
		if opts[0].Sort != nil {
			findOpts.SetSort(*opts[0].Sort)
		}
		if opts[0].Projection != nil {
			findOpts.SetProjection(*opts[0].Projection)
		}
		if opts[0].Skip != nil {
			findOpts.SetSkip(*opts[0].Skip)
		}
	}

	cursor, err := repo.Model.Find(c, filter, findOpts)
	if err != nil {
		logger.Error("mongo error occured while running FindMany", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}

	var results []T
	if err := cursor.All(c, &results); err != nil {
		logger.Error("mongo error occured while decoding FindMany results", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	return results, nil
}

// FindManyPaginated walks a collection using an id cursor rather than
// skip/limit so deep pages stay cheap.
func (repo *MongoRepository[T]) FindManyPaginated(ctx context.Context, filter map[string]interface{}, pageSize int64, lastID *string, sort int) ([]T, error) {
	c, cancel := repo.requestContext(ctx)
	defer cancel()

	if lastID != nil {
		if sort == -1 {
			filter["_id"] = map[string]interface{}{"$lt": *lastID}
		} else {
			filter["_id"] = map[string]interface{}{"$gt": *lastID}
		}
	}

	findOpts := options.Find().
		SetLimit(pageSize).
		SetSort(bson.D{{Key: "_id", Value: sort}})

	cursor, err := repo.Model.Find(c, filter, findOpts)
	if err != nil {
		logger.Error("mongo error occured while running FindManyPaginated", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}

	var results []T
	if err := cursor.All(c, &results); err != nil {
		logger.Error("mongo error occured while decoding FindManyPaginated results", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	return results, nil
}

func (repo *MongoRepository[T]) CountDocs(ctx context.Context, filter map[string]interface{}) (int64, error) {
	c, cancel := repo.requestContext(ctx)
	defer cancel()

	count, err := repo.Model.CountDocuments(c, filter)
	if err != nil {
		logger.Error("mongo error occured while running CountDocs", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return 0, err
	}
	return count, nil
}

func (repo *MongoRepository[T]) DeleteMany(ctx context.Context, filter map[string]interface{}) (int64, error) {
	c, cancel := repo.requestContext(ctx)
	defer cancel()

	result, err := repo.Model.DeleteMany(c, filter)
	if err != nil {
		logger.Error("mongo error occured while running DeleteMany", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return 0, err
	}
	return result.DeletedCount, nil
}
