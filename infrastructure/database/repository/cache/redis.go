package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	redisClient "veriface.io/infrastructure/database/connection/cache"
	"veriface.io/infrastructure/logger"
)

var Cache RedisRepository

type RedisRepository struct {
	Client *redis.Client
}

func (redisRepo *RedisRepository) preRequest() {
	if redisRepo.Client == nil {
		redisRepo.Client = redisClient.GetInstance()
		logger.Info("redis repository initialisation complete")
	}
}

func (redisRepo *RedisRepository) CreateEntry(key string, payload interface{}, ttl time.Duration) bool {
	redisRepo.preRequest()
	ctx := context.Background()
	_, err := redisRepo.Client.Set(ctx, key, payload, ttl).Result()
	if err != nil {
		logger.Error("redis error occured while running CreateEntry", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "key",
			Data: key,
		})
		return false
	}
	return true
}

func (redisRepo *RedisRepository) FindOne(key string) *string {
	redisRepo.preRequest()
	ctx := context.Background()

	result, err := redisRepo.Client.Get(ctx, key).Result()

	if err != nil {
		if err == redis.Nil {
			return nil
		}
		logger.Error("redis error occured while running FindOne", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "key",
			Data: key,
		})
		return nil
	}
	return &result
}

func (redisRepo *RedisRepository) DeleteOne(key string) bool {
	redisRepo.preRequest()
	ctx := context.Background()

	result, err := redisRepo.Client.Del(ctx, key).Result()

	if err != nil {
		logger.Error("redis error occured while running DeleteOne", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "key",
			Data: key,
		})
		return false
	}
	return int(result) == 1
}

func (redisRepo *RedisRepository) CreateInSortedSet(key string, score float64, member interface{}, ttl time.Duration) error {
	redisRepo.preRequest()
	ctx := context.Background()
	added := redisRepo.Client.ZAdd(ctx, key, redis.Z{
		Score: score, Member: member,
	})

	if err := added.Err(); err != nil {
		logger.Error("redis error occured while running CreateInSortedSet", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "key",
			Data: key,
		})
		return err
	}

	if ttl > 0 {
		redisRepo.Client.Expire(ctx, key, ttl)
	}
	return nil
}

// FindSortedSetByScore returns members of a sorted set whose scores lie in
// [min, max].
func (redisRepo *RedisRepository) FindSortedSetByScore(key string, min string, max string) (*[]string, error) {
	redisRepo.preRequest()
	ctx := context.Background()

	result := redisRepo.Client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: min,
		Max: max,
	})
	if err := result.Err(); err != nil {
		logger.Error("redis error occured while running FindSortedSetByScore", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "key",
			Data: key,
		})
		return nil, err
	}

	val := result.Val()
	return &val, nil
}

// TrimSortedSetByScore drops members with scores in [min, max]. Used to expire
// old entries from history windows.
func (redisRepo *RedisRepository) TrimSortedSetByScore(key string, min string, max string) {
	redisRepo.preRequest()
	ctx := context.Background()

	if err := redisRepo.Client.ZRemRangeByScore(ctx, key, min, max).Err(); err != nil {
		logger.Error("redis error occured while running TrimSortedSetByScore", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "key",
			Data: key,
		})
	}
}
