package cache

import (
	"context"
	"os"

	"github.com/redis/go-redis/v9"
	"veriface.io/infrastructure/logger"
)

var (
	Client *redis.Client
)

func ConnectToCache() {
	connectRedis()
}

func connectRedis() {
	opt := &redis.Options{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
		PoolSize: 10,
	}
	Client = redis.NewClient(opt)
	if err := Client.Ping(context.Background()).Err(); err != nil {
		logger.Warning("could not reach redis", logger.LoggerOptions{Key: "error", Data: err})
		return
	}
	logger.Info("connected to redis successfully")
}

func GetInstance() *redis.Client {
	if Client == nil {
		connectRedis()
	}
	return Client
}
