package config

import "time"

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStore() string {
	return GetEnv("STORE", StoreMemory)
}

func (Store) GetOrderTTL() time.Duration {
	return GetEnvDuration("ORDER_TTL", 10*time.Minute)
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Store) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}
