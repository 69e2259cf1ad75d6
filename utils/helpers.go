// Package utils holds small shared helpers.
package utils

import (
	"github.com/redis/go-redis/v9"
)

// GetRedis returns a *redis.Client for the given address, falling back to the
// local default when empty.
func GetRedis(addr string) *redis.Client {
	if addr == "" {
		addr = "localhost:6379"
	}
	return redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
}
