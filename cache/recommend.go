// cache/recommend.go - Redis cache for recommendation pages
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"teammatcher/models"
)

const (
	recommendKeyFormat = "teammatcher:user:recommend:%d"
	recommendTTL       = 30 * time.Second
)

// RecommendCache keeps per-user recommendation pages in Redis for a short
// window to take read pressure off the database. A nil cache is valid and
// simply misses on every read.
type RecommendCache struct {
	client *redis.Client
}

// NewRecommendCache connects to Redis and verifies the connection.
func NewRecommendCache(addr, password string, db int) (*RecommendCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RecommendCache{client: client}, nil
}

// Get returns the cached page for userID, or ok=false on a miss.
func (c *RecommendCache) Get(ctx context.Context, userID uint) ([]models.User, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, fmt.Sprintf(recommendKeyFormat, userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var users []models.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, false
	}
	return users, true
}

// Set stores a page for userID. Failures are returned for logging only;
// the cache is best-effort and callers must not treat them as fatal.
func (c *RecommendCache) Set(ctx context.Context, userID uint, users []models.User) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, fmt.Sprintf(recommendKeyFormat, userID), raw, recommendTTL).Err()
}

// Close releases the underlying Redis connection.
func (c *RecommendCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
