package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const sellerActiveKeyPrefix = "seller:active:"

// SellerActivityMiddleware marks authenticated sellers as recently active in redis.
func SellerActivityMiddleware(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("userID")
		if !ok {
			c.Next()
			return
		}
		userID, ok := userIDVal.(uint)
		if !ok {
			c.Next()
			return
		}

		if ttl <= 0 {
			ttl = 10 * time.Minute
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		key := fmt.Sprintf("%s%d", sellerActiveKeyPrefix, userID)
		_ = rdb.Set(ctx, key, "1", ttl).Err()

		c.Next()
	}
}
