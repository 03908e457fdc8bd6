package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/the-flip/core/internal/pkg/response"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	rateLimitMax    = 50
	rateLimitWindow = time.Second
)

// RateLimit returns a middleware that enforces a per-IP window of 50
// requests per second for anonymous traffic. Authenticated staff bypass it;
// since the limiter runs before any route-level Auth, it validates the
// bearer token itself when one is present.
func RateLimit(rdb *redis.Client, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAuthenticated(c) {
			c.Next()
			return
		}
		if token := extractToken(c); token != "" {
			if _, err := ValidateTokenClaims(db, token); err == nil {
				c.Next()
				return
			}
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		windowKey := time.Now().Unix()
		key := fmt.Sprintf("flip:rate_limit:%s:%d", ip, windowKey)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Redis trouble should not take the site down; fall back to a
			// process-local token bucket.
			if !localAllow(ip) {
				response.TooManyRequests(c, "slow down")
				return
			}
			c.Next()
			return
		}

		if count == 1 {
			rdb.PExpire(ctx, key, rateLimitWindow+time.Second)
		}

		if count > rateLimitMax {
			response.TooManyRequests(c, "slow down")
			return
		}

		c.Next()
	}
}

var localLimiters sync.Map // ip → *rate.Limiter

func localAllow(ip string) bool {
	v, _ := localLimiters.LoadOrStore(ip, rate.NewLimiter(rate.Limit(rateLimitMax), rateLimitMax))
	return v.(*rate.Limiter).Allow()
}
