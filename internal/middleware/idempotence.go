package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/the-flip/core/internal/pkg/response"
)

const (
	idempotenceHeader    = "x-idempotence"
	idempotenceTTL       = 60 * time.Second
	idempotenceKeyPrefix = "flip:idempotence:"
)

// markers stored under the redis key while the window is open.
const (
	markInFlight = "0"
	markDone     = "1"
)

// Idempotence rejects duplicate non-GET requests inside a 60 second window.
// Kiosk browsers love double-submitting forms.
func Idempotence(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !idempotenceApplies(c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}

		key, err := resolveIdempotenceKey(c)
		if err != nil || key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		redisKey := idempotenceKeyPrefix + key

		switch val, err := rdb.Get(ctx, redisKey).Result(); {
		case err == nil:
			msg := "an identical request already succeeded; wait a minute before retrying"
			if val == markInFlight {
				msg = "an identical request is still in flight"
			}
			response.Conflict(c, msg)
			return
		case !errors.Is(err, redis.Nil):
			// Redis down: let the request through rather than refuse writes.
			c.Next()
			return
		}

		if err := rdb.Set(ctx, redisKey, markInFlight, idempotenceTTL).Err(); err != nil {
			c.Next()
			return
		}

		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 300 {
			rdb.Set(ctx, redisKey, markDone, redis.KeepTTL)
		} else {
			rdb.Del(ctx, redisKey)
		}
	}
}

// idempotenceApplies filters to mutating requests, minus endpoints where a
// repeat is legitimate (re-login, a second photo of the same playfield).
func idempotenceApplies(method, path string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}

	p := strings.TrimRight(strings.ToLower(strings.TrimSpace(path)), "/")
	switch p {
	case "/api/v1/auth/login", "/api/v1/media/upload":
		return false
	}
	return true
}

// resolveIdempotenceKey prefers the client-provided header; without one it
// digests method, URL, body, and caller identity.
func resolveIdempotenceKey(c *gin.Context) (string, error) {
	if hdr := c.GetHeader(idempotenceHeader); hdr != "" {
		return hdr, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	ua := c.Request.UserAgent()
	ip := c.ClientIP()
	authToken := NormalizeToken(c.GetHeader("Authorization"))

	if len(body) == 0 && ua == "" && ip == "" && authToken == "" {
		return "", nil
	}

	raw := c.Request.Method + "|" + c.Request.URL.String() + "|" + string(body) + "|" + ua + "|" + ip + "|" + authToken
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:]), nil
}
