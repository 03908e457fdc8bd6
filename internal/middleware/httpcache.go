package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	apiCachePrefix      = "flip:api-cache:"
	defaultHTTPCacheTTL = 15 * time.Second
	httpCacheMaxBody    = 1 << 20 // 1 MiB
)

// HTTPCacheOptions tunes the anonymous GET response cache.
type HTTPCacheOptions struct {
	TTL       time.Duration
	Disable   bool
	SkipPaths []string
}

type cachedHTTPResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	BodyBase64  string `json:"body_base64"`
	body        []byte
}

type cacheBodyWriter struct {
	gin.ResponseWriter
	body     []byte
	overflow bool
}

func (w *cacheBodyWriter) Write(data []byte) (int, error) {
	w.capture(data)
	return w.ResponseWriter.Write(data)
}

func (w *cacheBodyWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *cacheBodyWriter) capture(data []byte) {
	if w.overflow || len(data) == 0 {
		return
	}
	remaining := httpCacheMaxBody - len(w.body)
	if remaining <= 0 || len(data) > remaining {
		w.overflow = true
		return
	}
	w.body = append(w.body, data...)
}

// HTTPCache caches successful anonymous GET responses in Redis for a short
// TTL. The visitor kiosks poll the machine list aggressively; this keeps
// those reads off the database.
func HTTPCache(rdb *redis.Client, opts HTTPCacheOptions) gin.HandlerFunc {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultHTTPCacheTTL
	}
	return func(c *gin.Context) {
		if opts.Disable || rdb == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		if shouldSkipCachePath(c.Request.URL.Path, opts.SkipPaths) || IsAuthenticated(c) {
			c.Next()
			return
		}

		cacheKey := apiCachePrefix + c.Request.URL.RequestURI()
		if payload, ok := readCachedResponse(c.Request.Context(), rdb, cacheKey); ok {
			c.Header("X-Flip-Cache", "hit")
			c.Data(payload.Status, payload.ContentType, payload.body)
			c.Abort()
			return
		}

		buffer := &cacheBodyWriter{ResponseWriter: c.Writer}
		c.Writer = buffer
		c.Next()

		status := c.Writer.Status()
		if status != http.StatusOK || buffer.overflow || len(buffer.body) == 0 {
			return
		}
		entry := cachedHTTPResponse{
			Status:      status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			BodyBase64:  base64.StdEncoding.EncodeToString(buffer.body),
		}
		if data, err := json.Marshal(entry); err == nil {
			rdb.Set(c.Request.Context(), cacheKey, data, ttl)
		}
	}
}

func readCachedResponse(ctx context.Context, rdb *redis.Client, key string) (*cachedHTTPResponse, bool) {
	data, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var entry cachedHTTPResponse
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	body, err := base64.StdEncoding.DecodeString(entry.BodyBase64)
	if err != nil {
		return nil, false
	}
	entry.body = body
	return &entry, true
}

func shouldSkipCachePath(path string, skip []string) bool {
	for _, s := range skip {
		if s == "" {
			continue
		}
		if strings.HasPrefix(path, s) {
			return true
		}
	}
	return false
}
