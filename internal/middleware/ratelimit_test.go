package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/the-flip/core/internal/models"
)

func newRateLimitRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.MaintainerModel{}, &models.APIToken{}))

	r := gin.New()
	r.Use(RateLimit(rdb, db))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r, db
}

func hammer(r *gin.Engine, n int, authorization string) (ok, limited int) {
	for i := 0; i < n; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		switch w.Code {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			limited++
		}
	}
	return ok, limited
}

func TestRateLimitCapsAnonymousTraffic(t *testing.T) {
	r, _ := newRateLimitRouter(t)

	// 101 requests cannot fit two adjacent 50-per-second windows, so at
	// least one must be rejected however the clock falls.
	_, limited := hammer(r, 101, "")
	assert.Greater(t, limited, 0)
}

func TestRateLimitBypassesStaffToken(t *testing.T) {
	r, db := newRateLimitRouter(t)

	staff := models.MaintainerModel{Username: "kay", Password: "x"}
	require.NoError(t, db.Create(&staff).Error)
	require.NoError(t, db.Create(&models.APIToken{
		MaintainerID: staff.ID,
		Token:        "flp_ci_token",
		Name:         "ci",
	}).Error)

	ok, limited := hammer(r, 101, "Bearer flp_ci_token")
	assert.Equal(t, 101, ok)
	assert.Zero(t, limited)
}

func TestRateLimitIgnoresBogusToken(t *testing.T) {
	r, _ := newRateLimitRouter(t)

	_, limited := hammer(r, 101, "Bearer not-a-real-token")
	assert.Greater(t, limited, 0)
}
