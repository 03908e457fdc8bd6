package discord

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/the-flip/core/internal/models"
)

func newRefService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ProblemReportModel{}))
	return NewService(db, zap.NewNop(), nil, nil, nil), db
}

func seedReport(t *testing.T, db *gorm.DB, id string, status models.ReportStatus, age time.Duration) {
	t.Helper()
	r := models.ProblemReportModel{
		InstanceID:  "inst-1",
		Description: "left flipper weak",
		Status:      status,
	}
	r.ID = id
	r.CreatedAt = time.Now().Add(-age)
	require.NoError(t, db.Create(&r).Error)
}

func TestResolveReportRefPrefersNewest(t *testing.T) {
	svc, db := newRefService(t)

	seedReport(t, db, "482aaa00-0000-0000-0000-000000000001", models.ReportOpen, 2*time.Hour)
	seedReport(t, db, "482bbb00-0000-0000-0000-000000000002", models.ReportOpen, time.Hour)

	got := svc.resolveReportRef("inst-1", []string{"482"})
	assert.Equal(t, "482bbb00-0000-0000-0000-000000000002", got)
}

func TestResolveReportRefSkipsClosedReports(t *testing.T) {
	svc, db := newRefService(t)

	seedReport(t, db, "910aaa00-0000-0000-0000-000000000001", models.ReportOpen, 2*time.Hour)
	seedReport(t, db, "910bbb00-0000-0000-0000-000000000002", models.ReportResolved, time.Hour)

	got := svc.resolveReportRef("inst-1", []string{"910"})
	assert.Equal(t, "910aaa00-0000-0000-0000-000000000001", got)

	assert.Empty(t, svc.resolveReportRef("inst-1", []string{"777"}))
	assert.Empty(t, svc.resolveReportRef("", []string{"910"}))
}

func TestSummarizeKeepsRunesWhole(t *testing.T) {
	long := strings.Repeat("ü", 100)
	got := summarize(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("ü", 77)+"...", got)

	short := "flipper dead"
	assert.Equal(t, short, summarize(short))
}
