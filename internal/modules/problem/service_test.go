package problem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/the-flip/core/internal/models"
	appsettings "github.com/the-flip/core/internal/modules/settings"
	"github.com/the-flip/core/internal/modules/webhook"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.MachineModel{},
		&models.MachineInstanceModel{},
		&models.ProblemReportModel{},
		&models.MaintainerModel{},
		&models.WebhookModel{},
		&models.WebhookEventModel{},
		&models.OptionModel{},
		&models.ActivityModel{},
	))
	svc := NewService(db, zap.NewNop(), webhook.NewService(db, zap.NewNop()), appsettings.NewService(db))
	return svc, db
}

func seedInstance(t *testing.T, db *gorm.DB) models.MachineInstanceModel {
	t.Helper()
	m := models.MachineModel{Name: "Whirlwind", Slug: "whirlwind"}
	require.NoError(t, db.Create(&m).Error)
	inst := models.MachineInstanceModel{ModelID: m.ID, AssetTag: "WW-01", OnFloor: true, Status: models.InstanceOperational}
	require.NoError(t, db.Create(&inst).Error)
	return inst
}

func TestCreateReport(t *testing.T) {
	svc, db := newTestService(t)
	inst := seedInstance(t, db)

	r, err := svc.Create(&CreateReportDTO{
		InstanceID:   inst.ID,
		Description:  "ball stuck behind the ramp",
		ReporterName: "visitor",
	}, "10.0.0.1", "", models.SourceWeb)
	require.NoError(t, err)
	assert.Equal(t, models.ReportOpen, r.Status)
	assert.Equal(t, models.SeverityPlayable, r.Severity)

	_, err = svc.Create(&CreateReportDTO{InstanceID: "nope", Description: "x"}, "10.0.0.1", "", models.SourceWeb)
	assert.ErrorIs(t, err, ErrInstanceNotFound)

	_, err = svc.Create(&CreateReportDTO{InstanceID: inst.ID, Description: "x", Severity: "catastrophic"},
		"10.0.0.1", "", models.SourceWeb)
	assert.ErrorIs(t, err, ErrBadSeverity)
}

func TestVisitorQuota(t *testing.T) {
	svc, db := newTestService(t)
	inst := seedInstance(t, db)

	// Default quota is 3 per IP per instance per 24h.
	for i := 0; i < 3; i++ {
		_, err := svc.Create(&CreateReportDTO{InstanceID: inst.ID, Description: "flipper weak"},
			"10.0.0.9", "", models.SourceWeb)
		require.NoError(t, err)
	}
	_, err := svc.Create(&CreateReportDTO{InstanceID: inst.ID, Description: "flipper weak"},
		"10.0.0.9", "", models.SourceWeb)
	assert.ErrorIs(t, err, ErrRateLimited)

	// A different IP is unaffected.
	_, err = svc.Create(&CreateReportDTO{InstanceID: inst.ID, Description: "display out"},
		"10.0.0.10", "", models.SourceWeb)
	assert.NoError(t, err)

	// Maintainers bypass the quota.
	staff := models.MaintainerModel{Username: "kay", Password: "x"}
	require.NoError(t, db.Create(&staff).Error)
	_, err = svc.Create(&CreateReportDTO{InstanceID: inst.ID, Description: "still broken"},
		"10.0.0.9", staff.ID, models.SourceWeb)
	assert.NoError(t, err)

	// Discord-sourced reports carry no meaningful IP and also bypass it.
	_, err = svc.Create(&CreateReportDTO{InstanceID: inst.ID, Description: "reported in chat"},
		"", "", models.SourceDiscord)
	assert.NoError(t, err)
}

func TestVisitorQuotaSurvivesDeletion(t *testing.T) {
	svc, db := newTestService(t)
	inst := seedInstance(t, db)

	var last *models.ProblemReportModel
	for i := 0; i < 3; i++ {
		r, err := svc.Create(&CreateReportDTO{InstanceID: inst.ID, Description: "tilt tilt tilt"},
			"10.0.0.66", "", models.SourceWeb)
		require.NoError(t, err)
		last = r
	}

	// Staff deleting spam must not hand the sender a fresh window.
	require.NoError(t, svc.Delete(last.ID))
	_, err := svc.Create(&CreateReportDTO{InstanceID: inst.ID, Description: "tilt tilt tilt"},
		"10.0.0.66", "", models.SourceWeb)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestChangeStatusStampsResolution(t *testing.T) {
	svc, db := newTestService(t)
	inst := seedInstance(t, db)
	staff := models.MaintainerModel{Username: "mel", Password: "x"}
	require.NoError(t, db.Create(&staff).Error)

	r, err := svc.Create(&CreateReportDTO{InstanceID: inst.ID, Description: "stuck ball"},
		"10.0.0.1", "", models.SourceWeb)
	require.NoError(t, err)

	r, err = svc.ChangeStatus(r.ID, models.ReportResolved, staff.ID)
	require.NoError(t, err)
	require.NotNil(t, r.ResolvedAt)
	require.NotNil(t, r.ResolvedByID)
	assert.Equal(t, staff.ID, *r.ResolvedByID)

	// Reopening clears the resolution stamp.
	r, err = svc.ChangeStatus(r.ID, models.ReportOpen, staff.ID)
	require.NoError(t, err)
	assert.Nil(t, r.ResolvedAt)
	assert.Nil(t, r.ResolvedByID)

	_, err = svc.ChangeStatus(r.ID, "gone", staff.ID)
	assert.ErrorIs(t, err, ErrBadStatus)
}
