package worklog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/the-flip/core/internal/models"
	"github.com/the-flip/core/internal/modules/webhook"
)

type fixture struct {
	svc      *Service
	db       *gorm.DB
	instance models.MachineInstanceModel
	staff    models.MaintainerModel
	kiosk    models.MaintainerModel
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.MachineModel{},
		&models.MachineInstanceModel{},
		&models.ProblemReportModel{},
		&models.LogEntryModel{},
		&models.MaintainerModel{},
		&models.WebhookModel{},
		&models.WebhookEventModel{},
	))

	m := models.MachineModel{Name: "Black Knight", Slug: "black-knight"}
	require.NoError(t, db.Create(&m).Error)
	inst := models.MachineInstanceModel{ModelID: m.ID, AssetTag: "BK-01", OnFloor: true, Status: models.InstanceOperational}
	require.NoError(t, db.Create(&inst).Error)
	staff := models.MaintainerModel{Username: "ren", Password: "x"}
	require.NoError(t, db.Create(&staff).Error)
	kiosk := models.MaintainerModel{Username: "workshop", Password: "x", SharedTerminal: true}
	require.NoError(t, db.Create(&kiosk).Error)

	return fixture{
		svc:      NewService(db, zap.NewNop(), webhook.NewService(db, zap.NewNop())),
		db:       db,
		instance: inst,
		staff:    staff,
		kiosk:    kiosk,
	}
}

func (f fixture) openReport(t *testing.T) models.ProblemReportModel {
	t.Helper()
	r := models.ProblemReportModel{
		InstanceID:  f.instance.ID,
		Description: "left sling dead",
		Severity:    models.SeverityPlayable,
		Status:      models.ReportOpen,
		Source:      models.SourceWeb,
	}
	require.NoError(t, f.db.Create(&r).Error)
	return r
}

func TestCreateEntry(t *testing.T) {
	f := newFixture(t)

	e, err := f.svc.Create(&CreateEntryDTO{
		InstanceID: f.instance.ID,
		Text:       "Cleaned playfield, replaced rubbers.",
	}, f.staff.ID, models.SourceWeb)
	require.NoError(t, err)
	require.NotNil(t, e.MaintainerID)
	assert.Equal(t, f.staff.ID, *e.MaintainerID)

	_, err = f.svc.Create(&CreateEntryDTO{InstanceID: "nope", Text: "x"}, f.staff.ID, models.SourceWeb)
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestCreateEntryClosesReport(t *testing.T) {
	f := newFixture(t)
	r := f.openReport(t)

	_, err := f.svc.Create(&CreateEntryDTO{
		InstanceID:   f.instance.ID,
		Text:         "Resoldered the sling switch.",
		ReportID:     &r.ID,
		ClosesReport: true,
	}, f.staff.ID, models.SourceWeb)
	require.NoError(t, err)

	var got models.ProblemReportModel
	require.NoError(t, f.db.Where("id = ?", r.ID).First(&got).Error)
	assert.Equal(t, models.ReportResolved, got.Status)
	assert.NotNil(t, got.ResolvedAt)

	// A second closing entry against the now-resolved report is rejected.
	_, err = f.svc.Create(&CreateEntryDTO{
		InstanceID:   f.instance.ID,
		Text:         "again",
		ReportID:     &r.ID,
		ClosesReport: true,
	}, f.staff.ID, models.SourceWeb)
	assert.ErrorIs(t, err, ErrReportClosed)
}

func TestCreateEntryReportGuards(t *testing.T) {
	f := newFixture(t)
	r := f.openReport(t)

	// closes_report without a linked report.
	_, err := f.svc.Create(&CreateEntryDTO{
		InstanceID:   f.instance.ID,
		Text:         "x",
		ClosesReport: true,
	}, f.staff.ID, models.SourceWeb)
	assert.ErrorIs(t, err, ErrCloseWithoutReport)

	// Linked report must exist.
	missing := "does-not-exist"
	_, err = f.svc.Create(&CreateEntryDTO{
		InstanceID: f.instance.ID,
		Text:       "x",
		ReportID:   &missing,
	}, f.staff.ID, models.SourceWeb)
	assert.ErrorIs(t, err, ErrReportNotFound)

	// Linked report must belong to the same instance.
	other := models.MachineInstanceModel{ModelID: f.instance.ModelID, AssetTag: "BK-02"}
	require.NoError(t, f.db.Create(&other).Error)
	_, err = f.svc.Create(&CreateEntryDTO{
		InstanceID: other.ID,
		Text:       "x",
		ReportID:   &r.ID,
	}, f.staff.ID, models.SourceWeb)
	assert.ErrorIs(t, err, ErrReportMismatch)
}

func TestSharedTerminalNeedsAttribution(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(&CreateEntryDTO{
		InstanceID: f.instance.ID,
		Text:       "Waxed the playfield.",
	}, f.kiosk.ID, models.SourceWeb)
	assert.ErrorIs(t, err, ErrNeedsAttribution)

	e, err := f.svc.Create(&CreateEntryDTO{
		InstanceID:  f.instance.ID,
		Text:        "Waxed the playfield.",
		Attribution: "Sam",
	}, f.kiosk.ID, models.SourceWeb)
	require.NoError(t, err)
	assert.Equal(t, "Sam", e.Attribution)
}
