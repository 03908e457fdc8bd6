package part

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

func newTestService(t *testing.T) (*Service, *gorm.DB, models.MachineInstanceModel) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.MachineModel{},
		&models.MachineInstanceModel{},
		&models.PartRequestModel{},
		&models.PartUpdateModel{},
		&models.WebhookModel{},
		&models.WebhookEventModel{},
	))

	m := models.MachineModel{Name: "Fish Tales", Slug: "fish-tales"}
	require.NoError(t, db.Create(&m).Error)
	inst := models.MachineInstanceModel{ModelID: m.ID, AssetTag: "FT-01"}
	require.NoError(t, db.Create(&inst).Error)

	return NewService(db, zap.NewNop(), webhook.NewService(db, zap.NewNop())), db, inst
}

func TestCreateRequest(t *testing.T) {
	svc, _, inst := newTestService(t)

	r, err := svc.Create(&CreateRequestDTO{InstanceID: inst.ID, PartName: "flipper coil"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.PartRequested, r.Status)
	assert.Equal(t, 1, r.Quantity)

	_, err = svc.Create(&CreateRequestDTO{InstanceID: "nope", PartName: "x"}, "")
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestChangeStatusAppendsHistory(t *testing.T) {
	svc, db, inst := newTestService(t)

	r, err := svc.Create(&CreateRequestDTO{InstanceID: inst.ID, PartName: "drop target", Quantity: 3}, "")
	require.NoError(t, err)

	r, err = svc.ChangeStatus(r.ID, &ChangeStatusDTO{Status: models.PartOrdered, Note: "Marco order #5512"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.PartOrdered, r.Status)
	require.Len(t, r.Updates, 1)
	assert.Equal(t, models.PartRequested, r.Updates[0].OldStatus)
	assert.Equal(t, models.PartOrdered, r.Updates[0].NewStatus)
	assert.Equal(t, "Marco order #5512", r.Updates[0].Note)

	// Same status again: no new history row.
	r, err = svc.ChangeStatus(r.ID, &ChangeStatusDTO{Status: models.PartOrdered}, "")
	require.NoError(t, err)
	var count int64
	db.Model(&models.PartUpdateModel{}).Where("request_id = ?", r.ID).Count(&count)
	assert.EqualValues(t, 1, count)

	r, err = svc.ChangeStatus(r.ID, &ChangeStatusDTO{Status: models.PartReceived}, "")
	require.NoError(t, err)
	require.Len(t, r.Updates, 2)
	assert.Equal(t, models.PartOrdered, r.Updates[1].OldStatus)

	_, err = svc.ChangeStatus(r.ID, &ChangeStatusDTO{Status: "lost"}, "")
	assert.ErrorIs(t, err, ErrBadStatus)
}
