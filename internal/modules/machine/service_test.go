package machine

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

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.MachineModel{},
		&models.MachineInstanceModel{},
		&models.LogEntryModel{},
		&models.WebhookModel{},
		&models.WebhookEventModel{},
	))
	return NewService(db, zap.NewNop(), webhook.NewService(db, zap.NewNop())), db
}

func TestCreateModel(t *testing.T) {
	svc, _ := newTestService(t)

	m, err := svc.CreateModel(&CreateModelDTO{Name: "Medieval Madness", Manufacturer: "Williams"})
	require.NoError(t, err)
	assert.Equal(t, "medieval-madness", m.Slug)
	assert.Equal(t, models.MachineSolidState, m.MachineType)

	// Same name is a conflict.
	_, err = svc.CreateModel(&CreateModelDTO{Name: "Medieval Madness"})
	assert.ErrorIs(t, err, ErrNameTaken)

	// A colliding slug from a different name gets a suffix.
	m2, err := svc.CreateModel(&CreateModelDTO{Name: "Medieval Madness!"})
	require.NoError(t, err)
	assert.Equal(t, "medieval-madness-2", m2.Slug)
}

func TestGetModelBySlugOrID(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.CreateModel(&CreateModelDTO{Name: "Attack From Mars"})
	require.NoError(t, err)

	byID, err := svc.GetModel(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)

	bySlug, err := svc.GetModel("attack-from-mars")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)

	_, err = svc.GetModel("no-such-machine")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestChangeStatusWritesOneLogEntry(t *testing.T) {
	svc, db := newTestService(t)

	m, err := svc.CreateModel(&CreateModelDTO{Name: "Taxi"})
	require.NoError(t, err)
	inst, err := svc.CreateInstance(&CreateInstanceDTO{ModelID: m.ID, AssetTag: "TAXI-01", Zone: "70s"})
	require.NoError(t, err)
	assert.Equal(t, models.InstanceOperational, inst.Status)

	updated, err := svc.ChangeStatus(inst.ID, &ChangeStatusDTO{
		Status: models.InstanceOutOfOrder,
		Note:   "right flipper dead",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, models.InstanceOutOfOrder, updated.Status)

	var entries []models.LogEntryModel
	require.NoError(t, db.Where("instance_id = ?", inst.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, models.SourceSystem, entries[0].Source)
	assert.Equal(t, "Status changed from operational to out_of_order: right flipper dead", entries[0].Text)

	// Re-applying the same status is a no-op: no second entry.
	_, err = svc.ChangeStatus(inst.ID, &ChangeStatusDTO{Status: models.InstanceOutOfOrder}, "")
	require.NoError(t, err)
	var count int64
	db.Model(&models.LogEntryModel{}).Where("instance_id = ?", inst.ID).Count(&count)
	assert.EqualValues(t, 1, count)

	// An unknown status is rejected.
	_, err = svc.ChangeStatus(inst.ID, &ChangeStatusDTO{Status: "on-fire"}, "")
	assert.ErrorIs(t, err, ErrBadStatus)
}

func TestDeleteModelWithInstances(t *testing.T) {
	svc, _ := newTestService(t)
	m, err := svc.CreateModel(&CreateModelDTO{Name: "Centaur"})
	require.NoError(t, err)
	_, err = svc.CreateInstance(&CreateInstanceDTO{ModelID: m.ID, AssetTag: "CEN-01"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteModel(m.ID), ErrHasInstances)
}

func TestAutocomplete(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateModel(&CreateModelDTO{
		Name:          "The Addams Family",
		Abbreviations: []string{"TAF"},
	})
	require.NoError(t, err)
	_, err = svc.CreateModel(&CreateModelDTO{Name: "Twilight Zone"})
	require.NoError(t, err)

	hits, err := svc.Autocomplete("addams")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "The Addams Family", hits[0].Name)

	hits, err = svc.Autocomplete("taf")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "The Addams Family", hits[0].Name)

	hits, err = svc.Autocomplete("")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRecreateModelAfterDelete(t *testing.T) {
	svc, _ := newTestService(t)

	first, err := svc.CreateModel(&CreateModelDTO{Name: "Taxi", Manufacturer: "Williams"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteModel(first.ID))

	// The soft-deleted row must not block a new title with the same name,
	// and the slug is free again.
	second, err := svc.CreateModel(&CreateModelDTO{Name: "Taxi", Manufacturer: "Williams"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "taxi", second.Slug)
}

func TestReuseAssetTagAfterDelete(t *testing.T) {
	svc, _ := newTestService(t)

	m, err := svc.CreateModel(&CreateModelDTO{Name: "Whirlwind"})
	require.NoError(t, err)

	inst, err := svc.CreateInstance(&CreateInstanceDTO{ModelID: m.ID, AssetTag: "WW-01"})
	require.NoError(t, err)

	// A live duplicate is still a conflict.
	_, err = svc.CreateInstance(&CreateInstanceDTO{ModelID: m.ID, AssetTag: "WW-01"})
	assert.ErrorIs(t, err, ErrAssetTagTaken)

	require.NoError(t, svc.DeleteInstance(inst.ID))

	again, err := svc.CreateInstance(&CreateInstanceDTO{ModelID: m.ID, AssetTag: "WW-01"})
	require.NoError(t, err)
	assert.NotEqual(t, inst.ID, again.ID)
}
