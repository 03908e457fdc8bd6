package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/the-flip/core/internal/models"
)

func TestSlugify(t *testing.T) {
	testCases := []struct {
		name     string
		in       string
		expected string
	}{
		{"simple", "Medieval Madness", "medieval-madness"},
		{"punctuation collapsed", "Who Dunnit?!", "who-dunnit"},
		{"leading and trailing junk", "  --The Addams Family-- ", "the-addams-family"},
		{"digits kept", "Pin-Bot 2000", "pin-bot-2000"},
		{"already clean", "centaur", "centaur"},
		{"only junk", "!!!", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, slugify(tc.in))
		})
	}
}

func TestUniquifySlug(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.MachineModel{}))

	require.NoError(t, db.Create(&models.MachineModel{Name: "Funhouse", Slug: "funhouse"}).Error)
	require.NoError(t, db.Create(&models.MachineModel{Name: "Funhouse Remake", Slug: "funhouse-2"}).Error)

	assert.Equal(t, "funhouse-3", uniquifySlug(db, "machine_models", "funhouse", ""))
	assert.Equal(t, "taxi", uniquifySlug(db, "machine_models", "taxi", ""))

	// An empty base falls back to "machine".
	assert.Equal(t, "machine", uniquifySlug(db, "machine_models", "", ""))

	// Renaming a machine to its own slug is not a collision.
	var fh models.MachineModel
	require.NoError(t, db.Where("slug = ?", "funhouse").First(&fh).Error)
	assert.Equal(t, "funhouse", uniquifySlug(db, "machine_models", "funhouse", fh.ID))
}
