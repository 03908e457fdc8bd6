package settings

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/the-flip/core/internal/models"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.OptionModel{}, &models.ActivityModel{}))
	return NewService(db), db
}

func TestGetCreatesDefaults(t *testing.T) {
	svc, db := newTestService(t)

	cfg, err := svc.Get()
	require.NoError(t, err)
	assert.True(t, cfg.ProblemReports.AllowAnonymous)
	assert.Equal(t, 24, cfg.ProblemReports.WindowHours)
	assert.Equal(t, 3, cfg.ProblemReports.MaxPerWindow)

	// The defaults are persisted on first read.
	var opt models.OptionModel
	require.NoError(t, db.Where("name = ?", settingsKey).First(&opt).Error)
	assert.NotEmpty(t, opt.Value)
}

func TestPatchDeepMerges(t *testing.T) {
	svc, db := newTestService(t)

	cfg, err := svc.Patch(map[string]json.RawMessage{
		"site": json.RawMessage(`{"name": "The Flip"}`),
		"problem_reports": json.RawMessage(`{"max_per_window": 5}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "The Flip", cfg.Site.Name)
	// Sibling keys inside a patched section survive the merge.
	assert.Equal(t, 5, cfg.ProblemReports.MaxPerWindow)
	assert.Equal(t, 24, cfg.ProblemReports.WindowHours)
	assert.True(t, cfg.ProblemReports.AllowAnonymous)

	// The merge is persisted: a fresh service sees the patched values.
	fresh := NewService(db)
	cfg2, err := fresh.Get()
	require.NoError(t, err)
	assert.Equal(t, "The Flip", cfg2.Site.Name)
	assert.Equal(t, 5, cfg2.ProblemReports.MaxPerWindow)
}

func TestInvalidate(t *testing.T) {
	svc, db := newTestService(t)

	_, err := svc.Get()
	require.NoError(t, err)

	// Mutate the row behind the cache's back.
	other := NewService(db)
	_, err = other.Patch(map[string]json.RawMessage{
		"site": json.RawMessage(`{"name": "Side Door"}`),
	})
	require.NoError(t, err)

	cached, err := svc.Get()
	require.NoError(t, err)
	assert.NotEqual(t, "Side Door", cached.Site.Name)

	svc.Invalidate()
	reloaded, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "Side Door", reloaded.Site.Name)
}

func TestDeepMergeJSON(t *testing.T) {
	testCases := []struct {
		name     string
		existing string
		incoming string
		expected string
	}{
		{
			name:     "nested maps merge",
			existing: `{"a": {"x": 1, "y": 2}}`,
			incoming: `{"a": {"y": 3}}`,
			expected: `{"a": {"x": 1, "y": 3}}`,
		},
		{
			name:     "arrays replaced wholesale",
			existing: `{"exts": ["jpg", "png"]}`,
			incoming: `{"exts": ["webp"]}`,
			expected: `{"exts": ["webp"]}`,
		},
		{
			name:     "scalar replaces map",
			existing: `{"a": {"x": 1}}`,
			incoming: `{"a": 7}`,
			expected: `{"a": 7}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var existing, incoming, expected interface{}
			require.NoError(t, json.Unmarshal([]byte(tc.existing), &existing))
			require.NoError(t, json.Unmarshal([]byte(tc.incoming), &incoming))
			require.NoError(t, json.Unmarshal([]byte(tc.expected), &expected))
			assert.Equal(t, expected, deepMergeJSON(existing, incoming))
		})
	}
}
