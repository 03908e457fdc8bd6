package settings

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/the-flip/core/internal/config"
	"github.com/the-flip/core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const settingsKey = "settings"

// Service manages the persisted SiteSettings singleton. The decoded value
// is cached in memory; Patch and Invalidate keep it coherent.
type Service struct {
	db  *gorm.DB
	mu  sync.RWMutex
	cfg *config.SiteSettings
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Get returns the current settings, loading from DB if not cached.
func (s *Service) Get() (*config.SiteSettings, error) {
	s.mu.RLock()
	if s.cfg != nil {
		defer s.mu.RUnlock()
		return s.cfg, nil
	}
	s.mu.RUnlock()

	return s.load()
}

func (s *Service) load() (*config.SiteSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var opt models.OptionModel
	err := s.db.Where("name = ?", settingsKey).First(&opt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		defaults := config.DefaultSiteSettings()
		s.cfg = &defaults
		_ = s.persist(&defaults)
		return s.cfg, nil
	}
	if err != nil {
		return nil, err
	}

	cfg := config.DefaultSiteSettings()
	if err := json.Unmarshal([]byte(opt.Value), &cfg); err != nil {
		return nil, err
	}
	s.cfg = &cfg
	return s.cfg, nil
}

// Patch merges the given partial JSON update into the current settings and
// persists the result.
func (s *Service) Patch(partial map[string]json.RawMessage) (*config.SiteSettings, error) {
	current, err := s.Get()
	if err != nil {
		return nil, err
	}

	currentJSON, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}
	merged := map[string]interface{}{}
	if err := json.Unmarshal(currentJSON, &merged); err != nil {
		return nil, err
	}

	for k, v := range partial {
		if len(strings.TrimSpace(string(v))) == 0 {
			continue
		}
		var incoming interface{}
		if err := json.Unmarshal(v, &incoming); err != nil {
			return nil, err
		}
		if existing, ok := merged[k]; ok {
			merged[k] = deepMergeJSON(existing, incoming)
			continue
		}
		merged[k] = incoming
	}

	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}

	updated := config.DefaultSiteSettings()
	if err := json.Unmarshal(mergedJSON, &updated); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cfg = &updated
	s.mu.Unlock()

	return &updated, s.persist(&updated)
}

func (s *Service) persist(cfg *config.SiteSettings) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	opt := models.OptionModel{Name: settingsKey, Value: string(data)}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&opt).Error
}

// recordPatch writes an activity row listing the top-level keys an admin
// touched. Values stay out of the log; settings hold tokens and secrets.
func (s *Service) recordPatch(actorID string, partial map[string]json.RawMessage) {
	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	payload, _ := json.Marshal(map[string]interface{}{"keys": keys})
	s.db.Create(&models.ActivityModel{Type: "settings_patch", ActorID: actorID, Payload: string(payload)})
}

// Invalidate clears the in-memory cache, forcing a DB reload on next Get.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = nil
}

// deepMergeJSON merges incoming into existing. Maps merge recursively;
// everything else (including arrays) is replaced wholesale.
func deepMergeJSON(existing, incoming interface{}) interface{} {
	existingMap, okA := existing.(map[string]interface{})
	incomingMap, okB := incoming.(map[string]interface{})
	if !okA || !okB {
		return incoming
	}
	for k, v := range incomingMap {
		if cur, ok := existingMap[k]; ok {
			existingMap[k] = deepMergeJSON(cur, v)
		} else {
			existingMap[k] = v
		}
	}
	return existingMap
}
