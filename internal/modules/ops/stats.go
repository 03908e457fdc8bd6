package ops

import (
	"github.com/the-flip/core/internal/models"
	"gorm.io/gorm"
)

// AggregateStats is the dashboard counts payload.
type AggregateStats struct {
	Machines  int64            `json:"machines"`
	Instances map[string]int64 `json:"instances"`
	OnFloor   int64            `json:"on_floor"`
	Reports   map[string]int64 `json:"reports"`
	Parts     map[string]int64 `json:"parts"`
	LogsTotal int64            `json:"logs_total"`
	Media     map[string]int64 `json:"media"`
	Webhooks  int64            `json:"webhooks"`
}

func collectStats(db *gorm.DB) (*AggregateStats, error) {
	stats := &AggregateStats{
		Instances: map[string]int64{},
		Reports:   map[string]int64{},
		Parts:     map[string]int64{},
		Media:     map[string]int64{},
	}

	if err := db.Model(&models.MachineModel{}).Count(&stats.Machines).Error; err != nil {
		return nil, err
	}
	if err := countByColumn(db, &models.MachineInstanceModel{}, "status", stats.Instances); err != nil {
		return nil, err
	}
	db.Model(&models.MachineInstanceModel{}).Where("on_floor = ?", true).Count(&stats.OnFloor)
	if err := countByColumn(db, &models.ProblemReportModel{}, "status", stats.Reports); err != nil {
		return nil, err
	}
	if err := countByColumn(db, &models.PartRequestModel{}, "status", stats.Parts); err != nil {
		return nil, err
	}
	db.Model(&models.LogEntryModel{}).Count(&stats.LogsTotal)
	if err := countByColumn(db, &models.MediaAttachmentModel{}, "status", stats.Media); err != nil {
		return nil, err
	}
	db.Model(&models.WebhookModel{}).Where("enabled = ?", true).Count(&stats.Webhooks)

	return stats, nil
}

func countByColumn(db *gorm.DB, model interface{}, column string, out map[string]int64) error {
	var rows []struct {
		Item  string
		Count int64
	}
	err := db.Model(model).
		Select(column + " AS item, COUNT(*) AS count").
		Group(column).Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, r := range rows {
		out[r.Item] = r.Count
	}
	return nil
}
