package discord

import (
	"fmt"
	"strings"

	"github.com/the-flip/core/internal/models"
	"github.com/the-flip/core/internal/modules/part"
	"github.com/the-flip/core/internal/modules/problem"
	"github.com/the-flip/core/internal/modules/worklog"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IngestResult reports what a chat message turned into.
type IngestResult struct {
	Action    Action `json:"action"`
	RecordID  string `json:"record_id,omitempty"`
	ModelID   string `json:"model_id,omitempty"`
	Instance  string `json:"instance_id,omitempty"`
	ReportID  string `json:"report_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type Service struct {
	db       *gorm.DB
	logger   *zap.Logger
	problems *problem.Service
	worklogs *worklog.Service
	parts    *part.Service
}

func NewService(db *gorm.DB, logger *zap.Logger, problems *problem.Service, worklogs *worklog.Service, parts *part.Service) *Service {
	return &Service{
		db:       db,
		logger:   logger.Named("discord"),
		problems: problems,
		worklogs: worklogs,
		parts:    parts,
	}
}

// Ingest classifies the message and creates the record it calls for.
func (s *Service) Ingest(author, content string) (*IngestResult, error) {
	machines, err := s.machineRefs()
	if err != nil {
		return nil, err
	}

	c := Classify(content, machines)
	result := &IngestResult{Action: c.Action, ModelID: c.ModelID}
	if c.Action == ActionNone {
		result.Detail = "no actionable keywords"
		s.logger.Debug("message ignored", zap.String("author", author))
		return result, nil
	}

	instanceID, err := s.resolveInstance(c.ModelID, content)
	if err != nil {
		return nil, err
	}
	result.Instance = instanceID

	switch c.Action {
	case ActionPartRequest:
		if instanceID == "" {
			result.Action = ActionNone
			result.Detail = "parts request without a recognizable machine"
			return result, nil
		}
		r, err := s.parts.Create(&part.CreateRequestDTO{
			InstanceID: instanceID,
			PartName:   summarize(content),
			Notes:      attributed(author, content),
		}, "")
		if err != nil {
			return nil, err
		}
		result.RecordID = r.ID

	case ActionProblemReport:
		r, err := s.problems.Create(&problem.CreateReportDTO{
			InstanceID:   instanceID,
			Description:  content,
			ReporterName: author,
		}, "", "", models.SourceDiscord)
		if err != nil {
			return nil, err
		}
		result.RecordID = r.ID

	case ActionLogEntry:
		reportID := s.resolveReportRef(instanceID, c.ReportRefs)
		dto := &worklog.CreateEntryDTO{
			InstanceID:  instanceID,
			Text:        content,
			Attribution: author,
		}
		if reportID != "" {
			dto.ReportID = &reportID
			dto.ClosesReport = true
			result.ReportID = reportID
		}
		e, err := s.worklogs.Create(dto, "", models.SourceDiscord)
		if err != nil {
			return nil, err
		}
		result.RecordID = e.ID
	}

	s.logger.Info("message routed",
		zap.String("author", author),
		zap.String("action", string(result.Action)),
		zap.String("record", result.RecordID))
	return result, nil
}

func (s *Service) machineRefs() ([]MachineRef, error) {
	var rows []models.MachineModel
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	refs := make([]MachineRef, 0, len(rows))
	for _, r := range rows {
		refs = append(refs, MachineRef{ModelID: r.ID, Term: r.Name})
		for _, abbr := range r.Abbreviations {
			refs = append(refs, MachineRef{ModelID: r.ID, Term: abbr})
		}
	}
	return refs, nil
}

// resolveInstance picks the unit a message refers to: a literal asset tag in
// the text wins, then the model's first on-floor instance, then any instance.
func (s *Service) resolveInstance(modelID, content string) (string, error) {
	lowered := strings.ToLower(content)

	var all []models.MachineInstanceModel
	q := s.db.Order("asset_tag ASC")
	if modelID != "" {
		q = q.Where("model_id = ?", modelID)
	}
	if err := q.Find(&all).Error; err != nil {
		return "", err
	}
	if len(all) == 0 {
		return "", nil
	}

	for _, inst := range all {
		tag := strings.ToLower(inst.AssetTag)
		if tag != "" && containsTerm(lowered, tag) {
			return inst.ID, nil
		}
	}
	if modelID == "" {
		return "", nil
	}
	for _, inst := range all {
		if inst.OnFloor {
			return inst.ID, nil
		}
	}
	return all[0].ID, nil
}

// resolveReportRef matches "#123" tokens as open-report id prefixes scoped
// to the instance, preferring the newest report when a prefix is ambiguous.
func (s *Service) resolveReportRef(instanceID string, refs []string) string {
	if instanceID == "" {
		return ""
	}
	for _, ref := range refs {
		var r models.ProblemReportModel
		err := s.db.Where("instance_id = ? AND status IN (?, ?) AND id LIKE ?",
			instanceID, models.ReportOpen, models.ReportAcknowledged, ref+"%").
			Order("created_at DESC").First(&r).Error
		if err == nil {
			return r.ID
		}
	}
	return ""
}

func summarize(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= 80 {
		return content
	}
	return string(runes[:77]) + "..."
}

func attributed(author, content string) string {
	return fmt.Sprintf("via discord (%s): %s", author, content)
}
