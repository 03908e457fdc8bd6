package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/the-flip/core/internal/models"
	appsettings "github.com/the-flip/core/internal/modules/settings"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrDisabled         = errors.New("AI summaries are not configured")
	ErrInstanceNotFound = errors.New("machine instance not found")
	ErrNoHistory        = errors.New("no recent maintenance history to summarize")
)

const (
	historyWindow = 90 * 24 * time.Hour
	historyLimit  = 40
	maxTokens     = 1024
)

// Service produces short natural-language summaries of an instance's recent
// maintenance history.
type Service struct {
	db       *gorm.DB
	logger   *zap.Logger
	settings *appsettings.Service
}

func NewService(db *gorm.DB, logger *zap.Logger, settings *appsettings.Service) *Service {
	return &Service{db: db, logger: logger.Named("ai"), settings: settings}
}

// Summarize builds the history digest and asks the model for a summary.
func (s *Service) Summarize(ctx context.Context, instanceID string) (string, error) {
	cfg, err := s.settings.Get()
	if err != nil {
		return "", err
	}
	if !cfg.AI.Enable || cfg.AI.APIKey == "" {
		return "", ErrDisabled
	}

	var inst models.MachineInstanceModel
	if err := s.db.Preload("Model").Where("id = ?", instanceID).First(&inst).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInstanceNotFound
		}
		return "", err
	}

	digest, err := s.historyDigest(&inst)
	if err != nil {
		return "", err
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.AI.APIKey),
		option.WithMaxRetries(0),
	)

	model := cfg.AI.Model
	if model == "" {
		model = "claude-sonnet-4-5"
	}

	prompt := fmt.Sprintf(
		"You are helping pinball museum staff. Summarize the recent maintenance history "+
			"below in at most four sentences: current state, recurring issues, and anything "+
			"that needs follow-up. Be concrete and skip pleasantries.\n\n%s", digest)

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("summary request: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("summary request: empty completion")
	}

	s.logger.Info("summary generated",
		zap.String("instance", instanceID), zap.Int("chars", len(text)))
	return text, nil
}

// historyDigest renders the instance's recent reports and log entries as a
// plain-text timeline the model can read.
func (s *Service) historyDigest(inst *models.MachineInstanceModel) (string, error) {
	since := time.Now().Add(-historyWindow)

	var reports []models.ProblemReportModel
	if err := s.db.Where("instance_id = ? AND created_at > ?", inst.ID, since).
		Order("created_at DESC").Limit(historyLimit).Find(&reports).Error; err != nil {
		return "", err
	}
	var logs []models.LogEntryModel
	if err := s.db.Where("instance_id = ? AND created_at > ?", inst.ID, since).
		Order("created_at DESC").Limit(historyLimit).Find(&logs).Error; err != nil {
		return "", err
	}
	if len(reports) == 0 && len(logs) == 0 {
		return "", ErrNoHistory
	}

	var b strings.Builder
	name := inst.AssetTag
	if inst.Model != nil {
		name = fmt.Sprintf("%s (%s)", inst.Model.Name, inst.AssetTag)
	}
	fmt.Fprintf(&b, "Machine: %s, current status: %s\n\nProblem reports:\n", name, inst.Status)
	if len(reports) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, r := range reports {
		fmt.Fprintf(&b, "  [%s] %s/%s: %s\n",
			r.CreatedAt.Format("2006-01-02"), r.Severity, r.Status, oneLine(r.Description))
	}
	b.WriteString("\nWork log:\n")
	if len(logs) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, e := range logs {
		fmt.Fprintf(&b, "  [%s] %s\n", e.CreatedAt.Format("2006-01-02"), oneLine(e.Text))
	}
	return b.String(), nil
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > 200 {
		return string(runes[:197]) + "..."
	}
	return s
}
