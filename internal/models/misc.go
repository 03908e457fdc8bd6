package models

// ActivityModel logs staff activity (logins, settings changes, deletions).
type ActivityModel struct {
	Base
	Type    string `json:"type"    gorm:"index;not null"`
	Payload string `json:"payload" gorm:"type:text"` // JSON-encoded
	ActorID string `json:"actor_id" gorm:"index"`
}

func (ActivityModel) TableName() string { return "activities" }

// OptionModel is a generic key-value store for system configuration. The
// site settings live in a single JSON-encoded row.
type OptionModel struct {
	ID    uint   `json:"-" gorm:"primaryKey;autoIncrement"`
	Name  string `json:"name"  gorm:"uniqueIndex;not null"`
	Value string `json:"value" gorm:"type:text"` // JSON-encoded value
}

func (OptionModel) TableName() string { return "options" }
