package models

// EntrySource records which surface created a row.
type EntrySource string

const (
	SourceWeb     EntrySource = "web"
	SourceDiscord EntrySource = "discord"
	SourceSystem  EntrySource = "system"
)

// LogEntryModel records maintenance work performed on a machine instance,
// optionally linked to the problem report it addresses.
type LogEntryModel struct {
	Base
	InstanceID   string                `json:"instance_id" gorm:"index;not null"`
	Instance     *MachineInstanceModel `json:"instance,omitempty" gorm:"foreignKey:InstanceID"`
	MaintainerID *string               `json:"maintainer_id" gorm:"index"`
	Maintainer   *MaintainerModel      `json:"maintainer,omitempty" gorm:"foreignKey:MaintainerID"`
	// Attribution carries the human name when the entry came from a
	// shared terminal account.
	Attribution  string      `json:"attribution"`
	Text         string      `json:"text"        gorm:"type:text;not null"`
	ReportID     *string     `json:"report_id"   gorm:"index"`
	ClosesReport bool        `json:"closes_report" gorm:"default:false"`
	Source       EntrySource `json:"source"      gorm:"index;default:'web'"`
}

func (LogEntryModel) TableName() string { return "log_entries" }
