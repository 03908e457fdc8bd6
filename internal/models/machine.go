package models

// MachineType describes the technology generation of a game.
type MachineType string

const (
	MachineSolidState  MachineType = "solid_state"
	MachineElectroMech MachineType = "electro_mechanical"
	MachineDigital     MachineType = "digital"
)

// MachineModel is a pinball game title in the catalog, as opposed to a
// physical unit on the floor (MachineInstanceModel).
type MachineModel struct {
	Base
	// Uniqueness of name and slug is enforced in the service over live rows
	// only; a DB unique index would also trap soft-deleted rows and block
	// re-creating a once-deleted title.
	Name          string      `json:"name"          gorm:"index;not null"`
	Slug          string      `json:"slug"          gorm:"index;not null"`
	Manufacturer  string      `json:"manufacturer"  gorm:"index"`
	ReleaseYear   int         `json:"release_year"`
	MachineType   MachineType `json:"machine_type"  gorm:"index;default:'solid_state'"`
	IPDBID        int         `json:"ipdb_id"       gorm:"column:ipdb_id"`
	Abbreviations StringArray `json:"abbreviations" gorm:"type:text"`
	Description   string      `json:"description"   gorm:"type:text"`

	Instances []MachineInstanceModel `json:"instances,omitempty" gorm:"foreignKey:ModelID"`
}

func (MachineModel) TableName() string { return "machine_models" }

// InstanceStatus is the operational state of a physical unit.
type InstanceStatus string

const (
	InstanceOperational    InstanceStatus = "operational"
	InstanceNeedsAttention InstanceStatus = "needs_attention"
	InstanceOutOfOrder     InstanceStatus = "out_of_order"
	InstanceInStorage      InstanceStatus = "in_storage"
)

// ValidInstanceStatus reports whether s is one of the accepted states.
func ValidInstanceStatus(s InstanceStatus) bool {
	switch s {
	case InstanceOperational, InstanceNeedsAttention, InstanceOutOfOrder, InstanceInStorage:
		return true
	}
	return false
}

// MachineInstanceModel is a specific physical unit owned by the museum.
type MachineInstanceModel struct {
	Base
	ModelID  string         `json:"model_id"  gorm:"index;not null"`
	Model    *MachineModel  `json:"model,omitempty" gorm:"foreignKey:ModelID"`
	AssetTag string         `json:"asset_tag" gorm:"index;not null"` // live-row uniqueness checked in the service
	Zone     string         `json:"zone"      gorm:"index"`
	OnFloor  bool           `json:"on_floor"  gorm:"default:true;index"`
	Status   InstanceStatus `json:"status"    gorm:"index;default:'operational'"`
	Notes    string         `json:"notes"     gorm:"type:text"`

	Reports []ProblemReportModel `json:"reports,omitempty" gorm:"foreignKey:InstanceID"`
	Logs    []LogEntryModel      `json:"logs,omitempty"    gorm:"foreignKey:InstanceID"`
}

func (MachineInstanceModel) TableName() string { return "machine_instances" }
