package models

// PartStatus is the lifecycle state of a part request.
type PartStatus string

const (
	PartRequested PartStatus = "requested"
	PartOrdered   PartStatus = "ordered"
	PartReceived  PartStatus = "received"
	PartInstalled PartStatus = "installed"
	PartCancelled PartStatus = "cancelled"
)

// ValidPartStatus reports whether s is one of the accepted states.
func ValidPartStatus(s PartStatus) bool {
	switch s {
	case PartRequested, PartOrdered, PartReceived, PartInstalled, PartCancelled:
		return true
	}
	return false
}

// PartRequestModel is a tracked need for a replacement part.
type PartRequestModel struct {
	Base
	InstanceID   string                `json:"instance_id" gorm:"index;not null"`
	Instance     *MachineInstanceModel `json:"instance,omitempty" gorm:"foreignKey:InstanceID"`
	MaintainerID *string               `json:"maintainer_id" gorm:"index"`
	PartName     string                `json:"part_name"   gorm:"not null"`
	PartNumber   string                `json:"part_number"`
	SupplierURL  string                `json:"supplier_url"`
	Quantity     int                   `json:"quantity"    gorm:"default:1"`
	Status       PartStatus            `json:"status"      gorm:"index;default:'requested'"`
	Notes        string                `json:"notes"       gorm:"type:text"`

	Updates []PartUpdateModel `json:"updates,omitempty" gorm:"foreignKey:RequestID"`
}

func (PartRequestModel) TableName() string { return "part_requests" }

// PartUpdateModel is one row of a part request's status-update history.
type PartUpdateModel struct {
	Base
	RequestID    string     `json:"request_id" gorm:"index;not null"`
	MaintainerID *string    `json:"maintainer_id" gorm:"index"`
	Note         string     `json:"note"       gorm:"type:text"`
	OldStatus    PartStatus `json:"old_status"`
	NewStatus    PartStatus `json:"new_status"`
}

func (PartUpdateModel) TableName() string { return "part_updates" }
