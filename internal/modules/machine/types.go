package machine

import (
	"errors"

	"github.com/the-flip/core/internal/models"
)

type CreateModelDTO struct {
	Name          string             `json:"name" binding:"required"`
	Slug          string             `json:"slug"`
	Manufacturer  string             `json:"manufacturer"`
	ReleaseYear   int                `json:"release_year"`
	MachineType   models.MachineType `json:"machine_type"`
	IPDBID        int                `json:"ipdb_id"`
	Abbreviations []string           `json:"abbreviations"`
	Description   string             `json:"description"`
}

type UpdateModelDTO struct {
	Name          *string             `json:"name"`
	Slug          *string             `json:"slug"`
	Manufacturer  *string             `json:"manufacturer"`
	ReleaseYear   *int                `json:"release_year"`
	MachineType   *models.MachineType `json:"machine_type"`
	IPDBID        *int                `json:"ipdb_id"`
	Abbreviations []string            `json:"abbreviations"`
	Description   *string             `json:"description"`
}

type CreateInstanceDTO struct {
	ModelID  string                `json:"model_id" binding:"required"`
	AssetTag string                `json:"asset_tag" binding:"required"`
	Zone     string                `json:"zone"`
	OnFloor  *bool                 `json:"on_floor"`
	Status   models.InstanceStatus `json:"status"`
	Notes    string                `json:"notes"`
}

type UpdateInstanceDTO struct {
	AssetTag *string `json:"asset_tag"`
	Zone     *string `json:"zone"`
	OnFloor  *bool   `json:"on_floor"`
	Notes    *string `json:"notes"`
}

type ChangeStatusDTO struct {
	Status models.InstanceStatus `json:"status" binding:"required"`
	Note   string                `json:"note"`
}

// autocompleteEntry is a lightweight hit for typeahead pickers.
type autocompleteEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Manufacturer string `json:"manufacturer"`
	ReleaseYear  int    `json:"release_year"`
}

var (
	ErrModelNotFound    = errors.New("machine model not found")
	ErrInstanceNotFound = errors.New("machine instance not found")
	ErrNameTaken        = errors.New("machine name already exists")
	ErrAssetTagTaken    = errors.New("asset tag already in use")
	ErrBadStatus        = errors.New("invalid instance status")
	ErrHasInstances     = errors.New("model still has instances")
)
