package part

import (
	"errors"

	"github.com/the-flip/core/internal/models"
)

type CreateRequestDTO struct {
	InstanceID  string `json:"instance_id" binding:"required"`
	PartName    string `json:"part_name" binding:"required"`
	PartNumber  string `json:"part_number"`
	SupplierURL string `json:"supplier_url"`
	Quantity    int    `json:"quantity"`
	Notes       string `json:"notes"`
}

type UpdateRequestDTO struct {
	PartName    *string `json:"part_name"`
	PartNumber  *string `json:"part_number"`
	SupplierURL *string `json:"supplier_url"`
	Quantity    *int    `json:"quantity"`
	Notes       *string `json:"notes"`
}

type ChangeStatusDTO struct {
	Status models.PartStatus `json:"status" binding:"required"`
	Note   string            `json:"note"`
}

var (
	ErrRequestNotFound  = errors.New("part request not found")
	ErrInstanceNotFound = errors.New("machine instance not found")
	ErrBadStatus        = errors.New("invalid part status")
)
