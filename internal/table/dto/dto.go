package dto

import "github.com/fekuna/omnipos-qrmenu/internal/ordering"

type TableFilters struct {
	IncludeDeleted bool
	IsActive       *bool
}

type CreateTableInput struct {
	Name     string `json:"name" validate:"required"`
	Order    *int   `json:"order" validate:"omitempty,min=0"`
	IsActive *bool  `json:"isActive"`
}

type UpdateTableInput struct {
	ID       int64   `json:"-"`
	Name     *string `json:"name"`
	Order    *int    `json:"order" validate:"omitempty,min=0"`
	IsActive *bool   `json:"isActive"`
}

type ReorderRequest struct {
	Tables []ordering.Position `json:"tables" validate:"required,min=1,dive"`
}
