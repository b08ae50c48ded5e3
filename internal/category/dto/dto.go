package dto

import "github.com/fekuna/omnipos-qrmenu/internal/ordering"

type CategoryFilters struct {
	IncludeDeleted bool
	IsActive       *bool
}

type CreateCategoryInput struct {
	Name  string  `json:"name" validate:"required,max=100"`
	Icon  *string `json:"icon" validate:"omitempty,max=16"`
	Order *int    `json:"order" validate:"omitempty,min=0"`
}

// UpdateCategoryInput leaves nil fields unchanged.
type UpdateCategoryInput struct {
	ID       int64   `json:"-"`
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Icon     *string `json:"icon" validate:"omitempty,max=16"`
	Order    *int    `json:"order" validate:"omitempty,min=0"`
	IsActive *bool   `json:"isActive"`
}

type BulkDeleteRequest struct {
	CategoryIDs []int64 `json:"categoryIds" validate:"required,min=1,dive,gt=0"`
}

type ReorderRequest struct {
	Categories []ordering.Position `json:"categories" validate:"required,min=1,dive"`
}

// BatchRequest is the body of restore and permanent-delete. Clients send back
// the entities they hold; only ids are read.
type BatchRequest struct {
	Categories []BatchItem `json:"categories" validate:"required,min=1,dive"`
}

type BatchItem struct {
	ID int64 `json:"id" validate:"gt=0"`
}

func (r *BatchRequest) IDs() []int64 {
	ids := make([]int64, len(r.Categories))
	for i, c := range r.Categories {
		ids[i] = c.ID
	}
	return ids
}
