package dto

import (
	"bytes"
	"encoding/json"

	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
)

type ProductFilters struct {
	// CategoryID restricts the list to one category; Uncategorized to products without one.
	CategoryID     *int64
	Uncategorized  bool
	IncludeDeleted bool
	IsActive       *bool
}

type CreateProductInput struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Image       *string  `json:"image"`
	CategoryID  *int64   `json:"categoryId" validate:"omitempty,gt=0"`
	Order       *int     `json:"order" validate:"omitempty,min=0"`
	IsActive    *bool    `json:"isActive"`
}

// UpdateProductInput leaves nil fields unchanged. CategoryID distinguishes an
// absent key from an explicit null, which detaches the product.
type UpdateProductInput struct {
	ID          int64      `json:"-"`
	Name        *string    `json:"name" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Price       *float64   `json:"price" validate:"omitempty,gte=0"`
	Image       *string    `json:"image"`
	CategoryID  OptionalID `json:"categoryId"`
	Order       *int       `json:"order" validate:"omitempty,min=0"`
	IsActive    *bool      `json:"isActive"`
}

type OptionalID struct {
	Set   bool
	Value *int64
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

type BulkDeleteRequest struct {
	ProductIDs []int64 `json:"productIds" validate:"required,min=1,dive,gt=0"`
}

type ReorderRequest struct {
	Products []ordering.Position `json:"products" validate:"required,min=1,dive"`
}

type BatchRequest struct {
	Products []BatchItem `json:"products" validate:"required,min=1,dive"`
}

type BatchItem struct {
	ID int64 `json:"id" validate:"gt=0"`
}

func (r *BatchRequest) IDs() []int64 {
	ids := make([]int64, len(r.Products))
	for i, p := range r.Products {
		ids[i] = p.ID
	}
	return ids
}
