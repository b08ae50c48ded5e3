package model

import "github.com/fekuna/omnipos-qrmenu/internal/ordering"

type Product struct {
	BaseModel
	CategoryID  *int64  `db:"category_id" json:"categoryId"` // Nullable
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description"`
	Price       float64 `db:"price" json:"price"`
	Image       *string `db:"image" json:"image"` // data URI or path
	SortOrder   int     `db:"sort_order" json:"order"`
	IsActive    bool    `db:"is_active" json:"isActive"`
}

func (p Product) EntityName() string { return p.Name }

// Products are sequenced within their category.
func (p Product) EntityScope() ordering.Scope { return ordering.Within(p.CategoryID) }
func (p Product) Position() int               { return p.SortOrder }
