package model

import "github.com/fekuna/omnipos-qrmenu/internal/ordering"

type Category struct {
	BaseModel
	Name      string  `db:"name" json:"name"`
	Icon      *string `db:"icon" json:"icon"` // Emoji or glyph
	SortOrder int     `db:"sort_order" json:"order"`
	IsActive  bool    `db:"is_active" json:"isActive"`
}

func (c Category) EntityName() string          { return c.Name }
func (c Category) EntityScope() ordering.Scope { return ordering.Scope{} }
func (c Category) Position() int               { return c.SortOrder }
