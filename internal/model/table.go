package model

import "github.com/fekuna/omnipos-qrmenu/internal/ordering"

const MaxTableNameLength = 20

// Table is a physical table; its name is what the QR code points at.
type Table struct {
	BaseModel
	Name      string `db:"name" json:"name"`
	SortOrder int    `db:"sort_order" json:"order"`
	IsActive  bool   `db:"is_active" json:"isActive"`
}

func (t Table) EntityName() string          { return t.Name }
func (t Table) EntityScope() ordering.Scope { return ordering.Scope{} }
func (t Table) Position() int               { return t.SortOrder }
